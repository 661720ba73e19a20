package transcribe_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/alnah/go-chunkscribe/internal/transcribe"
)

// ---------------------------------------------------------------------------
// NewCommandEngine
// ---------------------------------------------------------------------------

func TestNewCommandEngine(t *testing.T) {
	t.Parallel()

	if _, err := transcribe.NewCommandEngine(""); !errors.Is(err, transcribe.ErrEngineCommandMissing) {
		t.Errorf("NewCommandEngine(\"\") error = %v, want ErrEngineCommandMissing", err)
	}
}

// ---------------------------------------------------------------------------
// CommandEngine.Transcribe
// ---------------------------------------------------------------------------

func TestCommandEngine_Transcribe(t *testing.T) {
	t.Parallel()

	runner := &mockOutputRunner{out: []byte(`{"text":" a b","segments":[{"start":0,"end":1,"text":" a"},{"start":1,"end":2,"text":" b"}]}`)}
	e, err := transcribe.NewCommandEngine("/usr/local/bin/whisper-json",
		transcribe.WithCommandArgs("--model", "base.en"),
		transcribe.WithOutputRunner(runner))
	if err != nil {
		t.Fatalf("NewCommandEngine() error = %v", err)
	}

	got, err := e.Transcribe(context.Background(), "/tmp/chunk.wav")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}

	want := []transcribe.Segment{{Start: 0, End: 1, Text: " a"}, {Start: 1, End: 2, Text: " b"}}
	if !slices.Equal(got, want) {
		t.Errorf("Transcribe() = %+v, want %+v", got, want)
	}
	if runner.path != "/usr/local/bin/whisper-json" {
		t.Errorf("command = %q", runner.path)
	}
	if wantArgs := []string{"--model", "base.en", "/tmp/chunk.wav"}; !slices.Equal(runner.args, wantArgs) {
		t.Errorf("args = %v, want %v", runner.args, wantArgs)
	}
}

func TestCommandEngine_Transcribe_CommandFails(t *testing.T) {
	t.Parallel()

	runErr := errors.New("exit status 2")
	e, _ := transcribe.NewCommandEngine("whisper", transcribe.WithOutputRunner(&mockOutputRunner{err: runErr}))

	if _, err := e.Transcribe(context.Background(), "/tmp/chunk.wav"); !errors.Is(err, runErr) {
		t.Errorf("Transcribe() error = %v, want %v", err, runErr)
	}
}

// ---------------------------------------------------------------------------
// decodeSegments - Output shapes
// ---------------------------------------------------------------------------

func TestDecodeSegments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		out     string
		want    []transcribe.Segment
		wantErr bool
	}{
		{
			name: "object with segments",
			out:  `{"segments":[{"start":0,"end":2.5,"text":" hi"}]}`,
			want: []transcribe.Segment{{Start: 0, End: 2.5, Text: " hi"}},
		},
		{
			name: "array of segments",
			out:  `[{"start":0,"end":1,"text":" one"},{"start":1,"end":2,"text":" two"}]`,
			want: []transcribe.Segment{{Start: 0, End: 1, Text: " one"}, {Start: 1, End: 2, Text: " two"}},
		},
		{
			name: "stream of segment objects",
			out:  "{\"start\":0,\"end\":1,\"text\":\" one\"}\n{\"start\":1,\"end\":2,\"text\":\" two\"}\n",
			want: []transcribe.Segment{{Start: 0, End: 1, Text: " one"}, {Start: 1, End: 2, Text: " two"}},
		},
		{
			name: "object with text only",
			out:  `{"text":"whole chunk"}`,
			want: []transcribe.Segment{{Text: "whole chunk"}},
		},
		{
			name: "empty segment list",
			out:  `{"segments":[]}`,
			want: nil,
		},
		{
			name:    "empty output",
			out:     "  \n",
			wantErr: true,
		},
		{
			name:    "not json",
			out:     "whisper: model not found",
			wantErr: true,
		},
		{
			name:    "truncated json",
			out:     `{"segments":[{"start":0`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := transcribe.DecodeSegments([]byte(tt.out))
			if tt.wantErr {
				if !errors.Is(err, transcribe.ErrEngineOutput) {
					t.Errorf("decodeSegments() error = %v, want ErrEngineOutput", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeSegments() unexpected error: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("decodeSegments() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Join
// ---------------------------------------------------------------------------

func TestJoin(t *testing.T) {
	t.Parallel()

	segments := []transcribe.Segment{{Text: " Hello"}, {Text: " world."}}
	if got := transcribe.Join(segments); got != " Hello world." {
		t.Errorf("Join() = %q, want %q", got, " Hello world.")
	}
	if got := transcribe.Join(nil); got != "" {
		t.Errorf("Join(nil) = %q, want empty", got)
	}
}
