package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// ---------------------------------------------------------------------------
// Formats and paths
// ---------------------------------------------------------------------------

func TestIsSupportedFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want bool
	}{
		{"talk.ogg", true},
		{"talk.MP3", true},
		{"/a/b/lecture.m4a", true},
		{"clip.webm", true},
		{"notes.txt", false},
		{"noext", false},
		{"archive.ogg.zip", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			if got := isSupportedFormat(tt.path); got != tt.want {
				t.Errorf("isSupportedFormat(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestSupportedFormatsList(t *testing.T) {
	t.Parallel()

	want := "flac, m4a, mp3, mp4, mpeg, mpga, ogg, wav, webm"
	if got := supportedFormatsList(); got != want {
		t.Errorf("supportedFormatsList() = %q, want %q", got, want)
	}
}

func TestDeriveOutputPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"session.ogg", "session.txt"},
		{"/rec/2024.01.02.mp3", "/rec/2024.01.02.txt"},
		{"noext", "noext.txt"},
	}
	for _, tt := range tests {
		if got := deriveOutputPath(tt.in); got != tt.want {
			t.Errorf("deriveOutputPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWithTrailingNewline(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"hello", "hello\n"},
		{"hello\n", "hello\n"},
	}
	for _, tt := range tests {
		if got := withTrailingNewline(tt.in); got != tt.want {
			t.Errorf("withTrailingNewline(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

func TestWriteOutput_Stdout(t *testing.T) {
	t.Parallel()

	var buf syncBuffer
	if err := writeOutput(&buf, stdoutPath, "one two"); err != nil {
		t.Fatalf("writeOutput() error = %v", err)
	}
	if got := buf.String(); got != "one two\n" {
		t.Errorf("stdout = %q, want %q", got, "one two\n")
	}
}

func TestWriteOutput_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.txt")
	if err := writeOutput(&syncBuffer{}, path, "text"); err != nil {
		t.Fatalf("writeOutput() error = %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "text\n" {
		t.Errorf("file = %q, want %q", got, "text\n")
	}
}

func TestWriteFileAtomic_RefusesExisting(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.txt")
	if err := os.WriteFile(path, []byte("original"), 0644); err != nil {
		t.Fatal(err)
	}

	err := writeFileAtomic(path, "new")
	if !errors.Is(err, ErrOutputExists) {
		t.Fatalf("writeFileAtomic() error = %v, want ErrOutputExists", err)
	}
	if got, _ := os.ReadFile(path); string(got) != "original" {
		t.Errorf("file overwritten: %q", got)
	}
}

func TestWriteFileAtomic_MissingDir(t *testing.T) {
	t.Parallel()

	err := writeFileAtomic(filepath.Join(t.TempDir(), "missing", "out.txt"), "x")
	if err == nil || errors.Is(err, ErrOutputExists) {
		t.Errorf("writeFileAtomic() error = %v, want create error", err)
	}
}

func TestCheckOutputFree(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	existing := filepath.Join(dir, "taken.txt")
	if err := os.WriteFile(existing, nil, 0644); err != nil {
		t.Fatal(err)
	}

	if err := checkOutputFree(existing); !errors.Is(err, ErrOutputExists) {
		t.Errorf("checkOutputFree(existing) = %v, want ErrOutputExists", err)
	}
	if err := checkOutputFree(filepath.Join(dir, "free.txt")); err != nil {
		t.Errorf("checkOutputFree(free) = %v, want nil", err)
	}
	if err := checkOutputFree(stdoutPath); err != nil {
		t.Errorf("checkOutputFree(-) = %v, want nil", err)
	}
}
