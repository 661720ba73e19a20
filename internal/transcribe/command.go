package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/alnah/go-chunkscribe/internal/ffmpeg"
	"github.com/alnah/go-chunkscribe/internal/logging"
)

// outputRunner runs a command and returns its stdout. *ffmpeg.Executor satisfies it.
type outputRunner interface {
	Output(ctx context.Context, path string, args []string) ([]byte, error)
}

var _ Engine = (*CommandEngine)(nil)

// CommandEngine runs a local speech-to-text executable once per chunk as
// `<command> [args...] <audio>` and reads segments from its stdout.
//
// Accepted output: a JSON object with a "segments" array (whisper's
// verbose JSON), a JSON array of segments, or a stream of segment objects.
type CommandEngine struct {
	command string
	args    []string
	runner  outputRunner
	logger  zerolog.Logger
}

// CommandOption configures a CommandEngine.
type CommandOption func(*CommandEngine)

// WithCommandArgs sets arguments placed before the audio path.
func WithCommandArgs(args ...string) CommandOption {
	return func(e *CommandEngine) { e.args = args }
}

// WithOutputRunner sets the runner executing the command (for testing).
func WithOutputRunner(r outputRunner) CommandOption {
	return func(e *CommandEngine) { e.runner = r }
}

// WithCommandLogger sets the logger for CommandEngine.
func WithCommandLogger(l zerolog.Logger) CommandOption {
	return func(e *CommandEngine) { e.logger = l }
}

// NewCommandEngine creates an engine around the executable at command.
func NewCommandEngine(command string, opts ...CommandOption) (*CommandEngine, error) {
	if command == "" {
		return nil, ErrEngineCommandMissing
	}
	e := &CommandEngine{
		command: command,
		runner:  ffmpeg.NewExecutor(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Transcribe runs the command on audioPath and decodes its segments.
func (e *CommandEngine) Transcribe(ctx context.Context, audioPath string) ([]Segment, error) {
	args := append(append([]string{}, e.args...), audioPath)

	out, err := e.runner.Output(ctx, e.command, args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(e.command), err)
	}

	segments, err := decodeSegments(out)
	if err != nil {
		return nil, err
	}
	e.logger.Debug().Str(logging.FieldPath, audioPath).Int("segments", len(segments)).Msg("local engine finished")
	return segments, nil
}

// commandOutput covers both the whole-file object and a single segment.
type commandOutput struct {
	Segments []Segment `json:"segments"`
	Segment
}

// decodeSegments reads every top-level JSON value in out.
func decodeSegments(out []byte) ([]Segment, error) {
	if len(bytes.TrimSpace(out)) == 0 {
		return nil, fmt.Errorf("%w: empty output", ErrEngineOutput)
	}

	var segments []Segment
	dec := json.NewDecoder(bytes.NewReader(out))
	for {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return segments, nil
			}
			return nil, fmt.Errorf("%w: %v", ErrEngineOutput, err)
		}

		if raw[0] == '[' {
			var list []Segment
			if err := json.Unmarshal(raw, &list); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrEngineOutput, err)
			}
			segments = append(segments, list...)
			continue
		}

		var v commandOutput
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEngineOutput, err)
		}
		if len(v.Segments) > 0 {
			segments = append(segments, v.Segments...)
		} else if v.Text != "" {
			segments = append(segments, v.Segment)
		}
	}
}
