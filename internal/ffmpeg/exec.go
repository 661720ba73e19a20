package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
)

// Function types for the three ways chunkscribe talks to ffmpeg/ffprobe.
type (
	runOutputFn func(ctx context.Context, path string, args []string) (string, error)
	outputFn    func(ctx context.Context, path string, args []string) ([]byte, error)
	streamFn    func(ctx context.Context, path string, args []string, consume func(io.Reader) error) error
)

// Executor runs ffmpeg and ffprobe with injectable dependencies.
type Executor struct {
	runOutput runOutputFn
	output    outputFn
	stream    streamFn
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithRunOutput sets a custom runOutput function (for testing).
func WithRunOutput(fn runOutputFn) ExecutorOption {
	return func(e *Executor) { e.runOutput = fn }
}

// WithOutput sets a custom stdout-capturing function (for testing).
func WithOutput(fn outputFn) ExecutorOption {
	return func(e *Executor) { e.output = fn }
}

// WithStream sets a custom streaming function (for testing).
func WithStream(fn streamFn) ExecutorOption {
	return func(e *Executor) { e.stream = fn }
}

// NewExecutor creates an Executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		runOutput: defaultRunOutput,
		output:    defaultOutput,
		stream:    defaultStream,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunOutput runs the binary to completion and returns its stderr.
// ffmpeg writes diagnostics (durations, errors) to stderr, so the text is
// returned even when the exit status is non-zero.
func (e *Executor) RunOutput(ctx context.Context, path string, args []string) (string, error) {
	return e.runOutput(ctx, path, args)
}

// Output runs the binary to completion and returns its stdout.
func (e *Executor) Output(ctx context.Context, path string, args []string) ([]byte, error) {
	return e.output(ctx, path, args)
}

// Stream starts the binary and hands its live stderr to consume.
// Whatever consume leaves unread is drained before waiting, so the child
// never blocks on a full pipe. consume's error takes precedence over the
// exit status.
func (e *Executor) Stream(ctx context.Context, path string, args []string, consume func(io.Reader) error) error {
	return e.stream(ctx, path, args, consume)
}

func defaultRunOutput(ctx context.Context, path string, args []string) (string, error) {
	// #nosec G204 -- path is a resolved ffmpeg binary, args are built internally
	cmd := exec.CommandContext(ctx, path, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stderr.String(), err
}

func defaultOutput(ctx context.Context, path string, args []string) ([]byte, error) {
	// #nosec G204 -- path is a resolved ffprobe binary, args are built internally
	cmd := exec.CommandContext(ctx, path, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return out, fmt.Errorf("%s: %w: %s", filepath.Base(path), err, bytes.TrimSpace(stderr.Bytes()))
	}
	return out, nil
}

func defaultStream(ctx context.Context, path string, args []string, consume func(io.Reader) error) error {
	// #nosec G204 -- path is a resolved ffmpeg binary, args are built internally
	cmd := exec.CommandContext(ctx, path, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", filepath.Base(path), err)
	}

	consumeErr := consume(stderr)
	_, _ = io.Copy(io.Discard, stderr)
	waitErr := cmd.Wait()

	if consumeErr != nil {
		return consumeErr
	}
	if waitErr != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), waitErr)
	}
	return nil
}
