package transcribe

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-chunkscribe/internal/audio"
	"github.com/alnah/go-chunkscribe/internal/format"
	"github.com/alnah/go-chunkscribe/internal/logging"
	"github.com/alnah/go-chunkscribe/internal/metrics"
)

// Recorder receives dispatch measurements. *metrics.Recorder satisfies it.
type Recorder interface {
	ObserveDispatch(d time.Duration)
	ChunkTranscribed(status string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveDispatch(time.Duration) {}
func (nopRecorder) ChunkTranscribed(string)       {}

// Result is the assembled transcript of one dispatch.
type Result struct {
	Text    string        // Chunk texts joined in chunk order.
	Parts   []string      // Per-chunk text, indexed like the input chunks.
	Workers int           // Effective parallelism used.
	Elapsed time.Duration // Wall-clock time of the dispatch.
}

type dispatchConfig struct {
	logger   zerolog.Logger
	recorder Recorder
	cpus     int
}

// DispatchOption configures Dispatch.
type DispatchOption func(*dispatchConfig)

// WithDispatchLogger sets the logger for Dispatch.
func WithDispatchLogger(l zerolog.Logger) DispatchOption {
	return func(c *dispatchConfig) { c.logger = l }
}

// WithDispatchRecorder sets the metrics recorder for Dispatch.
func WithDispatchRecorder(r Recorder) DispatchOption {
	return func(c *dispatchConfig) { c.recorder = r }
}

// WithAvailableCPUs overrides runtime.NumCPU as the parallelism ceiling.
func WithAvailableCPUs(n int) DispatchOption {
	return func(c *dispatchConfig) {
		if n > 0 {
			c.cpus = n
		}
	}
}

// EffectiveWorkers returns requested, or available when requested is zero,
// negative, or larger than available.
func EffectiveWorkers(requested, available int) int {
	if available < 1 {
		available = 1
	}
	if requested <= 0 || requested > available {
		return available
	}
	return requested
}

// Dispatch transcribes every chunk with at most maxWorkers concurrent engine
// calls and joins the texts in chunk order, whatever order they finish in.
//
// All tasks are started before any result is awaited. The first failure
// cancels the others and fails the whole dispatch with an error wrapping
// ErrTranscriptionFailed; no partial text is returned.
func Dispatch(ctx context.Context, chunks []audio.Chunk, engine Engine, maxWorkers int, opts ...DispatchOption) (Result, error) {
	cfg := dispatchConfig{
		logger:   zerolog.Nop(),
		recorder: nopRecorder{},
		cpus:     runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	workers := EffectiveWorkers(maxWorkers, cfg.cpus)
	if len(chunks) == 0 {
		return Result{Workers: workers}, nil
	}

	start := time.Now()
	parts := make([]string, len(chunks))
	// Semaphore channel for concurrency control.
	sem := make(chan struct{}, workers)

	g, gctx := errgroup.WithContext(ctx)

	for i, chunk := range chunks {
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			segments, err := engine.Transcribe(gctx, chunk.Path)
			if err != nil {
				cfg.recorder.ChunkTranscribed(metrics.StatusFailed)
				return fmt.Errorf("%w: chunk %d (%s): %w",
					ErrTranscriptionFailed, chunk.Index, filepath.Base(chunk.Path), err)
			}
			cfg.recorder.ChunkTranscribed(metrics.StatusSuccess)

			// Each task owns slot i; no other goroutine touches it.
			parts[i] = Join(segments)
			cfg.logger.Debug().
				Int(logging.FieldChunk, chunk.Index).
				Int("segments", len(segments)).
				Msg("chunk transcribed")
			return nil
		})
	}

	err := g.Wait()
	elapsed := time.Since(start)
	cfg.recorder.ObserveDispatch(elapsed)

	if err != nil {
		if !errors.Is(err, ErrTranscriptionFailed) {
			err = fmt.Errorf("%w: %w", ErrTranscriptionFailed, err)
		}
		return Result{}, err
	}

	cfg.logger.Info().
		Int("chunks", len(chunks)).
		Int("workers", workers).
		Str("elapsed", format.Elapsed(elapsed)).
		Msg("dispatch finished")

	return Result{
		Text:    strings.Join(parts, ""),
		Parts:   parts,
		Workers: workers,
		Elapsed: elapsed,
	}, nil
}
