// Package pipeline runs one transcription end to end: plan cuts at
// silences, extract chunk files, dispatch them to an engine in parallel and
// remove every temp file afterwards.
package pipeline

import (
	"context"
	"errors"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/alnah/go-chunkscribe/internal/audio"
	"github.com/alnah/go-chunkscribe/internal/logging"
	"github.com/alnah/go-chunkscribe/internal/transcribe"
)

// ErrNoSource indicates Params.Source is empty.
var ErrNoSource = errors.New("no source audio")

// Params are the invocation parameters of one run.
type Params struct {
	Source     string
	MaxWorkers int     // 0 means all CPUs.
	Chunks     int     // Target chunk count; 0 means the effective worker count.
	Threshold  string  // silencedetect noise level, e.g. "-20dB".
	MinSilence float64 // Minimum silence duration in seconds.
}

func (p Params) withDefaults() Params {
	if p.Threshold == "" {
		p.Threshold = audio.DefaultThreshold
	}
	if p.MinSilence == 0 {
		p.MinSilence = audio.DefaultMinSilence
	}
	return p
}

// Result is the outcome of a successful run.
// Chunk files have already been removed when it is returned.
type Result struct {
	RunID   string
	Text    string
	Chunks  []audio.Chunk
	Workers int
	Elapsed time.Duration // Dispatch wall-clock time.
}

// Chunker plans and extracts chunks. *audio.SilenceChunker satisfies it.
type Chunker interface {
	Plan(ctx context.Context, source string, target int) (audio.Plan, error)
	Chunk(ctx context.Context, source string, target int, scratch *audio.Scratch) ([]audio.Chunk, error)
}

// ChunkerFactory builds a Chunker for the silence settings of a run.
type ChunkerFactory func(threshold string, minSilence float64, logger zerolog.Logger) (Chunker, error)

// SilenceChunkerFactory returns a factory creating audio.SilenceChunker
// values on the given binaries.
func SilenceChunkerFactory(ffmpegPath, ffprobePath string, recorder audio.Recorder) ChunkerFactory {
	return func(threshold string, minSilence float64, logger zerolog.Logger) (Chunker, error) {
		opts := []audio.SilenceChunkerOption{
			audio.WithThreshold(threshold),
			audio.WithMinSilence(minSilence),
			audio.WithLogger(logger),
		}
		if recorder != nil {
			opts = append(opts, audio.WithRecorder(recorder))
		}
		return audio.NewSilenceChunker(ffmpegPath, ffprobePath, opts...)
	}
}

// Recorder receives every pipeline measurement. *metrics.Recorder satisfies it.
type Recorder interface {
	audio.Recorder
	transcribe.Recorder
}

// Pipeline holds the collaborators shared by runs.
type Pipeline struct {
	newChunker ChunkerFactory
	engine     transcribe.Engine
	logger     zerolog.Logger
	recorder   Recorder
	cpus       int
	newRunID   func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the base logger; every run adds its run ID.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithAvailableCPUs overrides the CPU count bounding parallelism.
func WithAvailableCPUs(n int) Option {
	return func(p *Pipeline) { p.cpus = n }
}

// WithRunIDs sets the run ID generator (for testing).
func WithRunIDs(fn func() string) Option {
	return func(p *Pipeline) { p.newRunID = fn }
}

// New creates a Pipeline. engine may be nil for a pipeline used only to Plan.
func New(newChunker ChunkerFactory, engine transcribe.Engine, opts ...Option) *Pipeline {
	p := &Pipeline{
		newChunker: newChunker,
		engine:     engine,
		logger:     zerolog.Nop(),
		recorder:   nopRecorder{},
		newRunID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run transcribes params.Source. Temp chunk files are removed on every
// return path, after the dispatcher has finished with them.
func (p *Pipeline) Run(ctx context.Context, params Params) (Result, error) {
	if params.Source == "" {
		return Result{}, ErrNoSource
	}
	if p.engine == nil {
		return Result{}, transcribe.ErrUnknownEngine
	}
	params = params.withDefaults()

	runID := p.newRunID()
	logger := p.logger.With().Str(logging.FieldRun, runID).Logger()

	chunker, err := p.newChunker(params.Threshold, params.MinSilence, logger)
	if err != nil {
		return Result{}, err
	}

	workers, target := p.parallelism(params)
	logger.Info().
		Str(logging.FieldPath, params.Source).
		Int("workers", workers).
		Int("target", target).
		Msg("starting run")

	scratch := audio.NewScratch(
		audio.WithScratchLogger(logger),
		audio.WithScratchRecorder(p.recorder))
	defer func() {
		n := len(scratch.Paths())
		if err := scratch.Cleanup(); err == nil { // failures are logged by Scratch
			logger.Debug().Int("files", n).Msg("temp files removed")
		}
	}()

	chunks, err := chunker.Chunk(ctx, params.Source, target, scratch)
	if err != nil {
		return Result{}, err
	}
	for _, c := range chunks {
		logger.Debug().Int(logging.FieldChunk, c.Index).Msg(c.String())
	}

	res, err := transcribe.Dispatch(ctx, chunks, p.engine, workers,
		transcribe.WithDispatchLogger(logger),
		transcribe.WithDispatchRecorder(p.recorder),
		transcribe.WithAvailableCPUs(p.cpus))
	if err != nil {
		return Result{}, err
	}

	return Result{
		RunID:   runID,
		Text:    res.Text,
		Chunks:  chunks,
		Workers: res.Workers,
		Elapsed: res.Elapsed,
	}, nil
}

// Plan computes the cut points Run would use, without extracting anything.
func (p *Pipeline) Plan(ctx context.Context, params Params) (audio.Plan, error) {
	if params.Source == "" {
		return audio.Plan{}, ErrNoSource
	}
	params = params.withDefaults()

	logger := p.logger.With().Str(logging.FieldRun, p.newRunID()).Logger()
	chunker, err := p.newChunker(params.Threshold, params.MinSilence, logger)
	if err != nil {
		return audio.Plan{}, err
	}

	_, target := p.parallelism(params)
	return chunker.Plan(ctx, params.Source, target)
}

// parallelism returns the effective worker count and the chunk target.
// Without an explicit chunk count, one chunk per worker is requested.
func (p *Pipeline) parallelism(params Params) (workers, target int) {
	cpus := p.cpus
	if cpus <= 0 {
		cpus = runtime.NumCPU()
	}
	workers = transcribe.EffectiveWorkers(params.MaxWorkers, cpus)
	target = params.Chunks
	if target <= 0 {
		target = workers
	}
	return workers, target
}

type nopRecorder struct{}

func (nopRecorder) ChunkExtracted()               {}
func (nopRecorder) SilencesDetected(int)          {}
func (nopRecorder) CleanupFailed()                {}
func (nopRecorder) ObserveDispatch(time.Duration) {}
func (nopRecorder) ChunkTranscribed(string)       {}
