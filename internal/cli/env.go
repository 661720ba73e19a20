package cli

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/alnah/go-chunkscribe/internal/audio"
	"github.com/alnah/go-chunkscribe/internal/config"
	"github.com/alnah/go-chunkscribe/internal/ffmpeg"
	"github.com/alnah/go-chunkscribe/internal/lang"
	"github.com/alnah/go-chunkscribe/internal/logging"
	"github.com/alnah/go-chunkscribe/internal/metrics"
	"github.com/alnah/go-chunkscribe/internal/pipeline"
	"github.com/alnah/go-chunkscribe/internal/transcribe"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// Env must not be nil when passed to command functions. Use DefaultEnv()
// or NewEnv() to create a valid instance.
type Env struct {
	// I/O and environment
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string

	// Logger is replaced by the root command once logging flags are parsed.
	Logger  zerolog.Logger
	Metrics *metrics.Recorder
	CPUs    int // 0 means runtime.NumCPU.

	// Factories for domain objects
	FFmpegResolver FFmpegResolver
	ConfigLoader   ConfigLoader
	EngineFactory  EngineFactory
	ChunkerFactory ChunkerFactory

	closer io.Closer // Rotated log file, set by the root command.
}

// Close releases the log file opened by the root command, if any.
func (e *Env) Close() error {
	if e.closer == nil {
		return nil
	}
	err := e.closer.Close()
	e.closer = nil
	return err
}

// FFmpegResolver locates the ffmpeg and ffprobe binaries.
type FFmpegResolver interface {
	Resolve(ctx context.Context) (string, error)
	ResolveProbe(ctx context.Context, ffmpegPath string) (string, error)
	CheckVersion(ctx context.Context, ffmpegPath string)
}

// ConfigLoader loads and provides access to configuration.
type ConfigLoader interface {
	Load() (config.Config, error)
}

// EngineSettings select and configure a transcription engine.
type EngineSettings struct {
	Name     string // transcribe.EngineOpenAI or transcribe.EngineLocal.
	APIKey   string
	Model    string
	Language string
	Command  string // Local engine command line, split on whitespace.
	Prompt   string // Vocabulary hint; the local engine ignores it.
}

// EngineFactory creates transcription engines.
type EngineFactory interface {
	NewEngine(s EngineSettings, logger zerolog.Logger) (transcribe.Engine, error)
}

// ChunkerFactory creates the chunker factory of a pipeline for the resolved binaries.
type ChunkerFactory interface {
	NewChunkerFactory(ffmpegPath, ffprobePath string, recorder audio.Recorder) pipeline.ChunkerFactory
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) { e.Stdout = w }
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) { e.Stderr = w }
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) { e.Getenv = fn }
}

// WithFFmpegResolver sets the FFmpeg resolver.
func WithFFmpegResolver(r FFmpegResolver) EnvOption {
	return func(e *Env) { e.FFmpegResolver = r }
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) { e.ConfigLoader = l }
}

// WithEngineFactory sets the engine factory.
func WithEngineFactory(f EngineFactory) EnvOption {
	return func(e *Env) { e.EngineFactory = f }
}

// WithChunkerFactory sets the chunker factory.
func WithChunkerFactory(f ChunkerFactory) EnvOption {
	return func(e *Env) { e.ChunkerFactory = f }
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	env := &Env{
		Stdout:         os.Stdout,
		Stderr:         os.Stderr,
		Getenv:         os.Getenv,
		Logger:         zerolog.Nop(),
		Metrics:        metrics.New(),
		ConfigLoader:   defaultConfigLoader{},
		EngineFactory:  defaultEngineFactory{},
		ChunkerFactory: defaultChunkerFactory{},
	}
	env.FFmpegResolver = &defaultFFmpegResolver{env: env}
	return env
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

// defaultFFmpegResolver reads the logger from env at call time, after the
// root command has configured it.
type defaultFFmpegResolver struct {
	env *Env
}

func (r *defaultFFmpegResolver) resolver() *ffmpeg.Resolver {
	return ffmpeg.NewResolver(ffmpeg.WithLogger(logging.Component(r.env.Logger, "ffmpeg")))
}

func (r *defaultFFmpegResolver) Resolve(ctx context.Context) (string, error) {
	return r.resolver().Resolve(ctx)
}

func (r *defaultFFmpegResolver) ResolveProbe(ctx context.Context, ffmpegPath string) (string, error) {
	return r.resolver().ResolveProbe(ctx, ffmpegPath)
}

func (r *defaultFFmpegResolver) CheckVersion(ctx context.Context, ffmpegPath string) {
	r.resolver().CheckVersion(ctx, ffmpeg.NewExecutor(), ffmpegPath)
}

type defaultConfigLoader struct{}

func (defaultConfigLoader) Load() (config.Config, error) {
	return config.Load()
}

// defaultEngineFactory builds OpenAI and local command engines.
type defaultEngineFactory struct{}

func (defaultEngineFactory) NewEngine(s EngineSettings, logger zerolog.Logger) (transcribe.Engine, error) {
	switch s.Name {
	case transcribe.EngineOpenAI:
		opts := []transcribe.OpenAIOption{
			transcribe.WithLanguage(lang.BaseCode(s.Language)),
			transcribe.WithOpenAILogger(logging.Component(logger, "openai")),
		}
		if s.Model != "" {
			opts = append(opts, transcribe.WithModel(s.Model))
		}
		if s.Prompt != "" {
			opts = append(opts, transcribe.WithPrompt(s.Prompt))
		}
		return transcribe.NewOpenAIEngine(s.APIKey, opts...)
	case transcribe.EngineLocal:
		fields := strings.Fields(s.Command)
		if len(fields) == 0 {
			return nil, transcribe.ErrEngineCommandMissing
		}
		return transcribe.NewCommandEngine(fields[0],
			transcribe.WithCommandArgs(fields[1:]...),
			transcribe.WithCommandLogger(logging.Component(logger, "local-engine")))
	default:
		return nil, unknownEngineError(s.Name)
	}
}

type defaultChunkerFactory struct{}

func (defaultChunkerFactory) NewChunkerFactory(ffmpegPath, ffprobePath string, recorder audio.Recorder) pipeline.ChunkerFactory {
	return pipeline.SilenceChunkerFactory(ffmpegPath, ffprobePath, recorder)
}

// Compile-time interface verification.
var (
	_ FFmpegResolver = (*defaultFFmpegResolver)(nil)
	_ ConfigLoader   = defaultConfigLoader{}
	_ EngineFactory  = defaultEngineFactory{}
	_ ChunkerFactory = defaultChunkerFactory{}
)
