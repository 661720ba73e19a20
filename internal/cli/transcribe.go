package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alnah/go-chunkscribe/internal/audio"
	"github.com/alnah/go-chunkscribe/internal/config"
	"github.com/alnah/go-chunkscribe/internal/ffmpeg"
	"github.com/alnah/go-chunkscribe/internal/format"
	"github.com/alnah/go-chunkscribe/internal/lang"
	"github.com/alnah/go-chunkscribe/internal/logging"
	"github.com/alnah/go-chunkscribe/internal/pipeline"
	"github.com/alnah/go-chunkscribe/internal/transcribe"
)

// EnvOpenAIAPIKey is the environment variable holding the OpenAI API key.
const EnvOpenAIAPIKey = "OPENAI_API_KEY"

// Flag names shared by transcribe and plan.
const (
	flagWorkers         = "workers"
	flagChunks          = "chunks"
	flagThreshold       = "threshold"
	flagSilenceDuration = "silence-duration"
	flagEngine          = "engine"
	flagModel           = "model"
	flagLanguage        = "language"
	flagEngineCommand   = "engine-command"
	flagPrompt          = "prompt"
)

// splitOptions are the flags that decide where a source is cut.
type splitOptions struct {
	workers         int
	chunks          int
	threshold       string
	silenceDuration float64
}

// transcribeOptions holds every transcribe flag.
type transcribeOptions struct {
	splitOptions
	output        string
	engine        string
	model         string
	language      string
	engineCommand string
	prompt        string
	metricsFile   string
}

func registerSplitFlags(cmd *cobra.Command, o *splitOptions) {
	cmd.Flags().IntVarP(&o.workers, flagWorkers, "w", 0, "Max parallel transcriptions (0 = all CPUs)")
	cmd.Flags().IntVar(&o.chunks, flagChunks, 0, "Target chunk count (0 = one per worker)")
	cmd.Flags().StringVar(&o.threshold, flagThreshold, audio.DefaultThreshold, "Silence noise level, e.g. -30dB")
	cmd.Flags().Float64Var(&o.silenceDuration, flagSilenceDuration, audio.DefaultMinSilence, "Minimum silence length in seconds")
}

// mergeSplitConfig applies configured values to flags the user did not set.
func mergeSplitConfig(o splitOptions, cfg config.Config, changed func(string) bool) splitOptions {
	if !changed(flagWorkers) && cfg.Workers != 0 {
		o.workers = cfg.Workers
	}
	if !changed(flagThreshold) && cfg.SilenceThreshold != "" {
		o.threshold = cfg.SilenceThreshold
	}
	if !changed(flagSilenceDuration) && cfg.SilenceDuration != 0 {
		o.silenceDuration = cfg.SilenceDuration
	}
	return o
}

// mergeTranscribeConfig applies configured values to flags the user did not set.
func mergeTranscribeConfig(o transcribeOptions, cfg config.Config, changed func(string) bool) transcribeOptions {
	o.splitOptions = mergeSplitConfig(o.splitOptions, cfg, changed)
	if !changed(flagEngine) && cfg.Engine != "" {
		o.engine = cfg.Engine
	}
	if !changed(flagModel) && cfg.Model != "" {
		o.model = cfg.Model
	}
	if !changed(flagLanguage) && cfg.Language != "" {
		o.language = cfg.Language
	}
	if !changed(flagEngineCommand) && cfg.EngineCommand != "" {
		o.engineCommand = cfg.EngineCommand
	}
	if !changed(flagPrompt) && cfg.Prompt != "" {
		o.prompt = cfg.Prompt
	}
	return o
}

func (o splitOptions) validate() error {
	if o.workers < 0 {
		return fmt.Errorf("%w: --%s must be >= 0 (got %d)", ErrInvalidFlag, flagWorkers, o.workers)
	}
	if o.chunks < 0 {
		return fmt.Errorf("%w: --%s must be >= 0 (got %d)", ErrInvalidFlag, flagChunks, o.chunks)
	}
	return nil
}

func (o splitOptions) params(source string) pipeline.Params {
	return pipeline.Params{
		Source:     source,
		MaxWorkers: o.workers,
		Chunks:     o.chunks,
		Threshold:  o.threshold,
		MinSilence: o.silenceDuration,
	}
}

// TranscribeCmd creates the transcribe command.
// The env parameter provides injectable dependencies for testing.
func TranscribeCmd(env *Env) *cobra.Command {
	var opts transcribeOptions

	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe an audio file in parallel chunks",
		Long: `Transcribe an audio file by cutting it at silences into roughly equal
chunks, transcribing the chunks in parallel and joining the text in order.

Engines:
  openai  OpenAI Whisper API (needs OPENAI_API_KEY)
  local   Any executable printing JSON segments, set with --engine-command

Supported formats: ` + supportedFormatsList(),
		Example: `  chunkscribe transcribe lecture.mp3
  chunkscribe transcribe lecture.mp3 -w 4 -o lecture.txt
  chunkscribe transcribe talk.ogg --threshold -35dB --silence-duration 1
  chunkscribe transcribe talk.ogg --engine local --engine-command "whisper-json --model small"
  chunkscribe transcribe talk.ogg -o -  # print to stdout`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscribe(cmd.Context(), env, args[0], opts, cmd.Flags().Changed)
		},
	}

	registerSplitFlags(cmd, &opts.splitOptions)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", `Output file, "-" for stdout (default: <input>.txt)`)
	cmd.Flags().StringVar(&opts.engine, flagEngine, transcribe.EngineOpenAI, "Transcription engine: openai, local")
	cmd.Flags().StringVar(&opts.model, flagModel, "", "Engine model (default: "+transcribe.DefaultOpenAIModel+" for openai)")
	cmd.Flags().StringVarP(&opts.language, flagLanguage, "l", "", "Audio language (ISO 639-1, e.g. en, fr, pt-BR)")
	cmd.Flags().StringVar(&opts.engineCommand, flagEngineCommand, "", "Command line of the local engine")
	cmd.Flags().StringVar(&opts.prompt, flagPrompt, "", "Vocabulary hint sent with every chunk (openai only)")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the run")

	return cmd
}

// checkInput validates the source path before anything is resolved.
func checkInput(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("cannot access input file: %w", err)
	}
	if !isSupportedFormat(path) {
		return fmt.Errorf("%w %q (supported: %s)", ErrUnsupportedFormat, filepath.Ext(path), supportedFormatsList())
	}
	return nil
}

// resolveBinaries finds ffmpeg and, when available, ffprobe.
// A missing ffprobe only disables the faster probe unless FFPROBE_PATH
// points somewhere wrong.
func resolveBinaries(ctx context.Context, env *Env) (ffmpegPath, ffprobePath string, err error) {
	ffmpegPath, err = env.FFmpegResolver.Resolve(ctx)
	if err != nil {
		return "", "", err
	}
	env.FFmpegResolver.CheckVersion(ctx, ffmpegPath)

	ffprobePath, err = env.FFmpegResolver.ResolveProbe(ctx, ffmpegPath)
	if err != nil {
		if env.Getenv(ffmpeg.EnvFFprobePath) != "" {
			return "", "", err
		}
		env.Logger.Warn().Err(err).Msg("ffprobe not found, reading durations from ffmpeg")
		ffprobePath = ""
	}
	return ffmpegPath, ffprobePath, nil
}

// engineSettings validates the engine choice before any audio is processed.
func engineSettings(env *Env, o transcribeOptions) (EngineSettings, error) {
	s := EngineSettings{
		Name:     o.engine,
		Model:    o.model,
		Language: o.language,
		Command:  o.engineCommand,
		Prompt:   o.prompt,
	}
	switch o.engine {
	case transcribe.EngineOpenAI:
		s.APIKey = env.Getenv(EnvOpenAIAPIKey)
		if s.APIKey == "" {
			return s, fmt.Errorf("%w (set it with: export %s=sk-...)", transcribe.ErrAPIKeyMissing, EnvOpenAIAPIKey)
		}
	case transcribe.EngineLocal:
		if o.engineCommand == "" {
			return s, fmt.Errorf("%w (use --%s or config set %s)",
				transcribe.ErrEngineCommandMissing, flagEngineCommand, config.KeyEngineCommand)
		}
	default:
		return s, unknownEngineError(o.engine)
	}
	return s, nil
}

// runTranscribe executes the transcription pipeline.
// Validation order: file exists -> format -> flags -> config -> language -> engine -> output
func runTranscribe(ctx context.Context, env *Env, inputPath string, opts transcribeOptions, changed func(string) bool) error {
	// === VALIDATION (fail-fast) ===

	if err := checkInput(inputPath); err != nil {
		return err
	}
	if err := opts.validate(); err != nil {
		return err
	}

	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		return err
	}
	opts = mergeTranscribeConfig(opts, cfg, changed)

	if err := lang.Validate(opts.language); err != nil {
		return err
	}

	settings, err := engineSettings(env, opts)
	if err != nil {
		return err
	}

	output := opts.output
	if output != stdoutPath {
		output = config.ResolveOutputPath(output, config.ExpandPath(cfg.OutputDir),
			deriveOutputPath(filepath.Base(inputPath)))
	}
	if err := checkOutputFree(output); err != nil {
		return err
	}

	if opts.metricsFile != "" {
		defer func() {
			if err := env.Metrics.WriteTextfile(opts.metricsFile); err != nil {
				env.Logger.Warn().Err(err).Str(logging.FieldPath, opts.metricsFile).Msg("could not write metrics")
			}
		}()
	}

	// === SETUP ===

	ffmpegPath, ffprobePath, err := resolveBinaries(ctx, env)
	if err != nil {
		return err
	}

	engine, err := env.EngineFactory.NewEngine(settings, env.Logger)
	if err != nil {
		return err
	}

	p := pipeline.New(
		env.ChunkerFactory.NewChunkerFactory(ffmpegPath, ffprobePath, env.Metrics),
		engine,
		pipeline.WithLogger(logging.Component(env.Logger, "pipeline")),
		pipeline.WithRecorder(env.Metrics),
		pipeline.WithAvailableCPUs(env.CPUs))

	// === RUN ===

	res, err := p.Run(ctx, opts.params(inputPath))
	if err != nil {
		return err
	}

	// === WRITE OUTPUT ===

	if err := writeOutput(env.Stdout, output, res.Text); err != nil {
		return err
	}

	env.Logger.Info().
		Str(logging.FieldRun, res.RunID).
		Str(logging.FieldPath, output).
		Int("chunks", len(res.Chunks)).
		Int("workers", res.Workers).
		Str("elapsed", format.Elapsed(res.Elapsed)).
		Msg("transcription written")
	return nil
}
