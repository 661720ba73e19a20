package audio

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/alnah/go-chunkscribe/internal/ffmpeg"
	"github.com/alnah/go-chunkscribe/internal/format"
)

// Chunk represents a segment of audio extracted from a larger file.
// Its file is owned by the Scratch it was tracked in.
type Chunk struct {
	Path  string  // Absolute path to the chunk file.
	Index int     // Zero-based index for ordering.
	Start float64 // Start in the source audio, in seconds.
	End   float64 // End in the source audio, in seconds.
}

// Duration returns the length of this chunk.
func (c Chunk) Duration() time.Duration {
	return format.Seconds(c.End - c.Start)
}

// String returns a human-readable representation for logging.
func (c Chunk) String() string {
	return fmt.Sprintf("chunk %d: %s-%s",
		c.Index,
		format.Duration(format.Seconds(c.Start)),
		format.Duration(format.Seconds(c.End)))
}

// Default chunking parameters.
const (
	// DefaultThreshold is the silencedetect noise level.
	DefaultThreshold = "-20dB"

	// DefaultMinSilence is the minimum silence duration in seconds.
	// Two seconds keeps cuts on real pauses rather than breaths.
	DefaultMinSilence = 2.0
)

// thresholdRe accepts what silencedetect's n= option parses:
// a decibel value ("-30dB") or a plain amplitude ratio ("0.001").
var thresholdRe = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?(dB)?$`)

// Plan describes where a source will be cut, without touching disk.
type Plan struct {
	Source   string
	Duration float64   // Probed timeline in seconds.
	Silences []float64 // Detected silence starts, in arrival order.
	Target   int       // Requested chunk count.
	Cuts     []float64 // Selected cut points, ending with Duration.
}

// Intervals returns the non-empty chunk intervals the plan produces.
func (p Plan) Intervals() []Interval {
	var out []Interval
	for _, iv := range intervals(p.Cuts) {
		if !iv.Empty() {
			out = append(out, iv)
		}
	}
	return out
}

// SilenceChunker plans and extracts chunks cut at detected silences.
type SilenceChunker struct {
	ffmpegPath string
	threshold  string
	minSilence float64

	prober    *Prober
	extractor *Extractor

	// Injectable dependencies (defaults to OS implementations).
	cmd      commandRunner
	temp     tempFileCreator
	statter  fileStatter
	logger   zerolog.Logger
	recorder Recorder
}

// SilenceChunkerOption configures a SilenceChunker.
type SilenceChunkerOption func(*SilenceChunker)

// WithThreshold sets the silence detection threshold, e.g. "-30dB".
// Lower values (more negative) detect quieter sounds as silence.
// Default: -20dB.
func WithThreshold(threshold string) SilenceChunkerOption {
	return func(sc *SilenceChunker) { sc.threshold = threshold }
}

// WithMinSilence sets the minimum silence duration in seconds.
// Default: 2.
func WithMinSilence(seconds float64) SilenceChunkerOption {
	return func(sc *SilenceChunker) { sc.minSilence = seconds }
}

// WithCommandRunner sets the command runner for probing, detection and extraction.
func WithCommandRunner(r commandRunner) SilenceChunkerOption {
	return func(sc *SilenceChunker) { sc.cmd = r }
}

// WithChunkTempFiles sets the temp file creator used for chunk files.
func WithChunkTempFiles(t tempFileCreator) SilenceChunkerOption {
	return func(sc *SilenceChunker) { sc.temp = t }
}

// WithFileStatter sets the file statter for SilenceChunker.
func WithFileStatter(s fileStatter) SilenceChunkerOption {
	return func(sc *SilenceChunker) { sc.statter = s }
}

// WithLogger sets the logger for SilenceChunker and its helpers.
func WithLogger(l zerolog.Logger) SilenceChunkerOption {
	return func(sc *SilenceChunker) { sc.logger = l }
}

// WithRecorder sets the metrics recorder for SilenceChunker and its helpers.
func WithRecorder(r Recorder) SilenceChunkerOption {
	return func(sc *SilenceChunker) { sc.recorder = r }
}

// NewSilenceChunker creates a SilenceChunker with functional options.
// ffprobePath may be empty; the duration is then read from ffmpeg output.
func NewSilenceChunker(ffmpegPath, ffprobePath string, opts ...SilenceChunkerOption) (*SilenceChunker, error) {
	if ffmpegPath == "" {
		return nil, fmt.Errorf("ffmpegPath cannot be empty: %w", ffmpeg.ErrNotFound)
	}

	sc := &SilenceChunker{
		ffmpegPath: ffmpegPath,
		threshold:  DefaultThreshold,
		minSilence: DefaultMinSilence,
		cmd:        ffmpeg.NewExecutor(),
		temp:       osTempFileCreator{},
		statter:    osFileStatter{},
		logger:     zerolog.Nop(),
		recorder:   nopRecorder{},
	}
	for _, opt := range opts {
		opt(sc)
	}

	if !thresholdRe.MatchString(sc.threshold) {
		return nil, fmt.Errorf("%w: %q (want e.g. -20dB)", ErrInvalidThreshold, sc.threshold)
	}
	if sc.minSilence <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSilenceDuration, sc.minSilence)
	}

	var err error
	sc.prober, err = NewProber(ffmpegPath, ffprobePath,
		WithProberRunner(sc.cmd),
		WithProberLogger(sc.logger))
	if err != nil {
		return nil, err
	}
	sc.extractor, err = NewExtractor(ffmpegPath,
		WithExtractorRunner(sc.cmd),
		WithTempFileCreator(sc.temp),
		WithExtractorLogger(sc.logger),
		WithExtractorRecorder(sc.recorder))
	if err != nil {
		return nil, err
	}
	return sc, nil
}

// Plan probes source, detects silences and selects cut points for roughly
// target chunks. Probe failure is fatal; detection failure is logged and
// planned as if no silence had been found.
func (sc *SilenceChunker) Plan(ctx context.Context, source string, target int) (Plan, error) {
	if _, err := sc.statter.Stat(source); err != nil {
		return Plan{}, fmt.Errorf("%w: %v", ErrFileNotFound, err)
	}

	duration, err := sc.prober.Duration(ctx, source)
	if err != nil {
		return Plan{}, err
	}
	sc.logger.Debug().Float64("duration", duration).Msg("probed source")

	silences, err := sc.detectSilences(ctx, source)
	if err != nil {
		if ctx.Err() != nil {
			return Plan{}, ctx.Err()
		}
		sc.logger.Warn().Err(err).Msg("silence detection failed, planning without silences")
		silences = nil
	}
	sc.recorder.SilencesDetected(len(silences))

	if target < 1 {
		target = 1
	}
	cuts := append(SelectBreakpoints(candidates(silences, duration), target), duration)

	sc.logger.Info().
		Int("silences", len(silences)).
		Int("target", target).
		Int("cuts", len(cuts)).
		Msg("selected cut points")

	return Plan{
		Source:   source,
		Duration: duration,
		Silences: silences,
		Target:   target,
		Cuts:     cuts,
	}, nil
}

// Chunk plans source and extracts one temp file per interval, tracking
// every file in scratch. Chunks are returned in timeline order.
func (sc *SilenceChunker) Chunk(ctx context.Context, source string, target int, scratch *Scratch) ([]Chunk, error) {
	plan, err := sc.Plan(ctx, source, target)
	if err != nil {
		return nil, err
	}
	return sc.extractor.Extract(ctx, source, plan.Cuts, scratch)
}

// detectSilences runs silencedetect and parses its stderr while it runs.
func (sc *SilenceChunker) detectSilences(ctx context.Context, source string) ([]float64, error) {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-i", source,
		"-af", fmt.Sprintf("silencedetect=n=%s:d=%s",
			sc.threshold,
			strconv.FormatFloat(sc.minSilence, 'f', -1, 64)),
		"-f", "null",
		"-",
	}

	var silences []float64
	err := sc.cmd.Stream(ctx, sc.ffmpegPath, args, func(r io.Reader) error {
		var parseErr error
		silences, parseErr = ParseSilenceStream(r)
		return parseErr
	})
	if err != nil {
		return nil, fmt.Errorf("silencedetect: %w", err)
	}
	return silences, nil
}
