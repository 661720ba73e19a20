package audio

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/alnah/go-chunkscribe/internal/ffmpeg"
	"github.com/alnah/go-chunkscribe/internal/format"
	"github.com/alnah/go-chunkscribe/internal/logging"
)

// tempPattern prefixes every chunk file created in the system temp dir.
const tempPattern = "chunkscribe-*"

// maxErrorOutputLines bounds the ffmpeg stderr quoted in extraction errors.
const maxErrorOutputLines = 5

// Extractor writes one stream-copied file per interval of a cut point set.
type Extractor struct {
	ffmpegPath string
	cmd        commandRunner
	temp       tempFileCreator
	logger     zerolog.Logger
	recorder   Recorder
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithExtractorRunner sets the command runner for Extractor.
func WithExtractorRunner(r commandRunner) ExtractorOption {
	return func(e *Extractor) { e.cmd = r }
}

// WithTempFileCreator sets how chunk files are named and created.
func WithTempFileCreator(t tempFileCreator) ExtractorOption {
	return func(e *Extractor) { e.temp = t }
}

// WithExtractorLogger sets the logger for Extractor.
func WithExtractorLogger(l zerolog.Logger) ExtractorOption {
	return func(e *Extractor) { e.logger = l }
}

// WithExtractorRecorder sets the recorder counting extracted chunks.
func WithExtractorRecorder(r Recorder) ExtractorOption {
	return func(e *Extractor) { e.recorder = r }
}

// NewExtractor creates an Extractor using the ffmpeg binary at ffmpegPath.
func NewExtractor(ffmpegPath string, opts ...ExtractorOption) (*Extractor, error) {
	if ffmpegPath == "" {
		return nil, fmt.Errorf("ffmpegPath cannot be empty: %w", ffmpeg.ErrNotFound)
	}

	e := &Extractor{
		ffmpegPath: ffmpegPath,
		cmd:        ffmpeg.NewExecutor(),
		temp:       osTempFileCreator{},
		logger:     zerolog.Nop(),
		recorder:   nopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Extract cuts source at cuts (which must end with the source duration) and
// returns the chunks in timeline order. Each temp file is tracked by scratch
// before ffmpeg writes to it; on failure the files created so far stay
// tracked and the returned error is an *ExtractionError.
//
// Empty intervals are skipped, so chunk indices stay dense while the
// boundaries of the remaining chunks remain contiguous.
func (e *Extractor) Extract(ctx context.Context, source string, cuts []float64, scratch *Scratch) ([]Chunk, error) {
	if scratch == nil {
		return nil, errors.New("extract: nil scratch")
	}

	ext := filepath.Ext(source)
	chunks := make([]Chunk, 0, len(cuts))

	for k, iv := range intervals(cuts) {
		if iv.Empty() {
			e.logger.Warn().
				Int("interval", k).
				Float64("at", iv.Start).
				Msg("skipping zero-length interval")
			continue
		}

		path, err := e.temp.CreateTemp("", tempPattern+ext)
		if err != nil {
			return nil, &ExtractionError{Index: k, Start: iv.Start, End: iv.End,
				Err: fmt.Errorf("create temp file: %w", err)}
		}
		scratch.Track(path)

		if err := e.trim(ctx, source, path, iv); err != nil {
			return nil, &ExtractionError{Index: k, Start: iv.Start, End: iv.End, Err: err}
		}

		chunk := Chunk{Path: path, Index: len(chunks), Start: iv.Start, End: iv.End}
		chunks = append(chunks, chunk)
		e.recorder.ChunkExtracted()
		e.logger.Debug().Int(logging.FieldChunk, chunk.Index).Str(logging.FieldPath, path).Msg(chunk.String())
	}

	return chunks, nil
}

// trim stream-copies [iv.Start, iv.End) of source into dest, overwriting it.
func (e *Extractor) trim(ctx context.Context, source, dest string, iv Interval) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-nostdin",
		"-i", source,
		"-ss", format.FFmpegSeconds(iv.Start),
		"-t", format.FFmpegSeconds(iv.End - iv.Start),
		"-c", "copy",
		dest,
	}

	output, err := e.cmd.RunOutput(ctx, e.ffmpegPath, args)
	if err != nil {
		if tail := lastLines(output, maxErrorOutputLines); tail != "" {
			return fmt.Errorf("%w\nOutput: %s", err, tail)
		}
		return err
	}
	return nil
}

// lastLines returns the last n non-empty lines of s.
func lastLines(s string, n int) string {
	lines := strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' })
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
