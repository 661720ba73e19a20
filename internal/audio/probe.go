package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/alnah/go-chunkscribe/internal/ffmpeg"
)

// Prober determines the duration of an audio file.
// It prefers ffprobe's JSON output and falls back to the "Duration:" line
// ffmpeg prints when reading an input.
type Prober struct {
	ffmpegPath  string
	ffprobePath string
	cmd         commandRunner
	logger      zerolog.Logger
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithProberRunner sets the command runner for Prober.
func WithProberRunner(r commandRunner) ProberOption {
	return func(p *Prober) { p.cmd = r }
}

// WithProberLogger sets the logger for Prober.
func WithProberLogger(l zerolog.Logger) ProberOption {
	return func(p *Prober) { p.logger = l }
}

// NewProber creates a Prober. ffprobePath may be empty when ffprobe is not
// installed; ffmpegPath is required.
func NewProber(ffmpegPath, ffprobePath string, opts ...ProberOption) (*Prober, error) {
	if ffmpegPath == "" {
		return nil, fmt.Errorf("ffmpegPath cannot be empty: %w", ffmpeg.ErrNotFound)
	}

	p := &Prober{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		cmd:         ffmpeg.NewExecutor(),
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Duration returns the total duration of path in seconds.
// A zero or unreadable duration wraps ErrProbeFailed.
func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	if p.ffprobePath != "" {
		seconds, err := p.probeJSON(ctx, path)
		if err == nil {
			return seconds, nil
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		p.logger.Debug().Err(err).Msg("ffprobe failed, reading duration from ffmpeg")
	}

	seconds, err := p.probeFFmpeg(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, fmt.Errorf("%w: %s: %v", ErrProbeFailed, path, err)
	}
	return seconds, nil
}

// ffprobeOutput is the subset of `ffprobe -of json -show_entries format=duration`.
type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (p *Prober) probeJSON(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	}
	out, err := p.cmd.Output(ctx, p.ffprobePath, args)
	if err != nil {
		return 0, err
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return 0, fmt.Errorf("decode ffprobe output: %w", err)
	}
	seconds, err := strconv.ParseFloat(parsed.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", parsed.Format.Duration, err)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("non-positive duration %v", seconds)
	}
	return seconds, nil
}

func (p *Prober) probeFFmpeg(ctx context.Context, path string) (float64, error) {
	// Without an output ffmpeg exits non-zero after printing the input
	// header, which is all that is needed here.
	args := []string{"-hide_banner", "-nostdin", "-i", path}
	output, err := p.cmd.RunOutput(ctx, p.ffmpegPath, args)
	if err != nil && output == "" {
		return 0, err
	}

	d, err := parseDurationFromFFmpegOutput(output)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("non-positive duration %v", d)
	}
	return d.Seconds(), nil
}

var durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)

// parseDurationFromFFmpegOutput extracts "Duration: HH:MM:SS.ms" from ffmpeg stderr.
func parseDurationFromFFmpegOutput(output string) (time.Duration, error) {
	matches := durationRe.FindStringSubmatch(output)
	if matches == nil {
		return 0, fmt.Errorf("could not parse duration from ffmpeg output")
	}
	return parseTimeComponents(matches[1], matches[2], matches[3], matches[4]), nil
}

// parseTimeComponents converts HH:MM:SS.frac strings to a Duration.
// The fractional part may carry 1 to 6+ digits.
func parseTimeComponents(hours, minutes, seconds, fractional string) time.Duration {
	h, _ := strconv.Atoi(hours)
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)

	// Pad or truncate the fraction to nanoseconds.
	const nanoDigits = 9
	if len(fractional) > nanoDigits {
		fractional = fractional[:nanoDigits]
	}
	ns, _ := strconv.Atoi(fractional + strings.Repeat("0", nanoDigits-len(fractional)))

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ns)
}
