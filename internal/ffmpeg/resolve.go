package ffmpeg

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
)

const (
	// minFFmpegMajorVersion is the oldest ffmpeg known to ship silencedetect
	// with the "silence_end | silence_duration" output chunkscribe parses.
	minFFmpegMajorVersion = 4

	binaryExtWindows = ".exe"
)

// Environment variables overriding binary lookup.
const (
	EnvFFmpegPath  = "FFMPEG_PATH"
	EnvFFprobePath = "FFPROBE_PATH"
)

// Resolver locates the ffmpeg and ffprobe binaries.
type Resolver struct {
	stat   fileStatter
	env    envProvider
	goos   string
	logger zerolog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithFileStatter sets the file statter implementation.
func WithFileStatter(s fileStatter) ResolverOption {
	return func(r *Resolver) { r.stat = s }
}

// WithEnvProvider sets the environment provider implementation.
func WithEnvProvider(e envProvider) ResolverOption {
	return func(r *Resolver) { r.env = e }
}

// WithPlatform sets the target OS (for testing install hints and binary names).
func WithPlatform(goos string) ResolverOption {
	return func(r *Resolver) { r.goos = goos }
}

// WithLogger sets the logger for resolution and version warnings.
func WithLogger(l zerolog.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a Resolver with production defaults.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		stat:   osFileStatter{},
		env:    osEnvProvider{},
		goos:   runtime.GOOS,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds ffmpeg using the following precedence:
//  1. FFMPEG_PATH environment variable (error if set but invalid)
//  2. System PATH
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	if envPath := r.env.Getenv(EnvFFmpegPath); envPath != "" {
		if _, err := r.stat.Stat(envPath); err != nil {
			return "", fmt.Errorf("%w: %s is set to %q but binary not found", ErrNotFound, EnvFFmpegPath, envPath)
		}
		return envPath, nil
	}

	if path, err := r.env.LookPath(r.binary("ffmpeg")); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("%w\n\n%s", ErrNotFound, r.manualInstallInstructions())
}

// ResolveProbe finds ffprobe using the following precedence:
//  1. FFPROBE_PATH environment variable (error if set but invalid)
//  2. Next to the resolved ffmpeg binary
//  3. System PATH
func (r *Resolver) ResolveProbe(ctx context.Context, ffmpegPath string) (string, error) {
	if envPath := r.env.Getenv(EnvFFprobePath); envPath != "" {
		if _, err := r.stat.Stat(envPath); err != nil {
			return "", fmt.Errorf("%w: %s is set to %q but binary not found", ErrProbeNotFound, EnvFFprobePath, envPath)
		}
		return envPath, nil
	}

	if ffmpegPath != "" {
		sibling := filepath.Join(filepath.Dir(ffmpegPath), r.binary("ffprobe"))
		if _, err := r.stat.Stat(sibling); err == nil {
			return sibling, nil
		}
	}

	if path, err := r.env.LookPath(r.binary("ffprobe")); err == nil {
		return path, nil
	}

	return "", ErrProbeNotFound
}

// binary returns the platform-specific executable name.
func (r *Resolver) binary(name string) string {
	if r.goos == "windows" {
		return name + binaryExtWindows
	}
	return name
}

// manualInstallInstructions returns platform-specific instructions.
func (r *Resolver) manualInstallInstructions() string {
	switch r.goos {
	case "darwin":
		return `Install FFmpeg (ffprobe is included):
  brew install ffmpeg

Or set FFMPEG_PATH to your ffmpeg binary.`
	case "linux":
		return `Install FFmpeg (ffprobe is included):
  Ubuntu/Debian: sudo apt install ffmpeg
  Fedora:        sudo dnf install ffmpeg
  Arch:          sudo pacman -S ffmpeg

Or set FFMPEG_PATH to your ffmpeg binary.`
	case "windows":
		return `Install FFmpeg (ffprobe is included):
  winget install ffmpeg

Or set FFMPEG_PATH to your ffmpeg.exe.`
	default:
		return `Download FFmpeg from https://ffmpeg.org/download.html
Or set FFMPEG_PATH to your ffmpeg binary.`
	}
}

// CheckVersion logs a warning when ffmpeg is older than the supported minimum.
// Returns true if the version line could be parsed.
func (r *Resolver) CheckVersion(ctx context.Context, exec *Executor, ffmpegPath string) bool {
	output, err := exec.Output(ctx, ffmpegPath, []string{"-version"})
	if err != nil && len(output) == 0 {
		return false
	}

	major, ok := parseMajorVersion(string(output))
	if !ok {
		return false
	}
	if major < minFFmpegMajorVersion {
		r.logger.Warn().
			Int("version", major).
			Int("recommended", minFFmpegMajorVersion).
			Msg("ffmpeg is older than recommended")
	}
	return true
}

// parseMajorVersion reads "ffmpeg version 6.1.1 ..." or "ffmpeg version n6.1 ...".
func parseMajorVersion(output string) (int, bool) {
	first, _, _ := strings.Cut(output, "\n")
	if first == "" {
		return 0, false
	}

	var major int
	if _, err := fmt.Sscanf(first, "ffmpeg version %d", &major); err == nil {
		return major, true
	}
	if _, err := fmt.Sscanf(first, "ffmpeg version n%d", &major); err == nil {
		return major, true
	}
	return 0, false
}
