package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alnah/go-chunkscribe/internal/apierr"
	"github.com/alnah/go-chunkscribe/internal/audio"
	"github.com/alnah/go-chunkscribe/internal/config"
	"github.com/alnah/go-chunkscribe/internal/ffmpeg"
	"github.com/alnah/go-chunkscribe/internal/lang"
	"github.com/alnah/go-chunkscribe/internal/logging"
	"github.com/alnah/go-chunkscribe/internal/transcribe"
)

// CLI-specific sentinel errors.
// These are validation/usage errors that don't belong to domain packages.
var (
	// ErrUnsupportedFormat indicates an audio file has an unsupported extension.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrFileNotFound indicates the specified input file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrOutputExists indicates the output file already exists.
	ErrOutputExists = errors.New("output file already exists")

	// ErrInvalidFlag indicates a flag value outside its accepted range.
	ErrInvalidFlag = errors.New("invalid flag value")
)

// Exit codes.
const (
	ExitOK            = 0
	ExitGeneral       = 1
	ExitUsage         = 2
	ExitSetup         = 3
	ExitValidation    = 4
	ExitTranscription = 5
	ExitInterrupt     = 130
)

func unknownEngineError(name string) error {
	return fmt.Errorf("%w %q (use %s or %s)", transcribe.ErrUnknownEngine, name,
		transcribe.EngineOpenAI, transcribe.EngineLocal)
}

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	// Interrupt wins over whatever the cancellation surfaced as.
	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	if isCobraUsageError(err) || errors.Is(err, ErrInvalidFlag) ||
		errors.Is(err, logging.ErrInvalidOptions) || errors.Is(err, config.ErrUnknownKey) ||
		errors.Is(err, config.ErrInvalidKey) {
		return ExitUsage
	}

	if errors.Is(err, ffmpeg.ErrNotFound) || errors.Is(err, ffmpeg.ErrProbeNotFound) ||
		errors.Is(err, transcribe.ErrAPIKeyMissing) || errors.Is(err, transcribe.ErrUnknownEngine) ||
		errors.Is(err, transcribe.ErrEngineCommandMissing) {
		return ExitSetup
	}

	if errors.Is(err, ErrUnsupportedFormat) || errors.Is(err, ErrFileNotFound) ||
		errors.Is(err, ErrOutputExists) || errors.Is(err, audio.ErrFileNotFound) ||
		errors.Is(err, audio.ErrProbeFailed) || errors.Is(err, audio.ErrExtractionFailed) ||
		errors.Is(err, audio.ErrInvalidThreshold) || errors.Is(err, audio.ErrInvalidSilenceDuration) ||
		errors.Is(err, lang.ErrInvalid) || errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, config.ErrInvalidSyntax) || errors.Is(err, config.ErrNotDirectory) ||
		errors.Is(err, config.ErrNotWritable) {
		return ExitValidation
	}

	if errors.Is(err, transcribe.ErrTranscriptionFailed) || errors.Is(err, transcribe.ErrEngineOutput) ||
		errors.Is(err, apierr.ErrRateLimit) || errors.Is(err, apierr.ErrQuotaExceeded) ||
		errors.Is(err, apierr.ErrTimeout) || errors.Is(err, apierr.ErrAuthFailed) ||
		errors.Is(err, apierr.ErrServer) || errors.Is(err, apierr.ErrBadRequest) {
		return ExitTranscription
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate Cobra usage errors.
// Cobra doesn't expose typed errors, so string matching is the only reliable approach.
var cobraUsageErrorPatterns = []string{
	"required flag",          // Missing required flag
	"unknown flag",           // Flag doesn't exist
	"unknown shorthand",      // Short flag doesn't exist
	"unknown command",        // Subcommand doesn't exist
	"flag needs an argument", // Flag provided without value
	"invalid argument",       // Invalid flag value type
	"accepts ",               // Wrong number of arguments (e.g., "accepts 1 arg(s)")
	"requires at least",      // Too few arguments
	"requires at most",       // Too many arguments
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	msg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
