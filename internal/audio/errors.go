package audio

import (
	"errors"
	"fmt"

	"github.com/alnah/go-chunkscribe/internal/format"
)

// ErrFileNotFound indicates the specified input file does not exist.
var ErrFileNotFound = errors.New("file not found")

// ErrProbeFailed indicates the duration of the source could not be determined.
var ErrProbeFailed = errors.New("audio probe failed")

// ErrExtractionFailed indicates ffmpeg could not produce a chunk file.
var ErrExtractionFailed = errors.New("chunk extraction failed")

// ErrInvalidThreshold indicates a silence threshold ffmpeg would reject.
var ErrInvalidThreshold = errors.New("invalid silence threshold")

// ErrInvalidSilenceDuration indicates a non-positive minimum silence duration.
var ErrInvalidSilenceDuration = errors.New("invalid minimum silence duration")

// ExtractionError reports which interval of the cut point set failed.
// It matches ErrExtractionFailed with errors.Is.
type ExtractionError struct {
	Index int     // Position of the interval in the cut point set.
	Start float64 // Interval start in seconds.
	End   float64 // Interval end in seconds.
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%v: interval %d (%s-%s): %v",
		ErrExtractionFailed, e.Index,
		format.Duration(format.Seconds(e.Start)),
		format.Duration(format.Seconds(e.End)),
		e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *ExtractionError) Unwrap() []error {
	return []error{ErrExtractionFailed, e.Err}
}
