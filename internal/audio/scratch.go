package audio

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/alnah/go-chunkscribe/internal/logging"
)

// Scratch tracks temporary chunk files and removes them all on Cleanup.
// Paths are tracked before ffmpeg writes to them, so a failure halfway
// through extraction leaves nothing behind.
//
// The zero value is not usable; create one with NewScratch.
type Scratch struct {
	mu    sync.Mutex
	paths []string

	files    fileRemover
	logger   zerolog.Logger
	recorder Recorder
}

// ScratchOption configures a Scratch.
type ScratchOption func(*Scratch)

// WithScratchRemover sets the file remover for Scratch.
func WithScratchRemover(f fileRemover) ScratchOption {
	return func(s *Scratch) { s.files = f }
}

// WithScratchLogger sets the logger used to report cleanup failures.
func WithScratchLogger(l zerolog.Logger) ScratchOption {
	return func(s *Scratch) { s.logger = l }
}

// WithScratchRecorder sets the recorder counting cleanup failures.
func WithScratchRecorder(r Recorder) ScratchOption {
	return func(s *Scratch) { s.recorder = r }
}

// NewScratch creates an empty Scratch.
func NewScratch(opts ...ScratchOption) *Scratch {
	s := &Scratch{
		files:    osFileRemover{},
		logger:   zerolog.Nop(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Track registers path for removal. Safe for concurrent use.
func (s *Scratch) Track(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = append(s.paths, path)
}

// Paths returns a copy of the tracked paths in registration order.
// The pipeline reads it to report how many files a cleanup removed.
func (s *Scratch) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.paths)
}

// Cleanup removes every tracked file and forgets them.
// Files that no longer exist are not errors. Other failures are logged,
// counted and joined into the returned error; callers typically ignore it.
func (s *Scratch) Cleanup() error {
	s.mu.Lock()
	paths := s.paths
	s.paths = nil
	s.mu.Unlock()

	var errs []error
	for _, path := range paths {
		err := s.files.Remove(path)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			continue
		}
		s.logger.Warn().Err(err).Str(logging.FieldPath, path).Msg("could not remove temp file")
		s.recorder.CleanupFailed()
		errs = append(errs, fmt.Errorf("remove %s: %w", path, err))
	}
	return errors.Join(errs...)
}
