package audio

import (
	"context"
	"io"
	"os"
)

// commandRunner runs ffmpeg and ffprobe. *ffmpeg.Executor satisfies it.
type commandRunner interface {
	RunOutput(ctx context.Context, path string, args []string) (string, error)
	Output(ctx context.Context, path string, args []string) ([]byte, error)
	Stream(ctx context.Context, path string, args []string, consume func(io.Reader) error) error
}

// tempFileCreator creates a uniquely named empty file and returns its path.
type tempFileCreator interface {
	CreateTemp(dir, pattern string) (string, error)
}

// fileStatter retrieves file information.
type fileStatter interface {
	Stat(name string) (os.FileInfo, error)
}

// fileRemover removes files.
type fileRemover interface {
	Remove(name string) error
}

// Recorder receives audio-side counters. *metrics.Recorder satisfies it.
type Recorder interface {
	ChunkExtracted()
	SilencesDetected(n int)
	CleanupFailed()
}

// --- Default implementations using real OS functions ---

// osTempFileCreator implements tempFileCreator using os.CreateTemp.
type osTempFileCreator struct{}

func (osTempFileCreator) CreateTemp(dir, pattern string) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", err
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(path) // best-effort; close error takes precedence
		return "", err
	}
	return path, nil
}

// osFileStatter implements fileStatter using os.Stat.
type osFileStatter struct{}

func (osFileStatter) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

// osFileRemover implements fileRemover using os.Remove.
type osFileRemover struct{}

func (osFileRemover) Remove(name string) error {
	return os.Remove(name)
}

// nopRecorder discards all measurements.
type nopRecorder struct{}

func (nopRecorder) ChunkExtracted()      {}
func (nopRecorder) SilencesDetected(int) {}
func (nopRecorder) CleanupFailed()       {}
