package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// stdoutPath as --output writes the transcript to stdout.
const stdoutPath = "-"

// supportedFormats lists the audio extensions accepted as input.
// Chunk files keep the source extension, so every format must be one the
// engines accept as well.
var supportedFormats = []string{".flac", ".m4a", ".mp3", ".mp4", ".mpeg", ".mpga", ".ogg", ".wav", ".webm"}

// isSupportedFormat reports whether path has a supported extension (any case).
func isSupportedFormat(path string) bool {
	return slices.Contains(supportedFormats, strings.ToLower(filepath.Ext(path)))
}

// supportedFormatsList returns a sorted, comma-separated list for error messages.
func supportedFormatsList() string {
	names := make([]string, len(supportedFormats))
	for i, ext := range supportedFormats {
		names[i] = strings.TrimPrefix(ext, ".")
	}
	return strings.Join(names, ", ")
}

// deriveOutputPath converts an audio file path to a text output path.
// Example: "session.ogg" -> "session.txt"
func deriveOutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	return strings.TrimSuffix(inputPath, ext) + ".txt"
}

// checkOutputFree fails early when path already exists, before any audio
// is processed. writeFileAtomic still guards against races.
func checkOutputFree(path string) error {
	if path == stdoutPath {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrOutputExists, path)
	}
	return nil
}

// withTrailingNewline terminates non-empty text with a newline.
func withTrailingNewline(text string) string {
	if text == "" || strings.HasSuffix(text, "\n") {
		return text
	}
	return text + "\n"
}

// writeOutput writes text to stdout when path is "-", else to a new file.
func writeOutput(stdout io.Writer, path, text string) error {
	text = withTrailingNewline(text)
	if path == stdoutPath {
		if _, err := io.WriteString(stdout, text); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	return writeFileAtomic(path, text)
}

// writeFileAtomic writes content to path atomically.
// It fails if the file already exists (O_EXCL), preventing accidental overwrites.
// On write failure, the partial file is removed.
func writeFileAtomic(path, content string) error {
	// #nosec G302 G304 -- user-specified output file with standard permissions
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrOutputExists, path)
		}
		return fmt.Errorf("cannot create output file: %w", err)
	}

	writeErr := func() error {
		defer func() { _ = f.Close() }()
		if _, err := f.WriteString(content); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}()

	if writeErr != nil {
		_ = os.Remove(path)
		return writeErr
	}

	return nil
}
