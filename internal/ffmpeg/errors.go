package ffmpeg

import "errors"

// ErrNotFound indicates the ffmpeg binary could not be located.
var ErrNotFound = errors.New("ffmpeg not found")

// ErrProbeNotFound indicates the ffprobe binary could not be located.
// Callers may fall back to parsing ffmpeg output.
var ErrProbeNotFound = errors.New("ffprobe not found")
