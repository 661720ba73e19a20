package format

import (
	"fmt"
	"strconv"
	"time"
)

// Duration formats a duration as HH:MM:SS or MM:SS.
func Duration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// Seconds converts fractional seconds to a time.Duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// FFmpegSeconds formats fractional seconds for -ss/-t arguments.
// Microsecond precision is the finest ffmpeg's time parser honours.
func FFmpegSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 6, 64)
}

// Elapsed formats a wall-clock duration rounded to milliseconds.
func Elapsed(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
