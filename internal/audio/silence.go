package audio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
)

// silenceEndRe matches the silencedetect line emitted when a gap closes:
//
//	[silencedetect @ 0x...] silence_end: 43.456 | silence_duration: 1.333
//
// The leading space anchors the match after the filter prefix.
var silenceEndRe = regexp.MustCompile(` silence_end: ([0-9]+\.?[0-9]*) \| silence_duration: ([0-9]+\.?[0-9]*)`)

// ParseSilenceStream reads ffmpeg silencedetect diagnostics line by line and
// returns the start of every detected silence, in arrival order.
//
// Non-matching lines are ignored. A final line without a newline is still
// parsed. On a read error the starts parsed so far are returned with it.
func ParseSilenceStream(r io.Reader) ([]float64, error) {
	// ReadString rather than a Scanner: ffmpeg progress output separates
	// updates with carriage returns and can form arbitrarily long lines.
	br := bufio.NewReader(r)

	var starts []float64
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			starts = append(starts, parseSilenceLine(line)...)
		}
		if errors.Is(err, io.EOF) {
			return starts, nil
		}
		if err != nil {
			return starts, fmt.Errorf("read silence stream: %w", err)
		}
	}
}

// parseSilenceLine returns end-duration for every silence_end on the line.
func parseSilenceLine(line string) []float64 {
	matches := silenceEndRe.FindAllStringSubmatch(line, -1)
	if matches == nil {
		return nil
	}

	starts := make([]float64, 0, len(matches))
	for _, m := range matches {
		end, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		dur, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		starts = append(starts, end-dur)
	}
	return starts
}

// candidates builds the selector input: 0, every silence start clamped to
// the timeline, then the timeline itself as sentinel.
func candidates(silences []float64, timeline float64) []float64 {
	out := make([]float64, 0, len(silences)+2)
	out = append(out, 0)
	for _, s := range silences {
		out = append(out, min(max(s, 0), timeline))
	}
	return append(out, timeline)
}
