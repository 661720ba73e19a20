// Package transcribe turns chunk files into text through pluggable engines
// and dispatches chunks to an engine with bounded parallelism.
package transcribe

import (
	"context"
	"strings"
)

// Engine names accepted by configuration.
const (
	EngineOpenAI = "openai"
	EngineLocal  = "local"
)

// Segment is one timed text fragment returned by an engine.
// Times are relative to the start of the transcribed file.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Engine transcribes a single audio file.
type Engine interface {
	// Transcribe returns the fragments of audioPath in playback order.
	Transcribe(ctx context.Context, audioPath string) ([]Segment, error)
}

// Join concatenates fragment texts, discarding timing.
// Engines keep the leading space of each fragment, so no separator is added.
func Join(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Text)
	}
	return b.String()
}
