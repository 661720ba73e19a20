package transcribe_test

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-chunkscribe/internal/transcribe"
)

// Compile-time interface checks.
var (
	_ transcribe.AudioTranscriber = (*mockAudioTranscriber)(nil)
	_ transcribe.OutputRunner     = (*mockOutputRunner)(nil)
	_ transcribe.Engine           = (*mockEngine)(nil)
	_ transcribe.Recorder         = (*mockRecorder)(nil)
)

// ---------------------------------------------------------------------------
// mockAudioTranscriber - go-openai client
// ---------------------------------------------------------------------------

type mockAudioTranscriber struct {
	mu        sync.Mutex
	calls     []openai.AudioRequest
	responses []openai.AudioResponse
	errors    []error
}

func (m *mockAudioTranscriber) CreateTranscription(_ context.Context, req openai.AudioRequest) (openai.AudioResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := len(m.calls)
	m.calls = append(m.calls, req)

	if idx < len(m.errors) && m.errors[idx] != nil {
		return openai.AudioResponse{}, m.errors[idx]
	}
	if idx < len(m.responses) {
		return m.responses[idx], nil
	}
	return openai.AudioResponse{}, nil
}

func (m *mockAudioTranscriber) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// audioResponse builds a response from verbose_json, since go-openai
// declares Segments as an anonymous struct.
func audioResponse(t *testing.T, verboseJSON string) openai.AudioResponse {
	t.Helper()
	var resp openai.AudioResponse
	if err := json.Unmarshal([]byte(verboseJSON), &resp); err != nil {
		t.Fatalf("unmarshal AudioResponse: %v", err)
	}
	return resp
}

// ---------------------------------------------------------------------------
// mockOutputRunner - local engine executable
// ---------------------------------------------------------------------------

type mockOutputRunner struct {
	out  []byte
	err  error
	path string
	args []string
}

func (m *mockOutputRunner) Output(_ context.Context, path string, args []string) ([]byte, error) {
	m.path, m.args = path, args
	return m.out, m.err
}

// ---------------------------------------------------------------------------
// mockEngine - Dispatch tests
// ---------------------------------------------------------------------------

type mockEngine struct {
	// transcribe computes the result for a path; defaults to one segment
	// whose text is the path.
	transcribe func(ctx context.Context, path string) ([]transcribe.Segment, error)

	active    atomic.Int32
	maxActive atomic.Int32
	calls     atomic.Int32
}

func (m *mockEngine) Transcribe(ctx context.Context, path string) ([]transcribe.Segment, error) {
	m.calls.Add(1)
	current := m.active.Add(1)
	defer m.active.Add(-1)
	for {
		old := m.maxActive.Load()
		if current <= old || m.maxActive.CompareAndSwap(old, current) {
			break
		}
	}

	if m.transcribe != nil {
		return m.transcribe(ctx, path)
	}
	return []transcribe.Segment{{Text: path}}, nil
}

// ---------------------------------------------------------------------------
// mockRecorder
// ---------------------------------------------------------------------------

type mockRecorder struct {
	mu        sync.Mutex
	statuses  map[string]int
	durations []time.Duration
}

func (m *mockRecorder) ObserveDispatch(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations = append(m.durations, d)
}

func (m *mockRecorder) ChunkTranscribed(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statuses == nil {
		m.statuses = make(map[string]int)
	}
	m.statuses[status]++
}
