package audio_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alnah/go-chunkscribe/internal/audio"
)

// Compile-time interface checks.
var (
	_ audio.CommandRunner   = (*mockCommandRunner)(nil)
	_ audio.TempFileCreator = (*mockTempFiles)(nil)
	_ audio.FileRemover     = (*mockFileRemover)(nil)
	_ audio.FileStatter     = (*mockFileStatter)(nil)
	_ audio.Recorder        = (*mockRecorder)(nil)
)

// ---------------------------------------------------------------------------
// mockCommandRunner
// ---------------------------------------------------------------------------

type mockCall struct {
	path string
	args []string
}

type mockCommandRunner struct {
	mu    sync.Mutex
	calls []mockCall

	runOutputFunc func(ctx context.Context, path string, args []string) (string, error)
	outputFunc    func(ctx context.Context, path string, args []string) ([]byte, error)

	// streamText is fed to the consumer when streamErr is nil.
	streamText string
	streamErr  error
}

func (m *mockCommandRunner) record(path string, args []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, mockCall{path: path, args: args})
}

func (m *mockCommandRunner) RunOutput(ctx context.Context, path string, args []string) (string, error) {
	m.record(path, args)
	if m.runOutputFunc != nil {
		return m.runOutputFunc(ctx, path, args)
	}
	return "", nil
}

func (m *mockCommandRunner) Output(ctx context.Context, path string, args []string) ([]byte, error) {
	m.record(path, args)
	if m.outputFunc != nil {
		return m.outputFunc(ctx, path, args)
	}
	return nil, errors.New("unexpected Output call")
}

func (m *mockCommandRunner) Stream(ctx context.Context, path string, args []string, consume func(io.Reader) error) error {
	m.record(path, args)
	if m.streamErr != nil {
		return m.streamErr
	}
	return consume(strings.NewReader(m.streamText))
}

// callsWith returns the recorded calls whose arguments contain arg.
func (m *mockCommandRunner) callsWith(arg string) []mockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []mockCall
	for _, c := range m.calls {
		for _, a := range c.args {
			if a == arg {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// ffprobeJSON returns an Output func answering with the given duration.
func ffprobeJSON(duration string) func(context.Context, string, []string) ([]byte, error) {
	return func(context.Context, string, []string) ([]byte, error) {
		return []byte(`{"format": {"duration": "` + duration + `"}}`), nil
	}
}

// ---------------------------------------------------------------------------
// mockTempFiles creates real empty files in dir.
// ---------------------------------------------------------------------------

type mockTempFiles struct {
	dir string
	err error
	n   atomic.Int32
}

func (m *mockTempFiles) CreateTemp(_, pattern string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	name := strings.Replace(pattern, "*", fmt.Sprintf("%03d", m.n.Add(1)), 1)
	path := filepath.Join(m.dir, name)
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// ---------------------------------------------------------------------------
// mockFileRemover
// ---------------------------------------------------------------------------

type mockFileRemover struct {
	mu      sync.Mutex
	removed []string
	errFor  map[string]error
}

func (m *mockFileRemover) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.errFor[name]; ok {
		return err
	}
	m.removed = append(m.removed, name)
	return nil
}

// ---------------------------------------------------------------------------
// mockFileStatter
// ---------------------------------------------------------------------------

type mockFileStatter struct {
	err error
}

func (m *mockFileStatter) Stat(name string) (os.FileInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	return mockFileInfo{name: name}, nil
}

type mockFileInfo struct{ name string }

func (m mockFileInfo) Name() string       { return filepath.Base(m.name) }
func (m mockFileInfo) Size() int64        { return 1024 }
func (m mockFileInfo) Mode() os.FileMode  { return 0o644 }
func (m mockFileInfo) ModTime() time.Time { return time.Time{} }
func (m mockFileInfo) IsDir() bool        { return false }
func (m mockFileInfo) Sys() any           { return nil }

// ---------------------------------------------------------------------------
// mockRecorder
// ---------------------------------------------------------------------------

type mockRecorder struct {
	extracted atomic.Int32
	silences  atomic.Int32
	failures  atomic.Int32
}

func (m *mockRecorder) ChunkExtracted()        { m.extracted.Add(1) }
func (m *mockRecorder) SilencesDetected(n int) { m.silences.Add(int32(n)) }
func (m *mockRecorder) CleanupFailed()         { m.failures.Add(1) }
