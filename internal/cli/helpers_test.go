package cli

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/alnah/go-chunkscribe/internal/metrics"
)

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Compile-time check that syncBuffer implements io.Writer.
var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// testEnv - creates a fully mocked Env for testing
// ---------------------------------------------------------------------------

type testMocks struct {
	ffmpegResolver *mockFFmpegResolver
	configLoader   *mockConfigLoader
	engines        *mockEngineFactory
	chunkers       *mockChunkerFactory
	stdout         *syncBuffer
	logs           *syncBuffer
}

// testEnv creates an Env whose chunker writes n chunk files into a temp dir.
// Logs are JSON lines captured in mocks.logs.
func testEnv(t *testing.T, n int) (*Env, *testMocks) {
	t.Helper()

	mocks := &testMocks{
		ffmpegResolver: &mockFFmpegResolver{},
		configLoader:   &mockConfigLoader{},
		engines:        &mockEngineFactory{},
		chunkers:       &mockChunkerFactory{chunker: &mockChunker{dir: t.TempDir(), n: n}},
		stdout:         &syncBuffer{},
		logs:           &syncBuffer{},
	}

	env := &Env{
		Stdout:         mocks.stdout,
		Stderr:         &syncBuffer{},
		Getenv:         staticEnv(map[string]string{EnvOpenAIAPIKey: "sk-test"}),
		Logger:         zerolog.New(mocks.logs),
		Metrics:        metrics.New(),
		CPUs:           4,
		FFmpegResolver: mocks.ffmpegResolver,
		ConfigLoader:   mocks.configLoader,
		EngineFactory:  mocks.engines,
		ChunkerFactory: mocks.chunkers,
	}
	return env, mocks
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// staticEnv returns a getenv function that returns values from the given map.
func staticEnv(env map[string]string) func(string) string {
	return func(key string) string {
		return env[key]
	}
}

// never reports every flag as unchanged.
func never(string) bool { return false }

// changedFlags reports the named flags as set on the command line.
func changedFlags(names ...string) func(string) bool {
	return func(name string) bool {
		for _, n := range names {
			if n == name {
				return true
			}
		}
		return false
	}
}

// createTestAudioFile creates a temporary audio file for testing.
func createTestAudioFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("fake audio content"), 0644); err != nil {
		t.Fatalf("failed to create test audio file: %v", err)
	}
	return path
}

// assertRemoved fails for every path still present on disk.
func assertRemoved(t *testing.T, paths []string) {
	t.Helper()
	for _, p := range paths {
		if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("%s still exists (stat err: %v)", filepath.Base(p), err)
		}
	}
}

// defaultTranscribeOptions mirrors the flag defaults of TranscribeCmd.
func defaultTranscribeOptions(output string) transcribeOptions {
	return transcribeOptions{
		splitOptions: defaultSplitOptions(),
		output:       output,
		engine:       "openai",
	}
}

func defaultSplitOptions() splitOptions {
	return splitOptions{threshold: "-20dB", silenceDuration: 2}
}
