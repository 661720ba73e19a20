package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/alnah/go-chunkscribe/internal/audio"
	"github.com/alnah/go-chunkscribe/internal/config"
	"github.com/alnah/go-chunkscribe/internal/pipeline"
	"github.com/alnah/go-chunkscribe/internal/transcribe"
)

// Compile-time interface checks.
var (
	_ FFmpegResolver    = (*mockFFmpegResolver)(nil)
	_ ConfigLoader      = (*mockConfigLoader)(nil)
	_ EngineFactory     = (*mockEngineFactory)(nil)
	_ ChunkerFactory    = (*mockChunkerFactory)(nil)
	_ pipeline.Chunker  = (*mockChunker)(nil)
	_ transcribe.Engine = (*mockEngine)(nil)
)

// ---------------------------------------------------------------------------
// Mock FFmpegResolver
// ---------------------------------------------------------------------------

type mockFFmpegResolver struct {
	ResolveFunc      func(ctx context.Context) (string, error)
	ResolveProbeFunc func(ctx context.Context, ffmpegPath string) (string, error)

	mu            sync.Mutex
	resolveCalls  int
	versionChecks int
}

func (m *mockFFmpegResolver) Resolve(ctx context.Context) (string, error) {
	m.mu.Lock()
	m.resolveCalls++
	m.mu.Unlock()

	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx)
	}
	return "/usr/bin/ffmpeg", nil
}

func (m *mockFFmpegResolver) ResolveProbe(ctx context.Context, ffmpegPath string) (string, error) {
	if m.ResolveProbeFunc != nil {
		return m.ResolveProbeFunc(ctx, ffmpegPath)
	}
	return "/usr/bin/ffprobe", nil
}

func (m *mockFFmpegResolver) CheckVersion(context.Context, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.versionChecks++
}

func (m *mockFFmpegResolver) ResolveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveCalls
}

// ---------------------------------------------------------------------------
// Mock ConfigLoader
// ---------------------------------------------------------------------------

type mockConfigLoader struct {
	cfg config.Config
	err error
}

func (m *mockConfigLoader) Load() (config.Config, error) {
	return m.cfg, m.err
}

// ---------------------------------------------------------------------------
// Mock EngineFactory + Engine
// ---------------------------------------------------------------------------

type mockEngineFactory struct {
	engine *mockEngine
	err    error

	mu    sync.Mutex
	calls []EngineSettings
}

func (m *mockEngineFactory) NewEngine(s EngineSettings, _ zerolog.Logger) (transcribe.Engine, error) {
	m.mu.Lock()
	m.calls = append(m.calls, s)
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if m.engine == nil {
		return &mockEngine{}, nil
	}
	return m.engine, nil
}

func (m *mockEngineFactory) Calls() []EngineSettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]EngineSettings(nil), m.calls...)
}

// mockEngine returns "[<file name without extension>]" per chunk and fails
// on failName.
type mockEngine struct {
	failName string
}

func (m *mockEngine) Transcribe(_ context.Context, path string) ([]transcribe.Segment, error) {
	name := filepath.Base(path)
	if name == m.failName {
		return nil, fmt.Errorf("engine rejected %s", name)
	}
	return []transcribe.Segment{{Text: "[" + strings.TrimSuffix(name, filepath.Ext(name)) + "]"}}, nil
}

// ---------------------------------------------------------------------------
// Mock ChunkerFactory + Chunker
// ---------------------------------------------------------------------------

type mockChunkerFactory struct {
	chunker *mockChunker

	mu          sync.Mutex
	ffmpegPath  string
	ffprobePath string
	threshold   string
	minSilence  float64
}

func (m *mockChunkerFactory) NewChunkerFactory(ffmpegPath, ffprobePath string, _ audio.Recorder) pipeline.ChunkerFactory {
	m.mu.Lock()
	m.ffmpegPath, m.ffprobePath = ffmpegPath, ffprobePath
	m.mu.Unlock()

	return func(threshold string, minSilence float64, _ zerolog.Logger) (pipeline.Chunker, error) {
		if _, err := audio.NewSilenceChunker("/usr/bin/ffmpeg", "", audio.WithThreshold(threshold), audio.WithMinSilence(minSilence)); err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.threshold, m.minSilence = threshold, minSilence
		m.mu.Unlock()
		return m.chunker, nil
	}
}

// mockChunker writes n real chunk files into dir and tracks them.
type mockChunker struct {
	dir string
	n   int

	mu      sync.Mutex
	targets []int
	created []string
}

func (m *mockChunker) Plan(_ context.Context, source string, target int) (audio.Plan, error) {
	m.mu.Lock()
	m.targets = append(m.targets, target)
	m.mu.Unlock()

	cuts := make([]float64, 0, m.n)
	for i := 1; i <= m.n; i++ {
		cuts = append(cuts, float64(i*10))
	}
	return audio.Plan{
		Source:   source,
		Duration: float64(m.n * 10),
		Silences: cuts[:len(cuts)-1],
		Target:   target,
		Cuts:     cuts,
	}, nil
}

func (m *mockChunker) Chunk(ctx context.Context, source string, target int, scratch *audio.Scratch) ([]audio.Chunk, error) {
	if _, err := m.Plan(ctx, source, target); err != nil {
		return nil, err
	}
	chunks := make([]audio.Chunk, 0, m.n)
	for i := range m.n {
		path := filepath.Join(m.dir, fmt.Sprintf("chunk-%d.ogg", i))
		if err := os.WriteFile(path, []byte("audio"), 0o600); err != nil {
			return nil, err
		}
		scratch.Track(path)
		m.mu.Lock()
		m.created = append(m.created, path)
		m.mu.Unlock()
		chunks = append(chunks, audio.Chunk{Path: path, Index: i, Start: float64(i * 10), End: float64((i + 1) * 10)})
	}
	return chunks, nil
}

func (m *mockChunker) Created() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.created...)
}

func (m *mockChunker) Targets() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.targets...)
}
