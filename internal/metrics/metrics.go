// Package metrics records pipeline measurements with Prometheus collectors.
//
// Each Recorder owns its registry, so concurrent runs and tests never collide
// on the global default registry. A CLI run can persist the registry in the
// node_exporter textfile format with WriteTextfile.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "chunkscribe"

// Transcription outcomes used as the "status" label.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Recorder groups the collectors of one process.
type Recorder struct {
	registry *prometheus.Registry

	// dispatchDuration records the wall-clock time of a full dispatch.
	// Buckets span short clips to multi-hour recordings.
	dispatchDuration prometheus.Histogram

	// chunkTranscriptions counts per-chunk engine calls by status.
	chunkTranscriptions *prometheus.CounterVec

	// chunksExtracted counts temp files produced by the extractor.
	chunksExtracted prometheus.Counter

	// silencesDetected counts silence starts parsed from ffmpeg.
	silencesDetected prometheus.Counter

	// cleanupFailures counts temp files that could not be removed.
	cleanupFailures prometheus.Counter
}

// New creates a Recorder with a private registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		dispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Wall-clock duration of the parallel transcription phase",
			Buckets:   []float64{1, 5, 10, 30, 60, 300, 900, 1800, 3600},
		}),
		chunkTranscriptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_transcriptions_total",
			Help:      "Per-chunk transcription calls by status",
		}, []string{"status"}),
		chunksExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_extracted_total",
			Help:      "Audio chunks written to temporary files",
		}),
		silencesDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "silences_detected_total",
			Help:      "Silence gaps reported by ffmpeg silencedetect",
		}),
		cleanupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_failures_total",
			Help:      "Temporary chunk files that could not be removed",
		}),
	}

	r.registry.MustRegister(
		r.dispatchDuration,
		r.chunkTranscriptions,
		r.chunksExtracted,
		r.silencesDetected,
		r.cleanupFailures,
	)
	return r
}

// Registry exposes the underlying registry (for gathering in tests or handlers).
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveDispatch records the duration of one dispatch.
func (r *Recorder) ObserveDispatch(d time.Duration) {
	r.dispatchDuration.Observe(d.Seconds())
}

// ChunkTranscribed counts one engine call outcome.
func (r *Recorder) ChunkTranscribed(status string) {
	r.chunkTranscriptions.WithLabelValues(status).Inc()
}

// ChunkExtracted counts one extracted chunk file.
func (r *Recorder) ChunkExtracted() {
	r.chunksExtracted.Inc()
}

// SilencesDetected adds n parsed silences.
func (r *Recorder) SilencesDetected(n int) {
	r.silencesDetected.Add(float64(n))
}

// CleanupFailed counts one failed removal.
func (r *Recorder) CleanupFailed() {
	r.cleanupFailures.Inc()
}

// WriteTextfile writes all metrics to path in the Prometheus text format.
// The write is atomic (temp file + rename).
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
