// Package metrics defines the Prometheus instrumentation for the recording
// and transcription pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the recorder service
type Metrics struct {
	// Capture metrics
	FramesCaptured  *prometheus.CounterVec
	BytesCaptured   *prometheus.CounterVec
	SegmentFlushes  *prometheus.CounterVec
	CaptureErrors   *prometheus.CounterVec
	CaptureDuration *prometheus.HistogramVec

	// Conditioning metrics
	BuffersConditioned prometheus.Counter
	ConditioningTime   prometheus.Histogram

	// Transcription metrics
	ChunksSubmitted       prometheus.Counter
	ChunksTranscribed     prometheus.Counter
	ChunkFailures         prometheus.Counter
	RateLimitWaits        prometheus.Counter
	TranscriptionDuration prometheus.Histogram

	// Merge metrics
	BoundarySplices  prometheus.Counter
	SpliceRejections prometheus.Counter

	// Session metrics
	SessionsStarted   prometheus.Counter
	SessionsCompleted prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		FramesCaptured: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mikey_frames_captured_total",
			Help: "Total number of audio frames read from input devices",
		}, []string{"stream"}),
		BytesCaptured: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mikey_bytes_captured_total",
			Help: "Total number of raw audio bytes captured",
		}, []string{"stream"}),
		SegmentFlushes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mikey_segment_flushes_total",
			Help: "Total number of buffer flushes to temporary segment files",
		}, []string{"stream"}),
		CaptureErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mikey_capture_errors_total",
			Help: "Total number of device read errors during capture",
		}, []string{"stream"}),
		CaptureDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mikey_capture_duration_seconds",
			Help:    "Duration of capture sessions per stream",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1s to ~4.5 hours
		}, []string{"stream"}),

		BuffersConditioned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mikey_buffers_conditioned_total",
			Help: "Total number of raw capture buffers conditioned",
		}),
		ConditioningTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mikey_conditioning_duration_seconds",
			Help:    "Time spent conditioning raw capture buffers",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),

		ChunksSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mikey_transcription_chunks_submitted_total",
			Help: "Total number of audio chunks submitted for transcription",
		}),
		ChunksTranscribed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mikey_transcription_chunks_succeeded_total",
			Help: "Total number of audio chunks transcribed successfully",
		}),
		ChunkFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mikey_transcription_chunks_failed_total",
			Help: "Total number of audio chunks that failed transcription",
		}),
		RateLimitWaits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mikey_transcription_rate_limit_waits_total",
			Help: "Total number of cool-down waits caused by rate limiting",
		}),
		TranscriptionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mikey_transcription_chunk_duration_seconds",
			Help:    "Wall-clock duration of chunk transcription calls",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),

		BoundarySplices: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mikey_boundary_splices_total",
			Help: "Total number of chunk boundaries spliced by the overlap resolver",
		}),
		SpliceRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mikey_splice_rejections_total",
			Help: "Total number of boundaries left unspliced due to degenerate matches",
		}),

		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mikey_sessions_started_total",
			Help: "Total number of recording sessions started",
		}),
		SessionsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mikey_sessions_completed_total",
			Help: "Total number of recording sessions completed",
		}),
	}
}

// RecordFrame records one captured frame for a stream
func (m *Metrics) RecordFrame(stream string, bytes int) {
	m.FramesCaptured.WithLabelValues(stream).Inc()
	m.BytesCaptured.WithLabelValues(stream).Add(float64(bytes))
}

// RecordFlush records one segment flush for a stream
func (m *Metrics) RecordFlush(stream string) {
	m.SegmentFlushes.WithLabelValues(stream).Inc()
}

// RecordCaptureError records one device read error for a stream
func (m *Metrics) RecordCaptureError(stream string) {
	m.CaptureErrors.WithLabelValues(stream).Inc()
}

// RecordCaptureDone records the total duration of one stream's capture
func (m *Metrics) RecordCaptureDone(stream string, seconds float64) {
	m.CaptureDuration.WithLabelValues(stream).Observe(seconds)
}

// RecordConditioning records one conditioning pass
func (m *Metrics) RecordConditioning(seconds float64) {
	m.BuffersConditioned.Inc()
	m.ConditioningTime.Observe(seconds)
}

// RecordChunkSubmitted increments the submitted chunk counter
func (m *Metrics) RecordChunkSubmitted() {
	m.ChunksSubmitted.Inc()
}

// RecordChunkSuccess records a successful chunk transcription
func (m *Metrics) RecordChunkSuccess(seconds float64) {
	m.ChunksTranscribed.Inc()
	m.TranscriptionDuration.Observe(seconds)
}

// RecordChunkFailure increments the failed chunk counter
func (m *Metrics) RecordChunkFailure() {
	m.ChunkFailures.Inc()
}

// RecordRateLimitWait increments the rate-limit cool-down counter
func (m *Metrics) RecordRateLimitWait() {
	m.RateLimitWaits.Inc()
}

// RecordSplice increments the boundary splice counter
func (m *Metrics) RecordSplice() {
	m.BoundarySplices.Inc()
}

// RecordSpliceRejection increments the rejected splice counter
func (m *Metrics) RecordSpliceRejection() {
	m.SpliceRejections.Inc()
}

// RecordSessionStarted increments the started session counter
func (m *Metrics) RecordSessionStarted() {
	m.SessionsStarted.Inc()
}

// RecordSessionCompleted increments the completed session counter
func (m *Metrics) RecordSessionCompleted() {
	m.SessionsCompleted.Inc()
}
