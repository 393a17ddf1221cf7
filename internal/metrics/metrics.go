package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the transcription service.
type Metrics struct {
	// HTTP surface
	HTTPRequests *prometheus.CounterVec

	// Upload pipeline
	UploadsReceived prometheus.Counter
	UploadsRejected prometheus.Counter

	// Transcription fan-out
	TranscriptionSuccesses prometheus.Counter
	TranscriptionFailures  *prometheus.CounterVec
	TranscriptionDuration  prometheus.Histogram

	// Archive output
	ArchiveBytes prometheus.Histogram
}

// New creates and registers all metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "transcriber_http_requests_total",
			Help: "HTTP requests handled, by response code",
		}, []string{"code"}),
		UploadsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "transcriber_uploads_received_total",
			Help: "Upload candidates received across all requests",
		}),
		UploadsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "transcriber_uploads_rejected_total",
			Help: "Upload candidates rejected by validation",
		}),
		TranscriptionSuccesses: factory.NewCounter(prometheus.CounterOpts{
			Name: "transcriber_transcriptions_success_total",
			Help: "Files transcribed successfully",
		}),
		TranscriptionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "transcriber_transcriptions_failed_total",
			Help: "Failed transcriptions, by failure class",
		}, []string{"class"}),
		TranscriptionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "transcriber_transcription_duration_seconds",
			Help:    "Wall time of one transcription call",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		ArchiveBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "transcriber_archive_bytes",
			Help:    "Size of assembled archives in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		}),
	}
}
