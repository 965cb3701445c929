package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Upload results reported on shotbrain_uploads_total.
const (
	resultOK               = "ok"
	resultRejected         = "rejected"
	resultStorageFailure   = "storage_failure"
	resultExtractionFailed = "extraction_failure"
	resultRecordFailure    = "record_failure"
)

// Metrics holds the upload pipeline collectors.
type Metrics struct {
	uploads     *prometheus.CounterVec
	ocrDuration prometheus.Histogram
}

// NewMetrics registers the pipeline collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shotbrain_uploads_total",
				Help: "Uploads processed, by result.",
			},
			[]string{"result"},
		),
		ocrDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "shotbrain_ocr_duration_seconds",
			Help:    "Time spent recognizing text in one image.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
	}

	for _, c := range []prometheus.Collector{m.uploads, m.ocrDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeUpload(result string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(result).Inc()
}

func (m *Metrics) observeOCR(seconds float64) {
	if m == nil {
		return
	}
	m.ocrDuration.Observe(seconds)
}
