package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistration(t *testing.T) {
	collectors := []prometheus.Collector{
		GamesCreated,
		GamesActive,
		GamesFinished,
		Operations,
		StoreErrors,
		ArchiveErrors,
		HTTPRequests,
		HTTPDuration,
	}
	for _, c := range collectors {
		desc := make(chan *prometheus.Desc, 1)
		c.Describe(desc)
		close(desc)
		require.NotNil(t, <-desc)
	}
}

func TestCounterVecs(t *testing.T) {
	tests := []struct {
		name   string
		metric *prometheus.CounterVec
		labels prometheus.Labels
	}{
		{"operations", Operations, prometheus.Labels{"operation": "join", "result": "ok"}},
		{"finished", GamesFinished, prometheus.Labels{"status": "CHECKMATE"}},
		{"store errors", StoreErrors, prometheus.Labels{"operation": "save"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.metric.Reset()
			tt.metric.With(tt.labels).Inc()
			tt.metric.With(tt.labels).Inc()
			assert.Equal(t, float64(2), testutil.ToFloat64(tt.metric.With(tt.labels)))
		})
	}
}
