package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// value reads the current value of a counter or gauge
func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	if out.Counter != nil {
		return out.GetCounter().GetValue()
	}
	return out.GetGauge().GetValue()
}

func TestRecorder_Training(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.ObserveTraining("5", 200*time.Millisecond, nil)
	r.ObserveTraining("5", time.Second, errors.New("boom"))

	assert.Equal(t, 1.0, value(t, r.trainings.WithLabelValues("5", "ok")))
	assert.Equal(t, 1.0, value(t, r.trainings.WithLabelValues("5", "error")))
}

func TestRecorder_CacheAndQueries(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.CacheHit("model")
	r.CacheHit("model")
	r.CacheMiss("panel")
	r.ObserveQuery(OutcomeOK, 10*time.Millisecond)
	r.ObserveQuery(OutcomeInvalid, time.Millisecond)

	assert.Equal(t, 2.0, value(t, r.cacheLookups.WithLabelValues("model", "hit")))
	assert.Equal(t, 1.0, value(t, r.cacheLookups.WithLabelValues("panel", "miss")))
	assert.Equal(t, 1.0, value(t, r.queries.WithLabelValues(OutcomeInvalid)))
}

func TestRecorder_Panel(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.SetPanel(120, 4, map[string]int{"missing_label": 3})

	assert.Equal(t, 120.0, value(t, r.panelRows))
	assert.Equal(t, 4.0, value(t, r.panelMonths))
	assert.Equal(t, 3.0, value(t, r.panelDrops.WithLabelValues("missing_label")))
}

func TestRecorder_NilSafe(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.CacheHit("model")
		r.ObserveQuery(OutcomeOK, time.Millisecond)
		r.ObserveTraining("5", time.Millisecond, nil)
		r.SetPanel(1, 1, nil)
		r.ObserveHTTP("/health", "GET", 200)
	})
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{101: "1xx", 200: "2xx", 304: "3xx", 400: "4xx", 503: "5xx"}
	for code, want := range tests {
		assert.Equal(t, want, StatusClass(code))
	}
}
