package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCapture(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordCapture("scheduled", ResultSuccess, 2*time.Second)
	c.RecordCapture("scheduled", ResultFailure, 0)
	c.RecordCapture("manual", ResultSuccess, time.Second)

	assert.InDelta(t, 1, testutil.ToFloat64(c.captures.WithLabelValues("scheduled", ResultSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.captures.WithLabelValues("scheduled", ResultFailure)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.captures.WithLabelValues("manual", ResultSuccess)), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(c.captureDuration))
}

func TestRecordEvictionsAndRestores(t *testing.T) {
	c := NewCollector(nil)

	c.RecordEvictions(6, 1)
	c.RecordEvictions(1, 0)
	c.RecordRestore(ResultSuccess)

	assert.InDelta(t, 7, testutil.ToFloat64(c.evictions.WithLabelValues(ResultSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.evictions.WithLabelValues(ResultFailure)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.restores.WithLabelValues(ResultSuccess)), 0)
}

func TestNextFireGauge(t *testing.T) {
	c := NewCollector(nil)
	assert.Zero(t, c.nextFireSeconds())

	next := time.Unix(1717232400, 0)
	c.TrackNextFire(func() time.Time { return next })
	assert.InDelta(t, 1717232400, c.nextFireSeconds(), 0.001)

	c.TrackNextFire(func() time.Time { return time.Time{} })
	assert.Zero(t, c.nextFireSeconds())
}

func TestNilCollector(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.RecordCapture("manual", ResultSuccess, time.Second)
		c.RecordEvictions(1, 1)
		c.RecordRestore(ResultFailure)
		c.TrackNextFire(time.Now)
	})
}

func TestHandler(t *testing.T) {
	c := NewCollector(nil)
	c.RecordCapture("manual", ResultSuccess, time.Second)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `agrisale_backup_captures_total{result="success",trigger="manual"} 1`))
	assert.Contains(t, body, "agrisale_backup_next_fire_timestamp_seconds 0")
}
