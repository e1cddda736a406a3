package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounter(t *testing.T) {
	r := New()
	c := r.Counter("posts_total", "Posts")
	c.Inc()
	c.Add(4)
	assert.Equal(t, int64(5), c.Value())
	assert.Same(t, c, r.Counter("posts_total", ""), "same name returns same counter")
}

func TestGauge(t *testing.T) {
	g := New().Gauge("last_run", "")
	g.Set(42)
	assert.Equal(t, int64(42), g.Value())
}

func TestHistogramCumulativeRender(t *testing.T) {
	r := New()
	h := r.Histogram("req_seconds", "Request time", []float64{1, 0.1, 0.5})
	for _, v := range []float64{0.05, 0.3, 0.8, 2.0} {
		h.Observe(v)
	}
	require.Equal(t, uint64(4), h.Count())

	out := r.Render()
	assert.Contains(t, out, "# TYPE req_seconds histogram\n")
	assert.Contains(t, out, `req_seconds_bucket{le="0.1"} 1`)
	assert.Contains(t, out, `req_seconds_bucket{le="0.5"} 2`)
	assert.Contains(t, out, `req_seconds_bucket{le="1"} 3`)
	assert.Contains(t, out, `req_seconds_bucket{le="+Inf"} 4`)
	assert.Contains(t, out, "req_seconds_count 4\n")
}

func TestRenderKeepsRegistrationOrder(t *testing.T) {
	r := New()
	r.Counter("b_total", "B").Inc()
	r.Counter("a_total", "A")

	out := r.Render()
	assert.Less(t, strings.Index(out, "b_total"), strings.Index(out, "a_total"))
	assert.Contains(t, out, "# HELP b_total B\n")
	assert.Contains(t, out, "b_total 1\n")
}

func TestTypeMismatchPanics(t *testing.T) {
	r := New()
	r.Counter("x", "")
	assert.Panics(t, func() { r.Gauge("x", "") })
}

func TestHandler(t *testing.T) {
	r := New()
	r.Counter("served_total", "").Add(3)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "served_total 3")
}
