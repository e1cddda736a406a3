// Package metrics is a small Prometheus-compatible registry for the counters
// and timings of a backup run. It renders the text exposition format and can
// serve it over HTTP.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultBuckets are the default histogram buckets (in seconds).
var DefaultBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// Counter is a monotonically increasing counter.
type Counter struct{ val atomic.Int64 }

func (c *Counter) Inc()         { c.val.Add(1) }
func (c *Counter) Add(n int64)  { c.val.Add(n) }
func (c *Counter) Value() int64 { return c.val.Load() }

// Gauge holds a value that can go up and down.
type Gauge struct{ val atomic.Int64 }

func (g *Gauge) Set(n int64)  { g.val.Store(n) }
func (g *Gauge) Value() int64 { return g.val.Load() }

// Histogram tracks the distribution of observed values using fixed buckets.
type Histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64 // per bucket, not cumulative
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *Histogram {
	b := append([]float64(nil), buckets...)
	sort.Float64s(b)
	return &Histogram{buckets: b, counts: make([]uint64, len(b))}
}

// Observe records a value.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sum += v
	h.count++
	for i, b := range h.buckets {
		if v <= b {
			h.counts[i]++
			return
		}
	}
}

// Since observes the seconds elapsed since t.
func (h *Histogram) Since(t time.Time) {
	h.Observe(time.Since(t).Seconds())
}

// Count returns the number of observations.
func (h *Histogram) Count() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func (h *Histogram) snapshot() ([]float64, []uint64, float64, uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c := append([]uint64(nil), h.counts...)
	return h.buckets, c, h.sum, h.count
}

type entry struct {
	name string
	help string
	typ  string
	c    *Counter
	g    *Gauge
	h    *Histogram
}

// Registry holds named metrics in registration order.
type Registry struct {
	mu      sync.Mutex
	byName  map[string]*entry
	entries []*entry
}

// New creates a new Registry.
func New() *Registry {
	return &Registry{byName: make(map[string]*entry)}
}

func (r *Registry) lookup(name, help, typ string, mk func(*entry)) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.byName[name]; ok {
		if e.typ != typ {
			panic(fmt.Sprintf("metrics: %s registered as %s, requested as %s", name, e.typ, typ))
		}
		return e
	}
	e := &entry{name: name, help: help, typ: typ}
	mk(e)
	r.byName[name] = e
	r.entries = append(r.entries, e)
	return e
}

// Counter returns (or creates) a counter.
func (r *Registry) Counter(name, help string) *Counter {
	return r.lookup(name, help, "counter", func(e *entry) { e.c = &Counter{} }).c
}

// Gauge returns (or creates) a gauge.
func (r *Registry) Gauge(name, help string) *Gauge {
	return r.lookup(name, help, "gauge", func(e *entry) { e.g = &Gauge{} }).g
}

// Histogram returns (or creates) a histogram. Nil buckets means DefaultBuckets.
func (r *Registry) Histogram(name, help string, buckets []float64) *Histogram {
	if buckets == nil {
		buckets = DefaultBuckets
	}
	return r.lookup(name, help, "histogram", func(e *entry) { e.h = newHistogram(buckets) }).h
}

// Render returns the Prometheus text exposition format output.
func (r *Registry) Render() string {
	r.mu.Lock()
	entries := append([]*entry(nil), r.entries...)
	r.mu.Unlock()

	var b strings.Builder
	for _, e := range entries {
		if e.help != "" {
			fmt.Fprintf(&b, "# HELP %s %s\n", e.name, e.help)
		}
		fmt.Fprintf(&b, "# TYPE %s %s\n", e.name, e.typ)
		switch e.typ {
		case "counter":
			fmt.Fprintf(&b, "%s %d\n", e.name, e.c.Value())
		case "gauge":
			fmt.Fprintf(&b, "%s %d\n", e.name, e.g.Value())
		case "histogram":
			buckets, counts, sum, count := e.h.snapshot()
			var cumulative uint64
			for i, bk := range buckets {
				cumulative += counts[i]
				fmt.Fprintf(&b, "%s_bucket{le=\"%g\"} %d\n", e.name, bk, cumulative)
			}
			fmt.Fprintf(&b, "%s_bucket{le=\"+Inf\"} %d\n", e.name, count)
			fmt.Fprintf(&b, "%s_sum %g\n", e.name, sum)
			fmt.Fprintf(&b, "%s_count %d\n", e.name, count)
		}
	}
	return b.String()
}

// Handler returns an http.Handler that serves the rendered registry.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.Write([]byte(r.Render()))
	})
}
