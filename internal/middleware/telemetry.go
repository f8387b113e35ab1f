package middleware

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type telemetryRecorder struct {
	response http.ResponseWriter
	status   int
}

func (t *telemetryRecorder) Header() http.Header { return t.response.Header() }

func (t *telemetryRecorder) Write(b []byte) (int, error) {
	if t.status == 0 {
		t.status = http.StatusOK
	}
	return t.response.Write(b)
}

func (t *telemetryRecorder) WriteHeader(status int) {
	t.status = status
	t.response.WriteHeader(status)
}

// Hijack lets the websocket upgrade pass through the recorder.
func (t *telemetryRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := t.response.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

func (t *telemetryRecorder) Flush() {
	if flusher, ok := t.response.(http.Flusher); ok {
		flusher.Flush()
	}
}

type latencyWindow struct {
	samples []int64
	index   int
	count   int
}

func (w *latencyWindow) add(value int64, max int) {
	if len(w.samples) < max {
		w.samples = append(w.samples, value)
		w.count = len(w.samples)
		return
	}
	w.samples[w.index] = value
	w.index = (w.index + 1) % max
	w.count = max
}

type latencyAggregator struct {
	mu     sync.Mutex
	window int
	routes map[string]*latencyWindow
}

var aggregator = &latencyAggregator{window: 256, routes: make(map[string]*latencyWindow)}

func (a *latencyAggregator) record(route string, micros int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	w := a.routes[route]
	if w == nil {
		w = &latencyWindow{}
		a.routes[route] = w
	}
	w.add(micros, a.window)
}

// Snapshot returns p50/p95 request latency per route in microseconds.
func Snapshot() map[string]map[string]int64 {
	aggregator.mu.Lock()
	defer aggregator.mu.Unlock()

	out := make(map[string]map[string]int64, len(aggregator.routes))
	for route, w := range aggregator.routes {
		if w.count == 0 {
			continue
		}
		values := make([]int64, w.count)
		copy(values, w.samples[:w.count])
		sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
		out[route] = map[string]int64{
			"p50":   values[percentileIndex(len(values), 50)],
			"p95":   values[percentileIndex(len(values), 95)],
			"count": int64(w.count),
		}
	}
	return out
}

func percentileIndex(n, pct int) int {
	idx := n*pct/100 - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return idx
}

// Telemetry logs each request and feeds the per-route latency window.
func Telemetry(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &telemetryRecorder{response: w}
			next.ServeHTTP(rec, r)

			elapsed := time.Since(start)
			route := r.Method + " " + routePattern(r)
			aggregator.record(route, elapsed.Microseconds())

			logger.Debug("request",
				zap.String("route", route),
				zap.Int("status", rec.status),
				zap.Duration("elapsed", elapsed),
				zap.String("requestId", r.Header.Get("X-Request-Id")))
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
