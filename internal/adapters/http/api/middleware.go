package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/sprof/pkg/metrics"
)

// MetricsMiddleware wraps HTTP handlers to record Prometheus metrics per
// endpoint, method and status code.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		ms := float64(time.Since(start).Microseconds()) / 1000
		status := strconv.Itoa(sw.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, ms)
		if sw.status >= http.StatusBadRequest {
			metrics.RecordErrorByComponent("http", errorType(sw.status))
		}
	}
}

func errorType(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "server_error"
	case status == http.StatusTooManyRequests:
		return "backpressure"
	case status == http.StatusNotFound:
		return "not_found"
	default:
		return "client_error"
	}
}

// statusWriter captures the status code written by a handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}
