package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/birdie/pkg/metrics"
)

// MetricsMiddleware records request count, latency and error class per route.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		status := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, float64(time.Since(start).Milliseconds()))

		if class, severity, failed := classifyStatus(rec.status); failed {
			metrics.RecordErrorByEndpoint(endpoint, r.Method, class)
			metrics.RecordErrorByType(class, severity)
		}
	}
}

// classifyStatus maps a response status onto the error classes used by
// writeFailure. Backpressure is expected under load and stays low severity.
func classifyStatus(status int) (class, severity string, failed bool) {
	switch {
	case status < http.StatusBadRequest:
		return "", "", false
	case status == http.StatusTooManyRequests:
		return "backpressure", "low", true
	case status == http.StatusNotFound:
		return "not_found", "low", true
	case status == http.StatusUnprocessableEntity:
		return "invalid_catalog", "medium", true
	case status == http.StatusServiceUnavailable:
		return "unavailable", "high", true
	case status == http.StatusGatewayTimeout:
		return "timeout", "high", true
	case status >= http.StatusInternalServerError:
		return "server_error", "high", true
	default:
		return "client_error", "medium", true
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}
