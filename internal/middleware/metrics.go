package middleware

import (
	"net/http"

	"bot-dashboard/internal/metrics"
)

// Metrics counts served responses by status code.
func Metrics(collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r)
			collector.RecordHTTPStatus(wrapped.status)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rec *statusRecorder) WriteHeader(statusCode int) {
	if !rec.wroteHeader {
		rec.status = statusCode
		rec.wroteHeader = true
	}
	rec.ResponseWriter.WriteHeader(statusCode)
}
