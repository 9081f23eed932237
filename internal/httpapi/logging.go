package httpapi

import (
	"net/http"
	"time"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/telemetry"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// websocket upgrades need the raw writer's Hijacker
		if r.URL.Path == "/ws/queue" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		writer := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(writer, r)

		log := telemetry.LoggerFromContext(r.Context())
		event := log.Info()
		if writer.status >= http.StatusInternalServerError {
			event = log.Error()
		} else if writer.status >= http.StatusBadRequest {
			event = log.Warn()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", writer.status).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Str("device_id", r.Header.Get("X-Device-ID")).
			Str("request_id", requestIDFromRequest(r)).
			Msg("request")
	})
}
