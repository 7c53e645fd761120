package middleware

import (
	"net/http"
	"time"

	"github.com/dmchat/internal/logger"
)

// RequestLog logs method, path, status and latency of every request.
func RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := wrap(w)
		next.ServeHTTP(rw, r)
		fields := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if sid := r.Header.Get("X-Session-Id"); sid != "" {
			fields = append(fields, "session", logger.MaskSessionID(sid))
		}
		if rw.status >= http.StatusInternalServerError {
			logger.Errorw("http request", fields...)
			return
		}
		logger.Debugw("http request", fields...)
	})
}
