package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/dmchat/internal/logger"
)

// responseWriter remembers the status so RecoverJSON and RequestLog can see it.
type responseWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (w *responseWriter) WriteHeader(code int) {
	if w.wrote {
		return
	}
	w.status = code
	w.wrote = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func wrap(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}

func writeJSONError(w http.ResponseWriter, status int, msg, kind string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "kind": kind})
}

// RecoverJSON logs a handler panic and answers 500 if nothing was written yet.
func RecoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := wrap(w)
		defer func() {
			if err := recover(); err != nil {
				logger.Errorw("panic recovered", "panic", err, "method", r.Method, "path", r.URL.Path)
				if !rw.wrote {
					writeJSONError(rw, http.StatusInternalServerError, "internal server error", "internal")
				}
			}
		}()
		next.ServeHTTP(rw, r)
	})
}
