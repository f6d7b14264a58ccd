package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"nimbus-api/internal/metrics"
	"nimbus-api/internal/openai"
)

// RecoverMiddleware is the catch-all boundary for internal faults. A panic is
// logged with its stack and converted into a classified error envelope; the
// caller never sees a raw stack trace. If the response has already started
// (mid-stream), nothing more can be written and the connection is left to
// close.
func RecoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := NewTracedResponseWriter(w)
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			LogWithTrace(r.Context()).Error("Panic recovered",
				"method", r.Method,
				"path", r.URL.Path,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			env := openai.Classify(http.StatusInternalServerError, nil, "Internal server error")
			metrics.ErrorsTotal.WithLabelValues(env.Error.Type).Inc()
			if wrapped.BytesWritten > 0 {
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(env)
		}()
		next.ServeHTTP(wrapped, r)
	})
}
