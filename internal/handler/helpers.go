package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"nimbus-api/internal/metrics"
	"nimbus-api/internal/openai"
)

func (h *Handler) writeError(w http.ResponseWriter, status int, env openai.ErrorEnvelope) {
	if env.Error != nil {
		metrics.ErrorsTotal.WithLabelValues(env.Error.Type).Inc()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Error("Failed to write error response", "error", err)
	}
}

func writeSSE(w http.ResponseWriter, data string) {
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// HandleNotFound answers unknown routes with the OpenAI error envelope so
// that SDK clients receive a parseable body instead of a plain-text 404.
func (h *Handler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, http.StatusNotFound, openai.NotFoundEnvelope(r.URL.Path))
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
