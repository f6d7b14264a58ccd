package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"nimbus-api/internal/openai"
)

type modelDescriptor struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

type modelList struct {
	Object string            `json:"object"`
	Data   []modelDescriptor `json:"data"`
}

// HandleModels serves the model listing routes. The upstream exposes a single
// fixed agent, so the list carries exactly one descriptor under the default
// alias.
func (h *Handler) HandleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, openai.InvalidRequestEnvelope("Method not allowed"))
		return
	}

	id := h.cfg.DefaultModel
	if id == "" {
		id = openai.DefaultModel
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(modelList{
		Object: "list",
		Data: []modelDescriptor{
			{ID: id, Object: "model", Created: time.Now().Unix(), OwnedBy: "nimbus"},
		},
	})
}
