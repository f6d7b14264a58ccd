// Package handler implements the OpenAI-compatible HTTP surface.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"nimbus-api/internal/config"
	"nimbus-api/internal/debug"
	"nimbus-api/internal/metrics"
	"nimbus-api/internal/middleware"
	"nimbus-api/internal/nimbus"
	"nimbus-api/internal/openai"
	"nimbus-api/internal/tiktoken"
)

type Handler struct {
	cfg    *config.Config
	client UpstreamClient
}

// UpstreamClient is the opaque outbound call: one payload in, one loosely
// typed response or error out.
type UpstreamClient interface {
	Send(ctx context.Context, payload nimbus.Request, logger *debug.Logger) (interface{}, error)
}

func New(cfg *config.Config) *Handler {
	return &Handler{
		cfg:    cfg,
		client: nimbus.NewClient(cfg),
	}
}

// HandleChatCompletions runs the full pipeline: decode the OpenAI request,
// build the upstream payload, perform the (always non-streaming) upstream
// call, then either wrap the result as a chat.completion or synthesize an
// SSE stream from it, depending on the caller's requested mode.
func (h *Handler) HandleChatCompletions(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, openai.InvalidRequestEnvelope("Method not allowed"))
		return
	}

	var req openai.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, openai.InvalidRequestEnvelope("Invalid request body: "+err.Error()))
		return
	}

	logger := debug.New(h.cfg.DebugEnabled, h.cfg.DebugLogSSE)
	defer logger.Close()
	logger.LogIncomingRequest(req)

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = h.cfg.DefaultModel
	}

	log := middleware.LogWithTrace(r.Context())
	log.Info("Chat completion request", "model", model, "stream", req.Stream, "messages", len(req.Messages))

	payload := nimbus.BuildPayload(&req, h.cfg)
	metrics.TokensProcessed.WithLabelValues("input").Add(float64(promptTokens(payload)))

	result, err := h.client.Send(r.Context(), payload, logger)
	if err != nil {
		h.writeUpstreamError(w, r, err)
		return
	}

	if req.Stream {
		h.streamCompletion(w, model, result, logger)
	} else {
		h.writeCompletion(w, model, result)
	}

	text := openai.Extract(result)
	metrics.TokensProcessed.WithLabelValues("output").Add(float64(tiktoken.EstimateTextTokens(text)))
	logger.LogSummary(openai.ModelOrDefault(model), req.Stream, len(text), time.Since(startTime))
}

func (h *Handler) writeCompletion(w http.ResponseWriter, model string, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	completion := openai.ToCompletion(result, model)
	if err := json.NewEncoder(w).Encode(completion); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

// streamCompletion synthesizes the event stream for callers that asked for
// stream:true. The upstream call has already completed; chunks are emitted
// and flushed one by one in order, single producer per request.
func (h *Handler) streamCompletion(w http.ResponseWriter, model string, result interface{}, logger *debug.Logger) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, openai.Classify(http.StatusInternalServerError, nil, "Streaming not supported"))
		return
	}

	synth := openai.StreamSynthesizer{ChunkSize: h.cfg.StreamChunkSize}
	synth.Synthesize(openai.Extract(result), model, func(data string) {
		writeSSE(w, data)
		flusher.Flush()
		logger.LogOutputSSE(data)
		metrics.StreamChunksTotal.Inc()
	})
}

func (h *Handler) writeUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	log := middleware.LogWithTrace(r.Context())

	var ue *nimbus.UpstreamError
	if errors.As(err, &ue) {
		log.Error("Upstream request failed", "status", ue.Status, "error", err)
		env := openai.Classify(ue.Status, ue.Body, ue.Error())
		h.writeError(w, httpStatusFor(ue.Status), env)
		return
	}

	log.Error("Upstream request failed", "error", err)
	h.writeError(w, http.StatusInternalServerError, openai.Classify(0, nil, err.Error()))
}

// httpStatusFor echoes the upstream status when one exists, else 500.
func httpStatusFor(upstreamStatus int) int {
	if upstreamStatus >= 400 {
		return upstreamStatus
	}
	return http.StatusInternalServerError
}

func promptTokens(payload nimbus.Request) int {
	total := tiktoken.EstimateTextTokens(payload.Persona)
	for _, m := range payload.Messages {
		total += tiktoken.EstimateTextTokens(m.Content)
	}
	return total
}
