package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nimbus-api/internal/config"
	"nimbus-api/internal/debug"
	"nimbus-api/internal/nimbus"
	"nimbus-api/internal/openai"
)

type fakeUpstream struct {
	payload nimbus.Request
	result  interface{}
	err     error
}

func (f *fakeUpstream) Send(ctx context.Context, payload nimbus.Request, logger *debug.Logger) (interface{}, error) {
	f.payload = payload
	return f.result, f.err
}

func testHandler(up *fakeUpstream) *Handler {
	cfg := &config.Config{
		UpstreamModel:    "nimbus-coder-v1",
		DefaultModel:     "gpt-3.5-turbo",
		StreamChunkSize:  500,
		WorkingDirectory: "/srv/work",
	}
	return &Handler{cfg: cfg, client: up}
}

func postChat(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleChatCompletions(rec, req)
	return rec
}

func TestChatCompletionNonStreaming(t *testing.T) {
	up := &fakeUpstream{result: map[string]interface{}{
		"message": map[string]interface{}{"content": "HELLO"},
	}}
	h := testHandler(up)

	rec := postChat(t, h, `{"model":"my-model","messages":[{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d want=200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type=%q", ct)
	}

	var got openai.ChatCompletion
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Object != "chat.completion" {
		t.Fatalf("object=%q", got.Object)
	}
	if got.Model != "my-model" {
		t.Fatalf("model=%q want=my-model", got.Model)
	}
	if got.Choices[0].Message.Content != "HELLO" {
		t.Fatalf("content=%q want=HELLO", got.Choices[0].Message.Content)
	}

	if up.payload.Parameters.Stream {
		t.Fatalf("upstream stream must be false")
	}
	if up.payload.UserTask != "hi" {
		t.Fatalf("user_task=%q want=hi", up.payload.UserTask)
	}
}

func TestChatCompletionStreaming(t *testing.T) {
	text := strings.Repeat("chunked content ", 80)
	up := &fakeUpstream{result: map[string]interface{}{"content": text}}
	h := testHandler(up)

	rec := postChat(t, h, `{"model":"m","stream":true,"messages":[{"role":"user","content":"go"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d want=200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type=%q want=text/event-stream", ct)
	}
	if rec.Header().Get("X-Accel-Buffering") != "no" {
		t.Fatalf("X-Accel-Buffering missing")
	}

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n\n")
	if len(lines) < 3 {
		t.Fatalf("too few events: %d", len(lines))
	}
	last := strings.TrimPrefix(lines[len(lines)-1], "data: ")
	if last != openai.DoneSentinel {
		t.Fatalf("last event=%q want=%q", last, openai.DoneSentinel)
	}

	var b strings.Builder
	for _, line := range lines[:len(lines)-1] {
		data := strings.TrimPrefix(line, "data: ")
		var chunk openai.ChatCompletionChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			t.Fatalf("decode chunk %q: %v", data, err)
		}
		b.WriteString(chunk.Choices[0].Delta.Content)
	}
	if b.String() != text {
		t.Fatalf("stream does not reconstruct the text")
	}

	// upstream still called without streaming
	if up.payload.Parameters.Stream {
		t.Fatalf("upstream stream must remain false for stream:true callers")
	}
}

func TestChatCompletionUpstreamError(t *testing.T) {
	up := &fakeUpstream{err: &nimbus.UpstreamError{
		Status: http.StatusUnauthorized,
		Body:   map[string]interface{}{"message": "bad key"},
	}}
	h := testHandler(up)

	rec := postChat(t, h, `{"messages":[{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d want=401", rec.Code)
	}
	var env openai.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Error.Type != openai.ErrTypeAuthentication {
		t.Fatalf("type=%q want=%q", env.Error.Type, openai.ErrTypeAuthentication)
	}
	if env.Error.Message != "bad key" {
		t.Fatalf("message=%q want=bad key", env.Error.Message)
	}
	if env.Error.Code == nil || *env.Error.Code != "401" {
		t.Fatalf("code=%v want=401", env.Error.Code)
	}
}

func TestChatCompletionNetworkError(t *testing.T) {
	up := &fakeUpstream{err: &nimbus.UpstreamError{Err: context.DeadlineExceeded}}
	h := testHandler(up)

	rec := postChat(t, h, `{"messages":[]}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d want=500", rec.Code)
	}
	var env openai.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Error.Type != openai.ErrTypeAPI {
		t.Fatalf("type=%q want=%q", env.Error.Type, openai.ErrTypeAPI)
	}
}

func TestChatCompletionInvalidBody(t *testing.T) {
	h := testHandler(&fakeUpstream{})
	rec := postChat(t, h, `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d want=400", rec.Code)
	}
	var env openai.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Error.Type != openai.ErrTypeInvalidRequest {
		t.Fatalf("type=%q", env.Error.Type)
	}
}

func TestChatCompletionMissingMessages(t *testing.T) {
	up := &fakeUpstream{result: "ok"}
	h := testHandler(up)
	rec := postChat(t, h, `{"model":"m"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d want=200 (missing messages is tolerated)", rec.Code)
	}
	if up.payload.UserTask != "" {
		t.Fatalf("user_task=%q want empty", up.payload.UserTask)
	}
}

func TestChatCompletionMethodNotAllowed(t *testing.T) {
	h := testHandler(&fakeUpstream{})
	req := httptest.NewRequest(http.MethodGet, "/v1/chat/completions", nil)
	rec := httptest.NewRecorder()
	h.HandleChatCompletions(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d want=405", rec.Code)
	}
}

func TestHandleModels(t *testing.T) {
	h := testHandler(&fakeUpstream{})
	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	rec := httptest.NewRecorder()
	h.HandleModels(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d want=200", rec.Code)
	}
	var list modelList
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Object != "list" || len(list.Data) != 1 {
		t.Fatalf("list=%+v", list)
	}
	if list.Data[0].ID != "gpt-3.5-turbo" || list.Data[0].OwnedBy != "nimbus" {
		t.Fatalf("model=%+v", list.Data[0])
	}
}

func TestHandleNotFound(t *testing.T) {
	h := testHandler(&fakeUpstream{})
	req := httptest.NewRequest(http.MethodGet, "/v2/does-not-exist", nil)
	rec := httptest.NewRecorder()
	h.HandleNotFound(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d want=404", rec.Code)
	}
	var env openai.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Error.Code == nil || *env.Error.Code != "not_found" {
		t.Fatalf("code=%v want=not_found", env.Error.Code)
	}
	if !strings.Contains(env.Error.Message, "/v2/does-not-exist") {
		t.Fatalf("message=%q should name the path", env.Error.Message)
	}
}

func TestChatCompletionUsesConfiguredDefaultModel(t *testing.T) {
	up := &fakeUpstream{result: map[string]interface{}{"content": "hi"}}
	h := testHandler(up)
	h.cfg.DefaultModel = "nimbus-pro"

	rec := postChat(t, h, `{"messages":[{"role":"user","content":"hi"}]}`)
	var got openai.ChatCompletion
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Model != "nimbus-pro" {
		t.Fatalf("model=%q want=nimbus-pro", got.Model)
	}

	rec = postChat(t, h, `{"stream":true,"messages":[{"role":"user","content":"hi"}]}`)
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n\n")
	var chunk openai.ChatCompletionChunk
	if err := json.Unmarshal([]byte(strings.TrimPrefix(lines[0], "data: ")), &chunk); err != nil {
		t.Fatalf("decode chunk: %v", err)
	}
	if chunk.Model != "nimbus-pro" {
		t.Fatalf("chunk model=%q want=nimbus-pro", chunk.Model)
	}
}

func TestChatCompletionPassThroughEnvelope(t *testing.T) {
	up := &fakeUpstream{result: map[string]interface{}{
		"object": "chat.completion",
		"id":     "upstream-id",
		"choices": []interface{}{
			map[string]interface{}{
				"index":   float64(0),
				"message": map[string]interface{}{"role": "assistant", "content": "verbatim"},
			},
		},
	}}
	h := testHandler(up)

	rec := postChat(t, h, `{"messages":[{"role":"user","content":"hi"}]}`)
	var m map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m["id"] != "upstream-id" {
		t.Fatalf("id=%v want=upstream-id (pass-through)", m["id"])
	}
}
