package openai

import (
	"encoding/json"
	"testing"
)

func TestChatCompletionRequestLooseDecode(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantStream bool
		wantErr    bool
	}{
		{name: "bool stream", raw: `{"stream":true}`, wantStream: true},
		{name: "string stream", raw: `{"stream":"true"}`, wantStream: true},
		{name: "numeric stream", raw: `{"stream":1}`, wantStream: true},
		{name: "string zero", raw: `{"stream":"0"}`, wantStream: false},
		{name: "absent stream", raw: `{}`, wantStream: false},
		{name: "garbage stream", raw: `{"stream":"maybe"}`, wantErr: true},
		{name: "object stream", raw: `{"stream":{}}`, wantErr: true},
	}
	for _, tt := range tests {
		var req ChatCompletionRequest
		err := json.Unmarshal([]byte(tt.raw), &req)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("%s: want error", tt.name)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if req.Stream != tt.wantStream {
			t.Fatalf("%s: stream=%v want=%v", tt.name, req.Stream, tt.wantStream)
		}
	}
}

func TestChatCompletionRequestLooseNumbers(t *testing.T) {
	var req ChatCompletionRequest
	raw := `{"model":"m","temperature":"0.5","max_tokens":"2048"}`
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Temperature == nil || *req.Temperature != 0.5 {
		t.Fatalf("temperature=%v want=0.5", req.Temperature)
	}
	if req.MaxTokens == nil || *req.MaxTokens != 2048 {
		t.Fatalf("max_tokens=%v want=2048", req.MaxTokens)
	}

	var absent ChatCompletionRequest
	if err := json.Unmarshal([]byte(`{"model":"m"}`), &absent); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if absent.Temperature != nil || absent.MaxTokens != nil {
		t.Fatalf("absent fields should stay nil")
	}
}

func TestChatMessageText(t *testing.T) {
	tests := []struct {
		name string
		msg  ChatMessage
		want string
	}{
		{name: "plain string", msg: ChatMessage{Content: "hi"}, want: "hi"},
		{
			name: "text blocks",
			msg: ChatMessage{Content: []interface{}{
				map[string]interface{}{"type": "text", "text": "one"},
				map[string]interface{}{"type": "image_url", "image_url": map[string]interface{}{"url": "x"}},
				map[string]interface{}{"type": "text", "text": "two"},
			}},
			want: "one\ntwo",
		},
		{name: "nil content", msg: ChatMessage{}, want: ""},
		{name: "numeric content", msg: ChatMessage{Content: 42.0}, want: ""},
	}
	for _, tt := range tests {
		if got := tt.msg.Text(); got != tt.want {
			t.Fatalf("%s: Text()=%q want=%q", tt.name, got, tt.want)
		}
	}
}

func TestDeltaOmitsEmptyFields(t *testing.T) {
	raw, err := json.Marshal(Delta{Role: "assistant"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"role":"assistant"}` {
		t.Fatalf("delta=%s want role only", raw)
	}
}
