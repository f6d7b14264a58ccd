package openai

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"
)

// NewCompletionID builds a completion id from the current timestamp plus a
// random suffix. Effectively unique, not collision-checked.
func NewCompletionID() string {
	return "chatcmpl-" + strconv.FormatInt(time.Now().UnixNano(), 36) + randomHex(6)
}

func randomHex(n int) string {
	if n <= 0 {
		return ""
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

// ToCompletion wraps an upstream payload into a chat.completion envelope.
// Payloads that already carry a compliant envelope are returned untouched so
// upstream fidelity is preserved.
func ToCompletion(payload interface{}, requestedModel string) interface{} {
	if m, ok := payload.(map[string]interface{}); ok {
		if obj, _ := m["object"].(string); obj == "chat.completion" {
			if _, ok := m["choices"].([]interface{}); ok {
				return payload
			}
		}
	}
	return &ChatCompletion{
		ID:      NewCompletionID(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   ModelOrDefault(requestedModel),
		Choices: []Choice{
			{
				Index: 0,
				Message: AssistantMessage{
					Role:    "assistant",
					Content: Extract(payload),
				},
				Logprobs:     nil,
				FinishReason: "stop",
			},
		},
		Usage: usageFrom(payload),
	}
}

// usageFrom copies upstream usage through verbatim when all three counters
// are numeric, else synthesizes zeros. No token counting happens here.
func usageFrom(payload interface{}) Usage {
	m, ok := payload.(map[string]interface{})
	if !ok {
		return Usage{}
	}
	raw, ok := m["usage"].(map[string]interface{})
	if !ok {
		return Usage{}
	}
	prompt, okPrompt := usageNumber(raw["prompt_tokens"])
	completion, okCompletion := usageNumber(raw["completion_tokens"])
	total, okTotal := usageNumber(raw["total_tokens"])
	if !okPrompt || !okCompletion || !okTotal {
		return Usage{}
	}
	return Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      total,
	}
}

func usageNumber(v interface{}) (int, bool) {
	switch x := v.(type) {
	case float64:
		return int(x), true
	case int:
		return x, true
	default:
		return 0, false
	}
}
