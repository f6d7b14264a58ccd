// Package openai implements the OpenAI chat-completion envelope: request
// decoding, payload text extraction, completion mapping, synthetic streaming,
// and the error taxonomy.
package openai

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DefaultModel is echoed in responses when the caller did not request a model.
const DefaultModel = "gpt-3.5-turbo"

type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

type ChatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

// Text flattens the message content to plain text. String content is returned
// as-is; block arrays contribute their text blocks joined by newlines.
func (m ChatMessage) Text() string {
	switch content := m.Content.(type) {
	case string:
		return content
	case []interface{}:
		var parts []string
		for _, block := range content {
			b, ok := block.(map[string]interface{})
			if !ok {
				continue
			}
			if strings.EqualFold(fmt.Sprint(b["type"]), "text") {
				if s, ok := b["text"].(string); ok && strings.TrimSpace(s) != "" {
					parts = append(parts, strings.TrimSpace(s))
				}
			}
		}
		return strings.Join(parts, "\n")
	default:
		return ""
	}
}

type ChatCompletion struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type Choice struct {
	Index        int              `json:"index"`
	Message      AssistantMessage `json:"message"`
	Logprobs     interface{}      `json:"logprobs"`
	FinishReason string           `json:"finish_reason"`
}

type AssistantMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type ChatCompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
}

type ChunkChoice struct {
	Index        int         `json:"index"`
	Delta        Delta       `json:"delta"`
	Logprobs     interface{} `json:"logprobs"`
	FinishReason *string     `json:"finish_reason"`
}

type Delta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

type ErrorEnvelope struct {
	Error *APIError `json:"error"`
}

type APIError struct {
	Message string  `json:"message"`
	Type    string  `json:"type"`
	Param   *string `json:"param"`
	Code    *string `json:"code"`
}

// UnmarshalJSON decodes the request leniently: stream accepts bool/string/0/1
// forms, temperature and max_tokens accept numeric strings. Clients are not
// consistent about these.
func (r *ChatCompletionRequest) UnmarshalJSON(data []byte) error {
	type rawChatRequest struct {
		Model       string        `json:"model"`
		Messages    []ChatMessage `json:"messages"`
		Temperature interface{}   `json:"temperature,omitempty"`
		MaxTokens   interface{}   `json:"max_tokens,omitempty"`
		Stream      interface{}   `json:"stream"`
	}
	var raw rawChatRequest
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	stream, err := parseLooseBool(raw.Stream, "stream")
	if err != nil {
		return err
	}
	temp, err := parseLooseFloat(raw.Temperature, "temperature")
	if err != nil {
		return err
	}
	maxTokens, err := parseLooseInt(raw.MaxTokens, "max_tokens")
	if err != nil {
		return err
	}
	r.Model = raw.Model
	r.Messages = raw.Messages
	r.Temperature = temp
	r.MaxTokens = maxTokens
	r.Stream = stream
	return nil
}

func parseLooseBool(value interface{}, field string) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "0", "false", "no", "off":
			return false, nil
		case "1", "true", "yes", "on":
			return true, nil
		default:
			return false, fmt.Errorf("%s must be a boolean", field)
		}
	case float64:
		if v == 0 {
			return false, nil
		}
		if v == 1 {
			return true, nil
		}
		return false, fmt.Errorf("%s must be a boolean", field)
	default:
		return false, fmt.Errorf("%s must be a boolean", field)
	}
}

func parseLooseFloat(value interface{}, field string) (*float64, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case float64:
		out := v
		return &out, nil
	case string:
		raw := strings.TrimSpace(v)
		if raw == "" {
			return nil, nil
		}
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%s must be a number", field)
		}
		return &n, nil
	default:
		return nil, fmt.Errorf("%s must be a number", field)
	}
}

func parseLooseInt(value interface{}, field string) (*int, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case float64:
		out := int(v)
		return &out, nil
	case string:
		raw := strings.TrimSpace(v)
		if raw == "" {
			return nil, nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be an integer", field)
		}
		return &n, nil
	default:
		return nil, fmt.Errorf("%s must be an integer", field)
	}
}

// ModelOrDefault returns the requested model, falling back to DefaultModel.
func ModelOrDefault(model string) string {
	if strings.TrimSpace(model) == "" {
		return DefaultModel
	}
	return model
}
