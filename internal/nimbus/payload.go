package nimbus

import (
	"strings"

	"nimbus-api/internal/config"
	"nimbus-api/internal/openai"
)

// BuildPayload transforms an inbound OpenAI-shaped request into the fixed
// upstream schema. Pure transform: the only ambient input is the working
// directory carried by cfg. Streaming toward the caller is synthesized
// locally, so parameters.stream is always false regardless of what the
// caller asked for.
func BuildPayload(req *openai.ChatCompletionRequest, cfg *config.Config) Request {
	temperature := float64(defaultTemperature)
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := defaultMaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	messages := make([]Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, Message{
			Role:    normalizeRole(m.Role),
			Content: m.Text(),
		})
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = cfg.UpstreamModel
	}

	return Request{
		Model: model,
		Parameters: Parameters{
			Temperature:   temperature,
			MaxTokens:     maxTokens,
			Stream:        false,
			StopSequences: StopSequences,
		},
		Persona:            Persona,
		UserTask:           lastUserText(req.Messages),
		WorkflowGuidelines: WorkflowGuidelines,
		Environment: Environment{
			WorkingDirectory: cfg.WorkingDirectory,
			OpenTabs:         []string{},
			VisibleFiles:     []string{},
		},
		Messages: messages,
	}
}

func normalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "system":
		return "system"
	case "assistant":
		return "assistant"
	default:
		return "user"
	}
}

// lastUserText returns the text of the most recent user message. An empty
// or missing messages list yields "" rather than an error; downstream
// degrades gracefully.
func lastUserText(messages []openai.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if normalizeRole(messages[i].Role) != "user" {
			continue
		}
		if text := strings.TrimSpace(messages[i].Text()); text != "" {
			return text
		}
	}
	return ""
}
