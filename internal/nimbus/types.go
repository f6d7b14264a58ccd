// Package nimbus builds the Nimbus agent request payload and performs the
// outbound HTTP call. The upstream response is treated as opaque; nothing
// here assumes a response schema.
package nimbus

import "fmt"

// Request is the fixed upstream request schema. Built fresh per inbound
// request and immutable once sent.
type Request struct {
	Model              string      `json:"model"`
	Parameters         Parameters  `json:"parameters"`
	Persona            string      `json:"persona"`
	UserTask           string      `json:"user_task"`
	WorkflowGuidelines []string    `json:"workflow_guidelines"`
	Environment        Environment `json:"environment"`
	Messages           []Message   `json:"messages"`
}

type Parameters struct {
	Temperature   float64  `json:"temperature"`
	MaxTokens     int      `json:"max_tokens"`
	Stream        bool     `json:"stream"`
	StopSequences []string `json:"stop_sequences"`
}

type Environment struct {
	WorkingDirectory string   `json:"working_directory"`
	OpenTabs         []string `json:"open_tabs"`
	VisibleFiles     []string `json:"visible_files"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UpstreamError carries a failed upstream call to the error classifier.
// Status is 0 when the call failed before an HTTP status was received.
type UpstreamError struct {
	Status int
	Body   map[string]interface{}
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream request failed: %v", e.Err)
	}
	return fmt.Sprintf("upstream returned status %d", e.Status)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
