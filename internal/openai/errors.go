package openai

import (
	"fmt"
	"strconv"
	"strings"
)

// Error types in the OpenAI error taxonomy.
const (
	ErrTypeInvalidRequest = "invalid_request_error"
	ErrTypeAuthentication = "authentication_error"
	ErrTypePermission     = "permission_error"
	ErrTypeRateLimit      = "rate_limit_exceeded"
	ErrTypeServer         = "server_error"
	ErrTypeAPI            = "api_error"
)

// Classify maps an upstream failure onto the OpenAI error taxonomy. status 0
// means no HTTP status is available (network fault, internal fault); the
// resulting type is then the unclassified default api_error and code is null.
// The same mapping applies whether the failure came from the upstream call or
// from an internal fault with no upstream body.
func Classify(status int, upstreamBody map[string]interface{}, fallbackMessage string) ErrorEnvelope {
	errType := ErrTypeAPI
	switch {
	case status == 400 || status == 404:
		errType = ErrTypeInvalidRequest
	case status == 401:
		errType = ErrTypeAuthentication
	case status == 403:
		errType = ErrTypePermission
	case status == 429:
		errType = ErrTypeRateLimit
	case status >= 500:
		errType = ErrTypeServer
	}

	message := fallbackMessage
	var param, code *string
	if upstreamBody != nil {
		if s, ok := upstreamBody["message"].(string); ok && strings.TrimSpace(s) != "" {
			message = s
		}
		if s, ok := upstreamBody["param"].(string); ok {
			param = &s
		}
		if raw, ok := upstreamBody["code"]; ok && raw != nil {
			s := strings.TrimSpace(fmt.Sprint(raw))
			if s != "" {
				code = &s
			}
		}
	}
	if code == nil && status >= 400 {
		s := strconv.Itoa(status)
		code = &s
	}
	if strings.TrimSpace(message) == "" {
		message = "The upstream request failed."
	}

	return ErrorEnvelope{
		Error: &APIError{
			Message: message,
			Type:    errType,
			Param:   param,
			Code:    code,
		},
	}
}

// NotFoundEnvelope is the body served on unmatched routes.
func NotFoundEnvelope(path string) ErrorEnvelope {
	code := "not_found"
	return ErrorEnvelope{
		Error: &APIError{
			Message: fmt.Sprintf("Unknown request URL: %s", path),
			Type:    ErrTypeInvalidRequest,
			Param:   nil,
			Code:    &code,
		},
	}
}

// InvalidRequestEnvelope wraps a caller-input problem.
func InvalidRequestEnvelope(message string) ErrorEnvelope {
	if strings.TrimSpace(message) == "" {
		message = "Invalid request."
	}
	return ErrorEnvelope{
		Error: &APIError{
			Message: message,
			Type:    ErrTypeInvalidRequest,
			Param:   nil,
			Code:    nil,
		},
	}
}
