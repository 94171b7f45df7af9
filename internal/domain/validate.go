package domain

import "encoding/json"

// CompletionProbe is the minimal decode of an inbound completion body used
// for validation. The full body is forwarded upstream untouched, so unknown
// fields never pass through this struct.
type CompletionProbe struct {
	Model    string            `json:"model"`
	Messages []json.RawMessage `json:"messages"`
}

// ValidateCompletion checks the two required fields of a completion request.
// Model is checked first, then messages; the first failing check determines
// the reported message. No other field is validated.
func ValidateCompletion(req CompletionProbe) *PluginError {
	if req.Model == "" {
		return NewPluginError(ErrInvalidRequest, "model is required")
	}
	if len(req.Messages) == 0 {
		return NewPluginError(ErrInvalidRequest, "messages is required")
	}
	return nil
}
