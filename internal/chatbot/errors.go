package chatbot

import (
	"errors"
	"fmt"
)

// ErrUnavailable is returned by operations that need an LLM when none is configured.
var ErrUnavailable = errors.New("chatbot is unavailable: no LLM provider configured")

// ProviderError wraps a failed LLM call.
type ProviderError struct {
	Message string
	Cause   error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("chatbot provider error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("chatbot provider error: %s", e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}
