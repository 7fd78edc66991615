// Package model wraps LLM inference backends used to build mystery datasets.
// RemoteModel talks to OpenAI-compatible endpoints with retries and a sentinel
// fallback, LocalModel drives a locally served model, and both memoize
// responses through the cache package.
package model

import (
	"context"
	"errors"
)

var (
	ErrInvalidConfig     = errors.New("invalid model configuration")
	ErrUnsupportedEngine = errors.New("unsupported engine")
	ErrUnknownEndpoint   = errors.New("unknown api endpoint")
	ErrEmptyResponse     = errors.New("model returned no choices")
)

// SentinelMarker separates the prompt from the last error in a sentinel
// response text.
const SentinelMarker = " API Error - "

// Model is an inference backend.
type Model interface {
	// Inference runs prompt and returns the response. Implementations may
	// return a sentinel Response (APIError set) instead of an error when
	// transient failures exhaust their retries.
	Inference(ctx context.Context, prompt string, opts ...Option) (*Response, error)

	// Name returns the engine or model identifier.
	Name() string
}

// Response is the normalized result of one inference call.
type Response struct {
	// Text is the first choice.
	Text string `json:"text"`
	// Choices holds every returned sample, Text included.
	Choices          []string `json:"choices,omitempty"`
	Model            string   `json:"model,omitempty"`
	PromptTokens     int64    `json:"prompt_tokens,omitempty"`
	CompletionTokens int64    `json:"completion_tokens,omitempty"`
	// APIError marks a sentinel payload produced after retry exhaustion.
	APIError bool   `json:"api_error,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Empty reports whether r carries no usable data. Empty responses are cached
// with the short no-data expiry.
func (r *Response) Empty() bool {
	return r == nil || r.APIError || (r.Text == "" && len(r.Choices) == 0)
}

func sentinelResponse(prompt string, lastErr error) *Response {
	msg := "no attempts made"
	if lastErr != nil {
		msg = lastErr.Error()
	}
	return &Response{
		Text:     prompt + SentinelMarker + msg,
		APIError: true,
		Error:    msg,
	}
}
