package model

import (
	"context"
	"sync"
)

// MockModel is a deterministic Model for tests. Responses are returned in
// order; once they run out the last one repeats.
type MockModel struct {
	// ModelName is returned by Name.
	ModelName string
	// Responses are returned by successive calls.
	Responses []*Response
	// Error, if set, is returned by every call.
	Error error

	mu         sync.Mutex
	calls      int
	lastPrompt string
	lastOpts   callOptions
}

// NewMockModel creates a mock that answers every call with text.
func NewMockModel(text ...string) *MockModel {
	m := &MockModel{ModelName: "mock"}
	for _, t := range text {
		m.Responses = append(m.Responses, &Response{Text: t, Choices: []string{t}, Model: "mock"})
	}
	return m
}

// NewMockModelWithError creates a mock that always fails with err.
func NewMockModelWithError(err error) *MockModel {
	return &MockModel{ModelName: "mock", Error: err}
}

// Name returns ModelName.
func (m *MockModel) Name() string { return m.ModelName }

func (m *MockModel) Inference(ctx context.Context, prompt string, opts ...Option) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.lastPrompt = prompt
	m.lastOpts = resolveOptions(opts)

	if m.Error != nil {
		return nil, m.Error
	}
	if len(m.Responses) == 0 {
		return &Response{Text: prompt, Choices: []string{prompt}, Model: m.ModelName}, nil
	}

	idx := m.calls - 1
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	return m.Responses[idx], nil
}

// Calls returns how many times Inference ran.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastPrompt returns the most recent prompt.
func (m *MockModel) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPrompt
}

// LastSystemPrompt returns the system prompt of the most recent call.
func (m *MockModel) LastSystemPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastOpts.SystemPrompt
}

// LastSchemaName returns the response schema name of the most recent call.
func (m *MockModel) LastSchemaName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastOpts.Schema == nil {
		return ""
	}
	return m.lastOpts.Schema.Name
}
