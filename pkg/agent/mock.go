package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/ammons-datalabs/observable-agent-starter/pkg/agent/llm"
)

// MockClient provides a controllable implementation of llm.Client for testing.
type MockClient struct {
	mu            sync.Mutex
	responses     []llm.CompletionResponse
	responseIndex int
	errors        []error
	errorIndex    int
	requests      []llm.CompletionRequest
	model         string
}

// NewMockClient creates a new mock client with predefined responses.
// Errors are consumed before responses, matching call order.
func NewMockClient(responses []llm.CompletionResponse, errors []error) *MockClient {
	return &MockClient{
		responses: responses,
		errors:    errors,
		model:     "mock-model",
	}
}

// NewMockClientWithContent is a shorthand for a mock replying with the given
// text bodies in order.
func NewMockClientWithContent(contents ...string) *MockClient {
	responses := make([]llm.CompletionResponse, len(contents))
	for i, c := range contents {
		responses[i] = llm.CompletionResponse{Content: c}
	}
	return NewMockClient(responses, nil)
}

// Model returns the mock model name.
func (m *MockClient) Model() string {
	return m.model
}

// Complete returns the next predefined response or error and records the request.
func (m *MockClient) Complete(_ context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, in)

	if m.errorIndex < len(m.errors) && m.errors[m.errorIndex] != nil {
		err := m.errors[m.errorIndex]
		m.errorIndex++
		return llm.CompletionResponse{}, err
	}

	if m.responseIndex >= len(m.responses) {
		return llm.CompletionResponse{}, fmt.Errorf("mock client: no more responses")
	}

	resp := m.responses[m.responseIndex]
	m.responseIndex++
	return resp, nil
}

// Requests returns a copy of all requests the mock has seen.
func (m *MockClient) Requests() []llm.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.CompletionRequest, len(m.requests))
	copy(out, m.requests)
	return out
}
