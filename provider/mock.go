package provider

import (
	"context"
	"sync"
)

const defaultMockResponse = "I don't have enough information to answer that."

// MockProvider implements Provider for testing. It cycles through
// scripted responses, or returns a scripted error.
type MockProvider struct {
	mu        sync.Mutex
	responses []string
	idx       int

	// Err, when set, is returned by every Chat call.
	Err error
}

// NewMockProvider creates a MockProvider that cycles through responses.
func NewMockProvider(responses ...string) *MockProvider {
	return &MockProvider{responses: responses}
}

// Name returns the provider identifier.
func (m *MockProvider) Name() string { return "mock" }

// Chat returns the next scripted response.
func (m *MockProvider) Chat(_ context.Context, _ []Message) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.responses) == 0 {
		return &Response{Content: defaultMockResponse, Model: "mock"}, nil
	}
	resp := m.responses[m.idx%len(m.responses)]
	m.idx++
	return &Response{Content: resp, Model: "mock"}, nil
}
