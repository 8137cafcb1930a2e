// Package testutil provides fakes shared by package tests: an llm.Client mock and
// an in-memory store with the same semantics as the PostgreSQL one.
package testutil

import (
	"context"
	"sync"

	"github.com/jonathan/exam-grader/internal/llm"
)

// MockLLMClient implements llm.Client for testing
type MockLLMClient struct {
	GenerateContentFunc    func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	GenerateJSONFunc       func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	TranscribeDocumentFunc func(ctx context.Context, prompt string, data []byte, mimeType string, tier llm.ModelTier) (string, error)
	GetModelFunc           func(tier llm.ModelTier) string
	CloseFunc              func() error

	mu      sync.Mutex
	prompts []string
}

// Prompts returns every prompt received, in call order.
func (m *MockLLMClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

func (m *MockLLMClient) record(prompt string) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
}

func (m *MockLLMClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	m.record(prompt)
	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, prompt, tier)
	}
	return "Mock answer", nil
}

func (m *MockLLMClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	m.record(prompt)
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, prompt, tier)
	}
	return `{"score": 15.5, "feedback": "Mock feedback", "annotations": [{"question": "Q1", "comment": "Mock comment", "points": 5}], "competencies": {"reasoning": 4}}`, nil
}

func (m *MockLLMClient) TranscribeDocument(ctx context.Context, prompt string, data []byte, mimeType string, tier llm.ModelTier) (string, error) {
	m.record(prompt)
	if m.TranscribeDocumentFunc != nil {
		return m.TranscribeDocumentFunc(ctx, prompt, data, mimeType, tier)
	}
	return "Mock transcription of the copy", nil
}

func (m *MockLLMClient) GetModel(tier llm.ModelTier) string {
	if m.GetModelFunc != nil {
		return m.GetModelFunc(tier)
	}
	return "mock-model"
}

func (m *MockLLMClient) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
