package backend

import (
	"context"
	"fmt"
	"sync"

	"github.com/PabloGalante/sourcechat/internal/domain"
)

// Mock answers without any network. With a Suggestion set, questions that do
// not mention a source come back asking to confirm that suggestion.
type Mock struct {
	Suggestion string

	mu       sync.Mutex
	record   bool
	asks     []domain.AskRequest
	confirms []domain.ConfirmRequest
}

type MockOption func(*Mock)

// WithRecording keeps every request for Asks and Confirms. Off by default so a
// long running local server does not grow.
func WithRecording() MockOption {
	return func(m *Mock) { m.record = true }
}

func NewMock(suggestion string, opts ...MockOption) *Mock {
	m := &Mock{Suggestion: suggestion}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Mock) Ask(_ context.Context, req domain.AskRequest) (*domain.AnswerResponse, error) {
	m.mu.Lock()
	if m.record {
		m.asks = append(m.asks, req)
	}
	m.mu.Unlock()

	ok := true
	if req.Nickname == "" && m.Suggestion != "" {
		return &domain.AnswerResponse{ChosenNickname: m.Suggestion, Success: &ok}, nil
	}
	return &domain.AnswerResponse{Answer: mockAnswer(req.Query, req.Nickname), Success: &ok}, nil
}

func (m *Mock) ConfirmSource(_ context.Context, req domain.ConfirmRequest) (*domain.AnswerResponse, error) {
	m.mu.Lock()
	if m.record {
		m.confirms = append(m.confirms, req)
	}
	m.mu.Unlock()

	ok := true
	return &domain.AnswerResponse{Answer: mockAnswer(req.Query, req.SourceSuggestion), Success: &ok}, nil
}

// Asks returns the ask requests seen so far.
func (m *Mock) Asks() []domain.AskRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.AskRequest(nil), m.asks...)
}

// Confirms returns the confirm requests seen so far.
func (m *Mock) Confirms() []domain.ConfirmRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ConfirmRequest(nil), m.confirms...)
}

func mockAnswer(query, nickname string) string {
	if nickname == "" {
		return fmt.Sprintf("Mock answer to %q.", query)
	}
	return fmt.Sprintf("Mock answer to %q from @%s.", query, nickname)
}
