package domain

import (
	"context"
	"errors"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrNoUser         = errors.New("no authenticated user")
	ErrNoNamespace    = errors.New("no namespace configured for user")
	ErrEmptyQuestion  = errors.New("question is empty")
	ErrNotPending     = errors.New("message has no pending confirmation")
	ErrBusy           = errors.New("a request is already in progress")
	ErrUnknownMessage = errors.New("unknown message")
	ErrSessionClosed  = errors.New("session closed")
)

// AnswerBackend is the remote RAG service answering questions.
type AnswerBackend interface {
	Ask(ctx context.Context, req AskRequest) (*AnswerResponse, error)
	ConfirmSource(ctx context.Context, req ConfirmRequest) (*AnswerResponse, error)
}

// SourceStore reads the sources attached to an agent.
type SourceStore interface {
	ListSources(ctx context.Context, agentID AgentID) ([]Source, error)
}

// ProfileStore resolves the backend identifiers of a user.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID UserID) (*Profile, error)
}

// RatingStore persists message ratings
type RatingStore interface {
	SaveRating(ctx context.Context, rating *Rating) error
	ListRatingsByAgent(ctx context.Context, agentID AgentID, limit int) ([]*Rating, error)
}
