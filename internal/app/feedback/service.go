package feedback

import (
	"context"
	"fmt"

	"github.com/PabloGalante/sourcechat/internal/domain"
)

const (
	defaultLimit = 20
	maxLimit     = 200
)

// Service holds the logic of reading answer ratings
type Service struct {
	store domain.RatingStore
}

// NewService creates a feedback service from a RatingStore
func NewService(store domain.RatingStore) *Service {
	return &Service{
		store: store,
	}
}

// Summary counts the ratings of one listing.
type Summary struct {
	Up   int `json:"up"`
	Down int `json:"down"`
}

// AgentRatings returns the last `limit` ratings for an agent, newest first.
// If limit <= 0, a reasonable default value is used.
func (s *Service) AgentRatings(
	ctx context.Context,
	agentID domain.AgentID,
	limit int,
) ([]*domain.Rating, Summary, error) {

	if s.store == nil {
		return []*domain.Rating{}, Summary{}, nil
	}

	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	ratings, err := s.store.ListRatingsByAgent(ctx, agentID, limit)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("listing ratings for agent %s: %w", agentID, err)
	}

	var sum Summary
	for _, r := range ratings {
		switch r.Value {
		case domain.RatingUp:
			sum.Up++
		case domain.RatingDown:
			sum.Down++
		}
	}
	if ratings == nil {
		ratings = []*domain.Rating{}
	}
	return ratings, sum, nil
}
