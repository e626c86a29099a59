package memory

import (
	"context"
	"sync"

	"github.com/PabloGalante/sourcechat/internal/domain"
)

// RatingStore is a simple in-memory implementation of domain.RatingStore.
// It is NOT persistent and is only suitable for development / local mode.
type RatingStore struct {
	mu        sync.RWMutex
	ratings   map[string]*domain.Rating
	byAgentID map[domain.AgentID][]string
}

func NewRatingStore() *RatingStore {
	return &RatingStore{
		ratings:   make(map[string]*domain.Rating),
		byAgentID: make(map[domain.AgentID][]string),
	}
}

// SaveRating stores a rating. Rating the same message twice keeps the latest value.
func (s *RatingStore) SaveRating(_ context.Context, rating *domain.Rating) error {
	if rating == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := rating.Key()
	if prev, exists := s.ratings[key]; exists {
		s.byAgentID[prev.AgentID] = removeKey(s.byAgentID[prev.AgentID], key)
	}
	// re-rating moves the message to the newest slot
	s.byAgentID[rating.AgentID] = append(s.byAgentID[rating.AgentID], key)
	s.ratings[key] = rating
	return nil
}

func removeKey(keys []string, key string) []string {
	for i, k := range keys {
		if k == key {
			return append(keys[:i], keys[i+1:]...)
		}
	}
	return keys
}

// ListRatingsByAgent returns the last `limit` ratings of an agent, newest first.
// If limit <= 0, returns all.
func (s *RatingStore) ListRatingsByAgent(_ context.Context, agentID domain.AgentID, limit int) ([]*domain.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := s.byAgentID[agentID]
	if limit <= 0 || limit > len(keys) {
		limit = len(keys)
	}

	out := make([]*domain.Rating, 0, limit)
	for i := len(keys) - 1; i >= len(keys)-limit; i-- {
		if r, ok := s.ratings[keys[i]]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}
