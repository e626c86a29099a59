package memory

import (
	"context"
	"sync"

	"github.com/PabloGalante/sourcechat/internal/domain"
)

// SourceStore keeps agent sources in memory, for local mode and tests.
type SourceStore struct {
	mu      sync.RWMutex
	byAgent map[domain.AgentID][]domain.Source
}

func NewSourceStore() *SourceStore {
	return &SourceStore{
		byAgent: make(map[domain.AgentID][]domain.Source),
	}
}

// PutSources replaces the sources of an agent.
func (s *SourceStore) PutSources(agentID domain.AgentID, sources ...domain.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byAgent[agentID] = append([]domain.Source(nil), sources...)
}

func (s *SourceStore) ListSources(_ context.Context, agentID domain.AgentID) ([]domain.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.Source(nil), s.byAgent[agentID]...), nil
}
