package chat

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PabloGalante/sourcechat/internal/domain"
	"github.com/PabloGalante/sourcechat/internal/observability"
)

// Service keeps the live chat sessions. Sessions are in-memory only; the
// document database is read for sources and profiles and written for ratings.
type Service struct {
	backend  domain.AnswerBackend
	sources  domain.SourceStore
	profiles domain.ProfileStore
	ratings  domain.RatingStore

	clock            Clock
	now              func() time.Time
	countdownSeconds int
	modelProvider    string

	mu       sync.RWMutex
	sessions map[domain.SessionID]*Session
}

type Option func(*Service)

// WithClock replaces the clock driving confirmation countdowns.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithCountdown sets the confirmation countdown length in seconds.
func WithCountdown(seconds int) Option {
	return func(s *Service) {
		if seconds > 0 {
			s.countdownSeconds = seconds
		}
	}
}

// WithModelProvider sets the model_provider sent to the backend.
func WithModelProvider(p string) Option {
	return func(s *Service) { s.modelProvider = p }
}

func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(
	backend domain.AnswerBackend,
	sources domain.SourceStore,
	profiles domain.ProfileStore,
	ratings domain.RatingStore,
	opts ...Option,
) *Service {
	s := &Service{
		backend:          backend,
		sources:          sources,
		profiles:         profiles,
		ratings:          ratings,
		clock:            RealClock(),
		now:              time.Now,
		countdownSeconds: DefaultCountdownSeconds,
		sessions:         make(map[domain.SessionID]*Session),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type StartSessionInput struct {
	UserID  domain.UserID
	AgentID domain.AgentID
}

type StartSessionOutput struct {
	Session *Session
}

// StartSession opens a chat with an agent and snapshots its sources.
func (s *Service) StartSession(ctx context.Context, in StartSessionInput) (*StartSessionOutput, error) {
	log := observability.LoggerFromContext(ctx).With(
		zap.String("user_id", string(in.UserID)),
		zap.String("agent_id", string(in.AgentID)),
	)
	log.Info("starting chat session")

	sources, err := s.loadSources(ctx, in.AgentID)
	if err != nil {
		log.Error("failed to load sources", zap.Error(err))
		return nil, err
	}

	sess := newSession(sessionParams{
		id:               domain.SessionID(uuid.NewString()),
		userID:           in.UserID,
		agentID:          in.AgentID,
		sources:          sources,
		backend:          s.backend,
		profiles:         s.profiles,
		clock:            s.clock,
		now:              s.now,
		countdownSeconds: s.countdownSeconds,
		modelProvider:    s.modelProvider,
	})

	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()

	log.Info("chat session started",
		zap.String("session_id", string(sess.ID())),
		zap.Int("sources", len(sources)))

	return &StartSessionOutput{Session: sess}, nil
}

// Session returns a live session.
func (s *Service) Session(id domain.SessionID) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	return sess, nil
}

// Sessions lists live sessions of a user, newest first.
func (s *Service) Sessions(userID domain.UserID) []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Session
	for _, sess := range s.sessions {
		if sess.UserID() == userID {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt().After(out[j].CreatedAt())
	})
	return out
}

// EndSession closes a session, stopping its countdowns.
func (s *Service) EndSession(ctx context.Context, id domain.SessionID) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	sess.Close()

	observability.LoggerFromContext(ctx).Info("chat session ended", zap.String("session_id", string(id)))
	return nil
}

// Shutdown closes every session.
func (s *Service) Shutdown() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[domain.SessionID]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
}

// SwitchAgent points a session at another agent and takes a new source snapshot.
func (s *Service) SwitchAgent(ctx context.Context, id domain.SessionID, agentID domain.AgentID) (*Session, error) {
	sess, err := s.Session(id)
	if err != nil {
		return nil, err
	}

	sources, err := s.loadSources(ctx, agentID)
	if err != nil {
		return nil, err
	}
	sess.SwitchAgent(agentID, sources)

	observability.LoggerFromContext(ctx).Info("agent switched",
		zap.String("session_id", string(id)),
		zap.String("agent_id", string(agentID)),
		zap.Int("sources", len(sources)))
	return sess, nil
}

func (s *Service) loadSources(ctx context.Context, agentID domain.AgentID) ([]domain.Source, error) {
	if agentID == "" || s.sources == nil {
		return nil, nil
	}
	sources, err := s.sources.ListSources(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("loading sources for agent %s: %w", agentID, err)
	}
	return sources, nil
}

type RateMessageInput struct {
	SessionID domain.SessionID
	MessageID domain.MessageID
	Value     domain.RatingValue
	Comment   string
}

// RateMessage stores feedback on a final assistant answer.
func (s *Service) RateMessage(ctx context.Context, in RateMessageInput) (*domain.Rating, error) {
	if s.ratings == nil {
		return nil, fmt.Errorf("ratings are not configured")
	}

	sess, err := s.Session(in.SessionID)
	if err != nil {
		return nil, err
	}

	msgs := sess.Messages()
	idx := -1
	for i, m := range msgs {
		if m.ID == in.MessageID {
			idx = i
			break
		}
	}
	if idx < 0 || msgs[idx].Role != domain.RoleAssistant {
		return nil, domain.ErrUnknownMessage
	}
	if !msgs[idx].IsFinal() {
		return nil, domain.ErrBusy
	}

	var question string
	for i := idx - 1; i >= 0; i-- {
		if msgs[i].Role == domain.RoleUser {
			question = msgs[i].Content
			break
		}
	}

	rating := &domain.Rating{
		SessionID: sess.ID(),
		MessageID: in.MessageID,
		UserID:    sess.UserID(),
		AgentID:   sess.AgentID(),
		Value:     in.Value,
		Comment:   in.Comment,
		Question:  question,
		Answer:    msgs[idx].Content,
		CreatedAt: s.now(),
	}
	rating.ID = rating.Key()

	if err := s.ratings.SaveRating(ctx, rating); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to save rating", zap.Error(err))
		return nil, fmt.Errorf("saving rating: %w", err)
	}
	return rating, nil
}
