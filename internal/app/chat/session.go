package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PabloGalante/sourcechat/internal/app/mention"
	"github.com/PabloGalante/sourcechat/internal/domain"
	"github.com/PabloGalante/sourcechat/internal/observability"
)

const (
	DefaultCountdownSeconds = 5

	msgNotSignedIn      = "You need to be signed in to ask a question."
	msgUnexpected       = "Unexpected response from server."
	msgNoAnswerProvided = "No answer provided."
)

// Session is one chat with an agent. It owns the message list, the source
// snapshot and one countdown timer per pending confirmation.
// All state changes go through mu; network calls never run under it.
type Session struct {
	id      domain.SessionID
	userID  domain.UserID
	backend domain.AnswerBackend
	profile domain.ProfileStore
	clock   Clock
	now     func() time.Time

	countdownSeconds int
	modelProvider    string

	// ctx is cancelled by Close and bounds auto-confirm calls.
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	agentID   domain.AgentID
	sources   []domain.Source
	messages  []domain.Message
	awaiting  bool
	closed    bool
	timers    map[domain.MessageID]*countdownTimer
	observers map[int]func(domain.Message)
	nextObs   int
	lastID    int64
	createdAt time.Time
}

type countdownTimer struct {
	ticker Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *countdownTimer) stop() {
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
	})
}

type sessionParams struct {
	id               domain.SessionID
	userID           domain.UserID
	agentID          domain.AgentID
	sources          []domain.Source
	backend          domain.AnswerBackend
	profiles         domain.ProfileStore
	clock            Clock
	now              func() time.Time
	countdownSeconds int
	modelProvider    string
}

func newSession(p sessionParams) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	if p.countdownSeconds <= 0 {
		p.countdownSeconds = DefaultCountdownSeconds
	}
	if p.clock == nil {
		p.clock = RealClock()
	}
	if p.now == nil {
		p.now = time.Now
	}
	return &Session{
		id:               p.id,
		userID:           p.userID,
		agentID:          p.agentID,
		sources:          append([]domain.Source(nil), p.sources...),
		backend:          p.backend,
		profile:          p.profiles,
		clock:            p.clock,
		now:              p.now,
		countdownSeconds: p.countdownSeconds,
		modelProvider:    p.modelProvider,
		ctx:              ctx,
		cancel:           cancel,
		timers:           make(map[domain.MessageID]*countdownTimer),
		observers:        make(map[int]func(domain.Message)),
		createdAt:        p.now(),
	}
}

func (s *Session) ID() domain.SessionID { return s.id }

func (s *Session) UserID() domain.UserID { return s.userID }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

func (s *Session) AgentID() domain.AgentID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agentID
}

// Messages returns a copy of the message list in append order.
func (s *Session) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = m.Clone()
	}
	return out
}

// Message returns a copy of one message.
func (s *Session) Message(id domain.MessageID) (domain.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.find(id)
	if m == nil {
		return domain.Message{}, false
	}
	return m.Clone(), true
}

// Sources returns the snapshot taken when the session started or the agent changed.
func (s *Session) Sources() []domain.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Source(nil), s.sources...)
}

// Awaiting is true while an ask call is in flight.
func (s *Session) Awaiting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awaiting
}

// Subscribe registers fn to be called with every appended or changed message.
// fn runs outside the session lock; the returned func unsubscribes.
func (s *Session) Subscribe(fn func(domain.Message)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// SwitchAgent replaces the agent and its source snapshot. Pending messages keep
// the agent they were asked against.
func (s *Session) SwitchAgent(agentID domain.AgentID, sources []domain.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.agentID = agentID
	s.sources = append([]domain.Source(nil), sources...)
}

// Close stops every countdown and drops pending confirmations. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for id := range s.timers {
		s.stopTimer(id)
	}
	for i := range s.messages {
		s.messages[i].Pending = nil
	}
	s.observers = make(map[int]func(domain.Message))
	s.mu.Unlock()

	s.cancel()
}

// ─────────────────────────────────────────────
// Ask cycle
// ─────────────────────────────────────────────

// Send runs one question through the ask endpoint. It appends exactly one user
// message and one assistant message and returns the latter. Failures become the
// assistant message. The only errors are ErrEmptyQuestion, with nothing
// appended, and ErrSessionClosed when the session ends before the reply.
func (s *Session) Send(ctx context.Context, question string) (domain.Message, error) {
	return s.send(ctx, question, false)
}

// TrySend is Send for callers that must not overlap questions: it fails with
// ErrBusy, appending nothing, while another question is awaiting its reply.
func (s *Session) TrySend(ctx context.Context, question string) (domain.Message, error) {
	return s.send(ctx, question, true)
}

func (s *Session) send(ctx context.Context, question string, exclusive bool) (domain.Message, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.Message{}, domain.ErrEmptyQuestion
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.Message{}, domain.ErrSessionClosed
	}
	if exclusive && s.awaiting {
		s.mu.Unlock()
		return domain.Message{}, domain.ErrBusy
	}
	userMsg := s.appendLocked(domain.Message{Role: domain.RoleUser, Content: question})
	s.awaiting = true
	sources := append([]domain.Source(nil), s.sources...)
	agentID := s.agentID
	s.mu.Unlock()

	s.notify(userMsg)

	log := observability.LoggerFromContext(ctx).With(
		zap.String("session_id", string(s.id)),
		zap.String("user_id", string(s.userID)),
		zap.String("agent_id", string(agentID)),
	)

	reply := s.ask(ctx, log, question, agentID, sources)

	s.mu.Lock()
	s.awaiting = false
	if s.closed {
		s.mu.Unlock()
		return domain.Message{}, domain.ErrSessionClosed
	}
	reply = s.appendLocked(reply)
	if reply.Pending != nil {
		s.startTimer(reply.ID)
	}
	s.mu.Unlock()

	s.notify(reply)
	return reply, nil
}

// ask builds the assistant message for one question without touching session state.
func (s *Session) ask(
	ctx context.Context,
	log *zap.Logger,
	question string,
	agentID domain.AgentID,
	sources []domain.Source,
) domain.Message {
	profile, err := s.resolveProfile(ctx)
	if errors.Is(err, domain.ErrNoUser) {
		log.Warn("send without user")
		return errorMessage(msgNotSignedIn)
	}
	if err != nil {
		log.Warn("namespace lookup failed", zap.Error(err))
		return errorMessage(fmt.Sprintf("Error: %v", err))
	}

	nickname, _ := mention.Resolve(question, sources)

	req := domain.AskRequest{
		UserID:        s.userID,
		TeamID:        profile.TeamID,
		Namespace:     profile.Namespace,
		Query:         question,
		AgentID:       agentID,
		Nickname:      nickname,
		RequestID:     uuid.NewString(),
		ModelProvider: s.modelProvider,
	}

	log = log.With(zap.String("backend_request_id", req.RequestID), zap.String("nickname", nickname))
	log.Info("asking backend")

	start := time.Now()
	resp, err := s.backend.Ask(ctx, req)
	if err != nil {
		log.Error("ask failed", zap.Error(err))
		return errorMessage(fmt.Sprintf("Error: %v", err))
	}
	log.Info("ask completed", zap.Int64("elapsed_ms", time.Since(start).Milliseconds()))

	return classify(resp, req, s.countdownSeconds)
}

func (s *Session) resolveProfile(ctx context.Context) (*domain.Profile, error) {
	if s.userID == "" {
		return nil, domain.ErrNoUser
	}
	if s.profile == nil {
		return nil, domain.ErrNoNamespace
	}
	p, err := s.profile.GetProfile(ctx, s.userID)
	if err != nil {
		return nil, fmt.Errorf("resolving namespace: %w", err)
	}
	if p == nil || p.Namespace == "" {
		return nil, domain.ErrNoNamespace
	}
	return p, nil
}

// classify maps an ask response to one of: direct answer, confirmation requested,
// or the unexpected-response message.
func classify(resp *domain.AnswerResponse, req domain.AskRequest, seconds int) domain.Message {
	if resp == nil {
		return errorMessage(msgUnexpected)
	}

	if text := resp.AnswerText(); text != "" {
		return answerMessage(resp, text)
	}

	if resp.Failed() {
		return errorMessage("Error: " + resp.FailureReason())
	}

	if resp.NeedsConfirmation() {
		return domain.Message{
			Role:    domain.RoleAssistant,
			Content: pendingContent(resp.ChosenNickname),
			Pending: &domain.PendingConfirmation{
				SuggestedLabel:   resp.ChosenNickname,
				SecondsRemaining: seconds,
				State:            domain.CountdownRunning,
				Query:            req.Query,
				Namespace:        req.Namespace,
				AgentID:          req.AgentID,
				UserID:           req.UserID,
				TeamID:           req.TeamID,
			},
		}
	}

	return errorMessage(msgUnexpected)
}

func answerMessage(resp *domain.AnswerResponse, text string) domain.Message {
	return domain.Message{
		Role:     domain.RoleAssistant,
		Content:  text,
		SQL:      resp.SQL,
		Table:    resp.Table,
		Metadata: resp.ParsedMetadata(),
	}
}

func errorMessage(text string) domain.Message {
	return domain.Message{Role: domain.RoleAssistant, Content: text, Failed: true}
}

func pendingContent(label string) string {
	return fmt.Sprintf("I'll answer using @%s. Select this message to pick a different source.", label)
}

// ─────────────────────────────────────────────
// Confirmation
// ─────────────────────────────────────────────

// CancelCountdown stops the countdown of a pending message. Calling it again,
// or on a message whose countdown is already stopped by the user, is a no-op.
func (s *Session) CancelCountdown(id domain.MessageID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.find(id)
	if m == nil {
		return domain.ErrUnknownMessage
	}
	if m.Pending == nil {
		return domain.ErrNotPending
	}

	switch m.Pending.State {
	case domain.CountdownRunning:
		s.stopTimer(id)
		m.Pending.State = domain.CountdownCancelledByUser
	case domain.CountdownCancelledByUser:
		// already stopped
	case domain.CountdownConfirming:
		return domain.ErrBusy
	}
	return nil
}

// OpenPicker cancels the countdown and returns every known source to choose from.
func (s *Session) OpenPicker(id domain.MessageID) ([]domain.Source, error) {
	if err := s.CancelCountdown(id); err != nil {
		return nil, err
	}
	if m, ok := s.Message(id); ok {
		s.notify(m)
	}
	return s.Sources(), nil
}

// ConfirmSource resolves a pending message with the source the user picked.
// An empty label keeps the backend's suggestion.
func (s *Session) ConfirmSource(ctx context.Context, id domain.MessageID, label string) (domain.Message, error) {
	s.mu.Lock()
	m := s.find(id)
	if m == nil {
		s.mu.Unlock()
		return domain.Message{}, domain.ErrUnknownMessage
	}
	if m.Pending == nil {
		s.mu.Unlock()
		return domain.Message{}, domain.ErrNotPending
	}
	if m.Pending.State == domain.CountdownConfirming {
		s.mu.Unlock()
		return domain.Message{}, domain.ErrBusy
	}
	label = strings.TrimPrefix(strings.TrimSpace(label), "@")
	if label == "" {
		label = m.Pending.SuggestedLabel
	}
	s.stopTimer(id)
	m.Pending.State = domain.CountdownConfirming
	snap := m.Clone()
	s.mu.Unlock()

	s.notify(snap)
	return s.confirm(ctx, id, label, domain.ResolutionConfirmedByUser)
}

// confirm calls the confirm endpoint and writes the final answer. The caller has
// already removed the timer and moved the pending record to Confirming.
func (s *Session) confirm(
	ctx context.Context,
	id domain.MessageID,
	label string,
	resolution domain.Resolution,
) (domain.Message, error) {
	s.mu.Lock()
	m := s.find(id)
	if m == nil || m.Pending == nil {
		s.mu.Unlock()
		return domain.Message{}, domain.ErrSessionClosed
	}
	p := *m.Pending
	s.mu.Unlock()

	req := domain.ConfirmRequest{
		UserID:           p.UserID,
		TeamID:           p.TeamID,
		Namespace:        p.Namespace,
		Query:            p.Query,
		Nickname:         label,
		AgentID:          p.AgentID,
		RequestID:        uuid.NewString(),
		SourceSuggestion: label,
		ModelProvider:    s.modelProvider,
	}

	log := observability.LoggerFromContext(ctx).With(
		zap.String("session_id", string(s.id)),
		zap.String("message_id", string(id)),
		zap.String("nickname", label),
		zap.String("resolution", string(resolution)),
		zap.String("backend_request_id", req.RequestID),
	)
	log.Info("confirming source")

	var final domain.Message

	resp, err := s.backend.ConfirmSource(ctx, req)
	switch {
	case err != nil:
		log.Error("confirm source failed", zap.Error(err))
		final = errorMessage(fmt.Sprintf("Error: %v", err))
	case resp == nil:
		final = errorMessage(msgNoAnswerProvided)
	case resp.AnswerText() == "" && resp.Failed():
		final = errorMessage("Error: " + resp.FailureReason())
	default:
		final = answerMessage(resp, resp.AnswerText())
		if final.Content == "" {
			final.Content = msgNoAnswerProvided
		}
	}

	s.mu.Lock()
	m = s.find(id)
	if s.closed || m == nil || m.Pending == nil {
		s.mu.Unlock()
		return domain.Message{}, domain.ErrSessionClosed
	}
	m.Content = final.Content
	m.Failed = final.Failed
	m.SQL = final.SQL
	m.Table = final.Table
	m.Metadata = final.Metadata
	m.Pending = nil
	m.Resolution = resolution
	m.ChosenSource = label
	out := m.Clone()
	s.mu.Unlock()

	s.notify(out)
	return out, nil
}

// ─────────────────────────────────────────────
// Countdown timers
// ─────────────────────────────────────────────

// startTimer and stopTimer are the only code touching s.timers. Both need mu held.
func (s *Session) startTimer(id domain.MessageID) {
	if _, ok := s.timers[id]; ok {
		return
	}
	t := &countdownTimer{
		ticker: s.clock.NewTicker(time.Second),
		done:   make(chan struct{}),
	}
	s.timers[id] = t
	go s.runTimer(id, t)
}

func (s *Session) stopTimer(id domain.MessageID) bool {
	t, ok := s.timers[id]
	if !ok {
		return false
	}
	delete(s.timers, id)
	t.stop()
	return true
}

func (s *Session) runTimer(id domain.MessageID, t *countdownTimer) {
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C():
			snap, expired, ok := s.tick(id, t)
			if !ok {
				return
			}
			s.notify(snap)
			if expired {
				_, _ = s.confirm(s.ctx, id, snap.Pending.SuggestedLabel, domain.ResolutionAutoConfirmed)
				return
			}
		}
	}
}

// tick advances one second. ok is false when the timer no longer owns the message.
func (s *Session) tick(id domain.MessageID, t *countdownTimer) (snap domain.Message, expired, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timers[id] != t {
		return domain.Message{}, false, false
	}
	m := s.find(id)
	if m == nil || m.Pending == nil || m.Pending.State != domain.CountdownRunning {
		s.stopTimer(id)
		return domain.Message{}, false, false
	}

	if m.Pending.SecondsRemaining > 0 {
		m.Pending.SecondsRemaining--
	}
	if m.Pending.SecondsRemaining == 0 {
		s.stopTimer(id)
		m.Pending.State = domain.CountdownConfirming
		expired = true
	}
	return m.Clone(), expired, true
}

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

func (s *Session) appendLocked(m domain.Message) domain.Message {
	m.ID = s.nextIDLocked()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	s.messages = append(s.messages, m)
	return m.Clone()
}

// nextIDLocked derives message ids from the clock, bumped to stay unique.
func (s *Session) nextIDLocked() domain.MessageID {
	n := s.now().UnixNano()
	if n <= s.lastID {
		n = s.lastID + 1
	}
	s.lastID = n
	return domain.MessageID(strconv.FormatInt(n, 10))
}

func (s *Session) find(id domain.MessageID) *domain.Message {
	for i := range s.messages {
		if s.messages[i].ID == id {
			return &s.messages[i]
		}
	}
	return nil
}

func (s *Session) notify(m domain.Message) {
	s.mu.Lock()
	fns := make([]func(domain.Message), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(m.Clone())
	}
}
