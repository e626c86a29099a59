package chat_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/PabloGalante/sourcechat/internal/adapters/storage/memory"
	"github.com/PabloGalante/sourcechat/internal/app/chat"
	"github.com/PabloGalante/sourcechat/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// manualClock hands out tickers the test advances one tick at a time.
type manualClock struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

func (c *manualClock) NewTicker(time.Duration) chat.Ticker {
	t := &manualTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
	c.mu.Lock()
	c.tickers = append(c.tickers, t)
	c.mu.Unlock()
	return t
}

func (c *manualClock) last() *manualTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.tickers) == 0 {
		return nil
	}
	return c.tickers[len(c.tickers)-1]
}

type manualTicker struct {
	ch      chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }

func (t *manualTicker) Stop() {
	t.once.Do(func() { close(t.stopped) })
}

// Tick delivers one tick; false means the ticker was stopped.
func (t *manualTicker) Tick() bool {
	select {
	case <-t.stopped:
		return false
	default:
	}
	select {
	case t.ch <- time.Now():
		return true
	case <-t.stopped:
		return false
	}
}

func (t *manualTicker) Stopped() bool {
	select {
	case <-t.stopped:
		return true
	default:
		return false
	}
}

// fakeBackend records requests and answers with the configured funcs.
type fakeBackend struct {
	mu        sync.Mutex
	askFn     func(domain.AskRequest) (*domain.AnswerResponse, error)
	confirmFn func(domain.ConfirmRequest) (*domain.AnswerResponse, error)
	asks      []domain.AskRequest
	confirms  []domain.ConfirmRequest
}

func (f *fakeBackend) Ask(_ context.Context, req domain.AskRequest) (*domain.AnswerResponse, error) {
	f.mu.Lock()
	f.asks = append(f.asks, req)
	fn := f.askFn
	f.mu.Unlock()
	if fn == nil {
		return &domain.AnswerResponse{Answer: "ok"}, nil
	}
	return fn(req)
}

func (f *fakeBackend) ConfirmSource(_ context.Context, req domain.ConfirmRequest) (*domain.AnswerResponse, error) {
	f.mu.Lock()
	f.confirms = append(f.confirms, req)
	fn := f.confirmFn
	f.mu.Unlock()
	if fn == nil {
		return &domain.AnswerResponse{Answer: "final"}, nil
	}
	return fn(req)
}

func (f *fakeBackend) askRequests() []domain.AskRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.AskRequest(nil), f.asks...)
}

func (f *fakeBackend) confirmRequests() []domain.ConfirmRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ConfirmRequest(nil), f.confirms...)
}

func suggest(label string) func(domain.AskRequest) (*domain.AnswerResponse, error) {
	return func(domain.AskRequest) (*domain.AnswerResponse, error) {
		return &domain.AnswerResponse{ChosenNickname: label}, nil
	}
}

type fixture struct {
	svc      *chat.Service
	backend  *fakeBackend
	clock    *manualClock
	sources  *memory.SourceStore
	profiles *memory.ProfileStore
	ratings  *memory.RatingStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		backend:  &fakeBackend{},
		clock:    &manualClock{},
		sources:  memory.NewSourceStore(),
		profiles: memory.NewProfileStore(),
		ratings:  memory.NewRatingStore(),
	}

	f.profiles.PutProfile(domain.Profile{UserID: "u1", TeamID: "t1", Namespace: "ns1"})
	f.sources.PutSources("a1",
		domain.Source{ID: "s1", Nickname: "handbook", Type: domain.SourceDocument},
		domain.Source{ID: "s2", Nickname: "meeting", Type: domain.SourceDocument},
		domain.Source{ID: "s3", Nickname: "meeting notes", Type: domain.SourceDocument},
	)

	f.svc = chat.NewService(f.backend, f.sources, f.profiles, f.ratings,
		chat.WithClock(f.clock),
		chat.WithModelProvider("gemini"),
	)
	t.Cleanup(f.svc.Shutdown)
	return f
}

func (f *fixture) start(t *testing.T, userID domain.UserID) *chat.Session {
	t.Helper()

	out, err := f.svc.StartSession(context.Background(), chat.StartSessionInput{UserID: userID, AgentID: "a1"})
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	return out.Session
}
