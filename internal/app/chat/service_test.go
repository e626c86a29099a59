package chat_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/sourcechat/internal/app/chat"
	"github.com/PabloGalante/sourcechat/internal/domain"
)

func TestStartSessionSnapshotsSources(t *testing.T) {
	f := newFixture(t)
	sess := f.start(t, "u1")

	f.sources.PutSources("a1", domain.Source{ID: "s9", Nickname: "late"})

	assert.Len(t, sess.Sources(), 3, "snapshot must not follow store changes")
	assert.Equal(t, domain.AgentID("a1"), sess.AgentID())

	got, err := f.svc.Session(sess.ID())
	require.NoError(t, err)
	assert.Same(t, sess, got)
}

func TestSwitchAgentTakesNewSnapshot(t *testing.T) {
	f := newFixture(t)
	f.sources.PutSources("a2", domain.Source{ID: "w1", Nickname: "wiki"})
	sess := f.start(t, "u1")

	_, err := f.svc.SwitchAgent(context.Background(), sess.ID(), "a2")
	require.NoError(t, err)

	assert.Equal(t, domain.AgentID("a2"), sess.AgentID())
	require.Len(t, sess.Sources(), 1)

	_, err = sess.Send(context.Background(), "ask @wiki")
	require.NoError(t, err)
	asks := f.backend.askRequests()
	require.Len(t, asks, 1)
	assert.Equal(t, "wiki", asks[0].Nickname)
	assert.Equal(t, domain.AgentID("a2"), asks[0].AgentID)
}

func TestEndSession(t *testing.T) {
	f := newFixture(t)
	f.backend.askFn = suggest("handbook")
	sess := f.start(t, "u1")

	_, err := sess.Send(context.Background(), "vacation policy?")
	require.NoError(t, err)
	tk := f.clock.last()

	require.NoError(t, f.svc.EndSession(context.Background(), sess.ID()))
	assert.True(t, tk.Stopped())

	_, err = f.svc.Session(sess.ID())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.svc.EndSession(context.Background(), sess.ID()), domain.ErrNotFound)
}

func TestSessionsByUser(t *testing.T) {
	f := newFixture(t)
	f.start(t, "u1")
	f.start(t, "u1")
	f.start(t, "u3")

	assert.Len(t, f.svc.Sessions("u1"), 2)
	assert.Len(t, f.svc.Sessions("u3"), 1)
	assert.Empty(t, f.svc.Sessions("nobody"))
}

func TestRateMessage(t *testing.T) {
	f := newFixture(t)
	sess := f.start(t, "u1")

	reply, err := sess.Send(context.Background(), "what is PTO?")
	require.NoError(t, err)

	rating, err := f.svc.RateMessage(context.Background(), chat.RateMessageInput{
		SessionID: sess.ID(),
		MessageID: reply.ID,
		Value:     domain.RatingUp,
		Comment:   "useful",
	})
	require.NoError(t, err)
	assert.Equal(t, "what is PTO?", rating.Question)
	assert.Equal(t, "ok", rating.Answer)
	assert.Equal(t, domain.AgentID("a1"), rating.AgentID)
	assert.Equal(t, string(sess.ID())+"_"+string(reply.ID), rating.ID)

	stored, err := f.ratings.ListRatingsByAgent(context.Background(), "a1", 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, domain.RatingUp, stored[0].Value)
	assert.Equal(t, rating.ID, stored[0].ID)
}

func TestRateMessageRejectsUserAndPendingMessages(t *testing.T) {
	f := newFixture(t)
	f.backend.askFn = suggest("handbook")
	sess := f.start(t, "u1")

	reply, err := sess.Send(context.Background(), "vacation policy?")
	require.NoError(t, err)
	msgs := sess.Messages()

	_, err = f.svc.RateMessage(context.Background(), chat.RateMessageInput{
		SessionID: sess.ID(), MessageID: msgs[0].ID, Value: domain.RatingUp,
	})
	assert.ErrorIs(t, err, domain.ErrUnknownMessage)

	_, err = f.svc.RateMessage(context.Background(), chat.RateMessageInput{
		SessionID: sess.ID(), MessageID: reply.ID, Value: domain.RatingDown,
	})
	assert.ErrorIs(t, err, domain.ErrBusy)
}
