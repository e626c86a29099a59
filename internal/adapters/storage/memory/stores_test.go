package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/sourcechat/internal/adapters/storage/memory"
	"github.com/PabloGalante/sourcechat/internal/domain"
)

func TestSourceStoreReturnsCopy(t *testing.T) {
	store := memory.NewSourceStore()
	store.PutSources("agent-1", domain.Source{ID: "s1", Nickname: "docs"})

	got, err := store.ListSources(context.Background(), "agent-1")
	require.NoError(t, err)
	require.Len(t, got, 1)

	got[0].Nickname = "changed"
	again, _ := store.ListSources(context.Background(), "agent-1")
	assert.Equal(t, "docs", again[0].Nickname)
}

func TestProfileStoreNotFound(t *testing.T) {
	store := memory.NewProfileStore()

	_, err := store.GetProfile(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRatingStoreKeepsLatestPerMessage(t *testing.T) {
	ctx := context.Background()
	store := memory.NewRatingStore()

	require.NoError(t, store.SaveRating(ctx, &domain.Rating{SessionID: "s", MessageID: "m1", AgentID: "a", Value: domain.RatingUp}))
	require.NoError(t, store.SaveRating(ctx, &domain.Rating{SessionID: "s", MessageID: "m1", AgentID: "a", Value: domain.RatingDown}))
	require.NoError(t, store.SaveRating(ctx, &domain.Rating{SessionID: "s", MessageID: "m2", AgentID: "a", Value: domain.RatingUp}))

	all, err := store.ListRatingsByAgent(ctx, "a", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, domain.MessageID("m2"), all[0].MessageID)
	assert.Equal(t, domain.RatingDown, all[1].Value)

	last, err := store.ListRatingsByAgent(ctx, "a", 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, domain.MessageID("m2"), last[0].MessageID)
}

func TestRatingStoreReRatedMessageComesBackFirst(t *testing.T) {
	ctx := context.Background()
	store := memory.NewRatingStore()
	t0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveRating(ctx, &domain.Rating{SessionID: "s", MessageID: "m1", AgentID: "a", Value: domain.RatingUp, CreatedAt: t0}))
	require.NoError(t, store.SaveRating(ctx, &domain.Rating{SessionID: "s", MessageID: "m2", AgentID: "a", Value: domain.RatingUp, CreatedAt: t0.Add(time.Second)}))
	require.NoError(t, store.SaveRating(ctx, &domain.Rating{SessionID: "s", MessageID: "m1", AgentID: "a", Value: domain.RatingDown, CreatedAt: t0.Add(2 * time.Second)}))

	newest, err := store.ListRatingsByAgent(ctx, "a", 1)
	require.NoError(t, err)
	require.Len(t, newest, 1)
	assert.Equal(t, domain.MessageID("m1"), newest[0].MessageID)
	assert.Equal(t, domain.RatingDown, newest[0].Value)

	all, err := store.ListRatingsByAgent(ctx, "a", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, []domain.MessageID{"m1", "m2"}, []domain.MessageID{all[0].MessageID, all[1].MessageID})
}
