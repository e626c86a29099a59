package firestore_test

import (
	"context"
	"os"
	"testing"
	"time"

	gfirestore "cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/sourcechat/internal/adapters/storage/firestore"
	"github.com/PabloGalante/sourcechat/internal/domain"
)

// These tests need the Firestore emulator (FIRESTORE_EMULATOR_HOST).
func newEmulatorStore(t *testing.T) (*firestore.Store, *gfirestore.Client) {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	client, err := gfirestore.NewClient(context.Background(), "sourcechat-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return firestore.NewStoreFromClient(client), client
}

func TestListSources(t *testing.T) {
	ctx := context.Background()
	store, client := newEmulatorStore(t)
	agentID := "agent-" + uuid.NewString()

	sources := client.Collection("agents").Doc(agentID).Collection("sources")
	_, err := sources.Doc("s1").Set(ctx, map[string]any{"nickname": "handbook", "type": "pdf", "description": "HR"})
	require.NoError(t, err)
	_, err = sources.Doc("s2").Set(ctx, map[string]any{"name": "deals.csv", "type": "table"})
	require.NoError(t, err)

	got, err := store.ListSources(ctx, domain.AgentID(agentID))
	require.NoError(t, err)
	require.Len(t, got, 2)

	byID := map[domain.SourceID]domain.Source{}
	for _, s := range got {
		byID[s.ID] = s
	}
	assert.Equal(t, "handbook", byID["s1"].Label())
	assert.Equal(t, domain.SourceDocument, byID["s1"].Type)
	assert.Equal(t, "deals.csv", byID["s2"].Label())
	assert.Equal(t, domain.SourceTable, byID["s2"].Type)
}

func TestGetProfile(t *testing.T) {
	ctx := context.Background()
	store, client := newEmulatorStore(t)
	userID := "user-" + uuid.NewString()

	_, err := client.Collection("users").Doc(userID).Set(ctx, map[string]any{"team_id": "t1", "namespace": "ns1"})
	require.NoError(t, err)

	p, err := store.GetProfile(ctx, domain.UserID(userID))
	require.NoError(t, err)
	assert.Equal(t, domain.TeamID("t1"), p.TeamID)
	assert.Equal(t, "ns1", p.Namespace)

	_, err = store.GetProfile(ctx, "missing-"+domain.UserID(uuid.NewString()))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSaveAndListRatings(t *testing.T) {
	ctx := context.Background()
	store, _ := newEmulatorStore(t)
	agentID := domain.AgentID("agent-" + uuid.NewString())
	now := time.Now().UTC()

	require.NoError(t, store.SaveRating(ctx, &domain.Rating{
		SessionID: "s", MessageID: "m1", AgentID: agentID, Value: domain.RatingUp, CreatedAt: now,
	}))
	require.NoError(t, store.SaveRating(ctx, &domain.Rating{
		SessionID: "s", MessageID: "m2", AgentID: agentID, Value: domain.RatingDown, CreatedAt: now.Add(time.Second),
	}))

	got, err := store.ListRatingsByAgent(ctx, agentID, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.MessageID("m2"), got[0].MessageID)
	assert.Equal(t, "s_m2", got[0].ID)
}
