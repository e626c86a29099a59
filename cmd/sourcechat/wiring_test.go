package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/sourcechat/internal/app/chat"
	"github.com/PabloGalante/sourcechat/internal/config"
)

func TestBuildAppLocal(t *testing.T) {
	t.Setenv("SOURCECHAT_MOCK_SUGGESTION", "handbook")
	c, err := config.Load("")
	require.NoError(t, err)

	a, err := buildApp(context.Background(), c)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	out, err := a.svc.StartSession(context.Background(), chat.StartSessionInput{UserID: demoUser, AgentID: demoAgent})
	require.NoError(t, err)
	sess := out.Session
	assert.Len(t, sess.Sources(), 3)

	reply, err := sess.Send(context.Background(), "how many open deals @sales")
	require.NoError(t, err)
	assert.Contains(t, reply.Content, "@sales")
	assert.Nil(t, reply.Pending)

	reply, err = sess.Send(context.Background(), "vacation days?")
	require.NoError(t, err)
	require.NotNil(t, reply.Pending)
	assert.Equal(t, "handbook", reply.Pending.SuggestedLabel)
	assert.Equal(t, 5, reply.Pending.SecondsRemaining)
}

func TestRootHasSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["chat"])
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("verbose"))
}
