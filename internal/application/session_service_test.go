package application

import (
	"context"
	"testing"

	"marketplace-session-layer/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	events := env.record(t, domain.TopicSessionUpdated)

	record, err := env.sessions.SetSession(ctx, "s1", SessionInput{
		Token:        "tok",
		Email:        " a@example.com ",
		ActiveCartID: "c1",
	})
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", record.Email)

	got, ok := env.sessions.GetSession(ctx, "s1")
	require.True(t, ok)
	assert.Equal(t, record, got)

	require.Len(t, *events, 1)
	assert.Equal(t, "s1", (*events)[0].StoreID)
	assert.Equal(t, "c1", (*events)[0].ActiveCartID)
}

func TestSetSessionRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.sessions.SetSession(context.Background(), "s1", SessionInput{})
	assert.ErrorIs(t, err, domain.ErrInvalidRecord)
	assert.Empty(t, env.sessions.ListSessions(context.Background()))
}

func TestRemoveSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.sessions.SetSession(ctx, "s1", SessionInput{Token: "tok"})
	require.NoError(t, err)
	events := env.record(t, domain.TopicSessionUpdated)

	assert.False(t, env.sessions.RemoveSession(ctx, "s2"))
	assert.True(t, env.sessions.RemoveSession(ctx, "s1"))
	assert.Len(t, *events, 1)
	assert.Empty(t, env.sessions.ListSessions(ctx))
}
