package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chats/internal/models"
)

func openTestPostgres(t *testing.T) *PostgresRepo {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}
	repo, err := NewPostgresRepo(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestPostgresRepoLifecycle(t *testing.T) {
	repo := openTestPostgres(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	username := "pg-" + uuid.NewString()[:8]

	user, created, err := repo.FindOrCreateUser(ctx, username)
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := repo.FindOrCreateUser(ctx, username)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, user.ID, again.ID)

	id := uuid.NewString()
	require.NoError(t, repo.CreateMessage(ctx, &models.Message{
		ID: id, Text: "hello", UserID: user.ID, ExpirationDate: now.Add(time.Minute), CreatedAt: now,
	}))

	msg, err := repo.FindMessageByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, username, msg.Owner.Username)
	assert.True(t, msg.ExpirationDate.Equal(now.Add(time.Minute)))

	found, err := repo.FindUserByUsername(ctx, username, now)
	require.NoError(t, err)
	require.Len(t, found.Messages, 1)

	n, err := repo.SetExpiration(ctx, []string{id}, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	found, err = repo.FindUserByUsername(ctx, username, now.Add(time.Second))
	require.NoError(t, err)
	assert.Empty(t, found.Messages)

	missing, err := repo.FindUserByUsername(ctx, "missing-"+uuid.NewString(), now)
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = repo.PurgeExpired(ctx, now.Add(time.Second))
	require.NoError(t, err)
	msg, err = repo.FindMessageByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, msg)
}
