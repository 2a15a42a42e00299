package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feridsherif/crms-frontend/internal/domain"
)

func TestMemorySessionRepository(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := NewMemorySessionRepository()
	repo.Now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "s1", "backend-token", time.Hour))
	token, err := repo.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "backend-token", token)

	_, err = repo.Load(ctx, "missing")
	assert.True(t, domain.IsNotFound(err))

	require.NoError(t, repo.Delete(ctx, "s1"))
	_, err = repo.Load(ctx, "s1")
	assert.True(t, domain.IsNotFound(err))
}

func TestMemorySessionRepositoryExpires(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := NewMemorySessionRepository()
	repo.Now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "s1", "t1", time.Minute))
	now = now.Add(time.Minute)
	_, err := repo.Load(ctx, "s1")
	assert.True(t, domain.IsNotFound(err))

	require.NoError(t, repo.Save(ctx, "s2", "t2", time.Minute))
	assert.Len(t, repo.sessions, 1)
}

func TestRedisSessionRepositoryKeys(t *testing.T) {
	repo, err := NewRedisSessionRepositoryFromURL("redis://localhost:6379/2")
	require.NoError(t, err)
	defer repo.Close()
	assert.Equal(t, "crms:sessions:abc", repo.key("abc"))

	_, err = NewRedisSessionRepositoryFromURL("not a url")
	assert.Error(t, err)
}
