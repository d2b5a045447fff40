package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/swastyasetu/internal/domain/model"
)

func testSession(id string, expiresAt time.Time) model.Session {
	return model.Session{
		ID:            id,
		UserID:        "user-" + id,
		Email:         id + "@example.com",
		Role:          model.RoleGovernment,
		ProviderToken: "provider-token-" + id,
		CreatedAt:     expiresAt.Add(-time.Hour),
		ExpiresAt:     expiresAt,
	}
}

func TestSessionRepo_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepo(db, testKey)
	ctx := context.Background()

	want := testSession("s1", time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Create(ctx, want))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestSessionRepo_ProviderTokenEncryptedAtRest(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepo(db, testKey)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testSession("s1", time.Now().Add(time.Hour))))

	var stored string
	err := db.Reader.QueryRowContext(ctx, `SELECT provider_token FROM sessions WHERE id = ?`, "s1").Scan(&stored)
	require.NoError(t, err)
	assert.NotEmpty(t, stored)
	assert.NotContains(t, stored, "provider-token-s1")
}

func TestSessionRepo_NilKeyDropsProviderToken(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepo(db, nil)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testSession("s1", time.Now().Add(time.Hour))))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got.ProviderToken)
}

func TestSessionRepo_GetMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepo(db, testKey)

	got, err := repo.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionRepo_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepo(db, testKey)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testSession("s1", time.Now().Add(time.Hour))))
	require.NoError(t, repo.Delete(ctx, "s1"))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.NoError(t, repo.Delete(ctx, "s1"), "deleting a missing session should not error")
}

func TestSessionRepo_DeleteExpired(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepo(db, testKey)
	ctx := context.Background()
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, testSession("old", now.Add(-time.Minute))))
	require.NoError(t, repo.Create(ctx, testSession("edge", now)))
	require.NoError(t, repo.Create(ctx, testSession("live", now.Add(time.Minute))))

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	live, err := repo.Get(ctx, "live")
	require.NoError(t, err)
	assert.NotNil(t, live)

	old, err := repo.Get(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, old)
}
