package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomgandolfo2/ESLworksheets/internal/models"
)

func TestUserRepository_CreateAndLookup(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	created := seedUser(t, db, "u1")

	byID, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, created.Email, byID.Email)
	assert.Equal(t, models.RoleUser, byID.Role)

	byOAuth, err := repo.GetByOAuth(ctx, "google", "sub-u1")
	require.NoError(t, err)
	require.NotNil(t, byOAuth)
	assert.Equal(t, "u1", byOAuth.ID)

	missing, err := repo.GetByOAuth(ctx, "google", "unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserRepository_UpdateProfile(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, "u1")
	user.Name = "Renamed"
	user.Role = models.RoleAdmin
	user.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.UpdateProfile(ctx, user))

	got, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.True(t, got.IsAdmin())
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "u1")

	now := time.Now().UTC()
	err := NewUserRepository(db).Create(context.Background(), &models.User{
		ID: "u2", Email: "u1@example.com", Role: models.RoleUser,
		OAuthProvider: "google", OAuthSubject: "other", CreatedAt: now, UpdatedAt: now,
	})
	require.Error(t, err)
}
