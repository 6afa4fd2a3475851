package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tomgandolfo2/ESLworksheets/internal/database"
	"github.com/tomgandolfo2/ESLworksheets/internal/models"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Initialize(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.RunMigrations(context.Background()))
	return db
}

func seedUser(t *testing.T, db database.DBTX, id string) *models.User {
	t.Helper()
	now := time.Now().UTC()
	user := &models.User{
		ID:            id,
		Email:         id + "@example.com",
		Name:          "User " + id,
		Role:          models.RoleUser,
		OAuthProvider: "google",
		OAuthSubject:  "sub-" + id,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user))
	return user
}

func seedWorksheet(t *testing.T, db database.DBTX, id, title string, level models.Level, skill models.Skill) *models.Worksheet {
	t.Helper()
	ws := &models.Worksheet{
		ID:        id,
		Title:     title,
		FileURL:   fmt.Sprintf("https://files.example.com/%s.pdf", id),
		Level:     level,
		Skill:     skill,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, NewWorksheetRepository(db).Create(context.Background(), ws))
	return ws
}
