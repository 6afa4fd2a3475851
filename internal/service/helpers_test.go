package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tomgandolfo2/ESLworksheets/internal/database"
	"github.com/tomgandolfo2/ESLworksheets/internal/models"
	"github.com/tomgandolfo2/ESLworksheets/internal/repository"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Initialize(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.RunMigrations(context.Background()))
	return db
}

func seedUser(t *testing.T, db *database.DB, id, role string) *models.Identity {
	t.Helper()
	now := time.Now().UTC()
	user := &models.User{
		ID:            id,
		Email:         id + "@example.com",
		Name:          "User " + id,
		Role:          role,
		OAuthProvider: "google",
		OAuthSubject:  "sub-" + id,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, repository.NewUserRepository(db).Create(context.Background(), user))
	return IdentityFor(user)
}

func seedWorksheet(t *testing.T, db *database.DB, id, title string, level models.Level, skill models.Skill) {
	t.Helper()
	require.NoError(t, repository.NewWorksheetRepository(db).Create(context.Background(), &models.Worksheet{
		ID:        id,
		Title:     title,
		FileURL:   fmt.Sprintf("https://files.example.com/%s.pdf", id),
		Level:     level,
		Skill:     skill,
		CreatedAt: time.Now().UTC(),
	}))
}

// stepClock returns a clock that advances by one minute on every call
func stepClock(start time.Time) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * time.Minute)
		n++
		return t
	}
}

func intPtr(n int) *int { return &n }
