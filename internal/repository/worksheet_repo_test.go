package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomgandolfo2/ESLworksheets/internal/database"
	"github.com/tomgandolfo2/ESLworksheets/internal/models"
)

func TestWorksheetRepository_ListFilters(t *testing.T) {
	db := newTestDB(t)
	repo := NewWorksheetRepository(db)
	ctx := context.Background()

	seedWorksheet(t, db, "w1", "Past Simple practice", models.LevelB1, models.SkillReading)
	seedWorksheet(t, db, "w2", "The past continuous", models.LevelB1, models.SkillWriting)
	seedWorksheet(t, db, "w3", "Past perfect", models.LevelB2, models.SkillReading)
	seedWorksheet(t, db, "w4", "Phrasal verbs", models.LevelB1, models.SkillUseOfEnglish)
	seedWorksheet(t, db, "w5", "ÉTÉ vocabulary", models.LevelC1, models.SkillListening)

	tests := []struct {
		name  string
		query models.ListingQuery
		want  []string
	}{
		{name: "no filters", query: models.ListingQuery{}, want: []string{"w1", "w2", "w3", "w4", "w5"}},
		{name: "level", query: models.ListingQuery{Level: models.LevelB1}, want: []string{"w1", "w2", "w4"}},
		{name: "skill", query: models.ListingQuery{Skill: models.SkillReading}, want: []string{"w1", "w3"}},
		{name: "search is case-insensitive", query: models.ListingQuery{Search: "PAST"}, want: []string{"w1", "w2", "w3"}},
		{name: "level and search", query: models.ListingQuery{Level: models.LevelB1, Search: "past"}, want: []string{"w1", "w2"}},
		{name: "all three", query: models.ListingQuery{Level: models.LevelB1, Skill: models.SkillWriting, Search: "past"}, want: []string{"w2"}},
		{name: "search folds accented letters", query: models.ListingQuery{Search: "été"}, want: []string{"w5"}},
		{name: "accented search in upper case", query: models.ListingQuery{Search: "ÉTÉ VOC"}, want: []string{"w5"}},
		{name: "no match", query: models.ListingQuery{Level: models.LevelC2}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := repo.List(ctx, tt.query.WithDefaults())
			require.NoError(t, err)

			ids := []string{}
			for _, ws := range got {
				ids = append(ids, ws.ID)
			}
			assert.Equal(t, tt.want, ids)
			assert.Equal(t, len(tt.want), total)
		})
	}
}

func TestWorksheetRepository_SearchIsLiteral(t *testing.T) {
	db := newTestDB(t)
	repo := NewWorksheetRepository(db)
	ctx := context.Background()

	seedWorksheet(t, db, "w1", "100% grammar", models.LevelA1, models.SkillReading)
	seedWorksheet(t, db, "w2", "1000 words", models.LevelA1, models.SkillReading)
	seedWorksheet(t, db, "w3", "snake_case!", models.LevelA1, models.SkillReading)
	seedWorksheet(t, db, "w4", "snakeXcase", models.LevelA1, models.SkillReading)

	got, total, err := repo.List(ctx, models.ListingQuery{Search: "100%"}.WithDefaults())
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "w1", got[0].ID)

	got, total, err = repo.List(ctx, models.ListingQuery{Search: "e_c"}.WithDefaults())
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "w3", got[0].ID)

	_, total, err = repo.List(ctx, models.ListingQuery{Search: "case!"}.WithDefaults())
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestWorksheetRepository_PaginationIsStable(t *testing.T) {
	db := newTestDB(t)
	repo := NewWorksheetRepository(db)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		seedWorksheet(t, db, fmt.Sprintf("w%02d", i), fmt.Sprintf("Sheet %d", i), models.LevelA2, models.SkillSpeaking)
	}

	first, total, err := repo.List(ctx, models.ListingQuery{Offset: 0, Limit: 10})
	require.NoError(t, err)
	second, total2, err := repo.List(ctx, models.ListingQuery{Offset: 10, Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, 15, total)
	assert.Equal(t, 15, total2)
	require.Len(t, first, 10)
	require.Len(t, second, 5)

	seen := map[string]bool{}
	for i, ws := range append(first, second...) {
		assert.Equal(t, fmt.Sprintf("w%02d", i), ws.ID, "stable insertion order")
		assert.False(t, seen[ws.ID], "duplicate %s", ws.ID)
		seen[ws.ID] = true
	}
}

func TestWorksheetRepository_GetAndExists(t *testing.T) {
	db := newTestDB(t)
	repo := NewWorksheetRepository(db)
	ctx := context.Background()

	created := seedWorksheet(t, db, "w1", "Listening quiz", models.LevelC1, models.SkillListening)

	got, err := repo.GetByID(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.Title, got.Title)
	assert.Equal(t, models.LevelC1, got.Level)
	assert.Equal(t, models.SkillListening, got.Skill)

	missing, err := repo.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	ok, err := repo.Exists(ctx, "w1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWorksheetRepository_DuplicateIDRejected(t *testing.T) {
	db := newTestDB(t)
	seedWorksheet(t, db, "w1", "One", models.LevelA1, models.SkillReading)

	err := NewWorksheetRepository(db).Create(context.Background(), &models.Worksheet{
		ID: "w1", Title: "Two", FileURL: "x", Level: models.LevelA1, Skill: models.SkillReading,
	})
	require.Error(t, err)
}

func TestWorksheetRepository_ListPostgresSQL(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	repo := NewWorksheetRepository(database.New(sqlDB, database.NewPostgresDialect()))

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT COUNT(*) FROM worksheets WHERE level = $1 AND LOWER(title) LIKE LOWER($2) ESCAPE '!'")).
		WithArgs("B1", "%past%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY seq ASC LIMIT $3 OFFSET $4")).
		WithArgs("B1", "%past%", 10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "file_url", "level", "skill", "created_at"}))

	got, total, err := repo.List(context.Background(),
		models.ListingQuery{Level: models.LevelB1, Search: "past"}.WithDefaults())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 0, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWorksheetRepository_ListStoreError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	repo := NewWorksheetRepository(database.New(sqlDB, database.NewSQLiteDialect()))
	mock.ExpectQuery("SELECT COUNT").WillReturnError(errors.New("connection refused"))

	_, _, err = repo.List(context.Background(), models.ListingQuery{}.WithDefaults())
	require.Error(t, err)
}

func TestEscapeLike(t *testing.T) {
	tests := map[string]string{
		"plain": "plain",
		"50%":   "50!%",
		"a_b":   "a!_b",
		"wow!":  "wow!!",
		"!%_":   "!!!%!_",
		"":      "",
	}
	for in, want := range tests {
		if got := escapeLike(in); got != want {
			t.Errorf("escapeLike(%q) = %q, want %q", in, got, want)
		}
	}
}
