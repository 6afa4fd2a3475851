package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomgandolfo2/ESLworksheets/internal/logging"
	"github.com/tomgandolfo2/ESLworksheets/internal/models"
	"github.com/tomgandolfo2/ESLworksheets/internal/repository"
)

type fakeFileStore struct {
	key      string
	body     string
	deleted  []string
	err      error
	afterPut func()
}

func (f *fakeFileStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	b, _ := io.ReadAll(body)
	f.key = key
	f.body = string(b)
	if f.afterPut != nil {
		f.afterPut()
	}
	return "https://cdn.example.com/" + key, nil
}

func (f *fakeFileStore) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func TestCatalogService_ListFilters(t *testing.T) {
	db := newTestDB(t)
	svc := NewCatalogService(repository.NewWorksheetRepository(db), &fakeFileStore{}, logging.Nop())
	ctx := context.Background()

	seedWorksheet(t, db, "w1", "Past simple", models.LevelB1, models.SkillReading)
	seedWorksheet(t, db, "w2", "PAST continuous", models.LevelB1, models.SkillWriting)
	seedWorksheet(t, db, "w3", "The past perfect", models.LevelB2, models.SkillReading)
	seedWorksheet(t, db, "w4", "Future forms", models.LevelB1, models.SkillReading)

	page, err := svc.List(ctx, models.ListingQuery{Level: models.LevelB1, Search: "past"})
	require.NoError(t, err)

	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Worksheets, 2)
	for _, ws := range page.Worksheets {
		assert.Equal(t, models.LevelB1, ws.Level)
		assert.Contains(t, strings.ToLower(ws.Title), "past")
	}
}

func TestCatalogService_Pagination(t *testing.T) {
	db := newTestDB(t)
	svc := NewCatalogService(repository.NewWorksheetRepository(db), &fakeFileStore{}, logging.Nop())
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		seedWorksheet(t, db, fmt.Sprintf("w%02d", i), fmt.Sprintf("Sheet %d", i), models.LevelA1, models.SkillReading)
	}

	first, err := svc.List(ctx, models.ListingQuery{Offset: 0, Limit: 10})
	require.NoError(t, err)
	second, err := svc.List(ctx, models.ListingQuery{Offset: 10, Limit: 10})
	require.NoError(t, err)

	require.Len(t, first.Worksheets, 10)
	require.Len(t, second.Worksheets, 5)
	assert.Equal(t, 15, first.Total)
	assert.Equal(t, "w09", first.Worksheets[9].ID)
	assert.Equal(t, "w10", second.Worksheets[0].ID)

	// default limit
	page, err := svc.List(ctx, models.ListingQuery{})
	require.NoError(t, err)
	assert.Len(t, page.Worksheets, models.DefaultPageSize)
}

func TestCatalogService_ListStoreFailure(t *testing.T) {
	db := newTestDB(t)
	svc := NewCatalogService(repository.NewWorksheetRepository(db), &fakeFileStore{}, logging.Nop())
	require.NoError(t, db.Close())

	page, err := svc.List(context.Background(), models.ListingQuery{})
	assert.ErrorIs(t, err, ErrUpstream)
	assert.NotNil(t, page.Worksheets)
	assert.Empty(t, page.Worksheets)
	assert.Zero(t, page.Total)
}

func validUpload() UploadInput {
	return UploadInput{
		Title:       "Past Simple Quiz",
		Description: "  Ten questions  ",
		Level:       "b1",
		Skill:       "use of english",
		Filename:    "quiz.pdf",
		ContentType: "application/pdf",
		Size:        4,
		File:        strings.NewReader("%PDF"),
	}
}

func TestCatalogService_Upload(t *testing.T) {
	db := newTestDB(t)
	files := &fakeFileStore{}
	worksheets := repository.NewWorksheetRepository(db)
	svc := NewCatalogService(worksheets, files, logging.Nop())
	ctx := context.Background()
	admin := &models.Identity{UserID: "admin-1", Role: models.RoleAdmin}

	ws, err := svc.Upload(ctx, admin, validUpload())
	require.NoError(t, err)

	assert.NotEmpty(t, ws.ID)
	assert.Equal(t, "Past Simple Quiz", ws.Title)
	assert.Equal(t, "Ten questions", ws.Description)
	assert.Equal(t, models.LevelB1, ws.Level)
	assert.Equal(t, models.SkillUseOfEnglish, ws.Skill)
	assert.Regexp(t, `^worksheets/past_simple_quiz-[0-9a-f]{8}\.pdf$`, files.key)
	assert.Equal(t, "https://cdn.example.com/"+files.key, ws.FileURL)
	assert.Equal(t, "%PDF", files.body)

	stored, err := worksheets.GetByID(ctx, ws.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, ws.FileURL, stored.FileURL)
}

func TestCatalogService_UploadErrors(t *testing.T) {
	db := newTestDB(t)
	svc := NewCatalogService(repository.NewWorksheetRepository(db), &fakeFileStore{}, logging.Nop())
	ctx := context.Background()
	admin := &models.Identity{UserID: "admin-1", Role: models.RoleAdmin}
	user := &models.Identity{UserID: "user-1", Role: models.RoleUser}

	tests := []struct {
		name     string
		identity *models.Identity
		mutate   func(*UploadInput)
		want     error
	}{
		{name: "no session", identity: nil, want: ErrAuthenticationRequired},
		{name: "not admin", identity: user, want: ErrAuthorizationDenied},
		{name: "missing title", identity: admin, mutate: func(in *UploadInput) { in.Title = " " }, want: ErrValidation},
		{name: "missing level", identity: admin, mutate: func(in *UploadInput) { in.Level = "" }, want: ErrValidation},
		{name: "bad level", identity: admin, mutate: func(in *UploadInput) { in.Level = "D4" }, want: ErrValidation},
		{name: "missing skill", identity: admin, mutate: func(in *UploadInput) { in.Skill = "" }, want: ErrValidation},
		{name: "bad skill", identity: admin, mutate: func(in *UploadInput) { in.Skill = "grammar" }, want: ErrValidation},
		{name: "missing file", identity: admin, mutate: func(in *UploadInput) { in.File = nil }, want: ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validUpload()
			if tt.mutate != nil {
				tt.mutate(&in)
			}
			_, err := svc.Upload(ctx, tt.identity, in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCatalogService_UploadStorageFailure(t *testing.T) {
	db := newTestDB(t)
	svc := NewCatalogService(repository.NewWorksheetRepository(db), &fakeFileStore{err: errors.New("bucket gone")}, logging.Nop())

	_, err := svc.Upload(context.Background(), &models.Identity{UserID: "a", Role: models.RoleAdmin}, validUpload())
	assert.ErrorIs(t, err, ErrUpstream)

	page, err := svc.List(context.Background(), models.ListingQuery{})
	require.NoError(t, err)
	assert.Zero(t, page.Total, "no worksheet row without a stored file")
}

func TestCatalogService_UploadCreateFailureRemovesFile(t *testing.T) {
	db := newTestDB(t)
	files := &fakeFileStore{}
	files.afterPut = func() { _ = db.Close() }
	svc := NewCatalogService(repository.NewWorksheetRepository(db), files, logging.Nop())

	_, err := svc.Upload(context.Background(), &models.Identity{UserID: "a", Role: models.RoleAdmin}, validUpload())
	assert.ErrorIs(t, err, ErrUpstream)

	require.NotEmpty(t, files.key)
	assert.Equal(t, []string{files.key}, files.deleted)
}
