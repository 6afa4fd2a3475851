package service

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomgandolfo2/ESLworksheets/internal/logging"
	"github.com/tomgandolfo2/ESLworksheets/internal/models"
	"github.com/tomgandolfo2/ESLworksheets/internal/repository"
)

func TestBackup_ExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newTestDB(t)
	identity := seedUser(t, src, "u1", models.RoleUser)
	seedWorksheet(t, src, "w1", "Past simple", models.LevelB1, models.SkillReading)
	seedWorksheet(t, src, "w2", "Animals", models.LevelA1, models.SkillSpeaking)

	ledger := NewLedgerService(src, logging.Nop())
	_, err := ledger.RecordDownload(ctx, identity, "w1")
	require.NoError(t, err)
	_, err = ledger.RecordRating(ctx, identity, "w2", intPtr(4))
	require.NoError(t, err)

	exporter := NewBackupService(src, logging.Nop())
	exporter.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	var buf bytes.Buffer
	require.NoError(t, exporter.Export(ctx, &buf))

	var doc BackupData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "1", doc.Version)
	assert.Equal(t, "sqlite3", doc.DatabaseType)
	assert.Len(t, doc.Users, 1)
	assert.Len(t, doc.Worksheets, 2)
	assert.Len(t, doc.Ledger, 2)

	dst := newTestDB(t)
	stats, err := NewBackupService(dst, logging.Nop()).Import(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, ImportStats{Users: 1, Worksheets: 2, Ledger: 2}, stats)

	page, total, err := repository.NewWorksheetRepository(dst).List(ctx, models.ListingQuery{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "w1", page[0].ID, "insertion order survives the round trip")

	entry, err := repository.NewLedgerRepository(dst).Get(ctx, "u1", "w2")
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.NotNil(t, entry.Rating)
	assert.Equal(t, 4, *entry.Rating)
}

func TestBackup_ImportSkipsExisting(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedUser(t, db, "u1", models.RoleUser)
	seedWorksheet(t, db, "w1", "Past simple", models.LevelB1, models.SkillReading)

	svc := NewBackupService(db, logging.Nop())
	var buf bytes.Buffer
	require.NoError(t, svc.Export(ctx, &buf))

	stats, err := svc.Import(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, ImportStats{}, stats)
}

func TestBackup_ImportRejectsBadInput(t *testing.T) {
	svc := NewBackupService(newTestDB(t), logging.Nop())

	_, err := svc.Import(context.Background(), strings.NewReader("not json"))
	assert.Error(t, err)

	_, err = svc.Import(context.Background(), strings.NewReader(`{"version":"99"}`))
	assert.ErrorContains(t, err, "unsupported backup version")
}

func TestBackup_ImportRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewBackupService(db, logging.Nop())

	// the ledger row names a worksheet that does not exist
	doc := `{"version":"1","users":[{"id":"u1","email":"u1@example.com","name":"U","role":"user",
		"oauth_provider":"google","oauth_subject":"s1"}],
		"ledger":[{"user_id":"u1","worksheet_id":"missing","downloaded_at":"2025-01-01T00:00:00Z"}]}`
	_, err := svc.Import(ctx, strings.NewReader(doc))
	require.Error(t, err)

	user, err := repository.NewUserRepository(db).GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestBackup_Clear(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	identity := seedUser(t, db, "u1", models.RoleUser)
	seedWorksheet(t, db, "w1", "Past simple", models.LevelB1, models.SkillReading)
	_, err := NewLedgerService(db, logging.Nop()).RecordDownload(ctx, identity, "w1")
	require.NoError(t, err)

	require.NoError(t, NewBackupService(db, logging.Nop()).Clear(ctx))

	users, err := repository.NewUserRepository(db).ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
	_, total, err := repository.NewWorksheetRepository(db).List(ctx, models.ListingQuery{Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
}
