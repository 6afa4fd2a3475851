package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"html/template"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/require"

	"github.com/tomgandolfo2/ESLworksheets/internal/database"
	"github.com/tomgandolfo2/ESLworksheets/internal/logging"
	"github.com/tomgandolfo2/ESLworksheets/internal/models"
	"github.com/tomgandolfo2/ESLworksheets/internal/repository"
	"github.com/tomgandolfo2/ESLworksheets/internal/security"
	"github.com/tomgandolfo2/ESLworksheets/internal/service"
)

const testUploadTemplate = `{{define "upload.tmpl"}}<form method="post" enctype="multipart/form-data">` +
	`<input type="hidden" name="csrf_token" value="{{.CSRFToken}}">` +
	`{{range .Levels}}<option>{{.}}</option>{{end}}</form>{{end}}`

type memoryStore struct {
	files map[string][]byte
}

func (s *memoryStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.files[key] = b
	return "/files/" + key, nil
}

func (s *memoryStore) Delete(ctx context.Context, key string) error {
	delete(s.files, key)
	return nil
}

type recordingSES struct {
	sent []*sesv2.SendEmailInput
	err  error
}

func (f *recordingSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, params)
	return &sesv2.SendEmailOutput{}, nil
}

type testApp struct {
	db       *database.DB
	sessions *security.SessionManager
	csrf     *security.CSRFGenerator
	files    *memoryStore
	ses      *recordingSES
	handler  http.Handler
}

type appOption func(*Routes)

func newTestApp(t *testing.T, opts ...appOption) *testApp {
	t.Helper()

	db, err := database.Initialize(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.RunMigrations(context.Background()))

	keys, err := security.DeriveKeys("test-secret")
	require.NoError(t, err)

	log := logging.Nop()
	app := &testApp{
		db:       db,
		sessions: security.NewSessionManager(keys.Session, time.Hour),
		csrf:     security.NewCSRFGenerator(keys.CSRF),
		files:    &memoryStore{files: map[string][]byte{}},
		ses:      &recordingSES{},
	}

	catalog := service.NewCatalogService(repository.NewWorksheetRepository(db), app.files, log)
	ledger := service.NewLedgerService(db, log)
	auth := service.NewAuthService(db, nil, log)
	email := service.NewEmailServiceWithClient(app.ses, service.EmailConfig{
		FromEmail:    "noreply@example.com",
		ContactEmail: "owner@example.com",
	}, log)
	templates := template.Must(template.New("").Parse(testUploadTemplate))

	routes := Routes{
		Middleware: NewMiddleware(app.sessions, log),
		Worksheets: NewWorksheetHandler(catalog, ledger, log),
		Admin:      NewAdminHandler(catalog, app.csrf, templates, 1<<20, log),
		Contact:    NewContactHandler(email, log),
		Auth:       NewAuthHandler(auth, app.sessions, map[string]OAuthProvider{}, "", log),
	}
	for _, opt := range opts {
		opt(&routes)
	}
	app.handler = NewRouter(routes)
	return app
}

// signIn creates a user with the given role and returns a session token for them
func (a *testApp) signIn(t *testing.T, id, role string) (string, *security.Session) {
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
	require.NoError(t, repository.NewUserRepository(a.db).Create(context.Background(), user))

	token, session, err := a.sessions.Issue(service.IdentityFor(user))
	require.NoError(t, err)
	return token, session
}

func (a *testApp) seedWorksheet(t *testing.T, id, title string, level models.Level, skill models.Skill) {
	t.Helper()
	require.NoError(t, repository.NewWorksheetRepository(a.db).Create(context.Background(), &models.Worksheet{
		ID:        id,
		Title:     title,
		FileURL:   "/files/worksheets/" + id + ".pdf",
		Level:     level,
		Skill:     skill,
		CreatedAt: time.Now().UTC(),
	}))
}

type requestOption func(*http.Request)

func withBearer(token string) requestOption {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func withCookie(token string) requestOption {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: token})
	}
}

func (a *testApp) do(t *testing.T, method, path string, body io.Reader, opts ...requestOption) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) postJSON(t *testing.T, path string, payload any, opts ...requestOption) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	opts = append(opts, func(r *http.Request) { r.Header.Set("Content-Type", "application/json") })
	return a.do(t, http.MethodPost, path, bytes.NewReader(b), opts...)
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
