package listing

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tomgandolfo2/ESLworksheets/internal/models"
)

type fakeAPI struct {
	mu         sync.Mutex
	catalog    []models.Worksheet
	listErr    error
	queries    []models.ListingQuery
	hold       map[string]chan struct{} // list calls matching holdKey block until closed
	summaries  []models.RatingSummary
	entries    []models.LedgerEntry
	downloads  []string
	ratings    map[string]int
	ledgerErr  error
	ratingsErr error
}

func newFakeAPI(catalog ...models.Worksheet) *fakeAPI {
	return &fakeAPI{
		catalog: catalog,
		hold:    map[string]chan struct{}{},
		ratings: map[string]int{},
	}
}

func (f *fakeAPI) ListWorksheets(ctx context.Context, q models.ListingQuery) (models.WorksheetPage, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	gate := f.hold[holdKey(q.Search, q.Offset)]
	f.mu.Unlock()

	// a slow server that ignores cancellation
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return models.WorksheetPage{}, f.listErr
	}

	var matched []models.Worksheet
	for _, ws := range f.catalog {
		if q.Level != "" && ws.Level != q.Level {
			continue
		}
		if q.Skill != "" && ws.Skill != q.Skill {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(ws.Title), strings.ToLower(q.Search)) {
			continue
		}
		matched = append(matched, ws)
	}

	page := []models.Worksheet{}
	for i := q.Offset; i < len(matched) && i < q.Offset+q.Limit; i++ {
		page = append(page, matched[i])
	}
	return models.WorksheetPage{Worksheets: page, Total: len(matched)}, nil
}

func (f *fakeAPI) RatingSummaries(ctx context.Context) ([]models.RatingSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summaries, f.ratingsErr
}

func (f *fakeAPI) RecordDownload(ctx context.Context, worksheetID string) (*models.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads = append(f.downloads, worksheetID)
	if f.ledgerErr != nil {
		return nil, f.ledgerErr
	}
	return &models.LedgerEntry{WorksheetID: worksheetID, DownloadedAt: time.Now()}, nil
}

func (f *fakeAPI) RecordRating(ctx context.Context, worksheetID string, rating int) (*models.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ledgerErr != nil {
		return nil, f.ledgerErr
	}
	f.ratings[worksheetID] = rating
	r := rating
	return &models.LedgerEntry{WorksheetID: worksheetID, Rating: &r}, nil
}

func (f *fakeAPI) Downloads(ctx context.Context) ([]models.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ledgerErr != nil {
		return nil, f.ledgerErr
	}
	return f.entries, nil
}

func (f *fakeAPI) listCalls() []models.ListingQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ListingQuery(nil), f.queries...)
}

func holdKey(search string, offset int) string {
	return fmt.Sprintf("%s@%d", search, offset)
}

func (f *fakeAPI) holdList(search string, offset int) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.hold[holdKey(search, offset)] = ch
	return ch
}

func (f *fakeAPI) setListErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

var errBoom = errors.New("boom")

type fakeNavigator struct {
	mu     sync.Mutex
	pushes []url.Values
}

func (n *fakeNavigator) Push(values url.Values) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pushes = append(n.pushes, values)
}

func (n *fakeNavigator) all() []url.Values {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]url.Values(nil), n.pushes...)
}

type fakeOpener struct {
	mu     sync.Mutex
	opened []string
}

func (o *fakeOpener) Open(fileURL string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened = append(o.opened, fileURL)
	return nil
}

// fakeScheduler is a manual clock: tasks run only from Advance
type fakeScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	tasks []*fakeTimer
}

type fakeTimer struct {
	s       *fakeScheduler
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{s: s, at: s.now + d, f: f}
	s.tasks = append(s.tasks, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (s *fakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	var due []*fakeTimer
	for _, t := range s.tasks {
		if !t.fired && !t.stopped && t.at <= s.now {
			t.fired = true
			due = append(due, t)
		}
	}
	s.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

func (s *fakeScheduler) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}
