// Package listing holds the client side of the worksheet browser: a state
// machine that turns user events into catalog and ledger calls and keeps the
// accumulated listing consistent while requests overlap.
package listing

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/tomgandolfo2/ESLworksheets/internal/logging"
	"github.com/tomgandolfo2/ESLworksheets/internal/models"
)

// DefaultDebounce is how long search text must stay unchanged before it is applied
const DefaultDebounce = 300 * time.Millisecond

// ErrNotSignedIn is returned for actions that need a signed-in user
var ErrNotSignedIn = errors.New("you must be signed in")

// API is the server surface the controller talks to
type API interface {
	ListWorksheets(ctx context.Context, q models.ListingQuery) (models.WorksheetPage, error)
	RatingSummaries(ctx context.Context) ([]models.RatingSummary, error)
	RecordDownload(ctx context.Context, worksheetID string) (*models.LedgerEntry, error)
	RecordRating(ctx context.Context, worksheetID string, rating int) (*models.LedgerEntry, error)
	Downloads(ctx context.Context) ([]models.LedgerEntry, error)
}

// Navigator keeps the shareable URL in sync with the applied filters
type Navigator interface {
	Push(values url.Values)
}

// Opener hands a worksheet file to the user
type Opener interface {
	Open(fileURL string) error
}

// NoticeKind classifies a transient user-facing message
type NoticeKind string

const (
	NoticeInfo    NoticeKind = "info"
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is a transient message for the user
type Notice struct {
	Kind NoticeKind
	Text string
}

// State is everything the listing view renders
type State struct {
	Applied Filters
	Pending Filters

	Page    int
	Items   []models.Worksheet
	Loading bool
	HasMore bool
	Error   bool

	Ratings map[string]models.RatingSummary

	Downloads        []models.LedgerEntry
	PendingRatings   map[string]int
	DisplayedRatings map[string]int

	Authenticated bool
	Notice        *Notice
}

// Config wires a Controller. API is required; the rest have defaults.
type Config struct {
	API           API
	Navigator     Navigator
	Opener        Opener
	Scheduler     Scheduler
	Log           logging.Logger
	Authenticated bool
	PageSize      int
	Debounce      time.Duration

	// OnChange, if set, receives a snapshot after every state change.
	// It is called without the controller lock held.
	OnChange func(State)
}

// Controller is the listing state machine. Its methods are the events; each
// returns immediately and network work continues on goroutines.
type Controller struct {
	api       API
	nav       Navigator
	opener    Opener
	scheduler Scheduler
	log       logging.Logger
	pageSize  int
	debounce  time.Duration
	onChange  func(State)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	state       State
	generation  uint64
	fetchCancel context.CancelFunc
	searchTimer Timer
	searchSeq   uint64
}

// New creates a controller. Nothing is fetched until the first event.
func New(cfg Config) *Controller {
	if cfg.Scheduler == nil {
		cfg.Scheduler = RealScheduler()
	}
	if cfg.Log == nil {
		cfg.Log = logging.Nop()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = models.DefaultPageSize
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		api:       cfg.API,
		nav:       cfg.Navigator,
		opener:    cfg.Opener,
		scheduler: cfg.Scheduler,
		log:       cfg.Log,
		pageSize:  cfg.PageSize,
		debounce:  cfg.Debounce,
		onChange:  cfg.OnChange,
		ctx:       ctx,
		cancel:    cancel,
		state: State{
			Page:             1,
			HasMore:          true,
			Ratings:          map[string]models.RatingSummary{},
			PendingRatings:   map[string]int{},
			DisplayedRatings: map[string]int{},
			Authenticated:    cfg.Authenticated,
		},
	}
}

// Close cancels in-flight requests and pending timers, then waits for goroutines
func (c *Controller) Close() {
	c.mu.Lock()
	c.stopSearchTimerLocked()
	c.cancel()
	c.mu.Unlock()

	c.wg.Wait()
}

// Wait blocks until every request started so far has settled
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	s := c.state
	s.Items = append([]models.Worksheet(nil), c.state.Items...)
	s.Downloads = append([]models.LedgerEntry(nil), c.state.Downloads...)
	s.Ratings = make(map[string]models.RatingSummary, len(c.state.Ratings))
	for k, v := range c.state.Ratings {
		s.Ratings[k] = v
	}
	s.PendingRatings = copyInts(c.state.PendingRatings)
	s.DisplayedRatings = copyInts(c.state.DisplayedRatings)
	if c.state.Notice != nil {
		n := *c.state.Notice
		s.Notice = &n
	}
	return s
}

func copyInts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// update applies fn under the lock and then reports the new state
func (c *Controller) update(fn func(s *State)) {
	c.mu.Lock()
	fn(&c.state)
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(snap)
}

func (c *Controller) emit(s State) {
	if c.onChange != nil {
		c.onChange(s)
	}
}

// SetAuthenticated records whether a user is signed in
func (c *Controller) SetAuthenticated(ok bool) {
	c.update(func(s *State) { s.Authenticated = ok })
}

// URLChanged adopts the filters carried by the URL (navigation, back/forward)
// and reloads the first page.
func (c *Controller) URLChanged(values url.Values) {
	f := FiltersFromValues(values)

	c.mu.Lock()
	c.stopSearchTimerLocked()
	c.state.Applied = f
	c.state.Pending = f
	c.resetLocked()
}

// SetPendingLevel edits the pending level without applying it
func (c *Controller) SetPendingLevel(level models.Level) {
	c.update(func(s *State) { s.Pending.Level = level })
}

// SetPendingSkill edits the pending skill without applying it
func (c *Controller) SetPendingSkill(skill models.Skill) {
	c.update(func(s *State) { s.Pending.Skill = skill })
}

// EditSearch updates the pending search text at once and applies the filters
// once the text has been left alone for the debounce interval. Each edit
// cancels the previously scheduled application.
func (c *Controller) EditSearch(text string) {
	c.mu.Lock()
	c.state.Pending.Search = text
	c.stopSearchTimerLocked()
	c.searchSeq++
	seq := c.searchSeq
	c.searchTimer = c.scheduler.AfterFunc(c.debounce, func() {
		c.mu.Lock()
		if seq != c.searchSeq || c.ctx.Err() != nil {
			// superseded by a later edit or an explicit apply
			c.mu.Unlock()
			return
		}
		c.searchTimer = nil
		c.applyLocked()
	})
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(snap)
}

func (c *Controller) stopSearchTimerLocked() {
	c.searchSeq++
	if c.searchTimer != nil {
		c.searchTimer.Stop()
		c.searchTimer = nil
	}
}

// ApplyFilters copies the pending filters into the applied ones, pushes them
// to the URL and reloads the first page.
func (c *Controller) ApplyFilters() {
	c.mu.Lock()
	c.stopSearchTimerLocked()
	c.applyLocked()
}

// applyLocked must be called with c.mu held; it releases it.
func (c *Controller) applyLocked() {
	c.state.Applied = c.state.Pending
	if c.nav != nil {
		c.nav.Push(c.state.Applied.Values())
	}
	c.resetLocked()
}

// RemoveFilter clears one filter from both the applied and pending filters,
// pushes the URL and reloads the first page.
func (c *Controller) RemoveFilter(kind FilterKind) {
	c.mu.Lock()
	if kind == FilterSearch {
		c.stopSearchTimerLocked()
	}
	c.state.Applied = c.state.Applied.Without(kind)
	c.state.Pending = c.state.Pending.Without(kind)
	if c.nav != nil {
		c.nav.Push(c.state.Applied.Values())
	}
	c.resetLocked()
}

// resetLocked starts a new generation: the in-flight fetch is cancelled and
// page 1 is requested. Must be called with c.mu held; it releases it.
func (c *Controller) resetLocked() {
	c.generation++
	if c.fetchCancel != nil {
		c.fetchCancel()
	}
	c.state.Page = 1
	c.startFetchLocked(1)

	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(snap)
}

// NearBottom asks for the next page. It is ignored while a fetch is in flight
// or once the last page has been seen.
func (c *Controller) NearBottom() {
	c.mu.Lock()
	if c.state.Loading || !c.state.HasMore {
		c.mu.Unlock()
		return
	}
	c.startFetchLocked(c.state.Page + 1)

	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(snap)
}

func (c *Controller) startFetchLocked(page int) {
	ctx, cancel := context.WithCancel(c.ctx)
	c.fetchCancel = cancel
	gen := c.generation
	q := c.state.Applied.query(page, c.pageSize)

	c.state.Loading = true
	c.state.Error = false

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()

		result, err := c.api.ListWorksheets(ctx, q)
		c.finishFetch(gen, page, result, err)
	}()
}

// finishFetch applies a fetch result unless a newer generation has started or
// the page no longer follows the items already shown.
func (c *Controller) finishFetch(gen uint64, page int, result models.WorksheetPage, err error) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.log.Debug(c.ctx, "discarding stale listing response", "page", page)
		return
	}
	want := 1
	if page > 1 {
		want = c.state.Page + 1
	}
	if page != want {
		c.mu.Unlock()
		c.log.Debug(c.ctx, "discarding out-of-order listing response", "page", page, "want", want)
		return
	}

	c.state.Loading = false
	c.fetchCancel = nil

	if err != nil {
		c.state.Error = true
		if page == 1 {
			// the shown items belong to the previous filters; don't page past them
			c.state.HasMore = false
		}
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.log.Warn(c.ctx, "failed to load worksheets", "page", page, "error", err)
		c.emit(snap)
		return
	}

	if page == 1 {
		c.state.Items = append([]models.Worksheet(nil), result.Worksheets...)
	} else {
		c.state.Items = append(c.state.Items, result.Worksheets...)
	}
	c.state.Page = page
	c.state.HasMore = len(result.Worksheets) > 0 && len(result.Worksheets) >= c.pageSize

	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(snap)
}

// LoadRatings fetches the rating summary of every worksheet
func (c *Controller) LoadRatings() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		summaries, err := c.api.RatingSummaries(c.ctx)
		if err != nil {
			c.log.Warn(c.ctx, "failed to fetch ratings", "error", err)
			return
		}
		c.update(func(s *State) {
			s.Ratings = make(map[string]models.RatingSummary, len(summaries))
			for _, sum := range summaries {
				s.Ratings[sum.WorksheetID] = sum
			}
		})
	}()
}

// LoadDownloads fetches the signed-in user's downloaded worksheets and their ratings
func (c *Controller) LoadDownloads() {
	c.mu.Lock()
	if !c.state.Authenticated {
		c.state.Notice = &Notice{Kind: NoticeError, Text: "You must be signed in to view your downloaded worksheets."}
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.emit(snap)
		return
	}
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		entries, err := c.api.Downloads(c.ctx)
		if err != nil {
			c.log.Warn(c.ctx, "failed to fetch downloaded worksheets", "error", err)
			c.update(func(s *State) {
				s.Notice = &Notice{Kind: NoticeError, Text: "Failed to load downloaded worksheets."}
			})
			return
		}
		c.update(func(s *State) {
			s.Downloads = entries
			s.DisplayedRatings = map[string]int{}
			for _, e := range entries {
				if e.Rating != nil {
					s.DisplayedRatings[e.WorksheetID] = *e.Rating
				}
			}
			s.PendingRatings = copyInts(s.DisplayedRatings)
		})
	}()
}

// Download logs the download and opens the file. Signed-out users get a notice
// and ErrNotSignedIn. The ledger call is best effort: the file is opened even
// when it fails.
func (c *Controller) Download(ws models.Worksheet) error {
	c.mu.Lock()
	if !c.state.Authenticated {
		c.state.Notice = &Notice{Kind: NoticeError, Text: "You must be signed in to download worksheets."}
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.emit(snap)
		return ErrNotSignedIn
	}
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		entry, err := c.api.RecordDownload(c.ctx, ws.ID)
		if err != nil {
			c.log.Warn(c.ctx, "failed to log download", "worksheet", ws.ID, "error", err)
		} else if entry != nil {
			if entry.Worksheet == nil {
				w := ws
				entry.Worksheet = &w
			}
			c.update(func(s *State) { s.Downloads = upsertEntry(s.Downloads, *entry) })
		}

		if c.opener != nil {
			if err := c.opener.Open(ws.FileURL); err != nil {
				c.log.Warn(c.ctx, "failed to open worksheet", "url", ws.FileURL, "error", err)
			}
		}
	}()
	return nil
}

func upsertEntry(entries []models.LedgerEntry, entry models.LedgerEntry) []models.LedgerEntry {
	for i := range entries {
		if entries[i].WorksheetID == entry.WorksheetID {
			entries[i] = entry
			return entries
		}
	}
	return append([]models.LedgerEntry{entry}, entries...)
}

// SelectRating is the local star selection; nothing is sent until SubmitRating
func (c *Controller) SelectRating(worksheetID string, rating int) {
	c.update(func(s *State) { s.PendingRatings[worksheetID] = rating })
}

// SubmitRating sends the selected rating. On success the displayed rating
// changes and a thank-you notice is posted; on failure a notice is posted and
// the displayed rating stays as it was. Without a selection it does nothing.
func (c *Controller) SubmitRating(worksheetID string) {
	c.mu.Lock()
	rating := c.state.PendingRatings[worksheetID]
	c.mu.Unlock()
	if rating == 0 {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		entry, err := c.api.RecordRating(c.ctx, worksheetID, rating)
		if err != nil {
			c.log.Warn(c.ctx, "failed to submit rating", "worksheet", worksheetID, "error", err)
			c.update(func(s *State) {
				s.Notice = &Notice{Kind: NoticeError, Text: "Failed to submit rating"}
			})
			return
		}
		c.update(func(s *State) {
			s.DisplayedRatings[worksheetID] = rating
			for i := range s.Downloads {
				if s.Downloads[i].WorksheetID == worksheetID {
					s.Downloads[i].Rating = entry.Rating
				}
			}
			s.Notice = &Notice{Kind: NoticeSuccess, Text: "Thank you for your rating!"}
		})
	}()
}

// DismissNotice clears the current notice
func (c *Controller) DismissNotice() {
	c.update(func(s *State) { s.Notice = nil })
}
