// Package session ties the page navigator to the selection store and the
// bulk-fill controller. A Session is what a user interface drives: it loads
// pages, takes checkbox input, and walks pages for bulk selection.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Sternrassler/catalog-select/pkg/pagination"
	"github.com/Sternrassler/catalog-select/pkg/selection"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNotOpen is returned before the first page has been loaded.
	ErrNotOpen = errors.New("session not open")

	// ErrUnknownRecord is returned for ids not visible on the current page.
	ErrUnknownRecord = errors.New("record not on current page")

	// ErrPageOutOfRange is returned for pages outside 1..TotalPages.
	ErrPageOutOfRange = errors.New("page out of range")
)

// Config holds session behaviour.
type Config struct {
	// CarryOver lets a bulk-select quota continue onto following pages.
	// When false the quota is applied to the requesting page only.
	CarryOver bool

	// PrefetchBulk warms the pages a bulk walk will need in parallel
	PrefetchBulk bool

	// MaxAutoAdvance bounds how many pages one BulkSelect call loads.
	// Zero disables the walk: the quota is then only consumed as the user
	// navigates onto its resume page.
	MaxAutoAdvance int
}

// DefaultConfig returns the default session behaviour.
func DefaultConfig() Config {
	return Config{
		CarryOver:      true,
		PrefetchBulk:   true,
		MaxAutoAdvance: 50,
	}
}

// Row is a visible record with its checkbox state.
type Row struct {
	Record   pagination.Record `json:"record"`
	Selected bool              `json:"selected"`
}

// Snapshot is what a view renders.
type Snapshot struct {
	Page          int             `json:"page"`
	Limit         int             `json:"limit"`
	TotalPages    int             `json:"total_pages"`
	Total         int             `json:"total"`
	Rows          []Row           `json:"rows"`
	AllSelected   bool            `json:"all_selected"`
	Quota         selection.Quota `json:"quota"`
	SelectedTotal int             `json:"selected_total"`
}

// Session is one user's view over the catalog. All methods are safe for
// concurrent use; they are serialized so the core sees a single event
// stream.
type Session struct {
	mu     sync.Mutex
	nav    *pagination.Navigator
	cache  *pagination.PageCache
	store  *selection.Store
	bulk   *selection.BulkFill
	config Config
	logger zerolog.Logger

	counted   int  // contribution to the selected records gauge
	truncated bool // last consumed page dropped unmet demand
}

// New creates a session over nav. cache must be the page cache nav stores
// into. The session registers itself as a PageLoaded listener.
func New(nav *pagination.Navigator, cache *pagination.PageCache, cfg Config) *Session {
	if cfg.MaxAutoAdvance < 0 {
		cfg.MaxAutoAdvance = 0
	}

	store := selection.NewStore()
	var opts []selection.Option
	if !cfg.CarryOver {
		opts = append(opts, selection.WithPageLocal())
	}

	s := &Session{
		nav:    nav,
		cache:  cache,
		store:  store,
		bulk:   selection.NewBulkFill(store, opts...),
		config: cfg,
		logger: log.With().Str("component", "session").Logger(),
	}

	nav.OnPageLoaded(s.consume)

	return s
}

// consume hands a loaded page to the bulk-fill controller. It runs inside
// Navigator.GoTo, so the session lock is already held.
func (s *Session) consume(p *pagination.Page) {
	before := s.bulk.Quota()
	ids := p.IDs()

	s.bulk.OnPageAvailable(p.Index, ids, p.TotalPages)
	after := s.bulk.Quota()

	if before.Active() && before.ResumePage == p.Index && after != before {
		s.truncated = after.Remaining == 0 && before.Remaining > len(ids)
		bulkPagesConsumedTotal.Inc()

		s.logger.Debug().
			Int("page", p.Index).
			Int("remaining_before", before.Remaining).
			Int("remaining", after.Remaining).
			Int("resume_page", after.ResumePage).
			Msg("Bulk quota consumed page")

		if s.truncated {
			s.logger.Warn().
				Int("page", p.Index).
				Int("unmet", before.Remaining-len(ids)).
				Bool("page_local", s.bulk.PageLocal()).
				Msg("Bulk quota dropped before it was satisfied")
		}
	}

	s.updateGauge()
}

// updateGauge folds this session's selection count into the shared gauge.
func (s *Session) updateGauge() {
	n := s.store.Count()
	selectedRecords.Add(float64(n - s.counted))
	s.counted = n
}

// current returns the resident page or ErrNotOpen.
func (s *Session) current() (*pagination.Page, error) {
	p := s.cache.Current()
	if p == nil {
		return nil, ErrNotOpen
	}
	return p, nil
}

// Open loads the first page.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.nav.GoTo(ctx, 1); err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	return nil
}

// GoTo navigates to a page. A dormant bulk quota whose resume page this is
// continues here.
func (s *Session) GoTo(ctx context.Context, page int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if page < 1 {
		return fmt.Errorf("%w: %d", ErrPageOutOfRange, page)
	}
	if total := s.cache.TotalPages(); s.cache.Loaded() && total > 0 && page > total {
		return fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, page, total)
	}

	if _, err := s.nav.GoTo(ctx, page); err != nil {
		return err
	}
	return nil
}

// Toggle sets one record on the current page.
func (s *Session) Toggle(id string, selected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.current()
	if err != nil {
		return err
	}
	if !p.Contains(id) {
		return fmt.Errorf("%w: %s", ErrUnknownRecord, id)
	}

	s.store.Toggle(p.Index, id, selected)
	s.updateGauge()
	return nil
}

// SelectAll sets every record on the current page.
func (s *Session) SelectAll(selected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.current()
	if err != nil {
		return err
	}

	s.store.SetPage(p.Index, p.IDs(), selected)
	s.updateGauge()
	return nil
}

// BulkSelect selects the next count records in catalog order, starting at
// the first record of the current page, and replaces any earlier request.
// A zero count only clears the earlier request; a negative one is ignored.
//
// The current page is consumed at once. If more records are needed, the
// session walks forward through the navigator until the quota is satisfied,
// the catalog ends, or MaxAutoAdvance pages were loaded. The session is left
// on the last page the walk loaded. A fetch error stops the walk; the quota
// stays dormant and resumes when its page is loaded again.
func (s *Session) BulkSelect(ctx context.Context, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.current()
	if err != nil {
		return err
	}
	if count < 0 {
		return nil
	}

	s.bulk.SetTotalPages(p.TotalPages)
	s.truncated = false
	if !s.bulk.Request(count, p.Index) {
		if count == 0 {
			s.logger.Debug().Int("page", p.Index).Msg("Bulk quota cleared")
			return nil
		}
		bulkWalksTotal.WithLabelValues(OutcomeTruncated).Inc()
		return nil
	}

	s.logger.Info().
		Int("count", count).
		Int("start_page", p.Index).
		Bool("carry_over", !s.bulk.PageLocal()).
		Msg("Bulk select requested")

	s.consume(p)

	if s.bulk.Outstanding() && s.config.PrefetchBulk && s.config.MaxAutoAdvance > 0 {
		s.prefetch(ctx, p.Limit)
		defer s.nav.DropPrefetched()
	}

	advanced := 0
	for s.bulk.Outstanding() {
		if advanced >= s.config.MaxAutoAdvance {
			s.logger.Info().
				Int("pages", advanced).
				Interface("quota", s.bulk.Quota()).
				Msg("Bulk walk paused, quota left dormant")
			bulkWalksTotal.WithLabelValues(OutcomeStalled).Inc()
			return nil
		}

		next := s.bulk.Quota().ResumePage
		if _, err := s.nav.GoTo(ctx, next); err != nil {
			s.logger.Error().Err(err).Int("page", next).Msg("Bulk walk stopped")
			bulkWalksTotal.WithLabelValues(OutcomeError).Inc()
			return fmt.Errorf("bulk select: %w", err)
		}
		advanced++
	}

	outcome := OutcomeSatisfied
	if s.truncated {
		outcome = OutcomeTruncated
	}
	bulkWalksTotal.WithLabelValues(outcome).Inc()

	s.logger.Info().
		Int("count", count).
		Int("pages", advanced+1).
		Int("selected_total", s.store.Count()).
		Str("outcome", outcome).
		Msg("Bulk select complete")

	return nil
}

// prefetch warms the pages the outstanding quota is expected to span.
func (s *Session) prefetch(ctx context.Context, limit int) {
	if limit < 1 {
		limit = s.nav.Limit()
	}

	q := s.bulk.Quota()
	need := (q.Remaining + limit - 1) / limit
	if need > s.config.MaxAutoAdvance {
		need = s.config.MaxAutoAdvance
	}

	pages := make([]int, 0, need)
	for p := q.ResumePage; p < q.ResumePage+need; p++ {
		if total := s.bulk.TotalPages(); total > 0 && p > total {
			break
		}
		pages = append(pages, p)
	}

	if err := s.nav.Prefetch(ctx, pages); err != nil {
		s.logger.Warn().Err(err).Ints("pages", pages).Msg("Bulk prefetch incomplete")
	}
}

// View returns what the current page looks like.
func (s *Session) View() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.current()
	if err != nil {
		return Snapshot{}, err
	}

	rows := make([]Row, 0, len(p.Records))
	for _, r := range p.Records {
		rows = append(rows, Row{Record: r, Selected: s.store.IsSelected(p.Index, r.ID)})
	}

	return Snapshot{
		Page:          p.Index,
		Limit:         p.Limit,
		TotalPages:    p.TotalPages,
		Total:         p.Total,
		Rows:          rows,
		AllSelected:   s.store.AllSelected(p.Index, p.IDs()),
		Quota:         s.bulk.Quota(),
		SelectedTotal: s.store.Count(),
	}, nil
}

// Selection returns the selected ids of every page that has any.
func (s *Session) Selection() map[int][]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[int][]string)
	for _, page := range s.store.Pages() {
		if ids := s.store.SelectedIDs(page); len(ids) > 0 {
			out[page] = ids
		}
	}
	return out
}

// Close withdraws the session's selections from the shared gauge.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	selectedRecords.Sub(float64(s.counted))
	s.counted = 0
}
