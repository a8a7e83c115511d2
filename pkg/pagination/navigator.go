package pagination

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrInvalidPage is returned for page numbers below 1.
var ErrInvalidPage = errors.New("invalid page number")

// PageLoadedFunc receives every page the navigator loads.
type PageLoadedFunc func(p *Page)

// Navigator performs fetch-on-page-change and reports loaded pages.
//
// Navigator is not safe for concurrent use; GoTo calls must be serialized
// by the caller so that listeners see loads in navigation order.
type Navigator struct {
	fetcher    PageFetcher
	batch      *BatchFetcher
	cache      *PageCache
	config     Config
	listeners  []PageLoadedFunc
	prefetched map[int]*Page
	logger     zerolog.Logger
}

// NewNavigator creates a navigator that stores loaded pages in cache.
func NewNavigator(fetcher PageFetcher, cache *PageCache, config Config) *Navigator {
	config = config.withDefaults()
	return &Navigator{
		fetcher:    fetcher,
		batch:      NewBatchFetcher(fetcher, config),
		cache:      cache,
		config:     config,
		prefetched: make(map[int]*Page),
		logger:     log.With().Str("component", "navigator").Logger(),
	}
}

// OnPageLoaded registers a listener. Listeners run synchronously inside
// GoTo, in registration order, after the page is stored in the cache.
func (n *Navigator) OnPageLoaded(fn PageLoadedFunc) {
	n.listeners = append(n.listeners, fn)
}

// Limit returns the page size the navigator requests.
func (n *Navigator) Limit() int {
	return n.config.Limit
}

// GoTo loads a page, stores it in the page cache and emits PageLoaded.
// A page warmed by Prefetch is used once instead of fetching again.
func (n *Navigator) GoTo(ctx context.Context, page int) (*Page, error) {
	if page < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPage, page)
	}

	p, ok := n.prefetched[page]
	if ok {
		delete(n.prefetched, page)
		n.logger.Debug().Int("page", page).Msg("Using prefetched page")
	} else {
		fetchCtx, cancel := context.WithTimeout(ctx, n.config.Timeout)
		var err error
		p, err = n.fetcher.FetchPage(fetchCtx, page, n.config.Limit)
		cancel()
		if err != nil {
			n.logger.Error().Err(err).Int("page", page).Msg("Page fetch failed")
			return nil, fmt.Errorf("fetch page %d: %w", page, err)
		}
	}

	n.cache.Store(p)

	n.logger.Info().
		Int("page", p.Index).
		Int("records", len(p.Records)).
		Int("total_pages", p.TotalPages).
		Msg("Page loaded")

	for _, fn := range n.listeners {
		fn(p.clone())
	}

	return p.clone(), nil
}

// Prefetch fetches the given pages in parallel and keeps them for the next
// GoTo of each page. Pages already held are skipped. Failures only shrink the
// warmed set; the error is returned for logging.
func (n *Navigator) Prefetch(ctx context.Context, pages []int) error {
	want := make([]int, 0, len(pages))
	seen := make(map[int]bool, len(pages))
	for _, p := range pages {
		if p < 1 || seen[p] {
			continue
		}
		seen[p] = true
		if _, ok := n.prefetched[p]; ok {
			continue
		}
		want = append(want, p)
	}
	sort.Ints(want)
	if len(want) > n.config.MaxPrefetch {
		want = want[:n.config.MaxPrefetch]
	}
	if len(want) == 0 {
		return nil
	}

	results, err := n.batch.FetchPages(ctx, want)
	for page, p := range results {
		n.prefetched[page] = p
	}

	n.logger.Debug().
		Ints("pages", want).
		Int("warmed", len(results)).
		Msg("Prefetch complete")

	return err
}

// DropPrefetched discards warmed pages, e.g. after a new page size.
func (n *Navigator) DropPrefetched() {
	n.prefetched = make(map[int]*Page)
}
