package pagination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds navigator and batch fetcher configuration
type Config struct {
	// Limit is the page size requested from the catalog
	Limit int
	// MaxConcurrency is the maximum number of parallel prefetch requests
	MaxConcurrency int
	// Timeout per page fetch
	Timeout time.Duration
	// MaxPrefetch caps how many pages a single Prefetch call fetches
	MaxPrefetch int
}

// DefaultConfig returns safe defaults for the public artworks catalog
func DefaultConfig() Config {
	return Config{
		Limit:          12,
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
		MaxPrefetch:    20,
	}
}

func (c Config) withDefaults() Config {
	if c.Limit <= 0 {
		c.Limit = 12
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 4
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.MaxPrefetch <= 0 {
		c.MaxPrefetch = 20
	}
	return c
}

// PageFetcher is the interface the catalog client implements for single-page fetching
type PageFetcher interface {
	// FetchPage fetches one page of records, limit records per page
	FetchPage(ctx context.Context, page, limit int) (*Page, error)
}

// PageResult represents the result of fetching a single page
type PageResult struct {
	PageNumber int
	Page       *Page
	Error      error
}

// BatchFetcher fetches several pages in parallel
type BatchFetcher struct {
	fetcher PageFetcher
	config  Config
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher(fetcher PageFetcher, config Config) *BatchFetcher {
	return &BatchFetcher{
		fetcher: fetcher,
		config:  config.withDefaults(),
	}
}

// FetchPages fetches the given pages using a worker pool.
// Returns map of pageNumber -> page for successful fetches; the error reports
// the first failure, alongside whatever pages did succeed.
func (bf *BatchFetcher) FetchPages(ctx context.Context, pages []int) (map[int]*Page, error) {
	start := time.Now()
	results := make(map[int]*Page, len(pages))
	if len(pages) == 0 {
		return results, nil
	}

	pageQueue := make(chan int, len(pages))
	pageResults := make(chan PageResult, len(pages))

	for _, p := range pages {
		pageQueue <- p
	}
	close(pageQueue)

	workers := bf.config.MaxConcurrency
	if workers > len(pages) {
		workers = len(pages)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go bf.worker(ctx, pageQueue, pageResults, &wg, i)
	}

	go func() {
		wg.Wait()
		close(pageResults)
	}()

	var firstErr error
	for result := range pageResults {
		if result.Error != nil {
			log.Warn().
				Err(result.Error).
				Int("page", result.PageNumber).
				Msg("Prefetch failed")
			if firstErr == nil {
				firstErr = result.Error
			}
			continue
		}
		results[result.PageNumber] = result.Page
	}

	log.Debug().
		Int("requested", len(pages)).
		Int("fetched", len(results)).
		Dur("duration", time.Since(start)).
		Msg("Batch fetch complete")

	if firstErr != nil {
		return results, fmt.Errorf("batch fetch (partial data: %d/%d pages): %w", len(results), len(pages), firstErr)
	}
	return results, nil
}

// worker processes pages from the queue
func (bf *BatchFetcher) worker(ctx context.Context, pageQueue <-chan int, results chan<- PageResult, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	pagesProcessed := 0

	for pageNum := range pageQueue {
		select {
		case <-ctx.Done():
			log.Debug().
				Int("worker_id", workerID).
				Int("pages_processed", pagesProcessed).
				Msg("Worker stopping (context cancelled)")
			results <- PageResult{PageNumber: pageNum, Error: ctx.Err()}
			continue
		default:
		}

		pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
		page, err := bf.fetcher.FetchPage(pageCtx, pageNum, bf.config.Limit)
		cancel()

		results <- PageResult{PageNumber: pageNum, Page: page, Error: err}
		pagesProcessed++
	}

	if pagesProcessed > 0 {
		log.Debug().
			Int("worker_id", workerID).
			Int("pages_processed", pagesProcessed).
			Msg("Worker completed")
	}
}
