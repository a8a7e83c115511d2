// Package testutil provides a mock artworks catalog for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// ArtworksPath is the list endpoint the mock serves.
const ArtworksPath = "/api/v1/artworks"

// MockResponse defines a canned response for a path or page.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockCatalog is a configurable mock catalog server. Records are numbered
// 1..Total in catalog order and served in pages of the requested limit.
type MockCatalog struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	failures map[int]MockResponse

	total     int
	maxAge    int
	remaining int

	// Tracking
	RequestCount      int
	ConditionalCount  int
	PageRequests      map[int]int
	LastRequestHeader http.Header
}

// NewMockCatalog creates a mock catalog holding total records.
func NewMockCatalog(total int) *MockCatalog {
	mock := &MockCatalog{
		handlers:     make(map[string]func(w http.ResponseWriter, r *http.Request)),
		failures:     make(map[int]MockResponse),
		total:        total,
		remaining:    100,
		PageRequests: make(map[int]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()

		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.ConditionalCount++
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		if r.URL.Path == ArtworksPath {
			mock.listHandler(w, r)
			return
		}

		http.NotFound(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockCatalog) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCatalog) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockCatalog) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.PageRequests = make(map[int]int)
	m.LastRequestHeader = nil
}

// SetMaxAge sets the Cache-Control max-age of page responses. Zero makes
// every response immediately stale.
func (m *MockCatalog) SetMaxAge(seconds int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxAge = seconds
}

// SetRemaining sets the X-RateLimit-Remaining value reported.
func (m *MockCatalog) SetRemaining(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remaining = n
}

// SetTotal changes the number of records in the catalog.
func (m *MockCatalog) SetTotal(total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total = total
}

// FailPage makes every request for page answer with resp.
func (m *MockCatalog) FailPage(page int, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[page] = resp
}

// ClearFailures removes all injected page failures.
func (m *MockCatalog) ClearFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = make(map[int]MockResponse)
}

// SetHandler sets a custom handler for a specific path.
func (m *MockCatalog) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockCatalog) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, resp)
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockCatalog) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockCatalog) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// GetPageRequests returns how often a page was requested.
func (m *MockCatalog) GetPageRequests(page int) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PageRequests[page]
}

// ETag returns the entity tag the mock uses for a page.
func ETag(page, limit, total int) string {
	return fmt.Sprintf(`"p%d-l%d-t%d"`, page, limit, total)
}

// listHandler serves the paginated artworks listing.
func (m *MockCatalog) listHandler(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 12)

	m.mu.Lock()
	m.PageRequests[page]++
	total := m.total
	maxAge := m.maxAge
	remaining := m.remaining
	failure, failed := m.failures[page]
	m.mu.Unlock()

	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", "60")

	if failed {
		writeResponse(w, failure)
		return
	}

	if page < 1 || limit < 1 {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"status":403,"error":"Invalid number of results"}`))
		return
	}

	etag := ETag(page, limit, total)
	w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d", maxAge))
	w.Header().Set("ETag", etag)

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	body, err := json.Marshal(PageBody(page, limit, total))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// PageBody builds the list envelope for a page of a catalog of total records.
func PageBody(page, limit, total int) map[string]any {
	totalPages := (total + limit - 1) / limit

	data := []map[string]any{}
	for i := (page - 1) * limit; i < page*limit && i < total; i++ {
		id := i + 1
		data = append(data, map[string]any{
			"id":             id,
			"title":          fmt.Sprintf("Artwork %d", id),
			"artist_display": fmt.Sprintf("Artist %d", id%7),
			"date_start":     1800 + id%200,
		})
	}

	return map[string]any{
		"pagination": map[string]any{
			"total":        total,
			"limit":        limit,
			"offset":       (page - 1) * limit,
			"total_pages":  totalPages,
			"current_page": page,
		},
		"data": data,
	}
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"status":500,"error":"Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"status":429,"error":"Too many requests"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewNotFoundResponse creates a 404 Not Found response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"status":404,"error":"Not found"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
