package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// DefaultStaleRetention is how long a stale entry stays in Redis so it can be
// revalidated with a conditional request.
const DefaultStaleRetention = 10 * time.Minute

// Manager handles caching operations with Redis backend.
type Manager struct {
	redis          *redis.Client
	staleRetention time.Duration
}

// NewManager creates a new cache manager with Redis backend.
func NewManager(redisClient *redis.Client) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Manager{
		redis:          redisClient,
		staleRetention: DefaultStaleRetention,
	}
}

// SetStaleRetention changes how long stale entries are kept.
func (m *Manager) SetStaleRetention(d time.Duration) {
	if d >= 0 {
		m.staleRetention = d
	}
}

// Get retrieves a cache entry by key. Stale entries are returned as well;
// callers check IsExpired and revalidate.
// Returns ErrCacheMiss if the key doesn't exist.
func (m *Manager) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	cacheKey := key.String()

	data, err := m.redis.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		_ = m.Delete(ctx, key)
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsExpired() {
		CacheMisses.Inc()
	} else {
		CacheHits.WithLabelValues("redis").Inc()
	}

	return &entry, nil
}

// Set stores a cache entry. The Redis TTL covers freshness plus the stale
// retention window. Entries without a validator are dropped once stale.
func (m *Manager) Set(ctx context.Context, key CacheKey, entry *CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTL()
	if ShouldMakeConditionalRequest(entry) {
		ttl += m.staleRetention
	}
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheSize.WithLabelValues("redis").Add(float64(len(data)))

	return nil
}

// Delete removes a cache entry.
func (m *Manager) Delete(ctx context.Context, key CacheKey) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}

// Revalidated stores an entry again after a 304 Not Modified, with the new
// freshness taken from the 304's headers.
func (m *Manager) Revalidated(ctx context.Context, key CacheKey, entry *CacheEntry, headers http.Header) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}
	RefreshExpires(entry, headers)
	return m.Set(ctx, key, entry)
}
