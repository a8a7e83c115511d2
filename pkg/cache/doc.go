// Package cache provides a Redis-backed HTTP response cache for catalog
// page requests.
//
// Entries honour the upstream Expires / Cache-Control headers. A fresh entry
// is served without touching the network. A stale entry is kept in Redis for
// a grace period so the client can revalidate it with a conditional request
// (If-None-Match / If-Modified-Since); a 304 refreshes its expiry.
//
// # Basic Usage
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.CacheKey{
//		Host:        "api.artic.edu",
//		Endpoint:    "/api/v1/artworks",
//		QueryParams: url.Values{"page": []string{"3"}, "limit": []string{"12"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	switch {
//	case errors.Is(err, cache.ErrCacheMiss):
//		// fetch from upstream
//	case entry.IsExpired() && cache.ShouldMakeConditionalRequest(entry):
//		cache.AddConditionalHeaders(req, entry)
//	default:
//		resp := cache.EntryToResponse(entry)
//	}
//
// # Metrics
//
//   - catalog_cache_hits_total{layer="redis"}
//   - catalog_cache_misses_total
//   - catalog_cache_size_bytes{layer="redis"}
//   - catalog_conditional_requests_total
//   - catalog_304_responses_total
//   - catalog_cache_errors_total{operation}
package cache
