package cache

import (
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every cache key in Redis.
const KeyPrefix = "catalog"

// CacheKey identifies a cached upstream response.
type CacheKey struct {
	// Host is the upstream host, so several catalogs can share one Redis
	Host string

	// Endpoint is the request path (e.g. "/api/v1/artworks")
	Endpoint string

	// QueryParams are the request query parameters
	QueryParams url.Values
}

// String generates a deterministic cache key string.
// Format: catalog:host:endpoint:q1=v1,v2:q2=v
//
// Example:
//
//	catalog:api.artic.edu:api/v1/artworks:limit=12:page=3
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	if host := strings.ToLower(k.Host); host != "" {
		parts = append(parts, host)
	}

	if endpoint := strings.Trim(k.Endpoint, "/"); endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.QueryParams) > 0 {
		keys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			parts = append(parts, key+"="+strings.Join(k.QueryParams[key], ","))
		}
	}

	return strings.Join(parts, ":")
}
