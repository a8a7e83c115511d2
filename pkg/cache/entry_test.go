package cache

import (
	"testing"
	"time"
)

func TestCacheEntry_IsExpired(t *testing.T) {
	tests := []struct {
		name    string
		expires time.Time
		want    bool
	}{
		{"expired entry", time.Now().Add(-1 * time.Hour), true},
		{"valid entry", time.Now().Add(1 * time.Hour), false},
		{"just expired", time.Now().Add(-1 * time.Second), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &CacheEntry{Expires: tt.expires}
			if got := entry.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCacheEntry_TTL(t *testing.T) {
	entry := &CacheEntry{Expires: time.Now().Add(-1 * time.Minute)}
	if got := entry.TTL(); got != 0 {
		t.Errorf("TTL() of stale entry = %v, want 0", got)
	}

	entry = &CacheEntry{Expires: time.Now().Add(10 * time.Minute)}
	if got := entry.TTL(); got < 9*time.Minute || got > 10*time.Minute {
		t.Errorf("TTL() = %v, want about 10m", got)
	}
}

func TestCacheEntry_Age(t *testing.T) {
	entry := &CacheEntry{CachedAt: time.Now().Add(-30 * time.Second)}
	if got := entry.Age(); got < 30*time.Second || got > 31*time.Second {
		t.Errorf("Age() = %v, want about 30s", got)
	}
}
