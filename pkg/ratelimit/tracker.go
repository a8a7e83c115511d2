package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	catalogRequestsRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_rate_limit_remaining",
		Help: "Requests remaining in the current upstream rate limit window",
	})

	catalogRateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_rate_limit_blocks_total",
		Help: "Total number of requests blocked because the upstream budget is exhausted",
	})

	catalogRateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_rate_limit_throttles_total",
		Help: "Total number of requests delayed because the upstream budget is low",
	})
)

// DefaultThrottleDelay is the pause applied to requests in the warning band.
const DefaultThrottleDelay = 1 * time.Second

// Tracker monitors the upstream request budget and gates requests.
type Tracker struct {
	redis         *redis.Client
	logger        zerolog.Logger
	throttleDelay time.Duration
}

// NewTracker creates a new rate limit tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:         redisClient,
		logger:        logger,
		throttleDelay: DefaultThrottleDelay,
	}
}

// SetThrottleDelay changes the warning-band pause.
func (t *Tracker) SetThrottleDelay(d time.Duration) {
	t.throttleDelay = d
}

// GetState retrieves the current rate limit state from Redis.
// Returns a healthy default when nothing has been recorded yet.
func (t *Tracker) GetState(ctx context.Context) (*RateLimitState, error) {
	values, err := t.redis.MGet(ctx, RedisKeyRemaining, RedisKeyResetTimestamp, RedisKeyLastUpdate).Result()
	if err != nil {
		return nil, fmt.Errorf("get rate limit state: %w", err)
	}

	if values[0] == nil {
		t.logger.Debug().Msg("No rate limit state in Redis, returning default healthy state")
		return &RateLimitState{
			Remaining:  ThresholdHealthy * 2,
			ResetAt:    time.Now().Add(60 * time.Second),
			LastUpdate: time.Now(),
			IsHealthy:  true,
		}, nil
	}

	remaining, err := parseIntValue(values[0])
	if err != nil {
		return nil, fmt.Errorf("parse remaining: %w", err)
	}
	reset, err := parseIntValue(values[1])
	if err != nil {
		return nil, fmt.Errorf("parse reset timestamp: %w", err)
	}
	lastUpdate, err := parseIntValue(values[2])
	if err != nil {
		return nil, fmt.Errorf("parse last update: %w", err)
	}

	state := &RateLimitState{
		Remaining:  int(remaining),
		ResetAt:    time.Unix(reset, 0),
		LastUpdate: time.UnixMilli(lastUpdate),
	}
	state.UpdateHealth()

	return state, nil
}

// UpdateFromHeaders records the budget reported by a catalog response.
// Responses without the headers are ignored.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := headers.Get(HeaderRemaining)
	if remainStr == "" {
		return nil
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
	}

	resetStr := headers.Get(HeaderReset)
	if resetStr == "" {
		return fmt.Errorf("%s header missing", HeaderReset)
	}

	resetSeconds, err := strconv.Atoi(resetStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderReset, err)
	}

	now := time.Now()
	state := &RateLimitState{
		Remaining:  remain,
		ResetAt:    now.Add(time.Duration(resetSeconds) * time.Second),
		LastUpdate: now,
	}
	state.UpdateHealth()

	pipe := t.redis.TxPipeline()
	pipe.Set(ctx, RedisKeyRemaining, remain, 0)
	pipe.Set(ctx, RedisKeyResetTimestamp, state.ResetAt.Unix(), 0)
	pipe.Set(ctx, RedisKeyLastUpdate, now.UnixMilli(), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}

	catalogRequestsRemaining.Set(float64(remain))

	switch {
	case state.NeedsCriticalBlock():
		t.logger.Error().
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Msg("Catalog rate limit CRITICAL - requests will be blocked")
	case state.NeedsThrottling():
		t.logger.Warn().
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Msg("Catalog rate limit WARNING - requests will be throttled")
	default:
		t.logger.Debug().
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Bool("is_healthy", state.IsHealthy).
			Msg("Catalog rate limit state updated")
	}

	return nil
}

// ShouldAllowRequest reports whether a request may go out now.
// Returns false while the budget is critical. In the warning band it waits
// for the throttle delay first, honouring ctx.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Int("remaining", state.Remaining).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("Catalog rate limit critical - blocking request")

		catalogRateLimitBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Msg("Catalog rate limit warning - throttling request")

		catalogRateLimitThrottlesTotal.Inc()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(t.throttleDelay):
		}
	}

	return true, nil
}

// parseIntValue converts an MGET value, which go-redis returns as string.
func parseIntValue(v interface{}) (int64, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case string:
		return strconv.ParseInt(val, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected redis value type %T", v)
	}
}
