package catalog

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fastPolicy keeps the per-class shape but with millisecond backoffs.
func fastPolicy(attempts int) retryPolicy {
	return func(ErrorClass) RetryConfig {
		return RetryConfig{
			MaxAttempts:       attempts,
			InitialBackoff:    10 * time.Millisecond,
			MaxBackoff:        40 * time.Millisecond,
			BackoffMultiplier: 2.0,
		}
	}
}

func classifyAs(class ErrorClass) func(error) ErrorClass {
	return func(error) ErrorClass { return class }
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", config.MaxAttempts)
	}
	if config.InitialBackoff != 1*time.Second {
		t.Errorf("InitialBackoff = %v, want 1s", config.InitialBackoff)
	}
	if config.MaxBackoff != 30*time.Second {
		t.Errorf("MaxBackoff = %v, want 30s", config.MaxBackoff)
	}
	if config.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v, want 2.0", config.BackoffMultiplier)
	}
}

func TestRetryConfigForErrorClass(t *testing.T) {
	tests := []struct {
		name             string
		errorClass       ErrorClass
		expectedInitial  time.Duration
		expectedMax      time.Duration
		expectedAttempts int
	}{
		{"server error config", ErrorClassServer, 1 * time.Second, 10 * time.Second, 3},
		{"rate limit config", ErrorClassRateLimit, 5 * time.Second, 60 * time.Second, 3},
		{"network error config", ErrorClassNetwork, 2 * time.Second, 30 * time.Second, 3},
		{"unknown error class uses default", "", 1 * time.Second, 30 * time.Second, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := RetryConfigForErrorClass(tt.errorClass)

			if config.InitialBackoff != tt.expectedInitial {
				t.Errorf("InitialBackoff = %v, want %v", config.InitialBackoff, tt.expectedInitial)
			}
			if config.MaxBackoff != tt.expectedMax {
				t.Errorf("MaxBackoff = %v, want %v", config.MaxBackoff, tt.expectedMax)
			}
			if config.MaxAttempts != tt.expectedAttempts {
				t.Errorf("MaxAttempts = %d, want %d", config.MaxAttempts, tt.expectedAttempts)
			}
		})
	}
}

func TestRetryWithBackoff_Success(t *testing.T) {
	callCount := 0
	err := retryWithBackoff(context.Background(), fastPolicy(3), func() error {
		callCount++
		return nil
	}, classifyAs(ErrorClassServer))

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestRetryWithBackoff_SuccessAfterRetry(t *testing.T) {
	callCount := 0
	err := retryWithBackoff(context.Background(), fastPolicy(3), func() error {
		callCount++
		if callCount < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, classifyAs(ErrorClassServer))

	if err != nil {
		t.Errorf("Expected success after retry, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount)
	}
}

func TestRetryWithBackoff_MaxAttemptsExhausted(t *testing.T) {
	callCount := 0
	err := retryWithBackoff(context.Background(), fastPolicy(3), func() error {
		callCount++
		return errors.New("persistent error")
	}, classifyAs(ErrorClassServer))

	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Expected ErrRetryExhausted, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount)
	}
}

func TestRetryWithBackoff_ClientErrorNoRetry(t *testing.T) {
	clientErr := errors.New("bad request")
	callCount := 0
	err := retryWithBackoff(context.Background(), fastPolicy(3), func() error {
		callCount++
		return clientErr
	}, classifyAs(ErrorClassClient))

	if !errors.Is(err, clientErr) {
		t.Errorf("Expected the client error back, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call for a client error, got %d", callCount)
	}
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	policy := func(ErrorClass) RetryConfig {
		return RetryConfig{MaxAttempts: 5, InitialBackoff: time.Second, MaxBackoff: time.Second, BackoffMultiplier: 1}
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := retryWithBackoff(ctx, policy, func() error {
		return errors.New("server error")
	}, classifyAs(ErrorClassServer))

	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("Expected ErrContextCancelled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("cancellation took %v, backoff was not interrupted", elapsed)
	}
}

func TestRetryWithBackoff_DeadlineKeepsCause(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	policy := func(ErrorClass) RetryConfig {
		return RetryConfig{MaxAttempts: 5, InitialBackoff: time.Second, MaxBackoff: time.Second, BackoffMultiplier: 1}
	}

	err := retryWithBackoff(ctx, policy, func() error {
		return errors.New("dial tcp: i/o timeout")
	}, classifyAs(ErrorClassNetwork))

	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("Expected ErrContextCancelled, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context.DeadlineExceeded in the chain, got %v", err)
	}
}

func TestRetryWithBackoff_ExhaustedKeepsLastError(t *testing.T) {
	upstream := &CatalogError{StatusCode: 503, ErrorClass: ErrorClassServer, Message: "unavailable"}

	err := retryWithBackoff(context.Background(), fastPolicy(2), func() error {
		return upstream
	}, classifyAs(ErrorClassServer))

	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Expected ErrRetryExhausted, got %v", err)
	}
	var catalogErr *CatalogError
	if !errors.As(err, &catalogErr) || catalogErr.StatusCode != 503 {
		t.Errorf("Expected the CatalogError in the chain, got %v", err)
	}
}

func TestRetryWithBackoff_MaxBackoffCap(t *testing.T) {
	policy := func(ErrorClass) RetryConfig {
		return RetryConfig{
			MaxAttempts:       4,
			InitialBackoff:    20 * time.Millisecond,
			MaxBackoff:        25 * time.Millisecond,
			BackoffMultiplier: 10.0,
		}
	}

	start := time.Now()
	retryWithBackoff(context.Background(), policy, func() error {
		return errors.New("server error")
	}, classifyAs(ErrorClassServer))
	elapsed := time.Since(start)

	// three sleeps of at most 25ms + 20% jitter each
	if elapsed > 3*30*time.Millisecond+100*time.Millisecond {
		t.Errorf("elapsed = %v, backoff not capped", elapsed)
	}
}

func TestRetryWithBackoff_ClassChangesBetweenAttempts(t *testing.T) {
	classes := []ErrorClass{ErrorClassNetwork, ErrorClassClient}
	callCount := 0

	err := retryWithBackoff(context.Background(), fastPolicy(5), func() error {
		callCount++
		return errors.New("failure")
	}, func(error) ErrorClass {
		return classes[callCount-1]
	})

	if err == nil || errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Expected the final client error, got %v", err)
	}
	if callCount != 2 {
		t.Errorf("Expected 2 calls, got %d", callCount)
	}
}
