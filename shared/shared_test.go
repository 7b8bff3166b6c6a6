package shared

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatusForError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{NewNotFoundError("IPO not found"), http.StatusNotFound},
		{NewInvalidStateError("IPO is not active"), http.StatusBadRequest},
		{NewConflictError("You have already applied for this IPO", nil), http.StatusBadRequest},
		{NewValidationError("quantity must be at least 1"), http.StatusBadRequest},
		{NewUnauthorizedError("Not authorized, no token"), http.StatusUnauthorized},
		{NewForbiddenError("forbidden"), http.StatusForbidden},
		{NewUnavailableError("upstream down", nil), http.StatusServiceUnavailable},
		{NewDatabaseError("insert", errors.New("boom")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
		{fmt.Errorf("handler: %w", NewNotFoundError("x")), http.StatusNotFound},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, HTTPStatusForError(tt.err), tt.err.Error())
	}
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "IPO not found", PublicMessage(NewNotFoundError("IPO not found")))
	assert.Equal(t, "Internal server error", PublicMessage(NewDatabaseError("insert", errors.New("pq: secret detail"))))
	assert.Equal(t, "Internal server error", PublicMessage(errors.New("raw")))
}

func TestServiceError_UnwrapAndRetryable(t *testing.T) {
	cause := errors.New("connection reset by peer")
	err := NewDatabaseError("select", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, err.IsRetryable())
	assert.True(t, IsRetryableError(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsRetryableError(NewValidationError("bad")))
	assert.True(t, IsRetryableError(errors.New("i/o timeout")))
	assert.False(t, IsRetryableError(errors.New("syntax error")))
	assert.False(t, IsRetryableError(nil))
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, ErrorCategoryNetwork, "X", "svc", "op", true))

	wrapped := WrapError(errors.New("dial tcp"), ErrorCategoryNetwork, "NET", "market", "quote", true)
	assert.Equal(t, ErrorCategoryNetwork, wrapped.Category)
	assert.Equal(t, "market", wrapped.ServiceName)

	existing := NewNotFoundError("missing")
	same := WrapError(existing, ErrorCategoryNetwork, "NET", "market", "quote", true)
	assert.Same(t, existing, same)
	assert.Equal(t, ErrorCategoryNotFound, same.Category)
	assert.Equal(t, "quote", same.Operation)
}

func TestErrorIsolationHandler_OpensAndRecovers(t *testing.T) {
	clock := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	breaker := NewErrorIsolationHandler("finnhub", 0.5)
	breaker.now = func() time.Time { return clock }

	failing := func() error { return errors.New("upstream 500") }
	for i := 0; i < 9; i++ {
		_ = breaker.Execute("calendar", failing)
	}
	assert.False(t, breaker.IsCircuitBreakerOpen(), "breaker must wait for the minimum sample")

	_ = breaker.Execute("calendar", failing)
	assert.True(t, breaker.IsCircuitBreakerOpen())
	assert.InDelta(t, 1.0, breaker.GetFailureRate(), 0.001)

	called := false
	err := breaker.Execute("calendar", func() error { called = true; return nil })
	assert.False(t, called)
	assert.True(t, IsCategory(err, ErrorCategoryUnavailable))

	clock = clock.Add(31 * time.Second)
	assert.False(t, breaker.IsCircuitBreakerOpen(), "half-open after cool-down")

	for i := 0; i < 3; i++ {
		require.NoError(t, breaker.Execute("calendar", func() error { return nil }))
	}
	assert.False(t, breaker.IsCircuitBreakerOpen())
	assert.Zero(t, breaker.GetFailureRate())
}

func TestErrorIsolationHandler_FailedProbeRestartsCoolDown(t *testing.T) {
	clock := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	breaker := NewErrorIsolationHandler("nse", 0.1)
	breaker.now = func() time.Time { return clock }
	for i := 0; i < 10; i++ {
		breaker.RecordFailure()
	}
	require.True(t, breaker.IsCircuitBreakerOpen())

	clock = clock.Add(31 * time.Second)
	require.False(t, breaker.IsCircuitBreakerOpen())
	breaker.RecordFailure()
	assert.True(t, breaker.IsCircuitBreakerOpen())
}

func TestExecuteHTTPRequestWithRetry(t *testing.T) {
	t.Run("retries server errors", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Write([]byte(`ok`))
		}))
		defer server.Close()

		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)
		resp, err := ExecuteHTTPRequestWithRetry(context.Background(), server.Client(), req, 3, time.Millisecond)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, int32(3), hits.Load())
	})

	t.Run("client errors fail at once", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)
		_, err = ExecuteHTTPRequestWithRetry(context.Background(), server.Client(), req, 3, time.Millisecond)

		var statusErr *UpstreamStatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("gives up after the last attempt", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)
		_, err = ExecuteHTTPRequestWithRetry(context.Background(), server.Client(), req, 1, time.Millisecond)
		assert.ErrorContains(t, err, "failed after 2 attempts")
	})
}

func TestHTTPClientFactory_CachesByTimeout(t *testing.T) {
	factory := NewHTTPClientFactory(5 * time.Second)
	a := factory.CreateOptimizedHTTPClient(0)
	b := factory.CreateOptimizedHTTPClient(5 * time.Second)
	c := factory.CreateOptimizedHTTPClient(time.Second)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	factory.CleanupAllClients()
	assert.NotSame(t, a, factory.CreateOptimizedHTTPClient(0))
}

func TestHTTPRequestRateLimiter(t *testing.T) {
	limiter := NewHTTPRequestRateLimiter(20 * time.Millisecond)
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Wait(context.Background()))
	}
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	assert.Equal(t, int64(3), limiter.GetRequestCount())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, limiter.Wait(ctx), context.Canceled)
}

func TestUnifiedConfiguration_Defaults(t *testing.T) {
	cfg := &UnifiedConfiguration{}
	cfg.ValidateAndApplyDefaults()
	defaults := NewDefaultUnifiedConfiguration()

	assert.Equal(t, defaults.Database.MaxOpenConns, cfg.Database.MaxOpenConns)
	assert.Positive(t, cfg.Database.PingTimeout)
}
