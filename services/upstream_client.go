package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/fenilmodi00/ipo-subscription-backend/shared"
	"github.com/sirupsen/logrus"
)

// maxUpstreamBody caps how much of a provider response is read.
const maxUpstreamBody = 5 << 20

// upstreamClient performs JSON GETs against third-party providers with a
// politeness delay, retries and one circuit breaker per provider.
type upstreamClient struct {
	httpClient         *http.Client
	configuration      shared.ServiceConfig
	requestRateLimiter *shared.HTTPRequestRateLimiter
	httpMetrics        *shared.HTTPMetrics

	mutex    sync.Mutex
	breakers map[string]*shared.ErrorIsolationHandler
}

func newUpstreamClient(httpClient *http.Client, config shared.ServiceConfig, httpMetrics *shared.HTTPMetrics) *upstreamClient {
	if httpClient == nil {
		httpClient = shared.NewHTTPClientFactory(config.HTTPRequestTimeout).CreateOptimizedHTTPClient(config.HTTPRequestTimeout)
	}
	if httpMetrics == nil {
		httpMetrics = shared.NewHTTPMetrics()
	}
	return &upstreamClient{
		httpClient:         httpClient,
		configuration:      config,
		requestRateLimiter: shared.NewHTTPRequestRateLimiter(config.RequestRateLimit),
		httpMetrics:        httpMetrics,
		breakers:           make(map[string]*shared.ErrorIsolationHandler),
	}
}

func (u *upstreamClient) breaker(provider string) *shared.ErrorIsolationHandler {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	handler, ok := u.breakers[provider]
	if !ok {
		handler = shared.NewErrorIsolationHandler(provider, u.configuration.MaxFailureRate)
		u.breakers[provider] = handler
	}
	return handler
}

// getJSON fetches rawURL and returns the body once it is known to be JSON.
func (u *upstreamClient) getJSON(ctx context.Context, provider, rawURL string, headers map[string]string) (json.RawMessage, error) {
	var body json.RawMessage
	start := time.Now()

	err := u.breaker(provider).Execute("get_json", func() error {
		if err := u.requestRateLimiter.Wait(ctx); err != nil {
			return err
		}
		request, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create HTTP request: %w", err)
		}
		shared.SetBrowserLikeHeaders(request, "application/json")
		for key, value := range headers {
			request.Header.Set(key, value)
		}

		response, err := shared.ExecuteHTTPRequestWithRetry(ctx, u.httpClient, request,
			u.configuration.MaxRetryAttempts, u.configuration.RetryBackoff)
		if err != nil {
			return err
		}
		defer response.Body.Close()

		payload, err := io.ReadAll(io.LimitReader(response.Body, maxUpstreamBody))
		if err != nil {
			return fmt.Errorf("failed to read %s response: %w", provider, err)
		}
		if !json.Valid(payload) {
			return fmt.Errorf("%s returned a non-JSON body", provider)
		}
		body = payload
		return nil
	})

	u.httpMetrics.RecordHTTPRequest(provider, err == nil, time.Since(start))
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"component": "upstream_client",
			"provider":  provider,
			"error":     err,
		}).Warn("Upstream request failed")
		return nil, err
	}
	return body, nil
}
