package main

import (
	"net/http"
	"time"

	"github.com/weijianneo/find-house/internal/resilience"
	"github.com/weijianneo/find-house/pkg/distancematrix"
	"github.com/weijianneo/find-house/pkg/hdb"
	"github.com/weijianneo/find-house/pkg/onemap"
)

func retryPolicy() resilience.RetryConfig {
	return resilience.FromRetryConfig(
		cfg.Retry.MaxAttempts,
		cfg.Retry.InitialBackoffMs,
		cfg.Retry.MaxBackoffMs,
		cfg.Retry.JitterCeilingMs,
		cfg.Retry.Backoff,
	)
}

func httpClient(timeoutSecs int) *http.Client {
	return &http.Client{Timeout: time.Duration(timeoutSecs) * time.Second}
}

func newGeocoder() onemap.Client {
	return onemap.NewClient(
		onemap.WithBaseURL(cfg.OneMap.BaseURL),
		onemap.WithHTTPClient(httpClient(cfg.OneMap.TimeoutSecs)),
		onemap.WithRateLimit(cfg.OneMap.RateLimit),
		onemap.WithRetry(retryPolicy()),
	)
}

func newRouter() (distancematrix.Client, error) {
	key, err := cfg.Google.APIKey()
	if err != nil {
		return nil, err
	}
	return distancematrix.NewClient(key,
		distancematrix.WithBaseURL(cfg.Google.BaseURL),
		distancematrix.WithRegion(cfg.Google.Region),
		distancematrix.WithHTTPClient(httpClient(cfg.Google.TimeoutSecs)),
		distancematrix.WithRateLimit(cfg.Google.RateLimit),
		distancematrix.WithRetry(retryPolicy()),
	), nil
}

func newLeaseClient() hdb.Client {
	return hdb.NewClient(
		hdb.WithBaseURL(cfg.HDB.BaseURL),
		hdb.WithUserAgent(cfg.HDB.UserAgent),
		hdb.WithHTTPClient(httpClient(cfg.HDB.TimeoutSecs)),
		hdb.WithRateLimit(cfg.HDB.RateLimit),
		hdb.WithRetry(retryPolicy()),
	)
}
