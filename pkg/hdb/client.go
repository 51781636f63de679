// Package hdb looks up the remaining lease of HDB flats by postal code.
package hdb

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/weijianneo/find-house/internal/fetcher"
	"github.com/weijianneo/find-house/internal/resilience"
)

// DefaultBaseURL is the HDB e-services host.
const DefaultBaseURL = "https://services2.hdb.gov.sg"

// DefaultUserAgent is sent with every request; the service rejects
// requests without a browser agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/60.0.3112.113 Safari/537.36"

const leasePath = "/webapp/BB14ALeaseInfo/BB14SGenerateLeaseInfoXML"

// Client queries lease information.
type Client interface {
	// LeaseRemaining returns the remaining lease in whole years. found is
	// false when the service has no lease figure for the postal code.
	LeaseRemaining(ctx context.Context, postal string) (years int, found bool, err error)
}

// Option configures the client.
type Option func(*client)

// WithBaseURL overrides the service host.
func WithBaseURL(u string) Option {
	return func(c *client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *client) {
		c.userAgent = ua
	}
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}
}

// WithRetry sets the retry policy applied to transport failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *client) {
		c.retry = cfg
	}
}

type client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
	now        func() time.Time
}

// NewClient creates an HDB lease Client.
func NewClient(opts ...Option) Client {
	c := &client{
		baseURL:    DefaultBaseURL,
		userAgent:  DefaultUserAgent,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(2, 2),
		retry:      resilience.DefaultRetryConfig(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type leaseInformation struct {
	LeaseRemaining string `xml:"LeaseRemaining"`
}

func (c *client) LeaseRemaining(ctx context.Context, postal string) (int, bool, error) {
	postal = strings.TrimSpace(postal)
	if postal == "" {
		return 0, false, eris.New("hdb: empty postal code")
	}

	retry := c.retry.WithLogger("hdb", "lease")
	body, err := resilience.DoVal(ctx, retry, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, postal)
	})
	if err != nil {
		return 0, false, err
	}

	var info leaseInformation
	if err := fetcher.DecodeXML(bytes.NewReader(body), &info); err != nil {
		return 0, false, eris.Wrapf(err, "hdb: parse lease for %s", postal)
	}

	years, err := strconv.Atoi(strings.TrimSpace(info.LeaseRemaining))
	if err != nil {
		return 0, false, nil
	}
	return years, true, nil
}

func (c *client) get(ctx context.Context, postal string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "hdb: rate limit")
	}

	// "_" is a cache buster the web app sends with every call.
	params := url.Values{
		"postalCode": {postal},
		"_":          {strconv.FormatInt(c.now().UnixMilli(), 10)},
	}
	reqURL := c.baseURL + leasePath + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "hdb: build request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(err, "hdb: request")
		}
		return nil, resilience.NewTransientError(eris.Wrap(err, "hdb: request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := resilience.CheckStatus(resp, "hdb"); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "hdb: read body"), resp.StatusCode)
	}
	return body, nil
}
