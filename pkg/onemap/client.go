// Package onemap geocodes Singapore addresses through the OneMap search API.
package onemap

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/weijianneo/find-house/internal/model"
	"github.com/weijianneo/find-house/internal/resilience"
)

// DefaultBaseURL is the public OneMap API host.
const DefaultBaseURL = "https://developers.onemap.sg"

// NoPostal is OneMap's marker for a candidate without a postal code. It is
// also what Postal returns when nothing matched.
const NoPostal = "NIL"

// ErrEmptyAddress is returned for a blank search string.
var ErrEmptyAddress = eris.New("onemap: empty address")

// Client looks up addresses with OneMap.
type Client interface {
	// Geocode returns the centroid of every candidate that carries a postal
	// code, or model.NotFound when there is none.
	Geocode(ctx context.Context, address string) (model.GeoPoint, error)

	// Postal returns the first candidate postal code, or NoPostal.
	Postal(ctx context.Context, address string) (string, error)
}

// Option configures the client.
type Option func(*client)

// WithBaseURL overrides the API host.
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
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
}

// NewClient creates a OneMap Client.
func NewClient(opts ...Option) Client {
	c := &client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(4, 4), // OneMap allows 250 calls/min
		retry:      resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// searchResponse is the JSON body of /commonapi/search. Coordinates arrive
// as strings.
type searchResponse struct {
	Found   int         `json:"found"`
	Results []candidate `json:"results"`
}

type candidate struct {
	Address   string `json:"ADDRESS"`
	Postal    string `json:"POSTAL"`
	Latitude  string `json:"LATITUDE"`
	Longitude string `json:"LONGITUDE"`
}

func (c *client) Geocode(ctx context.Context, address string) (model.GeoPoint, error) {
	resp, err := c.search(ctx, address, true, "geocode")
	if err != nil {
		return model.NotFound, err
	}
	return centroid(resp.Results)
}

func (c *client) Postal(ctx context.Context, address string) (string, error) {
	resp, err := c.search(ctx, address, false, "postal")
	if err != nil {
		return "", err
	}
	for _, r := range resp.Results {
		if r.Postal != NoPostal {
			return r.Postal, nil
		}
	}
	return NoPostal, nil
}

// centroid averages the coordinates of candidates with a postal code.
func centroid(results []candidate) (model.GeoPoint, error) {
	var lat, lon float64
	var n int
	for _, r := range results {
		if r.Postal == NoPostal {
			continue
		}
		la, err := strconv.ParseFloat(r.Latitude, 64)
		if err != nil {
			return model.NotFound, eris.Wrapf(err, "onemap: parse latitude %q", r.Latitude)
		}
		lo, err := strconv.ParseFloat(r.Longitude, 64)
		if err != nil {
			return model.NotFound, eris.Wrapf(err, "onemap: parse longitude %q", r.Longitude)
		}
		lat += la
		lon += lo
		n++
	}
	if n == 0 {
		return model.NotFound, nil
	}
	return model.GeoPoint{Lat: lat / float64(n), Lon: lon / float64(n)}, nil
}

func (c *client) search(ctx context.Context, address string, withGeom bool, op string) (*searchResponse, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrEmptyAddress
	}

	returnGeom := "N"
	if withGeom {
		returnGeom = "Y"
	}
	params := url.Values{
		"searchVal":      {address},
		"returnGeom":     {returnGeom},
		"getAddrDetails": {"Y"},
	}
	reqURL := c.baseURL + "/commonapi/search?" + params.Encode()

	retry := c.retry.WithLogger("onemap", op)
	return resilience.DoVal(ctx, retry, func(ctx context.Context) (*searchResponse, error) {
		return c.get(ctx, reqURL)
	})
}

func (c *client) get(ctx context.Context, reqURL string) (*searchResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "onemap: rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "onemap: build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(err, "onemap: request")
		}
		return nil, resilience.NewTransientError(eris.Wrap(err, "onemap: request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := resilience.CheckStatus(resp, "onemap"); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "onemap: read body"), resp.StatusCode)
	}

	var out searchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "onemap: parse response")
	}
	return &out, nil
}
