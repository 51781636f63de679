// Package distancematrix queries the Google Distance Matrix API for travel
// durations between two locations.
package distancematrix

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

// DefaultBaseURL is the Google Maps API host.
const DefaultBaseURL = "https://maps.googleapis.com"

// DefaultRegion biases place-name lookups toward Singapore.
const DefaultRegion = "SG"

// Mode is the travel mode of a request.
type Mode string

const (
	ModeWalking Mode = "walking"
	ModeTransit Mode = "transit"
)

// Location is either a coordinate or a free-text place name.
type Location struct {
	point model.GeoPoint
	place string
}

// Point returns a coordinate location.
func Point(p model.GeoPoint) Location {
	return Location{point: p}
}

// Place returns a place-name location.
func Place(name string) Location {
	return Location{place: name}
}

// String renders the location the way the API expects it.
func (l Location) String() string {
	if l.place != "" {
		return l.place
	}
	return l.point.String()
}

// Request describes one origin/destination pair. Set at most one of
// DepartureTime and ArrivalTime; ArrivalTime wins if both are set.
type Request struct {
	Origin        Location
	Destination   Location
	Mode          Mode
	DepartureTime time.Time
	ArrivalTime   time.Time
}

// Client returns travel durations.
type Client interface {
	// Duration returns whole minutes (seconds/60, truncated). ok is false
	// when the provider had no route for the pair.
	Duration(ctx context.Context, req Request) (minutes int, ok bool, err error)
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

// WithRegion sets the region bias.
func WithRegion(region string) Option {
	return func(c *client) {
		c.region = region
	}
}

type client struct {
	apiKey     string
	baseURL    string
	region     string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
}

// NewClient creates a Distance Matrix Client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		region:     DefaultRegion,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(10, 10),
		retry:      resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type matrixResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	Rows         []struct {
		Elements []element `json:"elements"`
	} `json:"rows"`
}

type element struct {
	Status   string `json:"status"`
	Duration *struct {
		Value int    `json:"value"`
		Text  string `json:"text"`
	} `json:"duration"`
}

func (c *client) Duration(ctx context.Context, req Request) (int, bool, error) {
	params := url.Values{
		"origins":      {req.Origin.String()},
		"destinations": {req.Destination.String()},
		"mode":         {string(req.Mode)},
		"units":        {"metric"},
		"key":          {c.apiKey},
	}
	if c.region != "" {
		params.Set("region", c.region)
	}
	switch {
	case !req.ArrivalTime.IsZero():
		params.Set("arrival_time", strconv.FormatInt(req.ArrivalTime.Unix(), 10))
	case !req.DepartureTime.IsZero():
		params.Set("departure_time", strconv.FormatInt(req.DepartureTime.Unix(), 10))
	}
	reqURL := c.baseURL + "/maps/api/distancematrix/json?" + params.Encode()

	retry := c.retry.WithLogger("distancematrix", string(req.Mode))
	resp, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*matrixResponse, error) {
		return c.get(ctx, reqURL)
	})
	if err != nil {
		return 0, false, err
	}

	seconds, ok := resp.seconds()
	if !ok {
		return 0, false, nil
	}
	return seconds / 60, true, nil
}

// seconds extracts rows[0].elements[0].duration.value.
func (r *matrixResponse) seconds() (int, bool) {
	if len(r.Rows) == 0 || len(r.Rows[0].Elements) == 0 {
		return 0, false
	}
	el := r.Rows[0].Elements[0]
	if el.Status != "OK" || el.Duration == nil {
		return 0, false
	}
	return el.Duration.Value, true
}

func (c *client) get(ctx context.Context, reqURL string) (*matrixResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "distancematrix: rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "distancematrix: build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(err, "distancematrix: request")
		}
		return nil, resilience.NewTransientError(eris.Wrap(err, "distancematrix: request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := resilience.CheckStatus(resp, "distancematrix"); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "distancematrix: read body"), resp.StatusCode)
	}

	var out matrixResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "distancematrix: parse response")
	}

	switch out.Status {
	case "OK":
		return &out, nil
	case "OVER_QUERY_LIMIT", "UNKNOWN_ERROR":
		return nil, resilience.NewTransientError(
			eris.Errorf("distancematrix: status %s", out.Status), resp.StatusCode)
	default:
		return nil, eris.Errorf("distancematrix: status %s: %s", out.Status, out.ErrorMessage)
	}
}
