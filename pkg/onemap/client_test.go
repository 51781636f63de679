package onemap

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/weijianneo/find-house/internal/model"
	"github.com/weijianneo/find-house/internal/resilience"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &client{
		baseURL:    srv.URL,
		httpClient: srv.Client(),
		limiter:    rate.NewLimiter(rate.Inf, 1),
		retry:      resilience.NoWaitRetryConfig(8),
	}
}

func TestGeocode_AveragesCandidates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/commonapi/search", r.URL.Path)
		assert.Equal(t, "1 RAFFLES PLACE", r.URL.Query().Get("searchVal"))
		assert.Equal(t, "Y", r.URL.Query().Get("returnGeom"))
		assert.Equal(t, "Y", r.URL.Query().Get("getAddrDetails"))
		_, _ = io.WriteString(w, `{"found":3,"results":[
			{"POSTAL":"048616","LATITUDE":"1.2840","LONGITUDE":"103.8510"},
			{"POSTAL":"NIL","LATITUDE":"9.0","LONGITUDE":"9.0"},
			{"POSTAL":"048617","LATITUDE":"1.2850","LONGITUDE":"103.8520"}
		]}`)
	})

	p, err := c.Geocode(context.Background(), "1 RAFFLES PLACE")
	require.NoError(t, err)
	assert.InDelta(t, 1.2845, p.Lat, 1e-9)
	assert.InDelta(t, 103.8515, p.Lon, 1e-9)
}

func TestGeocode_EncodesQuery(t *testing.T) {
	var rawQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		_, _ = io.WriteString(w, `{"found":0,"results":[]}`)
	})

	_, err := c.Geocode(context.Background(), "BLK 1 & 2 #03-01")
	require.NoError(t, err)
	assert.Contains(t, rawQuery, "searchVal=BLK+1+%26+2+%2303-01")
}

func TestGeocode_OnlyNilCandidates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"found":1,"results":[{"POSTAL":"NIL","LATITUDE":"1.3","LONGITUDE":"103.8"}]}`)
	})

	p, err := c.Geocode(context.Background(), "SOMEWHERE")
	require.NoError(t, err)
	assert.True(t, p.IsNotFound())
}

func TestGeocode_NoResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"found":0,"totalNumPages":0,"pageNum":1,"results":[]}`)
	})

	p, err := c.Geocode(context.Background(), "NOWHERE")
	require.NoError(t, err)
	assert.Equal(t, model.NotFound, p)
}

func TestGeocode_EmptyAddress(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(http.ResponseWriter, *http.Request) { calls.Add(1) })

	_, err := c.Geocode(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyAddress))
	assert.Zero(t, calls.Load())
}

func TestGeocode_SucceedsOnEighthAttempt(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 8 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"found":1,"results":[{"POSTAL":"048616","LATITUDE":"1.2840","LONGITUDE":"103.8514"}]}`)
	})

	p, err := c.Geocode(context.Background(), "1 RAFFLES PLACE")
	require.NoError(t, err)
	assert.Equal(t, model.GeoPoint{Lat: 1.2840, Lon: 103.8514}, p)
	assert.Equal(t, int32(8), calls.Load())
}

func TestGeocode_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Geocode(context.Background(), "1 RAFFLES PLACE")
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
	assert.Contains(t, err.Error(), "status 429")
	assert.Equal(t, int32(8), calls.Load())
}

func TestGeocode_MalformedJSONNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `<html>maintenance</html>`)
	})

	_, err := c.Geocode(context.Background(), "1 RAFFLES PLACE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "onemap: parse response")
	assert.Equal(t, int32(1), calls.Load())
}

func TestGeocode_BadCoordinate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"found":1,"results":[{"POSTAL":"048616","LATITUDE":"north","LONGITUDE":"103.8"}]}`)
	})

	_, err := c.Geocode(context.Background(), "1 RAFFLES PLACE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse latitude")
}

func TestPostal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "N", r.URL.Query().Get("returnGeom"))
		_, _ = io.WriteString(w, `{"found":2,"results":[
			{"POSTAL":"NIL"},
			{"POSTAL":"560123"}
		]}`)
	})

	postal, err := c.Postal(context.Background(), "123 BISHAN ST 12")
	require.NoError(t, err)
	assert.Equal(t, "560123", postal)
}

func TestPostal_None(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"found":1,"results":[{"POSTAL":"NIL"}]}`)
	})

	postal, err := c.Postal(context.Background(), "PULAU UBIN")
	require.NoError(t, err)
	assert.Equal(t, NoPostal, postal)
}

func TestNewClient_Options(t *testing.T) {
	hc := &http.Client{}
	c := NewClient(
		WithBaseURL("http://localhost:9999/"),
		WithHTTPClient(hc),
		WithRateLimit(2),
		WithRetry(resilience.NoWaitRetryConfig(3)),
	).(*client)

	assert.Equal(t, "http://localhost:9999", c.baseURL)
	assert.Same(t, hc, c.httpClient)
	assert.Equal(t, rate.Limit(2), c.limiter.Limit())
	assert.Equal(t, 3, c.retry.MaxAttempts)
	assert.True(t, c.retry.NoWait)
}

// closeConn drops the connection without writing a response.
func closeConn(t *testing.T, w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !assert.True(t, ok) {
		return
	}
	conn, _, err := hj.Hijack()
	if assert.NoError(t, err) {
		_ = conn.Close()
	}
}

func TestGeocode_RetriesDroppedConnection(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			closeConn(t, w)
			return
		}
		_, _ = io.WriteString(w, `{"found":1,"results":[{"POSTAL":"048616","LATITUDE":"1.2840","LONGITUDE":"103.8514"}]}`)
	})

	p, err := c.Geocode(context.Background(), "1 RAFFLES PLACE")
	require.NoError(t, err)
	assert.Equal(t, model.GeoPoint{Lat: 1.2840, Lon: 103.8514}, p)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGeocode_DroppedConnectionExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		closeConn(t, w)
	})

	_, err := c.Geocode(context.Background(), "1 RAFFLES PLACE")
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
	assert.Contains(t, err.Error(), "onemap: request")
	assert.Equal(t, int32(8), calls.Load())
}
