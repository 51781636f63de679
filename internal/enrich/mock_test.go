package enrich

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/weijianneo/find-house/internal/model"
	"github.com/weijianneo/find-house/internal/store"
	"github.com/weijianneo/find-house/pkg/distancematrix"
)

// --- Geocoder Mock ---

type mockGeocoder struct {
	mock.Mock
}

func (m *mockGeocoder) Geocode(ctx context.Context, address string) (model.GeoPoint, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(model.GeoPoint), args.Error(1)
}

// --- Router Mock ---

type mockRouter struct {
	mock.Mock
}

func (m *mockRouter) Duration(ctx context.Context, req distancematrix.Request) (int, bool, error) {
	args := m.Called(ctx, req)
	return args.Int(0), args.Bool(1), args.Error(2)
}

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Exists(ctx context.Context, address string) (bool, error) {
	args := m.Called(ctx, address)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) Insert(ctx context.Context, rec model.Record) (bool, error) {
	args := m.Called(ctx, rec)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) List(ctx context.Context, filter store.ListFilter) ([]model.Record, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Record), args.Error(1)
}

func (m *mockStore) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

// geocoderFunc adapts a function to Geocoder.
type geocoderFunc func(ctx context.Context, address string) (model.GeoPoint, error)

func (f geocoderFunc) Geocode(ctx context.Context, address string) (model.GeoPoint, error) {
	return f(ctx, address)
}

func isWalking(req distancematrix.Request) bool { return req.Mode == distancematrix.ModeWalking }
func isTransit(req distancematrix.Request) bool { return req.Mode == distancematrix.ModeTransit }

var (
	walkingReq = mock.MatchedBy(isWalking)
	transitReq = mock.MatchedBy(isTransit)
)
