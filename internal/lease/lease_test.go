package lease

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/weijianneo/find-house/pkg/onemap"
)

type mockPostal struct {
	mock.Mock
}

func (m *mockPostal) Postal(ctx context.Context, address string) (string, error) {
	args := m.Called(ctx, address)
	return args.String(0), args.Error(1)
}

type mockLease struct {
	mock.Mock
}

func (m *mockLease) LeaseRemaining(ctx context.Context, postal string) (int, bool, error) {
	args := m.Called(ctx, postal)
	return args.Int(0), args.Bool(1), args.Error(2)
}

func TestResolve(t *testing.T) {
	postal := new(mockPostal)
	postal.On("Postal", mock.Anything, "123 BISHAN ST 12").Return("570123", nil)
	hdb := new(mockLease)
	hdb.On("LeaseRemaining", mock.Anything, "570123").Return(61, true, nil)

	res, err := NewResolver(postal, hdb).Resolve(context.Background(), "123 Bishan St 12")
	require.NoError(t, err)
	assert.Equal(t, Result{Address: "123 BISHAN ST 12", Postal: "570123", Years: 61, Found: true}, res)
}

func TestResolve_NoPostal(t *testing.T) {
	postal := new(mockPostal)
	postal.On("Postal", mock.Anything, "NOWHERE").Return(onemap.NoPostal, nil)
	hdb := new(mockLease)

	res, err := NewResolver(postal, hdb).Resolve(context.Background(), "NOWHERE")
	require.NoError(t, err)
	assert.Zero(t, res.Years)
	assert.False(t, res.Found)
	hdb.AssertNotCalled(t, "LeaseRemaining", mock.Anything, mock.Anything)
}

func TestResolve_LeaseMissing(t *testing.T) {
	postal := new(mockPostal)
	postal.On("Postal", mock.Anything, "1 RAFFLES PLACE").Return("048616", nil)
	hdb := new(mockLease)
	hdb.On("LeaseRemaining", mock.Anything, "048616").Return(0, false, nil)

	res, err := NewResolver(postal, hdb).Resolve(context.Background(), "1 RAFFLES PLACE")
	require.NoError(t, err)
	assert.Equal(t, "048616", res.Postal)
	assert.Zero(t, res.Years)
	assert.False(t, res.Found)
}

func TestResolve_Errors(t *testing.T) {
	boom := errors.New("boom")

	postal := new(mockPostal)
	postal.On("Postal", mock.Anything, "A").Return("", boom)
	_, err := NewResolver(postal, new(mockLease)).Resolve(context.Background(), "A")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lease: postal lookup")

	postal = new(mockPostal)
	postal.On("Postal", mock.Anything, "B").Return("123456", nil)
	hdb := new(mockLease)
	hdb.On("LeaseRemaining", mock.Anything, "123456").Return(0, false, boom)
	_, err = NewResolver(postal, hdb).Resolve(context.Background(), "B")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lease: lookup 123456")
}

func TestRun_PreservesOrder(t *testing.T) {
	postal := new(mockPostal)
	postal.On("Postal", mock.Anything, "C").Return("300000", nil)
	postal.On("Postal", mock.Anything, "A").Return("100000", nil)
	postal.On("Postal", mock.Anything, "B").Return("", errors.New("down"))
	hdb := new(mockLease)
	hdb.On("LeaseRemaining", mock.Anything, "300000").Return(30, true, nil)
	hdb.On("LeaseRemaining", mock.Anything, "100000").Return(10, true, nil)

	results, err := Run(context.Background(), NewResolver(postal, hdb), []string{"c", "A", "B", "C "}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "C", results[0].Address)
	assert.Equal(t, 30, results[0].Years)
	assert.Equal(t, "A", results[1].Address)
	assert.Equal(t, 10, results[1].Years)
	assert.Equal(t, "B", results[2].Address)
	assert.Contains(t, results[2].Err, "down")
	postal.AssertNumberOfCalls(t, "Postal", 3)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, NewResolver(new(mockPostal), new(mockLease)), []string{"A"}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lease: run cancelled")
}
