package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weijianneo/find-house/internal/model"
)

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("InsertThenExists", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		exists, err := s.Exists(ctx, "1 RAFFLES PLACE")
		require.NoError(t, err)
		assert.False(t, exists)

		ok, err := s.Insert(ctx, model.Record{
			Address:     "1 RAFFLES PLACE",
			Station:     "RAFFLES PLACE",
			WalkMinutes: 5,
			WorkMinutes: 25,
		})
		require.NoError(t, err)
		assert.True(t, ok)

		exists, err = s.Exists(ctx, "1 RAFFLES PLACE")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("DuplicateInsertIsNoOp", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		first := model.Record{Address: "10 ANSON ROAD", Station: "TANJONG PAGAR", WalkMinutes: 4, WorkMinutes: 30}
		ok, err := s.Insert(ctx, first)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = s.Insert(ctx, model.Record{Address: "10 ANSON ROAD", Station: "RAFFLES PLACE", WalkMinutes: 9, WorkMinutes: 99})
		require.NoError(t, err)
		assert.False(t, ok)

		recs, err := s.List(ctx, ListFilter{})
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, "TANJONG PAGAR", recs[0].Station, "existing record is never overwritten")
		assert.Equal(t, 4, recs[0].WalkMinutes)
		assert.False(t, recs[0].CreatedAt.IsZero())
	})

	t.Run("ListFilterByStation", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, r := range []model.Record{
			{Address: "B ADDRESS", Station: "BISHAN", WalkMinutes: 1, WorkMinutes: 40},
			{Address: "A ADDRESS", Station: "BISHAN", WalkMinutes: 2, WorkMinutes: 41},
			{Address: "C ADDRESS", Station: "CITY HALL", WalkMinutes: 3, WorkMinutes: 10},
		} {
			_, err := s.Insert(ctx, r)
			require.NoError(t, err)
		}

		recs, err := s.List(ctx, ListFilter{Station: "BISHAN"})
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "A ADDRESS", recs[0].Address)
		assert.Equal(t, "B ADDRESS", recs[1].Address)

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})
}
