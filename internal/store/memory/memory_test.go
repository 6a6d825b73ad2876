package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/mercato-data/internal/market"
	"github.com/albapepper/mercato-data/internal/store"
)

var fixedNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func player(id, name, team string, pos market.Position, value int64) market.PlayerRecord {
	return market.PlayerRecord{
		ID: id, Name: name, Team: team, Position: pos, Value: value,
		Source: "laliga-fantasy", Status: market.StatusAvailable,
	}
}

func seeded(t *testing.T) *Store {
	t.Helper()
	s := New().WithClock(func() time.Time { return fixedNow })
	require.NoError(t, s.UpsertBatch(context.Background(), []market.PlayerRecord{
		player("fc-barcelona-pedri", "Pedri", "FC Barcelona", market.PositionMID, 102165770),
		player("fc-barcelona-ter-stegen", "Ter Stegen", "FC Barcelona", market.PositionGK, 35000000),
		player("valencia-danjuma", "Danjuma", "Valencia", market.PositionFWD, 5939063),
	}))
	return s
}

func TestUpsertPreservesForeignFields(t *testing.T) {
	ctx := context.Background()
	s := New().WithClock(func() time.Time { return fixedNow })
	s.Put("fc-barcelona-pedri", map[string]any{"name": "Pedri", "owner": "user-42", "value": 1})

	require.NoError(t, s.UpsertBatch(ctx, []market.PlayerRecord{
		player("fc-barcelona-pedri", "Pedri", "FC Barcelona", market.PositionMID, 102165770),
	}))

	d, err := s.Get(ctx, "fc-barcelona-pedri")
	require.NoError(t, err)
	assert.Equal(t, int64(102165770), d.Value)
	assert.Equal(t, "MID", d.Position)
	assert.Equal(t, "user-42", d.Raw["owner"])
	assert.True(t, d.LastUpdated.Equal(fixedNow))
}

func TestGetMissing(t *testing.T) {
	_, err := New().Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListOrderingAndFilters(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	all, err := s.List(ctx, store.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "fc-barcelona-pedri", all[0].ID)
	assert.Equal(t, "valencia-danjuma", all[2].ID)

	gk, err := s.List(ctx, store.Filter{Position: "GK"})
	require.NoError(t, err)
	require.Len(t, gk, 1)
	assert.Equal(t, "Ter Stegen", gk[0].Name)

	barca, err := s.List(ctx, store.Filter{Search: "barcel", Limit: 1})
	require.NoError(t, err)
	require.Len(t, barca, 1)
	assert.Equal(t, "Pedri", barca[0].Name)
}

func TestAllDeleteClear(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	var ids []string
	for d, err := range s.All(ctx) {
		require.NoError(t, err)
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"fc-barcelona-pedri", "fc-barcelona-ter-stegen", "valencia-danjuma"}, ids)

	n, err := s.Delete(ctx, []string{"valencia-danjuma", "missing"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestUpsertCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New().UpsertBatch(ctx, []market.PlayerRecord{player("a-b", "B", "A", "", 1)})
	assert.ErrorIs(t, err, context.Canceled)
}
