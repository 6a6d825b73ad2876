package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/mercato-data/internal/cache"
	"github.com/albapepper/mercato-data/internal/market"
	"github.com/albapepper/mercato-data/internal/runlog"
	"github.com/albapepper/mercato-data/internal/store"
	"github.com/albapepper/mercato-data/internal/store/memory"
)

type stubPinger struct{ err error }

func (p stubPinger) HealthCheck(context.Context) error { return p.err }

func seeded(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.New().WithClock(func() time.Time {
		return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	})
	err := s.UpsertBatch(context.Background(), []market.PlayerRecord{
		{ID: "fc-barcelona-pedri", Name: "Pedri", Team: "FC Barcelona", Position: market.PositionMID, Value: 15340000, Source: "laliga-fantasy", Status: market.StatusAvailable},
		{ID: "fc-barcelona-ter-stegen", Name: "Ter Stegen", Team: "FC Barcelona", Position: market.PositionGK, Value: 9000000, Source: "laliga-fantasy", Status: market.StatusAvailable},
		{ID: "tottenham-pedro-porro", Name: "Pedro Porro", Team: "Tottenham", Position: market.PositionDEF, Value: 7100200, Source: "laliga-fantasy", Status: market.StatusAvailable},
		{ID: "fc-barcelona-lewandowski", Name: "Lewandowski", Team: "FC Barcelona", Position: market.PositionFWD, Value: 12000000, Source: "laliga-fantasy", Status: market.StatusAvailable},
	})
	require.NoError(t, err)
	return s
}

func TestRank(t *testing.T) {
	docs, err := seeded(t).List(context.Background(), store.Filter{})
	require.NoError(t, err)

	hits := Rank("Pedri", docs)
	require.Len(t, hits, 2)
	assert.Equal(t, "fc-barcelona-pedri", hits[0].ID)
	assert.Equal(t, "tottenham-pedro-porro", hits[1].ID)
	assert.Greater(t, hits[0].Score, 1.0)
	assert.GreaterOrEqual(t, hits[1].Score, MinSimilarity)
}

func TestRankTieBreaks(t *testing.T) {
	docs := []store.Document{
		{ID: "b", Name: "Gavi Paez", Value: 1},
		{ID: "c", Name: "Gavi", Value: 1},
		{ID: "a", Name: "Gavi", Value: 1},
		{ID: "d", Name: "Gavi", Value: 5},
	}
	hits := Rank("gav", docs)
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	assert.Equal(t, []string{"d", "a", "c", "b"}, ids)
}

func TestParseLimit(t *testing.T) {
	n, err := parseLimit("", 20, 100)
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	n, err = parseLimit("1000", 20, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, n)

	for _, raw := range []string{"0", "-3", "ten"} {
		_, err = parseLimit(raw, 20, 100)
		assert.Error(t, err, raw)
	}
}

func TestHealthCheckDB(t *testing.T) {
	tests := []struct {
		name   string
		db     Pinger
		status int
		want   string
	}{
		{"not configured", nil, http.StatusOK, "not_configured"},
		{"connected", stubPinger{}, http.StatusOK, "connected"},
		{"down", stubPinger{err: errors.New("refused")}, http.StatusServiceUnavailable, "disconnected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(memory.New(), nil, tt.db, cache.New(false))
			rec := httptest.NewRecorder()
			h.HealthCheckDB(rec, httptest.NewRequest(http.MethodGet, "/health/db", nil))

			assert.Equal(t, tt.status, rec.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body["database"])
		})
	}
}

func TestListPlayersCachesResponse(t *testing.T) {
	c := cache.New(true)
	defer c.Close()
	s := seeded(t)
	h := New(s, nil, nil, c)

	rec := httptest.NewRecorder()
	h.ListPlayers(rec, httptest.NewRequest(http.MethodGet, "/api/v1/players?limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))

	var resp PlayersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "fc-barcelona-pedri", resp.Players[0].ID)
	assert.Equal(t, "fc-barcelona-lewandowski", resp.Players[1].ID)

	rec = httptest.NewRecorder()
	h.ListPlayers(rec, httptest.NewRequest(http.MethodGet, "/api/v1/players?limit=2", nil))
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/players?limit=2", nil)
	req.Header.Set("If-None-Match", rec.Header().Get("ETag"))
	rec = httptest.NewRecorder()
	h.ListPlayers(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestGetRunsWithoutLog(t *testing.T) {
	h := New(memory.New(), nil, nil, cache.New(false))
	rec := httptest.NewRecorder()
	h.GetRuns(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"runs":[],"count":0}`, rec.Body.String())
}

func TestGetRunsNewestFirst(t *testing.T) {
	log := runlog.NewMemory(5)
	ctx := context.Background()
	for _, ok := range []bool{true, false, true} {
		require.NoError(t, log.Append(ctx, runlog.Entry{Success: ok, Summary: "pages=1"}))
	}
	h := New(memory.New(), log, nil, cache.New(false))

	rec := httptest.NewRecorder()
	h.GetRuns(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs?limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RunsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Runs, 2)
	assert.Equal(t, int64(3), resp.Runs[0].ID)
	assert.Equal(t, int64(2), resp.Runs[1].ID)
	assert.False(t, resp.Runs[1].Success)
}
