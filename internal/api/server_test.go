package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/mercato-data/internal/api/handler"
	"github.com/albapepper/mercato-data/internal/cache"
	"github.com/albapepper/mercato-data/internal/config"
	"github.com/albapepper/mercato-data/internal/market"
	"github.com/albapepper/mercato-data/internal/report"
	"github.com/albapepper/mercato-data/internal/store/memory"
)

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	s := memory.New()
	err := s.UpsertBatch(context.Background(), []market.PlayerRecord{
		{ID: "fc-barcelona-pedri", Name: "Pedri", Team: "FC Barcelona", Position: market.PositionMID, Value: 15340000, Source: "laliga-fantasy", Status: market.StatusAvailable},
		{ID: "fc-barcelona-ter-stegen", Name: "Ter Stegen", Team: "FC Barcelona", Position: market.PositionGK, Value: 9000000, Source: "laliga-fantasy", Status: market.StatusAvailable},
		{ID: "rcd-mallorca-muriqi", Name: "Muriqi", Team: "RCD Mallorca", Position: market.PositionFWD, Value: 4000000, Source: "laliga-fantasy", Status: market.StatusOwned},
	})
	require.NoError(t, err)
	if cfg == nil {
		cfg = &config.Config{CORSAllowOrigins: []string{"*"}}
	}
	return NewRouter(handler.New(s, nil, nil, cache.New(false)), cfg)
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestRoutes(t *testing.T) {
	r := newTestRouter(t, nil)

	tests := []struct {
		target string
		status int
	}{
		{"/", http.StatusOK},
		{"/health", http.StatusOK},
		{"/health/db", http.StatusOK},
		{"/health/cache", http.StatusOK},
		{"/api/v1/players", http.StatusOK},
		{"/api/v1/players?position=DEL", http.StatusOK},
		{"/api/v1/players?position=XYZ", http.StatusBadRequest},
		{"/api/v1/players?limit=abc", http.StatusBadRequest},
		{"/api/v1/players/search?q=p", http.StatusBadRequest},
		{"/api/v1/players/search?q=pedri", http.StatusOK},
		{"/api/v1/players/positions", http.StatusOK},
		{"/api/v1/players/fc-barcelona-pedri", http.StatusOK},
		{"/api/v1/players/nobody", http.StatusNotFound},
		{"/api/v1/stats", http.StatusOK},
		{"/api/v1/runs", http.StatusOK},
		{"/api/v1/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := get(t, r, tt.target)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestPositionFilterAcceptsSourceTokens(t *testing.T) {
	rec := get(t, newTestRouter(t, nil), "/api/v1/players?position=DEL")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp handler.PlayersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "rcd-mallorca-muriqi", resp.Players[0].ID)
}

func TestStatsEndpoint(t *testing.T) {
	rec := get(t, newTestRouter(t, nil), "/api/v1/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var st report.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 2, st.Teams)
	assert.Equal(t, int64(15340000), st.MaxValue)
	assert.Equal(t, "fc-barcelona-pedri", st.Top[0].ID)
}

func TestErrorShape(t *testing.T) {
	rec := get(t, newTestRouter(t, nil), "/api/v1/players/nobody")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":{"code":"NOT_FOUND","message":"player \"nobody\" not found"}}`, rec.Body.String())
}

func TestTimingHeader(t *testing.T) {
	rec := get(t, newTestRouter(t, nil), "/health")
	assert.NotEmpty(t, rec.Header().Get("X-Process-Time"))
}

func TestRateLimit(t *testing.T) {
	r := newTestRouter(t, &config.Config{
		CORSAllowOrigins:  []string{"*"},
		RateLimitEnabled:  true,
		RateLimitRequests: 2,
		RateLimitWindow:   time.Minute,
	})

	assert.Equal(t, http.StatusOK, get(t, r, "/health").Code)
	rec := get(t, r, "/health")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}
