package handler

import (
	"cmp"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
	"github.com/go-chi/chi/v5"

	"github.com/albapepper/mercato-data/internal/api/respond"
	"github.com/albapepper/mercato-data/internal/cache"
	"github.com/albapepper/mercato-data/internal/market"
	"github.com/albapepper/mercato-data/internal/report"
	"github.com/albapepper/mercato-data/internal/store"
)

// Listing limits.
const (
	DefaultListLimit   = 100
	MaxListLimit       = 500
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
	MinQueryLen        = 2

	// MinSimilarity is the Jaro-Winkler score below which a name that does
	// not contain the query is dropped from search results.
	MinSimilarity = 0.85
)

// PlayersResponse wraps a list of players.
type PlayersResponse struct {
	Players []store.Document `json:"players"`
	Count   int              `json:"count"`
}

// SearchHit is one ranked search result.
type SearchHit struct {
	store.Document
	Score float64 `json:"score"`
}

// SearchResponse wraps ranked search results.
type SearchResponse struct {
	Query   string      `json:"query"`
	Results []SearchHit `json:"results"`
	Count   int         `json:"count"`
}

// ListPlayers returns players ordered by market value.
// @Summary List players
// @Description Returns players ordered by market value (highest first), optionally filtered by position or a name/team substring.
// @Tags players
// @Produce json
// @Param position query string false "Position filter" Enums(GK, DEF, MID, FWD, POR, MED, DEL)
// @Param search query string false "Case-insensitive name or team substring"
// @Param limit query int false "Maximum results (default 100, max 500)"
// @Success 200 {object} PlayersResponse
// @Failure 400 {object} respond.ErrorResponse
// @Router /api/v1/players [get]
func (h *Handler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	position := ""
	if raw := strings.TrimSpace(q.Get("position")); raw != "" {
		p := market.ParsePosition(raw)
		if !p.Known() {
			respond.Fail(w, respond.CodeInvalidPosition, "position must be one of GK, DEF, MID, FWD")
			return
		}
		position = string(p)
	}

	limit, err := parseLimit(q.Get("limit"), DefaultListLimit, MaxListLimit)
	if err != nil {
		respond.Fail(w, respond.CodeInvalidLimit, err.Error())
		return
	}

	search := strings.TrimSpace(q.Get("search"))
	key := fmt.Sprintf("players:%s:%s:%d", position, strings.ToLower(search), limit)

	h.serveCached(w, r, key, h.ttl, func() (any, bool) {
		docs, err := h.players.List(r.Context(), store.Filter{Position: position, Search: search, Limit: limit})
		if err != nil {
			respond.QueryFailed(w, "Failed to list players", err)
			return nil, false
		}
		if docs == nil {
			docs = []store.Document{}
		}
		return PlayersResponse{Players: docs, Count: len(docs)}, true
	})
}

// GetPlayer returns one player by id.
// @Summary Get player
// @Description Returns one player document by its derived id (team-slug-name-slug).
// @Tags players
// @Produce json
// @Param id path string true "Player id" example(fc-barcelona-pedri)
// @Success 200 {object} store.Document
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/players/{id} [get]
func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	h.serveCached(w, r, "player:"+id, h.ttl, func() (any, bool) {
		doc, err := h.players.Get(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			respond.Failf(w, respond.CodeNotFound, "player %q not found", id)
			return nil, false
		}
		if err != nil {
			respond.QueryFailed(w, "Failed to load player", err)
			return nil, false
		}
		return doc, true
	})
}

// GetPositions returns player counts per position.
// @Summary Players per position
// @Description Returns how many players are stored for each position. Players without a position are counted under "unknown".
// @Tags players
// @Produce json
// @Success 200 {object} map[string]int
// @Router /api/v1/players/positions [get]
func (h *Handler) GetPositions(w http.ResponseWriter, r *http.Request) {
	h.serveCached(w, r, "positions", cache.TTLStats, func() (any, bool) {
		st, err := report.Compute(r.Context(), h.players, 0)
		if err != nil {
			respond.QueryFailed(w, "Failed to count positions", err)
			return nil, false
		}
		return map[string]any{"positions": st.ByPosition, "total": st.Total}, true
	})
}

// SearchPlayers ranks players by name similarity.
// @Summary Search players
// @Description Fuzzy name search. Names containing the query rank first, then by Jaro-Winkler similarity, shorter name, and market value.
// @Tags players
// @Produce json
// @Param q query string true "Query, at least 2 characters"
// @Param limit query int false "Maximum results (default 20, max 100)"
// @Success 200 {object} SearchResponse
// @Failure 400 {object} respond.ErrorResponse
// @Router /api/v1/players/search [get]
func (h *Handler) SearchPlayers(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if utf8.RuneCountInString(query) < MinQueryLen {
		respond.Failf(w, respond.CodeQueryTooShort, "q must be at least %d characters", MinQueryLen)
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"), DefaultSearchLimit, MaxSearchLimit)
	if err != nil {
		respond.Fail(w, respond.CodeInvalidLimit, err.Error())
		return
	}

	key := fmt.Sprintf("search:%s:%d", strings.ToLower(query), limit)
	h.serveCached(w, r, key, h.ttl, func() (any, bool) {
		docs, err := h.players.List(r.Context(), store.Filter{})
		if err != nil {
			respond.QueryFailed(w, "Failed to search players", err)
			return nil, false
		}
		hits := Rank(query, docs)
		if len(hits) > limit {
			hits = hits[:limit]
		}
		return SearchResponse{Query: query, Results: hits, Count: len(hits)}, true
	})
}

// Rank scores docs against query and returns the matches best first.
func Rank(query string, docs []store.Document) []SearchHit {
	q := strings.ToLower(strings.TrimSpace(query))
	hits := make([]SearchHit, 0)
	for _, d := range docs {
		name := strings.ToLower(d.Name)
		score := similarity(q, name)
		if strings.Contains(name, q) {
			score += 1
		} else if score < MinSimilarity {
			continue
		}
		hits = append(hits, SearchHit{Document: d, Score: score})
	}

	slices.SortStableFunc(hits, func(a, b SearchHit) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(utf8.RuneCountInString(a.Name), utf8.RuneCountInString(b.Name)); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return hits
}

// similarity is the best Jaro-Winkler score of q against the full name and
// each of its words, so a surname alone still matches.
func similarity(q, name string) float64 {
	best := matchr.JaroWinkler(q, name, false)
	for _, word := range strings.Fields(name) {
		if s := matchr.JaroWinkler(q, word, false); s > best {
			best = s
		}
	}
	return best
}

func parseLimit(raw string, def, max int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	return min(n, max), nil
}
