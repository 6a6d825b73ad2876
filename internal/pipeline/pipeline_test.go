package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/mercato-data/internal/extract"
	"github.com/albapepper/mercato-data/internal/fetch"
	"github.com/albapepper/mercato-data/internal/market"
	"github.com/albapepper/mercato-data/internal/sink"
	"github.com/albapepper/mercato-data/internal/store"
	"github.com/albapepper/mercato-data/internal/store/memory"
)

// pages is a Fetcher serving fixed markup, one RawPage per entry.
type pages struct {
	markup []string
	err    error
}

func (p pages) Fetch(_ context.Context, url string, yield func(fetch.RawPage) error) error {
	for i, m := range p.markup {
		if err := yield(fetch.NewRawPage(i+1, url, m)); err != nil {
			return err
		}
	}
	return p.err
}

func card(name, team, value string) string {
	return fmt.Sprintf(`<div class="elemento_jugador" data-nombre=%q data-valor=%q data-posicion="MED">
  <div>%s</div>
  <div>%s</div>
</div>`, name, value, name, team)
}

func newPipeline(f fetch.Fetcher, st *memory.Store) *Pipeline {
	return &Pipeline{
		Fetcher:   f,
		Extractor: extract.New(extract.DefaultThreshold),
		Writer:    sink.NewWriter(st, sink.DefaultChunkSize, nil),
		Source:    "laliga-fantasy",
		Clock:     func() time.Time { return time.Date(2026, 10, 19, 6, 0, 0, 0, time.UTC) },
	}
}

func TestRunDeduplicatesAcrossPages(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	f := pages{markup: []string{
		"<html><body>" + card("Pedri", "FC Barcelona", "102.165.770") + "</body></html>",
		"<html><body>" + card("Pedri", "FC Barcelona", "102.165.770") + card("Ter Stegen", "FC Barcelona", "35.000.000") + "</body></html>",
	}}

	res, err := newPipeline(f, st).Run(ctx, "https://example.test/mercado")
	require.NoError(t, err)

	assert.Equal(t, 2, res.PagesFetched)
	assert.Equal(t, 3, res.Candidates)
	assert.Equal(t, 3, res.Accepted)
	assert.Equal(t, 2, res.Unique)
	assert.Equal(t, 2, res.Written)
	assert.Equal(t, 1, res.Chunks)
	assert.Equal(t, map[string]int{"structural": 2}, res.Strategies)

	docs, err := st.List(ctx, store.Filter{})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "fc-barcelona-pedri", docs[0].ID)
	assert.Equal(t, int64(102165770), docs[0].Value)
	assert.Equal(t, "fc-barcelona-ter-stegen", docs[1].ID)
	assert.Equal(t, int64(35000000), docs[1].Value)
	assert.Equal(t, "laliga-fantasy", docs[1].Source)
	assert.Equal(t, string(market.StatusAvailable), docs[1].Status)
}

func TestRunCountsRejections(t *testing.T) {
	st := memory.New()
	f := pages{markup: []string{
		card("Pedri", "FC Barcelona", "102.165.770") + card("Al", "FC Barcelona", "1") + card("Gavi", "FC Barcelona", "0") + card("Nico", "FC Barcelona", "n/a"),
	}}

	res, err := newPipeline(f, st).Run(context.Background(), "u")
	require.NoError(t, err)

	assert.Equal(t, 4, res.Candidates)
	assert.Equal(t, 1, res.Accepted)
	assert.Equal(t, 3, res.RejectedTotal())
	assert.Equal(t, 1, res.Rejected["name_too_short"])
	assert.Equal(t, 1, res.Rejected["value_not_positive"])
	assert.Equal(t, 1, res.Rejected["value_unparseable"])
	assert.Contains(t, res.Summary(), "reasons=name_too_short:1,value_not_positive:1,value_unparseable:1")
}

func TestRunNothingToWrite(t *testing.T) {
	st := memory.New()
	cleared := false
	p := newPipeline(pages{markup: []string{"<p>cerrado por mantenimiento</p>"}}, st)
	p.Clear = func(context.Context) (int, error) {
		cleared = true
		return 0, nil
	}

	res, err := p.Run(context.Background(), "u")
	assert.ErrorIs(t, err, ErrNothingToWrite)
	assert.Equal(t, 1, res.EmptyPages)
	assert.False(t, cleared, "collection must survive an empty scrape")
}

func TestRunFetchFailureWritesNothing(t *testing.T) {
	st := memory.New()
	fetchErr := &fetch.FetchError{Kind: fetch.KindTimeout, URL: "u", Err: context.DeadlineExceeded}
	f := pages{markup: []string{card("Pedri", "FC Barcelona", "1.000")}, err: fetchErr}

	res, err := newPipeline(f, st).Run(context.Background(), "u")
	require.Error(t, err)
	assert.ErrorIs(t, err, fetch.ErrTimeout)
	assert.Equal(t, 1, res.PagesFetched)
	assert.Zero(t, res.Written)

	n, _ := st.Count(context.Background())
	assert.Zero(t, n)
}

type failingStore struct{}

func (failingStore) UpsertBatch(context.Context, []market.PlayerRecord) error {
	return errors.New("connection reset")
}

func TestRunSinkFailure(t *testing.T) {
	p := newPipeline(pages{markup: []string{card("Pedri", "FC Barcelona", "1.000")}}, nil)
	p.Writer = sink.NewWriter(failingStore{}, 0, nil)

	res, err := p.Run(context.Background(), "u")
	assert.ErrorIs(t, err, sink.ErrBatchCommitFailed)
	assert.Zero(t, res.Written)
	require.NotEmpty(t, res.Errors)
	assert.True(t, strings.HasPrefix(res.Errors[0], "write:"))
}

func TestRunClearsBeforeWrite(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	st.Put("old-player", map[string]any{"name": "Old"})

	p := newPipeline(pages{markup: []string{card("Pedri", "FC Barcelona", "1.000")}}, st)
	p.Clear = st.Clear

	res, err := p.Run(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Cleared)

	_, err = st.Get(ctx, "old-player")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.Get(ctx, "fc-barcelona-pedri")
	assert.NoError(t, err)
}
