// Package report summarizes the players collection and renders summaries as
// terminal tables.
package report

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/albapepper/mercato-data/internal/pipeline"
	"github.com/albapepper/mercato-data/internal/runlog"
	"github.com/albapepper/mercato-data/internal/store"
)

// UnknownPosition labels documents without a position.
const UnknownPosition = "unknown"

// Stats describes the collection at one point in time.
type Stats struct {
	Total      int              `json:"total"`
	Teams      int              `json:"teams"`
	TotalValue int64            `json:"totalValue"`
	MinValue   int64            `json:"minValue"`
	MaxValue   int64            `json:"maxValue"`
	AvgValue   int64            `json:"avgValue"`
	ByPosition map[string]int   `json:"byPosition"`
	ByTeam     map[string]int   `json:"byTeam"`
	Top        []store.Document `json:"top"`
}

// Compute scans the collection once. top bounds the Top list.
func Compute(ctx context.Context, coll store.Collection, top int) (Stats, error) {
	st := Stats{ByPosition: map[string]int{}, ByTeam: map[string]int{}}
	var docs []store.Document

	for d, err := range coll.All(ctx) {
		if err != nil {
			return Stats{}, fmt.Errorf("scan players: %w", err)
		}
		st.Total++
		st.TotalValue += d.Value
		if st.Total == 1 || d.Value < st.MinValue {
			st.MinValue = d.Value
		}
		if d.Value > st.MaxValue {
			st.MaxValue = d.Value
		}
		pos := d.Position
		if pos == "" {
			pos = UnknownPosition
		}
		st.ByPosition[pos]++
		st.ByTeam[d.Team]++
		if top > 0 {
			docs = append(docs, d)
		}
	}

	st.Teams = len(st.ByTeam)
	if st.Total > 0 {
		st.AvgValue = st.TotalValue / int64(st.Total)
	}
	if top > 0 {
		slices.SortFunc(docs, func(a, b store.Document) int {
			if c := cmp.Compare(b.Value, a.Value); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
		st.Top = docs[:min(top, len(docs))]
	}
	return st, nil
}

// Render writes the stats as tables.
func Render(w io.Writer, st Stats) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Players collection")
	t.AppendRows([]table.Row{
		{"Players", st.Total},
		{"Teams", st.Teams},
		{"Total value", Euros(st.TotalValue)},
		{"Average value", Euros(st.AvgValue)},
		{"Min / max value", Euros(st.MinValue) + " / " + Euros(st.MaxValue)},
	})
	t.SetStyle(table.StyleRounded)
	t.Render()

	if len(st.ByPosition) > 0 {
		p := table.NewWriter()
		p.SetOutputMirror(w)
		p.AppendHeader(table.Row{"Position", "Players"})
		for _, k := range slices.Sorted(maps.Keys(st.ByPosition)) {
			p.AppendRow(table.Row{k, st.ByPosition[k]})
		}
		p.SetStyle(table.StyleRounded)
		p.Render()
	}

	if len(st.Top) > 0 {
		top := table.NewWriter()
		top.SetOutputMirror(w)
		top.SetTitle(fmt.Sprintf("Top %d by value", len(st.Top)))
		top.AppendHeader(table.Row{"#", "Name", "Team", "Pos", "Value"})
		for i, d := range st.Top {
			top.AppendRow(table.Row{i + 1, d.Name, d.Team, d.Position, Euros(d.Value)})
		}
		top.SetColumnConfigs([]table.ColumnConfig{{Number: 5, Align: text.AlignRight}})
		top.SetStyle(table.StyleRounded)
		top.Render()
	}
}

// RenderRun writes the counts of one pipeline run.
func RenderRun(w io.Writer, res *pipeline.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Scrape run")
	t.AppendRows([]table.Row{
		{"URL", res.URL},
		{"Pages", res.PagesFetched},
		{"Empty pages", res.EmptyPages},
		{"Candidates", res.Candidates},
		{"Accepted", res.Accepted},
		{"Rejected", res.RejectedTotal()},
		{"Unique", res.Unique},
		{"Written", fmt.Sprintf("%d in %d chunks", res.Written, res.Chunks)},
		{"Duration", res.Duration.Round(time.Millisecond).String()},
	})
	for _, reason := range slices.Sorted(maps.Keys(res.Rejected)) {
		t.AppendRow(table.Row{"  " + reason, res.Rejected[reason]})
	}
	for _, e := range res.Errors {
		t.AppendRow(table.Row{"Error", e})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

// RenderRuns writes run log entries, newest first.
func RenderRuns(w io.Writer, entries []runlog.Entry) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Recent runs")
	t.AppendHeader(table.Row{"ID", "Started", "Duration", "OK", "Summary"})
	for _, e := range entries {
		ok := "yes"
		if !e.Success {
			ok = "no"
		}
		t.AppendRow(table.Row{
			e.ID,
			e.StartedAt.UTC().Format(time.DateTime),
			e.FinishedAt.Sub(e.StartedAt).Round(time.Second).String(),
			ok,
			e.Summary,
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 5, WidthMax: 80}})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

// Euros formats v with dot thousands separators, the way the source shows
// market values.
func Euros(v int64) string {
	s := strconv.FormatInt(v, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := b.String() + " €"
	if neg {
		return "-" + out
	}
	return out
}
