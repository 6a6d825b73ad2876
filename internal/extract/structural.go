package extract

import (
	"iter"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/albapepper/mercato-data/internal/fetch"
	"github.com/albapepper/mercato-data/internal/htmlutil"
	"github.com/albapepper/mercato-data/internal/market"
)

// Selectors for the two markup layouts the source has served.
const (
	cardSelector     = "div.elemento_jugador"
	tableRowSelector = "table#market-table-info tbody tr"
)

// Structural reads player cards and the legacy market table by selector.
type Structural struct{}

func (Structural) Name() string { return "structural" }

func (Structural) Extract(page fetch.RawPage) iter.Seq[market.CandidateRecord] {
	return func(yield func(market.CandidateRecord) bool) {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
		if err != nil {
			return
		}

		stopped := false
		doc.Find(cardSelector).EachWithBreak(func(_ int, card *goquery.Selection) bool {
			c, ok := fromCard(card)
			if !ok {
				return true
			}
			stopped = !yield(c)
			return !stopped
		})
		if stopped {
			return
		}

		doc.Find(tableRowSelector).EachWithBreak(func(_ int, row *goquery.Selection) bool {
			c, ok := fromTableRow(row)
			if !ok {
				return true
			}
			return yield(c)
		})
	}
}

// fromCard reads the data attributes of a player card. The team name is not
// an attribute; it is the second text line of the card unless that line is a
// trend figure or icon, in which case the numeric team id is used.
func fromCard(card *goquery.Selection) (market.CandidateRecord, bool) {
	name := collapse(card.AttrOr("data-nombre", ""))
	if name == "" {
		return market.CandidateRecord{}, false
	}

	team := collapse(card.AttrOr("data-equipo-nombre", ""))
	if team == "" {
		team = teamFromText(card)
	}
	if team == "" {
		team = "Equipo_" + strings.TrimSpace(card.AttrOr("data-equipo", ""))
	}

	pos := card.AttrOr("data-posicion", "")
	if pos == "" {
		pos = card.AttrOr("data-position", "")
	}

	return market.CandidateRecord{
		RawName:  name,
		RawTeam:  team,
		Position: market.ParsePosition(pos),
		RawValue: strings.TrimSpace(card.AttrOr("data-valor", "")),
	}, true
}

func teamFromText(card *goquery.Selection) string {
	markup, err := goquery.OuterHtml(card)
	if err != nil {
		return ""
	}
	lines := strings.Split(htmlutil.FlattenText(markup), "\n")
	if len(lines) < 2 {
		return ""
	}
	line := strings.TrimSpace(lines[1])
	if line == "" || strings.HasPrefix(line, "+") || strings.Contains(line, "🔎") || allDigits(line) {
		return ""
	}
	return line
}

// fromTableRow reads a row of the legacy table: the second cell holds a name
// link and a team span, the fourth holds the value.
func fromTableRow(row *goquery.Selection) (market.CandidateRecord, bool) {
	cells := row.Find("td")
	if cells.Length() < 4 {
		return market.CandidateRecord{}, false
	}
	who := cells.Eq(1)
	name := collapse(who.Find("a").First().Text())
	team := collapse(who.Find("span.team-name").First().Text())
	if name == "" || team == "" {
		return market.CandidateRecord{}, false
	}

	pos := market.ParsePosition(row.Find("td.position").First().Text())
	if !pos.Known() {
		pos = market.ParsePosition(cells.Eq(0).Text())
	}

	return market.CandidateRecord{
		RawName:  name,
		RawTeam:  team,
		Position: pos,
		RawValue: strings.TrimSpace(cells.Eq(3).Text()),
	}, true
}

// collapse trims s and folds whitespace runs, including markup line breaks,
// into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
