package extract

import (
	"iter"
	"regexp"
	"strings"

	"github.com/albapepper/mercato-data/internal/fetch"
	"github.com/albapepper/mercato-data/internal/market"
)

// Pattern is a heuristic over flattened page text. It looks for a position
// token, a name run and a bracketed team, then takes the first unsigned
// number after the team as the value. Signed numbers are trend deltas and are
// skipped. Lines that do not fit the shape are dropped silently.
//
//	DEL Danjuma [Valencia] 5.939.063
//	DELDanjuma![Valencia]Valencia 🔎+4.243.8440% 2días5.939.0630
type Pattern struct {
	header *regexp.Regexp
	number *regexp.Regexp
	// maxTail bounds how far past the team token a value is looked for.
	maxTail int
}

// NewPattern compiles the pattern strategy.
func NewPattern() *Pattern {
	return &Pattern{
		header:  regexp.MustCompile(`(?m)(?:^|[^\p{L}])(POR|DEF|MED|DEL|GKP|GK|MID|FWD)[ \t]*(\p{L}[\p{L}'. \t-]*?)[ \t]*!?\[([^\]\n]+)\]`),
		number:  regexp.MustCompile(`[+\-]?\d{1,3}(?:[.,]\d{3})+|[+\-]?\d+`),
		maxTail: 200,
	}
}

func (p *Pattern) Name() string { return "pattern" }

func (p *Pattern) Extract(page fetch.RawPage) iter.Seq[market.CandidateRecord] {
	return func(yield func(market.CandidateRecord) bool) {
		text := page.Text
		matches := p.header.FindAllStringSubmatchIndex(text, -1)
		for i, m := range matches {
			tailEnd := len(text)
			if i+1 < len(matches) {
				tailEnd = matches[i+1][0]
			}
			tail := text[m[1]:tailEnd]
			if len(tail) > p.maxTail {
				tail = tail[:p.maxTail]
			}

			value := p.value(tail)
			if value == "" {
				continue
			}
			c := market.CandidateRecord{
				RawName:  strings.TrimSpace(text[m[4]:m[5]]),
				RawTeam:  strings.TrimSpace(text[m[6]:m[7]]),
				Position: market.ParsePosition(text[m[2]:m[3]]),
				RawValue: value,
			}
			if !yield(c) {
				return
			}
		}
	}
}

// value picks the first unsigned grouped number in tail, falling back to the
// first unsigned plain number.
func (p *Pattern) value(tail string) string {
	plain := ""
	for _, tok := range p.number.FindAllString(tail, -1) {
		if tok[0] == '+' || tok[0] == '-' {
			continue
		}
		if strings.ContainsAny(tok, ".,") {
			return tok
		}
		if plain == "" {
			plain = tok
		}
	}
	return plain
}
