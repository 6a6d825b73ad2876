// Package normalize turns untrusted CandidateRecords into canonical
// PlayerRecords. A candidate either passes every check and becomes exactly one
// record, or it is rejected whole; nothing is ever half-cleaned.
package normalize

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/albapepper/mercato-data/internal/market"
)

// Minimum rune counts for accepted names and teams.
const (
	minNameLen = 3
	minTeamLen = 3
)

// ErrRejected matches every *Rejection via errors.Is.
var ErrRejected = errors.New("candidate rejected")

// Rejection reasons.
const (
	ReasonNameTooShort     = "name_too_short"
	ReasonTeamTooShort     = "team_too_short"
	ReasonValueUnparseable = "value_unparseable"
	ReasonValueNotPositive = "value_not_positive"
)

// Rejection explains why a candidate was dropped. Rejections are counted by
// the pipeline, never raised.
type Rejection struct {
	Reason    string
	Candidate market.CandidateRecord
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("reject %q (%s): %s", r.Candidate.RawName, r.Candidate.RawTeam, r.Reason)
}

func (r *Rejection) Is(target error) bool { return target == ErrRejected }

// Meta carries the run-level fields stamped onto every accepted record.
type Meta struct {
	Source string
	Status market.Status
	Now    time.Time
}

// Normalize validates and canonicalizes one candidate.
func Normalize(c market.CandidateRecord, meta Meta) (market.PlayerRecord, error) {
	name := Name(c.RawName)
	team := Team(c.RawTeam)

	if utf8.RuneCountInString(name) < minNameLen {
		return market.PlayerRecord{}, &Rejection{Reason: ReasonNameTooShort, Candidate: c}
	}
	if utf8.RuneCountInString(team) < minTeamLen {
		return market.PlayerRecord{}, &Rejection{Reason: ReasonTeamTooShort, Candidate: c}
	}

	value, err := Value(c.RawValue)
	if err != nil {
		reason := ReasonValueUnparseable
		if errors.Is(err, errNotPositive) {
			reason = ReasonValueNotPositive
		}
		return market.PlayerRecord{}, &Rejection{Reason: reason, Candidate: c}
	}

	status := meta.Status
	if status == "" {
		status = market.StatusAvailable
	}

	return market.PlayerRecord{
		ID:          ID(name, team),
		Name:        name,
		Team:        team,
		Position:    c.Position,
		Value:       value,
		Source:      meta.Source,
		LastUpdated: meta.Now,
		Status:      status,
	}, nil
}

// Name trims, collapses inner whitespace and capitalizes each word.
func Name(raw string) string {
	words := strings.Fields(raw)
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

func capitalize(word string) string {
	r, size := utf8.DecodeRuneInString(word)
	if r == utf8.RuneError {
		return word
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(word[size:])
}

var (
	errEmptyValue  = errors.New("no digits in value")
	errNotPositive = errors.New("value must be positive")
)

// Value strips every non-digit (locale grouping, currency symbols) and parses
// what remains. "15.340.000 €" becomes 15340000.
func Value(raw string) (int64, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, errEmptyValue
	}
	v, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse value %q: %w", raw, err)
	}
	if v <= 0 {
		return 0, errNotPositive
	}
	return v, nil
}

// Team trims and collapses inner whitespace, keeping the site's casing.
func Team(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// Slug lower-cases s and joins its words with single hyphens.
func Slug(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}

// ID derives the stable document id for a player.
func ID(name, team string) string {
	return Slug(team) + "-" + Slug(name)
}
