// Package market defines the canonical player-market shapes every stage of
// the ingest pipeline speaks. Extractors produce CandidateRecords, the
// normalizer turns them into PlayerRecords, and the sink writes PlayerRecords
// into the players collection.
//
// Adding a new source means producing CandidateRecords. The normalizer, the
// deduplicator and the store never change.
package market

import (
	"strings"
	"time"
)

// Position is a player's role on the pitch.
type Position string

const (
	PositionGK      Position = "GK"
	PositionDEF     Position = "DEF"
	PositionMID     Position = "MID"
	PositionFWD     Position = "FWD"
	PositionUnknown Position = ""
)

// positionTokens maps source tokens (Spanish and English) to positions.
var positionTokens = map[string]Position{
	"POR": PositionGK,
	"GK":  PositionGK,
	"GKP": PositionGK,
	"DEF": PositionDEF,
	"MED": PositionMID,
	"MID": PositionMID,
	"DEL": PositionFWD,
	"FWD": PositionFWD,
}

// ParsePosition maps a raw token to a Position. Unrecognized tokens map to
// PositionUnknown.
func ParsePosition(token string) Position {
	if p, ok := positionTokens[strings.ToUpper(strings.TrimSpace(token))]; ok {
		return p
	}
	return PositionUnknown
}

// Known reports whether the position carries information.
func (p Position) Known() bool { return p != PositionUnknown }

// Status is the market availability of a player.
type Status string

const (
	StatusAvailable Status = "available"
	StatusOwned     Status = "owned"
)

// CandidateRecord is one untrusted match found on a page. Every field is
// verbatim from the source; nothing has been validated yet.
type CandidateRecord struct {
	RawName  string
	RawTeam  string
	Position Position
	RawValue string
}

// PlayerRecord is the canonical player shape written to the players
// collection. ID is derived from Name and Team and is the dedup key.
type PlayerRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Team        string    `json:"team"`
	Position    Position  `json:"position,omitempty"`
	Value       int64     `json:"value"`
	Source      string    `json:"source"`
	LastUpdated time.Time `json:"lastUpdated"`
	Status      Status    `json:"status"`
}

// Completeness counts the populated optional fields. Used to break ties
// between records sharing an ID.
func (r PlayerRecord) Completeness() int {
	n := 0
	if r.Position.Known() {
		n++
	}
	if r.Source != "" {
		n++
	}
	if !r.LastUpdated.IsZero() {
		n++
	}
	return n
}
