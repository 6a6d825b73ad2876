package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/mercato-data/internal/market"
)

var meta = Meta{
	Source: "FutbolFantasy.com",
	Status: market.StatusAvailable,
	Now:    time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC),
}

func TestValue(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"15.340.000", 15340000, false},
		{"1.200", 1200, false},
		{"15.340.000 €", 15340000, false},
		{"102,165,770", 102165770, false},
		{"abc", 0, true},
		{"", 0, true},
		{"0", 0, true},
		{"0.000", 0, true},
		{"99999999999999999999999", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := Value(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestName(t *testing.T) {
	assert.Equal(t, "Lamine Yamal", Name("  lamine   yamal "))
	assert.Equal(t, "Ter Stegen", Name("TER stegen"))
	assert.Equal(t, "Álvaro Núñez", Name("álvaro NÚÑEZ"))
	assert.Equal(t, "", Name("   "))
}

func TestID(t *testing.T) {
	assert.Equal(t, "fc-barcelona-pedri", ID("Pedri", "FC Barcelona"))
	assert.Equal(t, "fc-barcelona-ter-stegen", ID("Ter Stegen", "FC Barcelona"))
}

func TestIDIsPure(t *testing.T) {
	a, err := Normalize(market.CandidateRecord{RawName: " pedri ", RawTeam: "FC Barcelona ", RawValue: "1"}, meta)
	require.NoError(t, err)
	b, err := Normalize(market.CandidateRecord{RawName: "PEDRI", RawTeam: " FC Barcelona", RawValue: "2"}, meta)
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)

	for _, team := range []string{"FC  Barcelona", "FC\n\t    Barcelona", "\tfc barcelona\n"} {
		c, err := Normalize(market.CandidateRecord{RawName: "Pedri", RawTeam: team, RawValue: "3"}, meta)
		require.NoError(t, err)
		assert.Equal(t, "fc-barcelona-pedri", c.ID, "team %q", team)
	}
}

func TestTeamCollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "FC Barcelona", Team(" FC \n  Barcelona\t"))
	assert.Equal(t, "fc-barcelona", Slug("FC\t\tBarcelona "))
	assert.Equal(t, "", Slug("   "))
}

func TestNormalize(t *testing.T) {
	rec, err := Normalize(market.CandidateRecord{
		RawName:  "  lamine   yamal ",
		RawTeam:  " FC Barcelona ",
		Position: market.PositionFWD,
		RawValue: "150.000.000",
	}, meta)
	require.NoError(t, err)

	assert.Equal(t, market.PlayerRecord{
		ID:          "fc-barcelona-lamine-yamal",
		Name:        "Lamine Yamal",
		Team:        "FC Barcelona",
		Position:    market.PositionFWD,
		Value:       150000000,
		Source:      "FutbolFantasy.com",
		LastUpdated: meta.Now,
		Status:      market.StatusAvailable,
	}, rec)
}

func TestNormalizeRejections(t *testing.T) {
	tests := []struct {
		name   string
		c      market.CandidateRecord
		reason string
	}{
		{"short name", market.CandidateRecord{RawName: "Jo", RawTeam: "Getafe", RawValue: "100"}, ReasonNameTooShort},
		{"empty name", market.CandidateRecord{RawName: "   ", RawTeam: "Getafe", RawValue: "100"}, ReasonNameTooShort},
		{"short team", market.CandidateRecord{RawName: "Pedri", RawTeam: "FC", RawValue: "100"}, ReasonTeamTooShort},
		{"garbage value", market.CandidateRecord{RawName: "Pedri", RawTeam: "Barça", RawValue: "abc"}, ReasonValueUnparseable},
		{"zero value", market.CandidateRecord{RawName: "Pedri", RawTeam: "Barça", RawValue: "0"}, ReasonValueNotPositive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.c, meta)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrRejected))

			var rej *Rejection
			require.True(t, errors.As(err, &rej))
			assert.Equal(t, tt.reason, rej.Reason)
		})
	}
}

func TestNormalizeNeverAcceptsInvalid(t *testing.T) {
	names := []string{"", "a", "ab", "abc", "  ab  ", "Pedri", "ñu"}
	teams := []string{"", "FC", "Bar", "Real Madrid", " x "}
	values := []string{"", "0", "-1", "abc", "1", "0.001", "12.000.000"}

	for _, n := range names {
		for _, tm := range teams {
			for _, v := range values {
				rec, err := Normalize(market.CandidateRecord{RawName: n, RawTeam: tm, RawValue: v}, meta)
				if err != nil {
					continue
				}
				assert.Greater(t, rec.Value, int64(0))
				assert.GreaterOrEqual(t, len([]rune(rec.Name)), 3)
				assert.GreaterOrEqual(t, len([]rune(rec.Team)), 3)
			}
		}
	}
}

func TestNormalizeDefaultsStatus(t *testing.T) {
	rec, err := Normalize(market.CandidateRecord{RawName: "Pedri", RawTeam: "Barça", RawValue: "5"}, Meta{})
	require.NoError(t, err)
	assert.Equal(t, market.StatusAvailable, rec.Status)
}
