package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParsePosition(t *testing.T) {
	tests := []struct {
		token string
		want  Position
	}{
		{"POR", PositionGK},
		{"gk", PositionGK},
		{" DEF ", PositionDEF},
		{"MED", PositionMID},
		{"MID", PositionMID},
		{"DEL", PositionFWD},
		{"FWD", PositionFWD},
		{"XYZ", PositionUnknown},
		{"", PositionUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePosition(tt.token))
		})
	}
}

func TestCompleteness(t *testing.T) {
	r := PlayerRecord{ID: "a-b", Name: "Bbb", Team: "Aaa", Value: 1}
	assert.Equal(t, 0, r.Completeness())

	r.Position = PositionMID
	r.Source = "FutbolFantasy.com"
	r.LastUpdated = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 3, r.Completeness())
}
