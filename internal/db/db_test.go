package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/albapepper/mercato-data/internal/config"
)

func TestStatementsTargetConfiguredTables(t *testing.T) {
	for name, sql := range Statements {
		switch {
		case strings.HasPrefix(name, "players_") && name != "players_notify":
			assert.Contains(t, sql, " "+config.PlayersTable, name)
		case strings.HasPrefix(name, "runs_"):
			assert.Contains(t, sql, " "+config.ScrapeRunsTable, name)
		}
	}
	assert.Contains(t, Statements["players_notify"], "'"+config.PlayersChangedChannel+"'")
}
