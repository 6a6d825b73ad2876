package listener

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/albapepper/mercato-data/internal/config"
	"github.com/albapepper/mercato-data/internal/db"
)

func TestParse(t *testing.T) {
	ev, err := Parse(`{"reason":"scrape","count":512,"ts":1792400000}`)
	require.NoError(t, err)
	assert.Equal(t, ChangeEvent{Reason: "scrape", Count: 512, Timestamp: 1792400000}, ev)

	ev, err = Parse("")
	require.NoError(t, err)
	assert.Zero(t, ev)

	_, err = Parse("{not json")
	assert.Error(t, err)
}

func TestNotifyReachesListener(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("mercato"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := db.New(ctx, &config.Config{DatabaseURL: dsn, DBPoolMinConns: 1, DBPoolMaxConns: 2, DBPoolMaxLife: time.Minute})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	events := make(chan ChangeEvent, 4)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	go Start(ctx, dsn, func(ev ChangeEvent) { events <- ev }, logger)

	// LISTEN is issued asynchronously; keep notifying until one arrives.
	deadline := time.After(30 * time.Second)
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case ev := <-events:
			assert.Equal(t, "scrape", ev.Reason)
			assert.Equal(t, 7, ev.Count)
			assert.NotZero(t, ev.Timestamp)
			return
		case <-tick.C:
			require.NoError(t, Notify(ctx, pool, ChangeEvent{Reason: "scrape", Count: 7}))
		case <-deadline:
			t.Fatal("no notification received")
		}
	}
}
