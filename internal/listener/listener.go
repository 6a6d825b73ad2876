// Package listener carries "players changed" signals from ingest to the API
// over Postgres LISTEN/NOTIFY. The consumer holds a dedicated pgx connection
// (not from the pool) listening on config.PlayersChangedChannel, so API
// caches drop stale player responses as soon as a scrape or cleanup commits.
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/albapepper/mercato-data/internal/config"
	"github.com/albapepper/mercato-data/internal/db"
)

const (
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// ChangeEvent is the JSON payload of a players_changed notification.
type ChangeEvent struct {
	Reason    string `json:"reason"` // scrape, clear, clean, dedupe-store
	Count     int    `json:"count"`  // documents written or deleted
	Timestamp int64  `json:"ts"`
}

// Notify publishes ev on the players_changed channel.
func Notify(ctx context.Context, pool *db.Pool, ev ChangeEvent) error {
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().Unix()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, "players_notify", string(payload)); err != nil {
		return fmt.Errorf("notify %s: %w", config.PlayersChangedChannel, err)
	}
	return nil
}

// Start opens a dedicated connection and calls onChange for every event on
// the players_changed channel. It reconnects automatically on connection
// loss. Blocks until ctx is cancelled. Intended to be called with `go`.
func Start(ctx context.Context, dbURL string, onChange func(ChangeEvent), logger *slog.Logger) {
	backoff := reconnectBackoff

	for {
		err := listenLoop(ctx, dbURL, onChange, logger)
		if ctx.Err() != nil {
			logger.Info("Players listener stopped (context cancelled)")
			return
		}

		logger.Error("Players listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection drops
// or the context is cancelled.
func listenLoop(ctx context.Context, dbURL string, onChange func(ChangeEvent), logger *slog.Logger) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	_, err = conn.Exec(ctx, "LISTEN "+config.PlayersChangedChannel)
	if err != nil {
		return fmt.Errorf("LISTEN %s: %w", config.PlayersChangedChannel, err)
	}
	logger.Info("Players listener connected", "channel", config.PlayersChangedChannel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		event, err := Parse(notification.Payload)
		if err != nil {
			logger.Warn("Failed to parse players event",
				"payload", notification.Payload, "error", err)
			continue
		}

		logger.Info("Players event received", "reason", event.Reason, "count", event.Count)
		onChange(event)
	}
}

// Parse decodes a notification payload. An empty payload is a bare signal.
func Parse(payload string) (ChangeEvent, error) {
	var ev ChangeEvent
	if payload == "" {
		return ev, nil
	}
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ChangeEvent{}, err
	}
	return ev, nil
}
