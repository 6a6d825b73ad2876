// Package sink writes deduplicated player records to the store in bounded,
// atomically committed chunks.
package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/albapepper/mercato-data/internal/market"
)

// DefaultChunkSize is the store's batch write limit.
const DefaultChunkSize = 500

// ErrBatchCommitFailed matches every *PartialFailure via errors.Is.
var ErrBatchCommitFailed = errors.New("batch commit failed")

// Store is the write side of the players collection. UpsertBatch must commit
// all records or none, merging fields into existing documents.
type Store interface {
	UpsertBatch(ctx context.Context, records []market.PlayerRecord) error
}

// PartialFailure reports how far a write got before a chunk failed. Chunks
// before the failed one are committed and stay committed.
type PartialFailure struct {
	Committed int // records in committed chunks
	Chunk     int // 1-based index of the failed chunk
	Failed    int // records in the failed chunk
	Err       error
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("chunk %d (%d records) failed after %d committed: %v", e.Chunk, e.Failed, e.Committed, e.Err)
}

func (e *PartialFailure) Unwrap() error { return e.Err }

func (e *PartialFailure) Is(target error) bool { return target == ErrBatchCommitFailed }

// WriteResult counts what was committed.
type WriteResult struct {
	Chunks  int
	Written int
}

// Writer splits records into chunks and commits them in order.
type Writer struct {
	store     Store
	chunkSize int
	logger    *slog.Logger
}

// NewWriter creates a Writer. A chunkSize <= 0 uses DefaultChunkSize.
func NewWriter(store Store, chunkSize int, logger *slog.Logger) *Writer {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{store: store, chunkSize: chunkSize, logger: logger}
}

// ChunkSize returns the configured chunk size.
func (w *Writer) ChunkSize() int { return w.chunkSize }

// Write commits records chunk by chunk and stops at the first failure.
func (w *Writer) Write(ctx context.Context, records []market.PlayerRecord) (WriteResult, error) {
	var res WriteResult
	for start := 0; start < len(records); start += w.chunkSize {
		end := min(start+w.chunkSize, len(records))
		chunk := records[start:end]

		if err := ctx.Err(); err != nil {
			return res, &PartialFailure{Committed: res.Written, Chunk: res.Chunks + 1, Failed: len(chunk), Err: err}
		}
		if err := w.store.UpsertBatch(ctx, chunk); err != nil {
			w.logger.Error("Chunk commit failed", "chunk", res.Chunks+1, "size", len(chunk), "committed", res.Written, "error", err)
			return res, &PartialFailure{Committed: res.Written, Chunk: res.Chunks + 1, Failed: len(chunk), Err: err}
		}
		res.Chunks++
		res.Written += len(chunk)
		w.logger.Debug("Chunk committed", "chunk", res.Chunks, "size", len(chunk))
	}
	return res, nil
}
