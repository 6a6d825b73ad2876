package sink

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/mercato-data/internal/market"
)

type recordingStore struct {
	batches [][]market.PlayerRecord
	failOn  int // 1-based batch index to fail, 0 for never
}

func (s *recordingStore) UpsertBatch(_ context.Context, records []market.PlayerRecord) error {
	if s.failOn == len(s.batches)+1 {
		return errors.New("deadline on commit")
	}
	cp := make([]market.PlayerRecord, len(records))
	copy(cp, records)
	s.batches = append(s.batches, cp)
	return nil
}

func records(n int) []market.PlayerRecord {
	out := make([]market.PlayerRecord, n)
	for i := range out {
		out[i] = market.PlayerRecord{ID: fmt.Sprintf("team-p%d", i), Name: "P", Team: "Team", Value: 1}
	}
	return out
}

func TestWriteChunks(t *testing.T) {
	store := &recordingStore{}
	w := NewWriter(store, 0, nil)
	assert.Equal(t, DefaultChunkSize, w.ChunkSize())

	res, err := w.Write(context.Background(), records(1200))
	require.NoError(t, err)
	assert.Equal(t, WriteResult{Chunks: 3, Written: 1200}, res)

	require.Len(t, store.batches, 3)
	assert.Len(t, store.batches[0], 500)
	assert.Len(t, store.batches[1], 500)
	assert.Len(t, store.batches[2], 200)
	assert.Equal(t, "team-p500", store.batches[1][0].ID)
}

func TestWriteEmpty(t *testing.T) {
	store := &recordingStore{}
	res, err := NewWriter(store, 10, nil).Write(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, res)
	assert.Empty(t, store.batches)
}

func TestWriteStopsAtFailedChunk(t *testing.T) {
	store := &recordingStore{failOn: 2}
	res, err := NewWriter(store, 500, nil).Write(context.Background(), records(1200))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBatchCommitFailed)

	var pf *PartialFailure
	require.True(t, errors.As(err, &pf))
	assert.Equal(t, 500, pf.Committed)
	assert.Equal(t, 2, pf.Chunk)
	assert.Equal(t, 500, pf.Failed)

	assert.Equal(t, WriteResult{Chunks: 1, Written: 500}, res)
	assert.Len(t, store.batches, 1, "no chunk after the failed one is attempted")
}

func TestWriteCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := &recordingStore{}
	_, err := NewWriter(store, 10, nil).Write(ctx, records(5))
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, ErrBatchCommitFailed)
	assert.Empty(t, store.batches)
}
