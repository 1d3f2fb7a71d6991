package indexer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"

	"github.com/zmovane/evm-token-indexer/service/persist"
)

func makeRawLog(block uint64, index uint, address string, topics []string) types.Log {
	hashes := make([]common.Hash, len(topics))
	for i, t := range topics {
		hashes[i] = common.HexToHash(t)
	}
	return types.Log{
		BlockNumber: block,
		Index:       index,
		TxHash:      common.HexToHash("0xaa"),
		Address:     common.HexToAddress(address),
		Topics:      hashes,
	}
}

func TestLogIndexerPersistsLogsAndAdvancesCursor(t *testing.T) {
	assertions := assert.New(t)

	store := newFakeStore(persist.ChainZksyncEraTestnet, 100, 0)
	li := newLogIndexer(Config{Chain: persist.ChainZksyncEraTestnet, Store: store, MaxBlocksPerQuery: 1000})

	calls := 0
	li.getLogs = func(ctx context.Context, from, to int64) ([]types.Log, error) {
		calls++
		if calls > 1 {
			return nil, nil
		}
		return []types.Log{
			makeRawLog(101, 0, "0x1111111111111111111111111111111111111111", []string{string(transferEventHash)}),
			makeRawLog(102, 0, "0x2222222222222222222222222222222222222222", []string{string(transferEventHash)}),
		}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	li.run(ctx)

	cursor, err := store.GetIndexedBlock(context.Background(), persist.ChainZksyncEraTestnet, persist.IndexedTypeLog)
	assertions.NoError(err)
	assertions.Equal(int64(102), cursor)

	rows, err := store.FindLogsAtBlock(context.Background(), 101)
	assertions.NoError(err)
	assertions.Len(rows, 1)
}

func TestLogIndexerDoesNotAdvanceCursorOnEmptyBatch(t *testing.T) {
	assertions := assert.New(t)

	store := newFakeStore(persist.ChainZksyncEraTestnet, 50, 0)
	li := newLogIndexer(Config{Chain: persist.ChainZksyncEraTestnet, Store: store})
	li.getLogs = func(ctx context.Context, from, to int64) ([]types.Log, error) {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	li.run(ctx)

	cursor, err := store.GetIndexedBlock(context.Background(), persist.ChainZksyncEraTestnet, persist.IndexedTypeLog)
	assertions.NoError(err)
	assertions.Equal(int64(50), cursor)
}

// a DB failure partway through a batch must leave the cursor at the last log
// that actually committed, not the last one fetched, since UpsertLogAndAdvance
// advances the cursor per-log rather than per-range.
func TestLogIndexerStopsCursorAtLastCommittedLogOnWriteFailure(t *testing.T) {
	assertions := assert.New(t)

	store := newFakeStore(persist.ChainZksyncEraTestnet, 9, 0)
	store.failUpsertLog = func(log persist.Log) error {
		if log.BlockNumber == 11 {
			return errors.New("db unavailable")
		}
		return nil
	}

	li := newLogIndexer(Config{Chain: persist.ChainZksyncEraTestnet, Store: store, MaxBlocksPerQuery: 1000})
	li.getLogs = func(ctx context.Context, from, to int64) ([]types.Log, error) {
		return []types.Log{
			makeRawLog(10, 0, "0x1111111111111111111111111111111111111111", []string{string(transferEventHash)}),
			makeRawLog(11, 0, "0x2222222222222222222222222222222222222222", []string{string(transferEventHash)}),
			makeRawLog(12, 0, "0x3333333333333333333333333333333333333333", []string{string(transferEventHash)}),
		}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	li.run(ctx)

	cursor, err := store.GetIndexedBlock(context.Background(), persist.ChainZksyncEraTestnet, persist.IndexedTypeLog)
	assertions.NoError(err)
	assertions.Equal(int64(10), cursor)

	rowsA, err := store.FindLogsAtBlock(context.Background(), 10)
	assertions.NoError(err)
	assertions.Len(rowsA, 1)

	rowsB, err := store.FindLogsAtBlock(context.Background(), 11)
	assertions.NoError(err)
	assertions.Len(rowsB, 0)

	rowsC, err := store.FindLogsAtBlock(context.Background(), 12)
	assertions.NoError(err)
	assertions.Len(rowsC, 0)
}
