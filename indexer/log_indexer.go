package indexer

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"github.com/zmovane/evm-token-indexer/service/logger"
	"github.com/zmovane/evm-token-indexer/service/persist"
	"github.com/zmovane/evm-token-indexer/service/rpc"
)

// logFetcher retrieves raw logs for a block range. Tests inject a fake here
// instead of dialing a real RPC node.
type logFetcher func(ctx context.Context, fromBlock, toBlock int64) ([]types.Log, error)

// logIndexer scans eth_getLogs for the watched transfer events and persists
// them, advancing the Log cursor one row at a time.
type logIndexer struct {
	chain             persist.Chain
	store             persist.Store
	ethClient         *ethclient.Client
	maxBlocksPerQuery uint64
	getLogs           logFetcher
}

func newLogIndexer(cfg Config) *logIndexer {
	max := cfg.MaxBlocksPerQuery
	if max == 0 {
		max = 1000
	}
	l := &logIndexer{
		chain:             cfg.Chain,
		store:             cfg.Store,
		ethClient:         cfg.EthClient,
		maxBlocksPerQuery: max,
	}
	l.getLogs = l.fetchLogs
	return l
}

// run scans forward from the persisted Log cursor until ctx is cancelled.
func (l *logIndexer) run(ctx context.Context) {
	lastBlock, err := l.store.GetIndexedBlock(ctx, l.chain, persist.IndexedTypeLog)
	if err != nil {
		logger.For(ctx).WithError(err).Fatal("log indexer: no states row seeded")
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		fromBlock := lastBlock
		toBlock := fromBlock + int64(l.maxBlocksPerQuery)

		logs, err := l.getLogs(ctx, fromBlock, toBlock)
		if err != nil {
			logger.For(ctx).WithError(err).Error("log indexer: failed to fetch logs")
			continue
		}

		advanced := true
		for _, raw := range logs {
			row := toPersistLog(raw)
			indexedBlock, err := l.store.UpsertLogAndAdvance(ctx, l.chain, row)
			if err != nil {
				logger.For(ctx).WithError(err).WithFields(logrus.Fields{
					"block_number": row.BlockNumber,
					"log_index":    row.LogIndex,
				}).Error("log indexer: failed to persist log")
				advanced = false
				break
			}
			lastBlock = indexedBlock
		}

		if advanced {
			logger.For(ctx).WithFields(logrus.Fields{
				"from_block": fromBlock,
				"to_block":   toBlock,
				"count":      len(logs),
			}).Debug("log indexer: scanned range")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func (l *logIndexer) fetchLogs(ctx context.Context, fromBlock, toBlock int64) ([]types.Log, error) {
	rpcCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	query := ethereum.FilterQuery{
		FromBlock: bigFromInt64(fromBlock),
		ToBlock:   bigFromInt64(toBlock),
		Topics:    [][]common.Hash{watchedEvents},
	}
	return rpc.RetryGetLogs(rpcCtx, l.ethClient, query)
}

func toPersistLog(raw types.Log) persist.Log {
	topics := make([]string, len(raw.Topics))
	for i, t := range raw.Topics {
		topics[i] = t.Hex()
	}
	return persist.Log{
		BlockNumber: int64(raw.BlockNumber),
		LogIndex:    int64(raw.Index),
		TxHash:      raw.TxHash.Hex(),
		Address:     raw.Address.Hex(),
		Topics:      topics,
		Data:        raw.Data,
	}
}
