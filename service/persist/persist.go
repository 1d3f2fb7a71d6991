package persist

import "context"

// Log is a single observed Transfer/TransferSingle/TransferBatch event,
// keyed by (BlockNumber, LogIndex).
type Log struct {
	BlockNumber int64
	LogIndex    int64
	TxHash      string
	Address     string
	Topics      []string
	Data        []byte
}

// Token is one materialized (Chain, TokenID, Contract) ownership row.
type Token struct {
	Chain    Chain
	TokenID  string
	Contract string
	Owner    string
	Standard Standard
}

// State is a pipeline cursor: the highest block fully absorbed by the named
// (Chain, IndexedType) pipeline.
type State struct {
	Chain        Chain
	IndexedType  IndexedType
	IndexedBlock int64
}

// Store is the persistence surface the Log Indexer and Token Indexer depend
// on. Implementations must provide the "row write + cursor
// advance" operations as a single atomic transaction.
type Store interface {
	GetIndexedBlock(ctx context.Context, chain Chain, indexedType IndexedType) (int64, error)

	FindLogsAtBlock(ctx context.Context, blockNumber int64) ([]Log, error)
	NextBlockAfter(ctx context.Context, currentBlock int64) (int64, error)

	UpsertLogAndAdvance(ctx context.Context, chain Chain, log Log) (indexedBlock int64, err error)
	UpsertTokenAndAdvance(ctx context.Context, chain Chain, token Token, blockNumber int64) (indexedBlock int64, err error)

	SetIndexedBlock(ctx context.Context, chain Chain, indexedType IndexedType, blockNumber int64) error
}
