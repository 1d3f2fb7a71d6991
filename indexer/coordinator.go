package indexer

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/zmovane/evm-token-indexer/service/logger"
	"github.com/zmovane/evm-token-indexer/service/persist"
)

// Config is everything the two pipelines need to run against one chain.
type Config struct {
	Chain             persist.Chain
	Store             persist.Store
	EthClient         *ethclient.Client
	MaxBlocksPerQuery uint64
}

// Start launches the Log Indexer and Token Indexer as independent goroutines
// coordinated only through cfg.Store, and blocks until ctx is cancelled.
func Start(ctx context.Context, cfg Config) {
	logger.For(ctx).Info("starting log indexer and token indexer pipelines")

	done := make(chan struct{}, 2)

	go func() {
		defer func() { done <- struct{}{} }()
		newLogIndexer(cfg).run(ctx)
	}()

	go func() {
		defer func() { done <- struct{}{} }()
		newTokenIndexer(cfg).run(ctx)
	}()

	<-done
	<-done
}
