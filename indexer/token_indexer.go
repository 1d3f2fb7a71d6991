package indexer

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"github.com/zmovane/evm-token-indexer/service/logger"
	"github.com/zmovane/evm-token-indexer/service/persist"
)

// classifier resolves the transfer standard a contract implements. Tests
// inject a fake here instead of dialing a real RPC node.
type classifier func(ctx context.Context, address common.Address) (persist.Standard, bool, error)

// tokenIndexer reads previously-indexed Logs rows, classifies their
// originating contracts, and materializes Tokens rows, advancing the Token
// cursor as it goes.
type tokenIndexer struct {
	chain     persist.Chain
	store     persist.Store
	ethClient *ethclient.Client
	classify  classifier
}

func newTokenIndexer(cfg Config) *tokenIndexer {
	t := &tokenIndexer{
		chain:     cfg.Chain,
		store:     cfg.Store,
		ethClient: cfg.EthClient,
	}
	t.classify = func(ctx context.Context, address common.Address) (persist.Standard, bool, error) {
		return classify(ctx, t.ethClient, address)
	}
	return t
}

func (t *tokenIndexer) run(ctx context.Context) {
	lastBlock, err := t.store.GetIndexedBlock(ctx, t.chain, persist.IndexedTypeToken)
	if err != nil {
		logger.For(ctx).WithError(err).Fatal("token indexer: no states row seeded")
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		logs, err := t.store.FindLogsAtBlock(ctx, lastBlock)
		if err != nil {
			logger.For(ctx).WithError(err).Error("token indexer: failed to read logs")
			continue
		}

		if len(logs) == 0 {
			logCursor, err := t.store.GetIndexedBlock(ctx, t.chain, persist.IndexedTypeLog)
			if err != nil {
				logger.For(ctx).WithError(err).Error("token indexer: failed to read log cursor")
				continue
			}
			if lastBlock < logCursor {
				next, err := t.store.NextBlockAfter(ctx, lastBlock)
				if err != nil {
					logger.For(ctx).WithError(err).Error("token indexer: failed to sparse-skip")
					continue
				}
				lastBlock = next
			}
			// caught up to the log cursor: spin without sleeping (see the
			// token-pipeline hot-loop note in DESIGN.md).
			continue
		}

		completed := true
		for _, row := range logs {
			indexedBlock, committed, err := t.dumpToken(ctx, row)
			if err != nil {
				logger.For(ctx).WithError(err).WithFields(logrus.Fields{
					"block_number": row.BlockNumber,
					"log_index":    row.LogIndex,
					"address":      row.Address,
				}).Error("token indexer: failed to dump token")
				completed = false
				break
			}
			_ = committed
			lastBlock = indexedBlock
		}

		if completed {
			if err := t.store.SetIndexedBlock(ctx, t.chain, persist.IndexedTypeToken, lastBlock); err != nil {
				logger.For(ctx).WithError(err).Error("token indexer: failed to advance cursor")
				continue
			}
			next, err := t.store.NextBlockAfter(ctx, lastBlock)
			if err != nil {
				logger.For(ctx).WithError(err).Error("token indexer: failed to sparse-skip")
				continue
			}
			lastBlock = next
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// dumpToken classifies the contract that emitted row and, if it speaks
// ERC-721 or ERC-1155, writes the resulting Tokens row(s) transactionally
// with the cursor advance. A contract classified as neither, or a log whose
// topics or data cannot be decoded, advances the in-memory cursor
// (committed=false) without moving the persisted one.
func (t *tokenIndexer) dumpToken(ctx context.Context, row persist.Log) (int64, bool, error) {
	contract := common.HexToAddress(row.Address)

	rpcCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	standard, matched, err := t.classify(rpcCtx, contract)
	if err != nil {
		return 0, false, err
	}
	if !matched {
		return row.BlockNumber, false, nil
	}

	tokens, err := decodeTokens(row, standard, row.Address)
	if err != nil {
		logger.For(ctx).WithError(err).WithFields(logrus.Fields{
			"block_number": row.BlockNumber,
			"log_index":    row.LogIndex,
		}).Warn("token indexer: skipping undecodable log")
		return row.BlockNumber, false, nil
	}

	// a structurally valid but degenerate payload (e.g. a TransferBatch
	// whose ids/values decode to empty arrays) must still advance the
	// cursor to row.BlockNumber rather than regress it to zero.
	indexedBlock := row.BlockNumber
	for _, tok := range tokens {
		tok.Chain = t.chain
		indexedBlock, err = t.store.UpsertTokenAndAdvance(ctx, t.chain, tok, row.BlockNumber)
		if err != nil {
			return 0, false, err
		}
	}
	return indexedBlock, true, nil
}

var uint256PairArgs = abi.Arguments{{Type: mustType("uint256")}, {Type: mustType("uint256")}}
var uint256ArraysArgs = abi.Arguments{{Type: mustType("uint256[]")}, {Type: mustType("uint256[]")}}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

// decodeTokens derives the Tokens row(s) a single Logs row materializes,
// branching on the event's topic-0 signature within the already-resolved
// standard.
func decodeTokens(row persist.Log, standard persist.Standard, contract string) ([]persist.Token, error) {
	if len(row.Topics) == 0 {
		return nil, fmt.Errorf("log at block %d has no topics", row.BlockNumber)
	}

	switch eventHash(strings.ToLower(row.Topics[0])) {
	case transferEventHash:
		if len(row.Topics) < 4 {
			return nil, fmt.Errorf("erc721 transfer at block %d missing topics", row.BlockNumber)
		}
		to := persist.AddressFromTopic(row.Topics[2])
		tokenID := row.Topics[3]
		return []persist.Token{{
			TokenID:  tokenID,
			Contract: contract,
			Owner:    to,
			Standard: standard,
		}}, nil

	case transferSingleEventHash:
		if len(row.Topics) < 4 {
			return nil, fmt.Errorf("erc1155 transfersingle at block %d missing topics", row.BlockNumber)
		}
		values, err := uint256PairArgs.Unpack(row.Data)
		if err != nil || len(values) < 1 {
			return nil, fmt.Errorf("erc1155 transfersingle at block %d: decode data: %w", row.BlockNumber, err)
		}
		id, _ := values[0].(*big.Int)
		to := persist.AddressFromTopic(row.Topics[3])
		return []persist.Token{{
			TokenID:  hexTokenID(id),
			Contract: contract,
			Owner:    to,
			Standard: standard,
		}}, nil

	case transferBatchEventHash:
		if len(row.Topics) < 4 {
			return nil, fmt.Errorf("erc1155 transferbatch at block %d missing topics", row.BlockNumber)
		}
		values, err := uint256ArraysArgs.Unpack(row.Data)
		if err != nil || len(values) < 2 {
			return nil, fmt.Errorf("erc1155 transferbatch at block %d: decode data: %w", row.BlockNumber, err)
		}
		ids, _ := values[0].([]*big.Int)
		to := persist.AddressFromTopic(row.Topics[3])
		tokens := make([]persist.Token, 0, len(ids))
		for _, id := range ids {
			tokens = append(tokens, persist.Token{
				TokenID:  hexTokenID(id),
				Contract: contract,
				Owner:    to,
				Standard: standard,
			})
		}
		return tokens, nil

	default:
		return nil, fmt.Errorf("log at block %d has unrecognized event signature %s", row.BlockNumber, row.Topics[0])
	}
}

func hexTokenID(id *big.Int) string {
	if id == nil {
		return "0x0"
	}
	return fmt.Sprintf("0x%064x", id)
}
