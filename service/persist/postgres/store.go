package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/zmovane/evm-token-indexer/service/persist"
)

// Store is the Postgres-backed implementation of persist.Store. Prepared
// statements are built once at construction time, following the repository
// pattern the rest of this codebase's persistence layer uses.
type Store struct {
	db *sql.DB

	getIndexedBlockStmt *sql.Stmt
	setIndexedBlockStmt *sql.Stmt
	findLogsAtBlockStmt *sql.Stmt
	nextBlockAfterStmt  *sql.Stmt
	upsertLogStmt       *sql.Stmt
	upsertTokenStmt     *sql.Stmt
}

// NewStore prepares all statements Store needs against db.
func NewStore(db *sql.DB) *Store {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	getIndexedBlockStmt, err := db.PrepareContext(ctx, `SELECT indexed_block FROM states WHERE chain = $1 AND indexed_type = $2;`)
	checkNoErr(err)

	setIndexedBlockStmt, err := db.PrepareContext(ctx, `UPDATE states SET indexed_block = $3 WHERE chain = $1 AND indexed_type = $2;`)
	checkNoErr(err)

	findLogsAtBlockStmt, err := db.PrepareContext(ctx, `SELECT block_number, log_index, tx_hash, address, topics, data FROM logs WHERE block_number = $1 ORDER BY log_index ASC;`)
	checkNoErr(err)

	nextBlockAfterStmt, err := db.PrepareContext(ctx, `SELECT DISTINCT block_number FROM logs WHERE block_number > $1 ORDER BY block_number ASC LIMIT 1;`)
	checkNoErr(err)

	upsertLogStmt, err := db.PrepareContext(ctx, `INSERT INTO logs (block_number, log_index, tx_hash, address, topics, data) VALUES ($1,$2,$3,$4,$5,$6) ON CONFLICT (block_number, log_index) DO NOTHING;`)
	checkNoErr(err)

	upsertTokenStmt, err := db.PrepareContext(ctx, `INSERT INTO tokens (chain, token_id, contract, owner, standard) VALUES ($1,$2,$3,$4,$5) ON CONFLICT (chain, token_id, contract) DO NOTHING;`)
	checkNoErr(err)

	return &Store{
		db:                  db,
		getIndexedBlockStmt: getIndexedBlockStmt,
		setIndexedBlockStmt: setIndexedBlockStmt,
		findLogsAtBlockStmt: findLogsAtBlockStmt,
		nextBlockAfterStmt:  nextBlockAfterStmt,
		upsertLogStmt:       upsertLogStmt,
		upsertTokenStmt:     upsertTokenStmt,
	}
}

// GetIndexedBlock returns the cursor value for (chain, indexedType). The
// States row is expected to be pre-seeded before the indexer runs; absence is
// reported as an error so callers can fail fast.
func (s *Store) GetIndexedBlock(ctx context.Context, chain persist.Chain, indexedType persist.IndexedType) (int64, error) {
	var indexedBlock int64
	err := s.getIndexedBlockStmt.QueryRowContext(ctx, int64(chain), string(indexedType)).Scan(&indexedBlock)
	if err != nil {
		return 0, fmt.Errorf("no states row for chain=%s indexed_type=%s: %w", chain, indexedType, err)
	}
	return indexedBlock, nil
}

// SetIndexedBlock advances a cursor outside of any row-write transaction.
func (s *Store) SetIndexedBlock(ctx context.Context, chain persist.Chain, indexedType persist.IndexedType, blockNumber int64) error {
	_, err := s.setIndexedBlockStmt.ExecContext(ctx, int64(chain), string(indexedType), blockNumber)
	return err
}

// FindLogsAtBlock returns every Logs row at blockNumber, ordered by log_index.
func (s *Store) FindLogsAtBlock(ctx context.Context, blockNumber int64) ([]persist.Log, error) {
	rows, err := s.findLogsAtBlockStmt.QueryContext(ctx, blockNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []persist.Log
	for rows.Next() {
		var l persist.Log
		var topics pq.StringArray
		if err := rows.Scan(&l.BlockNumber, &l.LogIndex, &l.TxHash, &l.Address, &topics, &l.Data); err != nil {
			return nil, err
		}
		l.Topics = []string(topics)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// NextBlockAfter finds the next block with at least one Logs row after
// currentBlock, falling back to currentBlock unchanged when there is none.
func (s *Store) NextBlockAfter(ctx context.Context, currentBlock int64) (int64, error) {
	var next int64
	err := s.nextBlockAfterStmt.QueryRowContext(ctx, currentBlock).Scan(&next)
	if err == sql.ErrNoRows {
		return currentBlock, nil
	}
	if err != nil {
		return currentBlock, err
	}
	return next, nil
}

// UpsertLogAndAdvance writes log and advances the Log cursor to its block
// number in a single transaction.
func (s *Store) UpsertLogAndAdvance(ctx context.Context, chain persist.Chain, log persist.Log) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.StmtContext(ctx, s.upsertLogStmt).ExecContext(ctx, log.BlockNumber, log.LogIndex, log.TxHash, log.Address, pq.Array(log.Topics), log.Data); err != nil {
		return 0, fmt.Errorf("upsert log: %w", err)
	}

	if _, err := tx.StmtContext(ctx, s.setIndexedBlockStmt).ExecContext(ctx, int64(chain), string(persist.IndexedTypeLog), log.BlockNumber); err != nil {
		return 0, fmt.Errorf("advance log cursor: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return log.BlockNumber, nil
}

// UpsertTokenAndAdvance writes token and advances the Token cursor to
// blockNumber in a single transaction.
func (s *Store) UpsertTokenAndAdvance(ctx context.Context, chain persist.Chain, token persist.Token, blockNumber int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.StmtContext(ctx, s.upsertTokenStmt).ExecContext(ctx, int64(token.Chain), token.TokenID, token.Contract, token.Owner, string(token.Standard)); err != nil {
		return 0, fmt.Errorf("upsert token: %w", err)
	}

	if _, err := tx.StmtContext(ctx, s.setIndexedBlockStmt).ExecContext(ctx, int64(chain), string(persist.IndexedTypeToken), blockNumber); err != nil {
		return 0, fmt.Errorf("advance token cursor: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return blockNumber, nil
}
