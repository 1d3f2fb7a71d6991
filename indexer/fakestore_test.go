package indexer

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/zmovane/evm-token-indexer/service/persist"
)

// fakeStore is an in-memory persist.Store used to exercise the Log/Token
// Indexer loops without a real database, mirroring the reference's practice
// of testing pipeline logic against fixtures rather than a live RPC node.
type fakeStore struct {
	mu     sync.Mutex
	logs   map[int64][]persist.Log // by block number
	tokens map[string]persist.Token
	states map[string]int64

	// failUpsertLog, when set, is consulted before every UpsertLogAndAdvance
	// write. A non-nil return simulates that row's DB write failing without
	// mutating any in-memory state, so tests can assert the cursor holds at
	// the last log that actually committed.
	failUpsertLog func(log persist.Log) error
}

func newFakeStore(chain persist.Chain, logCursor, tokenCursor int64) *fakeStore {
	return &fakeStore{
		logs:   map[int64][]persist.Log{},
		tokens: map[string]persist.Token{},
		states: map[string]int64{
			stateKey(chain, persist.IndexedTypeLog):   logCursor,
			stateKey(chain, persist.IndexedTypeToken): tokenCursor,
		},
	}
}

func stateKey(chain persist.Chain, indexedType persist.IndexedType) string {
	return fmt.Sprintf("%d:%s", chain, indexedType)
}

func tokenKey(chain persist.Chain, tokenID, contract string) string {
	return fmt.Sprintf("%d:%s:%s", chain, tokenID, contract)
}

func (s *fakeStore) GetIndexedBlock(ctx context.Context, chain persist.Chain, indexedType persist.IndexedType) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.states[stateKey(chain, indexedType)]
	if !ok {
		return 0, fmt.Errorf("no seeded state for %s", indexedType)
	}
	return v, nil
}

func (s *fakeStore) SetIndexedBlock(ctx context.Context, chain persist.Chain, indexedType persist.IndexedType, blockNumber int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[stateKey(chain, indexedType)] = blockNumber
	return nil
}

func (s *fakeStore) FindLogsAtBlock(ctx context.Context, blockNumber int64) ([]persist.Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := append([]persist.Log{}, s.logs[blockNumber]...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].LogIndex < rows[j].LogIndex })
	return rows, nil
}

func (s *fakeStore) NextBlockAfter(ctx context.Context, currentBlock int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	best := currentBlock
	found := false
	for block := range s.logs {
		if block > currentBlock && (!found || block < best) {
			best = block
			found = true
		}
	}
	return best, nil
}

func (s *fakeStore) UpsertLogAndAdvance(ctx context.Context, chain persist.Chain, log persist.Log) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpsertLog != nil {
		if err := s.failUpsertLog(log); err != nil {
			return 0, err
		}
	}
	s.logs[log.BlockNumber] = append(s.logs[log.BlockNumber], log)
	s.states[stateKey(chain, persist.IndexedTypeLog)] = log.BlockNumber
	return log.BlockNumber, nil
}

func (s *fakeStore) UpsertTokenAndAdvance(ctx context.Context, chain persist.Chain, token persist.Token, blockNumber int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := tokenKey(token.Chain, token.TokenID, token.Contract)
	if _, exists := s.tokens[key]; !exists {
		s.tokens[key] = token
	}
	s.states[stateKey(chain, persist.IndexedTypeToken)] = blockNumber
	return blockNumber, nil
}
