package store

import (
	"context"
	"sort"
	"sync"

	"github.com/mainframehq/paymo-go/types"
)

// MemoryStore keeps records in process memory. Used by tests and as the
// degraded-mode fallback when no remote store is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*types.TransactionRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*types.TransactionRecord)}
}

func (m *MemoryStore) Put(ctx context.Context, key string, rec *types.TransactionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *rec
	m.records[key] = &copied
	return nil
}

func (m *MemoryStore) List(ctx context.Context, account, network string) ([]*types.TransactionRecord, error) {
	prefix := Namespace(account, network) + "/"

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*types.TransactionRecord
	for key, rec := range m.records {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			copied := *rec
			out = append(out, &copied)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].TxHash < out[j].TxHash
	})
	return out, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// Len reports the number of stored records. Test helper.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
