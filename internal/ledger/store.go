package ledger

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Query selects transactions. Zero values mean "no constraint".
type Query struct {
	Type             string // TypeDebit or TypeCredit
	DatePrefix       string // e.g. "2025-01" for a month
	Since            string // inclusive lower bound, DateLayout
	CategoryContains string // case-insensitive substring
	NewestFirst      bool   // order by date descending
	Limit            int
}

// Store is the read-only collaborator the tools depend on. Implementations
// must tolerate concurrent readers.
type Store interface {
	Transactions(ctx context.Context, q Query) ([]Transaction, error)
}

// MemoryStore is a Store over an in-memory snapshot of transactions.
type MemoryStore struct {
	mu   sync.RWMutex
	txns []Transaction
}

// NewMemoryStore creates a store holding a copy of txns. Duplicate ids keep
// the first occurrence.
func NewMemoryStore(txns []Transaction) *MemoryStore {
	s := &MemoryStore{}
	s.Replace(txns)
	return s
}

// Replace swaps the snapshot atomically.
func (s *MemoryStore) Replace(txns []Transaction) {
	seen := make(map[string]bool, len(txns))
	next := make([]Transaction, 0, len(txns))
	for _, t := range txns {
		if t.ID != "" {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
		}
		next = append(next, t)
	}

	s.mu.Lock()
	s.txns = next
	s.mu.Unlock()
}

// Len returns the number of stored transactions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.txns)
}

// Transactions implements Store. The returned slice is owned by the caller.
func (s *MemoryStore) Transactions(ctx context.Context, q Query) ([]Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}

	s.mu.RLock()
	out := make([]Transaction, 0, len(s.txns))
	for _, t := range s.txns {
		if q.matches(t) {
			out = append(out, t)
		}
	}
	s.mu.RUnlock()

	if q.NewestFirst {
		slices.SortStableFunc(out, func(a, b Transaction) int {
			return strings.Compare(b.Date, a.Date)
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (q Query) matches(t Transaction) bool {
	if q.Type != "" && t.Type != q.Type {
		return false
	}
	if q.DatePrefix != "" && !strings.HasPrefix(t.Date, q.DatePrefix) {
		return false
	}
	if q.Since != "" && t.Date < q.Since {
		return false
	}
	if q.CategoryContains != "" &&
		!strings.Contains(strings.ToLower(t.Category), strings.ToLower(q.CategoryContains)) {
		return false
	}
	return true
}
