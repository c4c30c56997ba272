// Package ledger implements funding-proof replay protection.
package ledger

import (
	"context"
	"errors"
	"sync"

	"github.com/redpacket/core/pkg/types"
)

// ErrNullifierSpent is returned when a funding-proof nullifier is reused
var ErrNullifierSpent = errors.New("nullifier already spent")

// NullifierSet tracks spent funding-proof nullifiers so a proof cannot fund
// more than one pull
type NullifierSet struct {
	mu sync.RWMutex

	// In-memory cache of recent nullifiers
	cache map[types.Hash]struct{}

	// Persistent storage
	store NullifierStore

	// Cache size limit
	maxCacheSize int
}

// NullifierStore defines the interface for persistent nullifier storage
type NullifierStore interface {
	// HasNullifier checks if a nullifier has been spent
	HasNullifier(ctx context.Context, nullifier types.Hash) (bool, error)

	// AddNullifier marks a nullifier as spent
	AddNullifier(ctx context.Context, nullifier types.Hash, spentAt uint64) error
}

// NullifierConfig holds configuration for the nullifier set
type NullifierConfig struct {
	MaxCacheSize int
}

// DefaultNullifierConfig returns default configuration
func DefaultNullifierConfig() *NullifierConfig {
	return &NullifierConfig{
		MaxCacheSize: 100000,
	}
}

// NewNullifierSet creates a new nullifier set
func NewNullifierSet(store NullifierStore, cfg *NullifierConfig) *NullifierSet {
	if cfg == nil {
		cfg = DefaultNullifierConfig()
	}

	return &NullifierSet{
		cache:        make(map[types.Hash]struct{}),
		store:        store,
		maxCacheSize: cfg.MaxCacheSize,
	}
}

// IsSpent checks if a nullifier has already been spent
func (ns *NullifierSet) IsSpent(ctx context.Context, nullifier types.Hash) (bool, error) {
	ns.mu.RLock()
	_, inCache := ns.cache[nullifier]
	ns.mu.RUnlock()

	if inCache {
		return true, nil
	}

	return ns.store.HasNullifier(ctx, nullifier)
}

// MarkSpent marks a nullifier as spent
func (ns *NullifierSet) MarkSpent(ctx context.Context, nullifier types.Hash, spentAt uint64) error {
	spent, err := ns.IsSpent(ctx, nullifier)
	if err != nil {
		return err
	}
	if spent {
		return ErrNullifierSpent
	}

	if err := ns.store.AddNullifier(ctx, nullifier, spentAt); err != nil {
		return err
	}

	ns.mu.Lock()
	ns.cache[nullifier] = struct{}{}

	// Evict if cache is too large (first key found, not truly random)
	if len(ns.cache) > ns.maxCacheSize {
		for k := range ns.cache {
			delete(ns.cache, k)
			break
		}
	}
	ns.mu.Unlock()

	return nil
}

// InMemoryNullifierStore is a simple in-memory implementation for testing
// and single-process deployments
type InMemoryNullifierStore struct {
	mu         sync.RWMutex
	nullifiers map[types.Hash]uint64
}

// NewInMemoryNullifierStore creates a new in-memory nullifier store
func NewInMemoryNullifierStore() *InMemoryNullifierStore {
	return &InMemoryNullifierStore{
		nullifiers: make(map[types.Hash]uint64),
	}
}

// HasNullifier checks if a nullifier exists
func (s *InMemoryNullifierStore) HasNullifier(ctx context.Context, nullifier types.Hash) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.nullifiers[nullifier]
	return exists, nil
}

// AddNullifier adds a nullifier
func (s *InMemoryNullifierStore) AddNullifier(ctx context.Context, nullifier types.Hash, spentAt uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nullifiers[nullifier]; exists {
		return ErrNullifierSpent
	}

	s.nullifiers[nullifier] = spentAt
	return nil
}

// Size returns the number of nullifiers
func (s *InMemoryNullifierStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nullifiers)
}
