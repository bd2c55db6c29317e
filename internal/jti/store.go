// Package jti provides in-memory replay protection for token ids.
//
// The store is per-process and not persisted; after a restart the audit
// table's primary key is the remaining defense for tokens still within TTL.
package jti

import (
	"sync"
	"time"

	"github.com/agentmint-dev/agentmint/internal/errors"
)

// DefaultMaxCapacity bounds live entries in the store.
const DefaultMaxCapacity = 100_000

// Store is a concurrent at-most-once set over token ids. Entries map a jti
// to its expiry (unix seconds) and are evicted opportunistically on writes.
type Store struct {
	mu          sync.Mutex
	entries     map[string]int64
	maxCapacity int
}

// New creates a store with the default capacity.
func New() *Store {
	return NewWithCapacity(DefaultMaxCapacity)
}

// NewWithCapacity creates a store with an explicit capacity.
func NewWithCapacity(maxCapacity int) *Store {
	return &Store{
		entries:     make(map[string]int64),
		maxCapacity: maxCapacity,
	}
}

// CheckAndInsert records a jti or rejects it. Exactly one of any set of
// concurrent calls with the same jti succeeds: the check and the insert
// happen inside a single critical section.
//
// Eviction runs before the capacity check so expiry pressure never starves
// legitimate traffic under steady load. Under sustained overload the store
// still accepts entries up to the cap while eviction keeps the set fluid;
// this is DoS tolerance, not protection.
func (s *Store) CheckAndInsert(jti string, exp int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpired()

	if len(s.entries) >= s.maxCapacity {
		return errors.ServiceUnavailable("JTI store at capacity")
	}
	if _, exists := s.entries[jti]; exists {
		return errors.ReplayDetected(jti)
	}
	s.entries[jti] = exp
	return nil
}

// evictExpired drops entries whose expiry has passed. Caller holds the lock.
func (s *Store) evictExpired() {
	now := time.Now().Unix()
	for jti, exp := range s.entries {
		if exp <= now {
			delete(s.entries, jti)
		}
	}
}

// Len reports the current cardinality, expired entries included until the
// next write evicts them.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
