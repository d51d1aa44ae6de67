// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

package policy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// policyKeyPrefix scopes policy records in BadgerDB.
const policyKeyPrefix = "policy:"

// Store persists per-user policies in BadgerDB with single-writer-per-user
// discipline: reads are concurrent, writes for one user are mutually
// exclusive and version-checked.
type Store struct {
	db     *badger.DB
	logger zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a policy store over an open BadgerDB handle.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewStore(db *badger.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "policy_store").Logger(),
		locks:  make(map[string]*sync.Mutex),
	}
}

// userLock returns the write lock for a user, creating it on first use.
func (s *Store) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

// Get returns a snapshot of the user's policy. A user with no stored
// policy gets the default neutral policy at version zero; nothing is
// written until the first update.
func (s *Store) Get(ctx context.Context, userID string) (*Policy, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get policy: %w", err)
	}

	var p Policy
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(policyKeyPrefix + userID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &p)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Default(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get policy for %s: %w", userID, err)
	}
	return &p, nil
}

// Update runs mutate against the user's current policy under the user's
// write lock and persists the result. The stored version is re-checked
// inside the lock; a mismatch with the version the mutation started from
// means another writer slipped in, which the single-writer discipline
// forbids, so the update aborts with ErrPolicyConflict.
func (s *Store) Update(ctx context.Context, userID string, mutate func(*Policy) error) (*Policy, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("update policy: %w", err)
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	current, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	expectedVersion := current.Version

	updated := current.Clone()
	if err := mutate(updated); err != nil {
		return nil, err
	}
	if updated.Version == expectedVersion {
		updated.Version++
	}
	if updated.UpdatedAt.IsZero() {
		updated.UpdatedAt = time.Now().UTC()
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := checkStoredVersion(txn, userID, expectedVersion); err != nil {
			return err
		}
		data, err := json.Marshal(updated)
		if err != nil {
			return fmt.Errorf("marshal policy: %w", err)
		}
		return txn.Set([]byte(policyKeyPrefix+userID), data)
	})
	if err != nil {
		if errors.Is(err, ErrPolicyConflict) {
			s.logger.Error().
				Str("user_id", userID).
				Uint64("expected_version", expectedVersion).
				Msg("policy version conflict, single-writer discipline violated")
		}
		return nil, err
	}

	return updated, nil
}

// checkStoredVersion verifies the stored policy still carries the version
// the mutation read. Absence counts as version zero.
func checkStoredVersion(txn *badger.Txn, userID string, expected uint64) error {
	item, err := txn.Get([]byte(policyKeyPrefix + userID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		if expected != 0 {
			return ErrPolicyConflict
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("check policy version: %w", err)
	}

	var stored Policy
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &stored)
	}); err != nil {
		return err
	}
	if stored.Version != expected {
		return ErrPolicyConflict
	}
	return nil
}
