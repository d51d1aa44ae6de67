// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

package policy

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dgraph-io/badger/v4"

	"github.com/auralis-io/auralis/internal/feature"
	"github.com/auralis-io/auralis/internal/logging"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	var buf bytes.Buffer
	return NewStore(db, logging.NewTestLogger(&buf))
}

func TestStoreGetMissingReturnsDefault(t *testing.T) {
	s := newTestStore(t)

	p, err := s.Get(context.Background(), "new-user")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.UserID != "new-user" || p.Version != 0 {
		t.Errorf("Get(missing) = %+v, want neutral default at version 0", p)
	}
}

func TestStoreUpdatePersists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	updated, err := s.Update(ctx, "u1", func(p *Policy) error {
		p.Weights[feature.DimNovelty] = 0.5
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Version != 1 {
		t.Errorf("Version = %d, want 1", updated.Version)
	}

	got, err := s.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Weights[feature.DimNovelty] != 0.5 {
		t.Errorf("persisted weight = %v, want 0.5", got.Weights[feature.DimNovelty])
	}
	if got.Version != 1 {
		t.Errorf("persisted Version = %d, want 1", got.Version)
	}
}

func TestStoreUpdateMutateError(t *testing.T) {
	s := newTestStore(t)
	wantErr := errors.New("boom")

	_, err := s.Update(context.Background(), "u1", func(p *Policy) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("Update() error = %v, want mutate error", err)
	}

	// Failed mutation must not persist anything.
	got, err := s.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Version != 0 {
		t.Errorf("Version after failed mutate = %d, want 0", got.Version)
	}
}

func TestStoreSerialUpdatesNeverConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := s.Update(ctx, "u1", func(p *Policy) error {
			p.UpdateCount++
			return nil
		}); err != nil {
			t.Fatalf("Update() %d error = %v", i, err)
		}
	}

	got, err := s.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Version != 10 || got.UpdateCount != 10 {
		t.Errorf("after 10 updates: version %d count %d, want 10/10", got.Version, got.UpdateCount)
	}
}

func TestStoreConcurrentUpdatesSameUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(ctx, "u1", func(p *Policy) error {
				p.UpdateCount++
				return nil
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("locked updates should never conflict: %v", err)
		}
	}

	got, err := s.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.UpdateCount != workers {
		t.Errorf("UpdateCount = %d, want %d (no lost updates)", got.UpdateCount, workers)
	}
}

func TestStoreConcurrentDistinctUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	users := []string{"a", "b", "c", "d"}
	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				if _, err := s.Update(ctx, u, func(p *Policy) error {
					p.UpdateCount++
					return nil
				}); err != nil {
					t.Errorf("Update(%s) error = %v", u, err)
				}
			}
		}()
	}
	wg.Wait()

	for _, u := range users {
		got, err := s.Get(ctx, u)
		if err != nil {
			t.Fatalf("Get(%s) error = %v", u, err)
		}
		if got.UpdateCount != 5 {
			t.Errorf("user %s UpdateCount = %d, want 5", u, got.UpdateCount)
		}
	}
}

func TestStoreGetReturnsSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Update(ctx, "u1", func(p *Policy) error {
		p.Weights[feature.DimRecency] = 2
		return nil
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	snap, err := s.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	snap.Weights[feature.DimRecency] = -99

	again, err := s.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if again.Weights[feature.DimRecency] != 2 {
		t.Error("mutating a snapshot must not affect the stored policy")
	}
}
