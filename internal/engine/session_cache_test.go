// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

package engine

import (
	"testing"
	"time"

	"github.com/auralis-io/auralis/internal/feature"
)

func cacheVector(similarity float64) feature.Vector {
	var v feature.Vector
	v[feature.DimSimilarity] = similarity
	return v
}

func TestSessionCachePutGet(t *testing.T) {
	c := NewSessionCache(10, time.Minute)

	want := cacheVector(0.7)
	c.Put("u1", "s1", "t1", want)

	got, ok := c.Get("u1", "s1", "t1")
	if !ok {
		t.Fatal("Get() should find the stored vector")
	}
	if got != want {
		t.Errorf("Get() = %v, want %v", got, want)
	}

	if _, ok := c.Get("u1", "s2", "t1"); ok {
		t.Error("different session should miss")
	}
	if _, ok := c.Get("u2", "s1", "t1"); ok {
		t.Error("different user should miss")
	}
}

func TestSessionCacheOverwrite(t *testing.T) {
	c := NewSessionCache(10, time.Minute)

	c.Put("u1", "s1", "t1", cacheVector(0.1))
	c.Put("u1", "s1", "t1", cacheVector(0.9))

	got, ok := c.Get("u1", "s1", "t1")
	if !ok || got != cacheVector(0.9) {
		t.Errorf("Get() = %v/%v, want updated vector", got, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after overwrite", c.Len())
	}
}

func TestSessionCacheEvictsLRU(t *testing.T) {
	c := NewSessionCache(2, time.Minute)

	c.Put("u1", "s1", "t1", cacheVector(0.1))
	c.Put("u1", "s1", "t2", cacheVector(0.2))

	// Touch t1 so t2 becomes least recently used.
	if _, ok := c.Get("u1", "s1", "t1"); !ok {
		t.Fatal("t1 should be cached")
	}

	c.Put("u1", "s1", "t3", cacheVector(0.3))

	if _, ok := c.Get("u1", "s1", "t2"); ok {
		t.Error("least recently used entry should have been evicted")
	}
	if _, ok := c.Get("u1", "s1", "t1"); !ok {
		t.Error("recently used entry should survive eviction")
	}
	if _, ok := c.Get("u1", "s1", "t3"); !ok {
		t.Error("newest entry should be cached")
	}
}

func TestSessionCacheTTLExpiry(t *testing.T) {
	c := NewSessionCache(10, 20*time.Millisecond)

	c.Put("u1", "s1", "t1", cacheVector(0.5))
	time.Sleep(40 * time.Millisecond)

	if _, ok := c.Get("u1", "s1", "t1"); ok {
		t.Error("expired entry should miss")
	}
}

func TestSessionCacheStats(t *testing.T) {
	c := NewSessionCache(10, time.Minute)
	c.Put("u1", "s1", "t1", cacheVector(0.5))

	c.Get("u1", "s1", "t1")
	c.Get("u1", "s1", "missing")

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("Stats() = %d hits, %d misses; want 1, 1", hits, misses)
	}
}
