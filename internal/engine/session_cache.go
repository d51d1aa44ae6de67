// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

package engine

import (
	"sync"
	"time"

	"github.com/auralis-io/auralis/internal/feature"
)

// shownEntry is one cached feature vector in the session cache's
// doubly-linked recency list.
type shownEntry struct {
	key       string
	value     feature.Vector
	prev      *shownEntry
	next      *shownEntry
	expiresAt time.Time
}

// SessionCache remembers the exact feature vector used for each track
// shown in a recommendation session, keyed by (user, session, track).
// Feedback applies the shown vector, not a recomputed one, so credit
// lands on the features the listener actually reacted to.
//
// The cache is a thread-safe LRU with TTL: O(1) get, put, and eviction,
// expiration handled lazily on access.
type SessionCache struct {
	mu sync.Mutex

	capacity int
	ttl      time.Duration

	items map[string]*shownEntry

	// head.next is most recently used, tail.prev is least recently used.
	head *shownEntry
	tail *shownEntry

	hits   int64
	misses int64
}

// NewSessionCache creates a session cache. Non-positive capacity or TTL
// select defaults sized for a few thousand concurrent sessions.
func NewSessionCache(capacity int, ttl time.Duration) *SessionCache {
	if capacity <= 0 {
		capacity = 50000
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	c := &SessionCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*shownEntry, capacity),
		head:     &shownEntry{},
		tail:     &shownEntry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// shownKey composes the cache key. The separator cannot occur in ids.
func shownKey(userID, sessionID, trackID string) string {
	return userID + "\x1f" + sessionID + "\x1f" + trackID
}

// Put records the vector used when a track was shown.
func (c *SessionCache) Put(userID, sessionID, trackID string, v feature.Vector) {
	key := shownKey(userID, sessionID, trackID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.items[key]; exists {
		entry.value = v
		entry.expiresAt = time.Now().Add(c.ttl)
		c.moveToFront(entry)
		return
	}

	entry := &shownEntry{
		key:       key,
		value:     v,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.items[key] = entry
	c.pushFront(entry)

	if len(c.items) > c.capacity {
		c.removeEntry(c.tail.prev)
	}
}

// Get returns the vector recorded for a shown track, if still cached.
func (c *SessionCache) Get(userID, sessionID, trackID string) (feature.Vector, bool) {
	key := shownKey(userID, sessionID, trackID)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.items[key]
	if !exists {
		c.misses++
		return feature.Vector{}, false
	}
	if time.Now().After(entry.expiresAt) {
		c.removeEntry(entry)
		c.misses++
		return feature.Vector{}, false
	}

	c.moveToFront(entry)
	c.hits++
	return entry.value, true
}

// Len returns the number of cached entries, counting expired ones not
// yet lazily evicted.
func (c *SessionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns cumulative hit and miss counts.
func (c *SessionCache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *SessionCache) pushFront(entry *shownEntry) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *SessionCache) moveToFront(entry *shownEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	c.pushFront(entry)
}

func (c *SessionCache) removeEntry(entry *shownEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	delete(c.items, entry.key)
}
