// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

package canonical

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/dgraph-io/badger/v4"

	"github.com/auralis-io/auralis/internal/logging"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	var buf bytes.Buffer
	return NewIndex(db, logging.NewTestLogger(&buf))
}

func indexTrack(title, artist string, popularity float64, refs ...SourceRef) Track {
	return Track{
		ID:         TrackID(title, artist),
		Title:      title,
		Artist:     artist,
		Popularity: popularity,
		Sources:    refs,
	}
}

func TestIndexPutAndGet(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	track := indexTrack("Blue in Green", "Miles Davis", 0.8,
		SourceRef{Source: "deezer", SourceID: "d1"})
	if _, err := ix.PutTracks(ctx, []Track{track}); err != nil {
		t.Fatalf("PutTracks() error = %v", err)
	}

	got, err := ix.Get(ctx, track.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != track.Title || got.Artist != track.Artist {
		t.Errorf("Get() = %q/%q, want %q/%q", got.Title, got.Artist, track.Title, track.Artist)
	}
}

func TestIndexGetUnknown(t *testing.T) {
	ix := newTestIndex(t)
	if _, err := ix.Get(context.Background(), "ffffffffffffffff"); !errors.Is(err, ErrTrackNotFound) {
		t.Errorf("Get(unknown) error = %v, want ErrTrackNotFound", err)
	}
}

func TestIndexResolveWithoutAlias(t *testing.T) {
	ix := newTestIndex(t)
	got, err := ix.Resolve(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != "abc123" {
		t.Errorf("Resolve() = %q, want identity", got)
	}
}

func TestIndexMerge(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	keep := indexTrack("Blue in Green", "Miles Davis", 0.6,
		SourceRef{Source: "deezer", SourceID: "d1"})
	retire := indexTrack("Blue in Green Take 2", "Miles Davis", 0.9,
		SourceRef{Source: "itunes", SourceID: "i1"})
	if _, err := ix.PutTracks(ctx, []Track{keep, retire}); err != nil {
		t.Fatalf("PutTracks() error = %v", err)
	}

	if err := ix.Merge(ctx, retire.ID, keep.ID); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	// The retired id resolves to the survivor.
	resolved, err := ix.Resolve(ctx, retire.ID)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved != keep.ID {
		t.Errorf("Resolve(retired) = %q, want %q", resolved, keep.ID)
	}

	// Get through the retired id returns the merged record.
	got, err := ix.Get(ctx, retire.ID)
	if err != nil {
		t.Fatalf("Get(retired) error = %v", err)
	}
	if got.ID != keep.ID {
		t.Errorf("Get(retired).ID = %q, want %q", got.ID, keep.ID)
	}
	if len(got.Sources) != 2 {
		t.Errorf("merged sources = %d, want 2", len(got.Sources))
	}
	// Higher popularity from either side survives.
	if got.Popularity != 0.9 {
		t.Errorf("merged Popularity = %v, want 0.9", got.Popularity)
	}
}

func TestIndexMergeSelf(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	track := indexTrack("Song", "Artist", 0.5)
	if _, err := ix.PutTracks(ctx, []Track{track}); err != nil {
		t.Fatalf("PutTracks() error = %v", err)
	}

	if err := ix.Merge(ctx, track.ID, track.ID); !errors.Is(err, ErrSelfMerge) {
		t.Errorf("Merge(self) error = %v, want ErrSelfMerge", err)
	}
}

func TestIndexMergeUnknownTrack(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	track := indexTrack("Song", "Artist", 0.5)
	if _, err := ix.PutTracks(ctx, []Track{track}); err != nil {
		t.Fatalf("PutTracks() error = %v", err)
	}

	if err := ix.Merge(ctx, "not-there", track.ID); !errors.Is(err, ErrTrackNotFound) {
		t.Errorf("Merge(unknown) error = %v, want ErrTrackNotFound", err)
	}
}

func TestIndexMergeChainResolves(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	a := indexTrack("Song A", "Artist", 0.5)
	b := indexTrack("Song B", "Artist", 0.5)
	c := indexTrack("Song C", "Artist", 0.5)
	if _, err := ix.PutTracks(ctx, []Track{a, b, c}); err != nil {
		t.Fatalf("PutTracks() error = %v", err)
	}

	if err := ix.Merge(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("Merge(a, b) error = %v", err)
	}
	if err := ix.Merge(ctx, b.ID, c.ID); err != nil {
		t.Fatalf("Merge(b, c) error = %v", err)
	}

	resolved, err := ix.Resolve(ctx, a.ID)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved != c.ID {
		t.Errorf("Resolve(a) = %q, want final survivor %q", resolved, c.ID)
	}

	// Merging into an already retired id follows the alias first.
	if err := ix.Merge(ctx, c.ID, a.ID); !errors.Is(err, ErrSelfMerge) {
		t.Errorf("Merge(c, a) after chain error = %v, want ErrSelfMerge", err)
	}
}

func TestIndexPutCancelledContext(t *testing.T) {
	ix := newTestIndex(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ix.PutTracks(ctx, []Track{indexTrack("Song", "Artist", 0.5)})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("PutTracks(cancelled) error = %v, want context.Canceled", err)
	}
}

func TestIndexFirstSeenStableAcrossReingestion(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	track := indexTrack("Blue in Green", "Miles Davis", 0.8,
		SourceRef{Source: "deezer", SourceID: "d1"})
	if _, err := ix.PutTracks(ctx, []Track{track}); err != nil {
		t.Fatalf("PutTracks() error = %v", err)
	}

	first, err := ix.Get(ctx, track.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if first.FirstSeen.IsZero() {
		t.Fatal("FirstSeen should be stamped on insert")
	}

	// Re-ingesting the same identity keeps the original timestamp.
	track.Popularity = 0.9
	if _, err := ix.PutTracks(ctx, []Track{track}); err != nil {
		t.Fatalf("PutTracks() again error = %v", err)
	}
	second, err := ix.Get(ctx, track.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !second.FirstSeen.Equal(first.FirstSeen) {
		t.Errorf("FirstSeen changed on re-ingestion: %v -> %v", first.FirstSeen, second.FirstSeen)
	}
	if second.Popularity != 0.9 {
		t.Errorf("Popularity = %v, want updated 0.9", second.Popularity)
	}
}

func TestIndexMergeRecordsLineage(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	a := indexTrack("Song A", "Artist", 0.5)
	b := indexTrack("Song B", "Artist", 0.5)
	c := indexTrack("Song C", "Artist", 0.5)
	if _, err := ix.PutTracks(ctx, []Track{a, b, c}); err != nil {
		t.Fatalf("PutTracks() error = %v", err)
	}

	if err := ix.Merge(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("Merge(a, b) error = %v", err)
	}
	if err := ix.Merge(ctx, b.ID, c.ID); err != nil {
		t.Fatalf("Merge(b, c) error = %v", err)
	}

	got, err := ix.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.MergedFrom) != 2 {
		t.Fatalf("MergedFrom = %v, want both retired ids", got.MergedFrom)
	}
	seen := map[string]bool{got.MergedFrom[0]: true, got.MergedFrom[1]: true}
	if !seen[a.ID] || !seen[b.ID] {
		t.Errorf("MergedFrom = %v, want %q and %q", got.MergedFrom, a.ID, b.ID)
	}
}

func TestIndexPutFoldsRetiredIDIntoSurvivor(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	keep := indexTrack("Blue in Green", "Miles Davis", 0.6,
		SourceRef{Source: "deezer", SourceID: "d1"})
	retire := indexTrack("Blue in Green Take 2", "Miles Davis", 0.5,
		SourceRef{Source: "itunes", SourceID: "i1"})
	if _, err := ix.PutTracks(ctx, []Track{keep, retire}); err != nil {
		t.Fatalf("PutTracks() error = %v", err)
	}
	if err := ix.Merge(ctx, retire.ID, keep.ID); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	// The retired identity shows up again on a later ingestion, with a
	// fresh observation.
	again := indexTrack("Blue in Green Take 2", "Miles Davis", 0.9,
		SourceRef{Source: "musicbrainz", SourceID: "m1"})
	stored, err := ix.PutTracks(ctx, []Track{again})
	if err != nil {
		t.Fatalf("PutTracks() error = %v", err)
	}

	if len(stored) != 1 || stored[0].ID != keep.ID {
		t.Fatalf("stored = %+v, want one record under the survivor id %s", stored, keep.ID)
	}
	if stored[0].Popularity != 0.9 {
		t.Errorf("Popularity = %v, want the higher re-ingested 0.9", stored[0].Popularity)
	}
	if len(stored[0].Sources) != 3 {
		t.Errorf("sources = %d, want 3 after folding", len(stored[0].Sources))
	}

	// No shadow record is recreated under the retired id.
	err = ix.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(trackKeyPrefix + retire.ID))
		return err
	})
	if !errors.Is(err, badger.ErrKeyNotFound) {
		t.Errorf("retired id record should stay deleted, got err = %v", err)
	}
}

func TestIndexPutDeduplicatesSurvivorInBatch(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	keep := indexTrack("Song", "Artist", 0.5)
	retire := indexTrack("Song Alt", "Artist", 0.4)
	if _, err := ix.PutTracks(ctx, []Track{keep, retire}); err != nil {
		t.Fatalf("PutTracks() error = %v", err)
	}
	if err := ix.Merge(ctx, retire.ID, keep.ID); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	stored, err := ix.PutTracks(ctx, []Track{keep, retire})
	if err != nil {
		t.Fatalf("PutTracks() error = %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("stored = %d records, want the survivor only", len(stored))
	}
	if stored[0].ID != keep.ID {
		t.Errorf("stored id = %s, want %s", stored[0].ID, keep.ID)
	}
}
