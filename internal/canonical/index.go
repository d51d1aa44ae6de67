// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

package canonical

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Key prefixes for BadgerDB storage
const (
	trackKeyPrefix = "track:"
	aliasKeyPrefix = "alias:"
)

// maxAliasDepth bounds alias-chain resolution. Chains longer than this
// indicate index corruption.
const maxAliasDepth = 16

// Sentinel errors for index operations.
var (
	// ErrTrackNotFound is returned when no track exists under an id after
	// alias resolution.
	ErrTrackNotFound = errors.New("canonical track not found")

	// ErrAliasCycle is returned when alias resolution exceeds the maximum
	// chain depth.
	ErrAliasCycle = errors.New("alias chain too deep")

	// ErrSelfMerge is returned when a merge names the same id on both
	// sides.
	ErrSelfMerge = errors.New("cannot merge a track into itself")
)

// Index persists canonical tracks and identity aliases in BadgerDB.
// Aliases redirect a retired canonical id to its surviving identity so
// that history and policy references written before a merge still
// resolve.
type Index struct {
	db     *badger.DB
	logger zerolog.Logger
}

// NewIndex creates a track index over an open BadgerDB handle.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewIndex(db *badger.DB, logger zerolog.Logger) *Index {
	return &Index{
		db:     db,
		logger: logger.With().Str("component", "canonical_index").Logger(),
	}
}

// PutTracks upserts a batch of canonical tracks and returns the records
// as stored. An id retired by an earlier merge folds into its surviving
// identity, so the returned batch carries only live ids. First-seen
// timestamps and merge lineage recorded under an id survive re-ingestion
// of the same identity.
func (ix *Index) PutTracks(ctx context.Context, tracks []Track) ([]Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("put tracks: %w", err)
	}
	now := time.Now().UTC()

	var stored []Track
	err := ix.db.Update(func(txn *badger.Txn) error {
		out := make([]Track, 0, len(tracks))
		pos := make(map[string]int, len(tracks))
		keep := func(t Track) {
			if i, ok := pos[t.ID]; ok {
				out[i] = t
				return
			}
			pos[t.ID] = len(out)
			out = append(out, t)
		}

		for i := range tracks {
			track := tracks[i]
			resolved, err := resolveInTxn(txn, track.ID)
			if err != nil {
				return err
			}
			if resolved != track.ID {
				target, err := getTrackInTxn(txn, resolved)
				if err != nil {
					return err
				}
				absorb(target, &track)
				if err := putTrackInTxn(txn, target); err != nil {
					return err
				}
				keep(*target)
				continue
			}

			existing, err := getTrackInTxn(txn, track.ID)
			switch {
			case err == nil:
				track.FirstSeen = existing.FirstSeen
				track.MergedFrom = existing.MergedFrom
			case errors.Is(err, ErrTrackNotFound):
				track.FirstSeen = now
			default:
				return err
			}
			if err := putTrackInTxn(txn, &track); err != nil {
				return err
			}
			keep(track)
		}

		stored = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// Resolve follows the alias chain from id to the surviving canonical id.
// An id with no alias resolves to itself.
func (ix *Index) Resolve(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("resolve: %w", err)
	}

	resolved := id
	err := ix.db.View(func(txn *badger.Txn) error {
		var err error
		resolved, err = resolveInTxn(txn, id)
		return err
	})
	if err != nil {
		return "", err
	}
	return resolved, nil
}

// Get returns the canonical track for an id, following aliases.
func (ix *Index) Get(ctx context.Context, id string) (*Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get track: %w", err)
	}

	var track Track
	err := ix.db.View(func(txn *badger.Txn) error {
		resolved, err := resolveInTxn(txn, id)
		if err != nil {
			return err
		}
		item, err := txn.Get([]byte(trackKeyPrefix + resolved))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrTrackNotFound
		}
		if err != nil {
			return fmt.Errorf("get track %s: %w", resolved, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &track)
		})
	})
	if err != nil {
		return nil, err
	}
	return &track, nil
}

// Merge folds the track stored under fromID into the track under toID.
// The surviving record keeps toID's display fields, unions the source
// references, and keeps the higher popularity. An alias from fromID to
// toID is written in the same transaction so the old id keeps resolving.
//
// Cancellation is only honored before the transaction starts; once
// underway the merge commits in full so the index never holds a
// half-applied merge.
func (ix *Index) Merge(ctx context.Context, fromID, toID string) error {
	if fromID == toID {
		return ErrSelfMerge
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("merge: %w", err)
	}

	err := ix.db.Update(func(txn *badger.Txn) error {
		from, err := resolveInTxn(txn, fromID)
		if err != nil {
			return err
		}
		to, err := resolveInTxn(txn, toID)
		if err != nil {
			return err
		}
		if from == to {
			return ErrSelfMerge
		}

		target, err := getTrackInTxn(txn, to)
		if err != nil {
			return err
		}
		source, err := getTrackInTxn(txn, from)
		if err != nil {
			return err
		}

		mergeInto(target, source)

		if err := putTrackInTxn(txn, target); err != nil {
			return err
		}
		if err := txn.Delete([]byte(trackKeyPrefix + from)); err != nil {
			return fmt.Errorf("delete merged-away track: %w", err)
		}
		if err := txn.Set([]byte(aliasKeyPrefix+from), []byte(to)); err != nil {
			return fmt.Errorf("set alias: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	ix.logger.Info().
		Str("from_id", fromID).
		Str("to_id", toID).
		Msg("merged canonical tracks")
	return nil
}

// resolveInTxn follows the alias chain inside an open transaction.
func resolveInTxn(txn *badger.Txn, id string) (string, error) {
	current := id
	for depth := 0; depth < maxAliasDepth; depth++ {
		item, err := txn.Get([]byte(aliasKeyPrefix + current))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return current, nil
		}
		if err != nil {
			return "", fmt.Errorf("resolve alias %s: %w", current, err)
		}
		if err := item.Value(func(val []byte) error {
			current = string(val)
			return nil
		}); err != nil {
			return "", fmt.Errorf("read alias %s: %w", current, err)
		}
	}
	return "", ErrAliasCycle
}

// getTrackInTxn loads a track record inside an open transaction.
func getTrackInTxn(txn *badger.Txn, id string) (*Track, error) {
	item, err := txn.Get([]byte(trackKeyPrefix + id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrTrackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get track %s: %w", id, err)
	}
	var track Track
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &track)
	}); err != nil {
		return nil, err
	}
	return &track, nil
}

// mergeInto folds source into target in place, recording lineage.
func mergeInto(target, source *Track) {
	absorb(target, source)
	target.MergedFrom = append(target.MergedFrom, source.ID)
	target.MergedFrom = append(target.MergedFrom, source.MergedFrom...)
}

// absorb blends source's observations into target without touching
// lineage. Used both by explicit merges and by re-ingestion of an id
// already retired into target.
func absorb(target, source *Track) {
	seen := make(map[SourceRef]bool, len(target.Sources))
	for _, ref := range target.Sources {
		seen[ref] = true
	}
	for _, ref := range source.Sources {
		if !seen[ref] {
			target.Sources = append(target.Sources, ref)
			seen[ref] = true
		}
	}

	if source.Popularity > target.Popularity {
		target.Popularity = source.Popularity
	}
	if target.PreviewURL == "" {
		target.PreviewURL = source.PreviewURL
	}
	if target.Album == "" {
		target.Album = source.Album
	}
	if target.Year == 0 {
		target.Year = source.Year
	}
	if target.DurationSec == 0 {
		target.DurationSec = source.DurationSec
	}
	if !source.FirstSeen.IsZero() &&
		(target.FirstSeen.IsZero() || source.FirstSeen.Before(target.FirstSeen)) {
		target.FirstSeen = source.FirstSeen
	}
}

// putTrackInTxn writes a track record inside an open transaction.
func putTrackInTxn(txn *badger.Txn, track *Track) error {
	data, err := json.Marshal(track)
	if err != nil {
		return fmt.Errorf("marshal track %s: %w", track.ID, err)
	}
	if err := txn.Set([]byte(trackKeyPrefix+track.ID), data); err != nil {
		return fmt.Errorf("set track %s: %w", track.ID, err)
	}
	return nil
}
