// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

// Package history persists each listener's interaction history: per-track
// exposure counts and ratings, plus an append-only feedback log.
package history

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/auralis-io/auralis/internal/canonical"
	"github.com/auralis-io/auralis/internal/policy"
)

// Key prefixes for BadgerDB storage
const (
	trackHistKeyPrefix = "hist:"
	feedbackKeyPrefix  = "feedback:"
)

// TrackHistory is a listener's accumulated interaction with one track.
type TrackHistory struct {
	TrackID     string    `json:"track_id"`
	Artist      string    `json:"artist"`
	Exposures   int       `json:"exposures"`
	LastRating  int       `json:"last_rating,omitempty"`
	LastExposed time.Time `json:"last_exposed"`
	LastRated   time.Time `json:"last_rated,omitempty"`
}

// Exposure names one track shown to a listener.
type Exposure struct {
	TrackID string
	Artist  string
}

// Store is a BadgerDB-backed history store.
type Store struct {
	db     *badger.DB
	logger zerolog.Logger
}

// NewStore creates a history store over an open BadgerDB handle.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewStore(db *badger.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "history").Logger(),
	}
}

func trackHistKey(userID, trackID string) []byte {
	return []byte(trackHistKeyPrefix + userID + ":" + trackID)
}

// RecordExposures increments exposure counts for a batch of shown
// tracks in one transaction.
func (s *Store) RecordExposures(ctx context.Context, userID string, exposures []Exposure, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("record exposures: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, exp := range exposures {
			record, err := getHistInTxn(txn, userID, exp.TrackID)
			if err != nil {
				return err
			}
			if record == nil {
				record = &TrackHistory{TrackID: exp.TrackID, Artist: exp.Artist}
			}
			record.Exposures++
			record.LastExposed = at
			if err := putHistInTxn(txn, userID, record); err != nil {
				return err
			}
		}
		return nil
	})
}

// RecordRating stores a rating against the track's history entry.
func (s *Store) RecordRating(ctx context.Context, userID, trackID, artist string, rating int, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("record rating: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		record, err := getHistInTxn(txn, userID, trackID)
		if err != nil {
			return err
		}
		if record == nil {
			record = &TrackHistory{TrackID: trackID, Artist: artist}
		}
		if record.Artist == "" {
			record.Artist = artist
		}
		record.LastRating = rating
		record.LastRated = at
		return putHistInTxn(txn, userID, record)
	})
}

// UserHistory returns every history entry for a listener.
func (s *Store) UserHistory(ctx context.Context, userID string) ([]TrackHistory, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("user history: %w", err)
	}

	var records []TrackHistory
	prefix := []byte(trackHistKeyPrefix + userID + ":")
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var record TrackHistory
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			}); err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("user history for %s: %w", userID, err)
	}
	return records, nil
}

// ArtistExposures aggregates a listener's exposure counts per normalized
// artist name, the form feature extraction consumes.
func (s *Store) ArtistExposures(ctx context.Context, userID string) (map[string]int, error) {
	records, err := s.UserHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(records))
	for _, r := range records {
		counts[canonical.Normalize(r.Artist)] += r.Exposures
	}
	return counts, nil
}

// ExposureSummary loads a listener's history once and returns both
// aggregates feature extraction needs: exposure counts per normalized
// artist and the last time each track was shown.
func (s *Store) ExposureSummary(ctx context.Context, userID string) (map[string]int, map[string]time.Time, error) {
	records, err := s.UserHistory(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	counts := make(map[string]int, len(records))
	lastSeen := make(map[string]time.Time, len(records))
	for _, r := range records {
		counts[canonical.Normalize(r.Artist)] += r.Exposures
		if !r.LastExposed.IsZero() {
			lastSeen[r.TrackID] = r.LastExposed
		}
	}
	return counts, lastSeen, nil
}

// TrackSeen reports whether the listener has any history for a track.
func (s *Store) TrackSeen(ctx context.Context, userID, trackID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("track seen: %w", err)
	}

	seen := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(trackHistKey(userID, trackID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		seen = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("track seen for %s: %w", userID, err)
	}
	return seen, nil
}

// AppendFeedback writes one event to the listener's append-only feedback
// log. The key embeds the event timestamp and id, so the log reads back
// in time order and redelivered events overwrite themselves instead of
// duplicating.
func (s *Store) AppendFeedback(ctx context.Context, event *policy.FeedbackEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("append feedback: %w", err)
	}

	key := feedbackKeyPrefix + event.UserID + ":" +
		strconv.FormatInt(event.Timestamp.UnixNano(), 10) + ":" + event.EventID
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal feedback event: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// FeedbackLog returns a listener's feedback events in timestamp order.
// A limit <= 0 returns the whole log.
func (s *Store) FeedbackLog(ctx context.Context, userID string, limit int) ([]policy.FeedbackEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("feedback log: %w", err)
	}

	var events []policy.FeedbackEvent
	prefix := []byte(feedbackKeyPrefix + userID + ":")
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(events) >= limit {
				return nil
			}
			var event policy.FeedbackEvent
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &event)
			}); err != nil {
				return err
			}
			events = append(events, event)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("feedback log for %s: %w", userID, err)
	}
	return events, nil
}

// getHistInTxn loads a history entry, returning nil when absent.
func getHistInTxn(txn *badger.Txn, userID, trackID string) (*TrackHistory, error) {
	item, err := txn.Get(trackHistKey(userID, trackID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get history %s/%s: %w", userID, trackID, err)
	}
	var record TrackHistory
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &record)
	}); err != nil {
		return nil, err
	}
	return &record, nil
}

func putHistInTxn(txn *badger.Txn, userID string, record *TrackHistory) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	return txn.Set(trackHistKey(userID, record.TrackID), data)
}
