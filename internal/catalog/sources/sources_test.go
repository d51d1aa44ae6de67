// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/auralis-io/auralis/internal/catalog"
)

func TestDeezerSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "mellow jazz" {
			t.Errorf("query = %q, want %q", got, "mellow jazz")
		}
		if got := r.URL.Query().Get("limit"); got != "10" {
			t.Errorf("limit = %q, want %q", got, "10")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"data": [
				{
					"id": 3135556,
					"title": "Harder, Better, Faster, Stronger",
					"duration": 224,
					"rank": 950000,
					"preview": "https://cdn.example/preview.mp3",
					"artist": {"name": "Daft Punk"},
					"album": {"title": "Discovery"}
				},
				{
					"id": 9, "title": "Obscure Cut", "duration": 180, "rank": 100,
					"artist": {"name": "Nobody"}, "album": {"title": "Demos"}
				}
			]
		}`))
	}))
	defer server.Close()

	d := NewDeezer(server.URL)
	got, err := d.Search(context.Background(), []string{"mellow", "jazz"}, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Search() returned %d candidates, want 2", len(got))
	}

	first := got[0]
	if first.Source != DeezerName || first.SourceID != "3135556" {
		t.Errorf("identity = %s/%s, want deezer/3135556", first.Source, first.SourceID)
	}
	if first.Artist != "Daft Punk" || first.Album != "Discovery" {
		t.Errorf("unexpected artist/album: %q / %q", first.Artist, first.Album)
	}
	if first.DurationSec != 224 {
		t.Errorf("DurationSec = %d, want 224", first.DurationSec)
	}
	if first.Popularity < 0.94 || first.Popularity > 0.96 {
		t.Errorf("Popularity = %v, want ~0.95", first.Popularity)
	}
}

func TestDeezerUpstreamError(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantReason catalog.FailureReason
	}{
		{name: "server error", status: http.StatusBadGateway, wantReason: catalog.ReasonUnavailable},
		{name: "rate limited", status: http.StatusTooManyRequests, wantReason: catalog.ReasonRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			d := NewDeezer(server.URL)
			_, err := d.Search(context.Background(), []string{"x"}, 5)
			if err == nil {
				t.Fatal("Search() should fail on upstream error")
			}

			var sf *catalog.SourceFailure
			if !errors.As(err, &sf) {
				t.Fatalf("error should be *catalog.SourceFailure, got %T", err)
			}
			if sf.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", sf.Reason, tt.wantReason)
			}
			if !errors.Is(err, catalog.ErrSourceUnavailable) {
				t.Errorf("error should wrap ErrSourceUnavailable, got %v", err)
			}
		})
	}
}

func TestDeezerMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [`))
	}))
	defer server.Close()

	d := NewDeezer(server.URL)
	_, err := d.Search(context.Background(), []string{"x"}, 5)

	var sf *catalog.SourceFailure
	if !errors.As(err, &sf) {
		t.Fatalf("error should be *catalog.SourceFailure, got %v", err)
	}
	if sf.Reason != catalog.ReasonMalformed {
		t.Errorf("reason = %q, want %q", sf.Reason, catalog.ReasonMalformed)
	}
}

func TestITunesSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("media") != "music" || q.Get("entity") != "song" {
			t.Errorf("media/entity = %q/%q, want music/song", q.Get("media"), q.Get("entity"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"results": [
				{
					"kind": "song",
					"trackId": 1440857781,
					"trackName": "Blue in Green",
					"artistName": "Miles Davis",
					"collectionName": "Kind of Blue",
					"trackTimeMillis": 337600,
					"previewUrl": "https://cdn.example/blue.m4a",
					"releaseDate": "1959-08-17T07:00:00Z",
					"primaryGenreName": "Jazz"
				},
				{
					"kind": "music-video",
					"trackId": 2,
					"trackName": "Not A Song",
					"artistName": "Someone"
				}
			]
		}`))
	}))
	defer server.Close()

	it := NewITunes(server.URL)
	got, err := it.Search(context.Background(), []string{"miles", "davis"}, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Search() returned %d candidates, want 1 (non-songs filtered)", len(got))
	}

	track := got[0]
	if track.Source != ITunesName || track.SourceID != "1440857781" {
		t.Errorf("identity = %s/%s, want itunes/1440857781", track.Source, track.SourceID)
	}
	if track.DurationSec != 337 {
		t.Errorf("DurationSec = %d, want 337 (millis truncated)", track.DurationSec)
	}
	if track.Year != 1959 {
		t.Errorf("Year = %d, want 1959", track.Year)
	}
}

func TestSearchQueryFallback(t *testing.T) {
	if got := searchQuery(nil); got != "popular music" {
		t.Errorf("searchQuery(nil) = %q, want fallback", got)
	}
	if got := searchQuery([]string{"  "}); got != "popular music" {
		t.Errorf("searchQuery(blank) = %q, want fallback", got)
	}
	if got := searchQuery([]string{"warm", "synths"}); got != "warm synths" {
		t.Errorf("searchQuery() = %q, want %q", got, "warm synths")
	}
}

func TestReleaseYear(t *testing.T) {
	if got := releaseYear(""); got != 0 {
		t.Errorf("releaseYear(empty) = %d, want 0", got)
	}
	if got := releaseYear("not-a-date"); got != 0 {
		t.Errorf("releaseYear(garbage) = %d, want 0", got)
	}
	if got := releaseYear("2001-03-12T08:00:00Z"); got != 2001 {
		t.Errorf("releaseYear() = %d, want 2001", got)
	}
}

func TestMusicBrainzSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recording" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("fmt"); got != "json" {
			t.Errorf("fmt = %q, want json", got)
		}
		if got := r.Header.Get("User-Agent"); got == "" {
			t.Error("request must carry a User-Agent")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"recordings": [
				{
					"id": "b1a9c0e9-d987-4042-ae91-78d6a3267d69",
					"score": 100,
					"title": "Space Oddity",
					"length": 318000,
					"first-release-date": "1969-07-11",
					"artist-credit": [{"name": "David Bowie"}],
					"releases": [{"title": "David Bowie"}]
				},
				{
					"id": "no-credit", "score": 40, "title": "Anonymous Tune"
				}
			]
		}`))
	}))
	defer server.Close()

	m := NewMusicBrainz(server.URL)
	got, err := m.Search(context.Background(), []string{"space", "oddity"}, 20)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Search() returned %d candidates, want 2", len(got))
	}

	first := got[0]
	if first.Source != MusicBrainzName || first.SourceID != "b1a9c0e9-d987-4042-ae91-78d6a3267d69" {
		t.Errorf("identity = %s/%s", first.Source, first.SourceID)
	}
	if first.Artist != "David Bowie" || first.Album != "David Bowie" {
		t.Errorf("unexpected artist/album: %q / %q", first.Artist, first.Album)
	}
	if first.DurationSec != 318 {
		t.Errorf("DurationSec = %d, want 318", first.DurationSec)
	}
	if first.Popularity != 1 {
		t.Errorf("Popularity = %v, want 1", first.Popularity)
	}
	if first.Year != 1969 {
		t.Errorf("Year = %d, want 1969", first.Year)
	}

	second := got[1]
	if second.Artist != "" || second.Year != 0 || second.DurationSec != 0 {
		t.Errorf("missing fields should stay zero, got %+v", second)
	}
	if second.Popularity != 0.4 {
		t.Errorf("Popularity = %v, want 0.4", second.Popularity)
	}
}

func TestLeadingYear(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"1969-07-11", 1969},
		{"2020-03", 2020},
		{"1987", 1987},
		{"", 0},
		{"n/a", 0},
	}
	for _, tt := range tests {
		if got := leadingYear(tt.in); got != tt.want {
			t.Errorf("leadingYear(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
