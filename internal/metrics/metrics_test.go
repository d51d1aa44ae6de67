// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/health", "200"))
	ObserveHTTPRequest("GET", "/health", 200, 5*time.Millisecond)
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/health", "200"))
	if after != before+1 {
		t.Errorf("request counter = %v, want %v", after, before+1)
	}
}

func TestObserveSourceFetch(t *testing.T) {
	before := testutil.ToFloat64(SourceCandidatesTotal.WithLabelValues("deezer"))
	ObserveSourceFetch("deezer", 12, "", 20*time.Millisecond)
	after := testutil.ToFloat64(SourceCandidatesTotal.WithLabelValues("deezer"))
	if after != before+12 {
		t.Errorf("candidate counter = %v, want %v", after, before+12)
	}

	failBefore := testutil.ToFloat64(SourceFailuresTotal.WithLabelValues("itunes", "timeout"))
	ObserveSourceFetch("itunes", 0, "timeout", 3*time.Second)
	failAfter := testutil.ToFloat64(SourceFailuresTotal.WithLabelValues("itunes", "timeout"))
	if failAfter != failBefore+1 {
		t.Errorf("failure counter = %v, want %v", failAfter, failBefore+1)
	}

	// A failed fetch must not count candidates.
	if got := testutil.ToFloat64(SourceCandidatesTotal.WithLabelValues("itunes")); got != 0 {
		t.Errorf("failed fetch counted %v candidates, want 0", got)
	}
}
