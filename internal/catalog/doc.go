// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

// Package catalog aggregates track candidates from external music catalogs.
//
// A Fetcher fans a search intent out to every registered Source
// concurrently, bounding each source with its own deadline, rate limiter,
// and circuit breaker. A failing source degrades coverage rather than
// failing the request; only when every source fails does Fetch return an
// error.
package catalog
