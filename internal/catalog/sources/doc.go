// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

// Package sources implements catalog.Source adapters for external music
// catalog APIs. Each adapter normalizes the upstream response into
// catalog.RawCandidate records and maps transport failures onto the
// catalog failure taxonomy.
package sources
