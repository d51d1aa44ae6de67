// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

// Package canonical merges raw catalog candidates that describe the same
// underlying track into a single canonical record with a stable identity.
//
// Candidates merge when their normalized titles match exactly, their
// artists are close by edit distance, and their durations agree within a
// small tolerance. The canonical identifier is a content hash of the
// normalized title and artist, so the same track resolves to the same
// identity across requests and across sources. The Index persists merged
// tracks and identity aliases so explicit merges survive restarts.
package canonical
