// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

// Package engine is the recommendation orchestrator. It sequences the
// catalog fan-out, canonicalization, feature extraction, and ranking for
// each request, remembers the feature vector behind every shown track,
// and routes feedback into the policy pipeline.
package engine
