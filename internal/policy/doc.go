// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

// Package policy holds each listener's ranking policy and applies
// feedback to it.
//
// A Policy is a weight vector over the feature dimensions plus a
// discovery coefficient, versioned and persisted per user. The Processor
// turns rating events into bounded online gradient steps: reward is the
// 1-5 rating remapped to [-1,+1], the step size decays with the user's
// update count, and weights are clamped after every step. All updates
// for one user are serialized and applied in event-timestamp order;
// other users update concurrently.
package policy
