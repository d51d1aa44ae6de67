// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

// Package middleware provides HTTP middleware shared across routes:
// request id propagation and Prometheus request instrumentation.
package middleware
