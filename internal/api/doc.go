// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

// Package api exposes the recommendation engine over HTTP.
//
// Routing uses chi with CORS, rate limiting, request ids, and Prometheus
// instrumentation. All endpoints return the standard envelope defined in
// response.go: a success flag, a data or error payload, and metadata
// carrying the request id and timing.
package api
