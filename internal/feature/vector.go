// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

package feature

// Feature dimensions. The order is part of the persisted policy format;
// append new dimensions, never reorder.
const (
	DimSimilarity = iota
	DimPopularity
	DimNovelty
	DimRecency

	NumDims
)

// dimNames maps dimensions to their wire names.
var dimNames = [NumDims]string{"similarity", "popularity", "novelty", "recency"}

// Vector is a fixed-size feature vector. Every component lies in [0,1]
// when produced by the Extractor.
type Vector [NumDims]float64

// Dot returns the inner product with w.
func (v Vector) Dot(w Vector) float64 {
	var sum float64
	for i := range v {
		sum += v[i] * w[i]
	}
	return sum
}

// Scale returns v multiplied componentwise by s.
func (v Vector) Scale(s float64) Vector {
	var out Vector
	for i := range v {
		out[i] = v[i] * s
	}
	return out
}

// Add returns the componentwise sum of v and w.
func (v Vector) Add(w Vector) Vector {
	var out Vector
	for i := range v {
		out[i] = v[i] + w[i]
	}
	return out
}

// Clamp returns v with each component limited to [lo, hi].
func (v Vector) Clamp(lo, hi float64) Vector {
	out := v
	for i := range out {
		if out[i] < lo {
			out[i] = lo
		}
		if out[i] > hi {
			out[i] = hi
		}
	}
	return out
}

// Named returns the vector keyed by dimension name, for API responses
// and logs.
func (v Vector) Named() map[string]float64 {
	out := make(map[string]float64, NumDims)
	for i, name := range dimNames {
		out[name] = v[i]
	}
	return out
}

// DimName returns the wire name of a dimension.
func DimName(dim int) string {
	if dim < 0 || dim >= NumDims {
		return "unknown"
	}
	return dimNames[dim]
}
