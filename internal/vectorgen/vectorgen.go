// Package vectorgen enumerates the input-vector space of a compiled
// program: build up one bit position at a time, calling back for every
// complete combination, stopping early if the callback says so.
package vectorgen

import "github.com/philtomson/hotwright/internal/engine"

// Exhaustive calls fn once for every one of the 2^n possible input vectors
// over n inputs, in ascending binary order. fn returns false to stop early.
// The slice passed to fn is reused between calls — copy it if retained.
func Exhaustive(numInputs int, fn func(v engine.Vector) bool) {
	vec := make(engine.Vector, numInputs)
	enumerateRec(vec, 0, fn)
}

func enumerateRec(vec engine.Vector, pos int, fn func(engine.Vector) bool) bool {
	if pos == len(vec) {
		return fn(vec)
	}
	vec[pos] = false
	if !enumerateRec(vec, pos+1, fn) {
		return false
	}
	vec[pos] = true
	return enumerateRec(vec, pos+1, fn)
}

// Count returns the number of distinct vectors over numInputs bits.
func Count(numInputs int) int {
	if numInputs <= 0 {
		return 1
	}
	return 1 << uint(numInputs)
}

// MaxExhaustiveInputs is the largest input count the verify command sweeps
// with Exhaustive; beyond it the 2^n space is large enough that verify falls
// back to the fixed Sampled set. Exhaustive itself does not check this
// limit.
const MaxExhaustiveInputs = 20

// Sampled calls fn for a deterministic, fixed-size sample of the input
// space: the all-zero vector, the all-one vector, every single-bit-set
// vector, and every single-bit-clear vector — a fixed table that is cheap
// to run and catches the overwhelming majority of real regressions before
// paying for an exhaustive sweep.
func Sampled(numInputs int, fn func(v engine.Vector) bool) {
	base := make(engine.Vector, numInputs)
	if !fn(cloneVector(base)) {
		return
	}
	allOnes := make(engine.Vector, numInputs)
	for i := range allOnes {
		allOnes[i] = true
	}
	if !fn(cloneVector(allOnes)) {
		return
	}
	for i := 0; i < numInputs; i++ {
		v := cloneVector(base)
		v[i] = true
		if !fn(v) {
			return
		}
	}
	for i := 0; i < numInputs; i++ {
		v := cloneVector(allOnes)
		v[i] = false
		if !fn(v) {
			return
		}
	}
}

func cloneVector(v engine.Vector) engine.Vector {
	c := make(engine.Vector, len(v))
	copy(c, v)
	return c
}
