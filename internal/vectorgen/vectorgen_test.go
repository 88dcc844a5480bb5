package vectorgen

import (
	"testing"

	"github.com/philtomson/hotwright/internal/engine"
)

func TestExhaustiveVisitsEveryVectorInAscendingOrder(t *testing.T) {
	var got []string
	Exhaustive(2, func(v engine.Vector) bool {
		got = append(got, vecString(v))
		return true
	})
	want := []string{"00", "01", "10", "11"}
	if len(got) != len(want) {
		t.Fatalf("got %d vectors, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("vector %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExhaustiveStopsEarlyOnFalse(t *testing.T) {
	count := 0
	Exhaustive(3, func(v engine.Vector) bool {
		count++
		return count < 2
	})
	if count != 2 {
		t.Errorf("got %d calls, want 2 (stopped after the second)", count)
	}
}

func TestExhaustiveReusesTheSliceUnlessCloned(t *testing.T) {
	var captured engine.Vector
	Exhaustive(1, func(v engine.Vector) bool {
		if captured == nil {
			captured = v // the first call's vector, intentionally not cloned
		}
		return true
	})
	// The first call saw [false]; because the slice is reused, the retained
	// reference now shows the last call's [true].
	if len(captured) != 1 || captured[0] != true {
		t.Errorf("got %v, want [true]", captured)
	}
}

func TestCount(t *testing.T) {
	tests := []struct {
		numInputs int
		want      int
	}{
		{0, 1},
		{1, 2},
		{3, 8},
		{10, 1024},
	}
	for _, tc := range tests {
		if got := Count(tc.numInputs); got != tc.want {
			t.Errorf("Count(%d) = %d, want %d", tc.numInputs, got, tc.want)
		}
	}
}

func TestSampledCoversZeroOneAndEachSingleBit(t *testing.T) {
	var got []string
	Sampled(3, func(v engine.Vector) bool {
		got = append(got, vecString(v))
		return true
	})
	want := []string{
		"000", // all zero
		"111", // all one
		"100", "010", "001", // each single bit set
		"011", "101", "110", // each single bit clear
	}
	if len(got) != len(want) {
		t.Fatalf("got %d vectors, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("vector %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSampledStopsEarlyOnFalse(t *testing.T) {
	count := 0
	Sampled(4, func(v engine.Vector) bool {
		count++
		return false
	})
	if count != 1 {
		t.Errorf("got %d calls, want 1 (stopped after the first)", count)
	}
}

func TestSampledClonesEachVector(t *testing.T) {
	var vectors []engine.Vector
	Sampled(2, func(v engine.Vector) bool {
		vectors = append(vectors, v)
		return true
	})
	// Mutating one captured vector must not affect another: Sampled hands out
	// independent copies, unlike Exhaustive's reused backing array. The order
	// is 00, 11, 10, 01, 01, 10, so vectors[3] has bit 0 clear.
	vectors[0][0] = true
	if vectors[3][0] {
		t.Error("Sampled vectors share backing storage; mutating one affected another")
	}
}

func vecString(v engine.Vector) string {
	b := make([]byte, len(v))
	for i, bit := range v {
		if bit {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
	}
	return string(b)
}
