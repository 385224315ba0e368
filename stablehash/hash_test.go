package stablehash

import (
	"strings"
	"testing"
)

func TestSumDeterministic(t *testing.T) {
	v := map[string]any{"page": 1, "limit": 20, "filter": []string{"a", "b"}}
	h1 := MustSum(v)
	h2 := MustSum(v)
	if h1 != h2 {
		t.Fatalf("same value hashed differently: %q vs %q", h1, h2)
	}
	if len(h1) != DigestLen {
		t.Fatalf("digest length = %d, want %d", len(h1), DigestLen)
	}
	if h1 != strings.ToLower(h1) {
		t.Fatalf("digest should be lowercase hex, got %q", h1)
	}
}

// A struct and its equivalent map must hash the same: normalization goes
// through JSON, so field names and number widths unify.
func TestSumStructMapEquivalence(t *testing.T) {
	type params struct {
		Page  int `json:"page"`
		Limit int `json:"limit"`
	}
	hStruct := MustSum(params{Page: 1, Limit: 20})
	hMap := MustSum(map[string]any{"limit": 20, "page": 1})
	if hStruct != hMap {
		t.Fatalf("struct and equivalent map differ: %q vs %q", hStruct, hMap)
	}
}

func TestSumMapKeyOrderIrrelevant(t *testing.T) {
	// Go maps are unordered; force differently-built maps with nesting
	// to exercise recursive normalization.
	a := map[string]any{
		"outer": map[string]any{"x": 1, "y": 2},
		"list":  []any{1, 2, 3},
	}
	b := map[string]any{
		"list":  []any{1, 2, 3},
		"outer": map[string]any{"y": 2, "x": 1},
	}
	if MustSum(a) != MustSum(b) {
		t.Fatalf("map key order changed the hash")
	}
}

func TestSumSequenceOrderMatters(t *testing.T) {
	a := MustSum([]string{"a", "b"})
	b := MustSum([]string{"b", "a"})
	if a == b {
		t.Fatalf("reordered sequence produced identical hash %q", a)
	}
}

func TestSumDistinguishesValues(t *testing.T) {
	a := MustSum(map[string]any{"page": 1, "limit": 20})
	b := MustSum(map[string]any{"page": 2, "limit": 20})
	if a == b {
		t.Fatalf("different params produced identical hash %q", a)
	}
}

func TestSumScalarsAndNil(t *testing.T) {
	if _, err := Sum(nil); err != nil {
		t.Fatalf("Sum(nil): %v", err)
	}
	for _, v := range []any{"s", 42, 3.14, true} {
		if _, err := Sum(v); err != nil {
			t.Fatalf("Sum(%v): %v", v, err)
		}
	}
	if MustSum("x") == MustSum("y") {
		t.Fatalf("distinct scalars collided")
	}
}

func TestSumUnserializable(t *testing.T) {
	if _, err := Sum(func() {}); err == nil {
		t.Fatalf("expected error for unserializable value")
	}
}
