package similarity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
)

// Kind is a feature's comparison type.
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindBinary      Kind = "binary"
	KindCategorical Kind = "categorical"
)

// GateKind selects the applicability rule for a feature. Gates are a closed
// enum instead of closures so descriptors serialize into the signature.
type GateKind string

const (
	// GateAlways applies the feature to every pair.
	GateAlways GateKind = "always"
	// GateBothTrue applies only when GateKey is truthy on both records.
	GateBothTrue GateKind = "both_true"
	// GateBothFinite applies only when GateKey is a finite number on both records.
	GateBothFinite GateKind = "both_finite"
)

// Feature describes one dimension of comparison between two profiles.
// Min/Max are scaling bounds for numeric features; the values set here are
// static fallbacks, overridden per candidate pool by ResolveRanges.
type Feature struct {
	Key     string   `json:"key"`
	Kind    Kind     `json:"kind"`
	Weight  float64  `json:"weight"`
	Min     float64  `json:"min,omitempty"`
	Max     float64  `json:"max,omitempty"`
	Gate    GateKind `json:"gate,omitempty"`
	GateKey string   `json:"gate_key,omitempty"`
}

func (f Feature) applies(subject, candidate map[string]any) bool {
	switch f.Gate {
	case "", GateAlways:
		return true
	case GateBothTrue:
		sv, okS := toBool(Lookup(subject, f.GateKey))
		cv, okC := toBool(Lookup(candidate, f.GateKey))
		return okS && okC && sv && cv
	case GateBothFinite:
		_, okS := toFloat(Lookup(subject, f.GateKey))
		_, okC := toFloat(Lookup(candidate, f.GateKey))
		return okS && okC
	}
	return true
}

// DefaultFeatures is the feature configuration used for patient cohort
// matching. Numeric bounds are fallbacks only; ranking resolves real bounds
// from the candidate pool.
func DefaultFeatures() []Feature {
	return []Feature{
		{Key: "age", Kind: KindNumeric, Weight: 1, Min: 18, Max: 90},
		{Key: "gender", Kind: KindCategorical, Weight: 0.5},
		{Key: "vitals.egfr", Kind: KindNumeric, Weight: 2, Min: 5, Max: 120},
		{Key: "vitals.bmi", Kind: KindNumeric, Weight: 1, Min: 15, Max: 45},
		{Key: "vitals.hemoglobin", Kind: KindNumeric, Weight: 1, Min: 6, Max: 18,
			Gate: GateBothFinite, GateKey: "vitals.hemoglobin"},
		{Key: "lifestyle.diabetic", Kind: KindBinary, Weight: 1.5},
		{Key: "lifestyle.highBP", Kind: KindBinary, Weight: 1},
		{Key: "lifestyle.smokes", Kind: KindBinary, Weight: 1},
	}
}

// ResolveRanges returns a copy of templates with numeric Min/Max recomputed
// from the candidate pool, so scaling adapts to the actual data distribution.
// Templates are never mutated; a feature with no finite pool values keeps its
// fallback range. Degenerate ranges are widened to rangeEpsilon.
func ResolveRanges(pool []map[string]any, templates []Feature) []Feature {
	resolved := make([]Feature, len(templates))
	copy(resolved, templates)
	for i := range resolved {
		f := &resolved[i]
		if f.Kind != KindNumeric {
			continue
		}
		lo := math.Inf(1)
		hi := math.Inf(-1)
		for _, doc := range pool {
			v, ok := toFloat(Lookup(doc, f.Key))
			if !ok {
				continue
			}
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if lo > hi {
			continue // no finite values in the pool, keep fallback
		}
		if hi-lo < rangeEpsilon {
			hi = lo + rangeEpsilon
		}
		f.Min = lo
		f.Max = hi
	}
	return resolved
}

// signatureVersion prefixes every computed signature so a format change
// invalidates older cache entries.
const signatureVersion = "v1"

// EmptyPoolSignature is the sentinel returned when the candidate pool is empty.
const EmptyPoolSignature = "empty:candidates"

// Signature hashes the resolved subject document, the resolved feature
// descriptors and the effective result count. Same inputs produce the same
// signature, which lets a cache layer skip recomputation.
func Signature(subject map[string]any, features []Feature, limit int) string {
	payload := struct {
		Subject  map[string]any `json:"subject"`
		Features []Feature      `json:"features"`
		Limit    int            `json:"limit"`
	}{Subject: subject, Features: features, Limit: limit}
	b, err := json.Marshal(payload)
	if err != nil {
		return signatureVersion + ":unhashable"
	}
	sum := sha256.Sum256(b)
	return signatureVersion + ":" + hex.EncodeToString(sum[:])
}
