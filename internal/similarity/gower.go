package similarity

import (
	"math"
	"strings"
)

// rangeEpsilon is the minimum span for numeric scaling; degenerate ranges
// clamp to it instead of dividing by zero.
const rangeEpsilon = 1e-6

// SimNumeric scores two numeric values on [0,1] by scaled absolute distance.
// Missing or non-numeric inputs score 0.
func SimNumeric(a, b any, min, max float64) float64 {
	af, okA := toFloat(a)
	bf, okB := toFloat(b)
	if !okA || !okB {
		return 0
	}
	rng := max - min
	if rng < rangeEpsilon {
		rng = rangeEpsilon
	}
	d := math.Abs(af-bf) / rng
	if d > 1 {
		d = 1
	}
	return 1 - d
}

// SimBinary scores 1 when both values coerce to the same truthiness, 0 otherwise.
func SimBinary(a, b any) float64 {
	av, okA := toBool(a)
	bv, okB := toBool(b)
	if !okA || !okB {
		return 0
	}
	if av == bv {
		return 1
	}
	return 0
}

// SimCategorical scores exact case-insensitive string equality. No partial credit.
func SimCategorical(a, b any) float64 {
	as, okA := toText(a)
	bs, okB := toText(b)
	if !okA || !okB {
		return 0
	}
	if strings.EqualFold(as, bs) {
		return 1
	}
	return 0
}

// Gower combines per-feature similarities into one weighted score on [0,1].
// A feature whose gate does not apply to the pair is excluded from both the
// numerator and the denominator; with no applicable features the score is 0.
func Gower(subject, candidate map[string]any, features []Feature) float64 {
	var num, den float64
	for _, f := range features {
		if f.Weight <= 0 || !f.applies(subject, candidate) {
			continue
		}
		num += f.Weight * f.similarity(subject, candidate)
		den += f.Weight
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// FeatureScore is one row of a Gower breakdown.
type FeatureScore struct {
	Key            string  `json:"key"`
	SubjectValue   any     `json:"subject_value"`
	CandidateValue any     `json:"candidate_value"`
	Similarity     float64 `json:"similarity"`
	Weight         float64 `json:"weight"`
	Contribution   float64 `json:"contribution"`
	Skipped        bool    `json:"skipped"`
}

// GowerBreakdown computes the same score as Gower along with every feature's
// resolved values and weighted contribution. Diagnostics only; the ranking
// path uses Gower.
func GowerBreakdown(subject, candidate map[string]any, features []Feature) (float64, []FeatureScore) {
	rows := make([]FeatureScore, 0, len(features))
	var num, den float64
	for _, f := range features {
		row := FeatureScore{
			Key:            f.Key,
			SubjectValue:   Lookup(subject, f.Key),
			CandidateValue: Lookup(candidate, f.Key),
			Weight:         f.Weight,
		}
		if f.Weight <= 0 || !f.applies(subject, candidate) {
			row.Skipped = true
			rows = append(rows, row)
			continue
		}
		row.Similarity = f.similarity(subject, candidate)
		row.Contribution = f.Weight * row.Similarity
		num += row.Contribution
		den += f.Weight
		rows = append(rows, row)
	}
	if den == 0 {
		return 0, rows
	}
	return num / den, rows
}

func (f Feature) similarity(subject, candidate map[string]any) float64 {
	a := Lookup(subject, f.Key)
	b := Lookup(candidate, f.Key)
	switch f.Kind {
	case KindNumeric:
		return SimNumeric(a, b, f.Min, f.Max)
	case KindBinary:
		return SimBinary(a, b)
	case KindCategorical:
		return SimCategorical(a, b)
	}
	return 0
}
