package service

import (
	"testing"

	"kidneyguard-data/internal/similarity"

	"github.com/stretchr/testify/assert"
)

func riskProfile(doc map[string]any) similarity.Profile {
	return similarity.Normalize(doc, 0)
}

func TestCategorizeRiskBands(t *testing.T) {
	// no known attributes: nothing to score
	low := CategorizeRisk(riskProfile(map[string]any{}))
	assert.Equal(t, "low", low.Band)
	assert.Equal(t, 0, low.Score)
	assert.Empty(t, low.Factors)

	// mild reduction alone stays low
	mild := CategorizeRisk(riskProfile(map[string]any{
		"age":    65.0,
		"vitals": map[string]any{"egfr": 55.0},
	}))
	assert.Equal(t, "low", mild.Band)
	assert.Equal(t, 2, mild.Score)
	assert.Equal(t, []string{"Mildly reduced eGFR", "Age 60 or older"}, mild.Factors)

	// diabetes + hypertension + mildly reduced eGFR
	assessment := CategorizeRisk(riskProfile(map[string]any{
		"vitals":    map[string]any{"egfr": 50.0},
		"lifestyle": map[string]any{"diabetic": true, "highBP": true},
	}))
	assert.Equal(t, "moderate", assessment.Band)
	assert.Contains(t, assessment.Factors, "Diabetes")

	// stacked factors reach very_high
	worst := CategorizeRisk(riskProfile(map[string]any{
		"age":       75.0,
		"vitals":    map[string]any{"egfr": 12.0, "bmi": 36.0, "hemoglobin": 9.5},
		"lifestyle": map[string]any{"diabetic": true, "highBP": true, "smokes": true},
	}))
	assert.Equal(t, "very_high", worst.Band)
	assert.Equal(t, "Stage 5", worst.Stage)
	assert.GreaterOrEqual(t, worst.Score, 7)
}
