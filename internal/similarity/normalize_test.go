package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRawDatasetRow(t *testing.T) {
	doc := map[string]any{
		"age_of_the_patient":                        "64",
		"gender":                                    "Male",
		"body_mass_index_bmi":                       27.4,
		"estimated_glomerular_filtration_rate_egfr": "38.5",
		"hemoglobin_level_hgb":                      11.2,
		"diabetes_mellitus_yesno":                   "yes",
		"hypertension_yesno":                        1.0,
		"smoking_status_yesno":                      "no",
	}

	p := Normalize(doc, 7)

	assert.Equal(t, "patient-7", p.ID)
	require.NotNil(t, p.Age)
	assert.Equal(t, 64.0, *p.Age)
	require.NotNil(t, p.Gender)
	assert.Equal(t, "male", *p.Gender)
	require.NotNil(t, p.EGFR)
	assert.Equal(t, 38.5, *p.EGFR)
	require.NotNil(t, p.Diabetic)
	assert.True(t, *p.Diabetic)
	require.NotNil(t, p.HighBP)
	assert.True(t, *p.HighBP)
	require.NotNil(t, p.Smokes)
	assert.False(t, *p.Smokes)
	assert.Equal(t, "Stage 3b", p.Stage)
	assert.Equal(t, "Chronic kidney disease", p.Diagnosis)
	assert.Equal(t, []string{"Diabetes", "High blood pressure"}, p.RiskFactors)
}

func TestNormalizeNestedShape(t *testing.T) {
	doc := map[string]any{
		"id":     "p42",
		"name":   "Ko Ko",
		"age":    51.0,
		"gender": "female",
		"vitals": map[string]any{
			"egfr": 95.0,
			"bmi":  23.1,
		},
		"lifestyle": map[string]any{
			"diabetic": false,
			"highBP":   false,
			"smokes":   true,
		},
		"story":        "Recovered through diet changes.",
		"improvements": []any{"Lowered blood pressure"},
		"labFlags":     []any{"egfr:normal"},
	}

	p := Normalize(doc, 0)

	assert.Equal(t, "p42", p.ID)
	assert.Equal(t, "Ko Ko", p.Name)
	assert.Equal(t, "Stage 1", p.Stage)
	assert.Nil(t, p.Hemoglobin)
	assert.Equal(t, []string{"Smoking"}, p.RiskFactors)
	assert.Equal(t, []string{"Lowered blood pressure"}, p.Improvements)
	assert.Equal(t, []string{"egfr:normal"}, p.LabFlags)
}

func TestNormalizePrefersNestedOverFlat(t *testing.T) {
	doc := map[string]any{
		"vitals": map[string]any{"egfr": 70.0},
		"estimated_glomerular_filtration_rate_egfr": 20.0,
	}
	p := Normalize(doc, 0)
	require.NotNil(t, p.EGFR)
	assert.Equal(t, 70.0, *p.EGFR)

	// an unparseable nested value falls through to the flat field
	doc = map[string]any{
		"vitals": map[string]any{"egfr": "n/a"},
		"estimated_glomerular_filtration_rate_egfr": 20.0,
	}
	p = Normalize(doc, 0)
	require.NotNil(t, p.EGFR)
	assert.Equal(t, 20.0, *p.EGFR)
}

func TestNormalizeMalformedDocument(t *testing.T) {
	p := Normalize(map[string]any{"age_of_the_patient": "??", "gender": 3.0}, 2)

	assert.Equal(t, "patient-2", p.ID)
	assert.Nil(t, p.Age)
	assert.Nil(t, p.Gender)
	assert.Nil(t, p.EGFR)
	assert.Nil(t, p.Diabetic)
	assert.Equal(t, "Unknown", p.Stage)
	assert.Empty(t, p.RiskFactors)
}

func TestStageForEGFR(t *testing.T) {
	stage := func(v float64) string { return StageForEGFR(&v) }

	assert.Equal(t, "Stage 1", stage(90))
	assert.Equal(t, "Stage 2", stage(60))
	assert.Equal(t, "Stage 3a", stage(45))
	assert.Equal(t, "Stage 3b", stage(30))
	assert.Equal(t, "Stage 4", stage(15))
	assert.Equal(t, "Stage 5", stage(14.9))
	assert.Equal(t, "Unknown", StageForEGFR(nil))
}

func TestNormalizeIdempotent(t *testing.T) {
	doc := map[string]any{
		"id":                      "p1",
		"name":                    "Aye Aye",
		"age_of_the_patient":      48.0,
		"gender":                  "Female",
		"estimated_glomerular_filtration_rate_egfr": 52.0,
		"body_mass_index_bmi":                       31.0,
		"diabetes_mellitus_yesno":                   "yes",
		"hypertension_yesno":                        "no",
	}

	first := Normalize(doc, 0)
	second := Normalize(first.Doc(), 0)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Name, second.Name)
	assert.Equal(t, first.Age, second.Age)
	assert.Equal(t, first.Gender, second.Gender)
	assert.Equal(t, first.BMI, second.BMI)
	assert.Equal(t, first.EGFR, second.EGFR)
	assert.Equal(t, first.Hemoglobin, second.Hemoglobin)
	assert.Equal(t, first.Diabetic, second.Diabetic)
	assert.Equal(t, first.HighBP, second.HighBP)
	assert.Equal(t, first.Smokes, second.Smokes)
	assert.Equal(t, first.Stage, second.Stage)
	assert.Equal(t, first.Diagnosis, second.Diagnosis)
	assert.Equal(t, first.RiskFactors, second.RiskFactors)

	// a third pass does not drift either
	third := Normalize(second.Doc(), 0)
	assert.Equal(t, second.Doc(), third.Doc())
}
