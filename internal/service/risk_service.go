package service

import (
	"kidneyguard-data/internal/similarity"
)

// RiskAssessment is the CKD risk band for one profile, with the factors that
// contributed to it.
type RiskAssessment struct {
	Band    string   `json:"band"` // low | moderate | high | very_high
	Score   int      `json:"score"`
	Stage   string   `json:"stage"`
	Factors []string `json:"factors"`
}

// CategorizeRisk applies the fixed clinical bins to a normalized profile.
// Pure rule table; unknown attributes contribute nothing.
func CategorizeRisk(p similarity.Profile) RiskAssessment {
	score := 0
	var factors []string

	if p.EGFR != nil {
		switch v := *p.EGFR; {
		case v < 15:
			score += 4
			factors = append(factors, "Kidney failure range eGFR")
		case v < 30:
			score += 3
			factors = append(factors, "Severely reduced eGFR")
		case v < 45:
			score += 2
			factors = append(factors, "Moderately reduced eGFR")
		case v < 60:
			score++
			factors = append(factors, "Mildly reduced eGFR")
		}
	}

	if p.Age != nil {
		switch v := *p.Age; {
		case v >= 70:
			score += 2
			factors = append(factors, "Age 70 or older")
		case v >= 60:
			score++
			factors = append(factors, "Age 60 or older")
		}
	}

	if p.BMI != nil {
		switch v := *p.BMI; {
		case v >= 35:
			score += 2
			factors = append(factors, "Severe obesity")
		case v >= 30:
			score++
			factors = append(factors, "Obesity")
		case v < 18.5:
			score++
			factors = append(factors, "Underweight")
		}
	}

	if p.Hemoglobin != nil && *p.Hemoglobin < 11 {
		score++
		factors = append(factors, "Low hemoglobin")
	}
	if p.Diabetic != nil && *p.Diabetic {
		score += 2
		factors = append(factors, "Diabetes")
	}
	if p.HighBP != nil && *p.HighBP {
		score++
		factors = append(factors, "High blood pressure")
	}
	if p.Smokes != nil && *p.Smokes {
		score++
		factors = append(factors, "Smoking")
	}

	band := "low"
	switch {
	case score >= 7:
		band = "very_high"
	case score >= 5:
		band = "high"
	case score >= 3:
		band = "moderate"
	}

	if factors == nil {
		factors = []string{}
	}
	return RiskAssessment{
		Band:    band,
		Score:   score,
		Stage:   p.Stage,
		Factors: factors,
	}
}
