package similarity

import (
	"fmt"
	"strings"
)

// Flat column names of the CKD dataset rows as imported. Form-submitted
// records use the nested vitals/lifestyle shape instead; the normalizer
// accepts both.
const (
	rawAge          = "age_of_the_patient"
	rawBMI          = "body_mass_index_bmi"
	rawEGFR         = "estimated_glomerular_filtration_rate_egfr"
	rawHemoglobin   = "hemoglobin_level_hgb"
	rawDiabetes     = "diabetes_mellitus_yesno"
	rawHypertension = "hypertension_yesno"
	rawSmoking      = "smoking_status_yesno"
)

// Profile is the canonical patient shape all scoring code operates on,
// regardless of source document schema. Nil pointers mean "unknown".
type Profile struct {
	ID           string
	Name         string
	Age          *float64
	Gender       *string
	BMI          *float64
	EGFR         *float64
	Hemoglobin   *float64
	Diabetic     *bool
	HighBP       *bool
	Smokes       *bool
	Stage        string
	Diagnosis    string
	Story        string
	RiskFactors  []string
	Improvements []string
	LabFlags     []string

	// Raw retains the source document for traceability.
	Raw map[string]any
}

// Normalize maps a patient document into the canonical profile. For each
// attribute the pre-normalized nested field wins, then the raw flat dataset
// field, then nil. Malformed values degrade to nil rather than failing the
// record. fallbackIndex names records that carry no id of their own.
func Normalize(doc map[string]any, fallbackIndex int) Profile {
	p := Profile{Raw: doc}

	p.ID = textField(doc, "id", "_id", "patient_id")
	if p.ID == "" {
		p.ID = fmt.Sprintf("patient-%d", fallbackIndex)
	}
	p.Name = textField(doc, "name", "nickname")
	if p.Name == "" {
		p.Name = "Anonymous"
	}

	p.Age = numberField(doc, "age", rawAge)
	if g := textField(doc, "gender"); g != "" {
		lower := strings.ToLower(g)
		p.Gender = &lower
	}

	p.BMI = numberField(doc, "vitals.bmi", rawBMI)
	p.EGFR = numberField(doc, "vitals.egfr", rawEGFR)
	p.Hemoglobin = numberField(doc, "vitals.hemoglobin", rawHemoglobin)

	p.Diabetic = boolField(doc, "lifestyle.diabetic", rawDiabetes)
	p.HighBP = boolField(doc, "lifestyle.highBP", rawHypertension)
	p.Smokes = boolField(doc, "lifestyle.smokes", rawSmoking)

	p.Stage = StageForEGFR(p.EGFR)
	p.Diagnosis = textField(doc, "diagnosis")
	if p.Diagnosis == "" && p.EGFR != nil && *p.EGFR < 60 {
		p.Diagnosis = "Chronic kidney disease"
	}
	p.Story = textField(doc, "story")
	p.RiskFactors = riskFactors(p.Diabetic, p.HighBP, p.Smokes)
	p.Improvements = textListField(doc, "improvements")
	p.LabFlags = textListField(doc, "labFlags")

	return p
}

// StageForEGFR maps an eGFR value onto the fixed clinical CKD stage labels.
func StageForEGFR(egfr *float64) string {
	if egfr == nil {
		return "Unknown"
	}
	switch v := *egfr; {
	case v >= 90:
		return "Stage 1"
	case v >= 60:
		return "Stage 2"
	case v >= 45:
		return "Stage 3a"
	case v >= 30:
		return "Stage 3b"
	case v >= 15:
		return "Stage 4"
	default:
		return "Stage 5"
	}
}

func riskFactors(diabetic, highBP, smokes *bool) []string {
	factors := []string{}
	if diabetic != nil && *diabetic {
		factors = append(factors, "Diabetes")
	}
	if highBP != nil && *highBP {
		factors = append(factors, "High blood pressure")
	}
	if smokes != nil && *smokes {
		factors = append(factors, "Smoking")
	}
	return factors
}

// Doc renders the profile as a nested document in the pre-normalized shape.
// Scoring, signatures and re-normalization all run over this form; unknown
// attributes are omitted so lookups see absence, not zero.
func (p *Profile) Doc() map[string]any {
	doc := map[string]any{
		"id":    p.ID,
		"name":  p.Name,
		"stage": p.Stage,
	}
	if p.Age != nil {
		doc["age"] = *p.Age
	}
	if p.Gender != nil {
		doc["gender"] = *p.Gender
	}
	vitals := map[string]any{}
	if p.BMI != nil {
		vitals["bmi"] = *p.BMI
	}
	if p.EGFR != nil {
		vitals["egfr"] = *p.EGFR
	}
	if p.Hemoglobin != nil {
		vitals["hemoglobin"] = *p.Hemoglobin
	}
	if len(vitals) > 0 {
		doc["vitals"] = vitals
	}
	lifestyle := map[string]any{}
	if p.Diabetic != nil {
		lifestyle["diabetic"] = *p.Diabetic
	}
	if p.HighBP != nil {
		lifestyle["highBP"] = *p.HighBP
	}
	if p.Smokes != nil {
		lifestyle["smokes"] = *p.Smokes
	}
	if len(lifestyle) > 0 {
		doc["lifestyle"] = lifestyle
	}
	if p.Diagnosis != "" {
		doc["diagnosis"] = p.Diagnosis
	}
	if p.Story != "" {
		doc["story"] = p.Story
	}
	if len(p.Improvements) > 0 {
		doc["improvements"] = anyList(p.Improvements)
	}
	if len(p.LabFlags) > 0 {
		doc["labFlags"] = anyList(p.LabFlags)
	}
	return doc
}

// Card is the denormalized per-result shape handed to the UI.
type Card struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Age          *float64       `json:"age"`
	Gender       *string        `json:"gender"`
	Stage        string         `json:"stage"`
	Diagnosis    string         `json:"diagnosis"`
	Story        string         `json:"story"`
	Lifestyle    LifestyleFlags `json:"lifestyle"`
	RiskFactors  []string       `json:"riskFactors"`
	Improvements []string       `json:"improvements"`
	Vitals       VitalSet       `json:"vitals"`
	LabFlags     []string       `json:"labFlags"`
	MatchScore   int            `json:"matchScore"`
}

type LifestyleFlags struct {
	Diabetic *bool `json:"diabetic"`
	HighBP   *bool `json:"highBP"`
	Smokes   *bool `json:"smokes"`
}

type VitalSet struct {
	BMI        *float64 `json:"bmi"`
	EGFR       *float64 `json:"egfr"`
	Hemoglobin *float64 `json:"hemoglobin"`
}

// Card builds the display card for this profile with the given match score
// as an integer percentage.
func (p *Profile) Card(matchScore int) Card {
	return Card{
		ID:        p.ID,
		Name:      p.Name,
		Age:       p.Age,
		Gender:    p.Gender,
		Stage:     p.Stage,
		Diagnosis: p.Diagnosis,
		Story:     p.Story,
		Lifestyle: LifestyleFlags{
			Diabetic: p.Diabetic,
			HighBP:   p.HighBP,
			Smokes:   p.Smokes,
		},
		RiskFactors:  p.RiskFactors,
		Improvements: p.Improvements,
		Vitals: VitalSet{
			BMI:        p.BMI,
			EGFR:       p.EGFR,
			Hemoglobin: p.Hemoglobin,
		},
		LabFlags:   p.LabFlags,
		MatchScore: matchScore,
	}
}

func numberField(doc map[string]any, paths ...string) *float64 {
	for _, path := range paths {
		if v, ok := toFloat(Lookup(doc, path)); ok {
			return &v
		}
	}
	return nil
}

func boolField(doc map[string]any, paths ...string) *bool {
	for _, path := range paths {
		if v, ok := toBool(Lookup(doc, path)); ok {
			return &v
		}
	}
	return nil
}

func textField(doc map[string]any, paths ...string) string {
	for _, path := range paths {
		if v, ok := toText(Lookup(doc, path)); ok {
			return v
		}
	}
	return ""
}

func textListField(doc map[string]any, path string) []string {
	list, ok := Lookup(doc, path).([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := toText(item); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func anyList(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
