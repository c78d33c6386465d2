package service

import (
	"context"

	"kidneyguard-data/internal/repository"
	"kidneyguard-data/internal/similarity"

	"go.uber.org/zap"
)

// DashboardStats 仪表盘聚合统计
type DashboardStats struct {
	TotalPatients    int                `json:"total_patients"`
	StageCounts      map[string]int     `json:"stage_counts"`
	GenderCounts     map[string]int     `json:"gender_counts"`
	RiskFactorCounts map[string]int     `json:"risk_factor_counts"`
	Averages         DashboardAverages  `json:"averages"`
}

// DashboardAverages are means over the records carrying a value; nil when no
// record does.
type DashboardAverages struct {
	Age        *float64 `json:"age"`
	EGFR       *float64 `json:"egfr"`
	BMI        *float64 `json:"bmi"`
	Hemoglobin *float64 `json:"hemoglobin"`
}

// StatsService folds the patient pool into dashboard aggregates. Aggregation
// runs over normalized profiles rather than SQL because the pool mixes two
// document shapes and all value coercion lives in the normalizer.
type StatsService struct {
	patients repository.PatientsRepository
	logger   *zap.Logger
}

func NewStatsService(patients repository.PatientsRepository, logger *zap.Logger) *StatsService {
	return &StatsService{patients: patients, logger: logger}
}

func (s *StatsService) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	docs, err := s.patients.ListDocuments(ctx, repository.PatientFilter{})
	if err != nil {
		return nil, internal("failed to load patients for stats", err)
	}

	stats := &DashboardStats{
		TotalPatients:    len(docs),
		StageCounts:      map[string]int{},
		GenderCounts:     map[string]int{},
		RiskFactorCounts: map[string]int{},
	}

	var ageAcc, egfrAcc, bmiAcc, hgbAcc meanAccumulator
	for i, doc := range docs {
		p := similarity.Normalize(doc, i)

		stats.StageCounts[p.Stage]++
		if p.Gender != nil {
			stats.GenderCounts[*p.Gender]++
		} else {
			stats.GenderCounts["unknown"]++
		}
		for _, factor := range p.RiskFactors {
			stats.RiskFactorCounts[factor]++
		}

		ageAcc.add(p.Age)
		egfrAcc.add(p.EGFR)
		bmiAcc.add(p.BMI)
		hgbAcc.add(p.Hemoglobin)
	}

	stats.Averages = DashboardAverages{
		Age:        ageAcc.mean(),
		EGFR:       egfrAcc.mean(),
		BMI:        bmiAcc.mean(),
		Hemoglobin: hgbAcc.mean(),
	}
	return stats, nil
}

type meanAccumulator struct {
	sum float64
	n   int
}

func (m *meanAccumulator) add(v *float64) {
	if v == nil {
		return
	}
	m.sum += *v
	m.n++
}

func (m *meanAccumulator) mean() *float64 {
	if m.n == 0 {
		return nil
	}
	v := m.sum / float64(m.n)
	return &v
}
