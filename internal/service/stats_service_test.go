package service

import (
	"context"
	"testing"

	"kidneyguard-data/internal/domain"
	"kidneyguard-data/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGetDashboardStats(t *testing.T) {
	patients := repository.NewMemoryPatientsRepository()
	svc := NewStatsService(patients, zap.NewNop())

	// empty pool
	stats, err := svc.GetDashboardStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalPatients)
	assert.Nil(t, stats.Averages.EGFR)

	// mixed-shape pool
	_, err = patients.BulkInsert(context.Background(), []*domain.PatientRecord{
		patientRecord(t, "n1", nestedDoc("n1", 50, "male", 90, 25, true, false, false)),
		patientRecord(t, "n2", nestedDoc("n2", 70, "female", 40, 31, false, true, false)),
		patientRecord(t, "r1", map[string]any{
			"age_of_the_patient":                        "60",
			"gender":                                    "Female",
			"estimated_glomerular_filtration_rate_egfr": 20.0,
			"smoking_status_yesno":                      "yes",
		}),
	})
	require.NoError(t, err)

	stats, err = svc.GetDashboardStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalPatients)
	assert.Equal(t, 1, stats.StageCounts["Stage 1"])
	assert.Equal(t, 1, stats.StageCounts["Stage 3b"])
	assert.Equal(t, 1, stats.StageCounts["Stage 4"])
	assert.Equal(t, 1, stats.GenderCounts["male"])
	assert.Equal(t, 2, stats.GenderCounts["female"])
	assert.Equal(t, 1, stats.RiskFactorCounts["Diabetes"])
	assert.Equal(t, 1, stats.RiskFactorCounts["Smoking"])

	require.NotNil(t, stats.Averages.Age)
	assert.InDelta(t, 60.0, *stats.Averages.Age, 1e-9)
	require.NotNil(t, stats.Averages.EGFR)
	assert.InDelta(t, 50.0, *stats.Averages.EGFR, 1e-9)
	require.NotNil(t, stats.Averages.BMI)
	assert.InDelta(t, 28.0, *stats.Averages.BMI, 1e-9)
	assert.Nil(t, stats.Averages.Hemoglobin)
}
