package httpapi

import (
	"net/http"

	"kidneyguard-data/internal/service"
	"kidneyguard-data/internal/similarity"

	"go.uber.org/zap"
)

// AnalyticsHandler 仪表盘统计 + CKD 风险分类
type AnalyticsHandler struct {
	stats  *service.StatsService
	logger *zap.Logger
}

func NewAnalyticsHandler(stats *service.StatsService, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{stats: stats, logger: logger}
}

// GET /analytics/api/v1/stats
func (h *AnalyticsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.GetDashboardStats(r.Context())
	if err != nil {
		h.logger.Error("stats aggregation failed", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(stats))
}

// POST /analytics/api/v1/risk
// body: a patient profile in either supported shape
func (h *AnalyticsHandler) CategorizeRisk(w http.ResponseWriter, r *http.Request) {
	var doc map[string]any
	if err := readBodyJSON(r, 1<<20, &doc); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	if len(doc) == 0 {
		writeJSON(w, http.StatusBadRequest, Fail("profile is required"))
		return
	}

	assessment := service.CategorizeRisk(similarity.Normalize(doc, 0))
	writeJSON(w, http.StatusOK, Ok(assessment))
}
