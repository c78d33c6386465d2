package httpapi

import (
	"net/http"

	"kidneyguard-data/internal/service"

	"go.uber.org/zap"
)

// SimilarHandler 患者相似度匹配接口
type SimilarHandler struct {
	svc          *service.SimilarService
	store        *AuthStore
	defaultLimit int
	logger       *zap.Logger
}

func NewSimilarHandler(svc *service.SimilarService, store *AuthStore, defaultLimit int, logger *zap.Logger) *SimilarHandler {
	if defaultLimit <= 0 {
		defaultLimit = 6
	}
	return &SimilarHandler{svc: svc, store: store, defaultLimit: defaultLimit, logger: logger}
}

type similarRequest struct {
	UserID  string         `json:"userId"`
	Profile map[string]any `json:"profile"`
	Limit   *int           `json:"limit"`
}

// POST /patient/api/v1/similar
// body: { userId?, profile?, limit? }
// With no explicit subject in the body, the session user is the subject.
func (h *SimilarHandler) FindSimilar(w http.ResponseWriter, r *http.Request) {
	var req similarRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}

	if req.UserID == "" && req.Profile == nil {
		req.UserID = currentUserID(r, h.store)
	}

	limit := h.defaultLimit
	if req.Limit != nil {
		limit = *req.Limit
	}

	resp, err := h.svc.FindSimilar(r.Context(), service.SimilarRequest{
		UserID:  req.UserID,
		Profile: req.Profile,
		Limit:   limit,
	})
	if err != nil {
		h.logger.Warn("similarity request failed", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

type explainRequest struct {
	UserID    string         `json:"userId"`
	Profile   map[string]any `json:"profile"`
	Candidate map[string]any `json:"candidate"`
}

// POST /patient/api/v1/similar/explain
// Scores a single candidate against the subject with per-feature detail, for
// debugging why a candidate ranks where it does.
func (h *SimilarHandler) Explain(w http.ResponseWriter, r *http.Request) {
	var req explainRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	if len(req.Candidate) == 0 {
		writeJSON(w, http.StatusBadRequest, Fail("candidate is required"))
		return
	}
	if req.UserID == "" && req.Profile == nil {
		req.UserID = currentUserID(r, h.store)
	}

	score, rows, err := h.svc.FindSimilarBreakdown(r.Context(), service.SimilarRequest{
		UserID:  req.UserID,
		Profile: req.Profile,
	}, req.Candidate)
	if err != nil {
		h.logger.Warn("similarity explain failed", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"score":    score,
		"features": rows,
	}))
}
