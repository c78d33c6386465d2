package httpapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"kidneyguard-data/internal/domain"
	"kidneyguard-data/internal/repository"
	"kidneyguard-data/internal/similarity"

	"go.uber.org/zap"
)

// LabsHandler 化验值表单提交与导出
type LabsHandler struct {
	patients repository.PatientsRepository
	users    repository.UsersRepository
	store    *AuthStore
	logger   *zap.Logger
}

func NewLabsHandler(patients repository.PatientsRepository, users repository.UsersRepository, store *AuthStore, logger *zap.Logger) *LabsHandler {
	return &LabsHandler{patients: patients, users: users, store: store, logger: logger}
}

// POST /patient/api/v1/labs
// Stores the caller's lab values as their patient record (nested shape) and
// mirrors egfr/bmi into the user's vitals for subject building.
func (h *LabsHandler) SubmitLabs(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r, h.store)
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, Fail("not signed in"))
		return
	}

	var sub domain.LabSubmission
	if err := readBodyJSON(r, 1<<20, &sub); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	if sub.EGFR == nil && sub.BMI == nil && sub.Hemoglobin == nil {
		writeJSON(w, http.StatusBadRequest, Fail("at least one lab value is required"))
		return
	}

	user, err := h.users.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, Fail("user not found"))
			return
		}
		h.logger.Error("labs user lookup failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to load user"))
		return
	}

	doc := labDocument(user, &sub)
	raw, err := json.Marshal(doc)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, Fail("failed to encode record"))
		return
	}

	profile := similarity.Normalize(doc, 0)
	rec := &domain.PatientRecord{
		UserID: userID,
		Source: "form",
		Doc:    raw,
		EGFR:   profile.EGFR,
		Smokes: profile.Smokes,
	}
	if err := h.patients.UpsertForUser(r.Context(), rec); err != nil {
		h.logger.Error("labs upsert failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to store lab values"))
		return
	}

	// keep the user's subject vitals in sync; best effort
	vitals := map[string]any{}
	if sub.EGFR != nil {
		vitals["egfr"] = *sub.EGFR
	}
	if sub.BMI != nil {
		vitals["bmi"] = *sub.BMI
	}
	if sub.Hemoglobin != nil {
		vitals["hemoglobin"] = *sub.Hemoglobin
	}
	if len(vitals) > 0 {
		if b, err := json.Marshal(vitals); err == nil {
			if err := h.users.UpdateVitals(r.Context(), userID, b); err != nil {
				h.logger.Warn("vitals sync failed", zap.Error(err))
			}
		}
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"stage":    profile.Stage,
		"labFlags": profile.LabFlags,
	}))
}

// GET /patient/api/v1/labs/export
// Downloads the caller's lab record as an Excel workbook.
func (h *LabsHandler) ExportLabs(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r, h.store)
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, Fail("not signed in"))
		return
	}

	doc, err := h.patients.GetByUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, Fail("no lab record on file"))
			return
		}
		h.logger.Error("labs export lookup failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to load lab record"))
		return
	}

	profile := similarity.Normalize(doc, 0)
	data, err := GenerateLabReport(&profile)
	if err != nil {
		h.logger.Error("labs export generation failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to generate report"))
		return
	}

	filename := fmt.Sprintf("lab-report-%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = w.Write(data)
}

// labDocument builds the nested patient document from a submission plus the
// user's demographic profile. labFlags are derived against fixed adult
// reference thresholds.
func labDocument(user *domain.User, sub *domain.LabSubmission) map[string]any {
	doc := map[string]any{
		"id":   user.UserID,
		"name": user.Nickname,
	}
	if user.AgeYears.Valid {
		doc["age"] = float64(user.AgeYears.Int64)
	}
	if user.Gender.Valid && user.Gender.String != "" {
		doc["gender"] = user.Gender.String
	}

	vitals := map[string]any{}
	var flags []any
	if sub.EGFR != nil {
		vitals["egfr"] = *sub.EGFR
		if *sub.EGFR < 60 {
			flags = append(flags, "egfr:low")
		}
	}
	if sub.BMI != nil {
		vitals["bmi"] = *sub.BMI
		switch {
		case *sub.BMI >= 30:
			flags = append(flags, "bmi:high")
		case *sub.BMI < 18.5:
			flags = append(flags, "bmi:low")
		}
	}
	if sub.Hemoglobin != nil {
		vitals["hemoglobin"] = *sub.Hemoglobin
		if *sub.Hemoglobin < 11 {
			flags = append(flags, "hgb:low")
		}
	}
	if len(vitals) > 0 {
		doc["vitals"] = vitals
	}
	if len(flags) > 0 {
		doc["labFlags"] = flags
	}

	lifestyle := map[string]any{}
	if sub.Diabetic != nil {
		lifestyle["diabetic"] = *sub.Diabetic
	}
	if sub.HighBP != nil {
		lifestyle["highBP"] = *sub.HighBP
	}
	if sub.Smokes != nil {
		lifestyle["smokes"] = *sub.Smokes
	}
	if len(lifestyle) > 0 {
		doc["lifestyle"] = lifestyle
	}

	if sub.Diagnosis != "" {
		doc["diagnosis"] = sub.Diagnosis
	}
	return doc
}
