package httpapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"kidneyguard-data/internal/domain"
	"kidneyguard-data/internal/repository"

	"go.uber.org/zap"
)

// ProfileHandler 用户健康档案
type ProfileHandler struct {
	users  repository.UsersRepository
	store  *AuthStore
	logger *zap.Logger
}

func NewProfileHandler(users repository.UsersRepository, store *AuthStore, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{users: users, store: store, logger: logger}
}

type profileView struct {
	UserID            string          `json:"userId"`
	Account           string          `json:"account"`
	Nickname          string          `json:"nickname"`
	Age               *int64          `json:"age"`
	Gender            *string         `json:"gender"`
	MedicalConditions []string        `json:"medicalConditions"`
	SmokeAlcohol      *string         `json:"smokeAlcohol"`
	Vitals            json.RawMessage `json:"vitals"`
}

// GET /user/api/v1/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r, h.store)
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, Fail("not signed in"))
		return
	}

	user, err := h.users.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, Fail("user not found"))
			return
		}
		h.logger.Error("profile load failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to load profile"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(viewOfUser(user)))
}

type profileUpdateRequest struct {
	Age               *int64    `json:"age"`
	Gender            *string   `json:"gender"`
	MedicalConditions *[]string `json:"medicalConditions"`
	SmokeAlcohol      *string   `json:"smokeAlcohol"`
}

// PUT /user/api/v1/profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r, h.store)
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, Fail("not signed in"))
		return
	}

	var req profileUpdateRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}

	update := domain.ProfileUpdate{
		AgeYears:          req.Age,
		Gender:            req.Gender,
		MedicalConditions: req.MedicalConditions,
		SmokeAlcohol:      req.SmokeAlcohol,
	}
	if err := h.users.UpdateProfile(r.Context(), userID, update); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, Fail("user not found"))
			return
		}
		h.logger.Error("profile update failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to update profile"))
		return
	}

	user, err := h.users.GetUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, Fail("failed to reload profile"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(viewOfUser(user)))
}

func viewOfUser(u *domain.User) profileView {
	v := profileView{
		UserID:            u.UserID,
		Account:           u.Account,
		Nickname:          u.Nickname,
		MedicalConditions: u.MedicalConditions,
		Vitals:            u.Vitals,
	}
	if v.MedicalConditions == nil {
		v.MedicalConditions = []string{}
	}
	if u.AgeYears.Valid {
		age := u.AgeYears.Int64
		v.Age = &age
	}
	if u.Gender.Valid {
		gender := u.Gender.String
		v.Gender = &gender
	}
	if u.SmokeAlcohol.Valid {
		smoke := u.SmokeAlcohol.String
		v.SmokeAlcohol = &smoke
	}
	return v
}
