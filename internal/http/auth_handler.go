package httpapi

import (
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"kidneyguard-data/internal/domain"
	"kidneyguard-data/internal/repository"

	"go.uber.org/zap"
)

const sessionCookie = "kg_token"

// AuthHandler 注册/登录
type AuthHandler struct {
	users  repository.UsersRepository
	store  *AuthStore
	logger *zap.Logger
}

func NewAuthHandler(users repository.UsersRepository, store *AuthStore, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, store: store, logger: logger}
}

type registerRequest struct {
	Account  string `json:"account"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
	Age      *int64 `json:"age"`
	Gender   string `json:"gender"`
}

// POST /auth/api/v1/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	req.Account = strings.TrimSpace(req.Account)
	if req.Account == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, Fail("account and password are required"))
		return
	}

	accountHash, _ := hex.DecodeString(HashAccount(req.Account))
	passwordHash, _ := hex.DecodeString(HashPassword(req.Password))

	user := &domain.User{
		Account:      req.Account,
		AccountHash:  accountHash,
		PasswordHash: passwordHash,
		Nickname:     req.Nickname,
	}
	if req.Age != nil {
		user.AgeYears = sql.NullInt64{Int64: *req.Age, Valid: true}
	}
	if g := strings.TrimSpace(req.Gender); g != "" {
		user.Gender = sql.NullString{String: strings.ToLower(g), Valid: true}
	}

	if err := h.users.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, repository.ErrDuplicateAccount) {
			writeJSON(w, http.StatusConflict, Fail("account already exists"))
			return
		}
		h.logger.Error("register failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to create account"))
		return
	}

	token := h.store.Issue(user.UserID)
	setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"userId":   user.UserID,
		"nickname": user.Nickname,
	}))
}

type loginRequest struct {
	Account  string `json:"account"`
	Password string `json:"password"`
}

// POST /auth/api/v1/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}

	user, err := h.users.GetUserByAccount(r.Context(), req.Account)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusUnauthorized, Fail("invalid account or password"))
			return
		}
		h.logger.Error("login lookup failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("login failed"))
		return
	}

	expected, _ := hex.DecodeString(HashPassword(req.Password))
	if subtle.ConstantTimeCompare(expected, user.PasswordHash) != 1 {
		writeJSON(w, http.StatusUnauthorized, Fail("invalid account or password"))
		return
	}

	_ = h.users.TouchLastLogin(r.Context(), user.UserID)
	token := h.store.Issue(user.UserID)
	setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"userId":   user.UserID,
		"nickname": user.Nickname,
	}))
}

// POST /auth/api/v1/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		h.store.Revoke(c.Value)
	}
	setSessionCookie(w, "")
	writeJSON(w, http.StatusOK, Ok(map[string]any{}))
}

func setSessionCookie(w http.ResponseWriter, token string) {
	maxAge := 7 * 24 * 3600
	if token == "" {
		maxAge = -1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   maxAge,
	})
}

// currentUserID resolves the caller's session cookie, or "" when not signed in.
func currentUserID(r *http.Request, store *AuthStore) string {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	userID, ok := store.Resolve(c.Value)
	if !ok {
		return ""
	}
	return userID
}
