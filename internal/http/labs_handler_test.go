package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"kidneyguard-data/internal/domain"
	"kidneyguard-data/internal/repository"

	"go.uber.org/zap"
)

func newLabsTestHandler(t *testing.T) (*LabsHandler, *AuthStore, *repository.MemoryPatientsRepository, string) {
	t.Helper()
	patients := repository.NewMemoryPatientsRepository()
	users := repository.NewMemoryUsersRepository()
	store := NewAuthStore()

	u := &domain.User{
		Account:  "amara",
		Nickname: "Amara",
		AgeYears: sql.NullInt64{Int64: 58, Valid: true},
		Gender:   sql.NullString{String: "female", Valid: true},
	}
	if err := users.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return NewLabsHandler(patients, users, store, zap.NewNop()), store, patients, u.UserID
}

func TestSubmitLabs_StoresRecordAndFlags(t *testing.T) {
	h, store, patients, userID := newLabsTestHandler(t)
	token := store.Issue(userID)

	body := `{"egfr":42,"bmi":31.5,"hemoglobin":10.2,"diabetic":true,"highBP":true,"smokes":false}`
	req := httptest.NewRequest(http.MethodPost, "/patient/api/v1/labs", strings.NewReader(body))
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	w := httptest.NewRecorder()
	h.SubmitLabs(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	got := w.Body.String()
	if !strings.Contains(got, `"stage":"Stage 3b"`) {
		t.Fatalf("expected Stage 3b for eGFR 42, got: %s", got)
	}
	for _, flag := range []string{"egfr:low", "bmi:high", "hgb:low"} {
		if !strings.Contains(got, flag) {
			t.Fatalf("expected lab flag %q, got: %s", flag, got)
		}
	}

	doc, err := patients.GetByUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("stored record not found: %v", err)
	}
	vitals, ok := doc["vitals"].(map[string]any)
	if !ok {
		t.Fatalf("stored doc missing vitals: %v", doc)
	}
	if vitals["egfr"] != 42.0 {
		t.Fatalf("stored egfr = %v, want 42", vitals["egfr"])
	}
}

func TestSubmitLabs_RequiresSession(t *testing.T) {
	h, _, _, _ := newLabsTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/patient/api/v1/labs", strings.NewReader(`{"egfr":42}`))
	w := httptest.NewRecorder()
	h.SubmitLabs(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", w.Code)
	}
}

func TestSubmitLabs_RejectsEmptySubmission(t *testing.T) {
	h, store, _, userID := newLabsTestHandler(t)
	token := store.Issue(userID)

	req := httptest.NewRequest(http.MethodPost, "/patient/api/v1/labs", strings.NewReader(`{"diabetic":true}`))
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	w := httptest.NewRecorder()
	h.SubmitLabs(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without lab values, got %d", w.Code)
	}
}

func TestExportLabs_ReturnsWorkbook(t *testing.T) {
	h, store, _, userID := newLabsTestHandler(t)
	token := store.Issue(userID)

	// no record yet -> 404
	req := httptest.NewRequest(http.MethodGet, "/patient/api/v1/labs/export", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	w := httptest.NewRecorder()
	h.ExportLabs(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before submission, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/patient/api/v1/labs", strings.NewReader(`{"egfr":42,"bmi":31.5}`))
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	w = httptest.NewRecorder()
	h.SubmitLabs(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/patient/api/v1/labs/export", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	w = httptest.NewRecorder()
	h.ExportLabs(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("export: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "lab-report-") {
		t.Fatalf("missing attachment disposition: %q", w.Header().Get("Content-Disposition"))
	}
	// xlsx payloads are zip archives
	if b := w.Body.Bytes(); len(b) < 4 || b[0] != 'P' || b[1] != 'K' {
		t.Fatalf("export body is not a zip archive")
	}
}
