package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"kidneyguard-data/internal/domain"
	"kidneyguard-data/internal/repository"
	"kidneyguard-data/internal/service"
	"kidneyguard-data/internal/similarity"

	"go.uber.org/zap"
)

func seedPatient(t *testing.T, patients *repository.MemoryPatientsRepository, id string, doc map[string]any) {
	t.Helper()
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal doc: %v", err)
	}
	p := similarity.Normalize(doc, 0)
	_, err = patients.BulkInsert(context.Background(), []*domain.PatientRecord{{
		PatientID: id,
		Source:    "dataset",
		Doc:       raw,
		EGFR:      p.EGFR,
		Smokes:    p.Smokes,
	}})
	if err != nil {
		t.Fatalf("seed patient: %v", err)
	}
}

func newSimilarTestHandler(t *testing.T) (*SimilarHandler, *repository.MemoryPatientsRepository) {
	t.Helper()
	logger := zap.NewNop()
	patients := repository.NewMemoryPatientsRepository()
	users := repository.NewMemoryUsersRepository()
	svc := service.NewSimilarService(patients, users, nil, logger)
	return NewSimilarHandler(svc, NewAuthStore(), 6, logger), patients
}

func TestFindSimilar_WrapsResult(t *testing.T) {
	h, patients := newSimilarTestHandler(t)
	seedPatient(t, patients, "p1", map[string]any{
		"id": "p1", "age": 52.0, "gender": "male",
		"vitals":    map[string]any{"egfr": 72.0, "bmi": 27.0},
		"lifestyle": map[string]any{"diabetic": true, "highBP": false, "smokes": false},
	})

	body := `{"profile":{"id":"me","age":50,"gender":"male",
	  "vitals":{"egfr":70,"bmi":28},
	  "lifestyle":{"diabetic":true,"highBP":false,"smokes":false}},"limit":3}`
	req := httptest.NewRequest(http.MethodPost, "/patient/api/v1/similar", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.FindSimilar(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	got := w.Body.String()
	if !strings.Contains(got, `"code":2000`) {
		t.Fatalf("expected wrapper code=2000, got: %s", got)
	}
	if !strings.Contains(got, `"id":"p1"`) || !strings.Contains(got, `"matchScore"`) {
		t.Fatalf("expected ranked card for p1, got: %s", got)
	}
	if !strings.Contains(got, `"signature":"v1:`) {
		t.Fatalf("expected versioned signature, got: %s", got)
	}
}

func TestFindSimilar_EmptyPoolSentinel(t *testing.T) {
	h, _ := newSimilarTestHandler(t)

	body := `{"profile":{"age":50}}`
	req := httptest.NewRequest(http.MethodPost, "/patient/api/v1/similar", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.FindSimilar(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"signature":"empty:candidates"`) {
		t.Fatalf("expected empty-pool sentinel, got: %s", w.Body.String())
	}
}

func TestFindSimilar_ErrorMapping(t *testing.T) {
	h, patients := newSimilarTestHandler(t)
	seedPatient(t, patients, "p1", map[string]any{"id": "p1", "age": 40.0})

	// no subject at all -> 400 bad_request
	req := httptest.NewRequest(http.MethodPost, "/patient/api/v1/similar", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	h.FindSimilar(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "bad_request") {
		t.Fatalf("expected bad_request kind, got: %s", w.Body.String())
	}

	// unknown user -> 404 not_found
	req = httptest.NewRequest(http.MethodPost, "/patient/api/v1/similar", strings.NewReader(`{"userId":"ghost"}`))
	w = httptest.NewRecorder()
	h.FindSimilar(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "not_found") {
		t.Fatalf("expected not_found kind, got: %s", w.Body.String())
	}
}

func TestFindSimilar_LimitDefaultsWhenOmitted(t *testing.T) {
	h, patients := newSimilarTestHandler(t)
	for i := 0; i < 10; i++ {
		id := string(rune('a'+i)) + "-patient"
		seedPatient(t, patients, id, map[string]any{
			"id": id, "age": 40.0 + float64(i),
			"vitals": map[string]any{"egfr": 60.0 + float64(i)},
		})
	}

	body := `{"profile":{"age":50,"vitals":{"egfr":65}}}`
	req := httptest.NewRequest(http.MethodPost, "/patient/api/v1/similar", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.FindSimilar(w, req)

	var resp struct {
		Result struct {
			Results []json.RawMessage `json:"results"`
		} `json:"result"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Result.Results) != 6 {
		t.Fatalf("expected default limit of 6 results, got %d", len(resp.Result.Results))
	}
}

func TestExplain_ReturnsFeatureBreakdown(t *testing.T) {
	h, _ := newSimilarTestHandler(t)

	body := `{"profile":{"id":"me","age":50,"gender":"male",
	  "vitals":{"egfr":70,"bmi":28},
	  "lifestyle":{"diabetic":true,"highBP":false,"smokes":false}},
	  "candidate":{"id":"p1","age":52,"gender":"male",
	  "vitals":{"egfr":72,"bmi":27},
	  "lifestyle":{"diabetic":true,"highBP":false,"smokes":false}}}`
	req := httptest.NewRequest(http.MethodPost, "/patient/api/v1/similar/explain", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Explain(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Result struct {
			Score    float64 `json:"score"`
			Features []struct {
				Key     string `json:"key"`
				Skipped bool   `json:"skipped"`
			} `json:"features"`
		} `json:"result"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Result.Score <= 0 || resp.Result.Score > 1 {
		t.Fatalf("score %v out of range", resp.Result.Score)
	}
	if len(resp.Result.Features) == 0 {
		t.Fatalf("expected per-feature rows, got none")
	}
	keys := map[string]bool{}
	for _, f := range resp.Result.Features {
		keys[f.Key] = true
	}
	for _, want := range []string{"age", "gender", "vitals.egfr", "lifestyle.smokes"} {
		if !keys[want] {
			t.Fatalf("breakdown missing feature %q", want)
		}
	}
}

func TestExplain_RequiresCandidate(t *testing.T) {
	h, _ := newSimilarTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/patient/api/v1/similar/explain",
		strings.NewReader(`{"profile":{"age":50}}`))
	w := httptest.NewRecorder()
	h.Explain(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without candidate, got %d", w.Code)
	}
}
