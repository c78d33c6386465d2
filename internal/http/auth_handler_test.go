package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"kidneyguard-data/internal/repository"

	"go.uber.org/zap"
)

func newAuthTestHandler() (*AuthHandler, *AuthStore, *repository.MemoryUsersRepository) {
	users := repository.NewMemoryUsersRepository()
	store := NewAuthStore()
	return NewAuthHandler(users, store, zap.NewNop()), store, users
}

func sessionCookieFrom(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", sessionCookie)
	return nil
}

func TestRegisterLoginFlow(t *testing.T) {
	h, store, _ := newAuthTestHandler()

	// register
	body := `{"account":"amara","password":"s3cret","nickname":"Amara","age":58,"gender":"Female"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/api/v1/register", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Register(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("register: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	c := sessionCookieFrom(t, w)
	if _, ok := store.Resolve(c.Value); !ok {
		t.Fatalf("register cookie does not resolve to a session")
	}

	// duplicate account -> 409
	req = httptest.NewRequest(http.MethodPost, "/auth/api/v1/register", strings.NewReader(body))
	w = httptest.NewRecorder()
	h.Register(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409, got %d", w.Code)
	}

	// wrong password -> 401
	req = httptest.NewRequest(http.MethodPost, "/auth/api/v1/login", strings.NewReader(`{"account":"amara","password":"wrong"}`))
	w = httptest.NewRecorder()
	h.Login(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: expected 401, got %d", w.Code)
	}

	// correct login
	req = httptest.NewRequest(http.MethodPost, "/auth/api/v1/login", strings.NewReader(`{"account":"amara","password":"s3cret"}`))
	w = httptest.NewRecorder()
	h.Login(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"nickname":"Amara"`) {
		t.Fatalf("login response missing nickname: %s", w.Body.String())
	}
	c = sessionCookieFrom(t, w)

	// logout revokes the session
	req = httptest.NewRequest(http.MethodPost, "/auth/api/v1/logout", nil)
	req.AddCookie(c)
	w = httptest.NewRecorder()
	h.Logout(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", w.Code)
	}
	if _, ok := store.Resolve(c.Value); ok {
		t.Fatalf("session still valid after logout")
	}
}

func TestLoginUnknownAccount(t *testing.T) {
	h, _, _ := newAuthTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/auth/api/v1/login", strings.NewReader(`{"account":"ghost","password":"x"}`))
	w := httptest.NewRecorder()
	h.Login(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown account, got %d", w.Code)
	}
}
