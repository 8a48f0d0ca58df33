package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func tokenHandler(token string) http.Handler {
	return RequireToken(token, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRequireToken_EmptyTokenDisablesCheck(t *testing.T) {
	rec := httptest.NewRecorder()
	tokenHandler("").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequireToken_AcceptsMatchingToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	rec := httptest.NewRecorder()

	tokenHandler("sekrit").ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequireToken_RejectsBadOrMissingToken(t *testing.T) {
	for _, header := range []string{"", "Bearer wrong", "sekrit"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()

		tokenHandler("sekrit").ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected 401, got %d", header, rec.Code)
		}
	}
}
