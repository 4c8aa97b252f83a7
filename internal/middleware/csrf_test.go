package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newCSRFTestHandler(t *testing.T, called *bool) http.Handler {
	t.Helper()
	return NewCSRFMiddleware(CSRFConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	}))
}

func TestCSRFMiddleware_SafeMethods_PassWithoutToken(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		t.Run(method, func(t *testing.T) {
			called := false
			handler := newCSRFTestHandler(t, &called)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(method, "/api/cart", nil))

			if !called {
				t.Fatalf("handler should have been called for %s request", method)
			}
		})
	}
}

func TestCSRFMiddleware_StateChangingMethods_RequireToken(t *testing.T) {
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			called := false
			handler := newCSRFTestHandler(t, &called)

			req := httptest.NewRequest(method, "/api/cart", nil)
			req = req.WithContext(ContextWithAuthMethod(req.Context(), AuthMethodCookie))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if called {
				t.Error("handler should not be called without CSRF token")
			}
			if w.Code != http.StatusForbidden {
				t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
			}
		})
	}
}

func TestCSRFMiddleware_POST_CookieAndHeader(t *testing.T) {
	tests := []struct {
		name       string
		cookie     string
		header     string
		wantStatus int
	}{
		{name: "matching tokens", cookie: "tok-1", header: "tok-1", wantStatus: http.StatusOK},
		{name: "missing cookie", header: "tok-1", wantStatus: http.StatusForbidden},
		{name: "missing header", cookie: "tok-1", wantStatus: http.StatusForbidden},
		{name: "mismatch", cookie: "tok-1", header: "tok-2", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := newCSRFTestHandler(t, &called)

			req := httptest.NewRequest(http.MethodPost, "/api/cart", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set(csrfHeaderName, tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusForbidden {
				var body ErrorResponseBody
				if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
					t.Fatalf("failed to decode body: %v", err)
				}
				if body.Code != "CSRF_TOKEN_INVALID" {
					t.Errorf("code = %q, want CSRF_TOKEN_INVALID", body.Code)
				}
			}
		})
	}
}

// TestCSRFMiddleware_BearerAuth_Exempt はBearer認証のリクエストがCSRF検証を免除されることを検証する。
func TestCSRFMiddleware_BearerAuth_Exempt(t *testing.T) {
	called := false
	handler := newCSRFTestHandler(t, &called)

	req := httptest.NewRequest(http.MethodDelete, "/api/cart?cartEntryId=x", nil)
	req = req.WithContext(ContextWithAuthMethod(req.Context(), AuthMethodBearer))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if !called {
		t.Error("bearer-authenticated request should bypass CSRF validation")
	}
}

func TestCSRFMiddleware_GETRequest_SetsCSRFCookie(t *testing.T) {
	called := false
	handler := NewCSRFMiddleware(CSRFConfig{CookieSecure: true, CookieDomain: "example.com"})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }),
	)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/plants", nil))

	var csrfCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == csrfCookieName {
			csrfCookie = c
		}
	}
	if csrfCookie == nil {
		t.Fatal("expected csrf_token cookie to be set")
	}
	if len(csrfCookie.Value) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(csrfCookie.Value))
	}
	if csrfCookie.HttpOnly {
		t.Error("csrf_token cookie must be readable from JavaScript")
	}
	if !csrfCookie.Secure {
		t.Error("csrf_token cookie should be Secure when configured")
	}
	if !called {
		t.Error("handler should be called")
	}
}

func TestCSRFMiddleware_GETRequest_ExistingCookie_DoesNotReplace(t *testing.T) {
	called := false
	handler := newCSRFTestHandler(t, &called)

	req := httptest.NewRequest(http.MethodGet, "/api/plants", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "existing"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if len(w.Result().Cookies()) != 0 {
		t.Error("existing csrf cookie should not be replaced")
	}
}

func TestCSRFTokenHandler_SetsTokenCookieAndReturnsJSON(t *testing.T) {
	handler := NewCSRFTokenHandler(CSRFConfig{})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}

	var cookieValue string
	for _, c := range w.Result().Cookies() {
		if c.Name == csrfCookieName {
			cookieValue = c.Value
		}
	}
	if body["token"] == "" || body["token"] != cookieValue {
		t.Errorf("token = %q, cookie = %q; want equal non-empty values", body["token"], cookieValue)
	}
}

func TestCSRFTokenHandler_ExistingCookie_ReturnsSameToken(t *testing.T) {
	handler := NewCSRFTokenHandler(CSRFConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "existing-token"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["token"] != "existing-token" {
		t.Errorf("token = %q, want %q", body["token"], "existing-token")
	}
}
