package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/plantshop/internal/auth"
	"github.com/hitoshi/plantshop/internal/catalog"
	"github.com/hitoshi/plantshop/internal/ledger"
	"github.com/hitoshi/plantshop/internal/middleware"
	"github.com/hitoshi/plantshop/internal/model"
	"github.com/hitoshi/plantshop/internal/repository/memory"
	"github.com/hitoshi/plantshop/internal/security"
	"github.com/hitoshi/plantshop/internal/user"
)

const (
	itMonstera = "11111111-1111-1111-1111-111111111111"
	itPothos   = "22222222-2222-2222-2222-222222222222"
	itAdminID  = "00000000-0000-0000-0000-0000000000ad"
)

// testApp は実サービスとインメモリストアで構成したルーターを保持する。
type testApp struct {
	t       *testing.T
	handler http.Handler
	store   *memory.Store
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	store := memory.NewStore()
	store.PutPlant(&model.Plant{ID: itMonstera, Name: "Monstera", Price: 4599, InStock: true, StockQuantity: 3, Category: "foliage"})
	store.PutPlant(&model.Plant{ID: itPothos, Name: "Pothos", Price: 1000, InStock: true, StockQuantity: 10, Category: "foliage"})

	adminHash, err := auth.HashPassword("admin-password", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	store.PutUser(&model.User{
		ID:           itAdminID,
		Email:        "admin@example.com",
		Name:         "Admin",
		PasswordHash: adminHash,
		Role:         model.RoleAdmin,
		CreatedAt:    time.Now(),
	})

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:      "integration-session-secret-32bytes!",
		SessionTTL:  time.Hour,
		RememberTTL: 30 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("failed to create token service: %v", err)
	}
	authSvc := auth.NewService(store.Users(), store.Revocations(), tokens, security.NewTextSanitizer(), auth.ServiceConfig{})
	ledgerSvc := ledger.NewService(store.Carts(), store.Wishlists(), store.Plants(), nil)

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfigPerMinute(6000, 6000))
	t.Cleanup(limiter.Stop)

	router := NewRouter(&RouterDeps{
		SessionResolver: authSvc,
		RateLimiter:     limiter,
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		AuthService:     authSvc,
		LedgerService:   ledgerSvc,
		CatalogService:  catalog.NewService(store.Plants(), security.NewContentSanitizer()),
		UserService:     user.NewService(store.Users()),
		Stats:           store.Stats(),
	})

	return &testApp{t: t, handler: router, store: store}
}

// session はCookieとCSRFトークンを保持するブラウザ相当のクライアント。
type session struct {
	app     *testApp
	cookies map[string]*http.Cookie
	bearer  string
	csrf    string
}

func (a *testApp) newSession() *session {
	return &session{app: a, cookies: map[string]*http.Cookie{}}
}

func (s *session) do(method, target, body string) *httptest.ResponseRecorder {
	s.app.t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range s.cookies {
		req.AddCookie(c)
	}
	if s.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+s.bearer)
	}
	if s.csrf != "" {
		req.Header.Set("X-CSRF-Token", s.csrf)
	}

	w := httptest.NewRecorder()
	s.app.handler.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(s.cookies, c.Name)
			continue
		}
		s.cookies[c.Name] = c
	}
	return w
}

func (s *session) fetchCSRF() {
	s.app.t.Helper()
	w := s.do(http.MethodGet, "/api/csrf-token", "")
	if w.Code != http.StatusOK {
		s.app.t.Fatalf("csrf-token status = %d", w.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		s.app.t.Fatalf("failed to decode csrf response: %v", err)
	}
	s.csrf = resp["token"]
}

func (s *session) login(email, password string) map[string]interface{} {
	s.app.t.Helper()
	w := s.do(http.MethodPost, "/auth/login", `{"email":"`+email+`","password":"`+password+`"}`)
	if w.Code != http.StatusOK {
		s.app.t.Fatalf("login status = %d, body = %s", w.Code, w.Body.String())
	}
	return decodeBody(s.app.t, w)
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d; body = %s", w.Code, want, w.Body.String())
	}
}

func TestIntegration_CustomerJourney(t *testing.T) {
	app := newTestApp(t)
	s := app.newSession()

	// 登録はセッションを発行しない
	w := s.do(http.MethodPost, "/auth/register",
		`{"name":"Alice <b>Green</b>","email":" Alice@Example.com ","password":"correct-horse-battery-9"}`)
	expectStatus(t, w, http.StatusOK)
	registered, _ := decodeBody(t, w)["user"].(map[string]interface{})
	if registered["email"] != "alice@example.com" || registered["role"] != "customer" {
		t.Fatalf("registered user = %v", registered)
	}
	if _, ok := s.cookies[middleware.SessionCookieName]; ok {
		t.Fatal("register must not set a session cookie")
	}
	expectStatus(t, s.do(http.MethodGet, "/auth/me", ""), http.StatusUnauthorized)

	// 重複登録
	expectStatus(t, s.do(http.MethodPost, "/auth/register",
		`{"name":"Alice","email":"alice@example.com","password":"another-passw0rd"}`), http.StatusConflict)

	// 誤ったパスワード
	expectStatus(t, s.do(http.MethodPost, "/auth/login",
		`{"email":"alice@example.com","password":"wrong-password"}`), http.StatusUnauthorized)

	s.login("alice@example.com", "correct-horse-battery-9")
	w = s.do(http.MethodGet, "/auth/me", "")
	expectStatus(t, w, http.StatusOK)
	me, _ := decodeBody(t, w)["user"].(map[string]interface{})
	if me["id"] != registered["id"] {
		t.Errorf("me.id = %v, want %v", me["id"], registered["id"])
	}

	// Cookie認証の更新系はCSRFトークン必須
	expectStatus(t, s.do(http.MethodPost, "/api/cart", `{"plantId":"`+itMonstera+`"}`), http.StatusForbidden)
	s.fetchCSRF()

	expectStatus(t, s.do(http.MethodPost, "/api/cart", `{"plantId":"`+itMonstera+`"}`), http.StatusCreated)
	expectStatus(t, s.do(http.MethodPost, "/api/cart", `{"plantId":"`+itMonstera+`"}`), http.StatusCreated)
	expectStatus(t, s.do(http.MethodPost, "/api/cart", `{"plantId":"`+itPothos+`","quantity":1}`), http.StatusCreated)

	w = s.do(http.MethodGet, "/api/cart", "")
	expectStatus(t, w, http.StatusOK)
	cart := decodeBody(t, w)
	if cart["totalPrice"] != 101.98 {
		t.Errorf("totalPrice = %v, want 101.98", cart["totalPrice"])
	}
	if cart["totalItems"] != float64(3) {
		t.Errorf("totalItems = %v, want 3", cart["totalItems"])
	}
	items, _ := cart["items"].([]interface{})
	if len(items) != 2 {
		t.Fatalf("cart rows = %d, want 2 (same plant merged)", len(items))
	}

	expectStatus(t, s.do(http.MethodPost, "/api/cart", `{"plantId":"`+itMonstera+`","quantity":0}`), http.StatusBadRequest)
	expectStatus(t, s.do(http.MethodPost, "/api/cart", `{"plantId":"99999999-9999-9999-9999-999999999999"}`), http.StatusNotFound)

	// お気に入り
	expectStatus(t, s.do(http.MethodPost, "/api/wishlist", `{"plantId":"`+itPothos+`"}`), http.StatusCreated)
	expectStatus(t, s.do(http.MethodPost, "/api/wishlist", `{"plantId":"`+itPothos+`"}`), http.StatusCreated)
	w = s.do(http.MethodGet, "/api/wishlist/"+itPothos, "")
	expectStatus(t, w, http.StatusOK)
	if decodeBody(t, w)["inWishlist"] != true {
		t.Error("expected plant to be in wishlist")
	}
	expectStatus(t, s.do(http.MethodDelete, "/api/wishlist?catalogItemId="+itPothos, ""), http.StatusOK)
	expectStatus(t, s.do(http.MethodDelete, "/api/wishlist?plantId="+itPothos, ""), http.StatusNotFound)

	// アカウント画面は一般ユーザーのみ、管理画面はホームへ戻される
	expectStatus(t, s.do(http.MethodGet, "/account", ""), http.StatusOK)
	w = s.do(http.MethodGet, "/admin/dashboard", "")
	expectStatus(t, w, http.StatusSeeOther)
	if loc := w.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want /", loc)
	}

	// ログアウト後はCookieを再送しても匿名扱い
	sessionCookie := s.cookies[middleware.SessionCookieName]
	expectStatus(t, s.do(http.MethodPost, "/auth/logout", ""), http.StatusOK)
	if _, ok := s.cookies[middleware.SessionCookieName]; ok {
		t.Error("logout should clear the session cookie")
	}
	s.cookies[middleware.SessionCookieName] = sessionCookie
	expectStatus(t, s.do(http.MethodGet, "/auth/me", ""), http.StatusUnauthorized)
	expectStatus(t, s.do(http.MethodGet, "/api/cart", ""), http.StatusUnauthorized)
}

func TestIntegration_BearerClientSkipsCSRF(t *testing.T) {
	app := newTestApp(t)
	s := app.newSession()

	token, _ := s.login("admin@example.com", "admin-password")["token"].(string)
	if token == "" {
		t.Fatal("login response should include a token")
	}

	api := app.newSession()
	api.bearer = token
	expectStatus(t, api.do(http.MethodGet, "/auth/me", ""), http.StatusOK)
	expectStatus(t, api.do(http.MethodPost, "/api/wishlist", `{"plantId":"`+itMonstera+`"}`), http.StatusCreated)
	if n := app.store.WishlistRowCount(itAdminID, itMonstera); n != 1 {
		t.Errorf("wishlist rows = %d, want 1", n)
	}

	api.bearer = "not-a-jwt"
	expectStatus(t, api.do(http.MethodGet, "/api/wishlist", ""), http.StatusUnauthorized)
}

func TestIntegration_PageAccessControl(t *testing.T) {
	app := newTestApp(t)

	anon := app.newSession()
	w := anon.do(http.MethodGet, "/admin/dashboard?tab=users", "")
	expectStatus(t, w, http.StatusSeeOther)
	if loc := w.Header().Get("Location"); loc != "/login?returnTo=%2Fadmin%2Fdashboard%3Ftab%3Dusers" {
		t.Errorf("Location = %q", loc)
	}
	w = anon.do(http.MethodGet, "/account", "")
	expectStatus(t, w, http.StatusSeeOther)
	if loc := w.Header().Get("Location"); !strings.HasPrefix(loc, "/login?returnTo=") {
		t.Errorf("Location = %q", loc)
	}

	// 未保護のパスはそのまま
	expectStatus(t, anon.do(http.MethodGet, "/api/plants", ""), http.StatusOK)
	expectStatus(t, anon.do(http.MethodGet, "/login", ""), http.StatusOK)

	admin := app.newSession()
	admin.login("admin@example.com", "admin-password")
	expectStatus(t, admin.do(http.MethodGet, "/admin", ""), http.StatusOK)

	w = admin.do(http.MethodGet, "/admin/dashboard", "")
	expectStatus(t, w, http.StatusOK)
	stats := decodeBody(t, w)
	if stats["admins"] != float64(1) || stats["plants"] != float64(2) {
		t.Errorf("dashboard = %v", stats)
	}

	w = admin.do(http.MethodGet, "/account", "")
	expectStatus(t, w, http.StatusSeeOther)
	if loc := w.Header().Get("Location"); loc != "/admin" {
		t.Errorf("Location = %q, want /admin", loc)
	}
}

func TestIntegration_Withdraw(t *testing.T) {
	app := newTestApp(t)
	s := app.newSession()

	expectStatus(t, s.do(http.MethodPost, "/auth/register",
		`{"name":"Bob","email":"bob@example.com","password":"bobs-long-passw0rd"}`), http.StatusOK)
	userID, _ := s.login("bob@example.com", "bobs-long-passw0rd")["user"].(map[string]interface{})["id"].(string)
	s.fetchCSRF()
	expectStatus(t, s.do(http.MethodPost, "/api/cart", `{"plantId":"`+itPothos+`"}`), http.StatusCreated)

	expectStatus(t, s.do(http.MethodDelete, "/api/users/me", ""), http.StatusNoContent)
	if n := app.store.CartRowCount(userID, itPothos); n != 0 {
		t.Errorf("cart rows after withdraw = %d, want 0", n)
	}
	expectStatus(t, s.do(http.MethodPost, "/auth/login",
		`{"email":"bob@example.com","password":"bobs-long-passw0rd"}`), http.StatusUnauthorized)
}
