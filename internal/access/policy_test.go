package access

import (
	"net/url"
	"testing"

	"github.com/hitoshi/plantshop/internal/model"
)

func TestStateOf(t *testing.T) {
	tests := []struct {
		name string
		user *model.User
		want State
	}{
		{"nil", nil, Anonymous},
		{"customer", &model.User{Role: model.RoleCustomer}, Customer},
		{"admin", &model.User{Role: model.RoleAdmin}, Admin},
	}
	for _, tt := range tests {
		if got := StateOf(tt.user); got != tt.want {
			t.Errorf("%s: StateOf = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestPolicy_Decide_Table(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name         string
		state        State
		uri          string
		wantOutcome  Outcome
		wantLocation string
	}{
		{"管理者は管理画面に入れる", Admin, "/admin/dashboard", Allow, ""},
		{"匿名は管理画面からログインへ", Anonymous, "/admin/dashboard", RedirectLogin, "/login?returnTo=" + url.QueryEscape("/admin/dashboard")},
		{"一般ユーザーは管理画面からホームへ", Customer, "/admin", RedirectHome, "/"},
		{"一般ユーザーはアカウント画面に入れる", Customer, "/account", Allow, ""},
		{"匿名はアカウント画面からログインへ", Anonymous, "/account/orders", RedirectLogin, "/login?returnTo=" + url.QueryEscape("/account/orders")},
		{"管理者はアカウント画面から管理ホームへ", Admin, "/account", RedirectHome, "/admin"},
		{"制限なしは誰でも許可", Anonymous, "/plants", Allow, ""},
		{"接頭辞の部分一致は制限しない", Anonymous, "/administrator", Allow, ""},
		{"returnToにクエリを保持", Anonymous, "/admin/dashboard?tab=stock", RedirectLogin, "/login?returnTo=" + url.QueryEscape("/admin/dashboard?tab=stock")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Decide(tt.state, tt.uri)
			if got.Outcome != tt.wantOutcome {
				t.Errorf("Outcome = %v, want %v", got.Outcome, tt.wantOutcome)
			}
			if got.Location != tt.wantLocation {
				t.Errorf("Location = %q, want %q", got.Location, tt.wantLocation)
			}
		})
	}
}

func TestPolicy_Decide_ReturnToRoundTrips(t *testing.T) {
	p := DefaultPolicy()
	original := "/admin/dashboard?tab=stock&page=2"

	d := p.Decide(Anonymous, original)
	u, err := url.Parse(d.Location)
	if err != nil {
		t.Fatalf("url.Parse: %v", err)
	}
	if got := u.Query().Get("returnTo"); got != original {
		t.Errorf("returnTo = %q, want %q", got, original)
	}
}

func TestSafeReturnTo(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/admin/dashboard", "/admin/dashboard"},
		{"/account?x=1", "/account?x=1"},
		{"", "/"},
		{"https://evil.example/", "/"},
		{"//evil.example/", "/"},
		{"/\\evil.example", "/"},
		{"relative/path", "/"},
	}
	for _, tt := range tests {
		if got := SafeReturnTo(tt.in, "/"); got != tt.want {
			t.Errorf("SafeReturnTo(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
