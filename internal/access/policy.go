// Package access はページ経路のアクセス制御を純粋な状態遷移として定義する。
//
// 入力は認証状態（匿名・一般・管理者）とリクエストパスのみで、
// 出力は許可・ログインへのリダイレクト・ホームへのリダイレクトのいずれか。
// I/Oを持たないため、HTTP層とは独立にテストできる。
package access

import (
	"net/url"
	"strings"

	"github.com/hitoshi/plantshop/internal/model"
)

// State は認証状態。
type State int

const (
	Anonymous State = iota
	Customer
	Admin
)

// String はログ出力用の文字列表現を返す。
func (s State) String() string {
	switch s {
	case Customer:
		return "customer"
	case Admin:
		return "admin"
	default:
		return "anonymous"
	}
}

// StateOf は解決済みユーザーから認証状態を求める。nilは匿名。
func StateOf(user *model.User) State {
	switch {
	case user == nil:
		return Anonymous
	case user.Role == model.RoleAdmin:
		return Admin
	default:
		return Customer
	}
}

// Tag は経路に付与する制限区分。
type Tag int

const (
	Unrestricted Tag = iota
	AdminOnly
	CustomerOnly
)

// Outcome は判定結果の種類。
type Outcome int

const (
	Allow Outcome = iota
	RedirectLogin
	RedirectHome
)

// Decision は判定結果。RedirectLogin/RedirectHomeの場合はLocationに遷移先を持つ。
type Decision struct {
	Outcome  Outcome
	Location string
}

// 既定の遷移先。
const (
	DefaultLoginPath    = "/login"
	DefaultCustomerHome = "/"
	DefaultAdminHome    = "/admin"
)

// Rule はパス接頭辞と制限区分の組。
type Rule struct {
	Prefix string
	Tag    Tag
}

// Policy は経路ごとの制限区分と遷移先を保持する。
type Policy struct {
	rules        []Rule
	loginPath    string
	customerHome string
	adminHome    string
}

// NewPolicy はPolicyを生成する。ルールは先に登録したものが優先される。
func NewPolicy(rules ...Rule) *Policy {
	return &Policy{
		rules:        rules,
		loginPath:    DefaultLoginPath,
		customerHome: DefaultCustomerHome,
		adminHome:    DefaultAdminHome,
	}
}

// DefaultPolicy は/admin配下を管理者専用、/account配下を一般ユーザー専用とするPolicyを返す。
func DefaultPolicy() *Policy {
	return NewPolicy(
		Rule{Prefix: "/admin", Tag: AdminOnly},
		Rule{Prefix: "/account", Tag: CustomerOnly},
	)
}

// TagFor はパスに適用される制限区分を返す。
// 接頭辞はパス区切りで一致させるため、/administratorは/adminに一致しない。
func (p *Policy) TagFor(path string) Tag {
	for _, r := range p.rules {
		if path == r.Prefix || strings.HasPrefix(path, strings.TrimSuffix(r.Prefix, "/")+"/") {
			return r.Tag
		}
	}
	return Unrestricted
}

// Decide は認証状態と要求URI（パス＋クエリ）から判定結果を返す。
func (p *Policy) Decide(state State, requestURI string) Decision {
	path := requestURI
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}

	switch p.TagFor(path) {
	case AdminOnly:
		switch state {
		case Admin:
			return Decision{Outcome: Allow}
		case Anonymous:
			return p.toLogin(requestURI)
		default:
			return Decision{Outcome: RedirectHome, Location: p.customerHome}
		}
	case CustomerOnly:
		switch state {
		case Customer:
			return Decision{Outcome: Allow}
		case Anonymous:
			return p.toLogin(requestURI)
		default:
			return Decision{Outcome: RedirectHome, Location: p.adminHome}
		}
	default:
		return Decision{Outcome: Allow}
	}
}

func (p *Policy) toLogin(requestURI string) Decision {
	return Decision{
		Outcome:  RedirectLogin,
		Location: p.loginPath + "?returnTo=" + url.QueryEscape(requestURI),
	}
}

// SafeReturnTo はログイン後の遷移先として安全なパスかどうかを判定し、
// 安全でない場合はfallbackを返す。同一オリジンの絶対パスのみ許可する。
func SafeReturnTo(returnTo, fallback string) string {
	if returnTo == "" || !strings.HasPrefix(returnTo, "/") ||
		strings.HasPrefix(returnTo, "//") || strings.HasPrefix(returnTo, "/\\") {
		return fallback
	}
	u, err := url.Parse(returnTo)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return returnTo
}
