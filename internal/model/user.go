// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// Role はユーザーの権限区分を表す。
type Role string

const (
	// RoleAdmin は管理画面にアクセスできる管理者。
	RoleAdmin Role = "admin"
	// RoleCustomer は一般の購入者。新規登録ユーザーは常にこのロールになる。
	RoleCustomer Role = "customer"
)

// Valid は定義済みのロールかどうかを返す。
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCustomer
}

// User はサービス利用ユーザーを表す。
// PasswordHashはレスポンスに含めてはならない。
type User struct {
	ID           string
	Email        string // 小文字・前後空白除去済み
	Name         string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NormalizeEmail は比較・保存用にメールアドレスを正規化する。
// 登録・ログイン・ロール変更はすべてこの形で検索する。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsAdmin は管理者ロールかどうかを返す。
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// RevokedToken はログアウト済みトークンの失効記録を表す。
// 本来の有効期限を過ぎた記録はクリーンアップジョブで削除される。
type RevokedToken struct {
	JTI       string
	UserID    string
	ExpiresAt time.Time
	RevokedAt time.Time
}
