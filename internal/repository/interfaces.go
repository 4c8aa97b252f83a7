// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/plantshop/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は正規化済みメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// メールアドレスが重複する場合はErrConflictを返す。
	Create(ctx context.Context, user *model.User) error

	// UpdateRole はユーザーのロールを変更する。対象が存在しない場合はErrNotFoundを返す。
	UpdateRole(ctx context.Context, id string, role model.Role) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するcart、wishlist、revoked_tokensはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// PlantRepository はカタログ商品の読み取り専用インターフェース。
type PlantRepository interface {
	// FindByID は指定IDの商品を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Plant, error)

	// List は絞り込み条件に一致する商品を名前順で返す。
	List(ctx context.Context, filter model.PlantFilter) ([]*model.Plant, error)
}

// CartRepository はカート項目の永続化インターフェース。
// 同一(user_id, plant_id)の重複はストアの一意制約で防ぐ。
type CartRepository interface {
	// AddOrIncrement はカート項目を追加する。
	// 同一商品の行が既に存在する場合は数量をアトミックに加算する。
	AddOrIncrement(ctx context.Context, entry *model.CartEntry) (*model.CartEntry, error)

	// Increment は既存行の数量を加算する。該当行がない場合はnilを返す。
	Increment(ctx context.Context, userID, plantID string, delta int) (*model.CartEntry, error)

	// UpdateQuantity は所有者が一致する項目の数量を設定する。
	// 項目が存在しないか所有者が異なる場合はnilを返す。
	UpdateQuantity(ctx context.Context, userID, entryID string, quantity int) (*model.CartEntry, error)

	// Delete は所有者が一致する項目を削除し、削除したかどうかを返す。
	Delete(ctx context.Context, userID, entryID string) (bool, error)

	// ListByUserID はユーザーのカートを商品情報付きで返す。
	ListByUserID(ctx context.Context, userID string) ([]model.CartLine, error)
}

// WishlistRepository はお気に入りの永続化インターフェース。
type WishlistRepository interface {
	// Add はお気に入りを追加する。既に登録済みの場合は既存の項目を返す。
	Add(ctx context.Context, entry *model.WishlistEntry) (*model.WishlistEntry, error)

	// FindByUserAndPlant はユーザーIDと商品IDで項目を検索する。見つからない場合はnilを返す。
	FindByUserAndPlant(ctx context.Context, userID, plantID string) (*model.WishlistEntry, error)

	// Delete は項目を削除し、削除したかどうかを返す。
	Delete(ctx context.Context, userID, plantID string) (bool, error)

	// ListByUserID はユーザーのお気に入りを商品情報付きで返す。
	ListByUserID(ctx context.Context, userID string) ([]model.WishlistLine, error)
}

// RevocationRepository はログアウト済みトークンの失効リストの永続化インターフェース。
type RevocationRepository interface {
	// Revoke はトークンを失効リストに登録する。登録済みの場合は何もしない。
	Revoke(ctx context.Context, token *model.RevokedToken) error

	// IsRevoked は指定jtiが失効リストに存在するかを返す。
	IsRevoked(ctx context.Context, jti string) (bool, error)

	// DeleteExpired は本来の有効期限がbeforeより前の記録を削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// StatsRepository は管理画面向けの集計インターフェース。
type StatsRepository interface {
	// Dashboard はユーザー数・商品数・カート件数などを集計する。
	Dashboard(ctx context.Context) (*model.DashboardStats, error)
}
