// Package model はドメインモデルを定義する。
package model

import "time"

// MaxCartQuantity はカート項目1件あたりの数量上限。加算後の値にも適用する。
const MaxCartQuantity = 9999

// CartEntry はユーザーのカート内の1商品を表す。
// (UserID, PlantID) の組はユーザーごとに一意で、Quantityは1以上MaxCartQuantity以下。
type CartEntry struct {
	ID        string
	UserID    string
	PlantID   string
	Quantity  int
	AddedAt   time.Time
	UpdatedAt time.Time
}

// CartLine はカート項目と商品情報を結合したモデル。
// 価格は読み取り時点のカタログ価格を使う。
type CartLine struct {
	CartEntry
	PlantName string
	UnitPrice Money
	InStock   bool
	ImageURL  string
}

// Subtotal は数量×単価を返す。
func (l CartLine) Subtotal() Money {
	return l.UnitPrice * Money(l.Quantity)
}

// CartSummary はカートの派生値（合計金額・合計数量）を表す。
// 保存せず、読み取りのたびに再計算する。
type CartSummary struct {
	Lines      []CartLine
	TotalItems int
	TotalPrice Money
}

// Summarize はカート行から合計値を計算する。
func Summarize(lines []CartLine) CartSummary {
	summary := CartSummary{Lines: lines}
	for _, l := range lines {
		summary.TotalItems += l.Quantity
		summary.TotalPrice += l.Subtotal()
	}
	return summary
}

// WishlistEntry はユーザーのお気に入り登録を表す。
// (UserID, PlantID) の組はユーザーごとに一意。
type WishlistEntry struct {
	ID      string
	UserID  string
	PlantID string
	AddedAt time.Time
}

// WishlistLine はお気に入り項目と商品情報を結合したモデル。
type WishlistLine struct {
	WishlistEntry
	PlantName string
	Price     Money
	InStock   bool
	ImageURL  string
}
