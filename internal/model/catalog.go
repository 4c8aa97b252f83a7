// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"time"
)

// Money は金額を最小通貨単位（セント）の整数で表す。
// 浮動小数点の丸め誤差を避けるため、合計計算はすべてこの型で行う。
type Money int64

// String は "101.98" 形式の文字列を返す。
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON は小数点以下2桁のJSON数値として出力する。
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// Plant はカタログ上の商品（植物）を表す。
// カート・お気に入りからは読み取り専用で参照される。
type Plant struct {
	ID            string
	Name          string
	Description   string
	Price         Money
	InStock       bool
	StockQuantity int
	Category      string
	ImageURL      string
	CreatedAt     time.Time
}

// PlantFilter はカタログ一覧の絞り込み条件を表す。
type PlantFilter struct {
	Category    string
	InStockOnly bool
	Limit       int
	Offset      int
}

// DashboardStats は管理画面に表示する件数の集計。
type DashboardStats struct {
	Users         int
	Customers     int
	Admins        int
	Plants        int
	OutOfStock    int
	CartEntries   int
	WishlistItems int
}
