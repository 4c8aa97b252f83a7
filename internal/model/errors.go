// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, cart, wishlist, catalog, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Is はエラーコードが一致するAPIErrorを同一とみなす。
// errors.Is(err, model.NewInvalidCredentialsError()) のような比較を可能にする。
func (e *APIError) Is(target error) bool {
	var t *APIError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// インフラ起因のエラー。APIErrorとは別系統で、呼び出し側のリトライ判断に使う。
var (
	// ErrStoreUnavailable はストアに到達できない、またはタイムアウトしたことを表す。
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrConfiguration は起動を継続できない設定不備を表す。
	// 署名鍵の欠落など、安全でないモードへの縮退を許さないケースで返す。
	ErrConfiguration = errors.New("configuration error")
)

// 定義済みエラーコード
const (
	ErrCodeValidation            = "VALIDATION_ERROR"
	ErrCodeInvalidCredentials    = "INVALID_CREDENTIALS"
	ErrCodeInvalidToken          = "INVALID_TOKEN"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeDuplicateEmail        = "DUPLICATE_EMAIL"
	ErrCodeItemNotFound          = "ITEM_NOT_FOUND"
	ErrCodeCartEntryNotFound     = "CART_ENTRY_NOT_FOUND"
	ErrCodeWishlistEntryNotFound = "WISHLIST_ENTRY_NOT_FOUND"
	ErrCodeInvalidQuantity       = "INVALID_QUANTITY"
	ErrCodeUserNotFound          = "USER_NOT_FOUND"
	ErrCodeStoreUnavailable      = "STORE_UNAVAILABLE"
	ErrCodeInternal              = "INTERNAL_ERROR"
	ErrCodeRateLimitExceeded     = "RATE_LIMIT_EXCEEDED"
)

// NewValidationError は入力値の検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力内容が不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// メールアドレス未登録とパスワード不一致を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度ログインしてください。",
	}
}

// NewInvalidTokenError はセッショントークンが無効な場合のエラーを生成する。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "セッションが無効または期限切れです。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewUnauthorizedError は未認証リクエストのエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewDuplicateEmailError はメールアドレス重複エラーを生成する。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "ログインするか、別のメールアドレスで登録してください。",
	}
}

// NewItemNotFoundError は商品未検出エラーを生成する。
func NewItemNotFoundError(plantID string) *APIError {
	return &APIError{
		Code:     ErrCodeItemNotFound,
		Message:  fmt.Sprintf("指定された商品が見つかりません: %s", plantID),
		Category: "catalog",
		Action:   "商品IDを確認してください。",
	}
}

// NewCartEntryNotFoundError はカート項目が見つからない場合のエラーを生成する。
// 他ユーザーの項目を指定した場合も同じエラーを返す。
func NewCartEntryNotFoundError(entryID string) *APIError {
	return &APIError{
		Code:     ErrCodeCartEntryNotFound,
		Message:  fmt.Sprintf("指定されたカート項目が見つかりません: %s", entryID),
		Category: "cart",
		Action:   "カートを再読み込みしてください。",
	}
}

// NewWishlistEntryNotFoundError はお気に入り項目が見つからない場合のエラーを生成する。
func NewWishlistEntryNotFoundError(plantID string) *APIError {
	return &APIError{
		Code:     ErrCodeWishlistEntryNotFound,
		Message:  fmt.Sprintf("お気に入りに登録されていない商品です: %s", plantID),
		Category: "wishlist",
		Action:   "お気に入り一覧を再読み込みしてください。",
	}
}

// NewInvalidQuantityError は数量が不正な場合のエラーを生成する。
func NewInvalidQuantityError(quantity int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidQuantity,
		Message:  fmt.Sprintf("無効な数量です: %d", quantity),
		Category: "validation",
		Action:   fmt.Sprintf("数量には1から%dまでの整数を指定してください。", MaxCartQuantity),
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewRateLimitExceededError はレート制限超過エラーを生成する。
func NewRateLimitExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "リクエスト数が上限を超えました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewStoreUnavailableError はストア障害時の利用者向けエラーを生成する。
func NewStoreUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeStoreUnavailable,
		Message:  "現在サービスを利用できません。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーの利用者向けエラーを生成する。
// 詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
