package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/plantshop/internal/model"
)

// ストア層が返す分類済みエラー。サービス層はerrors.Isで判定する。
var (
	// ErrConflict は一意制約違反（SQLSTATE 23505）を表す。
	ErrConflict = errors.New("unique constraint violation")
	// ErrForeignKey は外部キー制約違反（SQLSTATE 23503）を表す。
	ErrForeignKey = errors.New("foreign key violation")
	// ErrQuantityLimit は加算後のカート数量が上限を超えるため更新しなかったことを表す。
	ErrQuantityLimit = errors.New("cart quantity limit exceeded")
	// ErrNotFound は更新・削除対象の行が存在しないことを表す。
	ErrNotFound = errors.New("row not found")
)

// DefaultTimeout はタイムアウト未指定時のクエリ上限時間。
const DefaultTimeout = 5 * time.Second

// withTimeout はストア呼び出し1回分の期限付きコンテキストを返す。
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}

// classify はドライバエラーをリポジトリの分類済みエラーに変換する。
// ctxはクエリに渡した期限付きコンテキストで、期限切れならドライバが返す
// キャンセルエラーの種類に関わらずストア障害として扱う。
// 元のエラーはラップして保持するため、ログには詳細が残る。
func classify(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || isUnavailable(err) {
		return fmt.Errorf("%s: %w: %w", op, model.ErrStoreUnavailable, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w: %w", op, ErrConflict, err)
		case "23503":
			return fmt.Errorf("%s: %w: %w", op, ErrForeignKey, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isUnavailable はストアへの到達不能・タイムアウトを判定する。
// クライアント側のキャンセル（context.Canceled）は含めない。
func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// 08: connection exception, 57P: operator intervention (shutdown等)
		code := string(pqErr.Code)
		return strings.HasPrefix(code, "08") || strings.HasPrefix(code, "57P")
	}
	return false
}
