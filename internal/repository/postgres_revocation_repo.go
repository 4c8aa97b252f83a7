package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hitoshi/plantshop/internal/model"
)

// PostgresRevocationRepo はPostgreSQLを使用したトークン失効リストのリポジトリ。
type PostgresRevocationRepo struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresRevocationRepo はPostgresRevocationRepoを生成する。
func NewPostgresRevocationRepo(db *sql.DB, timeout time.Duration) *PostgresRevocationRepo {
	return &PostgresRevocationRepo{db: db, timeout: timeout}
}

// Revoke はトークンを失効リストに登録する。登録済みの場合は何もしない。
func (r *PostgresRevocationRepo) Revoke(ctx context.Context, token *model.RevokedToken) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO revoked_tokens (jti, user_id, expires_at, revoked_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (jti) DO NOTHING`,
		token.JTI, token.UserID, token.ExpiresAt, token.RevokedAt,
	)
	if err != nil {
		return classify(ctx, "failed to revoke token", err)
	}
	return nil
}

// IsRevoked は指定jtiが失効リストに存在するかを返す。
// 有効期限を過ぎた記録は検証時点でトークン自体が無効なため、期限で絞り込まない。
func (r *PostgresRevocationRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = $1)`,
		jti,
	).Scan(&exists)
	if err != nil {
		return false, classify(ctx, "failed to check token revocation", err)
	}
	return exists, nil
}

// DeleteExpired は本来の有効期限がbeforeより前の記録を削除し、削除件数を返す。
func (r *PostgresRevocationRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at < $1`,
		before,
	)
	if err != nil {
		return 0, classify(ctx, "failed to delete expired revocations", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, classify(ctx, "failed to get rows affected", err)
	}
	return n, nil
}

// compile-time interface check
var _ RevocationRepository = (*PostgresRevocationRepo)(nil)
