package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hitoshi/plantshop/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
// timeoutは1クエリあたりの上限時間で、0以下の場合はDefaultTimeoutを使う。
func NewPostgresUserRepo(db *sql.DB, timeout time.Duration) *PostgresUserRepo {
	return &PostgresUserRepo{db: db, timeout: timeout}
}

const userColumns = `id, email, name, password_hash, user_role, created_at, updated_at`

func scanUser(row rowScanner) (*model.User, error) {
	user := &model.User{}
	var role string
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	user.Role = model.Role(role)
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(ctx, "failed to find user by ID", err)
	}
	return user, nil
}

// FindByEmail は正規化済みメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		email,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(ctx, "failed to find user by email", err)
	}
	return user, nil
}

// Create はユーザーを作成する。
// メールアドレスが重複する場合はErrConflictを返す。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, user_role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Email, user.Name, user.PasswordHash, string(user.Role), user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return classify(ctx, "failed to insert user", err)
	}
	return nil
}

// UpdateRole はユーザーのロールを変更する。
func (r *PostgresUserRepo) UpdateRole(ctx context.Context, id string, role model.Role) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET user_role = $2, updated_at = now() WHERE id = $1`,
		id, string(role),
	)
	if err != nil {
		return classify(ctx, "failed to update user role", err)
	}
	return requireAffected(ctx, result, "failed to update user role")
}

// DeleteByID は指定IDのユーザーを削除する。
// 関連するcart、wishlist、revoked_tokensはCASCADE削除される。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM users WHERE id = $1`,
		id,
	)
	if err != nil {
		return classify(ctx, "failed to delete user", err)
	}
	return requireAffected(ctx, result, "failed to delete user")
}

// requireAffected は1行も更新されなかった場合にErrNotFoundを返す。
func requireAffected(ctx context.Context, result sql.Result, op string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return classify(ctx, op+": rows affected", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
