package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hitoshi/plantshop/internal/model"
)

// PostgresStatsRepo はPostgreSQLを使用した管理画面向け集計リポジトリ。
type PostgresStatsRepo struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresStatsRepo はPostgresStatsRepoを生成する。
func NewPostgresStatsRepo(db *sql.DB, timeout time.Duration) *PostgresStatsRepo {
	return &PostgresStatsRepo{db: db, timeout: timeout}
}

// Dashboard はユーザー数・商品数・カート件数などを1クエリで集計する。
func (r *PostgresStatsRepo) Dashboard(ctx context.Context) (*model.DashboardStats, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	s := &model.DashboardStats{}
	err := r.db.QueryRowContext(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM users),
		   (SELECT COUNT(*) FROM users WHERE user_role = 'customer'),
		   (SELECT COUNT(*) FROM users WHERE user_role = 'admin'),
		   (SELECT COUNT(*) FROM plants),
		   (SELECT COUNT(*) FROM plants WHERE in_stock = false),
		   (SELECT COUNT(*) FROM cart),
		   (SELECT COUNT(*) FROM wishlist)`,
	).Scan(&s.Users, &s.Customers, &s.Admins, &s.Plants, &s.OutOfStock, &s.CartEntries, &s.WishlistItems)
	if err != nil {
		return nil, classify(ctx, "failed to aggregate dashboard stats", err)
	}
	return s, nil
}

// compile-time interface check
var _ StatsRepository = (*PostgresStatsRepo)(nil)
