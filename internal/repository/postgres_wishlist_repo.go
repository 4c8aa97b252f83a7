package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/plantshop/internal/model"
)

// PostgresWishlistRepo はPostgreSQLを使用したお気に入りリポジトリ。
type PostgresWishlistRepo struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresWishlistRepo はPostgresWishlistRepoを生成する。
func NewPostgresWishlistRepo(db *sql.DB, timeout time.Duration) *PostgresWishlistRepo {
	return &PostgresWishlistRepo{db: db, timeout: timeout}
}

// Add はお気に入りを追加する。
// 既に登録済みの場合はON CONFLICT DO NOTHINGで挿入をスキップし、既存の項目を返す。
// 同じ組の並行挿入に負けた場合、文の開始時点のスナップショットには相手の行が見えず
// 0行になるため、別の文で読み直す。読み直しでも見つからなければErrConflictを返す。
func (r *PostgresWishlistRepo) Add(ctx context.Context, entry *model.WishlistEntry) (*model.WishlistEntry, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	e := &model.WishlistEntry{}
	err := r.db.QueryRowContext(ctx,
		`WITH ins AS (
		   INSERT INTO wishlist (id, user_id, plant_id, added_at)
		   VALUES ($1, $2, $3, $4)
		   ON CONFLICT (user_id, plant_id) DO NOTHING
		   RETURNING id, user_id, plant_id, added_at
		 )
		 SELECT id, user_id, plant_id, added_at FROM ins
		 UNION ALL
		 SELECT id, user_id, plant_id, added_at FROM wishlist
		 WHERE user_id = $2 AND plant_id = $3
		 LIMIT 1`,
		entry.ID, entry.UserID, entry.PlantID, entry.AddedAt,
	).Scan(&e.ID, &e.UserID, &e.PlantID, &e.AddedAt)
	if errors.Is(err, sql.ErrNoRows) {
		existing, err := r.FindByUserAndPlant(ctx, entry.UserID, entry.PlantID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("wishlist entry disappeared after conflicting insert: %w", ErrConflict)
		}
		return existing, nil
	}
	if err != nil {
		return nil, classify(ctx, "failed to add wishlist entry", err)
	}
	return e, nil
}

// FindByUserAndPlant はユーザーIDと商品IDで項目を検索する。見つからない場合はnilを返す。
func (r *PostgresWishlistRepo) FindByUserAndPlant(ctx context.Context, userID, plantID string) (*model.WishlistEntry, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	e := &model.WishlistEntry{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, plant_id, added_at FROM wishlist
		 WHERE user_id = $1 AND plant_id = $2`,
		userID, plantID,
	).Scan(&e.ID, &e.UserID, &e.PlantID, &e.AddedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(ctx, "failed to find wishlist entry", err)
	}
	return e, nil
}

// Delete は項目を削除し、削除したかどうかを返す。
func (r *PostgresWishlistRepo) Delete(ctx context.Context, userID, plantID string) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM wishlist WHERE user_id = $1 AND plant_id = $2`,
		userID, plantID,
	)
	if err != nil {
		return false, classify(ctx, "failed to delete wishlist entry", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, classify(ctx, "failed to get rows affected", err)
	}
	return rowsAffected > 0, nil
}

// ListByUserID はユーザーのお気に入りを商品情報付きで新しい順に返す。
func (r *PostgresWishlistRepo) ListByUserID(ctx context.Context, userID string) ([]model.WishlistLine, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx,
		`SELECT w.id, w.user_id, w.plant_id, w.added_at,
		        p.name, p.price_cents, p.in_stock, p.image_url
		 FROM wishlist w
		 JOIN plants p ON p.id = w.plant_id
		 WHERE w.user_id = $1
		 ORDER BY w.added_at DESC, w.id ASC`,
		userID,
	)
	if err != nil {
		return nil, classify(ctx, "failed to list wishlist", err)
	}
	defer rows.Close()

	var lines []model.WishlistLine
	for rows.Next() {
		var (
			l          model.WishlistLine
			priceCents int64
		)
		if err := rows.Scan(&l.ID, &l.UserID, &l.PlantID, &l.AddedAt,
			&l.PlantName, &priceCents, &l.InStock, &l.ImageURL); err != nil {
			return nil, classify(ctx, "failed to scan wishlist row", err)
		}
		l.Price = model.Money(priceCents)
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(ctx, "failed to iterate wishlist rows", err)
	}
	return lines, nil
}

// compile-time interface check
var _ WishlistRepository = (*PostgresWishlistRepo)(nil)
