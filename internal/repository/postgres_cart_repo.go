package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hitoshi/plantshop/internal/model"
)

// PostgresCartRepo はPostgreSQLを使用したカートリポジトリ。
type PostgresCartRepo struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresCartRepo はPostgresCartRepoを生成する。
func NewPostgresCartRepo(db *sql.DB, timeout time.Duration) *PostgresCartRepo {
	return &PostgresCartRepo{db: db, timeout: timeout}
}

const cartReturning = `RETURNING id, user_id, plant_id, quantity, added_at, updated_at`

func scanCartEntry(row rowScanner) (*model.CartEntry, error) {
	e := &model.CartEntry{}
	if err := row.Scan(&e.ID, &e.UserID, &e.PlantID, &e.Quantity, &e.AddedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	return e, nil
}

// AddOrIncrement はカート項目を追加する。
// 同一(user_id, plant_id)の行が既に存在する場合は1文のUPSERTで数量を加算するため、
// 並行リクエストでも加算が失われない。
// 加算後の数量がmodel.MaxCartQuantityを超える場合は更新せずErrQuantityLimitを返す。
func (r *PostgresCartRepo) AddOrIncrement(ctx context.Context, entry *model.CartEntry) (*model.CartEntry, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	e, err := scanCartEntry(r.db.QueryRowContext(ctx,
		`INSERT INTO cart (id, user_id, plant_id, quantity, added_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, plant_id)
		 DO UPDATE SET quantity = cart.quantity + EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
		 WHERE cart.quantity + EXCLUDED.quantity <= $7
		 `+cartReturning,
		entry.ID, entry.UserID, entry.PlantID, entry.Quantity, entry.AddedAt, entry.UpdatedAt, model.MaxCartQuantity,
	))
	if errors.Is(err, sql.ErrNoRows) {
		// DO UPDATEのWHEREで除外された
		return nil, ErrQuantityLimit
	}
	if err != nil {
		return nil, classify(ctx, "failed to upsert cart entry", err)
	}
	return e, nil
}

// Increment は既存行の数量を加算する。該当行がない場合はnilを返す。
// 加算後の数量が上限を超える場合はErrQuantityLimitを返す。
func (r *PostgresCartRepo) Increment(ctx context.Context, userID, plantID string, delta int) (*model.CartEntry, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	e, err := scanCartEntry(r.db.QueryRowContext(ctx,
		`UPDATE cart SET quantity = quantity + $3, updated_at = now()
		 WHERE user_id = $1 AND plant_id = $2 AND quantity + $3 <= $4
		 `+cartReturning,
		userID, plantID, delta, model.MaxCartQuantity,
	))
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM cart WHERE user_id = $1 AND plant_id = $2)`,
			userID, plantID,
		).Scan(&exists); err != nil {
			return nil, classify(ctx, "failed to check cart entry", err)
		}
		if exists {
			return nil, ErrQuantityLimit
		}
		return nil, nil
	}
	if err != nil {
		return nil, classify(ctx, "failed to increment cart entry", err)
	}
	return e, nil
}

// UpdateQuantity は所有者が一致する項目の数量を設定する。
// 項目が存在しないか所有者が異なる場合はnilを返す。
func (r *PostgresCartRepo) UpdateQuantity(ctx context.Context, userID, entryID string, quantity int) (*model.CartEntry, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	e, err := scanCartEntry(r.db.QueryRowContext(ctx,
		`UPDATE cart SET quantity = $3, updated_at = now()
		 WHERE id = $1 AND user_id = $2
		 `+cartReturning,
		entryID, userID, quantity,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(ctx, "failed to update cart quantity", err)
	}
	return e, nil
}

// Delete は所有者が一致する項目を削除し、削除したかどうかを返す。
func (r *PostgresCartRepo) Delete(ctx context.Context, userID, entryID string) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM cart WHERE id = $1 AND user_id = $2`,
		entryID, userID,
	)
	if err != nil {
		return false, classify(ctx, "failed to delete cart entry", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, classify(ctx, "failed to get rows affected", err)
	}
	return rowsAffected > 0, nil
}

// ListByUserID はユーザーのカートを商品情報付きで追加順に返す。
// 価格は読み取り時点の商品価格を使う。
func (r *PostgresCartRepo) ListByUserID(ctx context.Context, userID string) ([]model.CartLine, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.user_id, c.plant_id, c.quantity, c.added_at, c.updated_at,
		        p.name, p.price_cents, p.in_stock, p.image_url
		 FROM cart c
		 JOIN plants p ON p.id = c.plant_id
		 WHERE c.user_id = $1
		 ORDER BY c.added_at ASC, c.id ASC`,
		userID,
	)
	if err != nil {
		return nil, classify(ctx, "failed to list cart", err)
	}
	defer rows.Close()

	var lines []model.CartLine
	for rows.Next() {
		var (
			l          model.CartLine
			priceCents int64
		)
		if err := rows.Scan(&l.ID, &l.UserID, &l.PlantID, &l.Quantity, &l.AddedAt, &l.UpdatedAt,
			&l.PlantName, &priceCents, &l.InStock, &l.ImageURL); err != nil {
			return nil, classify(ctx, "failed to scan cart row", err)
		}
		l.UnitPrice = model.Money(priceCents)
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(ctx, "failed to iterate cart rows", err)
	}
	return lines, nil
}

// compile-time interface check
var _ CartRepository = (*PostgresCartRepo)(nil)
