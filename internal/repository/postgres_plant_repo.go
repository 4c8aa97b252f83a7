package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/plantshop/internal/model"
)

// DefaultPlantListLimit はlimit未指定時の一覧件数。
const DefaultPlantListLimit = 50

// MaxPlantListLimit は一覧取得で許可する最大件数。
const MaxPlantListLimit = 200

// PostgresPlantRepo はPostgreSQLを使用したカタログ商品リポジトリ。
type PostgresPlantRepo struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresPlantRepo はPostgresPlantRepoを生成する。
func NewPostgresPlantRepo(db *sql.DB, timeout time.Duration) *PostgresPlantRepo {
	return &PostgresPlantRepo{db: db, timeout: timeout}
}

const plantColumns = `id, name, description, price_cents, in_stock, stock_quantity, category, image_url, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlant(row rowScanner) (*model.Plant, error) {
	p := &model.Plant{}
	var priceCents int64
	err := row.Scan(&p.ID, &p.Name, &p.Description, &priceCents, &p.InStock, &p.StockQuantity, &p.Category, &p.ImageURL, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Price = model.Money(priceCents)
	return p, nil
}

// FindByID は指定IDの商品を取得する。見つからない場合はnilを返す。
func (r *PostgresPlantRepo) FindByID(ctx context.Context, id string) (*model.Plant, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	p, err := scanPlant(r.db.QueryRowContext(ctx,
		`SELECT `+plantColumns+` FROM plants WHERE id = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(ctx, "failed to find plant", err)
	}
	return p, nil
}

// List は絞り込み条件に一致する商品を名前順で返す。
func (r *PostgresPlantRepo) List(ctx context.Context, filter model.PlantFilter) ([]*model.Plant, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var (
		conds []string
		args  []any
	)
	if filter.InStockOnly {
		conds = append(conds, "in_stock = true")
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultPlantListLimit
	}
	if limit > MaxPlantListLimit {
		limit = MaxPlantListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + plantColumns + ` FROM plants`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(` ORDER BY name ASC, id ASC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(ctx, "failed to list plants", err)
	}
	defer rows.Close()

	var plants []*model.Plant
	for rows.Next() {
		p, err := scanPlant(rows)
		if err != nil {
			return nil, classify(ctx, "failed to scan plant row", err)
		}
		plants = append(plants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(ctx, "failed to iterate plant rows", err)
	}
	return plants, nil
}

// compile-time interface check
var _ PlantRepository = (*PostgresPlantRepo)(nil)
