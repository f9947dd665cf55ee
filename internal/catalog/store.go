// Package catalog manages the per-organization product list that document
// line items draw from.
package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrStoreUnavailable indicates the product store dependency is not configured.
var ErrStoreUnavailable = errors.New("catalog: store unavailable")

// ErrNotFound indicates the requested product does not exist in the org.
var ErrNotFound = errors.New("catalog: product not found")

// Product is a sellable or purchasable item owned by one organization.
type Product struct {
	ID          uuid.UUID `json:"id"`
	OrgID       string    `json:"-"`
	Name        string    `json:"name"`
	SKU         string    `json:"sku,omitempty"`
	UnitPrice   float64   `json:"unitPrice"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Store provides database accessors for products.
type Store interface {
	Insert(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, p Product) (Product, error)
	Delete(ctx context.Context, orgID string, id uuid.UUID) error
	Get(ctx context.Context, orgID string, id uuid.UUID) (Product, error)
	List(ctx context.Context, orgID string, onlyActive bool, limit, offset int) ([]Product, error)
	Count(ctx context.Context, orgID string, onlyActive bool) (int64, error)
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

const productColumns = `id, org_id, name, sku, unit_price, description, active, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.OrgID, &p.Name, &p.SKU, &p.UnitPrice, &p.Description, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (s *pgStore) Insert(ctx context.Context, p Product) (Product, error) {
	if s == nil || s.pool == nil {
		return Product{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `INSERT INTO products (org_id, name, sku, unit_price, description, active)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+productColumns,
		p.OrgID, strings.TrimSpace(p.Name), strings.TrimSpace(p.SKU), p.UnitPrice, p.Description, p.Active)
	return scanProduct(row)
}

func (s *pgStore) Update(ctx context.Context, p Product) (Product, error) {
	if s == nil || s.pool == nil {
		return Product{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `UPDATE products
SET name = $3, sku = $4, unit_price = $5, description = $6, active = $7, updated_at = now()
WHERE org_id = $1 AND id = $2
RETURNING `+productColumns,
		p.OrgID, p.ID, strings.TrimSpace(p.Name), strings.TrimSpace(p.SKU), p.UnitPrice, p.Description, p.Active)
	return scanProduct(row)
}

func (s *pgStore) Delete(ctx context.Context, orgID string, id uuid.UUID) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE org_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgStore) Get(ctx context.Context, orgID string, id uuid.UUID) (Product, error) {
	if s == nil || s.pool == nil {
		return Product{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE org_id = $1 AND id = $2`, orgID, id)
	return scanProduct(row)
}

func (s *pgStore) List(ctx context.Context, orgID string, onlyActive bool, limit, offset int) ([]Product, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	limit = clampPositive(limit, 1, 200)
	if offset < 0 {
		offset = 0
	}
	var (
		rows pgx.Rows
		err  error
	)
	if onlyActive {
		rows, err = s.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE org_id = $1 AND active ORDER BY name LIMIT $2 OFFSET $3`, orgID, limit, offset)
	} else {
		rows, err = s.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE org_id = $1 ORDER BY name LIMIT $2 OFFSET $3`, orgID, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *pgStore) Count(ctx context.Context, orgID string, onlyActive bool) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, ErrStoreUnavailable
	}
	var total int64
	var err error
	if onlyActive {
		err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE org_id = $1 AND active`, orgID).Scan(&total)
	} else {
		err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE org_id = $1`, orgID).Scan(&total)
	}
	return total, err
}

func clampPositive(value, fallback, max int) int {
	if value <= 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}
