package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"growth-wallet/internal/domain"
	"growth-wallet/internal/storage"
)

// ProductStore implements storage.ProductStore using PostgreSQL.
type ProductStore struct {
	pool *Pool
}

// NewProductStore creates a new ProductStore.
func NewProductStore(pool *Pool) *ProductStore {
	return &ProductStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ProductStore = (*ProductStore)(nil)

const insertProductSQL = `
	INSERT INTO products (
		product_id, name, category,
		base_price, material_cost, initial_marketing_cost, base_weekly_sales
	) VALUES ($1, $2, $3, $4, $5, $6, $7)
`

const selectProductColumns = `
	SELECT
		product_id, name, category,
		base_price, material_cost, initial_marketing_cost, base_weekly_sales
	FROM products
`

// Insert adds a new product. Returns ErrDuplicateKey if id exists.
func (s *ProductStore) Insert(ctx context.Context, p *domain.Product) error {
	if p == nil || p.ID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertProductSQL,
		p.ID, p.Name, p.Category,
		p.BasePrice, p.MaterialCost, p.InitialMarketingCost, p.BaseWeeklySales,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// InsertBulk adds multiple products atomically. Fails entire batch on any duplicate.
func (s *ProductStore) InsertBulk(ctx context.Context, products []*domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range products {
		if p == nil || p.ID == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, insertProductSQL,
			p.ID, p.Name, p.Category,
			p.BasePrice, p.MaterialCost, p.InitialMarketingCost, p.BaseWeeklySales,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert product in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID retrieves a product by its ID. Returns ErrNotFound if not exists.
func (s *ProductStore) GetByID(ctx context.Context, productID string) (*domain.Product, error) {
	row := s.pool.QueryRow(ctx, selectProductColumns+` WHERE product_id = $1`, productID)

	p, err := scanProduct(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return p, nil
}

// GetAll retrieves all products ordered by id.
func (s *ProductStore) GetAll(ctx context.Context) ([]*domain.Product, error) {
	rows, err := s.pool.Query(ctx, selectProductColumns+` ORDER BY product_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("get all products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

// scanProduct scans one row; pgx.Rows satisfies pgx.Row.
func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Category,
		&p.BasePrice, &p.MaterialCost, &p.InitialMarketingCost, &p.BaseWeeklySales,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
