package database

import (
	"context"
	"fmt"

	"modular-shop-backend/pkg/models"
)

const productColumns = `id, name, description, price, category`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var p models.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProducts 列出全部商品
func (s *SQLDatabase) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// GetProduct 根据ID获取商品
func (s *SQLDatabase) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "product")
	}
	return p, nil
}

// CreateProduct 创建商品，回填ID
func (s *SQLDatabase) CreateProduct(ctx context.Context, p *models.Product) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO products (name, description, price, category) VALUES ($1, $2, $3, $4) RETURNING id`,
		p.Name, p.Description, p.Price, p.Category).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// UpdateProduct 部分更新商品；已有订单的金额不受价格变化影响
func (s *SQLDatabase) UpdateProduct(ctx context.Context, id int64, patch models.ProductPatch) (*models.Product, error) {
	var b updateBuilder
	if patch.Name != nil {
		b.add("name", *patch.Name)
	}
	if patch.Description != nil {
		b.add("description", *patch.Description)
	}
	if patch.Price != nil {
		b.add("price", *patch.Price)
	}
	if patch.Category != nil {
		b.add("category", *patch.Category)
	}

	if !b.empty() {
		query, args := b.build("products", id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to update product: %w", err)
		}
		if err := expectOneRow(res, "product"); err != nil {
			return nil, err
		}
	}
	return s.GetProduct(ctx, id)
}

// DeleteProduct 删除商品；仍被订单引用时返回 ErrInUse
func (s *SQLDatabase) DeleteProduct(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx querier) error {
		return deleteUnreferenced(ctx, tx, "products", "product", "product_id", id)
	})
}
