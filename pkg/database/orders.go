package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modular-shop-backend/pkg/models"

	"github.com/shopspring/decimal"
)

const orderViewQuery = `
	SELECT o.id, o.customer_id, o.product_id, o.quantity, o.order_date, o.total_amount,
	       c.name, p.name
	FROM orders o
	JOIN customers c ON c.id = o.customer_id
	JOIN products p ON p.id = o.product_id`

func scanOrderView(row rowScanner) (*models.OrderView, error) {
	var v models.OrderView
	if err := row.Scan(&v.ID, &v.CustomerID, &v.ProductID, &v.Quantity, &v.OrderDate, &v.TotalAmount,
		&v.CustomerName, &v.ProductName); err != nil {
		return nil, err
	}
	return &v, nil
}

// ListOrders 列出订单（含客户名与商品名）
func (s *SQLDatabase) ListOrders(ctx context.Context) ([]models.OrderView, error) {
	rows, err := s.db.QueryContext(ctx, orderViewQuery+` ORDER BY o.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.OrderView{}
	for rows.Next() {
		v, err := scanOrderView(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *v)
	}
	return orders, rows.Err()
}

// GetOrder 根据ID获取订单
func (s *SQLDatabase) GetOrder(ctx context.Context, id int64) (*models.OrderView, error) {
	return getOrder(ctx, s.db, id)
}

func getOrder(ctx context.Context, q querier, id int64) (*models.OrderView, error) {
	v, err := scanOrderView(q.QueryRowContext(ctx, orderViewQuery+` WHERE o.id = $1`, id))
	if err != nil {
		return nil, notFound(err, "order")
	}
	return v, nil
}

// CreateOrder 创建订单：校验客户与商品存在，并按当前单价计算总额
func (s *SQLDatabase) CreateOrder(ctx context.Context, in models.OrderInput) (*models.OrderView, error) {
	if in.OrderDate.IsZero() {
		in.OrderDate = time.Now()
	}

	var created *models.OrderView
	err := s.withTx(ctx, func(tx querier) error {
		if err := customerExists(ctx, tx, in.CustomerID); err != nil {
			return err
		}
		price, err := productPrice(ctx, tx, in.ProductID)
		if err != nil {
			return err
		}

		var id int64
		err = tx.QueryRowContext(ctx,
			`INSERT INTO orders (customer_id, product_id, quantity, order_date, total_amount)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			in.CustomerID, in.ProductID, in.Quantity, in.OrderDate.UTC(), orderTotal(price, in.Quantity)).Scan(&id)
		if err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("order references: %w", ErrInvalidReference)
			}
			return fmt.Errorf("failed to create order: %w", err)
		}

		created, err = getOrder(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateOrder 部分更新订单；数量或商品变化时按商品当前单价重新计算总额
func (s *SQLDatabase) UpdateOrder(ctx context.Context, id int64, patch models.OrderPatch) (*models.OrderView, error) {
	var updated *models.OrderView
	err := s.withTx(ctx, func(tx querier) error {
		current, err := getOrder(ctx, tx, id)
		if err != nil {
			return err
		}

		var b updateBuilder
		if patch.CustomerID != nil && *patch.CustomerID != current.CustomerID {
			if err := customerExists(ctx, tx, *patch.CustomerID); err != nil {
				return err
			}
			b.add("customer_id", *patch.CustomerID)
		}

		productID, quantity := current.ProductID, current.Quantity
		if patch.ProductID != nil {
			productID = *patch.ProductID
			b.add("product_id", productID)
		}
		if patch.Quantity != nil {
			quantity = *patch.Quantity
			b.add("quantity", quantity)
		}
		if patch.Recomputes() {
			price, err := productPrice(ctx, tx, productID)
			if err != nil {
				return err
			}
			b.add("total_amount", orderTotal(price, quantity))
		}
		if patch.OrderDate != nil {
			b.add("order_date", patch.OrderDate.UTC())
		}

		if !b.empty() {
			query, args := b.build("orders", id)
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				if isForeignKeyViolation(err) {
					return fmt.Errorf("order references: %w", ErrInvalidReference)
				}
				return fmt.Errorf("failed to update order: %w", err)
			}
		}

		updated, err = getOrder(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteOrder 删除订单
func (s *SQLDatabase) DeleteOrder(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return expectOneRow(res, "order")
}

// CountOrders 订单总数
func (s *SQLDatabase) CountOrders(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM orders`)
}

func customerExists(ctx context.Context, q querier, id int64) error {
	var found int64
	err := q.QueryRowContext(ctx, `SELECT id FROM customers WHERE id = $1`, id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("customer %d: %w", id, ErrInvalidReference)
	}
	if err != nil {
		return fmt.Errorf("failed to check customer: %w", err)
	}
	return nil
}

func productPrice(ctx context.Context, q querier, id int64) (decimal.Decimal, error) {
	var price decimal.Decimal
	err := q.QueryRowContext(ctx, `SELECT price FROM products WHERE id = $1`, id).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("product %d: %w", id, ErrInvalidReference)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read product price: %w", err)
	}
	return price, nil
}
