package database

import (
	"context"
	"fmt"

	"modular-shop-backend/pkg/models"
)

const customerColumns = `id, name, email, registered_date`

func scanCustomer(row rowScanner) (*models.Customer, error) {
	var c models.Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.RegisteredDate); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCustomers 列出全部客户
func (s *SQLDatabase) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	customers := []models.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}

// GetCustomer 根据ID获取客户
func (s *SQLDatabase) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	c, err := scanCustomer(s.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "customer")
	}
	return c, nil
}

// CreateCustomer 创建客户，回填ID
func (s *SQLDatabase) CreateCustomer(ctx context.Context, c *models.Customer) error {
	c.RegisteredDate = c.RegisteredDate.UTC()
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO customers (name, email, registered_date) VALUES ($1, $2, $3) RETURNING id`,
		c.Name, c.Email, c.RegisteredDate).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

// UpdateCustomer 部分更新客户
func (s *SQLDatabase) UpdateCustomer(ctx context.Context, id int64, patch models.CustomerPatch) (*models.Customer, error) {
	var b updateBuilder
	if patch.Name != nil {
		b.add("name", *patch.Name)
	}
	if patch.Email != nil {
		b.add("email", *patch.Email)
	}
	if patch.RegisteredDate != nil {
		b.add("registered_date", patch.RegisteredDate.UTC())
	}

	if !b.empty() {
		query, args := b.build("customers", id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to update customer: %w", err)
		}
		if err := expectOneRow(res, "customer"); err != nil {
			return nil, err
		}
	}
	return s.GetCustomer(ctx, id)
}

// DeleteCustomer 删除客户；仍有订单时返回 ErrInUse
func (s *SQLDatabase) DeleteCustomer(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx querier) error {
		return deleteUnreferenced(ctx, tx, "customers", "customer", "customer_id", id)
	})
}

// deleteUnreferenced deletes table row id unless an order points at it through column.
func deleteUnreferenced(ctx context.Context, tx querier, table, what, column string, id int64) error {
	var refs int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE `+column+` = $1`, id).Scan(&refs); err != nil {
		return fmt.Errorf("failed to check %s references: %w", what, err)
	}
	if refs > 0 {
		return fmt.Errorf("%s %d has %d orders: %w", what, id, refs, ErrInUse)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%s %d: %w", what, id, ErrInUse)
		}
		return fmt.Errorf("failed to delete %s: %w", what, err)
	}
	return expectOneRow(res, what)
}
