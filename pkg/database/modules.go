package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modular-shop-backend/pkg/models"
	"modular-shop-backend/pkg/utils"

	"github.com/shopspring/decimal"
)

// RegisterCatalog 注册商品目录模块
func RegisterCatalog(s *Schema) {
	s.Register(Module{
		Name: "catalog",
		Tables: []Table{{
			Name: "products",
			DDL: func(d Dialect) string {
				return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS products (
					id %s,
					name TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					price %s NOT NULL CHECK (price >= 0),
					category TEXT NOT NULL DEFAULT ''
				)`, d.PrimaryKey, d.Money)
			},
		}},
		Seed: seedCatalog,
	})
}

// RegisterCustomers 注册客户模块
func RegisterCustomers(s *Schema) {
	s.Register(Module{
		Name: "customers",
		Tables: []Table{{
			Name: "customers",
			DDL: func(d Dialect) string {
				return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS customers (
					id %s,
					name TEXT NOT NULL,
					email TEXT NOT NULL,
					registered_date %s NOT NULL
				)`, d.PrimaryKey, d.Timestamp)
			},
		}},
		Seed: seedCustomers,
	})
}

// RegisterSales 注册订单模块（依赖 catalog 与 customers）
func RegisterSales(s *Schema) {
	s.Register(Module{
		Name: "sales",
		Tables: []Table{{
			Name: "orders",
			DDL: func(d Dialect) string {
				return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS orders (
					id %s,
					customer_id BIGINT NOT NULL REFERENCES customers(id),
					product_id BIGINT NOT NULL REFERENCES products(id),
					quantity INTEGER NOT NULL CHECK (quantity > 0),
					order_date %s NOT NULL,
					total_amount %s NOT NULL
				)`, d.PrimaryKey, d.Timestamp, d.Money)
			},
		}},
		Seed: seedSales,
	})
}

// RegisterIdentity 注册用户、用户组与成员关系；defaultGroup 每次启动都会确保存在
func RegisterIdentity(s *Schema, defaultGroup string) {
	s.Register(Module{
		Name: "identity",
		Tables: []Table{
			{
				Name: "users",
				DDL: func(d Dialect) string {
					return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS users (
						id %s,
						username TEXT NOT NULL UNIQUE,
						email TEXT NOT NULL UNIQUE,
						password_hash TEXT NOT NULL,
						first_name TEXT NOT NULL DEFAULT '',
						last_name TEXT NOT NULL DEFAULT '',
						is_active %s NOT NULL DEFAULT TRUE,
						created_at %s NOT NULL,
						last_login_at %s NULL
					)`, d.PrimaryKey, d.Boolean, d.Timestamp, d.Timestamp)
				},
			},
			{
				Name: "usergroups",
				DDL: func(d Dialect) string {
					return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS usergroups (
						id %s,
						name TEXT NOT NULL UNIQUE,
						description TEXT NOT NULL DEFAULT '',
						created_at %s NOT NULL
					)`, d.PrimaryKey, d.Timestamp)
				},
			},
			{
				Name: "memberships",
				DDL: func(d Dialect) string {
					return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS memberships (
						user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
						group_id BIGINT NOT NULL REFERENCES usergroups(id) ON DELETE CASCADE,
						joined_at %s NOT NULL,
						PRIMARY KEY (user_id, group_id)
					)`, d.Timestamp)
				},
			},
		},
		Bootstrap: func(ctx context.Context, tx *sql.Tx) error {
			if defaultGroup == "" {
				return nil
			}
			_, err := ensureGroup(ctx, tx, defaultGroup, "Default group for self-registered users")
			return err
		},
		Seed: seedIdentity,
	})
}

func seedCatalog(ctx context.Context, tx *sql.Tx) error {
	products := []models.Product{
		{Name: "Wireless Mouse", Description: "2.4GHz ergonomic wireless mouse", Price: decimal.RequireFromString("29.99"), Category: "Electronics"},
		{Name: "Mechanical Keyboard", Description: "Tenkeyless keyboard with brown switches", Price: decimal.RequireFromString("89.99"), Category: "Electronics"},
		{Name: "The Go Programming Language", Description: "Donovan and Kernighan", Price: decimal.RequireFromString("39.50"), Category: "Books"},
		{Name: "Designing Data-Intensive Applications", Description: "Kleppmann", Price: decimal.RequireFromString("45.00"), Category: "Books"},
		{Name: "Ceramic Coffee Mug", Description: "350ml stoneware mug", Price: decimal.RequireFromString("12.50"), Category: "Home"},
	}
	for _, p := range products {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO products (name, description, price, category) VALUES ($1, $2, $3, $4)`,
			p.Name, p.Description, p.Price, p.Category); err != nil {
			return fmt.Errorf("insert product %s: %w", p.Name, err)
		}
	}
	return nil
}

func seedCustomers(ctx context.Context, tx *sql.Tx) error {
	now := time.Now().UTC()
	customers := []models.Customer{
		{Name: "Alice Johnson", Email: "alice@example.com", RegisteredDate: now.AddDate(0, -3, 0)},
		{Name: "Bob Smith", Email: "bob@example.com", RegisteredDate: now.AddDate(0, -1, 0)},
		{Name: "Carol Diaz", Email: "carol@example.com", RegisteredDate: now},
	}
	for _, c := range customers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO customers (name, email, registered_date) VALUES ($1, $2, $3)`,
			c.Name, c.Email, c.RegisteredDate); err != nil {
			return fmt.Errorf("insert customer %s: %w", c.Name, err)
		}
	}
	return nil
}

func seedSales(ctx context.Context, tx *sql.Tx) error {
	orders := []struct {
		customer string
		product  string
		quantity int
	}{
		{"alice@example.com", "Wireless Mouse", 2},
		{"bob@example.com", "The Go Programming Language", 1},
	}
	now := time.Now().UTC()
	for _, o := range orders {
		var customerID, productID int64
		var price decimal.Decimal
		if err := tx.QueryRowContext(ctx, `SELECT id FROM customers WHERE email = $1`, o.customer).Scan(&customerID); err != nil {
			return fmt.Errorf("lookup customer %s: %w", o.customer, err)
		}
		if err := tx.QueryRowContext(ctx, `SELECT id, price FROM products WHERE name = $1`, o.product).Scan(&productID, &price); err != nil {
			return fmt.Errorf("lookup product %s: %w", o.product, err)
		}
		total := orderTotal(price, o.quantity)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO orders (customer_id, product_id, quantity, order_date, total_amount) VALUES ($1, $2, $3, $4, $5)`,
			customerID, productID, o.quantity, now, total); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
	}
	return nil
}

// demoUser 演示账号
type demoUser struct {
	username, email, password, first, last, group string
}

var demoUsers = []demoUser{
	{"admin", "admin@example.com", "Admin123!", "Site", "Admin", models.GroupAdministrators},
	{"manager", "manager@example.com", "Manager123!", "Store", "Manager", models.GroupManagers},
	{"user", "user@example.com", "User123!", "Regular", "User", models.GroupGeneralUsers},
}

func seedIdentity(ctx context.Context, tx *sql.Tx) error {
	groups := map[string]string{
		models.GroupAdministrators: "Full access to every resource",
		models.GroupManagers:       "May update user accounts",
		models.GroupGeneralUsers:   "Default group for self-registered users",
	}
	groupIDs := make(map[string]int64, len(groups))
	for _, name := range []string{models.GroupAdministrators, models.GroupManagers, models.GroupGeneralUsers} {
		id, err := ensureGroup(ctx, tx, name, groups[name])
		if err != nil {
			return err
		}
		groupIDs[name] = id
	}

	now := time.Now().UTC()
	for _, u := range demoUsers {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE username = $1`, u.username).Scan(&exists); err != nil {
			return err
		}
		if exists > 0 {
			continue
		}

		hash, err := utils.HashPassword(u.password)
		if err != nil {
			return err
		}
		var userID int64
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO users (username, email, password_hash, first_name, last_name, is_active, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			u.username, u.email, hash, u.first, u.last, true, now).Scan(&userID); err != nil {
			return fmt.Errorf("insert user %s: %w", u.username, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO memberships (user_id, group_id, joined_at) VALUES ($1, $2, $3)`,
			userID, groupIDs[u.group], now); err != nil {
			return fmt.Errorf("enroll user %s: %w", u.username, err)
		}
	}
	return nil
}

// ensureGroup returns the id of the named group, creating it when absent.
func ensureGroup(ctx context.Context, tx *sql.Tx, name, description string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM usergroups WHERE name = $1`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("lookup group %s: %w", name, err)
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO usergroups (name, description, created_at) VALUES ($1, $2, $3) RETURNING id`,
		name, description, time.Now().UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert group %s: %w", name, err)
	}
	return id, nil
}

// orderTotal 订单金额 = 单价 × 数量，保留两位小数
func orderTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}
