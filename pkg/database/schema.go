package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Table is one entity owned by a module.
type Table struct {
	Name string
	DDL  func(d Dialect) string
}

// Module groups the tables and seed rows one domain contributes to the shared
// database. Bootstrap runs on every Apply and must be idempotent; Seed runs once.
type Module struct {
	Name      string
	Tables    []Table
	Bootstrap func(ctx context.Context, tx *sql.Tx) error
	Seed      func(ctx context.Context, tx *sql.Tx) error
}

// Schema is the ordered set of registered modules.
type Schema struct {
	modules []Module
}

// Register appends a module. Modules are applied in registration order, so a
// module may reference tables of modules registered before it.
func (s *Schema) Register(m Module) {
	s.modules = append(s.modules, m)
}

// Modules returns the registered module names in order.
func (s *Schema) Modules() []string {
	names := make([]string, 0, len(s.modules))
	for _, m := range s.modules {
		names = append(names, m.Name)
	}
	return names
}

// Tables returns every table name in registration order.
func (s *Schema) Tables() []string {
	var names []string
	for _, m := range s.modules {
		for _, t := range m.Tables {
			names = append(names, t.Name)
		}
	}
	return names
}

// DefaultSchema 按固定顺序注册所有领域模块
func DefaultSchema(defaultGroup string) *Schema {
	s := &Schema{}
	RegisterCatalog(s)
	RegisterCustomers(s)
	RegisterSales(s)
	RegisterIdentity(s, defaultGroup)
	return s
}

// Apply creates all tables and, when seed is set, inserts each module's seed
// rows once; seeded modules are recorded in schema_modules. Running it again
// is a no-op.
func (s *Schema) Apply(ctx context.Context, db *sql.DB, d Dialect, seed bool, log logrus.FieldLogger) error {
	bookkeeping := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS schema_modules (
		name TEXT PRIMARY KEY,
		applied_at %s NOT NULL
	)`, d.Timestamp)
	if _, err := db.ExecContext(ctx, bookkeeping); err != nil {
		return fmt.Errorf("failed to create schema_modules table: %w", err)
	}

	for _, m := range s.modules {
		if err := s.applyModule(ctx, db, d, m, seed, log); err != nil {
			return fmt.Errorf("failed to apply module %s: %w", m.Name, err)
		}
	}
	return nil
}

func (s *Schema) applyModule(ctx context.Context, db *sql.DB, d Dialect, m Module, seed bool, log logrus.FieldLogger) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, t := range m.Tables {
		if _, err := tx.ExecContext(ctx, t.DDL(d)); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
	}

	if m.Bootstrap != nil {
		if err := m.Bootstrap(ctx, tx); err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}
	}

	var applied int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_modules WHERE name = $1`, m.Name).Scan(&applied); err != nil {
		return err
	}

	switch {
	case applied > 0:
		log.WithField("module", m.Name).Debug("Skipping already seeded module")
	case seed:
		if m.Seed != nil {
			log.WithField("module", m.Name).Info("Seeding module")
			if err := m.Seed(ctx, tx); err != nil {
				return fmt.Errorf("seed: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_modules (name, applied_at) VALUES ($1, $2)`, m.Name, time.Now().UTC()); err != nil {
			return fmt.Errorf("record module: %w", err)
		}
	}

	return tx.Commit()
}
