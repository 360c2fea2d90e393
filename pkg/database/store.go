package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// SQLDatabase implements DatabaseInterface over database/sql. The same
// statements run on SQLite and PostgreSQL; only DDL goes through the Dialect.
type SQLDatabase struct {
	db      *sql.DB
	dialect Dialect
	log     logrus.FieldLogger
}

var _ DatabaseInterface = (*SQLDatabase)(nil)

// newSQLDatabase applies the schema and wraps db.
func newSQLDatabase(ctx context.Context, db *sql.DB, d Dialect, config DatabaseConfig) (*SQLDatabase, error) {
	log := config.logger().WithField("driver", d.Name)
	schema := DefaultSchema(config.DefaultGroup)
	if err := schema.Apply(ctx, db, d, config.Seed, log); err != nil {
		return nil, err
	}
	return &SQLDatabase{db: db, dialect: d, log: log}, nil
}

// DB exposes the underlying handle (setup script, tests).
func (s *SQLDatabase) DB() *sql.DB {
	return s.db
}

// Dialect 返回当前方言
func (s *SQLDatabase) Dialect() Dialect {
	return s.dialect
}

// HealthCheck 健康检查
func (s *SQLDatabase) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close 关闭连接
func (s *SQLDatabase) Close() error {
	return s.db.Close()
}

// CountTable returns the row count of a registered table.
func (s *SQLDatabase) CountTable(ctx context.Context, table string) (int, error) {
	if !isRegisteredTable(table) {
		return 0, fmt.Errorf("unknown table %q", table)
	}
	return s.count(ctx, "SELECT COUNT(*) FROM "+table)
}

func (s *SQLDatabase) count(ctx context.Context, query string, args ...interface{}) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (s *SQLDatabase) withTx(ctx context.Context, fn func(tx querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func isRegisteredTable(name string) bool {
	for _, t := range DefaultSchema("").Tables() {
		if t == name {
			return true
		}
	}
	return false
}

// updateBuilder builds "SET col=$1, col=$2 ... WHERE id=$N" for partial updates.
type updateBuilder struct {
	sets []string
	args []interface{}
}

func (b *updateBuilder) add(col string, val interface{}) {
	b.args = append(b.args, val)
	b.sets = append(b.sets, fmt.Sprintf("%s = $%d", col, len(b.args)))
}

func (b *updateBuilder) empty() bool {
	return len(b.sets) == 0
}

func (b *updateBuilder) build(table string, id int64) (string, []interface{}) {
	args := append(b.args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d", table, strings.Join(b.sets, ", "), len(args))
	return query, args
}

// isUniqueViolation 唯一约束冲突（SQLite 与 PostgreSQL）
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// isForeignKeyViolation 外键约束冲突
func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	return false
}

// notFound maps sql.ErrNoRows to ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

func expectOneRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
