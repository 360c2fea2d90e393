package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// NewSQLiteDatabase 打开（或创建）SQLite 数据库文件并应用 schema
// SQLitePath 为 ":memory:" 时使用内存数据库
func NewSQLiteDatabase(config DatabaseConfig) (*SQLDatabase, error) {
	path := strings.TrimSpace(config.SQLitePath)
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	db, err := sql.Open(SQLite.Driver, sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// 单连接：内存库每个连接都是独立的数据库，文件库避免写锁竞争
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	store, err := newSQLDatabase(ctx, db, SQLite, config)
	if err != nil {
		db.Close()
		return nil, err
	}
	config.logger().WithField("path", path).Debug("SQLite database ready")
	return store, nil
}

// sqliteDSN 附加外键与忙等待参数（驱动会在打开前去掉 ? 之后的部分）
func sqliteDSN(path string) string {
	return addConnectionParams(path, "_foreign_keys=on&_busy_timeout=5000")
}
