package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// NewPostgresDatabase 创建PostgreSQL数据库实例
func NewPostgresDatabase(config DatabaseConfig) (*SQLDatabase, error) {
	log := config.logger()

	// 尝试多种连接策略来解决Serverless环境的连接问题
	// Sanitize DSN to avoid stray CR/LF from env values
	dsn := strings.TrimSpace(config.PostgresDSN)
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}
	strategies := []string{
		addConnectionParams(dsn, "connect_timeout=10"),
		addConnectionParams(dsn, "sslmode=require&connect_timeout=10"),
		dsn, // 最后尝试原始DSN
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	var lastErr error
	for i, strategy := range strategies {
		entry := log.WithField("strategy", i+1)
		entry.Debug("Trying PostgreSQL connection strategy")

		db, err := sql.Open(Postgres.Driver, strategy)
		if err != nil {
			entry.WithError(err).Warn("Connection strategy failed to open")
			lastErr = err
			continue
		}

		// 测试连接
		if err := db.PingContext(ctx); err != nil {
			entry.WithError(err).Warn("Connection strategy failed to ping")
			db.Close()
			lastErr = err
			continue
		}

		tunePoolParams(db)
		entry.Info("PostgreSQL connection established")

		store, err := newSQLDatabase(ctx, db, Postgres, config)
		if err != nil {
			db.Close()
			return nil, err
		}
		return store, nil
	}

	// 所有策略都失败了
	return nil, fmt.Errorf("failed to connect to PostgreSQL with all strategies: %w", lastErr)
}

// addConnectionParams 添加连接参数到DSN
// key=value 形式的 DSN 用空格拼接，URL 形式用 ?/&
func addConnectionParams(dsn, params string) string {
	if params == "" {
		return dsn
	}

	if !strings.Contains(dsn, "://") && strings.Contains(dsn, "=") {
		return dsn + " " + strings.ReplaceAll(params, "&", " ")
	}

	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}

	return dsn + separator + params
}

// tunePoolParams 调整应用侧连接池参数，适合无服务器环境
func tunePoolParams(db *sql.DB) {
	if db == nil {
		return
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)
}
