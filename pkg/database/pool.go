package database

import (
	"context"
	"sync"
	"time"
)

// DatabasePool 进程级数据库实例缓存（Serverless 热启动复用）
type DatabasePool struct {
	instance DatabaseInterface
	config   DatabaseConfig
	mu       sync.RWMutex
	lastUsed time.Time
}

var (
	globalPool *DatabasePool
	poolMutex  sync.Mutex

	// 连接超过该时长未使用则重建
	poolExpiry = 30 * time.Minute
)

// GetDatabase 获取数据库连接（单例模式 + 连接池）
func GetDatabase(config DatabaseConfig) (DatabaseInterface, error) {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	log := config.logger()

	// 检查是否需要创建新的连接池
	if globalPool == nil || shouldRecreateConnection(globalPool, config) {
		log.Info("Creating new database connection pool")

		// 关闭旧连接（如果存在）
		if globalPool != nil && globalPool.instance != nil {
			_ = globalPool.instance.Close()
			globalPool = nil
		}

		// 创建新连接
		instance, err := NewDatabase(config)
		if err != nil {
			return nil, err
		}
		globalPool = &DatabasePool{
			instance: instance,
			config:   config,
			lastUsed: time.Now(),
		}
		return instance, nil
	}

	// 更新最后使用时间
	globalPool.mu.Lock()
	globalPool.lastUsed = time.Now()
	globalPool.mu.Unlock()

	log.Debug("Reusing existing database connection")
	return globalPool.instance, nil
}

// shouldRecreateConnection 判断是否需要重新创建连接
func shouldRecreateConnection(pool *DatabasePool, newConfig DatabaseConfig) bool {
	if pool == nil || pool.instance == nil {
		return true
	}

	log := newConfig.logger()

	// 检查配置是否发生变化
	if !configEquals(pool.config, newConfig) {
		log.Info("Database configuration changed, recreating connection")
		return true
	}

	// 检查连接是否过期
	pool.mu.RLock()
	expired := time.Since(pool.lastUsed) > poolExpiry
	pool.mu.RUnlock()

	if expired {
		log.Info("Database connection expired, recreating")
		return true
	}

	// 检查连接健康状态
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.instance.HealthCheck(ctx); err != nil {
		log.WithError(err).Warn("Database health check failed, recreating")
		return true
	}

	return false
}

// configEquals 比较两个数据库配置是否相等（不含日志器）
func configEquals(a, b DatabaseConfig) bool {
	return a.Driver == b.Driver &&
		a.SQLitePath == b.SQLitePath &&
		a.PostgresDSN == b.PostgresDSN &&
		a.Seed == b.Seed &&
		a.DefaultGroup == b.DefaultGroup
}

// CloseDatabase 关闭并清除缓存的连接
func CloseDatabase() error {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	if globalPool == nil {
		return nil
	}
	err := globalPool.instance.Close()
	globalPool = nil
	return err
}

// GetConnectionStats 获取连接池统计信息
func GetConnectionStats() map[string]interface{} {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	if globalPool == nil {
		return map[string]interface{}{
			"status":    "no_connection",
			"last_used": nil,
		}
	}

	globalPool.mu.RLock()
	lastUsed := globalPool.lastUsed
	globalPool.mu.RUnlock()

	return map[string]interface{}{
		"status":    "connected",
		"last_used": lastUsed.Format(time.RFC3339),
		"age":       time.Since(lastUsed).String(),
		"config": map[string]interface{}{
			"driver":       globalPool.config.Driver,
			"has_postgres": globalPool.config.PostgresDSN != "",
			"seed":         globalPool.config.Seed,
		},
	}
}
