package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"modular-shop-backend/pkg/config"
	"modular-shop-backend/pkg/database"
	"modular-shop-backend/pkg/logging"
)

// 用法: go run ./scripts [postgres-dsn]
// 使用与服务器相同的配置建表并写入种子数据，然后输出每张表的记录数
func main() {
	cfg := config.LoadConfig()
	log := logging.New(cfg)

	// 命令行参数优先于环境变量
	if len(os.Args) > 1 {
		cfg.DBDriver = "postgres"
		cfg.PostgresDSN = os.Args[1]
	}

	if cfg.DBDriver == "postgres" {
		fmt.Printf("🔗 Connecting to database: %s\n", maskPassword(cfg.PostgresDSN))
	} else {
		fmt.Printf("🔗 Opening SQLite database: %s\n", cfg.DBPath)
	}

	dbConfig := database.ConfigFromApp(cfg, log)
	dbConfig.Seed = true

	db, err := database.NewDatabase(dbConfig)
	if err != nil {
		log.WithError(err).Fatal("❌ Failed to initialize database")
	}
	defer db.Close()

	fmt.Println("✅ Schema applied and seed data loaded")

	store, ok := db.(*database.SQLDatabase)
	if !ok {
		log.Fatal("❌ Unexpected database implementation")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 验证表是否创建成功
	fmt.Println("🔍 Verifying tables...")
	for _, table := range database.DefaultSchema(cfg.DefaultGroup).Tables() {
		count, err := store.CountTable(ctx, table)
		if err != nil {
			log.WithError(err).Warnf("⚠️  Failed to query table %s", table)
			continue
		}
		fmt.Printf("✅ Table %s: %d records\n", table, count)
	}

	// 测试用户查询
	fmt.Println("🧪 Testing admin lookup...")
	admin, err := db.GetUserByUsername(ctx, "admin")
	if err != nil {
		log.WithError(err).Warn("⚠️  Demo admin not found")
	} else {
		groups, err := db.GroupNamesForUser(ctx, admin.ID)
		if err != nil {
			log.WithError(err).Warn("⚠️  Failed to load admin groups")
		}
		fmt.Printf("✅ Admin found: %s (groups: %s)\n", admin.Email, strings.Join(groups, ", "))
	}

	fmt.Println("🎉 Database setup completed! Run 'go run ./cmd/server' to start the API.")
}

// maskPassword 隐藏连接字符串中的密码
func maskPassword(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.User != nil {
		if _, has := u.User.Password(); has {
			u.User = url.UserPassword(u.User.Username(), "***")
			return u.String()
		}
		return dsn
	}

	// key=value 形式
	fields := strings.Fields(dsn)
	for i, f := range fields {
		if strings.HasPrefix(f, "password=") {
			fields[i] = "password=***"
		}
	}
	return strings.Join(fields, " ")
}
