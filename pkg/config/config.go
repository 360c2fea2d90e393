package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"modular-shop-backend/pkg/utils"

	"github.com/joho/godotenv"
)

const (
	// DefaultJWTSecret 占位密钥，生产环境禁止使用
	DefaultJWTSecret = "your-secret-key-change-in-production"

	// MinProductionSecretLength HS256 密钥在生产环境的最小长度（字节）
	MinProductionSecretLength = 32
)

// Config 应用配置结构
type Config struct {
	// 环境配置
	Environment string
	Port        string
	APIPrefix   string

	// 数据库配置
	DBDriver    string // "sqlite" 或 "postgres"
	DBPath      string
	PostgresDSN string
	SeedData    bool

	// JWT配置
	JWTSecret            string
	JWTIssuer            string
	JWTAudience          string
	JWTExpirationMinutes int

	// 身份模块配置
	DefaultGroup string

	// CORS配置
	AllowedOrigins []string

	// 日志与调试配置
	LogLevel string
	Debug    bool
}

// LoadConfig 加载配置（支持本地和Vercel环境）
func LoadConfig() *Config {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	// 按环境加载 .env 文件；已存在的环境变量不会被覆盖
	switch env {
	case "production":
		_ = godotenv.Load(".env.production")
	default:
		_ = godotenv.Load(".env.local")
	}

	config := &Config{
		Environment:          getEnvWithDefault("ENVIRONMENT", "development"),
		Port:                 getEnvWithDefault("PORT", "8080"),
		APIPrefix:            getEnvWithDefault("API_PREFIX", "/api/v1"),
		DBDriver:             strings.ToLower(getEnvWithDefault("DB_DRIVER", "sqlite")),
		DBPath:               getEnvWithDefault("DB_PATH", "./shop.db"),
		SeedData:             getEnvBool("SEED_DATA", true),
		JWTSecret:            strings.TrimSpace(getEnvWithDefault("JWT_SECRET", DefaultJWTSecret)),
		JWTIssuer:            getEnvWithDefault("JWT_ISSUER", "modular-shop-api"),
		JWTAudience:          getEnvWithDefault("JWT_AUDIENCE", "modular-shop-clients"),
		JWTExpirationMinutes: getEnvInt("JWT_EXPIRATION_MINUTES", 60),
		DefaultGroup:         getEnvWithDefault("DEFAULT_GROUP", "General Users"),
		LogLevel:             strings.ToLower(getEnvWithDefault("LOG_LEVEL", "info")),
		Debug:                getEnvBool("DEBUG", false),
	}

	// Trim whitespace to avoid trailing spaces/newlines from env sources
	config.PostgresDSN = strings.TrimSpace(os.Getenv("POSTGRES_DSN"))

	// CORS配置
	allowedOrigins := getEnvWithDefault("ALLOWED_ORIGINS", "*")
	if allowedOrigins == "*" {
		config.AllowedOrigins = []string{"*"}
	} else {
		config.AllowedOrigins = splitCSV(allowedOrigins)
	}

	// 生产环境关闭调试
	if config.Environment == "production" {
		config.Debug = false
	}

	return config
}

// Cached config (initialized once per cold start)
var (
	cachedConfig *Config
	configOnce   sync.Once
)

// GetCached returns the process-wide cached Config.
// On serverless platforms it initializes once per cold start and
// reuses it across warm invocations.
func GetCached() *Config {
	configOnce.Do(func() {
		cachedConfig = LoadConfig()
	})
	return cachedConfig
}

// Validate 验证配置
//
// 开发环境缺少 JWT 密钥时会生成一个随机密钥，返回值 generated 表示是否发生了替换，
// 调用方负责记录警告。
func (c *Config) Validate() (generated bool, err error) {
	if c.Port == "" {
		return false, fmt.Errorf("PORT is required")
	}

	if c.JWTExpirationMinutes <= 0 {
		return false, fmt.Errorf("JWT_EXPIRATION_MINUTES must be positive, got %d", c.JWTExpirationMinutes)
	}
	if strings.TrimSpace(c.JWTIssuer) == "" || strings.TrimSpace(c.JWTAudience) == "" {
		return false, fmt.Errorf("JWT_ISSUER and JWT_AUDIENCE are required")
	}

	// 验证数据库配置
	switch c.DBDriver {
	case "sqlite":
		if c.DBPath == "" {
			return false, fmt.Errorf("DB_PATH is required for the sqlite driver")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return false, fmt.Errorf("POSTGRES_DSN is required for the postgres driver")
		}
	default:
		return false, fmt.Errorf("unsupported DB_DRIVER %q (expected sqlite or postgres)", c.DBDriver)
	}

	if strings.TrimSpace(c.DefaultGroup) == "" {
		return false, fmt.Errorf("DEFAULT_GROUP must not be empty")
	}

	// 验证JWT密钥
	if c.JWTSecret == "" || c.JWTSecret == DefaultJWTSecret {
		if c.IsProduction() {
			return false, fmt.Errorf("JWT_SECRET must be set in production")
		}
		secret, err := utils.GenerateURLToken(48)
		if err != nil {
			return false, fmt.Errorf("failed to generate development JWT secret: %w", err)
		}
		c.JWTSecret = secret
		generated = true
	} else if c.IsProduction() && len(c.JWTSecret) < MinProductionSecretLength {
		return false, fmt.Errorf("JWT_SECRET must be at least %d bytes in production", MinProductionSecretLength)
	}

	return generated, nil
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// 辅助函数

// getEnvWithDefault 获取环境变量，如果不存在则使用默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool 获取布尔类型的环境变量
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvInt 获取整数类型的环境变量；无法解析时返回默认值
func getEnvInt(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
