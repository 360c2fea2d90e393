package middleware

import (
	"net/http"
	"strings"

	"modular-shop-backend/pkg/config"

	"github.com/go-chi/cors"
)

// CORS 创建CORS中间件
func CORS(cfg *config.Config) func(http.Handler) http.Handler {
	corsOptions := cors.Options{
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-Id",
		},
		ExposedHeaders: []string{
			"X-Request-Id",
		},
		MaxAge: 300, // 5分钟
	}

	if len(cfg.AllowedOrigins) == 0 || contains(cfg.AllowedOrigins, "*") {
		// 通配符来源不能与凭据同时使用
		corsOptions.AllowedOrigins = []string{"*"}
		corsOptions.AllowCredentials = false
	} else {
		allowed := cfg.AllowedOrigins
		corsOptions.AllowOriginFunc = func(_ *http.Request, origin string) bool {
			return isOriginAllowed(origin, allowed)
		}
		corsOptions.AllowCredentials = true
	}

	return cors.Handler(corsOptions)
}

// isOriginAllowed 检查来源是否被允许，支持 "https://*.example.com" 前缀通配
func isOriginAllowed(origin string, allowedOrigins []string) bool {
	if origin == "" || len(allowedOrigins) == 0 {
		return false
	}

	if contains(allowedOrigins, "*") || contains(allowedOrigins, origin) {
		return true
	}

	for _, allowed := range allowedOrigins {
		i := strings.Index(allowed, "*")
		if i < 0 {
			continue
		}
		prefix, suffix := allowed[:i], allowed[i+1:]
		if len(origin) >= len(prefix)+len(suffix) &&
			strings.HasPrefix(origin, prefix) && strings.HasSuffix(origin, suffix) {
			return true
		}
	}

	return false
}

// contains 检查切片是否包含指定的字符串
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
