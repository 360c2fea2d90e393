package router

import (
	"fmt"
	"net/http"
	"time"

	"modular-shop-backend/pkg/config"
	"modular-shop-backend/pkg/database"
	"modular-shop-backend/pkg/handlers"
	customMiddleware "modular-shop-backend/pkg/middleware"
	"modular-shop-backend/pkg/models"
	"modular-shop-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// New 创建Chi路由器并注册全部中间件与路由
// 每次调用使用独立的 Prometheus registry，便于在同一进程中多次构建
func New(cfg *config.Config, db database.DatabaseInterface, log *logrus.Logger) *chi.Mux {
	tokens := NewTokenService(cfg)
	metrics := customMiddleware.NewMetrics(prometheus.NewRegistry())

	router := chi.NewRouter()
	setupMiddleware(router, cfg, tokens, metrics, log)
	setupRoutes(router, cfg, db, tokens, metrics, log)
	return router
}

// NewTokenService 根据配置创建令牌服务
func NewTokenService(cfg *config.Config) *utils.JWTService {
	lifetime := time.Duration(cfg.JWTExpirationMinutes) * time.Minute
	return utils.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, lifetime)
}

// setupMiddleware 设置全局中间件
func setupMiddleware(router *chi.Mux, cfg *config.Config, tokens *utils.JWTService, metrics *customMiddleware.Metrics, log *logrus.Logger) {
	// 基础中间件
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	// Normalize path and restore scheme/host before logging and routing
	router.Use(customMiddleware.Normalize())
	// 请求日志需要知道调用者，所以可选认证放在 Logger 之前
	router.Use(customMiddleware.OptionalAuthMiddleware(tokens))
	router.Use(customMiddleware.Logger(log))
	router.Use(customMiddleware.Recovery(log, cfg.Debug || cfg.IsDevelopment()))
	router.Use(metrics.Middleware)

	// CORS中间件
	router.Use(customMiddleware.CORS(cfg))

	// 超时中间件（Vercel函数有时间限制）
	router.Use(middleware.Timeout(25 * time.Second))

	// 压缩中间件
	router.Use(middleware.Compress(5))

	// 开发环境额外中间件
	if cfg.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

// setupRoutes 设置所有API路由
func setupRoutes(router *chi.Mux, cfg *config.Config, db database.DatabaseInterface, tokens *utils.JWTService, metrics *customMiddleware.Metrics, log *logrus.Logger) {
	// 创建处理器
	authHandler := handlers.NewAuthHandler(cfg, db, tokens, log)
	productsHandler := handlers.NewProductsHandler(cfg, db, log)
	customersHandler := handlers.NewCustomersHandler(cfg, db, log)
	ordersHandler := handlers.NewOrdersHandler(cfg, db, log)
	usersHandler := handlers.NewUsersHandler(cfg, db, authHandler, log)
	groupsHandler := handlers.NewGroupsHandler(cfg, db, log)

	requireAuth := customMiddleware.AuthMiddleware(tokens)
	adminOnly := customMiddleware.RequireGroups(models.GroupAdministrators)

	// 健康检查端点
	router.Get("/", authHandler.HealthCheck)
	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	// 数据库连接池状态端点（调试用）
	if cfg.IsDevelopment() {
		router.Get("/debug/db-pool", func(w http.ResponseWriter, r *http.Request) {
			utils.WriteSuccessResponse(w, database.GetConnectionStats())
		})
	}

	// API路由组
	router.Route(cfg.APIPrefix, func(r chi.Router) {
		r.Use(customMiddleware.MaxBodySize(customMiddleware.DefaultMaxBodyBytes))
		r.Use(customMiddleware.ContentTypeJSON)

		// 公开路由（不需要认证）
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", productsHandler.List)
			r.Post("/", productsHandler.Create)
			r.Get("/{id}", productsHandler.Get)
			r.Put("/{id}", productsHandler.Update)
			r.Delete("/{id}", productsHandler.Delete)
		})

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", customersHandler.List)
			r.Post("/", customersHandler.Create)
			r.Get("/{id}", customersHandler.Get)
			r.Put("/{id}", customersHandler.Update)
			r.Delete("/{id}", customersHandler.Delete)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordersHandler.List)
			r.Post("/", ordersHandler.Create)
			r.Get("/{id}", ordersHandler.Get)
			r.Put("/{id}", ordersHandler.Update)
			r.Delete("/{id}", ordersHandler.Delete)
		})

		// 用户相关路由（需要认证）
		r.Route("/users", func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/", usersHandler.List)
			r.Get("/{id}", usersHandler.Get)
			r.With(adminOnly).Post("/", usersHandler.Create)
			r.With(customMiddleware.RequireGroups(models.GroupAdministrators, models.GroupManagers)).
				Put("/{id}", usersHandler.Update)
			r.With(adminOnly).Delete("/{id}", usersHandler.Delete)
		})

		// 用户组：读取公开，写入仅限管理员
		r.Route("/usergroups", func(r chi.Router) {
			r.Get("/", groupsHandler.List)
			r.Get("/{id}", groupsHandler.Get)
			r.Get("/{id}/users", groupsHandler.ListMembers)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth, adminOnly)

				r.Post("/", groupsHandler.Create)
				r.Put("/{id}", groupsHandler.Update)
				r.Delete("/{id}", groupsHandler.Delete)
				r.Post("/{id}/users/{userId}", groupsHandler.AddMember)
				r.Delete("/{id}/users/{userId}", groupsHandler.RemoveMember)
			})
		})
	})

	// 404处理
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})

	// 405处理
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponseWithCode(w, http.StatusMethodNotAllowed, utils.CodeMethodNotAllow,
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path), "")
	})
}
