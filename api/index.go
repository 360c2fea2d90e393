package handler

import (
	"net/http"
	"sync"

	"modular-shop-backend/pkg/config"
	"modular-shop-backend/pkg/database"
	"modular-shop-backend/pkg/logging"
	"modular-shop-backend/pkg/router"
	"modular-shop-backend/pkg/utils"
)

// 冷启动时构建一次，热启动复用
var (
	appMu      sync.Mutex
	appHandler http.Handler
)

// Handler 是Vercel函数的入口点
// 这个函数实现了"单体路由模式"，将所有API端点集中在一个Chi路由器中管理
func Handler(w http.ResponseWriter, r *http.Request) {
	h, err := getHandler()
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Configuration error: "+err.Error())
		return
	}

	// 将请求传递给Chi路由器处理
	h.ServeHTTP(w, r)
}

// getHandler 构建失败时不缓存，下一次请求会重试
func getHandler() (http.Handler, error) {
	appMu.Lock()
	defer appMu.Unlock()

	if appHandler != nil {
		return appHandler, nil
	}

	// 加载配置
	cfg := config.GetCached()
	log := logging.New(cfg)

	// 验证配置
	generated, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	if generated {
		log.Warn("JWT_SECRET not set, using a random secret for this instance; tokens will not survive a cold start")
	}

	// 获取缓存的数据库连接（自动适配Vercel环境）
	db, err := database.GetDatabase(database.ConfigFromApp(cfg, log))
	if err != nil {
		log.WithError(err).Error("Failed to open database")
		return nil, err
	}

	appHandler = router.New(cfg, db, log)
	return appHandler, nil
}
