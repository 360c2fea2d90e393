package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"modular-shop-backend/pkg/config"
	"modular-shop-backend/pkg/database"
	"modular-shop-backend/pkg/logging"
	"modular-shop-backend/pkg/router"

	"github.com/sirupsen/logrus"
)

func main() {
	// 1. 加载配置
	cfg := config.LoadConfig()
	log := logging.New(cfg)

	generated, err := cfg.Validate()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	if generated {
		log.Warn("JWT_SECRET not set, generated a random development secret; tokens are invalidated on restart")
	}

	// 2. 打开数据库（建表 + 种子数据）
	db, err := database.NewDatabase(database.ConfigFromApp(cfg, log))
	if err != nil {
		log.WithError(err).Fatal("Failed to open database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.WithError(err).Warn("Failed to close database")
		}
	}()

	// 3. 启动服务器（优雅关闭）
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(cfg, db, log),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"port":        cfg.Port,
			"environment": cfg.Environment,
			"api_prefix":  cfg.APIPrefix,
			"driver":      cfg.DBDriver,
		}).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serverErr:
		log.WithError(err).Error("Server failed to listen and serve")
		return
	}

	log.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
		return
	}

	log.Info("Server exited gracefully")
}
