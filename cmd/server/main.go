// @title Beneficiary Dedup API
// @version 1.0
// @description Поиск дублей и аудит списков получателей помощи с арабскими именами.

// @BasePath /
// @schemes http https

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"dedupserver/internal/api/routes"
	"dedupserver/internal/config"
	"dedupserver/internal/container"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logger, closeLog := config.SetupLogger(cfg.LogFile, level)
	defer closeLog()
	slog.SetDefault(logger)

	if level > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.Info("Starting dedup server", "port", cfg.Port, "rules_db", cfg.RulesDatabasePath)

	c, err := container.NewContainer(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize container", "error", err)
		os.Exit(1)
	}

	router, err := routes.NewRouter(c)
	if err != nil {
		logger.Error("Failed to create router", "error", err)
		os.Exit(1)
	}
	router.RegisterAllRoutes()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c.StartMaintenance(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
		// WriteTimeout не задан: поток событий запуска живет дольше любого таймаута
		IdleTimeout: 120 * time.Second,
		// по сигналу открытые потоки событий закрываются, иначе Shutdown их ждет
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error("HTTP server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	if err := c.Close(shutdownCtx); err != nil {
		logger.Error("Container shutdown failed", "error", err)
	}

	logger.Info("Server stopped")
}
