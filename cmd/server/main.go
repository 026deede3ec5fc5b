// Package main runs the portfolio live server: websocket presence and chat
// plus a small status page, with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rajatjasiwal2001/portfolio/config"
	"github.com/rajatjasiwal2001/portfolio/internal/analytics"
	"github.com/rajatjasiwal2001/portfolio/internal/middleware"
	"github.com/rajatjasiwal2001/portfolio/internal/realtime"
	"github.com/rajatjasiwal2001/portfolio/pkg/response"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger level comes from config, so fall back to a default one here.
		newLogger("info").Fatal("load config", zap.Error(err))
	}

	logger := newLogger(cfg.Log.Level)
	defer logger.Sync()

	hub := realtime.NewHub(logger.Named("hub"), cfg.Realtime)
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go hub.Run(hubCtx)

	analyticsHandler := analytics.NewHandler(hub, "ws://"+cfg.Server.Addr()+"/ws", logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	analyticsHandler.RegisterRoutes(router)
	router.GET("/ws", realtime.ServeWs(hub, logger, cfg.Server.WSAllowedOrigins))
	router.NoRoute(response.NotFound)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	// Close every session first, then stop accepting connections.
	hubCancel()
	if err := hub.Wait(shutdownCtx); err != nil {
		logger.Warn("hub shutdown", zap.Error(err))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger(level string) *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		config.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, _ := config.Build()
	return logger
}
