package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CUknot/grammable/config"
	"github.com/CUknot/grammable/database"
	"github.com/CUknot/grammable/docs"
	"github.com/CUknot/grammable/routes"
	"github.com/CUknot/grammable/sessions"
	"github.com/CUknot/grammable/storage"
	"github.com/CUknot/grammable/websocket"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// @title           Grammable API
// @version         1.0
// @description     API Server for Grammable
// @host            localhost:8080
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	config.SetupLogger(cfg.LogLevel, cfg.GinMode == gin.ReleaseMode)
	gin.SetMode(cfg.GinMode)

	// Initialize database
	db, err := database.Connect(cfg)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		logrus.Fatalf("Failed to migrate database: %v", err)
	}

	store, err := storage.NewDisk(cfg.UploadDir, cfg.MaxUploadBytes)
	if err != nil {
		logrus.Fatalf("Failed to prepare upload directory: %v", err)
	}

	var revoker sessions.Revoker = sessions.NewMemoryRevoker()
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := client.Ping(ctx).Err()
		cancel()
		if err != nil {
			logrus.Fatalf("Failed to connect to redis at %s: %v", cfg.RedisAddr, err)
		}
		defer client.Close()
		revoker = sessions.NewRedisRevoker(client)
		logrus.WithField("addr", cfg.RedisAddr).Info("Using redis for session revocation")
	}

	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	// Set up Swagger info
	docs.SwaggerInfo.Host = "localhost:" + cfg.Port

	router, err := routes.NewRouter(routes.Deps{
		DB:        db,
		Store:     store,
		UploadDir: cfg.UploadDir,
		Secret:    cfg.JWTSecret,
		Revoker:   revoker,
		Hub:       hub,
	})
	if err != nil {
		logrus.Fatalf("Failed to build router: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.Handler(router, cfg.MaxUploadBytes),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logrus.Infof("Server running on port %s", cfg.Port)
		logrus.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server shutdown failed")
	}
}
