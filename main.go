package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"library-backend/docs"
	"library-backend/internal/library/books"
	"library-backend/internal/library/borrowing"
	"library-backend/internal/platform/auth"
	"library-backend/internal/platform/db"
	"library-backend/internal/platform/logger"
)

// @title                      Library Borrowing API
// @version                    1.0
// @BasePath                   /api/v1
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
func main() {
	cfgPath := flag.String("config", db.DefaultConfigPath, "path to config yaml")
	flag.Parse()

	// 設定読み込み
	cfg, err := db.LoadConfig(*cfgPath)
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Mode)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()
	log.Info("starting", zap.String("mode", cfg.Mode), zap.String("version", cfg.Version))

	secret := []byte(cfg.Auth.JWTSecret)
	if len(secret) == 0 {
		// dev のみ（release は設定検証で弾く）
		log.Warn("auth.jwt_secret is empty, using an insecure development secret")
		secret = []byte("dev-insecure-secret")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	conn, err := db.Connect(ctx, cfg.DB)
	cancel()
	if err != nil {
		log.Fatal("db connect failed", zap.Error(err))
	}
	defer conn.Close()
	log.Info("connected to DB", zap.String("dbname", cfg.DB.DBName))

	// services
	runner := db.NewRunner(conn, cfg.Borrowing.TxRetries, log)
	accounts := auth.NewStore(conn)
	bookStore := books.NewStore(conn)
	authSvc := auth.NewService(accounts, secret, cfg.Auth.TokenTTL)
	bookSvc := books.NewService(bookStore, log)
	borrowSvc := borrowing.NewService(
		runner,
		borrowing.NewStore(conn),
		bookStore,
		accounts,
		borrowing.Options{
			MaxBooksPerRequest:  cfg.Borrowing.MaxBooksPerRequest,
			MonthlyRequestLimit: cfg.Borrowing.MonthlyRequestLimit,
		},
		log,
	)

	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(logger.RequestID(), logger.AccessLog(log), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if cfg.Mode == "dev" {
		// CORS（開発中のみ必要）
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", logger.HeaderRequestID},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition", logger.HeaderRequestID},
			AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := conn.PingContext(pingCtx); err != nil {
			_ = c.Error(err)
			c.String(http.StatusServiceUnavailable, "db unavailable")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	if cfg.Version != "" {
		docs.SwaggerInfo.Version = cfg.Version
	}
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// /api/v1
	api := r.Group("/api/v1")
	auth.RegisterRoutes(api, authSvc)

	protected := api.Group("", auth.RequireAuth(secret))
	staff := auth.RequireRole(auth.RoleSuperUser)
	books.RegisterRoutes(protected, bookSvc, staff)
	borrowing.RegisterRoutes(protected, borrowSvc, staff)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		var err error
		if cfg.Server.TLS() {
			log.Info("listening (TLS)", zap.String("addr", srv.Addr))
			err = srv.ListenAndServeTLS(cfg.Server.Cert, cfg.Server.Key)
		} else {
			log.Info("listening", zap.String("addr", srv.Addr))
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server stopped", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("shutting down...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", zap.Error(err))
	}
}
