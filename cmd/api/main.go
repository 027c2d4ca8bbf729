package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"filedrop/internal/config"
	"filedrop/internal/database"
	"filedrop/internal/domain/auth"
	"filedrop/internal/domain/upload"
	"filedrop/internal/middleware"
	jwtsvc "filedrop/internal/pkg/jwt"
	"filedrop/internal/pkg/logger"
	"filedrop/internal/pkg/response"
	"filedrop/internal/repository"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		logger.Log.Fatalf("config: %v", err)
	}
	if err := logger.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
		logger.Log.Fatalf("logger: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatalf("database: %v", err)
	}
	if err := repository.Migrate(db); err != nil {
		logger.Log.Fatalf("migrate: %v", err)
	}

	storage, err := upload.NewDiskStorage(cfg.ResourcesRoot)
	if err != nil {
		logger.Log.Fatalf("storage: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)
	verifier := auth.NewVerifier(j)

	uploadService := upload.NewService(storage, userRepo)
	uploadHandler := upload.NewHandler(uploadService, upload.Limits{
		MaxBodyBytes: cfg.MaxBodyBytes,
		MaxFileBytes: cfg.MaxFileBytes,
		MaxFiles:     cfg.MaxFiles,
	}, cfg.PublicBaseURL)

	if cfg.IsProdLike() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.ErrorLogger(), middleware.RequestLogger(), middleware.CORS(cfg.CORSAllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})
	upload.RegisterRoutes(r, uploadHandler, middleware.JWTAuth(verifier), middleware.Deadline(cfg.UploadTimeout))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.WithField("addr", cfg.HTTPAddr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalf("listen: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorf("shutdown: %v", err)
	}
	logger.Log.Info("server stopped")
}
