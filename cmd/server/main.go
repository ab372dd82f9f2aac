package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/banking/muling-detector/internal/api"
	"github.com/banking/muling-detector/internal/config"
	"github.com/banking/muling-detector/internal/crypto"
	"github.com/banking/muling-detector/internal/events"
	"github.com/banking/muling-detector/internal/repository/elasticsearch"
	"github.com/banking/muling-detector/internal/repository/postgres"
	"github.com/banking/muling-detector/internal/repository/s3"
	"github.com/banking/muling-detector/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()
	sugar := logger.Sugar()

	sugar.Info("starting muling detection service...")

	signer, err := crypto.NewReportSigner(cfg.Signing.HMACSecret)
	if err != nil {
		sugar.Fatalf("failed to initialize report signer: %v", err)
	}

	pgRepo, err := postgres.NewReportRepository(cfg.Database)
	if err != nil {
		sugar.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pgRepo.Close()

	esRepo, err := elasticsearch.NewRingSearchRepository(cfg.Elasticsearch)
	if err != nil {
		sugar.Warnf("failed to connect to elasticsearch: %v (ring search will be unavailable)", err)
	}

	s3Repo, err := s3.NewReportArchiveRepository(context.Background(), cfg.S3)
	if err != nil {
		sugar.Fatalf("failed to initialize s3 repository: %v", err)
	}

	mulingService := service.NewMulingService(cfg.Detection.ToEngine(), pgRepo, esRepo, s3Repo, signer, logger)

	consumer, err := events.NewMulingConsumer(cfg.Kafka, mulingService, logger)
	if err != nil {
		sugar.Fatalf("failed to create kafka consumer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sugar.Info("starting kafka consumer loop...")
		if err := consumer.Start(ctx); err != nil {
			sugar.Errorf("kafka consumer failed: %v", err)
		}
	}()
	defer consumer.Close()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	mulingHandler := api.NewMulingHandler(mulingService)
	apiGroup := e.Group("/muling")

	keyData, err := os.ReadFile(cfg.Auth.JWTPublicKeyPath)
	var signingKey interface{}
	if err == nil {
		signingKey, err = jwt.ParseRSAPublicKeyFromPEM(keyData)
		if err != nil {
			sugar.Warnf("failed to parse jwt public key: %v", err)
		}
	} else {
		sugar.Warnf("jwt public key not found at %s: %v", cfg.Auth.JWTPublicKeyPath, err)
	}

	if signingKey != nil {
		jwtConfig := echojwt.Config{
			SigningKey:    signingKey,
			SigningMethod: "RS256",
			NewClaimsFunc: func(c echo.Context) jwt.Claims {
				return new(jwt.MapClaims)
			},
		}
		apiGroup.Use(echojwt.WithConfig(jwtConfig))
		sugar.Info("jwt authentication enabled for /muling/*")
	} else {
		sugar.Warn("jwt authentication disabled - missing public key")
	}

	mulingHandler.RegisterRoutes(apiGroup)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("shutting down the server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sugar.Info("shutting down service...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		sugar.Fatal(err)
	}
}
