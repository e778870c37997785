package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"freight-portal/internal/registry"
	"freight-portal/internal/routes"
	"freight-portal/pkg/api"
	"freight-portal/pkg/config"
	"freight-portal/pkg/customvalidator"
	"freight-portal/pkg/database/postgresql"
	apperrors "freight-portal/pkg/errors"
	applogger "freight-portal/pkg/logger"
	appmiddleware "freight-portal/pkg/middleware"
	"freight-portal/pkg/service"
)

const (
	pageSweepEvery = 5 * time.Minute
	pageMaxIdle    = 30 * time.Minute
	tokenTTL       = 24 * time.Hour
)

func main() {
	// 1. Конфиг и логгер
	cfg := config.New()
	logger := applogger.NewLogger(cfg.Logger)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Echo и middleware
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		DisableStackAll: true,
		StackSize:       1 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("!!! ОБНАРУЖЕНА ПАНИКА (PANIC) !!!",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.String("stack", string(stack)),
			)
			if !c.Response().Committed {
				httpErr := apperrors.NewHttpError(http.StatusInternalServerError, "Внутренняя ошибка сервера", err, nil)
				api.ErrorResponse(c, httpErr, logger)
			}
			return err
		},
	}))
	e.Use(appmiddleware.RequestLogger(logger.Named("http")))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		ExposeHeaders:    []string{echo.HeaderContentDisposition},
	}))
	e.Use(appmiddleware.RequestTimeout(cfg.Server.RequestTimeout, "/api/ws"))

	cv := customvalidator.New()
	e.Validator = cv

	// 3. Хранилища: оба необязательны
	var dbConn *pgxpool.Pool
	if cfg.Postgres.DSN != "" {
		pool, err := postgresql.ConnectDB(ctx, cfg.Postgres.DSN, logger)
		if err != nil {
			logger.Fatal("не удалось подключиться к PostgreSQL", zap.Error(err))
		}
		defer pool.Close()
		if cfg.Postgres.AutoMigrate {
			if err := postgresql.Migrate(pool, logger); err != nil {
				logger.Fatal("Ошибка миграций", zap.Error(err))
			}
		}
		dbConn = pool
	}

	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if _, err := redisClient.Ping(ctx).Result(); err != nil {
			logger.Warn("Redis недоступен, кеш справочников в памяти", zap.Error(err), zap.String("address", cfg.Redis.Address))
			redisClient.Close()
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	// 4. Роуты
	jwtSvc := service.NewJWTService(cfg.JWT.SecretKey, tokenTTL)
	runtime, err := routes.InitRouter(e, routes.Deps{
		DB:        dbConn,
		Redis:     redisClient,
		JWT:       jwtSvc,
		Validator: cv,
		Registry:  registry.Default(),
		Config:    cfg,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("Ошибка инициализации маршрутов", zap.Error(err))
	}

	go runtime.Hub.Run(ctx)
	go runtime.Pages.RunSweeper(ctx, pageSweepEvery, pageMaxIdle)

	// 5. Сервер
	go func() {
		logger.Info("🚀 Сервер запущен", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Ошибка запуска сервера", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Остановка сервера...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ошибка при остановке сервера", zap.Error(err))
	}
	runtime.Bus.Wait()
}
