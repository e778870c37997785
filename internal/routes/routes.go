package routes

import (
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"freight-portal/internal/integrations"
	"freight-portal/internal/integrations/backend"
	"freight-portal/internal/integrations/mock"
	"freight-portal/internal/listeners"
	"freight-portal/internal/registry"
	"freight-portal/internal/repositories"
	"freight-portal/internal/services"
	"freight-portal/pkg/config"
	"freight-portal/pkg/customvalidator"
	"freight-portal/pkg/eventbus"
	"freight-portal/pkg/filestorage"
	"freight-portal/pkg/middleware"
	"freight-portal/pkg/service"
	"freight-portal/pkg/websocket"
)

// Deps — внешние ресурсы сервиса. DB и Redis необязательны.
type Deps struct {
	DB        *pgxpool.Pool
	Redis     *redis.Client
	JWT       service.JWTService
	Validator *customvalidator.CustomValidator
	Registry  *registry.Registry
	Provider  integrations.RecordProvider
	Config    *config.Config
	Logger    *zap.Logger
}

// Runtime — то, что main запускает в фоне и останавливает при выходе.
type Runtime struct {
	Hub   *websocket.Hub
	Pages *services.PageManager
	Bus   *eventbus.Bus
}

// NewProvider регистрирует все реализации бэкенда и выбирает активную по конфигу.
func NewProvider(cfg config.BackendConfig, reg *registry.Registry, logger *zap.Logger) (integrations.RecordProvider, error) {
	idFields := make(map[string]string)
	for _, name := range reg.List() {
		e, _ := reg.Get(name)
		idFields[e.Endpoint()] = e.IDField()
	}

	providers, err := integrations.NewProviders(
		backend.New(cfg.BaseURL, cfg.Timeout, logger),
		mock.NewMockProvider(idFields),
	)
	if err != nil {
		return nil, err
	}
	provider, err := providers.Pick(cfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("BACKEND_PROVIDER: %w", err)
	}
	return provider, nil
}

func InitRouter(e *echo.Echo, deps Deps) (*Runtime, error) {
	logger := deps.Logger
	cfg := deps.Config
	logger.Info("InitRouter: Начало создания маршрутов")

	// --- 0. ОБЩИЕ КОМПОНЕНТЫ ---
	api := e.Group("/api")
	authMW := middleware.NewAuthMiddleware(deps.JWT, logger.Named("auth"))
	fileStorage, err := filestorage.NewLocalFileStorage(cfg.Import.UploadsDir)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать файловое хранилище: %w", err)
	}
	bus := eventbus.New(logger.Named("eventbus"))
	hub := websocket.NewHub(logger)

	provider := deps.Provider
	if provider == nil {
		provider, err = NewProvider(cfg.Backend, deps.Registry, logger)
		if err != nil {
			return nil, err
		}
	}

	// --- 1. РЕПОЗИТОРИИ ---
	var cacheRepo repositories.CacheRepositoryInterface
	if deps.Redis != nil {
		cacheRepo = repositories.NewRedisCacheRepository(deps.Redis)
	} else {
		logger.Warn("Redis не настроен, справочники кешируются в памяти")
		cacheRepo = repositories.NewMemoryCacheRepository()
	}

	var journalRepo repositories.ImportBatchRepositoryInterface
	if deps.DB != nil {
		txManager := repositories.NewTxManager(deps.DB)
		journalRepo = repositories.NewImportBatchRepository(deps.DB, txManager, logger.Named("import_journal"))
	} else {
		logger.Warn("DATABASE_URL не задан, журнал импорта отключен")
		journalRepo = repositories.NewNoopImportBatchRepository()
	}

	// --- 2. СЕРВИСЫ ---
	validate := deps.Validator.Engine()
	referenceService := services.NewReferenceService(deps.Registry, provider, cacheRepo, cfg.Redis.ReferenceTTL, logger)
	importService := services.NewImportService(provider, referenceService, journalRepo, fileStorage, validate, cfg.Import, logger)
	journalService := services.NewImportJournalService(journalRepo, fileStorage, logger)
	notificationService := services.NewWebSocketNotificationService(hub, logger)
	pageManager := services.NewPageManager(deps.Registry, services.PageDeps{
		Provider: provider,
		Refs:     referenceService,
		Importer: importService,
		Validate: validate,
		Bus:      bus,
		Logger:   logger.Named("page"),
	})

	listeners.NewRefreshListener(deps.Registry, referenceService, pageManager, notificationService, logger.Named("refresh")).
		Register(bus)

	// --- 3. РОУТЕРЫ ---
	secureGroup := api.Group("", authMW.Auth)

	runEntityRouter(secureGroup, pageManager, cfg.Import.MaxFileMB, logger)
	runImportJournalRouter(secureGroup, journalService, logger)
	runWebSocketRouter(api, hub, deps.JWT, cfg.Server.AllowedOrigins, logger)

	logger.Info("INIT_ROUTER: Создание маршрутов завершено", zap.String("provider", provider.Name()))
	return &Runtime{Hub: hub, Pages: pageManager, Bus: bus}, nil
}
