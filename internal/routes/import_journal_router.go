package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"freight-portal/internal/controllers"
	"freight-portal/internal/services"
)

func runImportJournalRouter(
	secureGroup *echo.Group,
	journal services.ImportJournalServiceInterface,
	logger *zap.Logger,
) {
	ctrl := controllers.NewImportJournalController(journal, logger.Named("import_journal"))

	secureGroup.GET("/imports", ctrl.List)
	secureGroup.GET("/imports/:id", ctrl.Get)
	secureGroup.GET("/imports/:id/file", ctrl.File)
}
