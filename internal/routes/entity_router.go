package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"freight-portal/internal/controllers"
	"freight-portal/internal/services"
)

func runEntityRouter(
	secureGroup *echo.Group,
	pages *services.PageManager,
	maxFileMB int64,
	logger *zap.Logger,
) {
	ctrl := controllers.NewEntityController(pages, maxFileMB, logger.Named("entities"))

	secureGroup.GET("/entities", ctrl.ListEntities)
	secureGroup.GET("/entities/:entity", ctrl.GetEntity)
	secureGroup.GET("/entities/:entity/rows", ctrl.GetRows)
	secureGroup.POST("/entities/:entity/refresh", ctrl.Refresh)

	secureGroup.GET("/entities/:entity/dialog", ctrl.OpenDialog)
	secureGroup.POST("/entities/:entity/dialog/cancel", ctrl.CancelDialog)

	secureGroup.POST("/entities/:entity/records", ctrl.CreateRecord)
	secureGroup.PUT("/entities/:entity/records/:id", ctrl.UpdateRecord)
	secureGroup.DELETE("/entities/:entity/records/:id", ctrl.DeleteRecord)

	secureGroup.POST("/entities/:entity/import", ctrl.Import)
	secureGroup.GET("/entities/:entity/export", ctrl.Export)
	secureGroup.GET("/entities/:entity/sample", ctrl.Sample)
}
