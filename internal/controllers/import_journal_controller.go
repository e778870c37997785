package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"freight-portal/internal/services"
	"freight-portal/pkg/api"
	"freight-portal/pkg/utils"
)

type ImportJournalController struct {
	journal services.ImportJournalServiceInterface
	logger  *zap.Logger
}

func NewImportJournalController(journal services.ImportJournalServiceInterface, logger *zap.Logger) *ImportJournalController {
	return &ImportJournalController{
		journal: journal,
		logger:  logger,
	}
}

func (c *ImportJournalController) List(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	session, err := utils.SessionFromCtx(reqCtx)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}

	filter := utils.ParseFilterFromQuery(ctx.QueryParams(), "entity", "status")
	batches, total, err := c.journal.List(reqCtx, session, filter)
	if err != nil {
		c.logger.Error("Ошибка при получении журнала импорта", zap.Error(err))
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessList(ctx, "Журнал импорта получен", batches, total, filter.Page, filter.Limit)
}

func (c *ImportJournalController) Get(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	session, err := utils.SessionFromCtx(reqCtx)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}

	details, err := c.journal.Get(reqCtx, session, ctx.Param("id"))
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Пакет импорта найден", details)
}

// File отдаёт исходный файл пакета импорта.
func (c *ImportJournalController) File(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	session, err := utils.SessionFromCtx(reqCtx)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}

	file, name, err := c.journal.OpenFile(reqCtx, session, ctx.Param("id"))
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	defer file.Close()

	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return ctx.Stream(http.StatusOK, services.SpreadsheetContentType, file)
}
