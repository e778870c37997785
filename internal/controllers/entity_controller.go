package controllers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"freight-portal/config"
	"freight-portal/internal/dto"
	"freight-portal/internal/services"
	"freight-portal/pkg/api"
	apperrors "freight-portal/pkg/errors"
	"freight-portal/pkg/utils"
)

type EntityController struct {
	pages     *services.PageManager
	maxFileMB int64
	now       func() time.Time
	logger    *zap.Logger
}

func NewEntityController(pages *services.PageManager, maxFileMB int64, logger *zap.Logger) *EntityController {
	return &EntityController{
		pages:     pages,
		maxFileMB: maxFileMB,
		now:       time.Now,
		logger:    logger,
	}
}

// page достаёт страницу текущего пользователя для :entity.
func (c *EntityController) page(ctx echo.Context) (*services.Page, error) {
	session, err := utils.SessionFromCtx(ctx.Request().Context())
	if err != nil {
		return nil, err
	}
	return c.pages.Get(ctx.Request().Context(), session, ctx.Param("entity"))
}

func (c *EntityController) ListEntities(ctx echo.Context) error {
	reg := c.pages.Registry()
	names := reg.List()
	list := make([]dto.EntitySummaryDTO, 0, len(names))
	for _, name := range names {
		e, err := reg.Get(name)
		if err != nil {
			continue
		}
		list = append(list, dto.EntitySummaryDTO{Name: e.Name(), Title: e.Title()})
	}
	return api.SuccessList(ctx, "Список справочников получен", list, uint64(len(list)), 1, len(list))
}

func (c *EntityController) GetEntity(ctx echo.Context) error {
	e, err := c.pages.Registry().Get(ctx.Param("entity"))
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Описание справочника получено", dto.NewEntityDescriptorDTO(e))
}

func (c *EntityController) GetRows(ctx echo.Context) error {
	var query dto.RowsQueryDTO
	if err := ctx.Bind(&query); err != nil {
		return api.ErrorResponse(ctx, apperrors.NewBadRequestError("Неверные параметры запроса"), c.logger)
	}
	if err := ctx.Validate(&query); err != nil {
		return api.ErrorResponse(ctx, apperrors.NewBadRequestError(err.Error()), c.logger)
	}

	page, err := c.page(ctx)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	if query.Search != nil {
		page.SetSearch(*query.Search)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Список записей получен", page.View(ctx.Request().Context()))
}

func (c *EntityController) Refresh(ctx echo.Context) error {
	page, err := c.page(ctx)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	reqCtx := ctx.Request().Context()
	page.Refresh(reqCtx)
	return api.SuccessOne(ctx, http.StatusOK, "Список записей обновлен", page.View(reqCtx))
}

func (c *EntityController) OpenDialog(ctx echo.Context) error {
	var query dto.OpenDialogDTO
	if err := ctx.Bind(&query); err != nil {
		return api.ErrorResponse(ctx, apperrors.NewBadRequestError("Неверные параметры запроса"), c.logger)
	}
	if err := ctx.Validate(&query); err != nil {
		return api.ErrorResponse(ctx, apperrors.NewBadRequestError(err.Error()), c.logger)
	}

	page, err := c.page(ctx)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	view, err := page.OpenDialog(ctx.Request().Context(), services.DialogMode(query.Mode), query.ID)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Форма открыта", view)
}

func (c *EntityController) CancelDialog(ctx echo.Context) error {
	page, err := c.page(ctx)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	page.CancelDialog()
	return api.SuccessOne[any](ctx, http.StatusOK, "Форма закрыта", nil)
}

func (c *EntityController) CreateRecord(ctx echo.Context) error {
	return c.submit(ctx, services.DialogAdd, "")
}

func (c *EntityController) UpdateRecord(ctx echo.Context) error {
	id := ctx.Param("id")
	if id == "" {
		return api.ErrorResponse(ctx, apperrors.NewBadRequestError("Не указан ID записи"), c.logger)
	}
	return c.submit(ctx, services.DialogEdit, id)
}

func (c *EntityController) submit(ctx echo.Context, mode services.DialogMode, id string) error {
	// только тело: параметры пути не должны попасть в запись
	values := make(map[string]any)
	if err := (&echo.DefaultBinder{}).BindBody(ctx, &values); err != nil {
		return api.ErrorResponse(ctx, apperrors.NewBadRequestError("Неверный формат данных"), c.logger)
	}

	page, err := c.page(ctx)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	rec, err := page.SubmitDialog(ctx.Request().Context(), mode, id, values)
	if err != nil {
		c.logger.Warn("Запись не сохранена",
			zap.String("entity", ctx.Param("entity")),
			zap.String("mode", string(mode)),
			zap.Error(err),
		)
		return api.ErrorResponse(ctx, err, c.logger)
	}

	if mode == services.DialogAdd {
		return api.SuccessOne(ctx, http.StatusCreated, "Запись успешно создана", rec)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Запись успешно обновлена", rec)
}

func (c *EntityController) DeleteRecord(ctx echo.Context) error {
	id := ctx.Param("id")
	if id == "" {
		return api.ErrorResponse(ctx, apperrors.NewBadRequestError("Не указан ID записи"), c.logger)
	}
	page, err := c.page(ctx)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	if err := page.Delete(ctx.Request().Context(), id); err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne[any](ctx, http.StatusOK, "Запись успешно удалена", nil)
}

func (c *EntityController) Import(ctx echo.Context) error {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return api.ErrorResponse(ctx, apperrors.NewBadRequestError("Файл не передан"), c.logger)
	}
	src, err := fileHeader.Open()
	if err != nil {
		return api.ErrorResponse(ctx, apperrors.NewBadRequestError("Не удалось открыть файл"), c.logger)
	}
	defer src.Close()

	if err := utils.ValidateFile(fileHeader, src, config.ImportWorkbook, c.maxFileMB); err != nil {
		return api.ErrorResponse(ctx, apperrors.NewBadRequestError(err.Error()), c.logger)
	}

	page, err := c.page(ctx)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	result, err := page.Import(ctx.Request().Context(), src, fileHeader.Filename)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}

	c.logger.Info("Импорт завершен",
		zap.String("entity", ctx.Param("entity")),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
	)
	return api.SuccessOne(ctx, http.StatusOK, result.Summary(), dto.ImportResponseDTO{
		ImportResult: result,
		Summary:      result.Summary(),
	})
}

func (c *EntityController) Export(ctx echo.Context) error {
	page, err := c.page(ctx)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	f, name, err := page.Export(ctx.Request().Context(), c.now())
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return c.respondWithXLSX(ctx, f, name)
}

func (c *EntityController) Sample(ctx echo.Context) error {
	page, err := c.page(ctx)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	f, name, err := page.Sample(c.now())
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return c.respondWithXLSX(ctx, f, name)
}

func (c *EntityController) respondWithXLSX(ctx echo.Context, f *excelize.File, name string) error {
	defer f.Close()
	ctx.Response().Header().Set(echo.HeaderContentType, services.SpreadsheetContentType)
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	ctx.Response().WriteHeader(http.StatusOK)
	if err := f.Write(ctx.Response().Writer); err != nil {
		c.logger.Error("Ошибка при записи xlsx", zap.String("file", name), zap.Error(err))
		return err
	}
	return nil
}
