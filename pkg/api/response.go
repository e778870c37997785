package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "freight-portal/pkg/errors"
)

type Response[T any] struct {
	Status  bool                   `json:"status"`
	Message string                 `json:"message"`
	Body    T                      `json:"body,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

type ListBody[T any] struct {
	List       []T             `json:"list"`
	Pagination *PaginationMeta `json:"pagination"`
}

type PaginationMeta struct {
	TotalCount uint64 `json:"total_count"`
	TotalPages int    `json:"total_pages"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
}

// SuccessOne — для возврата одного объекта
func SuccessOne[T any](c echo.Context, code int, message string, data T) error {
	return c.JSON(code, Response[T]{
		Status:  true,
		Message: message,
		Body:    data,
	})
}

func SuccessList[T any](c echo.Context, message string, list []T, total uint64, page, limit int) error {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + uint64(limit) - 1) / uint64(limit))
	}

	if list == nil {
		list = make([]T, 0)
	}

	body := ListBody[T]{
		List: list,
		Pagination: &PaginationMeta{
			TotalCount: total,
			TotalPages: totalPages,
			Page:       page,
			Limit:      limit,
		},
	}

	return c.JSON(http.StatusOK, Response[ListBody[T]]{
		Status:  true,
		Message: message,
		Body:    body,
	})
}

// StatusFor сопоставляет ошибку с HTTP-кодом и текстом для пользователя.
func StatusFor(err error) (int, string, map[string]interface{}) {
	var (
		httpErr   *apperrors.HttpError
		validErr  *apperrors.ValidationError
		netErr    *apperrors.NetworkError
		headerErr *apperrors.HeaderError
		deleteErr *apperrors.DeleteError
	)

	switch {
	case errors.As(err, &httpErr):
		return httpErr.Code, httpErr.Message, httpErr.Details
	case errors.As(err, &validErr):
		return http.StatusUnprocessableEntity, "Проверьте заполнение полей", map[string]interface{}{"fields": validErr.Fields}
	case errors.As(err, &headerErr):
		return http.StatusBadRequest, headerErr.Error(), map[string]interface{}{
			"missing":      headerErr.Missing,
			"unrecognized": headerErr.Unrecognized,
		}
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, apperrors.ErrConflict.Error(), nil
	case errors.As(err, &deleteErr):
		if errors.As(deleteErr.Err, &netErr) {
			return http.StatusBadGateway, netErr.UserMessage(), nil
		}
		return http.StatusBadGateway, deleteErr.Error(), nil
	case errors.As(err, &netErr):
		return http.StatusBadGateway, netErr.UserMessage(), nil
	case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, apperrors.ErrUnknownEntity):
		return http.StatusNotFound, err.Error(), nil
	case errors.Is(err, apperrors.ErrUnauthorized),
		errors.Is(err, apperrors.ErrInvalidToken),
		errors.Is(err, apperrors.ErrTokenExpired),
		errors.Is(err, apperrors.ErrEmptyAuthHeader),
		errors.Is(err, apperrors.ErrInvalidAuthHeader),
		errors.Is(err, apperrors.ErrSessionNotFound):
		return http.StatusUnauthorized, err.Error(), nil
	case errors.Is(err, apperrors.ErrImportInProgress),
		errors.Is(err, apperrors.ErrDialogBusy):
		return http.StatusConflict, err.Error(), nil
	case errors.Is(err, apperrors.ErrBadRequest),
		errors.Is(err, apperrors.ErrDialogClosed),
		errors.Is(err, apperrors.ErrEmptyWorkbook),
		errors.Is(err, apperrors.ErrMissingIdentity):
		return http.StatusBadRequest, err.Error(), nil
	case errors.Is(err, apperrors.ErrJournalDisabled):
		return http.StatusServiceUnavailable, err.Error(), nil
	}
	return http.StatusInternalServerError, "Внутренняя ошибка сервера", nil
}

func ErrorResponse(c echo.Context, err error, logger *zap.Logger) error {
	code, msg, details := StatusFor(err)
	if code >= http.StatusInternalServerError && logger != nil {
		logger.Error("Ошибка обработки запроса",
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Int("code", code),
			zap.Error(err),
		)
	}

	return c.JSON(code, Response[any]{
		Status:  false,
		Message: msg,
		Details: details,
	})
}
