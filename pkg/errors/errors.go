package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	// JWT и сессия
	ErrInvalidSigningMethod = errors.New("неверный метод подписи токена")
	ErrInvalidToken         = errors.New("недопустимый токен")
	ErrTokenExpired         = errors.New("срок действия токена истёк")
	ErrEmptyAuthHeader      = errors.New("заголовок авторизации отсутствует")
	ErrInvalidAuthHeader    = errors.New("неверный формат заголовка авторизации")
	ErrUnauthorized         = errors.New("неавторизован")
	ErrSessionNotFound      = errors.New("сессия не найдена в контексте запроса")

	// Справочники и записи
	ErrNotFound         = errors.New("запись не найдена")
	ErrBadRequest       = errors.New("неверный запрос")
	ErrUnknownEntity    = errors.New("неизвестная сущность")
	ErrConflict         = errors.New("запись была изменена другим пользователем")
	ErrMissingIdentity  = errors.New("у записи отсутствует идентификатор")
	ErrDialogClosed     = errors.New("форма записи не открыта")
	ErrDialogBusy       = errors.New("форма записи уже отправляется")
	ErrImportInProgress = errors.New("импорт для этой страницы уже выполняется")
	ErrEmptyWorkbook    = errors.New("файл не содержит строк для импорта")
	ErrJournalDisabled  = errors.New("журнал импорта отключен")
)

// HttpError — ошибка, которую контроллер отдаёт клиенту как есть.
type HttpError struct {
	Code    int
	Message string
	Err     error
	Details map[string]interface{}
}

func (e *HttpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HttpError) Unwrap() error { return e.Err }

func NewHttpError(code int, message string, err error, details map[string]interface{}) *HttpError {
	return &HttpError{Code: code, Message: message, Err: err, Details: details}
}

func NewBadRequestError(message string) *HttpError {
	return NewHttpError(http.StatusBadRequest, message, ErrBadRequest, nil)
}

// ValidationError хранит сообщения по каждому полю формы.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "ошибка валидации: " + strings.Join(parts, "; ")
}

func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// NetworkError — сбой обращения к внешнему REST-бэкенду:
// транспорт, статус не 2xx или конверт {statusCode, message} с ошибкой.
type NetworkError struct {
	Op      string
	URL     string
	Status  int
	Message string
	Err     error
}

func (e *NetworkError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s %s: статус %d: %s", e.Op, e.URL, e.Status, msg)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.URL, msg)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Is позволяет проверять 409 через errors.Is(err, ErrConflict).
func (e *NetworkError) Is(target error) bool {
	switch target {
	case ErrConflict:
		return e.Status == http.StatusConflict
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// UserMessage возвращает текст, который можно показать пользователю.
func (e *NetworkError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return "Сервер недоступен, попробуйте позже"
}

// DeleteError — ошибка удаления записи.
type DeleteError struct {
	Entity string
	ID     string
	Err    error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("не удалось удалить %s #%s: %v", e.Entity, e.ID, e.Err)
}

func (e *DeleteError) Unwrap() error { return e.Err }

// HeaderError — заголовки файла импорта не совпадают с полями сущности.
type HeaderError struct {
	Missing      []string
	Unrecognized []string
}

func (e *HeaderError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "отсутствуют колонки: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unrecognized) > 0 {
		parts = append(parts, "неизвестные колонки: "+strings.Join(e.Unrecognized, ", "))
	}
	return "неверная шапка файла: " + strings.Join(parts, "; ")
}
