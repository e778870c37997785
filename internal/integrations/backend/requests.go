package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	apperrors "freight-portal/pkg/errors"
)

// envelope — ответ бэкенда с ошибкой в теле при статусе 200.
type envelope struct {
	StatusCode *int   `json:"statusCode"`
	Message    string `json:"message"`
	Title      string `json:"title"`
	Error      string `json:"error"`
}

func (e envelope) text() string {
	for _, s := range []string{e.Message, e.Title, e.Error} {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// do выполняет запрос и раскладывает ответ в out (может быть nil).
func (c *Client) do(ctx context.Context, method, target string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("ошибка сериализации тела запроса: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &apperrors.NetworkError{Op: method, URL: target, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Бэкенд недоступен", zap.String("method", method), zap.String("url", target), zap.Error(err))
		return &apperrors.NetworkError{Op: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &apperrors.NetworkError{Op: method, URL: target, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := extractMessage(raw)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		c.logger.Warn("Бэкенд вернул ошибку",
			zap.String("method", method),
			zap.String("url", target),
			zap.Int("status", resp.StatusCode),
			zap.String("message", msg),
		)
		return &apperrors.NetworkError{Op: method, URL: target, Status: resp.StatusCode, Message: msg}
	}

	// конверт {statusCode, message} — дополнительный признак ошибки
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env envelope
		if json.Unmarshal(trimmed, &env) == nil && env.StatusCode != nil && *env.StatusCode >= 400 {
			msg := env.text()
			if msg == "" {
				msg = http.StatusText(*env.StatusCode)
			}
			return &apperrors.NetworkError{Op: method, URL: target, Status: *env.StatusCode, Message: msg}
		}
	}

	if out == nil || len(trimmed) == 0 {
		return nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return &apperrors.NetworkError{
			Op: method, URL: target, Status: resp.StatusCode,
			Message: "некорректный ответ сервера", Err: err,
		}
	}
	return nil
}

// extractMessage достаёт текст ошибки из тела ответа, если получится.
func extractMessage(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	if trimmed[0] == '{' {
		var env envelope
		if json.Unmarshal(trimmed, &env) == nil {
			return env.text()
		}
	}
	if trimmed[0] == '"' {
		var s string
		if json.Unmarshal(trimmed, &s) == nil {
			return s
		}
	}
	if len(trimmed) > 300 {
		return ""
	}
	return string(trimmed)
}
