// Package backend — HTTP-клиент внешнего REST-бэкенда справочников.
package backend

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"freight-portal/internal/entities"
	"freight-portal/internal/integrations"
	apperrors "freight-portal/pkg/errors"
)

// Client — "чистый фасад" для REST-бэкенда. Токен не прикладывается:
// аутентификация транспорта — внешняя забота.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		logger:     logger.Named("backend_client"),
	}
}

var _ integrations.RecordProvider = (*Client)(nil)

func (c *Client) Name() string {
	return "remote"
}

func (c *Client) ListRecords(ctx context.Context, endpoint string, req integrations.ListRequest) ([]entities.Record, error) {
	var list []entities.Record
	if err := c.do(ctx, http.MethodPost, c.baseURL+endpoint+"/GetList", req, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []entities.Record{}
	}
	c.logger.Debug("Список получен", zap.String("endpoint", endpoint), zap.Int("count", len(list)))
	return list, nil
}

func (c *Client) GetRecord(ctx context.Context, endpoint, id string) (entities.Record, error) {
	var rec entities.Record
	if err := c.do(ctx, http.MethodGet, c.baseURL+endpoint+"/"+url.PathEscape(id), nil, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (c *Client) CreateRecord(ctx context.Context, endpoint string, payload entities.Record) (entities.Record, error) {
	var rec entities.Record
	if err := c.do(ctx, http.MethodPost, c.baseURL+endpoint, payload, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (c *Client) UpdateRecord(ctx context.Context, endpoint string, payload entities.Record) (entities.Record, error) {
	var rec entities.Record
	if err := c.do(ctx, http.MethodPut, c.baseURL+endpoint, payload, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (c *Client) DeleteRecord(ctx context.Context, endpoint, id string) error {
	if err := c.do(ctx, http.MethodDelete, c.baseURL+endpoint+"/"+url.PathEscape(id), nil, nil); err != nil {
		return &apperrors.DeleteError{Entity: endpoint, ID: id, Err: err}
	}
	return nil
}
