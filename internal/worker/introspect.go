package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/mkravets/Freshboard/internal/domain"
)

// Introspector — клиент внешнего сервиса интроспекции схем.
//
// Сервис сам ходит в источник данных и ведёт кэш схем; воркер
// лишь просит принудительное обновление и ждёт ответа в пределах
// бюджета времени задачи.
type Introspector interface {
	FetchSchema(ctx context.Context, ds *domain.DataSource, forceRefresh bool) (domain.Schema, error)
}

// HTTPIntrospector — Introspector поверх HTTP API сервиса интроспекции.
//
// Запрос: POST {base}/api/data_sources/{id}/schema
// с телом {"data_source_id": N, "force_refresh": true}.
// Ответ: {"schema": [{"name": ..., "columns": [...]}, ...]}.
type HTTPIntrospector struct {
	baseURL string
	client  *http.Client
}

// NewHTTPIntrospector создаёт HTTPIntrospector.
//
// Адрес сервиса берётся из переменной окружения INTROSPECTION_URL
// (по умолчанию http://localhost:9090). Собственного таймаута
// у клиента нет: бюджет времени приходит через ctx от задачи.
func NewHTTPIntrospector() *HTTPIntrospector {
	baseURL := os.Getenv("INTROSPECTION_URL")
	if baseURL == "" {
		baseURL = "http://localhost:9090"
	}

	return &HTTPIntrospector{
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// schemaRequest — тело запроса к сервису интроспекции.
type schemaRequest struct {
	DataSourceID int64 `json:"data_source_id"`
	ForceRefresh bool  `json:"force_refresh"`
}

// schemaResponse — тело ответа сервиса интроспекции.
type schemaResponse struct {
	Schema domain.Schema `json:"schema"`
}

// FetchSchema запрашивает схему источника данных.
func (i *HTTPIntrospector) FetchSchema(ctx context.Context, ds *domain.DataSource, forceRefresh bool) (domain.Schema, error) {
	reqBody, err := json.Marshal(schemaRequest{
		DataSourceID: ds.ID,
		ForceRefresh: forceRefresh,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal schema request: %w", err)
	}

	url := fmt.Sprintf("%s/api/data_sources/%d/schema", i.baseURL, ds.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create schema request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// Ошибка транспорта оборачивается через %w: вызывающему нужно
	// отличать истёкший дедлайн ctx от остальных ошибок
	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("schema request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read schema response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d: %s",
			ErrIntrospection, resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed schemaResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("parse schema response: %w", err)
	}

	return parsed.Schema, nil
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
