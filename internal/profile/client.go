// Package profile предоставляет клиент сервиса профилей мерок.
package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client инкапсулирует HTTP-взаимодействие с сервисом профилей мерок.
// Сохранение снимка — необязательное удобство: заказ хранит собственную
// копию мерок и не зависит от доступности этого сервиса.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент сервиса профилей по указанному адресу.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type saveSnapshotRequest struct {
	Measurements map[string]float64 `json:"measurements"`
}

type saveSnapshotResponse struct {
	ProfileID string `json:"profile_id"`
}

// SaveSnapshot сохраняет снимок мерок покупателя и возвращает идентификатор профиля.
func (c *Client) SaveSnapshot(ctx context.Context, customerID int64, measurements map[string]float64) (string, error) {
	if c == nil || c.baseURL == "" {
		return "", fmt.Errorf("profile client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	url := fmt.Sprintf("%s/api/customers/%d/measurements", base, customerID)

	body, err := json.Marshal(saveSnapshotRequest{Measurements: measurements})
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result saveSnapshotResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	return result.ProfileID, nil
}
