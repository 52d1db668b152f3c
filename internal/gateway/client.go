// Package gateway предоставляет клиент внешнего платёжного шлюза.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/mmeshcher/stitchmart-system/internal/model"
)

// ErrDeclined возвращается, когда шлюз отказал в создании транзакции.
// Повторять такой запрос бессмысленно, в отличие от сетевых ошибок.
var ErrDeclined = errors.New("gateway declined transaction")

// Client инкапсулирует HTTP-взаимодействие с платёжным шлюзом.
type Client struct {
	baseURL    string
	storeID    string
	httpClient *retryablehttp.Client
}

// InitiateRequest описывает запрос на создание транзакции в шлюзе.
type InitiateRequest struct {
	Amount      int64
	Currency    string
	OrderID     string
	PaymentID   string
	PaymentType model.PaymentType
	CustomerID  int64
}

type initiateBody struct {
	StoreID  string `json:"store_id"`
	Amount   int64  `json:"total_amount"`
	Currency string `json:"currency"`
	// Шлюз возвращает value_a/value_b/value_c в обратном вызове как есть.
	ValueA string `json:"value_a"`
	ValueB string `json:"value_b"`
	ValueC string `json:"value_c"`
}

type initiateResponse struct {
	Status      string `json:"status"`
	RedirectURL string `json:"redirect_url"`
	Reason      string `json:"failedreason"`
}

// ValidationResult — ответ шлюза на проверку транзакции.
type ValidationResult struct {
	Valid         bool
	TransactionID string
	Amount        int64
}

type validateResponse struct {
	Status string `json:"status"`
	TranID string `json:"tran_id"`
	Amount int64  `json:"amount"`
}

// NewClient создаёт клиент шлюза по указанному адресу.
// Транспорт повторяет временно неуспешные запросы с экспоненциальной задержкой.
func NewClient(baseURL, storeID string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.HTTPClient.Timeout = 10 * time.Second
	rc.Logger = nil

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		storeID:    storeID,
		httpClient: rc,
	}
}

func (c *Client) endpoint(path string) string {
	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return base + path
}

// InitiateTransaction регистрирует транзакцию в шлюзе и возвращает адрес
// страницы оплаты. Состояние системы при этом не меняется.
func (c *Client) InitiateTransaction(ctx context.Context, reqData InitiateRequest) (string, error) {
	if c == nil || c.baseURL == "" {
		return "", fmt.Errorf("gateway client not configured")
	}

	body, err := json.Marshal(initiateBody{
		StoreID:  c.storeID,
		Amount:   reqData.Amount,
		Currency: reqData.Currency,
		ValueA:   reqData.OrderID,
		ValueB:   string(reqData.PaymentType),
		ValueC:   reqData.PaymentID,
	})
	if err != nil {
		return "", fmt.Errorf("marshal initiate body: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/transactions"), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result initiateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if result.Status != "SUCCESS" {
		return "", fmt.Errorf("%w: %s", ErrDeclined, result.Reason)
	}

	return result.RedirectURL, nil
}

// ValidateTransaction запрашивает у шлюза подтверждение транзакции
// по её валидационному идентификатору.
func (c *Client) ValidateTransaction(ctx context.Context, validationID string) (*ValidationResult, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("gateway client not configured")
	}

	u := c.endpoint("/api/transactions/validate") + "?val_id=" + url.QueryEscape(validationID)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &ValidationResult{
		Valid:         result.Status == "VALID" || result.Status == "VALIDATED",
		TransactionID: result.TranID,
		Amount:        result.Amount,
	}, nil
}
