package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnavailable возвращается, когда сервис заказов недоступен.
	ErrUnavailable = errors.New("order service unavailable")
)

// Client интерфейс создания заказа во внешнем сервисе заказов.
type Client interface {
	CreateOrder(ctx context.Context, buyerID string, totalAmount decimal.Decimal) (string, error)
}

type createOrderRequest struct {
	UserID      string          `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"`
}

type createOrderResponse struct {
	OrderID string `json:"order_id"`
}

// HTTPClient реализует Client поверх HTTP API сервиса заказов.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient создаёт HTTP-клиент с ограниченным таймаутом.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateOrder создаёт заказ и возвращает его идентификатор.
func (c *HTTPClient) CreateOrder(ctx context.Context, buyerID string, totalAmount decimal.Decimal) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid order service base url: %w", err)
	}
	u.Path = u.Path + "/api/orders"

	body, err := json.Marshal(createOrderRequest{
		UserID:      buyerID,
		TotalAmount: totalAmount,
		Status:      "paid",
	})
	if err != nil {
		return "", fmt.Errorf("marshal order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var payload createOrderResponse
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return "", fmt.Errorf("decode order response: %w", err)
		}
		if payload.OrderID == "" {
			return "", fmt.Errorf("%w: empty order id", ErrUnavailable)
		}
		return payload.OrderID, nil
	case resp.StatusCode >= http.StatusInternalServerError:
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	default:
		return "", fmt.Errorf("unexpected order service status: %d", resp.StatusCode)
	}
}
