package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

var (
	// ErrUnavailable возвращается, когда провайдер недоступен или отвечает ошибкой.
	ErrUnavailable = errors.New("checkout provider unavailable")
)

// LineItem - позиция checkout-сессии. Сумма указывается в минорных
// единицах валюты (центах).
type LineItem struct {
	Name       string `json:"name"`
	UnitAmount int64  `json:"unit_amount"`
	Quantity   int    `json:"quantity"`
}

// CreateSessionRequest описывает запрос на создание checkout-сессии.
type CreateSessionRequest struct {
	Mode       string            `json:"mode"`
	LineItems  []LineItem        `json:"line_items"`
	Currency   string            `json:"currency"`
	SuccessURL string            `json:"success_url"`
	CancelURL  string            `json:"cancel_url"`
	Metadata   map[string]string `json:"metadata"`
}

// Session описывает созданную провайдером сессию.
type Session struct {
	ID             string `json:"id"`
	PublishableKey string `json:"publishable_key"`
}

// Client интерфейс создания checkout-сессий у внешнего провайдера.
type Client interface {
	CreateSession(ctx context.Context, req *CreateSessionRequest) (*Session, error)
}

// HTTPClient реализует Client поверх HTTP API провайдера.
type HTTPClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// NewHTTPClient создаёт HTTP-клиент провайдера с ограниченным таймаутом.
func NewHTTPClient(baseURL, secretKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPClient{
		baseURL:   baseURL,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateSession создаёт checkout-сессию у провайдера.
func (c *HTTPClient) CreateSession(ctx context.Context, sessionReq *CreateSessionRequest) (*Session, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid provider base url: %w", err)
	}
	u.Path = u.Path + "/v1/checkout/sessions"

	body, err := json.Marshal(sessionReq)
	if err != nil {
		return nil, fmt.Errorf("marshal session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Таймаут или ошибка соединения - провайдер недоступен
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var session Session
		if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
			return nil, fmt.Errorf("decode session response: %w", err)
		}
		if session.ID == "" {
			return nil, fmt.Errorf("%w: empty session id", ErrUnavailable)
		}
		return &session, nil
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	default:
		return nil, fmt.Errorf("unexpected provider status: %d", resp.StatusCode)
	}
}
