package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/agamariel/marketpay/internal/services"
	"github.com/labstack/echo/v4"
)

// SignatureHeader - заголовок с подписью события вебхука.
const SignatureHeader = "Webhook-Signature"

// WebhookHandler принимает события от платёжного провайдера.
type WebhookHandler struct {
	settlementService services.SettlementService
}

// NewWebhookHandler создаёт новый handler.
func NewWebhookHandler(settlementService services.SettlementService) *WebhookHandler {
	return &WebhookHandler{settlementService: settlementService}
}

// HandleEvent обрабатывает POST /api/webhook/checkout.
// Ошибка подписи - 400 без повтора; сбой расчёта - 500, чтобы провайдер
// доставил событие повторно.
func (h *WebhookHandler) HandleEvent(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read body")
	}

	signature := c.Request().Header.Get(SignatureHeader)

	if err := h.settlementService.Settle(c.Request().Context(), payload, signature); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidSignature):
			c.Logger().Warnf("webhook signature rejected: %v", err)
			return echo.NewHTTPError(http.StatusBadRequest, "invalid signature")
		case errors.Is(err, services.ErrPaymentConflict):
			c.Logger().Errorf("webhook event conflicts with payment state: %v", err)
			return echo.NewHTTPError(http.StatusConflict, "payment state conflict")
		default:
			// Событие остаётся в очереди провайдера на повторную доставку
			c.Logger().Errorf("settlement failed: %v", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "settlement failed")
		}
	}

	return c.NoContent(http.StatusOK)
}
