package handlers

import (
	"errors"
	"net/http"

	"github.com/agamariel/marketpay/internal/auth"
	"github.com/agamariel/marketpay/internal/checkout"
	"github.com/agamariel/marketpay/internal/models"
	"github.com/agamariel/marketpay/internal/services"
	"github.com/agamariel/marketpay/internal/storage"
	"github.com/labstack/echo/v4"
)

// CheckoutHandler обрабатывает создание checkout-сессий.
type CheckoutHandler struct {
	checkoutService services.CheckoutService
}

// NewCheckoutHandler создаёт новый handler.
func NewCheckoutHandler(checkoutService services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService}
}

// CreateSession обрабатывает POST /api/checkout/session.
func (h *CheckoutHandler) CreateSession(c echo.Context) error {
	buyerID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	var req models.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}

	resp, err := h.checkoutService.CreateSession(c.Request().Context(), buyerID, req.Items)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyCart):
			return echo.NewHTTPError(http.StatusBadRequest, "cart is empty")
		case errors.Is(err, services.ErrInvalidCartItem):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid cart item")
		case errors.Is(err, checkout.ErrUnavailable):
			return echo.NewHTTPError(http.StatusBadGateway, "payment service not available")
		case errors.Is(err, storage.ErrSessionExists):
			return echo.NewHTTPError(http.StatusConflict, "session already registered")
		default:
			c.Logger().Errorf("failed to create checkout session: %v", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}
	}

	return c.JSON(http.StatusOK, resp)
}
