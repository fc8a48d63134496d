package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/agamariel/marketpay/internal/auth"
	"github.com/agamariel/marketpay/internal/models"
	"github.com/agamariel/marketpay/internal/services"
	"github.com/agamariel/marketpay/internal/storage"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// PayoutHandler обрабатывает кошелёк продавца и заявки на выплату.
type PayoutHandler struct {
	payoutService services.PayoutService
}

// NewPayoutHandler создаёт новый handler.
func NewPayoutHandler(payoutService services.PayoutService) *PayoutHandler {
	return &PayoutHandler{payoutService: payoutService}
}

// GetWallet обрабатывает GET /api/seller/wallet.
func (h *PayoutHandler) GetWallet(c echo.Context) error {
	sellerID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	wallet, err := h.payoutService.GetWallet(c.Request().Context(), sellerID)
	if err != nil {
		c.Logger().Errorf("failed to get wallet: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	return c.JSON(http.StatusOK, wallet)
}

// GetEarnings обрабатывает GET /api/seller/earnings.
func (h *PayoutHandler) GetEarnings(c echo.Context) error {
	sellerID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	earnings, err := h.payoutService.GetEarnings(c.Request().Context(), sellerID)
	if err != nil {
		c.Logger().Errorf("failed to get earnings: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	if len(earnings) == 0 {
		return c.NoContent(http.StatusNoContent)
	}

	return c.JSON(http.StatusOK, mapEarningsToResponse(earnings))
}

// RequestPayout обрабатывает POST /api/seller/payouts.
func (h *PayoutHandler) RequestPayout(c echo.Context) error {
	sellerID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	var req models.PayoutCreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}

	amount := decimal.NewFromFloat(req.Amount)
	payout, err := h.payoutService.RequestPayout(c.Request().Context(), sellerID, amount, req.Method)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidPayoutAmount):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid amount")
		case errors.Is(err, storage.ErrInsufficientBalance):
			return echo.NewHTTPError(http.StatusPaymentRequired, "insufficient balance")
		default:
			c.Logger().Errorf("failed to request payout: %v", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}
	}

	return c.JSON(http.StatusCreated, mapPayoutToResponse(payout))
}

// GetPayouts обрабатывает GET /api/seller/payouts.
func (h *PayoutHandler) GetPayouts(c echo.Context) error {
	sellerID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	payouts, err := h.payoutService.GetPayouts(c.Request().Context(), sellerID)
	if err != nil {
		c.Logger().Errorf("failed to get payouts: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	if len(payouts) == 0 {
		return c.NoContent(http.StatusNoContent)
	}

	response := make([]*models.PayoutResponse, 0, len(payouts))
	for _, p := range payouts {
		response = append(response, mapPayoutToResponse(p))
	}
	return c.JSON(http.StatusOK, response)
}

// Approve обрабатывает POST /api/admin/payouts/:id/approve.
func (h *PayoutHandler) Approve(c echo.Context) error {
	return h.transition(c, h.payoutService.Approve)
}

// Reject обрабатывает POST /api/admin/payouts/:id/reject.
func (h *PayoutHandler) Reject(c echo.Context) error {
	return h.transition(c, h.payoutService.Reject)
}

// MarkPaid обрабатывает POST /api/admin/payouts/:id/pay.
func (h *PayoutHandler) MarkPaid(c echo.Context) error {
	return h.transition(c, h.payoutService.MarkPaid)
}

// transition применяет переход статуса к заявке из path-параметра.
func (h *PayoutHandler) transition(c echo.Context, fn func(ctx context.Context, id uuid.UUID) error) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payout id")
	}

	if err := fn(c.Request().Context(), id); err != nil {
		switch {
		case errors.Is(err, storage.ErrPayoutNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "payout request not found")
		case errors.Is(err, storage.ErrPayoutStateConflict):
			return echo.NewHTTPError(http.StatusConflict, "payout request is in a conflicting state")
		case errors.Is(err, storage.ErrInsufficientBalance):
			return echo.NewHTTPError(http.StatusPaymentRequired, "insufficient balance")
		case errors.Is(err, storage.ErrWalletNotFound):
			return echo.NewHTTPError(http.StatusPaymentRequired, "insufficient balance")
		default:
			c.Logger().Errorf("failed to transition payout: %v", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}
	}

	return c.NoContent(http.StatusOK)
}

// mapPayoutToResponse преобразует domain модель заявки в DTO.
func mapPayoutToResponse(p *models.PayoutRequest) *models.PayoutResponse {
	amount, _ := p.Amount.Float64()
	resp := &models.PayoutResponse{
		ID:        p.ID,
		Amount:    amount,
		Status:    string(p.Status),
		Method:    p.Method,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
	if p.ProcessedAt != nil {
		resp.ProcessedAt = p.ProcessedAt.Format(time.RFC3339)
	}
	return resp
}

// mapEarningsToResponse преобразует domain модели начислений в DTO.
func mapEarningsToResponse(earnings []*models.Earning) []*models.EarningResponse {
	var response []*models.EarningResponse
	for _, e := range earnings {
		amount, _ := e.Amount.Float64()
		fee, _ := e.PlatformFee.Float64()
		response = append(response, &models.EarningResponse{
			Order:       e.OrderID,
			OrderItem:   e.OrderItemID,
			Amount:      amount,
			PlatformFee: fee,
			CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		})
	}
	return response
}
