package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Earning представляет начисление продавцу по одной позиции заказа.
// SellerID == nil означает позицию без продавца: вся сумма учитывается
// как комиссия площадки.
type Earning struct {
	ID          uuid.UUID       `db:"id"`
	SellerID    *uuid.UUID      `db:"seller_id"`
	OrderID     string          `db:"order_id"`
	OrderItemID string          `db:"order_item_id"`
	Amount      decimal.Decimal `db:"amount"`
	PlatformFee decimal.Decimal `db:"platform_fee"`
	CreatedAt   time.Time       `db:"created_at"`
}

// EarningResponse DTO для списка начислений продавца.
type EarningResponse struct {
	Order       string  `json:"order"`
	OrderItem   string  `json:"order_item"`
	Amount      float64 `json:"amount"`
	PlatformFee float64 `json:"platform_fee"`
	CreatedAt   string  `json:"created_at"`
}
