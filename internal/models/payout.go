package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayoutStatus описывает статус заявки на выплату.
type PayoutStatus string

const (
	PayoutStatusPending  PayoutStatus = "pending"
	PayoutStatusApproved PayoutStatus = "approved"
	PayoutStatusRejected PayoutStatus = "rejected"
	PayoutStatusPaid     PayoutStatus = "paid"
)

// PayoutRequest представляет заявку продавца на вывод средств.
type PayoutRequest struct {
	ID          uuid.UUID       `db:"id"`
	SellerID    uuid.UUID       `db:"seller_id"`
	Amount      decimal.Decimal `db:"amount"`
	Status      PayoutStatus    `db:"status"`
	Method      string          `db:"method"`
	CreatedAt   time.Time       `db:"created_at"`
	ProcessedAt *time.Time      `db:"processed_at"`
}

// PayoutCreateRequest DTO для запроса выплаты.
type PayoutCreateRequest struct {
	Amount float64 `json:"amount"`
	Method string  `json:"method,omitempty"`
}

// PayoutResponse DTO для ответа по заявкам на выплату.
type PayoutResponse struct {
	ID          uuid.UUID `json:"id"`
	Amount      float64   `json:"amount"`
	Status      string    `json:"status"`
	Method      string    `json:"method"`
	CreatedAt   string    `json:"created_at"`
	ProcessedAt string    `json:"processed_at,omitempty"`
}
