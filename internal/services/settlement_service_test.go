package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/agamariel/marketpay/internal/models"
	"github.com/agamariel/marketpay/internal/orders"
	"github.com/agamariel/marketpay/internal/storage"
	"github.com/agamariel/marketpay/internal/utils"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const testWebhookSecret = "test-webhook-secret"

type mockOrderClient struct {
	CreateOrderFunc func(ctx context.Context, buyerID string, totalAmount decimal.Decimal) (string, error)
}

func (m *mockOrderClient) CreateOrder(ctx context.Context, buyerID string, totalAmount decimal.Decimal) (string, error) {
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, buyerID, totalAmount)
	}
	return "order-1", nil
}

// buildSignedEvent собирает событие завершения оплаты с валидной подписью.
func buildSignedEvent(t *testing.T, eventType, sessionID string, items []models.CartItem) ([]byte, string) {
	t.Helper()

	cartJSON, err := json.Marshal(items)
	if err != nil {
		t.Fatalf("marshal cart: %v", err)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"id":   "evt_" + uuid.NewString(),
		"type": eventType,
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id": sessionID,
				"metadata": map[string]string{
					"user_id":   uuid.NewString(),
					"cart_json": string(cartJSON),
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}

	return payload, utils.BuildSignatureHeader(payload, testWebhookSecret, time.Now())
}

func newSettlementService(payments PaymentStorage, earnings EarningStorage, wallets WalletStorage, orderClient orders.Client) (*SettlementServiceImpl, *fakeTxBeginner) {
	beginner := newFakeTxBeginner()
	svc := NewSettlementService(beginner, payments, earnings, wallets, orderClient, testWebhookSecret, decimal.NewFromInt(10), nil)
	return svc, beginner
}

func TestSettlementService_Settle(t *testing.T) {
	ctx := context.Background()
	sellerA := uuid.New()
	sellerB := uuid.New()

	cart := []models.CartItem{
		{ProductID: "p1", Name: "Item A", Price: decimal.RequireFromString("100.00"), Quantity: 2, SellerID: &sellerA},
		{ProductID: "p2", Name: "Item B", Price: decimal.RequireFromString("50.00"), Quantity: 1, SellerID: &sellerB},
	}

	createdPayment := func(sessionID string) *models.Payment {
		return &models.Payment{
			ID:        uuid.New(),
			SessionID: sessionID,
			OrderID:   models.PendingOrderID,
			Amount:    decimal.RequireFromString("250.00"),
			Currency:  "usd",
			Status:    models.PaymentStatusCreated,
		}
	}

	t.Run("invalid signature", func(t *testing.T) {
		payload, _ := buildSignedEvent(t, "checkout.session.completed", "cs_1", cart)
		locked := false
		svc, _ := newSettlementService(&storage.MockPaymentStorage{
			GetBySessionIDForUpdateFunc: func(ctx context.Context, tx pgx.Tx, sessionID string) (*models.Payment, error) {
				locked = true
				return nil, storage.ErrPaymentNotFound
			},
		}, &storage.MockEarningStorage{}, &storage.MockWalletStorage{}, &mockOrderClient{})

		err := svc.Settle(ctx, payload, "t=0,v1=deadbeef")
		if !errors.Is(err, ErrInvalidSignature) {
			t.Fatalf("expected ErrInvalidSignature, got %v", err)
		}
		if locked {
			t.Fatal("storage must not be touched on signature failure")
		}
	})

	t.Run("foreign event type is acknowledged", func(t *testing.T) {
		payload, sig := buildSignedEvent(t, "checkout.session.expired", "cs_2", cart)
		svc, beginner := newSettlementService(&storage.MockPaymentStorage{}, &storage.MockEarningStorage{}, &storage.MockWalletStorage{}, &mockOrderClient{})

		if err := svc.Settle(ctx, payload, sig); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if beginner.tx.committed {
			t.Fatal("no transaction expected for a foreign event")
		}
	})

	t.Run("unknown session is acknowledged", func(t *testing.T) {
		payload, sig := buildSignedEvent(t, "checkout.session.completed", "cs_unknown", cart)
		svc, _ := newSettlementService(&storage.MockPaymentStorage{
			GetBySessionIDForUpdateFunc: func(ctx context.Context, tx pgx.Tx, sessionID string) (*models.Payment, error) {
				return nil, storage.ErrPaymentNotFound
			},
		}, &storage.MockEarningStorage{}, &storage.MockWalletStorage{}, &mockOrderClient{})

		if err := svc.Settle(ctx, payload, sig); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("fee split per line", func(t *testing.T) {
		payload, sig := buildSignedEvent(t, "checkout.session.completed", "cs_3", cart)

		var createdEarnings []*models.Earning
		credits := make(map[uuid.UUID]decimal.Decimal)
		markedPaid := false

		svc, beginner := newSettlementService(
			&storage.MockPaymentStorage{
				GetBySessionIDForUpdateFunc: func(ctx context.Context, tx pgx.Tx, sessionID string) (*models.Payment, error) {
					return createdPayment(sessionID), nil
				},
				MarkPaidFunc: func(ctx context.Context, tx pgx.Tx, sessionID string, orderID string) error {
					markedPaid = true
					if orderID != "order-1" {
						t.Fatalf("unexpected order id %s", orderID)
					}
					return nil
				},
			},
			&storage.MockEarningStorage{
				CreateFunc: func(ctx context.Context, tx pgx.Tx, earning *models.Earning) error {
					createdEarnings = append(createdEarnings, earning)
					return nil
				},
			},
			&storage.MockWalletStorage{
				CreditFunc: func(ctx context.Context, tx pgx.Tx, sellerID uuid.UUID, amount decimal.Decimal) error {
					credits[sellerID] = amount
					return nil
				},
			},
			&mockOrderClient{},
		)

		if err := svc.Settle(ctx, payload, sig); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !markedPaid {
			t.Fatal("payment not marked paid")
		}
		if !beginner.tx.committed {
			t.Fatal("transaction not committed")
		}
		if len(createdEarnings) != 2 {
			t.Fatalf("expected 2 earnings, got %d", len(createdEarnings))
		}

		// 100.00 x 2, комиссия 10%: 200.00 -> 20.00 + 180.00
		if got := createdEarnings[0].Amount; !got.Equal(decimal.RequireFromString("180.00")) {
			t.Errorf("seller A amount = %s, want 180.00", got)
		}
		if got := createdEarnings[0].PlatformFee; !got.Equal(decimal.RequireFromString("20.00")) {
			t.Errorf("seller A fee = %s, want 20.00", got)
		}
		// 50.00 x 1: 50.00 -> 5.00 + 45.00
		if got := createdEarnings[1].Amount; !got.Equal(decimal.RequireFromString("45.00")) {
			t.Errorf("seller B amount = %s, want 45.00", got)
		}
		if got := createdEarnings[1].PlatformFee; !got.Equal(decimal.RequireFromString("5.00")) {
			t.Errorf("seller B fee = %s, want 5.00", got)
		}

		if got := credits[sellerA]; !got.Equal(decimal.RequireFromString("180.00")) {
			t.Errorf("wallet A credit = %s, want 180.00", got)
		}
		if got := credits[sellerB]; !got.Equal(decimal.RequireFromString("45.00")) {
			t.Errorf("wallet B credit = %s, want 45.00", got)
		}

		// Сумма начислений и комиссий равна сумме позиций корзины
		total := decimal.Zero
		for _, e := range createdEarnings {
			total = total.Add(e.Amount).Add(e.PlatformFee)
		}
		if !total.Equal(decimal.RequireFromString("250.00")) {
			t.Errorf("earnings total = %s, want 250.00", total)
		}
	})

	t.Run("batched credit per seller", func(t *testing.T) {
		multiCart := []models.CartItem{
			{ProductID: "p1", Price: decimal.RequireFromString("10.00"), Quantity: 1, SellerID: &sellerA},
			{ProductID: "p2", Price: decimal.RequireFromString("20.00"), Quantity: 1, SellerID: &sellerA},
		}
		payload, sig := buildSignedEvent(t, "checkout.session.completed", "cs_4", multiCart)

		creditCalls := 0
		var credited decimal.Decimal
		svc, _ := newSettlementService(
			&storage.MockPaymentStorage{
				GetBySessionIDForUpdateFunc: func(ctx context.Context, tx pgx.Tx, sessionID string) (*models.Payment, error) {
					return createdPayment(sessionID), nil
				},
			},
			&storage.MockEarningStorage{},
			&storage.MockWalletStorage{
				CreditFunc: func(ctx context.Context, tx pgx.Tx, sellerID uuid.UUID, amount decimal.Decimal) error {
					creditCalls++
					credited = amount
					return nil
				},
			},
			&mockOrderClient{},
		)

		if err := svc.Settle(ctx, payload, sig); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if creditCalls != 1 {
			t.Fatalf("expected a single batched credit, got %d", creditCalls)
		}
		// 9.00 + 18.00
		if !credited.Equal(decimal.RequireFromString("27.00")) {
			t.Errorf("credited = %s, want 27.00", credited)
		}
	})

	t.Run("already paid is a no-op", func(t *testing.T) {
		payload, sig := buildSignedEvent(t, "checkout.session.completed", "cs_5", cart)

		earningsCreated := 0
		svc, beginner := newSettlementService(
			&storage.MockPaymentStorage{
				GetBySessionIDForUpdateFunc: func(ctx context.Context, tx pgx.Tx, sessionID string) (*models.Payment, error) {
					p := createdPayment(sessionID)
					p.Status = models.PaymentStatusPaid
					p.OrderID = "order-1"
					return p, nil
				},
			},
			&storage.MockEarningStorage{
				CreateFunc: func(ctx context.Context, tx pgx.Tx, earning *models.Earning) error {
					earningsCreated++
					return nil
				},
			},
			&storage.MockWalletStorage{},
			&mockOrderClient{},
		)

		if err := svc.Settle(ctx, payload, sig); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if earningsCreated != 0 {
			t.Fatalf("expected no earnings on redelivery, got %d", earningsCreated)
		}
		if beginner.tx.committed {
			t.Fatal("no commit expected on redelivery")
		}
	})

	t.Run("repeated delivery settles once", func(t *testing.T) {
		payload, sig := buildSignedEvent(t, "checkout.session.completed", "cs_6", cart)

		payment := createdPayment("cs_6")
		earningsCreated := 0
		svc, _ := newSettlementService(
			&storage.MockPaymentStorage{
				GetBySessionIDForUpdateFunc: func(ctx context.Context, tx pgx.Tx, sessionID string) (*models.Payment, error) {
					return payment, nil
				},
				MarkPaidFunc: func(ctx context.Context, tx pgx.Tx, sessionID string, orderID string) error {
					payment.Status = models.PaymentStatusPaid
					payment.OrderID = orderID
					return nil
				},
			},
			&storage.MockEarningStorage{
				CreateFunc: func(ctx context.Context, tx pgx.Tx, earning *models.Earning) error {
					earningsCreated++
					return nil
				},
			},
			&storage.MockWalletStorage{},
			&mockOrderClient{},
		)

		if err := svc.Settle(ctx, payload, sig); err != nil {
			t.Fatalf("first delivery: %v", err)
		}
		if err := svc.Settle(ctx, payload, sig); err != nil {
			t.Fatalf("second delivery: %v", err)
		}
		if earningsCreated != len(cart) {
			t.Fatalf("expected %d earnings after double delivery, got %d", len(cart), earningsCreated)
		}
	})

	t.Run("terminal payment conflicts", func(t *testing.T) {
		payload, sig := buildSignedEvent(t, "checkout.session.completed", "cs_7", cart)
		svc, _ := newSettlementService(
			&storage.MockPaymentStorage{
				GetBySessionIDForUpdateFunc: func(ctx context.Context, tx pgx.Tx, sessionID string) (*models.Payment, error) {
					p := createdPayment(sessionID)
					p.Status = models.PaymentStatusFailed
					return p, nil
				},
			},
			&storage.MockEarningStorage{}, &storage.MockWalletStorage{}, &mockOrderClient{},
		)

		if err := svc.Settle(ctx, payload, sig); !errors.Is(err, ErrPaymentConflict) {
			t.Fatalf("expected ErrPaymentConflict, got %v", err)
		}
	})

	t.Run("order service failure rolls back", func(t *testing.T) {
		payload, sig := buildSignedEvent(t, "checkout.session.completed", "cs_8", cart)

		markedPaid := false
		svc, beginner := newSettlementService(
			&storage.MockPaymentStorage{
				GetBySessionIDForUpdateFunc: func(ctx context.Context, tx pgx.Tx, sessionID string) (*models.Payment, error) {
					return createdPayment(sessionID), nil
				},
				MarkPaidFunc: func(ctx context.Context, tx pgx.Tx, sessionID string, orderID string) error {
					markedPaid = true
					return nil
				},
			},
			&storage.MockEarningStorage{}, &storage.MockWalletStorage{},
			&mockOrderClient{
				CreateOrderFunc: func(ctx context.Context, buyerID string, totalAmount decimal.Decimal) (string, error) {
					return "", fmt.Errorf("%w: connection refused", orders.ErrUnavailable)
				},
			},
		)

		err := svc.Settle(ctx, payload, sig)
		if !errors.Is(err, orders.ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
		if markedPaid {
			t.Fatal("payment must not be marked paid when order creation fails")
		}
		if beginner.tx.committed {
			t.Fatal("transaction must not be committed")
		}
	})

	t.Run("earning failure keeps payment unsettled", func(t *testing.T) {
		payload, sig := buildSignedEvent(t, "checkout.session.completed", "cs_9", cart)

		credited := false
		svc, beginner := newSettlementService(
			&storage.MockPaymentStorage{
				GetBySessionIDForUpdateFunc: func(ctx context.Context, tx pgx.Tx, sessionID string) (*models.Payment, error) {
					return createdPayment(sessionID), nil
				},
			},
			&storage.MockEarningStorage{
				CreateFunc: func(ctx context.Context, tx pgx.Tx, earning *models.Earning) error {
					return errors.New("db error")
				},
			},
			&storage.MockWalletStorage{
				CreditFunc: func(ctx context.Context, tx pgx.Tx, sellerID uuid.UUID, amount decimal.Decimal) error {
					credited = true
					return nil
				},
			},
			&mockOrderClient{},
		)

		if err := svc.Settle(ctx, payload, sig); err == nil {
			t.Fatal("expected error")
		}
		if credited {
			t.Fatal("wallet must not be credited when earnings fail")
		}
		if beginner.tx.committed {
			t.Fatal("transaction must not be committed")
		}
	})

	t.Run("line without seller accrues to platform", func(t *testing.T) {
		orphanCart := []models.CartItem{
			{ProductID: "p9", Name: "Orphan", Price: decimal.RequireFromString("30.00"), Quantity: 1, SellerID: nil},
		}
		payload, sig := buildSignedEvent(t, "checkout.session.completed", "cs_10", orphanCart)

		var created *models.Earning
		credited := false
		svc, _ := newSettlementService(
			&storage.MockPaymentStorage{
				GetBySessionIDForUpdateFunc: func(ctx context.Context, tx pgx.Tx, sessionID string) (*models.Payment, error) {
					return createdPayment(sessionID), nil
				},
			},
			&storage.MockEarningStorage{
				CreateFunc: func(ctx context.Context, tx pgx.Tx, earning *models.Earning) error {
					created = earning
					return nil
				},
			},
			&storage.MockWalletStorage{
				CreditFunc: func(ctx context.Context, tx pgx.Tx, sellerID uuid.UUID, amount decimal.Decimal) error {
					credited = true
					return nil
				},
			},
			&mockOrderClient{},
		)

		if err := svc.Settle(ctx, payload, sig); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if created == nil {
			t.Fatal("earning row expected for an orphan line")
		}
		if created.SellerID != nil {
			t.Fatal("orphan earning must have no seller")
		}
		if !created.Amount.IsZero() {
			t.Errorf("orphan amount = %s, want 0", created.Amount)
		}
		if !created.PlatformFee.Equal(decimal.RequireFromString("30.00")) {
			t.Errorf("orphan fee = %s, want 30.00", created.PlatformFee)
		}
		if credited {
			t.Fatal("no wallet credit expected for an orphan line")
		}
	})

	t.Run("bound order is not created again", func(t *testing.T) {
		payload, sig := buildSignedEvent(t, "checkout.session.completed", "cs_11", cart)

		orderCalls := 0
		svc, _ := newSettlementService(
			&storage.MockPaymentStorage{
				GetBySessionIDForUpdateFunc: func(ctx context.Context, tx pgx.Tx, sessionID string) (*models.Payment, error) {
					p := createdPayment(sessionID)
					p.OrderID = "order-42"
					return p, nil
				},
				MarkPaidFunc: func(ctx context.Context, tx pgx.Tx, sessionID string, orderID string) error {
					if orderID != "order-42" {
						t.Fatalf("unexpected order id %s", orderID)
					}
					return nil
				},
			},
			&storage.MockEarningStorage{}, &storage.MockWalletStorage{},
			&mockOrderClient{
				CreateOrderFunc: func(ctx context.Context, buyerID string, totalAmount decimal.Decimal) (string, error) {
					orderCalls++
					return "order-new", nil
				},
			},
		)

		if err := svc.Settle(ctx, payload, sig); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if orderCalls != 0 {
			t.Fatalf("order collaborator must not be called, got %d calls", orderCalls)
		}
	})
}

func TestSettlementService_Rounding(t *testing.T) {
	ctx := context.Background()
	seller := uuid.New()

	// 33.33 x 3 = 99.99; комиссия 10% = 10.00 (округление половины вверх)
	cart := []models.CartItem{
		{ProductID: "p1", Price: decimal.RequireFromString("33.33"), Quantity: 3, SellerID: &seller},
	}
	payload, sig := buildSignedEvent(t, "checkout.session.completed", "cs_r", cart)

	var created *models.Earning
	svc, _ := newSettlementService(
		&storage.MockPaymentStorage{
			GetBySessionIDForUpdateFunc: func(ctx context.Context, tx pgx.Tx, sessionID string) (*models.Payment, error) {
				return &models.Payment{
					SessionID: sessionID,
					OrderID:   "order-1",
					Amount:    decimal.RequireFromString("99.99"),
					Status:    models.PaymentStatusCreated,
				}, nil
			},
		},
		&storage.MockEarningStorage{
			CreateFunc: func(ctx context.Context, tx pgx.Tx, earning *models.Earning) error {
				created = earning
				return nil
			},
		},
		&storage.MockWalletStorage{},
		&mockOrderClient{},
	)

	if err := svc.Settle(ctx, payload, sig); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created == nil {
		t.Fatal("earning expected")
	}
	if !created.PlatformFee.Equal(decimal.RequireFromString("10.00")) {
		t.Errorf("fee = %s, want 10.00", created.PlatformFee)
	}
	if !created.Amount.Equal(decimal.RequireFromString("89.99")) {
		t.Errorf("amount = %s, want 89.99", created.Amount)
	}
	// Сумма по строке сходится без потерь на округлении
	if !created.Amount.Add(created.PlatformFee).Equal(decimal.RequireFromString("99.99")) {
		t.Error("per-line sum must equal gross")
	}
}
