package services

import (
	"context"
	"log"
	"time"
)

// ExpiryWorker периодически помечает брошенные checkout-сессии как failed.
// Платёж в статусе created, по которому провайдер так и не прислал событие
// завершения, не должен висеть вечно.
type ExpiryWorker struct {
	paymentStorage PaymentStorage
	ttl            time.Duration
	interval       time.Duration
	logger         *log.Logger
}

func NewExpiryWorker(paymentStorage PaymentStorage, ttl, interval time.Duration, logger *log.Logger) *ExpiryWorker {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ExpiryWorker{
		paymentStorage: paymentStorage,
		ttl:            ttl,
		interval:       interval,
		logger:         logger,
	}
}

// Start запускает воркер в отдельной горутине и останавливается по ctx.Done().
func (w *ExpiryWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	go func() {
		defer ticker.Stop()
		if err := w.expireStale(ctx); err != nil {
			w.logger.Printf("expiry worker error on initial sweep: %v", err)
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := w.expireStale(ctx); err != nil {
					w.logger.Printf("expiry worker error: %v", err)
				}
			}
		}
	}()
}

func (w *ExpiryWorker) expireStale(ctx context.Context) error {
	cutoff := time.Now().Add(-w.ttl)
	count, err := w.paymentStorage.ExpireCreatedBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	if count > 0 {
		w.logger.Printf("expired %d stale payments", count)
	}
	return nil
}
