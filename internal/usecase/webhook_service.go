package usecase

import (
	"context"
	"log/slog"

	"felixmart/internal/domain"
	"felixmart/internal/infrastructure/cashfree"
)

type WebhookVerifier interface {
	VerifyWebhook(timestamp string, body []byte, signature string) error
}

// WebhookService applies signed gateway payment notifications to orders.
type WebhookService struct {
	Verifier WebhookVerifier
	Orders   *OrderService
	Log      *slog.Logger
}

// Handle verifies and applies one notification. It reports whether the
// order changed.
func (s *WebhookService) Handle(ctx context.Context, timestamp, signature string, body []byte) (bool, error) {
	if err := s.Verifier.VerifyWebhook(timestamp, body, signature); err != nil {
		return false, ErrForbidden("invalid webhook signature")
	}
	ev, err := cashfree.ParseWebhook(body)
	if err != nil {
		return false, ErrBadRequest("malformed webhook: " + err.Error())
	}
	orderID := ev.Data.Order.OrderID
	log := s.logger().With("order_id", orderID, "event", ev.Type)
	switch ev.Type {
	case cashfree.EventPaymentSuccess:
		amount := ev.Data.Payment.PaymentAmount
		if amount.IsZero() {
			amount = ev.Data.Order.OrderAmount
		}
		changed, err := s.Orders.ConfirmPayment(ctx, orderID, &domain.PaymentResult{
			OrderID:  orderID,
			Status:   cashfree.NormalizeStatus(ev.Data.Payment.PaymentStatus),
			Amount:   amount,
			Currency: ev.Data.Payment.PaymentCurrency,
		})
		if err != nil {
			log.Warn("webhook confirm failed", "err", err)
			return false, err
		}
		return changed, nil
	case cashfree.EventPaymentFailed:
		return s.Orders.MarkFailed(ctx, orderID)
	default:
		log.Info("webhook ignored")
		return false, nil
	}
}

func (s *WebhookService) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}
