package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"felixmart/internal/domain"
)

type VerifyRequest struct {
	PaymentSessionID string `json:"payment_session_id,omitempty"`
	OrderID          string `json:"order_id"`
}

type VerifyResponse struct {
	PaymentStatus   domain.PaymentStatus `json:"payment_status"`
	PaymentAmount   json.Number          `json:"payment_amount,omitempty"`
	PaymentCurrency string               `json:"payment_currency,omitempty"`
	PaymentTime     string               `json:"payment_time,omitempty"`
	OrderID         string               `json:"order_id"`

	Result *domain.PaymentResult `json:"-"`
}

// VerifyService asks the gateway what happened to an order's payment. It
// reads only; nothing in the order store changes here.
type VerifyService struct {
	Gateway Gateway
	Log     *slog.Logger

	group singleflight.Group
}

// Verify returns the gateway's view of the payment. When the status cannot
// be determined it returns an UNKNOWN response together with a
// *VerificationError.
func (s *VerifyService) Verify(ctx context.Context, req VerifyRequest) (*VerifyResponse, error) {
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return nil, &domain.ValidationError{Fields: []string{"order_id"}, Msg: "order_id required"}
	}
	ch := s.group.DoChan(orderID, func() (any, error) {
		return s.fetch(context.WithoutCancel(ctx), orderID)
	})
	var (
		res *domain.PaymentResult
		err error
	)
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case r := <-ch:
		err = r.Err
		if err == nil {
			res = r.Val.(*domain.PaymentResult)
		}
	}
	if err != nil {
		s.logger().Warn("payment verification failed", "order_id", orderID, "err", err)
		return &VerifyResponse{PaymentStatus: domain.PaymentUnknown, OrderID: orderID},
			&VerificationError{OrderID: orderID, Err: err}
	}
	out := &VerifyResponse{
		PaymentStatus:   res.Status,
		PaymentCurrency: res.Currency,
		OrderID:         orderID,
		Result:          res,
	}
	if !res.Amount.IsZero() {
		out.PaymentAmount = json.Number(res.Amount.StringFixed(2))
	}
	if !res.Time.IsZero() {
		out.PaymentTime = res.Time.UTC().Format(time.RFC3339)
	}
	s.logger().Info("payment verified", "order_id", orderID, "payment_status", string(res.Status))
	return out, nil
}

func (s *VerifyService) fetch(ctx context.Context, orderID string) (*domain.PaymentResult, error) {
	token, err := s.Gateway.FetchAccessToken(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.Gateway.FetchPaymentStatus(ctx, orderID, token)
	if err != nil {
		return nil, err
	}
	if res.OrderID == "" {
		res.OrderID = orderID
	}
	return res, nil
}

func (s *VerifyService) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}
