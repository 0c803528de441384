package usecase

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"felixmart/internal/domain"
)

type OrderRepo interface {
	CreateOrder(ctx context.Context, o *domain.Order) error
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context, f domain.OrderFilter) ([]domain.Order, int, error)
	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error
	TransitionStatus(ctx context.Context, id string, from, to domain.OrderStatus) (bool, error)
	SetPaymentSession(ctx context.Context, id, sessionID string) error
	ConfirmPaid(ctx context.Context, id string) (bool, error)
}

type OrderService struct {
	Repo     OrderRepo
	Products ProductRepo
	// DeliveryCharge is added once per order on top of the item total.
	DeliveryCharge decimal.Decimal
	Log            *slog.Logger
}

// Place creates one pending order from a cart snapshot. Prices are taken
// from the catalog at this moment and frozen on the order items.
func (s *OrderService) Place(ctx context.Context, userID string, shipping domain.ShippingAddress, cart []domain.CartItem) (*domain.Order, error) {
	if err := shipping.Validate(); err != nil {
		return nil, err
	}
	if len(cart) == 0 {
		return nil, &domain.ValidationError{Msg: "cart is empty"}
	}
	ids := make([]string, 0, len(cart))
	for _, it := range cart {
		ids = append(ids, it.ProductID)
	}
	products, err := s.Products.GetProducts(ctx, ids)
	if err != nil {
		return nil, &PersistenceError{Op: "load products", Err: err}
	}
	var unavailable, short []string
	items := make([]domain.OrderItem, 0, len(cart))
	for _, it := range cart {
		p, ok := products[it.ProductID]
		if !ok || it.Quantity <= 0 {
			unavailable = append(unavailable, it.ProductID)
			continue
		}
		if it.Quantity > p.StockQuantity {
			short = append(short, it.ProductID)
			continue
		}
		items = append(items, domain.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: p.Price})
	}
	if len(unavailable) > 0 {
		return nil, &domain.ValidationError{Fields: unavailable, Msg: "products unavailable"}
	}
	if len(short) > 0 {
		return nil, &domain.ValidationError{Fields: short, Msg: "insufficient stock"}
	}
	o := &domain.Order{
		UserID:   userID,
		Status:   domain.OrderPending,
		Shipping: shipping,
		Items:    items,
	}
	o.TotalAmount = o.ItemsTotal().Add(s.DeliveryCharge)
	if err := s.Repo.CreateOrder(ctx, o); err != nil {
		return nil, &PersistenceError{Op: "create order", Err: err}
	}
	s.logger().Info("order placed", "order_id", o.ID, "user_id", userID, "total", o.TotalAmount.StringFixed(2), "items", len(items))
	return o, nil
}

// Get returns the order if the principal owns it or is an admin. Other
// callers get not-found rather than a hint that the order exists.
func (s *OrderService) Get(ctx context.Context, p domain.Principal, id string) (*domain.Order, error) {
	o, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		return nil, storeErr("get order", "order", err)
	}
	if !p.Admin && o.UserID != p.UserID {
		return nil, ErrNotFound("order")
	}
	return o, nil
}

func (s *OrderService) List(ctx context.Context, p domain.Principal, f domain.OrderFilter) ([]domain.Order, int, error) {
	if !p.Admin {
		f.UserID = p.UserID
	}
	list, total, err := s.Repo.ListOrders(ctx, f)
	if err != nil {
		return nil, 0, &PersistenceError{Op: "list orders", Err: err}
	}
	return list, total, nil
}

// UpdateStatus is the manual admin transition. The status is stored exactly
// as given once it is recognised.
func (s *OrderService) UpdateStatus(ctx context.Context, id, status string) (*domain.Order, error) {
	st, ok := domain.ParseOrderStatus(status)
	if !ok {
		return nil, ErrBadRequest("invalid status")
	}
	if err := s.Repo.UpdateOrderStatus(ctx, id, st); err != nil {
		return nil, storeErr("update order status", "order", err)
	}
	s.logger().Info("order status updated", "order_id", id, "status", string(st))
	o, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		return nil, storeErr("get order", "order", err)
	}
	return o, nil
}

func (s *OrderService) AttachSession(ctx context.Context, id, sessionID string) error {
	if err := s.Repo.SetPaymentSession(ctx, id, sessionID); err != nil {
		return storeErr("attach payment session", "order", err)
	}
	return nil
}

// ConfirmPayment moves a pending order to paid after a verified SUCCESS,
// provided the paid amount matches the order total. It reports whether this
// call made the transition; repeated confirmations are no-ops.
func (s *OrderService) ConfirmPayment(ctx context.Context, id string, paid *domain.PaymentResult) (bool, error) {
	if paid == nil || paid.Status != domain.PaymentSuccess {
		return false, ErrBadRequest("payment not successful")
	}
	o, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		return false, storeErr("get order", "order", err)
	}
	if !paid.Amount.IsZero() && !paid.Amount.Equal(o.TotalAmount) {
		s.logger().Warn("payment amount mismatch", "order_id", id, "order_total", o.TotalAmount.StringFixed(2), "paid", paid.Amount.StringFixed(2))
		return false, ErrConflict("payment amount does not match order total")
	}
	ok, err := s.Repo.ConfirmPaid(ctx, id)
	if err != nil {
		return false, storeErr("confirm payment", "order", err)
	}
	if ok {
		s.logger().Info("order paid", "order_id", id, "user_id", o.UserID)
	} else {
		s.logger().Info("order not pending, payment confirmation skipped", "order_id", id, "status", string(o.Status))
	}
	return ok, nil
}

func (s *OrderService) MarkFailed(ctx context.Context, id string) (bool, error) {
	ok, err := s.Repo.TransitionStatus(ctx, id, domain.OrderPending, domain.OrderFailed)
	if err != nil {
		return false, storeErr("mark order failed", "order", err)
	}
	if ok {
		s.logger().Info("order payment failed", "order_id", id)
	}
	return ok, nil
}

func (s *OrderService) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}
