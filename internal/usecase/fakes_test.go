package usecase

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"felixmart/internal/domain"
	"felixmart/internal/infrastructure/cashfree"
	"felixmart/internal/infrastructure/repo"
)

type fakeGateway struct {
	mu       sync.Mutex
	created  []cashfree.CreateOrderRequest
	createFn func(req cashfree.CreateOrderRequest) (*cashfree.RemoteOrder, error)

	statusCalls atomic.Int32
	tokenErr    error
	statusErr   error
	result      *domain.PaymentResult
	// release, when set, blocks status calls until closed.
	release chan struct{}
}

func (g *fakeGateway) CreateOrder(_ context.Context, req cashfree.CreateOrderRequest) (*cashfree.RemoteOrder, error) {
	g.mu.Lock()
	g.created = append(g.created, req)
	g.mu.Unlock()
	if g.createFn != nil {
		return g.createFn(req)
	}
	return &cashfree.RemoteOrder{
		OrderID:          req.OrderID,
		PaymentSessionID: "sess_" + req.OrderID,
		OrderStatus:      "ACTIVE",
		OrderAmount:      req.Amount,
		OrderCurrency:    "INR",
	}, nil
}

func (g *fakeGateway) FetchAccessToken(context.Context) (string, error) {
	return "tok", g.tokenErr
}

func (g *fakeGateway) FetchPaymentStatus(_ context.Context, orderID, _ string) (*domain.PaymentResult, error) {
	g.statusCalls.Add(1)
	if g.release != nil {
		<-g.release
	}
	if g.statusErr != nil {
		return nil, g.statusErr
	}
	if g.result == nil {
		return &domain.PaymentResult{OrderID: orderID, Status: domain.PaymentPending}, nil
	}
	r := *g.result
	return &r, nil
}

func (g *fakeGateway) createCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.created)
}

func seededStore() *repo.MemoryStore {
	s := repo.NewMemoryStore()
	s.PutProduct(domain.Product{ID: "rattle", Name: "Wooden rattle", Price: decimal.NewFromInt(100), StockQuantity: 5})
	s.PutProduct(domain.Product{ID: "bib", Name: "Cotton bib", Price: decimal.RequireFromString("49.50"), StockQuantity: 1})
	return s
}

func shipping() domain.ShippingAddress {
	return domain.ShippingAddress{Name: "Asha", Address: "12 MG Road", City: "Pune", PostalCode: "411001", Phone: "9999999999"}
}

func newOrderService(s *repo.MemoryStore) *OrderService {
	return &OrderService{Repo: s, Products: s, DeliveryCharge: decimal.NewFromInt(70)}
}
