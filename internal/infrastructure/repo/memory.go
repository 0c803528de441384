package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"felixmart/internal/domain"
)

// MemoryStore keeps orders, carts and the product catalog in process.
// Values are copied in and out so callers never share state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	orders   map[string]*domain.Order
	carts    map[string]map[string]domain.CartItem
	products map[string]domain.Product
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:   make(map[string]*domain.Order),
		carts:    make(map[string]map[string]domain.CartItem),
		products: make(map[string]domain.Product),
	}
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) PutProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

func (s *MemoryStore) GetProducts(_ context.Context, ids []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateOrder(_ context.Context, o *domain.Order) error {
	if len(o.Items) == 0 {
		return fmt.Errorf("order without items")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if _, exists := s.orders[o.ID]; exists {
		return fmt.Errorf("order %s already exists", o.ID)
	}
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
	}
	s.orders[o.ID] = copyOrder(o)
	return nil
}

func (s *MemoryStore) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	return copyOrder(o), nil
}

func (s *MemoryStore) ListOrders(_ context.Context, f domain.OrderFilter) ([]domain.Order, int, error) {
	f = f.Normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if f.UserID != "" && o.UserID != f.UserID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		all = append(all, *copyOrder(o))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	start := (f.Page - 1) * f.PageSize
	if start > total {
		start = total
	}
	end := start + f.PageSize
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (s *MemoryStore) UpdateOrderStatus(_ context.Context, id string, status domain.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) TransitionStatus(_ context.Context, id string, from, to domain.OrderStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return false, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	if o.Status != from {
		return false, nil
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *MemoryStore) SetPaymentSession(_ context.Context, id, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	o.PaymentSessionID = sessionID
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) ConfirmPaid(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return false, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	if o.Status != domain.OrderPending {
		return false, nil
	}
	o.Status = domain.OrderPaid
	o.UpdatedAt = time.Now().UTC()
	cart := s.carts[o.UserID]
	for _, it := range o.Items {
		if p, ok := s.products[it.ProductID]; ok {
			p.StockQuantity -= it.Quantity
			if p.StockQuantity < 0 {
				p.StockQuantity = 0
			}
			s.products[it.ProductID] = p
		}
		delete(cart, it.ProductID)
	}
	return true, nil
}

func (s *MemoryStore) ListCart(_ context.Context, userID string) ([]domain.CartItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cart := s.carts[userID]
	out := make([]domain.CartItem, 0, len(cart))
	for _, it := range cart {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (s *MemoryStore) UpsertCartItem(_ context.Context, item domain.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart, ok := s.carts[item.UserID]
	if !ok {
		cart = make(map[string]domain.CartItem)
		s.carts[item.UserID] = cart
	}
	item.UpdatedAt = time.Now().UTC()
	cart[item.ProductID] = item
	return nil
}

func (s *MemoryStore) DeleteCartItem(_ context.Context, userID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts[userID], productID)
	return nil
}

func (s *MemoryStore) ClearCart(_ context.Context, userID string, productIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(productIDs) == 0 {
		delete(s.carts, userID)
		return nil
	}
	for _, pid := range productIDs {
		delete(s.carts[userID], pid)
	}
	return nil
}

func copyOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = make([]domain.OrderItem, len(o.Items))
	copy(cp.Items, o.Items)
	return &cp
}
