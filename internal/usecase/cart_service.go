package usecase

import (
	"context"
	"strings"

	"felixmart/internal/domain"
)

type CartRepo interface {
	ListCart(ctx context.Context, userID string) ([]domain.CartItem, error)
	UpsertCartItem(ctx context.Context, item domain.CartItem) error
	DeleteCartItem(ctx context.Context, userID, productID string) error
	ClearCart(ctx context.Context, userID string, productIDs ...string) error
}

type ProductRepo interface {
	GetProducts(ctx context.Context, ids []string) (map[string]domain.Product, error)
}

type CartService struct {
	Repo     CartRepo
	Products ProductRepo
}

func (s *CartService) List(ctx context.Context, userID string) ([]domain.CartItem, error) {
	items, err := s.Repo.ListCart(ctx, userID)
	if err != nil {
		return nil, &PersistenceError{Op: "list cart", Err: err}
	}
	return items, nil
}

// Add increments the quantity of a product in the cart, never beyond the
// product's stock.
func (s *CartService) Add(ctx context.Context, userID, productID string, qty int) (*domain.CartItem, error) {
	if qty <= 0 {
		return nil, ErrBadRequest("quantity must be positive")
	}
	items, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	current := 0
	for _, it := range items {
		if it.ProductID == productID {
			current = it.Quantity
		}
	}
	return s.set(ctx, userID, productID, current+qty)
}

func (s *CartService) SetQuantity(ctx context.Context, userID, productID string, qty int) (*domain.CartItem, error) {
	if qty <= 0 {
		return nil, s.Remove(ctx, userID, productID)
	}
	return s.set(ctx, userID, productID, qty)
}

func (s *CartService) Remove(ctx context.Context, userID, productID string) error {
	if err := s.Repo.DeleteCartItem(ctx, userID, productID); err != nil {
		return &PersistenceError{Op: "remove cart item", Err: err}
	}
	return nil
}

func (s *CartService) set(ctx context.Context, userID, productID string, qty int) (*domain.CartItem, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, ErrBadRequest("product_id required")
	}
	products, err := s.Products.GetProducts(ctx, []string{productID})
	if err != nil {
		return nil, &PersistenceError{Op: "load product", Err: err}
	}
	p, ok := products[productID]
	if !ok {
		return nil, ErrNotFound("product")
	}
	if qty > p.StockQuantity {
		return nil, ErrConflict("quantity exceeds stock")
	}
	item := domain.CartItem{UserID: userID, ProductID: productID, Quantity: qty}
	if err := s.Repo.UpsertCartItem(ctx, item); err != nil {
		return nil, &PersistenceError{Op: "update cart", Err: err}
	}
	return &item, nil
}
