package store

import (
	"context"
	"sync"

	"github.com/efreitasn/mocktrader/internal/domain"
)

// OrderStore is a thread-safe in-memory store for orders,
// with a primary index by order id and a secondary index by investor id.
// It stores and returns copies so callers must save to persist changes.
type OrderStore struct {
	mu             sync.RWMutex
	orders         map[string]*domain.Order
	investorOrders map[int64][]string // investor_id → order ids (creation order)
}

// NewOrderStore creates an empty OrderStore.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders:         make(map[string]*domain.Order),
		investorOrders: make(map[int64][]string),
	}
}

// CreateOrder adds an order to the store and appends it to the
// investor's secondary index.
func (s *OrderStore) CreateOrder(_ context.Context, o *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders[o.OrderID] = o.Clone()
	s.investorOrders[o.InvestorID] = append(s.investorOrders[o.InvestorID], o.OrderID)
	return nil
}

// GetOrder retrieves an order by ID. It returns
// domain.ErrOrderNotFound if the order does not exist.
func (s *OrderStore) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return o.Clone(), nil
}

// UpdateOrder replaces the stored quantities and status of an existing order.
// Identity fields (owner, security, creation time) are never rewritten.
func (s *OrderStore) UpdateOrder(_ context.Context, o *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.orders[o.OrderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	existing.OriginalQty = o.OriginalQty
	existing.ExecutedQty = o.ExecutedQty
	existing.Status = o.Status
	return nil
}

// ListOrdersByInvestor returns the investor's orders in creation order.
// Returns an empty slice if the investor has no orders.
func (s *OrderStore) ListOrdersByInvestor(_ context.Context, investorID int64) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.investorOrders[investorID]
	result := make([]*domain.Order, 0, len(ids))
	for _, id := range ids {
		result = append(result, s.orders[id].Clone())
	}
	return result, nil
}
