package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/efreitasn/mocktrader/internal/domain"
	"github.com/efreitasn/mocktrader/internal/engine"
)

const maxSecurityLen = 64

// OrderService is the only component aware of the calling investor. It
// checks ownership and terminal states, runs the lifecycle engine and
// persists the result.
type OrderService struct {
	lifecycle *engine.Lifecycle
	orders    OrderRepository
	locks     *orderLocks
	logger    *slog.Logger
}

// NewOrderService creates a new OrderService with the given dependencies.
func NewOrderService(lifecycle *engine.Lifecycle, orders OrderRepository, logger *slog.Logger) *OrderService {
	return &OrderService{
		lifecycle: lifecycle,
		orders:    orders,
		locks:     newOrderLocks(),
		logger:    logger,
	}
}

// PlaceOrder creates a pending order for the caller.
func (s *OrderService) PlaceOrder(ctx context.Context, caller domain.Caller, security string, qty int64) (*domain.Order, error) {
	security = strings.TrimSpace(security)
	if security == "" {
		return nil, &domain.ValidationError{Message: "security is required"}
	}
	if len(security) > maxSecurityLen {
		return nil, &domain.ValidationError{Message: "security must be at most 64 characters"}
	}

	order, err := s.lifecycle.Create(caller.InvestorID, security, qty)
	if err != nil {
		return nil, err
	}
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Debug("order placed",
		slog.String("order_id", order.OrderID),
		slog.Int64("investor_id", caller.InvestorID),
		slog.String("security", order.Security),
		slog.Int64("qty", order.OriginalQty),
	)
	return order, nil
}

// GetOrder returns one of the caller's orders.
func (s *OrderService) GetOrder(ctx context.Context, caller domain.Caller, orderID string) (*domain.Order, error) {
	return s.loadOwned(ctx, caller, orderID)
}

// AmendOrder changes the total quantity of a non-terminal order.
func (s *OrderService) AmendOrder(ctx context.Context, caller domain.Caller, orderID string, newQty int64) (*domain.Order, error) {
	return s.mutate(ctx, caller, orderID, "order amended", func(o *domain.Order) error {
		return s.lifecycle.Amend(o, newQty)
	})
}

// ExecuteOrder fills part or all of a non-terminal order.
func (s *OrderService) ExecuteOrder(ctx context.Context, caller domain.Caller, orderID string, fillQty int64) (*domain.Order, error) {
	return s.mutate(ctx, caller, orderID, "order executed", func(o *domain.Order) error {
		return s.lifecycle.Execute(o, fillQty)
	})
}

// CancelOrder cancels a non-terminal order.
func (s *OrderService) CancelOrder(ctx context.Context, caller domain.Caller, orderID string) (*domain.Order, error) {
	return s.mutate(ctx, caller, orderID, "order cancelled", func(o *domain.Order) error {
		s.lifecycle.Cancel(o)
		return nil
	})
}

// ListOrders returns every order owned by the caller in repository order.
func (s *OrderService) ListOrders(ctx context.Context, caller domain.Caller) ([]*domain.Order, error) {
	orders, err := s.orders.ListOrdersByInvestor(ctx, caller.InvestorID)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		o.Status = o.DeriveStatus()
	}
	return orders, nil
}

// GetPortfolio aggregates the caller's executed quantities per security.
func (s *OrderService) GetPortfolio(ctx context.Context, caller domain.Caller) (*engine.Portfolio, error) {
	orders, err := s.ListOrders(ctx, caller)
	if err != nil {
		return nil, err
	}
	return engine.Aggregate(orders), nil
}

// mutate runs one load-check-apply-save sequence while holding the order's
// lock.
func (s *OrderService) mutate(
	ctx context.Context,
	caller domain.Caller,
	orderID string,
	event string,
	apply func(*domain.Order) error,
) (*domain.Order, error) {
	// Unknown or foreign ids are rejected before a lock entry is created.
	if _, err := s.loadOwned(ctx, caller, orderID); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(orderID)
	defer unlock()

	order, err := s.loadOwned(ctx, caller, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, domain.ErrInvalidState
	}
	if err := apply(order); err != nil {
		return nil, err
	}
	if err := s.orders.UpdateOrder(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Debug(event,
		slog.String("order_id", order.OrderID),
		slog.Int64("original_qty", order.OriginalQty),
		slog.Int64("executed_qty", order.ExecutedQty),
		slog.String("status", string(order.Status)),
	)
	return order, nil
}

func (s *OrderService) loadOwned(ctx context.Context, caller domain.Caller, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !caller.Owns(order) {
		return nil, domain.ErrForbidden
	}
	// Never trust a stored status across calls.
	order.Status = order.DeriveStatus()
	return order, nil
}
