package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/mocktrader/internal/domain"
)

// Lifecycle applies order state transitions. It performs no I/O; callers
// persist the order after every successful call.
type Lifecycle struct {
	newID func() string
	now   func() time.Time
}

// NewLifecycle creates a Lifecycle that assigns UUID order ids and stamps
// orders with the wall clock.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		newID: func() string { return uuid.New().String() },
		now:   time.Now,
	}
}

// Create builds a new pending order for the investor.
func (l *Lifecycle) Create(investorID int64, security string, qty int64) (*domain.Order, error) {
	if qty <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	return &domain.Order{
		OrderID:     l.newID(),
		InvestorID:  investorID,
		Security:    security,
		OriginalQty: qty,
		ExecutedQty: 0,
		Status:      domain.OrderStatusPending,
		CreatedAt:   l.now().UTC(),
	}, nil
}

// Amend replaces the order's total quantity. The new quantity must be
// positive and not below what has already been executed.
func (l *Lifecycle) Amend(o *domain.Order, newQty int64) error {
	if o.Cancelled() {
		return domain.ErrInvalidState
	}
	if newQty <= 0 || newQty < o.ExecutedQty {
		return domain.ErrInvalidAmendment
	}
	o.OriginalQty = newQty
	o.Status = o.DeriveStatus()
	return nil
}

// Execute fills fillQty more of the order. Fills accumulate across calls
// and may never exceed the order's total quantity.
func (l *Lifecycle) Execute(o *domain.Order, fillQty int64) error {
	if o.Cancelled() {
		return domain.ErrInvalidState
	}
	if fillQty <= 0 || fillQty > o.PendingQty() {
		return domain.ErrInvalidExecution
	}
	o.ExecutedQty += fillQty
	o.Status = o.DeriveStatus()
	return nil
}

// Cancel marks the order cancelled, freezing both quantities. Cancelling
// an already cancelled order leaves it unchanged.
func (l *Lifecycle) Cancel(o *domain.Order) {
	o.Status = domain.OrderStatusCancelled
}
