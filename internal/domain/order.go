package domain

import "time"

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPartial   OrderStatus = "partial"
	OrderStatusExecuted  OrderStatus = "executed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// ParseOrderStatus converts a stored status string back to an OrderStatus.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch st := OrderStatus(s); st {
	case OrderStatusPending, OrderStatusPartial, OrderStatusExecuted, OrderStatusCancelled:
		return st, true
	}
	return "", false
}

// Terminal reports whether no further amendment, execution or cancellation
// is accepted for an order in this status.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusExecuted || s == OrderStatusCancelled
}

// Order is an investor's instruction to trade a quantity of a security.
type Order struct {
	OrderID     string
	InvestorID  int64
	Security    string
	OriginalQty int64
	ExecutedQty int64
	Status      OrderStatus
	CreatedAt   time.Time
}

// PendingQty returns the quantity still to be executed.
func (o *Order) PendingQty() int64 {
	return o.OriginalQty - o.ExecutedQty
}

// Cancelled reports whether the order has been cancelled.
func (o *Order) Cancelled() bool {
	return o.Status == OrderStatusCancelled
}

// DeriveStatus computes the status implied by the order's quantities.
// A cancelled order stays cancelled regardless of its quantities.
func (o *Order) DeriveStatus() OrderStatus {
	switch {
	case o.Cancelled():
		return OrderStatusCancelled
	case o.ExecutedQty == o.OriginalQty:
		return OrderStatusExecuted
	case o.ExecutedQty > 0:
		return OrderStatusPartial
	default:
		return OrderStatusPending
	}
}

// Clone returns a copy of the order.
func (o *Order) Clone() *Order {
	c := *o
	return &c
}
