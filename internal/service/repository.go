package service

import (
	"context"
	"time"

	"github.com/efreitasn/mocktrader/internal/domain"
)

// OrderRepository persists orders. GetOrder and UpdateOrder return
// domain.ErrOrderNotFound for unknown ids; any other error is a storage
// failure and is passed through unchanged.
type OrderRepository interface {
	CreateOrder(ctx context.Context, o *domain.Order) error
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	UpdateOrder(ctx context.Context, o *domain.Order) error
	ListOrdersByInvestor(ctx context.Context, investorID int64) ([]*domain.Order, error)
}

// InvestorRepository persists investors and their credential hashes.
type InvestorRepository interface {
	CreateInvestor(ctx context.Context, inv *domain.Investor) error
	GetInvestor(ctx context.Context, id int64) (*domain.Investor, error)
	GetInvestorByUsername(ctx context.Context, username string) (*domain.Investor, error)
}

// SessionRepository persists issued session tokens.
type SessionRepository interface {
	CreateSession(ctx context.Context, s *domain.Session) error
	GetSession(ctx context.Context, token string) (*domain.Session, error)
	DeleteSessionsIssuedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
