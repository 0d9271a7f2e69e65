package store

import (
	"context"
	"sync"

	"github.com/efreitasn/mocktrader/internal/domain"
)

// InvestorStore is a thread-safe in-memory store for investors,
// keyed by investor id with a unique username index.
type InvestorStore struct {
	mu         sync.RWMutex
	nextID     int64
	investors  map[int64]*domain.Investor
	byUsername map[string]int64
}

// NewInvestorStore creates an empty InvestorStore.
func NewInvestorStore() *InvestorStore {
	return &InvestorStore{
		investors:  make(map[int64]*domain.Investor),
		byUsername: make(map[string]int64),
	}
}

// CreateInvestor adds an investor and assigns its id. It returns
// domain.ErrUsernameTaken if the username is already registered.
func (s *InvestorStore) CreateInvestor(_ context.Context, inv *domain.Investor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byUsername[inv.Username]; exists {
		return domain.ErrUsernameTaken
	}
	s.nextID++
	inv.InvestorID = s.nextID

	stored := *inv
	s.investors[stored.InvestorID] = &stored
	s.byUsername[stored.Username] = stored.InvestorID
	return nil
}

// GetInvestor retrieves an investor by id. It returns
// domain.ErrInvestorNotFound if the investor does not exist.
func (s *InvestorStore) GetInvestor(_ context.Context, id int64) (*domain.Investor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.investors[id]
	if !ok {
		return nil, domain.ErrInvestorNotFound
	}
	c := *inv
	return &c, nil
}

// GetInvestorByUsername retrieves an investor by username. It returns
// domain.ErrInvestorNotFound if no investor has that username.
func (s *InvestorStore) GetInvestorByUsername(ctx context.Context, username string) (*domain.Investor, error) {
	s.mu.RLock()
	id, ok := s.byUsername[username]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrInvestorNotFound
	}
	return s.GetInvestor(ctx, id)
}
