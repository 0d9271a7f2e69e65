package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/efreitasn/mocktrader/internal/domain"
	"github.com/efreitasn/mocktrader/internal/engine"
	"github.com/efreitasn/mocktrader/internal/store"
)

var (
	_ OrderRepository    = (*store.OrderStore)(nil)
	_ OrderRepository    = (*store.SQLiteStore)(nil)
	_ InvestorRepository = (*store.InvestorStore)(nil)
	_ InvestorRepository = (*store.SQLiteStore)(nil)
	_ SessionRepository  = (*store.SessionStore)(nil)
	_ SessionRepository  = (*store.SQLiteStore)(nil)
)

var (
	alice = domain.Caller{InvestorID: 1, Username: "alice"}
	bob   = domain.Caller{InvestorID: 2, Username: "bob"}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testOrderEnv bundles all dependencies needed for OrderService tests.
type testOrderEnv struct {
	orderStore *store.OrderStore
	svc        *OrderService
}

func newTestOrderEnv() *testOrderEnv {
	os := store.NewOrderStore()
	return &testOrderEnv{
		orderStore: os,
		svc:        NewOrderService(engine.NewLifecycle(), os, discardLogger()),
	}
}

func (env *testOrderEnv) place(t *testing.T, caller domain.Caller, security string, qty int64) *domain.Order {
	t.Helper()
	o, err := env.svc.PlaceOrder(context.Background(), caller, security, qty)
	if err != nil {
		t.Fatalf("PlaceOrder(%s, %d): %v", security, qty, err)
	}
	return o
}

func (env *testOrderEnv) execute(t *testing.T, caller domain.Caller, id string, qty int64) *domain.Order {
	t.Helper()
	o, err := env.svc.ExecuteOrder(context.Background(), caller, id, qty)
	if err != nil {
		t.Fatalf("ExecuteOrder(%s, %d): %v", id, qty, err)
	}
	return o
}

// --- PlaceOrder ---

func TestPlaceOrder_Pending(t *testing.T) {
	env := newTestOrderEnv()
	o := env.place(t, alice, "  ABC ", 100)

	if o.Status != domain.OrderStatusPending {
		t.Errorf("Status = %s, want pending", o.Status)
	}
	if o.Security != "ABC" {
		t.Errorf("Security = %q, want trimmed ABC", o.Security)
	}
	if o.InvestorID != alice.InvestorID {
		t.Errorf("InvestorID = %d, want %d", o.InvestorID, alice.InvestorID)
	}

	stored, err := env.orderStore.GetOrder(context.Background(), o.OrderID)
	if err != nil {
		t.Fatalf("order not persisted: %v", err)
	}
	if stored.OriginalQty != 100 || stored.ExecutedQty != 0 {
		t.Errorf("stored order = %+v", stored)
	}
}

func TestPlaceOrder_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		security string
		qty      int64
		check    func(error) bool
	}{
		{"zero quantity", "ABC", 0, func(err error) bool { return errors.Is(err, domain.ErrInvalidQuantity) }},
		{"negative quantity", "ABC", -10, func(err error) bool { return errors.Is(err, domain.ErrInvalidQuantity) }},
		{"blank security", "   ", 10, isValidationError},
		{"long security", fmt.Sprintf("%065d", 0), 10, isValidationError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestOrderEnv()
			_, err := env.svc.PlaceOrder(context.Background(), alice, tt.security, tt.qty)
			if !tt.check(err) {
				t.Fatalf("unexpected error %v", err)
			}
			orders, _ := env.orderStore.ListOrdersByInvestor(context.Background(), alice.InvestorID)
			if len(orders) != 0 {
				t.Fatalf("rejected order was persisted")
			}
		})
	}
}

func isValidationError(err error) bool {
	var ve *domain.ValidationError
	return errors.As(err, &ve)
}

// --- Scenarios ---

func TestScenario_PartialThenFullExecution(t *testing.T) {
	env := newTestOrderEnv()
	o := env.place(t, alice, "ABC", 100)

	o = env.execute(t, alice, o.OrderID, 40)
	if o.Status != domain.OrderStatusPartial || o.ExecutedQty != 40 || o.PendingQty() != 60 {
		t.Fatalf("after 40: %+v", o)
	}

	o = env.execute(t, alice, o.OrderID, 60)
	if o.Status != domain.OrderStatusExecuted || o.ExecutedQty != 100 {
		t.Fatalf("after 60: %+v", o)
	}

	// Executed orders are terminal for the facade.
	_, err := env.svc.ExecuteOrder(context.Background(), alice, o.OrderID, 1)
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("execute on executed order: got %v, want ErrInvalidState", err)
	}
}

func TestScenario_AmendBelowExecuted(t *testing.T) {
	ctx := context.Background()
	env := newTestOrderEnv()
	o := env.place(t, alice, "ABC", 50)

	o, err := env.svc.AmendOrder(ctx, alice, o.OrderID, 30)
	if err != nil {
		t.Fatalf("AmendOrder(30): %v", err)
	}
	if o.Status != domain.OrderStatusPending || o.OriginalQty != 30 {
		t.Fatalf("after amend: %+v", o)
	}

	env.execute(t, alice, o.OrderID, 20)
	_, err = env.svc.AmendOrder(ctx, alice, o.OrderID, 10)
	if !errors.Is(err, domain.ErrInvalidAmendment) {
		t.Fatalf("AmendOrder(10): got %v, want ErrInvalidAmendment", err)
	}

	stored, _ := env.orderStore.GetOrder(ctx, o.OrderID)
	if stored.OriginalQty != 30 || stored.ExecutedQty != 20 {
		t.Fatalf("failed amendment changed stored order: %+v", stored)
	}
}

func TestScenario_PortfolioAcrossOrders(t *testing.T) {
	ctx := context.Background()
	env := newTestOrderEnv()
	a := env.place(t, alice, "ABC", 10)
	b := env.place(t, alice, "ABC", 10)
	env.execute(t, alice, a.OrderID, 5)
	env.execute(t, alice, b.OrderID, 10)

	// Another investor's fills must not leak into alice's portfolio.
	c := env.place(t, bob, "ABC", 10)
	env.execute(t, bob, c.OrderID, 7)

	p, err := env.svc.GetPortfolio(ctx, alice)
	if err != nil {
		t.Fatalf("GetPortfolio: %v", err)
	}
	if got := p.Quantity("ABC"); got != 15 {
		t.Fatalf("portfolio[ABC] = %d, want 15", got)
	}

	p, _ = env.svc.GetPortfolio(ctx, bob)
	if got := p.Quantity("ABC"); got != 7 {
		t.Fatalf("bob portfolio[ABC] = %d, want 7", got)
	}
}

func TestScenario_CancelledOrderIsTerminal(t *testing.T) {
	ctx := context.Background()
	env := newTestOrderEnv()
	o := env.place(t, alice, "ABC", 10)

	o, err := env.svc.CancelOrder(ctx, alice, o.OrderID)
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if o.Status != domain.OrderStatusCancelled {
		t.Fatalf("Status = %s, want cancelled", o.Status)
	}

	if _, err := env.svc.AmendOrder(ctx, alice, o.OrderID, 20); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("amend after cancel: got %v, want ErrInvalidState", err)
	}
	if _, err := env.svc.ExecuteOrder(ctx, alice, o.OrderID, 1); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("execute after cancel: got %v, want ErrInvalidState", err)
	}
	if _, err := env.svc.CancelOrder(ctx, alice, o.OrderID); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("second cancel: got %v, want ErrInvalidState", err)
	}
}

func TestCancelOrder_ExecutedOrderRejected(t *testing.T) {
	env := newTestOrderEnv()
	o := env.place(t, alice, "ABC", 5)
	env.execute(t, alice, o.OrderID, 5)

	if _, err := env.svc.CancelOrder(context.Background(), alice, o.OrderID); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("cancel executed order: got %v, want ErrInvalidState", err)
	}
}

func TestCancelOrder_PartialKeepsFills(t *testing.T) {
	ctx := context.Background()
	env := newTestOrderEnv()
	o := env.place(t, alice, "ABC", 10)
	env.execute(t, alice, o.OrderID, 3)

	o, err := env.svc.CancelOrder(ctx, alice, o.OrderID)
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if o.ExecutedQty != 3 || o.OriginalQty != 10 {
		t.Fatalf("cancel changed quantities: %+v", o)
	}
	p, _ := env.svc.GetPortfolio(ctx, alice)
	if p.Quantity("ABC") != 3 {
		t.Fatalf("portfolio[ABC] = %d, want 3", p.Quantity("ABC"))
	}
}

// --- Guards ---

func TestMutations_NotFoundAndForbidden(t *testing.T) {
	ctx := context.Background()
	env := newTestOrderEnv()
	o := env.place(t, alice, "ABC", 10)

	ops := map[string]func(caller domain.Caller, id string) error{
		"get": func(c domain.Caller, id string) error {
			_, err := env.svc.GetOrder(ctx, c, id)
			return err
		},
		"amend": func(c domain.Caller, id string) error {
			_, err := env.svc.AmendOrder(ctx, c, id, 5)
			return err
		},
		"execute": func(c domain.Caller, id string) error {
			_, err := env.svc.ExecuteOrder(ctx, c, id, 1)
			return err
		},
		"cancel": func(c domain.Caller, id string) error {
			_, err := env.svc.CancelOrder(ctx, c, id)
			return err
		},
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			if err := op(alice, "no-such-order"); !errors.Is(err, domain.ErrOrderNotFound) {
				t.Errorf("unknown id: got %v, want ErrOrderNotFound", err)
			}
			if err := op(bob, o.OrderID); !errors.Is(err, domain.ErrForbidden) {
				t.Errorf("other investor: got %v, want ErrForbidden", err)
			}
		})
	}

	stored, _ := env.orderStore.GetOrder(ctx, o.OrderID)
	if stored.Status != domain.OrderStatusPending || stored.OriginalQty != 10 || stored.ExecutedQty != 0 {
		t.Fatalf("forbidden calls changed the order: %+v", stored)
	}
}

func TestExecuteOrder_InvalidExecutionSurfaced(t *testing.T) {
	env := newTestOrderEnv()
	o := env.place(t, alice, "ABC", 10)

	for _, qty := range []int64{0, -1, 11} {
		if _, err := env.svc.ExecuteOrder(context.Background(), alice, o.OrderID, qty); !errors.Is(err, domain.ErrInvalidExecution) {
			t.Errorf("ExecuteOrder(%d): got %v, want ErrInvalidExecution", qty, err)
		}
	}
}

func TestListOrders_OwnOrdersInCreationOrder(t *testing.T) {
	env := newTestOrderEnv()
	first := env.place(t, alice, "ABC", 1)
	env.place(t, bob, "ABC", 1)
	second := env.place(t, alice, "XYZ", 2)

	orders, err := env.svc.ListOrders(context.Background(), alice)
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
	if orders[0].OrderID != first.OrderID || orders[1].OrderID != second.OrderID {
		t.Fatalf("unexpected order: %s, %s", orders[0].OrderID, orders[1].OrderID)
	}
}

func TestLoad_RecomputesStaleStatus(t *testing.T) {
	ctx := context.Background()
	env := newTestOrderEnv()
	o := env.place(t, alice, "ABC", 10)

	// Simulate a stored status that drifted from the quantities.
	stale, _ := env.orderStore.GetOrder(ctx, o.OrderID)
	stale.Status = domain.OrderStatusExecuted
	_ = env.orderStore.UpdateOrder(ctx, stale)

	got, err := env.svc.ExecuteOrder(ctx, alice, o.OrderID, 4)
	if err != nil {
		t.Fatalf("ExecuteOrder on drifted order: %v", err)
	}
	if got.Status != domain.OrderStatusPartial {
		t.Fatalf("Status = %s, want partial", got.Status)
	}
}

func TestListOrders_RecomputesStaleStatus(t *testing.T) {
	ctx := context.Background()
	env := newTestOrderEnv()
	o := env.place(t, alice, "ABC", 10)
	env.execute(t, alice, o.OrderID, 4)

	stale, _ := env.orderStore.GetOrder(ctx, o.OrderID)
	stale.Status = domain.OrderStatusPending
	_ = env.orderStore.UpdateOrder(ctx, stale)

	orders, err := env.svc.ListOrders(ctx, alice)
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
	if orders[0].Status != domain.OrderStatusPartial {
		t.Fatalf("listed status = %s, want partial", orders[0].Status)
	}
}

// --- Repository failures ---

// failingOrderRepo wraps an OrderStore and fails selected operations.
type failingOrderRepo struct {
	*store.OrderStore
	failUpdate bool
	failList   bool
}

var errDiskFull = errors.New("disk full")

func (r *failingOrderRepo) UpdateOrder(ctx context.Context, o *domain.Order) error {
	if r.failUpdate {
		return &domain.RepositoryError{Op: "update order", Err: errDiskFull}
	}
	return r.OrderStore.UpdateOrder(ctx, o)
}

func (r *failingOrderRepo) ListOrdersByInvestor(ctx context.Context, id int64) ([]*domain.Order, error) {
	if r.failList {
		return nil, &domain.RepositoryError{Op: "list orders", Err: errDiskFull}
	}
	return r.OrderStore.ListOrdersByInvestor(ctx, id)
}

func TestRepositoryFailures_PropagateUnchanged(t *testing.T) {
	ctx := context.Background()
	repo := &failingOrderRepo{OrderStore: store.NewOrderStore()}
	svc := NewOrderService(engine.NewLifecycle(), repo, discardLogger())

	o, err := svc.PlaceOrder(ctx, alice, "ABC", 10)
	if err != nil {
		t.Fatal(err)
	}

	repo.failUpdate = true
	_, err = svc.ExecuteOrder(ctx, alice, o.OrderID, 5)
	var repoErr *domain.RepositoryError
	if !errors.As(err, &repoErr) || !errors.Is(err, errDiskFull) {
		t.Fatalf("ExecuteOrder: got %v, want RepositoryError wrapping disk full", err)
	}
	stored, _ := repo.GetOrder(ctx, o.OrderID)
	if stored.ExecutedQty != 0 {
		t.Fatalf("failed save leaked a fill: %+v", stored)
	}

	repo.failList = true
	if _, err := svc.GetPortfolio(ctx, alice); !errors.As(err, &repoErr) {
		t.Fatalf("GetPortfolio: got %v, want RepositoryError", err)
	}
	if _, err := svc.ListOrders(ctx, alice); !errors.As(err, &repoErr) {
		t.Fatalf("ListOrders: got %v, want RepositoryError", err)
	}
}

// --- Concurrency ---

func TestExecuteOrder_ConcurrentFillsNeverOverfill(t *testing.T) {
	ctx := context.Background()
	env := newTestOrderEnv()
	o := env.place(t, alice, "ABC", 100)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 150; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.svc.ExecuteOrder(ctx, alice, o.OrderID, 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 100 {
		t.Fatalf("expected exactly 100 successful fills, got %d", succeeded)
	}
	stored, _ := env.orderStore.GetOrder(ctx, o.OrderID)
	if stored.ExecutedQty != 100 || stored.Status != domain.OrderStatusExecuted {
		t.Fatalf("final order = %+v", stored)
	}
}
