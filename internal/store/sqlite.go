package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/efreitasn/mocktrader/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

//go:embed schema.sql
var schema string

// Timestamps are stored as fixed-width UTC text so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore persists investors, orders and sessions in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and applies the
// schema.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection serialises writers and keeps :memory: databases intact.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// sqliteDSN appends the connection pragmas to path, keeping any query
// parameters it already carries.
func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path + "&" + sqlitePragmas
	}
	return path + "?" + sqlitePragmas
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func repoErr(op string, err error) error {
	return &domain.RepositoryError{Op: op, Err: err}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// ---------------------------------------------------------------------------
// Investors
// ---------------------------------------------------------------------------

// CreateInvestor inserts the investor and assigns its id. It returns
// domain.ErrUsernameTaken if the username is already registered.
func (s *SQLiteStore) CreateInvestor(ctx context.Context, inv *domain.Investor) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO investors (username, password_hash, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(username) DO NOTHING`,
		inv.Username, inv.PasswordHash, formatTime(inv.CreatedAt))
	if err != nil {
		return repoErr("create investor", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return repoErr("create investor", err)
	}
	if n == 0 {
		return domain.ErrUsernameTaken
	}
	id, err := res.LastInsertId()
	if err != nil {
		return repoErr("create investor", err)
	}
	inv.InvestorID = id
	return nil
}

// GetInvestor retrieves an investor by id.
func (s *SQLiteStore) GetInvestor(ctx context.Context, id int64) (*domain.Investor, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM investors WHERE id = ?`, id)
	return scanInvestor(row)
}

// GetInvestorByUsername retrieves an investor by username.
func (s *SQLiteStore) GetInvestorByUsername(ctx context.Context, username string) (*domain.Investor, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM investors WHERE username = ?`, username)
	return scanInvestor(row)
}

func scanInvestor(row *sql.Row) (*domain.Investor, error) {
	var (
		inv       domain.Investor
		createdAt string
	)
	err := row.Scan(&inv.InvestorID, &inv.Username, &inv.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInvestorNotFound
	}
	if err != nil {
		return nil, repoErr("get investor", err)
	}
	if inv.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, repoErr("get investor", err)
	}
	return &inv, nil
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// CreateOrder inserts a new order.
func (s *SQLiteStore) CreateOrder(ctx context.Context, o *domain.Order) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO orders (id, investor_id, security, original_qty, executed_qty, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.OrderID, o.InvestorID, o.Security, o.OriginalQty, o.ExecutedQty, string(o.Status), formatTime(o.CreatedAt))
	if err != nil {
		return repoErr("create order", err)
	}
	return nil
}

// GetOrder retrieves a single order by its id.
func (s *SQLiteStore) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, investor_id, security, original_qty, executed_qty, status, created_at
		 FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, repoErr("get order", err)
	}
	return o, nil
}

// UpdateOrder persists the quantities and status of an existing order.
func (s *SQLiteStore) UpdateOrder(ctx context.Context, o *domain.Order) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET original_qty = ?, executed_qty = ?, status = ? WHERE id = ?`,
		o.OriginalQty, o.ExecutedQty, string(o.Status), o.OrderID)
	if err != nil {
		return repoErr("update order", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return repoErr("update order", err)
	}
	if n == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// ListOrdersByInvestor returns the investor's orders in creation order.
func (s *SQLiteStore) ListOrdersByInvestor(ctx context.Context, investorID int64) ([]*domain.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, investor_id, security, original_qty, executed_qty, status, created_at
		 FROM orders WHERE investor_id = ? ORDER BY created_at, rowid`, investorID)
	if err != nil {
		return nil, repoErr("list orders", err)
	}
	defer rows.Close()

	orders := make([]*domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, repoErr("list orders", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, repoErr("list orders", err)
	}
	return orders, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(sc scanner) (*domain.Order, error) {
	var (
		o         domain.Order
		status    string
		createdAt string
	)
	if err := sc.Scan(&o.OrderID, &o.InvestorID, &o.Security, &o.OriginalQty, &o.ExecutedQty, &status, &createdAt); err != nil {
		return nil, err
	}
	st, ok := domain.ParseOrderStatus(status)
	if !ok {
		return nil, fmt.Errorf("order %s has unknown status %q", o.OrderID, status)
	}
	o.Status = st
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", o.OrderID, err)
	}
	o.CreatedAt = t
	return &o, nil
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

// CreateSession inserts a newly issued session.
func (s *SQLiteStore) CreateSession(ctx context.Context, sess *domain.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (token, investor_id, issued_at) VALUES (?, ?, ?)`,
		sess.Token, sess.InvestorID, formatTime(sess.IssuedAt))
	if err != nil {
		return repoErr("create session", err)
	}
	return nil
}

// GetSession retrieves a session by token.
func (s *SQLiteStore) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	var (
		sess     domain.Session
		issuedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT token, investor_id, issued_at FROM sessions WHERE token = ?`, token).
		Scan(&sess.Token, &sess.InvestorID, &issuedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, repoErr("get session", err)
	}
	if sess.IssuedAt, err = parseTime(issuedAt); err != nil {
		return nil, repoErr("get session", err)
	}
	return &sess, nil
}

// DeleteSessionsIssuedBefore removes sessions issued strictly before cutoff.
func (s *SQLiteStore) DeleteSessionsIssuedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE issued_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, repoErr("delete sessions", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, repoErr("delete sessions", err)
	}
	return n, nil
}
