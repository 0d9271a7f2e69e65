package domain

import "time"

// Investor is a registered user who owns orders.
type Investor struct {
	InvestorID   int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Session is an opaque bearer token issued to an investor at login.
type Session struct {
	Token      string
	InvestorID int64
	IssuedAt   time.Time
}

// Expired reports whether the session is older than ttl at now.
// A non-positive ttl means sessions never expire.
func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return !now.Before(s.IssuedAt.Add(ttl))
}

// Caller is the authenticated identity on whose behalf an operation runs.
type Caller struct {
	InvestorID int64
	Username   string
}

// Owns reports whether the order belongs to the caller.
func (c Caller) Owns(o *Order) bool {
	return o != nil && o.InvestorID == c.InvestorID
}
