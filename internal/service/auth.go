package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/efreitasn/mocktrader/internal/domain"
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,64}$`)

// bcrypt ignores input beyond 72 bytes.
const maxPasswordLen = 72

// AuthService registers investors, verifies credentials and resolves
// session tokens to callers.
type AuthService struct {
	investors  InvestorRepository
	sessions   SessionRepository
	bcryptCost int
	sessionTTL time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// NewAuthService creates a new AuthService. A non-positive sessionTTL
// issues tokens that never expire.
func NewAuthService(
	investors InvestorRepository,
	sessions SessionRepository,
	bcryptCost int,
	sessionTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		investors:  investors,
		sessions:   sessions,
		bcryptCost: bcryptCost,
		sessionTTL: sessionTTL,
		now:        time.Now,
		logger:     logger,
	}
}

// Register validates the credentials and creates a new investor.
func (s *AuthService) Register(ctx context.Context, username, password string) (*domain.Investor, error) {
	if !usernameRegex.MatchString(username) {
		return nil, &domain.ValidationError{
			Message: "username must match ^[a-zA-Z0-9_.-]{1,64}$",
		}
	}
	if password == "" || len(password) > maxPasswordLen {
		return nil, &domain.ValidationError{
			Message: "password must be between 1 and 72 bytes",
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, err
	}
	inv := &domain.Investor{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.investors.CreateInvestor(ctx, inv); err != nil {
		return nil, err
	}

	s.logger.Info("investor registered",
		slog.Int64("investor_id", inv.InvestorID),
		slog.String("username", inv.Username),
	)
	return inv, nil
}

// Login verifies the credentials and issues a new session token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	inv, err := s.investors.GetInvestorByUsername(ctx, username)
	if errors.Is(err, domain.ErrInvestorNotFound) {
		return "", domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(inv.PasswordHash), []byte(password)); err != nil {
		return "", domain.ErrInvalidCredentials
	}

	sess := &domain.Session{
		Token:      uuid.New().String(),
		InvestorID: inv.InvestorID,
		IssuedAt:   s.now().UTC(),
	}
	if err := s.sessions.CreateSession(ctx, sess); err != nil {
		return "", err
	}
	return sess.Token, nil
}

// Authenticate resolves a session token to the caller it was issued to.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.Caller, error) {
	if token == "" {
		return domain.Caller{}, domain.ErrUnauthorized
	}
	sess, err := s.sessions.GetSession(ctx, token)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.Caller{}, domain.ErrUnauthorized
	}
	if err != nil {
		return domain.Caller{}, err
	}
	if sess.Expired(s.now(), s.sessionTTL) {
		return domain.Caller{}, domain.ErrUnauthorized
	}

	inv, err := s.investors.GetInvestor(ctx, sess.InvestorID)
	if errors.Is(err, domain.ErrInvestorNotFound) {
		return domain.Caller{}, domain.ErrUnauthorized
	}
	if err != nil {
		return domain.Caller{}, err
	}
	return domain.Caller{InvestorID: inv.InvestorID, Username: inv.Username}, nil
}

// PruneSessions deletes sessions that have outlived the session TTL.
func (s *AuthService) PruneSessions(ctx context.Context) (int64, error) {
	if s.sessionTTL <= 0 {
		return 0, nil
	}
	return s.sessions.DeleteSessionsIssuedBefore(ctx, s.now().Add(-s.sessionTTL))
}
