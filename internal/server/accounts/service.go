// Package accounts implements the user-facing auth operations on top of the
// log-replay core: registration, login, balance lookup and logout. Writes go
// through the command gateway, reads come from the snapshot; the service
// itself keeps no state.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/kodbank/internal/common"
	"github.com/dmitrijs2005/kodbank/internal/server/auth"
	"github.com/dmitrijs2005/kodbank/internal/server/config"
	"github.com/dmitrijs2005/kodbank/internal/server/gateway"
)

const bcryptCost = 10

// RegisterRequest is the inbound registration payload. UID is optional;
// one is generated when absent.
type RegisterRequest struct {
	UID      string
	Username string
	Password string
	Email    string
	Phone    string
	Role     string
}

// Session is a successful login: the signed token and its expiry.
type Session struct {
	Token     string
	Username  string
	ExpiresAt time.Time
}

type Service struct {
	gateway        *gateway.Gateway
	view           gateway.View
	jwtSecret      []byte
	tokenValidity  time.Duration
	initialBalance float64
}

func NewService(gw *gateway.Gateway, view gateway.View, cfg *config.Config) *Service {
	return &Service{
		gateway:        gw,
		view:           view,
		jwtSecret:      []byte(cfg.SecretKey),
		tokenValidity:  cfg.TokenValidityDuration,
		initialBalance: cfg.InitialBalance,
	}
}

// Register hashes the password and appends a register event. The new
// account is not readable until the materializer catches up; callers get
// acknowledgment of the durable write, not of visibility.
func (s *Service) Register(ctx context.Context, req RegisterRequest) error {
	if req.Username == "" || req.Password == "" || req.Email == "" || req.Phone == "" {
		return fmt.Errorf("%w: all fields are required", common.ErrorValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return common.ErrorInternal
	}

	uid := req.UID
	if uid == "" {
		uid = uuid.NewString()
	}
	role := req.Role
	if role == "" {
		role = common.RoleCustomer
	}

	return s.gateway.RegisterAccount(ctx, gateway.RegisterAccount{
		UID:            uid,
		Username:       req.Username,
		CredentialHash: string(hash),
		Email:          req.Email,
		Phone:          req.Phone,
		Role:           role,
		Balance:        s.initialBalance,
	})
}

// Login checks the credentials against the materialized account, signs a
// session token and appends the issue event.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password required", common.ErrorValidation)
	}

	account, err := s.view.FindAccountByUsername(username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	if bcrypt.CompareHashAndPassword([]byte(account.CredentialHash), []byte(password)) != nil {
		return nil, common.ErrorUnauthorized
	}

	now := time.Now()
	expiresAt := now.Add(s.tokenValidity)

	token, err := auth.GenerateToken(account.UID, account.Username, account.Role, s.jwtSecret, s.tokenValidity)
	if err != nil {
		return nil, common.ErrorInternal
	}

	err = s.gateway.IssueToken(ctx, gateway.IssueToken{
		Token:      token,
		UID:        account.UID,
		ExpiresAt:  expiresAt,
		SequenceID: now.UnixMilli(),
	})
	if err != nil {
		return nil, err
	}

	return &Session{Token: token, Username: account.Username, ExpiresAt: expiresAt}, nil
}

// Logout appends a tombstone for the token. Unknown tokens are fine: the
// tombstone is a no-op at apply time.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.gateway.RevokeToken(ctx, token)
}

// Balance verifies the session token twice, as the original system does:
// the JWT signature/expiry first, then liveness of the token in the
// materialized view (a logged-out token fails here even while the JWT is
// still cryptographically valid).
func (s *Service) Balance(ctx context.Context, token string) (float64, error) {
	if token == "" {
		return 0, common.ErrorUnauthorized
	}

	claims, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		return 0, common.ErrorUnauthorized
	}

	rec, err := s.view.FindTokenByValue(token)
	if err != nil || rec.UID != claims.UID {
		return 0, common.ErrorUnauthorized
	}

	if expires, err := rec.ExpiresAt(); err != nil || expires.Before(time.Now()) {
		return 0, common.ErrorUnauthorized
	}

	account, err := s.view.FindAccountByID(claims.UID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return 0, common.ErrorNotFound
		}
		return 0, common.ErrorInternal
	}

	return account.Balance, nil
}
