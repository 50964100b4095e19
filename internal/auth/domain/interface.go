package domain

//go:generate mockgen -destination=../../mocks/mock_user_repository.go -package=mocks github.com/Itproger-it/url-short/internal/auth/domain UserRepository
//go:generate mockgen -destination=../../mocks/mock_token_ledger.go -package=mocks github.com/Itproger-it/url-short/internal/auth/domain TokenLedger

import (
	"context"
	"time"
)

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	// CreateWithTokens inserts the user and the initial token pair rows in
	// one transaction, so a registered user never exists without a recorded
	// session and a returned token is always durably recorded.
	CreateWithTokens(ctx context.Context, user *User, tokens []IssuedToken) error
	RecordLoginAttempt(ctx context.Context, email, ip string, success bool) error
	CountRecentFailures(ctx context.Context, email, ip string, since time.Time) (int, error)
}

type TokenLedger interface {
	Record(ctx context.Context, tokens ...IssuedToken) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	RevokeByDevice(ctx context.Context, userID, deviceID string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	// Rotate atomically consumes the presented refresh token: it locks the
	// old jti row, revokes the device pair and records the replacement
	// tokens. If the old jti is already revoked the call is treated as
	// token reuse: every token of the user is revoked and ErrReuseDetected
	// is returned.
	Rotate(ctx context.Context, oldJTI, userID, deviceID string, newTokens []IssuedToken) error
}
