package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Itproger-it/url-short/internal/auth/domain"
	"github.com/Itproger-it/url-short/internal/auth/dto"
	autherror "github.com/Itproger-it/url-short/internal/errors"
	"github.com/Itproger-it/url-short/pkg/constant"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	users  domain.UserRepository
	ledger domain.TokenLedger
	tokens TokenGenerator
}

func NewAuthService(users domain.UserRepository, ledger domain.TokenLedger, tokens TokenGenerator) *AuthService {
	return &AuthService{
		users:  users,
		ledger: ledger,
		tokens: tokens,
	}
}

// Register creates the user and its first device session. The user row and
// both ledger rows are committed in one transaction before the pair is
// returned.
func (s *AuthService) Register(ctx context.Context, input dto.RegisterInput) (*dto.TokenResponse, error) {
	existingUser, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if existingUser != nil {
		return nil, autherror.ErrEmailAlreadyInUse
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	pair, issued, err := s.issueTokens(user.ID, uuid.NewString())
	if err != nil {
		return nil, err
	}

	if err := s.users.CreateWithTokens(ctx, user, issued); err != nil {
		return nil, err
	}

	return pair, nil
}

// Login verifies credentials and opens a new device session. Unknown email
// and wrong password produce the same ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, input dto.LoginInput) (*dto.TokenResponse, error) {
	since := time.Now().Add(-constant.FailedLoginWindow)
	failures, err := s.users.CountRecentFailures(ctx, input.Email, input.IPAddress, since)
	if err != nil {
		return nil, err
	}
	if failures >= constant.MaxFailedLoginAttempts {
		return nil, autherror.ErrTooManyLoginAttempts
	}

	user, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}

	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		if err := s.users.RecordLoginAttempt(ctx, input.Email, input.IPAddress, false); err != nil {
			log.Printf("warn: failed to record login attempt for %s: %v", input.Email, err)
		}
		return nil, autherror.ErrInvalidCredentials
	}

	if err := s.users.RecordLoginAttempt(ctx, input.Email, input.IPAddress, true); err != nil {
		log.Printf("warn: failed to record login attempt for %s: %v", input.Email, err)
	}

	pair, issued, err := s.issueTokens(user.ID, uuid.NewString())
	if err != nil {
		return nil, err
	}

	if err := s.ledger.Record(ctx, issued...); err != nil {
		return nil, err
	}

	return pair, nil
}

// Logout revokes both tokens of the device session. Revoking an already
// revoked session is a no-op.
func (s *AuthService) Logout(ctx context.Context, userID, deviceID string) error {
	return s.ledger.RevokeByDevice(ctx, userID, deviceID)
}

// Refresh rotates a refresh token: the old device pair is revoked and a new
// pair is issued under the same device id. A refresh token presented a
// second time after rotation revokes every token of its owner.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	claims, err := s.tokens.Verify(refreshToken)
	if err != nil {
		return nil, autherror.ErrInvalidToken
	}

	if claims.TokenType != TokenTypeRefresh {
		return nil, autherror.ErrWrongTokenType
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, autherror.ErrTokenOwnerNotFound
	}

	pair, issued, err := s.issueTokens(user.ID, claims.DeviceID)
	if err != nil {
		return nil, err
	}

	if err := s.ledger.Rotate(ctx, claims.ID, user.ID, claims.DeviceID, issued); err != nil {
		if errors.Is(err, autherror.ErrReuseDetected) {
			log.Printf("security: refresh token reuse detected, all tokens revoked (user=%s device=%s jti=%s)",
				user.ID, claims.DeviceID, claims.ID)
		}
		return nil, err
	}

	return pair, nil
}

// issueTokens mints an access+refresh pair sharing one device id. The ledger
// entries are returned to the caller, which must record them before the pair
// leaves the service.
func (s *AuthService) issueTokens(userID, deviceID string) (*dto.TokenResponse, []domain.IssuedToken, error) {
	accessToken, accessJTI, err := s.tokens.Issue(TokenTypeAccess, userID, deviceID)
	if err != nil {
		return nil, nil, err
	}

	refreshToken, refreshJTI, err := s.tokens.Issue(TokenTypeRefresh, userID, deviceID)
	if err != nil {
		return nil, nil, err
	}

	issued := []domain.IssuedToken{
		{JTI: accessJTI, UserID: userID, DeviceID: deviceID},
		{JTI: refreshJTI, UserID: userID, DeviceID: deviceID},
	}

	pair := &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}

	return pair, issued, nil
}
