package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Itproger-it/url-short/internal/auth/domain"
	"github.com/Itproger-it/url-short/internal/auth/dto"
	"github.com/Itproger-it/url-short/internal/auth/service"
	autherror "github.com/Itproger-it/url-short/internal/errors"
	"github.com/Itproger-it/url-short/internal/mocks"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAuthService_Register_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockUsers := mocks.NewMockUserRepository(ctrl)
	mockLedger := mocks.NewMockTokenLedger(ctrl)
	tokens := newTestTokenService(t, 900, 604800)

	s := service.NewAuthService(mockUsers, mockLedger, tokens)

	input := dto.RegisterInput{
		Email:    "test@example.com",
		Password: "password123",
	}

	var recorded []domain.IssuedToken
	mockUsers.EXPECT().GetByEmail(gomock.Any(), input.Email).Return(nil, nil)
	mockUsers.EXPECT().CreateWithTokens(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, user *domain.User, issued []domain.IssuedToken) error {
			assert.Equal(t, input.Email, user.Email)
			assert.NotEmpty(t, user.PasswordHash)
			recorded = issued
			return nil
		})

	pair, err := s.Register(context.Background(), input)

	require.NoError(t, err)
	require.NotNil(t, pair)

	accessClaims, err := tokens.Verify(pair.AccessToken)
	require.NoError(t, err)
	refreshClaims, err := tokens.Verify(pair.RefreshToken)
	require.NoError(t, err)

	assert.Equal(t, service.TokenTypeAccess, accessClaims.TokenType)
	assert.Equal(t, service.TokenTypeRefresh, refreshClaims.TokenType)
	assert.Equal(t, accessClaims.DeviceID, refreshClaims.DeviceID)

	// Both jtis must have been handed to the repository before the pair was
	// returned.
	require.Len(t, recorded, 2)
	assert.Equal(t, accessClaims.ID, recorded[0].JTI)
	assert.Equal(t, refreshClaims.ID, recorded[1].JTI)
	assert.Equal(t, accessClaims.DeviceID, recorded[0].DeviceID)
	assert.Equal(t, accessClaims.DeviceID, recorded[1].DeviceID)
}

func TestAuthService_Register_SigningFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockUsers := mocks.NewMockUserRepository(ctrl)
	mockLedger := mocks.NewMockTokenLedger(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)

	s := service.NewAuthService(mockUsers, mockLedger, mockTokens)

	mockUsers.EXPECT().GetByEmail(gomock.Any(), "test@example.com").Return(nil, nil)
	mockTokens.EXPECT().Issue(service.TokenTypeAccess, gomock.Any(), gomock.Any()).
		Return("", "", errors.New("signing failed"))

	_, err := s.Register(context.Background(), dto.RegisterInput{
		Email:    "test@example.com",
		Password: "password123",
	})
	assert.EqualError(t, err, "signing failed")
}

func TestAuthService_Register_EmailAlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockUsers := mocks.NewMockUserRepository(ctrl)
	mockLedger := mocks.NewMockTokenLedger(ctrl)

	s := service.NewAuthService(mockUsers, mockLedger, newTestTokenService(t, 900, 604800))

	input := dto.RegisterInput{Email: "test@example.com", Password: "password123"}

	mockUsers.EXPECT().GetByEmail(gomock.Any(), input.Email).
		Return(&domain.User{ID: "existing-id", Email: input.Email}, nil)

	pair, err := s.Register(context.Background(), input)

	assert.ErrorIs(t, err, autherror.ErrEmailAlreadyInUse)
	assert.Nil(t, pair)
}

func TestAuthService_Login(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	require.NoError(t, err)

	user := &domain.User{
		ID:           "user-123",
		Email:        "test@example.com",
		PasswordHash: string(hash),
	}

	tokens := newTestTokenService(t, 900, 604800)

	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockUsers := mocks.NewMockUserRepository(ctrl)
		mockLedger := mocks.NewMockTokenLedger(ctrl)
		s := service.NewAuthService(mockUsers, mockLedger, tokens)

		mockUsers.EXPECT().CountRecentFailures(gomock.Any(), user.Email, "1.2.3.4", gomock.Any()).Return(0, nil)
		mockUsers.EXPECT().GetByEmail(gomock.Any(), user.Email).Return(user, nil)
		mockUsers.EXPECT().RecordLoginAttempt(gomock.Any(), user.Email, "1.2.3.4", true).Return(nil)
		mockLedger.EXPECT().Record(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

		pair, err := s.Login(context.Background(), dto.LoginInput{
			Email:     user.Email,
			Password:  "password123",
			IPAddress: "1.2.3.4",
		})

		require.NoError(t, err)
		accessClaims, err := tokens.Verify(pair.AccessToken)
		require.NoError(t, err)
		refreshClaims, err := tokens.Verify(pair.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID, accessClaims.Subject)
		assert.Equal(t, accessClaims.DeviceID, refreshClaims.DeviceID)
	})

	t.Run("wrong password returns the generic error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockUsers := mocks.NewMockUserRepository(ctrl)
		mockLedger := mocks.NewMockTokenLedger(ctrl)
		s := service.NewAuthService(mockUsers, mockLedger, tokens)

		mockUsers.EXPECT().CountRecentFailures(gomock.Any(), user.Email, "1.2.3.4", gomock.Any()).Return(0, nil)
		mockUsers.EXPECT().GetByEmail(gomock.Any(), user.Email).Return(user, nil)
		mockUsers.EXPECT().RecordLoginAttempt(gomock.Any(), user.Email, "1.2.3.4", false).Return(nil)

		pair, err := s.Login(context.Background(), dto.LoginInput{
			Email:     user.Email,
			Password:  "wrong-password",
			IPAddress: "1.2.3.4",
		})

		assert.ErrorIs(t, err, autherror.ErrInvalidCredentials)
		assert.Nil(t, pair)
	})

	t.Run("unknown email returns the same generic error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockUsers := mocks.NewMockUserRepository(ctrl)
		mockLedger := mocks.NewMockTokenLedger(ctrl)
		s := service.NewAuthService(mockUsers, mockLedger, tokens)

		mockUsers.EXPECT().CountRecentFailures(gomock.Any(), "nobody@example.com", "1.2.3.4", gomock.Any()).Return(0, nil)
		mockUsers.EXPECT().GetByEmail(gomock.Any(), "nobody@example.com").Return(nil, nil)
		mockUsers.EXPECT().RecordLoginAttempt(gomock.Any(), "nobody@example.com", "1.2.3.4", false).Return(nil)

		pair, err := s.Login(context.Background(), dto.LoginInput{
			Email:     "nobody@example.com",
			Password:  "password123",
			IPAddress: "1.2.3.4",
		})

		assert.ErrorIs(t, err, autherror.ErrInvalidCredentials)
		assert.Nil(t, pair)
	})

	t.Run("too many failed attempts", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockUsers := mocks.NewMockUserRepository(ctrl)
		mockLedger := mocks.NewMockTokenLedger(ctrl)
		s := service.NewAuthService(mockUsers, mockLedger, tokens)

		mockUsers.EXPECT().CountRecentFailures(gomock.Any(), user.Email, "1.2.3.4", gomock.Any()).Return(5, nil)

		pair, err := s.Login(context.Background(), dto.LoginInput{
			Email:     user.Email,
			Password:  "password123",
			IPAddress: "1.2.3.4",
		})

		assert.ErrorIs(t, err, autherror.ErrTooManyLoginAttempts)
		assert.Nil(t, pair)
	})
}

func TestAuthService_Logout_Idempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockUsers := mocks.NewMockUserRepository(ctrl)
	mockLedger := mocks.NewMockTokenLedger(ctrl)
	s := service.NewAuthService(mockUsers, mockLedger, newTestTokenService(t, 900, 604800))

	mockLedger.EXPECT().RevokeByDevice(gomock.Any(), "user-123", "device-abc").Return(nil).Times(2)

	require.NoError(t, s.Logout(context.Background(), "user-123", "device-abc"))
	require.NoError(t, s.Logout(context.Background(), "user-123", "device-abc"))
}

func TestAuthService_Refresh(t *testing.T) {
	tokens := newTestTokenService(t, 900, 604800)
	user := &domain.User{ID: "user-123", Email: "test@example.com"}

	t.Run("rotation keeps the device id", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockUsers := mocks.NewMockUserRepository(ctrl)
		mockLedger := mocks.NewMockTokenLedger(ctrl)
		s := service.NewAuthService(mockUsers, mockLedger, tokens)

		refreshToken, oldJTI, err := tokens.Issue(service.TokenTypeRefresh, user.ID, "device-abc")
		require.NoError(t, err)

		var rotated []domain.IssuedToken
		mockUsers.EXPECT().GetByID(gomock.Any(), user.ID).Return(user, nil)
		mockLedger.EXPECT().Rotate(gomock.Any(), oldJTI, user.ID, "device-abc", gomock.Any()).
			DoAndReturn(func(_ context.Context, _, _, _ string, newTokens []domain.IssuedToken) error {
				rotated = newTokens
				return nil
			})

		pair, err := s.Refresh(context.Background(), refreshToken)
		require.NoError(t, err)

		accessClaims, err := tokens.Verify(pair.AccessToken)
		require.NoError(t, err)
		refreshClaims, err := tokens.Verify(pair.RefreshToken)
		require.NoError(t, err)

		assert.Equal(t, "device-abc", accessClaims.DeviceID)
		assert.Equal(t, "device-abc", refreshClaims.DeviceID)
		assert.NotEqual(t, oldJTI, refreshClaims.ID)
		require.Len(t, rotated, 2)
	})

	t.Run("access token is the wrong type", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		s := service.NewAuthService(mocks.NewMockUserRepository(ctrl), mocks.NewMockTokenLedger(ctrl), tokens)

		accessToken, _, err := tokens.Issue(service.TokenTypeAccess, user.ID, "device-abc")
		require.NoError(t, err)

		pair, err := s.Refresh(context.Background(), accessToken)
		assert.ErrorIs(t, err, autherror.ErrWrongTokenType)
		assert.Nil(t, pair)
	})

	t.Run("garbage token", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		s := service.NewAuthService(mocks.NewMockUserRepository(ctrl), mocks.NewMockTokenLedger(ctrl), tokens)

		pair, err := s.Refresh(context.Background(), "garbage")
		assert.ErrorIs(t, err, autherror.ErrInvalidToken)
		assert.Nil(t, pair)
	})

	t.Run("owner no longer exists", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockUsers := mocks.NewMockUserRepository(ctrl)
		s := service.NewAuthService(mockUsers, mocks.NewMockTokenLedger(ctrl), tokens)

		refreshToken, _, err := tokens.Issue(service.TokenTypeRefresh, "ghost", "device-abc")
		require.NoError(t, err)

		mockUsers.EXPECT().GetByID(gomock.Any(), "ghost").Return(nil, nil)

		pair, err := s.Refresh(context.Background(), refreshToken)
		assert.ErrorIs(t, err, autherror.ErrTokenOwnerNotFound)
		assert.Nil(t, pair)
	})

	t.Run("reuse detection propagates", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockUsers := mocks.NewMockUserRepository(ctrl)
		mockLedger := mocks.NewMockTokenLedger(ctrl)
		s := service.NewAuthService(mockUsers, mockLedger, tokens)

		refreshToken, oldJTI, err := tokens.Issue(service.TokenTypeRefresh, user.ID, "device-abc")
		require.NoError(t, err)

		mockUsers.EXPECT().GetByID(gomock.Any(), user.ID).Return(user, nil)
		mockLedger.EXPECT().Rotate(gomock.Any(), oldJTI, user.ID, "device-abc", gomock.Any()).
			Return(autherror.ErrReuseDetected)

		pair, err := s.Refresh(context.Background(), refreshToken)
		assert.ErrorIs(t, err, autherror.ErrReuseDetected)
		assert.Nil(t, pair)
	})

	t.Run("repository error surfaces", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockUsers := mocks.NewMockUserRepository(ctrl)
		s := service.NewAuthService(mockUsers, mocks.NewMockTokenLedger(ctrl), tokens)

		refreshToken, _, err := tokens.Issue(service.TokenTypeRefresh, user.ID, "device-abc")
		require.NoError(t, err)

		expectedErr := errors.New("database error")
		mockUsers.EXPECT().GetByID(gomock.Any(), user.ID).Return(nil, expectedErr)

		pair, err := s.Refresh(context.Background(), refreshToken)
		assert.ErrorIs(t, err, expectedErr)
		assert.Nil(t, pair)
	})
}
