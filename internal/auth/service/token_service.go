package service

//go:generate mockgen -destination=../../mocks/mock_token_generator.go -package=mocks github.com/Itproger-it/url-short/internal/auth/service TokenGenerator

import (
	"fmt"
	"time"

	"github.com/Itproger-it/url-short/config"
	autherror "github.com/Itproger-it/url-short/internal/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

type TokenGenerator interface {
	Issue(tokenType, userID, deviceID string) (token string, jti string, err error)
	Verify(tokenString string) (*TokenClaims, error)
	Peek(tokenString string) (*TokenClaims, error)
}

// TokenClaims is the signed payload shared by access and refresh tokens:
// {sub, type, device_id, jti, iat, exp}.
type TokenClaims struct {
	jwt.RegisteredClaims
	TokenType string `json:"type"`
	DeviceID  string `json:"device_id"`
}

type TokenService struct {
	method     jwt.SigningMethod
	signKey    any
	verifyKey  any
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenService(cfg *config.Config) (*TokenService, error) {
	ts := &TokenService{
		accessTTL:  time.Duration(cfg.AccessTokenTTL) * time.Second,
		refreshTTL: time.Duration(cfg.RefreshTokenTTL) * time.Second,
	}

	switch cfg.JWTAlgorithm {
	case "HS256":
		ts.method = jwt.SigningMethodHS256
		ts.signKey = []byte(cfg.JWTSecret)
		ts.verifyKey = []byte(cfg.JWTSecret)
	case "RS256":
		privateKey, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.JWTPrivateKey))
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA private key: %w", err)
		}
		publicKey, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.JWTPublicKey))
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
		}
		ts.method = jwt.SigningMethodRS256
		ts.signKey = privateKey
		ts.verifyKey = publicKey
	default:
		return nil, fmt.Errorf("unsupported JWT algorithm: %s", cfg.JWTAlgorithm)
	}

	return ts, nil
}

// Issue signs a fresh token of the given type. The jti is generated here and
// returned so the caller can record it in the ledger before handing the
// token out.
func (ts *TokenService) Issue(tokenType, userID, deviceID string) (string, string, error) {
	ttl := ts.accessTTL
	if tokenType == TokenTypeRefresh {
		ttl = ts.refreshTTL
	}

	now := time.Now()
	jti := uuid.NewString()

	claims := TokenClaims{
		TokenType: tokenType,
		DeviceID:  deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token, err := jwt.NewWithClaims(ts.method, claims).SignedString(ts.signKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}

	return token, jti, nil
}

// Verify parses and validates signature and expiry. Any failure collapses
// into ErrInvalidToken; callers never see a partially trusted payload.
func (ts *TokenService) Verify(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != ts.method.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ts.verifyKey, nil
	})

	if err != nil || !token.Valid {
		return nil, autherror.ErrInvalidToken
	}

	return claims, nil
}

// Peek decodes the payload without verifying signature or expiry. Only for
// tokens this process just minted; external input goes through Verify.
func (ts *TokenService) Peek(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, autherror.ErrInvalidToken
	}
	return claims, nil
}
