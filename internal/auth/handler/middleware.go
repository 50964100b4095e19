package handler

import (
	"strings"

	"github.com/Itproger-it/url-short/internal/auth/domain"
	"github.com/Itproger-it/url-short/internal/auth/service"
	autherror "github.com/Itproger-it/url-short/internal/errors"
	"github.com/Itproger-it/url-short/pkg/constant"
	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware is the per-request access gate: it accepts only valid,
// non-revoked access tokens and resolves them to a user and device id.
type AuthMiddleware struct {
	tokens service.TokenGenerator
	ledger domain.TokenLedger
	users  domain.UserRepository
}

func NewAuthMiddleware(tokens service.TokenGenerator, ledger domain.TokenLedger, users domain.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		tokens: tokens,
		ledger: ledger,
		users:  users,
	}
}

func (m *AuthMiddleware) RequireAuth(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": autherror.ErrMissingToken.Error(),
		})
	}

	if !strings.HasPrefix(header, constant.BearerScheme) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": autherror.ErrMalformedAuthHeader.Error(),
		})
	}

	claims, err := m.tokens.Verify(strings.TrimPrefix(header, constant.BearerScheme))
	if err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": autherror.ErrInvalidToken.Error(),
		})
	}

	// Refresh tokens never authenticate requests.
	if claims.TokenType != service.TokenTypeAccess {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": autherror.ErrWrongTokenType.Error(),
		})
	}

	revoked, err := m.ledger.IsRevoked(c.Context(), claims.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal error",
		})
	}
	if revoked {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": autherror.ErrTokenRevoked.Error(),
		})
	}

	user, err := m.users.GetByID(c.Context(), claims.Subject)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal error",
		})
	}
	if user == nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": autherror.ErrTokenOwnerNotFound.Error(),
		})
	}

	c.Locals(constant.LocalUserKey, user)
	c.Locals(constant.LocalDeviceIDKey, claims.DeviceID)

	return c.Next()
}
