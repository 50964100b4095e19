package handler

import (
	"errors"
	"strings"

	authdomain "github.com/Itproger-it/url-short/internal/auth/domain"
	linkerror "github.com/Itproger-it/url-short/internal/errors"
	"github.com/Itproger-it/url-short/internal/link/domain"
	"github.com/Itproger-it/url-short/internal/link/dto"
	"github.com/Itproger-it/url-short/internal/link/service"
	"github.com/Itproger-it/url-short/pkg/constant"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/mileusna/useragent"
)

type LinkHandler struct {
	linkService *service.LinkService
	baseURL     string
	validate    *validator.Validate
}

func NewLinkHandler(linkService *service.LinkService, baseURL string) *LinkHandler {
	return &LinkHandler{
		linkService: linkService,
		baseURL:     strings.TrimRight(baseURL, "/"),
		validate:    validator.New(),
	}
}

// Create shortens a URL for an anonymous caller.
func (h *LinkHandler) Create(c *fiber.Ctx) error {
	var input dto.CreateLinkInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}
	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": linkerror.ErrInvalidURL.Error()})
	}

	link, err := h.linkService.Create(c.Context(), "", input.TargetURL, "")
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(h.linkInfo(link))
}

// CreateOwned shortens a URL on behalf of the authenticated caller.
func (h *LinkHandler) CreateOwned(c *fiber.Ctx) error {
	var input dto.CreateLinkInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}
	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": linkerror.ErrInvalidURL.Error()})
	}

	user := c.Locals(constant.LocalUserKey).(*authdomain.User)

	link, err := h.linkService.Create(c.Context(), user.ID, input.TargetURL, "")
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(h.linkInfo(link))
}

// CreateCustom shortens a URL under a caller-chosen key.
func (h *LinkHandler) CreateCustom(c *fiber.Ctx) error {
	var input dto.CustomLinkInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}
	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	user := c.Locals(constant.LocalUserKey).(*authdomain.User)

	link, err := h.linkService.Create(c.Context(), user.ID, input.TargetURL, input.Name)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(h.linkInfo(link))
}

// Redirect forwards a short key to its target and records the click.
func (h *LinkHandler) Redirect(c *fiber.Ctx) error {
	key := c.Params("key")

	target, err := h.linkService.Resolve(c.Context(), key, clientIP(c), deviceClass(c.Get(fiber.HeaderUserAgent)))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Redirect(target, fiber.StatusTemporaryRedirect)
}

// Decode follows the redirect chain of a shortened URL and returns the final
// location.
func (h *LinkHandler) Decode(c *fiber.Ctx) error {
	var input dto.DecodeInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}
	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": linkerror.ErrInvalidURL.Error()})
	}

	final, err := h.linkService.Expand(c.Context(), input.TargetURL)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(dto.DecodeOutput{URL: final})
}

// AdminInfo returns the owner view of a link addressed by its secret key.
func (h *LinkHandler) AdminInfo(c *fiber.Ctx) error {
	user := c.Locals(constant.LocalUserKey).(*authdomain.User)

	link, err := h.linkService.Info(c.Context(), user.ID, c.Params("secretKey"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(h.linkInfo(link))
}

// ListOwned returns every active link of the authenticated caller.
func (h *LinkHandler) ListOwned(c *fiber.Ctx) error {
	user := c.Locals(constant.LocalUserKey).(*authdomain.User)

	links, err := h.linkService.ListByOwner(c.Context(), user.ID)
	if err != nil {
		return errorResponse(c, err)
	}

	out := make([]dto.UserLinkOutput, 0, len(links))
	for _, l := range links {
		out = append(out, dto.UserLinkOutput{
			TargetURL: l.TargetURL,
			Key:       l.Key,
			SecretKey: l.SecretKey,
			Clicks:    l.Clicks,
		})
	}

	return c.Status(fiber.StatusOK).JSON(out)
}

// Metrics returns click metrics of an owned link.
func (h *LinkHandler) Metrics(c *fiber.Ctx) error {
	user := c.Locals(constant.LocalUserKey).(*authdomain.User)

	metrics, err := h.linkService.Metrics(c.Context(), user.ID, c.Params("key"))
	if err != nil {
		return errorResponse(c, err)
	}

	out := make([]dto.MetricOutput, 0, len(metrics))
	for _, m := range metrics {
		out = append(out, dto.MetricOutput{Device: m.Device, IP: m.IP, Date: m.Date})
	}

	return c.Status(fiber.StatusOK).JSON(out)
}

// Delete deactivates an owned link.
func (h *LinkHandler) Delete(c *fiber.Ctx) error {
	user := c.Locals(constant.LocalUserKey).(*authdomain.User)

	link, err := h.linkService.Deactivate(c.Context(), user.ID, c.Params("secretKey"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"detail": "Successfully deleted shortened URL for '" + link.TargetURL + "'",
	})
}

func (h *LinkHandler) linkInfo(link *domain.Link) dto.LinkInfoOutput {
	return dto.LinkInfoOutput{
		TargetURL: link.TargetURL,
		IsActive:  link.IsActive,
		Clicks:    link.Clicks,
		URL:       h.baseURL + "/" + link.Key,
		AdminURL:  h.baseURL + "/admin/" + link.SecretKey,
	}
}

func clientIP(c *fiber.Ctx) string {
	if fwd := c.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return c.IP()
}

func deviceClass(uaHeader string) string {
	if uaHeader == "" {
		return ""
	}
	ua := useragent.Parse(uaHeader)
	switch {
	case ua.Mobile:
		return "mobile"
	case ua.Desktop:
		return "desktop"
	default:
		return "tablet"
	}
}

func errorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, linkerror.ErrLinkNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, linkerror.ErrKeyOccupied), errors.Is(err, linkerror.ErrInvalidURL):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
