package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-management-service/internal/api/dto"
	"github.com/spec-kit/user-management-service/internal/auth"
	"github.com/spec-kit/user-management-service/internal/domain"
	"github.com/spec-kit/user-management-service/internal/service"
)

// AuthHandler exposes login, validation, and the org membership check.
type AuthHandler struct {
	auth       *service.AuthService
	membership *service.MembershipService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, membership *service.MembershipService) *AuthHandler {
	return &AuthHandler{auth: authService, membership: membership}
}

// Login handles POST /authenticate/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Username == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "username and password required")
	}

	role := domain.TokenRole(req.Role)
	if req.Role == "" {
		role = domain.RoleSubscriber
	}

	user, accessToken, refreshToken, expiresAt, err := h.auth.Login(c.UserContext(), req.Username, req.Password, role)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			return fiber.NewError(http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, service.ErrInvalidRole):
			return fiber.NewError(http.StatusBadRequest, "unknown role")
		default:
			return err
		}
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": dto.UserResponse{ID: user.ID, Email: user.Email, Username: user.Username},
			"auth": dto.AuthResponse{
				AccessToken:  accessToken,
				RefreshToken: refreshToken,
				ExpiresAt:    expiresAt,
			},
		},
	})
}

// Validate handles GET /authenticate/validate behind the request gate. It
// echoes the principal the gate established.
func (h *AuthHandler) Validate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"username": principal.Username,
			"role":     principal.Role,
		},
	})
}

// CheckMembership handles POST /authenticate/membership. Members of the
// configured organization are rejected, mirroring the upstream identity
// provider policy.
func (h *AuthHandler) CheckMembership(c *fiber.Ctx) error {
	var req dto.MembershipCheckRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.AccessToken == "" {
		return fiber.NewError(http.StatusBadRequest, "access_token required")
	}

	member, err := h.membership.CheckOrganization(c.UserContext(), req.AccessToken)
	if err != nil {
		return err
	}
	if member {
		return fiber.NewError(http.StatusUnauthorized, "token owner not permitted")
	}

	return c.JSON(fiber.Map{"data": fiber.Map{"member": false}})
}
