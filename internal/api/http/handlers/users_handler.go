package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-management-service/internal/api/dto"
	"github.com/spec-kit/user-management-service/internal/repository"
	"github.com/spec-kit/user-management-service/internal/service"
	apperrors "github.com/spec-kit/user-management-service/pkg/util"
)

// UsersHandler exposes CRUD endpoints for managed accounts.
type UsersHandler struct {
	auth  *service.AuthService
	users repository.UserRepository
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService, users repository.UserRepository) *UsersHandler {
	return &UsersHandler{auth: authService, users: users}
}

// Register handles POST /users.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Username == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "email, username, password required")
	}

	user, err := h.auth.Register(c.UserContext(), req.Email, req.Username, req.Password)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.UserResponse{ID: user.ID, Email: user.Email, Username: user.Username},
	})
}

// Get handles GET /users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	user, err := h.users.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{
		"data": dto.UserResponse{ID: user.ID, Email: user.Email, Username: user.Username},
	})
}

// Update handles PUT /users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	var req dto.UserUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	user, err := h.users.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperrors.MapError(err)
	}

	if req.Email != "" {
		user.Email = req.Email
	}
	if req.Username != "" {
		user.Username = req.Username
	}
	if err := h.users.Update(c.UserContext(), user); err != nil {
		return apperrors.MapError(err)
	}

	return c.JSON(fiber.Map{
		"data": dto.UserResponse{ID: user.ID, Email: user.Email, Username: user.Username},
	})
}

// Delete handles DELETE /users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	if err := h.users.Delete(c.UserContext(), c.Params("id")); err != nil {
		return apperrors.MapError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// CheckToken handles GET /users/token/check. It resolves a user only when
// both email and recorded token match.
func (h *UsersHandler) CheckToken(c *fiber.Ctx) error {
	email := c.Query("email")
	token := c.Query("token")
	if email == "" || token == "" {
		return fiber.NewError(http.StatusBadRequest, "email and token required")
	}

	user, err := h.users.CheckUserToken(c.UserContext(), email, token)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{
		"data": dto.UserResponse{ID: user.ID, Email: user.Email, Username: user.Username},
	})
}
