package http

import (
	"secure-auth/internal/auth/usecase"

	"github.com/gofiber/fiber/v2"
)

// AuthHTTPHandler handles HTTP requests for authentication
type AuthHTTPHandler struct {
	usecase  usecase.AuthUsecaseInterface
	resolver *ClientContextResolver
}

// NewAuthHTTPHandler creates a new authentication HTTP handler
func NewAuthHTTPHandler(uc usecase.AuthUsecaseInterface, resolver *ClientContextResolver) *AuthHTTPHandler {
	if resolver == nil {
		resolver = NewClientContextResolver(false)
	}
	return &AuthHTTPHandler{usecase: uc, resolver: resolver}
}

// authResponse is the body returned by register and login.
type authResponse struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Token     string `json:"token"`
	SessionID string `json:"sessionId"`
}

func newAuthResponse(result *usecase.AuthResult) authResponse {
	return authResponse{
		ID:        result.User.ID,
		Name:      result.User.Name,
		Email:     result.User.Email,
		Role:      result.User.Role,
		Token:     result.Token,
		SessionID: result.SessionID,
	}
}

// SetupAuthRoutesWithMiddleware sets up authentication routes with middleware.
// Credential endpoints are wrapped by the extra handlers, typically a rate limiter.
func (h *AuthHTTPHandler) SetupAuthRoutesWithMiddleware(router fiber.Router, middleware *AuthMiddleware, credentialGuards ...fiber.Handler) {
	// Public routes (no authentication required)
	router.Post("/register", withGuards(credentialGuards, h.Register)...)
	router.Post("/login", withGuards(credentialGuards, h.Login)...)

	// Protected routes (authentication required)
	router.Get("/profile", middleware.Protect(), h.GetProfile)
	router.Post("/logout", middleware.Protect(), h.Logout)
}

// Register handles user registration
func (h *AuthHTTPHandler) Register(c *fiber.Ctx) error {
	var req usecase.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": MsgInvalidBody,
		})
	}

	result, err := h.usecase.Register(requestContext(c), req, h.resolver.Resolve(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(newAuthResponse(result))
}

// Login handles user login
func (h *AuthHTTPHandler) Login(c *fiber.Ctx) error {
	var req usecase.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": MsgInvalidBody,
		})
	}

	result, err := h.usecase.Login(requestContext(c), req, h.resolver.Resolve(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(newAuthResponse(result))
}

// GetProfile returns the authenticated user without the password hash
func (h *AuthHTTPHandler) GetProfile(c *fiber.Ctx) error {
	user, ok := CurrentUser(c)
	if !ok {
		return writeError(c, usecase.ErrNoToken)
	}

	profile, err := h.usecase.GetProfile(c.UserContext(), user.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(profile)
}

// Logout ends the session that authenticated the request
func (h *AuthHTTPHandler) Logout(c *fiber.Ctx) error {
	session, ok := CurrentSession(c)
	if !ok {
		return writeError(c, usecase.ErrNoToken)
	}

	if err := h.usecase.Logout(c.UserContext(), session); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Logged out successfully",
	})
}

func withGuards(guards []fiber.Handler, handler fiber.Handler) []fiber.Handler {
	chain := make([]fiber.Handler, 0, len(guards)+1)
	chain = append(chain, guards...)
	return append(chain, handler)
}
