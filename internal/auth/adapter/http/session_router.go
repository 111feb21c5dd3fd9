package http

import (
	"fmt"

	"secure-auth/internal/auth/usecase"

	"github.com/gofiber/fiber/v2"
)

// SessionHTTPHandler exposes a user's own sessions.
type SessionHTTPHandler struct {
	usecase usecase.SessionUsecaseInterface
	events  *SessionEventsHandler
}

// NewSessionHTTPHandler creates a new session HTTP handler
func NewSessionHTTPHandler(uc usecase.SessionUsecaseInterface) *SessionHTTPHandler {
	return &SessionHTTPHandler{usecase: uc}
}

// WithEvents enables the GET /events websocket stream.
func (h *SessionHTTPHandler) WithEvents(events *SessionEventsHandler) *SessionHTTPHandler {
	h.events = events
	return h
}

// SetupSessionRoutes registers the session routes. Every route requires authentication.
func (h *SessionHTTPHandler) SetupSessionRoutes(router fiber.Router, middleware *AuthMiddleware) {
	protected := router.Group("/", middleware.Protect())
	protected.Get("/active", h.ListActive)
	protected.Get("/history", h.ListHistory)
	if h.events != nil {
		protected.Get("/events", h.events.Upgrade(), h.events.Handle())
	}
	protected.Post("/revoke-all", h.RevokeAllOthers)
	protected.Delete("/:sessionId", h.Revoke)
}

// ListActive returns the caller's active sessions, most recently active first
func (h *SessionHTTPHandler) ListActive(c *fiber.Ctx) error {
	session, ok := CurrentSession(c)
	if !ok {
		return writeError(c, usecase.ErrNoToken)
	}

	sessions, err := h.usecase.ListActive(c.UserContext(), session.UserID, session.SessionID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"sessions": sessions})
}

// ListHistory returns the caller's sessions in any state, newest login first.
// The optional limit query parameter is capped by the configured history limit.
func (h *SessionHTTPHandler) ListHistory(c *fiber.Ctx) error {
	session, ok := CurrentSession(c)
	if !ok {
		return writeError(c, usecase.ErrNoToken)
	}

	history, err := h.usecase.ListHistory(c.UserContext(), session.UserID, session.SessionID, c.QueryInt("limit"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"history": history})
}

// Revoke ends one of the caller's sessions
func (h *SessionHTTPHandler) Revoke(c *fiber.Ctx) error {
	session, ok := CurrentSession(c)
	if !ok {
		return writeError(c, usecase.ErrNoToken)
	}

	target := c.Params("sessionId")
	if target == "" {
		return writeError(c, usecase.ErrSessionNotFound)
	}

	if err := h.usecase.Revoke(c.UserContext(), target, session.UserID, ""); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Session revoked successfully"})
}

// RevokeAllOthers ends every session of the caller except the current one
func (h *SessionHTTPHandler) RevokeAllOthers(c *fiber.Ctx) error {
	session, ok := CurrentSession(c)
	if !ok {
		return writeError(c, usecase.ErrNoToken)
	}

	count, err := h.usecase.RevokeAllOthers(c.UserContext(), session.UserID, session.SessionID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("%d session(s) revoked successfully", count),
		"count":   count,
	})
}
