package http

import (
	"context"
	"strings"
	"time"

	"secure-auth/internal/auth/domain/model"
	"secure-auth/internal/auth/usecase"
	"secure-auth/internal/shared/contextkeys"
	"secure-auth/internal/shared/logger"
	"secure-auth/internal/shared/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// Locals keys set by Protect.
const (
	LocalsUser    = "user"
	LocalsSession = "session"
)

// SessionValidator is the part of the session usecase the middleware needs.
type SessionValidator interface {
	Validate(ctx context.Context, token string, cc model.ClientContext) (*usecase.Authenticated, error)
}

// AuthMiddleware provides authentication middleware for Fiber
type AuthMiddleware struct {
	validator SessionValidator
	resolver  *ClientContextResolver
	log       logger.Logger
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(validator SessionValidator, resolver *ClientContextResolver, log logger.Logger) *AuthMiddleware {
	if log == nil {
		log = logger.Nop()
	}
	if resolver == nil {
		resolver = NewClientContextResolver(false)
	}
	return &AuthMiddleware{
		validator: validator,
		resolver:  resolver,
		log:       log.WithComponent("auth_middleware"),
	}
}

// CORS middleware with security headers
func (m *AuthMiddleware) CORS(allowOrigins string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Requested-With,X-Request-ID",
		MaxAge:       86400, // 24 hours
	})
}

// SecurityHeaders adds security headers
func (m *AuthMiddleware) SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("Cache-Control", "no-store")
		return c.Next()
	}
}

// RateLimiter creates rate limiting middleware for credential endpoints
func (m *AuthMiddleware) RateLimiter(limit int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               limit,
		Expiration:        window,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			return m.resolver.clientIP(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"message": "Too many requests. Please try again later.",
			})
		},
	})
}

// RequestID middleware
func (m *AuthMiddleware) RequestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     "X-Request-ID",
		ContextKey: string(contextkeys.RequestIDKey),
	})
}

// Protect runs the session validation pipeline and stores the principal and
// session in Locals and the user context.
func (m *AuthMiddleware) Protect() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cc := m.resolver.Resolve(c)
		ctx := utils.WithClientIP(requestContext(c), cc.IPAddress)

		auth, err := m.validator.Validate(ctx, extractToken(c), cc)
		if err != nil {
			m.log.WithContext(ctx).WithFields(map[string]interface{}{
				"path":  c.Path(),
				"error": err.Error(),
			}).Debug("Request rejected")
			return writeError(c, err)
		}

		ctx = utils.WithUserID(ctx, auth.User.ID)
		ctx = utils.WithSessionID(ctx, auth.Session.SessionID)
		c.SetUserContext(ctx)
		c.Locals(LocalsUser, auth.User)
		c.Locals(LocalsSession, auth.Session)
		return c.Next()
	}
}

// requestContext is the user context plus the request id set by RequestID.
func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if rid, ok := c.Locals(string(contextkeys.RequestIDKey)).(string); ok && rid != "" {
		ctx = utils.WithRequestID(ctx, rid)
	}
	return ctx
}

// extractToken reads a bearer token from the Authorization header, falling back
// to the token query parameter for websocket upgrades.
func extractToken(c *fiber.Ctx) string {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	if strings.EqualFold(c.Get(fiber.HeaderUpgrade), "websocket") {
		return c.Query("token")
	}
	return ""
}

// CurrentUser returns the principal set by Protect.
func CurrentUser(c *fiber.Ctx) (*model.User, bool) {
	user, ok := c.Locals(LocalsUser).(*model.User)
	return user, ok && user != nil
}

// CurrentSession returns the session set by Protect.
func CurrentSession(c *fiber.Ctx) (*model.Session, bool) {
	session, ok := c.Locals(LocalsSession).(*model.Session)
	return session, ok && session != nil
}
