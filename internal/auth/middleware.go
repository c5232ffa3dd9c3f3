package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/markhet/agri-crm/internal/domain"
	"github.com/markhet/agri-crm/pkg/util"
)

const callerKey = "auth_caller"

// Middleware validates bearer tokens and attaches the resolved caller
// identity to the request. Services receive the caller explicitly; nothing
// downstream parses tokens again.
type Middleware struct {
	tokens *TokenManager
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenManager) *Middleware {
	return &Middleware{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		authHeader = c.Get("X-Authorization")
	}
	if authHeader == "" {
		return util.NewUnauthorized("missing authorization header")
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	claims, err := m.tokens.ParseToken(token)
	if err != nil {
		return util.NewUnauthorized("invalid or expired token")
	}

	c.Locals(callerKey, domain.Caller{ID: claims.AgentID, Role: claims.Role})
	return c.Next()
}

// CallerFromContext retrieves the authenticated caller.
func CallerFromContext(c *fiber.Ctx) (domain.Caller, bool) {
	caller, ok := c.Locals(callerKey).(domain.Caller)
	return caller, ok
}
