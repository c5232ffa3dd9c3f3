package auth

import (
	"github.com/markhet/agri-crm/internal/domain"
	"github.com/markhet/agri-crm/pkg/util"

	"github.com/gofiber/fiber/v2"
)

// RequireAdmin restricts a route to admin callers.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, ok := CallerFromContext(c)
		if !ok {
			return util.NewUnauthorized("authentication required")
		}
		if caller.Role != domain.AgentRoleAdmin {
			return util.NewAccessDenied("Access denied.")
		}
		return c.Next()
	}
}
