package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/markhet/agri-crm/internal/api/http/handlers"
	"github.com/markhet/agri-crm/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Agents         *handlers.AgentsHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	// Public: telephony webhook and login.
	app.Post("/ticket/webhook", cfg.Tickets.Webhook)
	app.Post("/agent/login", cfg.Agents.Login)
	app.Get("/agent/verify/:token", cfg.Agents.VerifyToken)

	ticket := app.Group("/ticket", cfg.AuthMiddleware.Handle)
	ticket.Post("/", cfg.Tickets.Create)
	ticket.Get("/get-opened-tickets", cfg.Tickets.OpenQueue)
	ticket.Put("/", cfg.Tickets.Update)
	ticket.Put("/multiple", cfg.Tickets.BulkUpdate)
	ticket.Get("/user/:userId", cfg.Tickets.CustomerHistory)
	ticket.Delete("/", cfg.Tickets.Delete)
	ticket.Get("/:id", cfg.Tickets.Get)

	agent := app.Group("/agent", cfg.AuthMiddleware.Handle)
	agent.Post("/", auth.RequireAdmin(), cfg.Agents.Create)
	agent.Post("/reset-password", cfg.Agents.ResetPassword)
	agent.Get("/:id", cfg.Agents.Get)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	admin.Get("/agents", cfg.Agents.List)
	admin.Get("/agent-tickets/:id", cfg.Admin.AgentQueue)
}
