package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-request-service/internal/api/http/handlers"
	"github.com/spec-kit/support-request-service/internal/auth"
	"github.com/spec-kit/support-request-service/internal/domain"
	"github.com/spec-kit/support-request-service/internal/service"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Requests       *handlers.RequestsHandler
	Messages       *handlers.MessagesHandler
	Stats          *handlers.StatsHandler
	Agents         *handlers.AgentsHandler
	AuthMiddleware *auth.AuthMiddleware
	AuthService    *service.AuthService
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/customers/register", cfg.Agents.RegisterCustomer)
	authGroup.Post("/customers/login", cfg.Agents.CustomerLogin)
	authGroup.Post("/agents/login", cfg.Agents.AgentLogin)

	authed := app.Group("", cfg.AuthMiddleware.Handle, presenceTouch(cfg.AuthService))

	requests := authed.Group("/requests")
	requests.Post("", auth.RequireCustomer(), cfg.Requests.Create)
	requests.Get("", auth.RequireAnyRole(), cfg.Requests.List)
	requests.Get("/:id", auth.RequireAnyRole(), cfg.Requests.Get)

	agentOnly := auth.RequireAgentRole(domain.AgentRoleAgent, domain.AgentRoleSupervisor, domain.AgentRoleAdmin)
	requests.Post("/:id/claim", agentOnly, cfg.Requests.Claim)
	requests.Post("/:id/complete", agentOnly, cfg.Requests.Complete)
	requests.Post("/:id/close", agentOnly, cfg.Requests.Close)
	requests.Post("/:id/reopen", agentOnly, cfg.Requests.Reopen)
	requests.Post("/:id/reassign", agentOnly, cfg.Requests.Reassign)
	requests.Post("/:id/release", agentOnly, cfg.Requests.Release)
	requests.Patch("/:id/priority", agentOnly, cfg.Requests.UpdatePriority)

	requests.Get("/:id/messages", auth.RequireAnyRole(), cfg.Messages.Thread)
	requests.Post("/:id/messages", auth.RequireAnyRole(), cfg.Messages.Post)
	requests.Post("/:id/messages/read", auth.RequireAnyRole(), cfg.Messages.MarkRead)
	requests.Get("/:id/messages/unread", auth.RequireAnyRole(), cfg.Messages.UnreadCount)

	authed.Get("/stats", agentOnly, cfg.Stats.Snapshot)

	agents := authed.Group("/agents")
	agents.Get("/me", agentOnly, cfg.Agents.Me)
	agents.Get("/:id/presence", agentOnly, cfg.Agents.Presence)
	agents.Get("", auth.RequireAgentRole(domain.AgentRoleSupervisor, domain.AgentRoleAdmin), cfg.Agents.ListAgents)
	agents.Post("", auth.RequireAgentRole(domain.AgentRoleAdmin), cfg.Agents.CreateAgent)
}

// presenceTouch refreshes the last-seen timestamp on authenticated agent
// traffic so derived presence tracks real activity, not just logins.
func presenceTouch(authService *service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if principal, ok := auth.PrincipalFromContext(c); ok && principal.Agent != nil {
			authService.TouchAgentSeen(c.UserContext(), principal.Agent.ID)
		}
		return c.Next()
	}
}
