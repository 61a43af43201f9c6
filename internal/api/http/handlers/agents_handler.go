package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-request-service/internal/api/dto"
	"github.com/spec-kit/support-request-service/internal/auth"
	"github.com/spec-kit/support-request-service/internal/domain"
	"github.com/spec-kit/support-request-service/internal/repository"
	"github.com/spec-kit/support-request-service/internal/service"
	apperrors "github.com/spec-kit/support-request-service/pkg/util"
)

// AgentsHandler manages authentication and agent administration.
type AgentsHandler struct {
	authService *service.AuthService
}

// NewAgentsHandler constructs handler.
func NewAgentsHandler(authService *service.AuthService) *AgentsHandler {
	return &AgentsHandler{authService: authService}
}

// RegisterCustomer POST /auth/customers/register.
func (h *AgentsHandler) RegisterCustomer(c *fiber.Ctx) error {
	var req dto.CustomerRegisterPayload
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return apperrors.NewValidationError("name, email, password required", nil)
	}
	result, _, err := h.authService.RegisterCustomer(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	}})
}

// CustomerLogin POST /auth/customers/login.
func (h *AgentsHandler) CustomerLogin(c *fiber.Ctx) error {
	var req dto.LoginPayload
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, _, err := h.authService.CustomerLogin(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	}})
}

// AgentLogin POST /auth/agents/login.
func (h *AgentsHandler) AgentLogin(c *fiber.Ctx) error {
	var req dto.LoginPayload
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, _, err := h.authService.AgentLogin(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	}})
}

// CreateAgent POST /agents. Admin only.
func (h *AgentsHandler) CreateAgent(c *fiber.Ctx) error {
	var req dto.CreateAgentPayload
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return apperrors.NewValidationError("name, email, password required", nil)
	}
	agent, err := h.authService.CreateAgent(c.UserContext(), req.Name, req.Email, req.Password, req.Role, req.Department)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": agentResponse(agent)})
}

// ListAgents GET /agents.
func (h *AgentsHandler) ListAgents(c *fiber.Ctx) error {
	filter := repository.AgentFilter{
		Limit:  parseInt(c.Query("page_size"), 50),
		Offset: (parseInt(c.Query("page"), 1) - 1) * parseInt(c.Query("page_size"), 50),
	}
	if roleStr := c.Query("role"); roleStr != "" {
		role := domain.AgentRole(roleStr)
		filter.Role = &role
	}
	if dept := c.Query("department"); dept != "" {
		filter.Department = &dept
	}

	agents, err := h.authService.ListAgents(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.AgentResponse, 0, len(agents))
	for i := range agents {
		items = append(items, agentResponse(&agents[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Presence GET /agents/:id/presence.
func (h *AgentsHandler) Presence(c *fiber.Ctx) error {
	agent, presence, err := h.authService.AgentPresence(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AgentPresenceResponse{
		AgentID:    agent.ID,
		Presence:   presence,
		LastSeenAt: agent.LastSeenAt,
	}})
}

// Me GET /agents/me.
func (h *AgentsHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	return c.JSON(fiber.Map{"data": agentResponse(principal.Agent)})
}

func agentResponse(agent *domain.Agent) dto.AgentResponse {
	return dto.AgentResponse{
		ID:         agent.ID,
		Name:       agent.Name,
		Email:      agent.Email,
		Role:       agent.Role,
		Department: agent.Department,
		Active:     agent.Active,
		LastSeenAt: agent.LastSeenAt,
		CreatedAt:  agent.CreatedAt,
	}
}
