package service

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/support-request-service/internal/auth"
	"github.com/spec-kit/support-request-service/internal/config"
	"github.com/spec-kit/support-request-service/internal/domain"
	"github.com/spec-kit/support-request-service/internal/repository"
	apperrors "github.com/spec-kit/support-request-service/pkg/util"
)

// AuthService verifies credentials and issues bearer tokens. Session
// management beyond login is an external concern; this is just enough
// surface to authenticate viewers against the core.
type AuthService struct {
	agents     repository.AgentRepository
	customers  repository.CustomerRepository
	tokens     *auth.TokenManager
	bcryptCost int
}

// AuthDependencies bundles repositories for the auth service.
type AuthDependencies struct {
	AgentRepo    repository.AgentRepository
	CustomerRepo repository.CustomerRepository
}

// LoginResult carries the issued token.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
}

// NewAuthService constructs the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		agents:     deps.AgentRepo,
		customers:  deps.CustomerRepo,
		tokens:     auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// RegisterCustomer creates a customer account and issues a token.
func (s *AuthService) RegisterCustomer(ctx context.Context, name, email, password string) (*LoginResult, *domain.Customer, error) {
	if _, err := s.customers.GetByEmail(ctx, email); err == nil {
		return nil, nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	customer := &domain.Customer{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Status:       domain.CustomerStatusActive,
	}
	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, nil, apperrors.MapError(err)
	}

	token, expiresAt, err := s.tokens.GenerateToken(customer.ID, domain.SubjectTypeCustomer, nil)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt}, customer, nil
}

// CreateAgent provisions an agent account. Admin-only at the boundary.
func (s *AuthService) CreateAgent(ctx context.Context, name, email, password string, role domain.AgentRole, department string) (*domain.Agent, error) {
	if role == "" {
		role = domain.AgentRoleAgent
	}
	switch role {
	case domain.AgentRoleAgent, domain.AgentRoleSupervisor, domain.AgentRoleAdmin:
	default:
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": string(role)})
	}
	if _, err := s.agents.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	agent := &domain.Agent{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Department:   department,
		Active:       true,
	}
	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, apperrors.MapError(err)
	}
	return agent, nil
}

// ListAgents returns agents matching the filter.
func (s *AuthService) ListAgents(ctx context.Context, filter repository.AgentFilter) ([]domain.Agent, error) {
	agents, err := s.agents.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return agents, nil
}

// AgentLogin authenticates an agent and issues a token. A successful
// login also refreshes the agent's last-seen timestamp, which drives the
// derived presence state.
func (s *AuthService) AgentLogin(ctx context.Context, email, password string) (*LoginResult, *domain.Agent, error) {
	agent, err := s.agents.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, nil, apperrors.MapError(err)
	}
	if !agent.Active {
		return nil, nil, apperrors.NewForbidden("agent inactive")
	}
	if err := auth.ComparePassword(agent.PasswordHash, password); err != nil {
		return nil, nil, apperrors.NewUnauthorized("invalid credentials")
	}

	now := time.Now()
	if err := s.agents.TouchLastSeen(ctx, agent.ID, now); err == nil {
		agent.LastSeenAt = &now
	}

	role := agent.Role
	token, expiresAt, err := s.tokens.GenerateToken(agent.ID, domain.SubjectTypeAgent, &role)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt}, agent, nil
}

// CustomerLogin authenticates a customer and issues a token.
func (s *AuthService) CustomerLogin(ctx context.Context, email, password string) (*LoginResult, *domain.Customer, error) {
	customer, err := s.customers.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, nil, apperrors.MapError(err)
	}
	if customer.Status != domain.CustomerStatusActive {
		return nil, nil, apperrors.NewForbidden("customer account suspended")
	}
	if err := auth.ComparePassword(customer.PasswordHash, password); err != nil {
		return nil, nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokens.GenerateToken(customer.ID, domain.SubjectTypeCustomer, nil)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt}, customer, nil
}

// TouchAgentSeen records viewer activity for presence derivation. Called
// by the middleware on authenticated agent traffic.
func (s *AuthService) TouchAgentSeen(ctx context.Context, agentID string) {
	_ = s.agents.TouchLastSeen(ctx, agentID, time.Now())
}

// AgentPresence returns the agent with its derived activity state.
func (s *AuthService) AgentPresence(ctx context.Context, agentID string) (*domain.Agent, domain.Presence, error) {
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.PresenceOffline, apperrors.NewNotFound("agent", map[string]any{"agent_id": agentID})
		}
		return nil, domain.PresenceOffline, apperrors.MapError(err)
	}
	return agent, agent.PresenceAt(time.Now()), nil
}
