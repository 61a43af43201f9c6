package dto

import (
	"time"

	"github.com/spec-kit/support-request-service/internal/domain"
)

// CustomerRegisterPayload payload for new customers.
type CustomerRegisterPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginPayload payload for customer and agent login.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateAgentPayload payload for provisioning agents.
type CreateAgentPayload struct {
	Name       string           `json:"name"`
	Email      string           `json:"email"`
	Password   string           `json:"password"`
	Role       domain.AgentRole `json:"role"`
	Department string           `json:"department"`
}

// AgentResponse response.
type AgentResponse struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Email      string           `json:"email"`
	Role       domain.AgentRole `json:"role"`
	Department string           `json:"department"`
	Active     bool             `json:"active"`
	LastSeenAt *time.Time       `json:"last_seen_at"`
	CreatedAt  time.Time        `json:"created_at"`
}

// AgentPresenceResponse carries the derived activity state.
type AgentPresenceResponse struct {
	AgentID    string          `json:"agent_id"`
	Presence   domain.Presence `json:"presence"`
	LastSeenAt *time.Time      `json:"last_seen_at"`
}
