package domain

import "time"

// AgentRole enumerates internal operator roles.
type AgentRole string

const (
	AgentRoleAgent      AgentRole = "AGENT"
	AgentRoleSupervisor AgentRole = "SUPERVISOR"
	AgentRoleAdmin      AgentRole = "ADMIN"
)

// Agent models a support agent or administrator.
type Agent struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         AgentRole
	Department   string
	Active       bool
	LastSeenAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanOverride reports whether the agent may act on requests assigned to
// someone else (complete, reassign, release).
func (a *Agent) CanOverride() bool {
	return a.Role == AgentRoleSupervisor || a.Role == AgentRoleAdmin
}

// Presence describes derived agent activity state.
type Presence string

const (
	PresenceOnline  Presence = "ONLINE"
	PresenceAway    Presence = "AWAY"
	PresenceOffline Presence = "OFFLINE"
)

const (
	onlineThreshold = 5 * time.Minute
	awayThreshold   = 30 * time.Minute
)

// PresenceAt derives activity state from the last-seen timestamp.
func (a *Agent) PresenceAt(now time.Time) Presence {
	if a.LastSeenAt == nil {
		return PresenceOffline
	}
	since := now.Sub(*a.LastSeenAt)
	switch {
	case since < onlineThreshold:
		return PresenceOnline
	case since < awayThreshold:
		return PresenceAway
	default:
		return PresenceOffline
	}
}
