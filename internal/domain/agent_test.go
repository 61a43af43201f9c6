package domain

import (
	"testing"
	"time"
)

func TestPresenceAt(t *testing.T) {
	now := time.Now()
	seen := func(ago time.Duration) *time.Time {
		ts := now.Add(-ago)
		return &ts
	}

	cases := []struct {
		name       string
		lastSeenAt *time.Time
		want       Presence
	}{
		{"never seen", nil, PresenceOffline},
		{"just now", seen(0), PresenceOnline},
		{"under five minutes", seen(4 * time.Minute), PresenceOnline},
		{"exactly five minutes", seen(5 * time.Minute), PresenceAway},
		{"under thirty minutes", seen(29 * time.Minute), PresenceAway},
		{"exactly thirty minutes", seen(30 * time.Minute), PresenceOffline},
		{"hours ago", seen(3 * time.Hour), PresenceOffline},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			agent := Agent{LastSeenAt: tc.lastSeenAt}
			if got := agent.PresenceAt(now); got != tc.want {
				t.Fatalf("PresenceAt = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestCanOverride(t *testing.T) {
	if (&Agent{Role: AgentRoleAgent}).CanOverride() {
		t.Error("plain agent should not override")
	}
	if !(&Agent{Role: AgentRoleSupervisor}).CanOverride() {
		t.Error("supervisor should override")
	}
	if !(&Agent{Role: AgentRoleAdmin}).CanOverride() {
		t.Error("admin should override")
	}
}
