package service

import (
	"context"
	"testing"

	"github.com/spec-kit/support-request-service/internal/domain"
)

func TestSnapshotEmptyPopulation(t *testing.T) {
	env := newTestEnv(t)

	stats, err := env.stats.Snapshot(context.Background(), "")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if stats.Total != 0 {
		t.Errorf("total = %d, want 0", stats.Total)
	}
	if stats.CompletionRate != 0 {
		t.Errorf("completion rate = %v, want 0 for empty population", stats.CompletionRate)
	}
	if stats.FirstResponseSamples != 0 {
		t.Errorf("samples = %d, want 0", stats.FirstResponseSamples)
	}
}

func TestSnapshotCountsAndCompletionRate(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t)
	agent := env.createAgent(t, domain.AgentRoleAgent)
	ctx := context.Background()

	// 10 requests: 4 open, 2 in progress, 3 completed, 1 closed.
	for i := 0; i < 4; i++ {
		env.openRequest(t, customer.ID)
	}
	for i := 0; i < 2; i++ {
		env.claimedRequest(t, customer.ID, agent)
	}
	for i := 0; i < 3; i++ {
		r := env.claimedRequest(t, customer.ID, agent)
		if _, err := env.requests.Complete(ctx, agent, r.ID, nil); err != nil {
			t.Fatalf("complete: %v", err)
		}
	}
	closed := env.openRequest(t, customer.ID)
	if _, err := env.requests.Close(ctx, agent, closed.ID, nil); err != nil {
		t.Fatalf("close: %v", err)
	}

	stats, err := env.stats.Snapshot(ctx, "")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if stats.Open != 4 || stats.InProgress != 2 || stats.Completed != 3 || stats.Closed != 1 {
		t.Errorf("counts = open:%d in_progress:%d completed:%d closed:%d",
			stats.Open, stats.InProgress, stats.Completed, stats.Closed)
	}
	if stats.Total != 10 {
		t.Errorf("total = %d, want 10", stats.Total)
	}
	if stats.CompletionRate != 0.3 {
		t.Errorf("completion rate = %v, want 0.3", stats.CompletionRate)
	}
}

func TestSnapshotFirstResponseExcludesInternal(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t)
	agent := env.createAgent(t, domain.AgentRoleAgent)
	ctx := context.Background()

	answered := env.claimedRequest(t, customer.ID, agent)
	agentReply(t, env, agent, answered.ID, "on it")

	noteOnly := env.claimedRequest(t, customer.ID, agent)
	if _, err := env.messages.PostMessage(ctx, Sender{ID: agent.ID, Role: domain.SenderRoleAgent}, noteOnly.ID, "internal triage", true, nil); err != nil {
		t.Fatalf("post internal: %v", err)
	}

	stats, err := env.stats.Snapshot(ctx, "")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if stats.FirstResponseSamples != 1 {
		t.Errorf("samples = %d, want 1 (internal notes are not responses)", stats.FirstResponseSamples)
	}
	if stats.AvgFirstResponse < 0 {
		t.Errorf("avg first response negative: %v", stats.AvgFirstResponse)
	}
}

func TestSnapshotPeriods(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t)
	env.openRequest(t, customer.ID)
	ctx := context.Background()

	for _, period := range []string{"", "24h", "7d", "30d"} {
		stats, err := env.stats.Snapshot(ctx, period)
		if err != nil {
			t.Fatalf("snapshot %q: %v", period, err)
		}
		// Everything was just created, so every window sees it.
		if stats.Total != 1 {
			t.Errorf("period %q total = %d, want 1", period, stats.Total)
		}
	}

	_, err := env.stats.Snapshot(ctx, "90d")
	wantCode(t, err, "VALIDATION_FAILED")
}
