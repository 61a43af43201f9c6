package service

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/support-request-service/internal/domain"
	"github.com/spec-kit/support-request-service/internal/events"
	"github.com/spec-kit/support-request-service/internal/repository"
	"github.com/spec-kit/support-request-service/internal/viewcache"
	apperrors "github.com/spec-kit/support-request-service/pkg/util"
)

// testEnv wires the services against the in-memory store. Cache staleness
// is zero by default so reads always hit the store; cache behavior has its
// own tests.
type testEnv struct {
	store       *repository.MemoryStore
	views       *viewcache.Views
	dispatcher  events.Dispatcher
	requests    *RequestService
	assignments *AssignmentService
	messages    *MessageService
	stats       *StatsService

	seq int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithPolicies(t, viewcache.Policies{})
}

func newTestEnvWithPolicies(t *testing.T, policies viewcache.Policies) *testEnv {
	t.Helper()
	store := repository.NewMemoryStore()
	views := viewcache.New(viewcache.NewMemoryCache(), policies, zap.NewNop())
	dispatcher := events.NewInMemoryDispatcher()

	env := &testEnv{
		store:      store,
		views:      views,
		dispatcher: dispatcher,
	}
	env.requests = NewRequestService(RequestDependencies{
		RequestRepo:  store,
		CustomerRepo: store.Customers(),
		Dispatcher:   dispatcher,
		Views:        views,
	})
	env.assignments = NewAssignmentService(AssignmentDependencies{
		RequestRepo: store,
		AgentRepo:   store.Agents(),
		Dispatcher:  dispatcher,
		Views:       views,
	})
	env.messages = NewMessageService(MessageDependencies{
		RequestRepo: store,
		MessageRepo: store,
		Dispatcher:  dispatcher,
		Views:       views,
	})
	env.stats = NewStatsService(store, views)
	return env
}

func (e *testEnv) createCustomer(t *testing.T) *domain.Customer {
	t.Helper()
	e.seq++
	customer := &domain.Customer{
		Name:         fmt.Sprintf("customer-%d", e.seq),
		Email:        fmt.Sprintf("customer-%d@example.com", e.seq),
		PasswordHash: "x",
		Status:       domain.CustomerStatusActive,
	}
	if err := e.store.Customers().Create(context.Background(), customer); err != nil {
		t.Fatalf("create customer: %v", err)
	}
	return customer
}

func (e *testEnv) createAgent(t *testing.T, role domain.AgentRole) *domain.Agent {
	t.Helper()
	e.seq++
	agent := &domain.Agent{
		Name:         fmt.Sprintf("agent-%d", e.seq),
		Email:        fmt.Sprintf("agent-%d@example.com", e.seq),
		PasswordHash: "x",
		Role:         role,
		Department:   "support",
		Active:       true,
	}
	if err := e.store.Agents().Create(context.Background(), agent); err != nil {
		t.Fatalf("create agent: %v", err)
	}
	return agent
}

func (e *testEnv) openRequest(t *testing.T, customerID string) *domain.Request {
	t.Helper()
	e.seq++
	request, err := e.requests.Create(context.Background(), customerID, RequestCreateInput{
		Title:       fmt.Sprintf("request %d", e.seq),
		Description: "something broke",
		Priority:    domain.RequestPriorityMedium,
		Category:    domain.CategoryTechnical,
	})
	if err != nil {
		t.Fatalf("open request: %v", err)
	}
	return request
}

func (e *testEnv) claimedRequest(t *testing.T, customerID string, agent *domain.Agent) *domain.Request {
	t.Helper()
	request := e.openRequest(t, customerID)
	claimed, err := e.assignments.Claim(context.Background(), agent, request.ID)
	if err != nil {
		t.Fatalf("claim request: %v", err)
	}
	return claimed
}

func wantCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if !apperrors.IsCode(err, code) {
		t.Fatalf("expected %s error, got %v", code, err)
	}
}

func agentReply(t *testing.T, env *testEnv, agent *domain.Agent, requestID, body string) *domain.Message {
	t.Helper()
	msg, err := env.messages.PostMessage(context.Background(), Sender{ID: agent.ID, Role: domain.SenderRoleAgent}, requestID, body, false, nil)
	if err != nil {
		t.Fatalf("post agent reply: %v", err)
	}
	return msg
}
