package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/support-request-service/internal/domain"
	"github.com/spec-kit/support-request-service/internal/events"
	"github.com/spec-kit/support-request-service/internal/repository"
	"github.com/spec-kit/support-request-service/internal/viewcache"
	apperrors "github.com/spec-kit/support-request-service/pkg/util"
)

// AssignmentService implements exclusive claim semantics on top of the
// store's compare-and-set primitive, plus privileged reassign/release.
type AssignmentService struct {
	requests   repository.RequestRepository
	agents     repository.AgentRepository
	dispatcher events.Dispatcher
	views      *viewcache.Views
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	RequestRepo repository.RequestRepository
	AgentRepo   repository.AgentRepository
	Dispatcher  events.Dispatcher
	Views       *viewcache.Views
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		requests:   deps.RequestRepo,
		agents:     deps.AgentRepo,
		dispatcher: deps.Dispatcher,
		views:      deps.Views,
	}
}

// Claim takes an open, unassigned request into work for the agent. The
// commit is a compare-and-set: under concurrent claims exactly one caller
// wins, every other caller gets a Conflict and must refresh its view.
func (s *AssignmentService) Claim(ctx context.Context, agent *domain.Agent, requestID string) (*domain.Request, error) {
	if agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	if !agent.Active {
		return nil, apperrors.NewForbidden("agent inactive")
	}

	request, err := s.requests.ClaimAssign(ctx, requestID, agent.ID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.NewNotFound("request", map[string]any{"request_id": requestID})
		case errors.Is(err, repository.ErrConflict):
			return nil, apperrors.NewConflict("request is not open for claim; refresh and retry",
				map[string]any{"request_id": requestID})
		default:
			return nil, apperrors.MapError(err)
		}
	}

	s.views.InvalidateRequest(ctx, request.ID)
	s.publish(ctx, events.EventRequestAssigned, request.ID, agent.ID, events.RequestAssignedPayload{
		AssignedAgentID: agent.ID,
	})
	return request, nil
}

// Reassign replaces the assignee of an in-progress request. The caller
// must be the current assignee or hold override privilege.
func (s *AssignmentService) Reassign(ctx context.Context, actor *domain.Agent, requestID, newAgentID string) (*domain.Request, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	assignee, err := s.agents.GetByID(ctx, newAgentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("agent", map[string]any{"agent_id": newAgentID})
		}
		return nil, apperrors.MapError(err)
	}
	if !assignee.Active {
		return nil, apperrors.NewConflict("assignee inactive", map[string]any{"agent_id": newAgentID})
	}

	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(request.Status, domain.ActionReassign) {
		return nil, apperrors.NewInvalidTransition(string(request.Status), string(domain.ActionReassign))
	}
	if err := requireAssignmentPrivilege(actor, request); err != nil {
		return nil, err
	}

	previous := request.AssignedAgentID
	request.AssignedAgentID = &assignee.ID
	if err := s.requests.Update(ctx, request, request.Status); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, lostTransitionRace(ctx, s.requests, request.ID, domain.ActionReassign)
		}
		return nil, apperrors.MapError(err)
	}

	s.views.InvalidateRequest(ctx, request.ID)
	s.publish(ctx, events.EventRequestAssigned, request.ID, actor.ID, events.RequestAssignedPayload{
		AssignedAgentID: assignee.ID,
		PreviousAgentID: previous,
	})
	return request, nil
}

// Release clears the assignment without completing, returning the request
// to the open pool.
func (s *AssignmentService) Release(ctx context.Context, actor *domain.Agent, requestID string) (*domain.Request, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(request.Status, domain.ActionRelease) {
		return nil, apperrors.NewInvalidTransition(string(request.Status), string(domain.ActionRelease))
	}
	if err := requireAssignmentPrivilege(actor, request); err != nil {
		return nil, err
	}

	previous := request.Status
	request.AssignedAgentID = nil
	request.Status = domain.TransitionTarget(previous, domain.ActionRelease)
	if err := s.requests.Update(ctx, request, previous); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, lostTransitionRace(ctx, s.requests, request.ID, domain.ActionRelease)
		}
		return nil, apperrors.MapError(err)
	}

	s.views.InvalidateRequest(ctx, request.ID)
	return request, nil
}

func (s *AssignmentService) getRequest(ctx context.Context, requestID string) (*domain.Request, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("request", map[string]any{"request_id": requestID})
		}
		return nil, apperrors.MapError(err)
	}
	return request, nil
}

// requireAssignmentPrivilege allows the current assignee or an agent with
// override privilege (supervisor/admin).
func requireAssignmentPrivilege(actor *domain.Agent, request *domain.Request) error {
	if actor.CanOverride() {
		return nil
	}
	if request.AssignedAgentID != nil && *request.AssignedAgentID == actor.ID {
		return nil
	}
	return apperrors.NewForbidden("not the assigned agent")
}

func (s *AssignmentService) publish(ctx context.Context, eventType events.EventType, requestID, agentID string, payload any) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		RequestID: requestID,
		Actor:     agentActor(agentID),
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
