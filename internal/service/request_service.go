package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/support-request-service/internal/domain"
	"github.com/spec-kit/support-request-service/internal/events"
	"github.com/spec-kit/support-request-service/internal/repository"
	"github.com/spec-kit/support-request-service/internal/viewcache"
	apperrors "github.com/spec-kit/support-request-service/pkg/util"
)

// RequestService coordinates the request lifecycle: intake, listing and
// the state machine transitions other than claim.
type RequestService struct {
	requests   repository.RequestRepository
	customers  repository.CustomerRepository
	dispatcher events.Dispatcher
	views      *viewcache.Views
}

// RequestDependencies bundles collaborators.
type RequestDependencies struct {
	RequestRepo  repository.RequestRepository
	CustomerRepo repository.CustomerRepository
	Dispatcher   events.Dispatcher
	Views        *viewcache.Views
}

// RequestCreateInput describes the intake payload.
type RequestCreateInput struct {
	Title       string
	Description string
	Priority    domain.RequestPriority
	Category    domain.RequestCategory
	Tags        []string
}

// RequestListFilter describes agent listing filters.
type RequestListFilter struct {
	Statuses     []domain.RequestStatus
	Priorities   []domain.RequestPriority
	Categories   []domain.RequestCategory
	SearchTerm   *string
	AssignedToMe bool
	CustomerID   *string
	Limit        int
	Offset       int
}

// NewRequestService constructs the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	return &RequestService{
		requests:   deps.RequestRepo,
		customers:  deps.CustomerRepo,
		dispatcher: deps.Dispatcher,
		views:      deps.Views,
	}
}

// Create opens a new request for a customer.
func (s *RequestService) Create(ctx context.Context, customerID string, input RequestCreateInput) (*domain.Request, error) {
	if fieldErrs := domain.ValidateRequestInput(input.Title, input.Description, input.Priority, input.Category, input.Tags); len(fieldErrs) > 0 {
		return nil, apperrors.NewValidationError("invalid request", fieldErrs)
	}
	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("customer", map[string]any{"customer_id": customerID})
		}
		return nil, apperrors.MapError(err)
	}
	if customer.Status != domain.CustomerStatusActive {
		return nil, apperrors.NewForbidden("customer account suspended")
	}

	request := &domain.Request{
		ExternalKey: generateRequestKey(),
		CustomerID:  customer.ID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Status:      domain.RequestStatusOpen,
		Priority:    input.Priority,
		Category:    input.Category,
		Tags:        input.Tags,
	}
	if request.Priority == "" {
		request.Priority = domain.RequestPriorityMedium
	}
	if request.Category == "" {
		request.Category = domain.CategoryGeneral
	}

	if err := s.requests.Create(ctx, request); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.views.InvalidateRequest(ctx, request.ID)
	s.publish(ctx, events.EventRequestCreated, request.ID, customerActor(customer.ID), events.RequestCreatedPayload{
		Title:    request.Title,
		Priority: request.Priority,
		Category: request.Category,
	})
	return request, nil
}

// List returns requests matching the filter, serving a cached view when
// one younger than the list staleness tolerance exists.
func (s *RequestService) List(ctx context.Context, viewerAgentID string, filter RequestListFilter) ([]domain.Request, error) {
	repoFilter := repository.RequestFilter{
		CustomerID: filter.CustomerID,
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		Categories: filter.Categories,
		SearchTerm: filter.SearchTerm,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	if filter.AssignedToMe {
		viewer := viewerAgentID
		repoFilter.AssigneeID = &viewer
	}

	hash := filterHash(repoFilter)
	if cached, ok := s.views.GetRequestList(ctx, hash); ok {
		var result []domain.Request
		if err := json.Unmarshal(cached, &result); err == nil {
			return result, nil
		}
	}

	result, err := s.requests.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if encoded, err := json.Marshal(result); err == nil {
		s.views.PutRequestList(ctx, hash, encoded)
	}
	return result, nil
}

// Get fetches a single request, serving the cached detail view when
// fresh enough.
func (s *RequestService) Get(ctx context.Context, requestID string) (*domain.Request, error) {
	if cached, ok := s.views.GetRequestDetail(ctx, requestID); ok {
		var request domain.Request
		if err := json.Unmarshal(cached, &request); err == nil {
			return &request, nil
		}
	}
	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if encoded, err := json.Marshal(request); err == nil {
		s.views.PutRequestDetail(ctx, requestID, encoded)
	}
	return request, nil
}

// Complete resolves an in-progress request. Only the assigned agent or a
// privileged actor may complete.
func (s *RequestService) Complete(ctx context.Context, actor *domain.Agent, requestID string, resolution *string) (*domain.Request, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(request.Status, domain.ActionComplete) {
		return nil, apperrors.NewInvalidTransition(string(request.Status), string(domain.ActionComplete))
	}
	if err := requireAssignmentPrivilege(actor, request); err != nil {
		return nil, err
	}

	now := time.Now()
	previous := request.Status
	request.Status = domain.TransitionTarget(previous, domain.ActionComplete)
	request.Resolution = resolution
	request.CompletedAt = &now
	if err := s.requests.Update(ctx, request, previous); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, lostTransitionRace(ctx, s.requests, request.ID, domain.ActionComplete)
		}
		return nil, apperrors.MapError(err)
	}

	s.views.InvalidateRequest(ctx, request.ID)
	s.publish(ctx, events.EventRequestCompleted, request.ID, agentActor(actor.ID), events.RequestCompletedPayload{
		Resolution: resolution,
	})
	return request, nil
}

// Close archives a request from any non-terminal state.
func (s *RequestService) Close(ctx context.Context, actor *domain.Agent, requestID string, reason *string) (*domain.Request, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(request.Status, domain.ActionClose) {
		return nil, apperrors.NewInvalidTransition(string(request.Status), string(domain.ActionClose))
	}

	now := time.Now()
	previous := request.Status
	request.Status = domain.TransitionTarget(previous, domain.ActionClose)
	request.CloseReason = reason
	request.ClosedAt = &now
	if err := s.requests.Update(ctx, request, previous); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, lostTransitionRace(ctx, s.requests, request.ID, domain.ActionClose)
		}
		return nil, apperrors.MapError(err)
	}

	s.views.InvalidateRequest(ctx, request.ID)
	s.publish(ctx, events.EventRequestClosed, request.ID, agentActor(actor.ID), events.RequestClosedPayload{
		Reason:         reason,
		PreviousStatus: previous,
	})
	return request, nil
}

// Reopen re-enters the active lifecycle from completed or closed. A
// non-empty reason is required; the assignment is cleared so the request
// can be claimed again.
func (s *RequestService) Reopen(ctx context.Context, actor *domain.Agent, requestID, reason string) (*domain.Request, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.NewValidationError("invalid reopen", map[string]any{"reason": "reason is required"})
	}
	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(request.Status, domain.ActionReopen) {
		return nil, apperrors.NewInvalidTransition(string(request.Status), string(domain.ActionReopen))
	}

	previous := request.Status
	cleared := request.AssignedAgentID
	request.Status = domain.TransitionTarget(previous, domain.ActionReopen)
	request.AssignedAgentID = nil
	request.CompletedAt = nil
	request.ClosedAt = nil
	request.CloseReason = nil
	if err := s.requests.Update(ctx, request, previous); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, lostTransitionRace(ctx, s.requests, request.ID, domain.ActionReopen)
		}
		return nil, apperrors.MapError(err)
	}

	s.views.InvalidateRequest(ctx, request.ID)
	s.publish(ctx, events.EventRequestReopened, request.ID, agentActor(actor.ID), events.RequestReopenedPayload{
		Reason:         reason,
		ClearedAgentID: cleared,
		PreviousStatus: previous,
	})
	return request, nil
}

// UpdatePriority changes request priority.
func (s *RequestService) UpdatePriority(ctx context.Context, actor *domain.Agent, requestID string, newPriority domain.RequestPriority) (*domain.Request, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	if !domain.ValidPriority(newPriority) {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": fmt.Sprintf("unknown priority %q", newPriority)})
	}
	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Terminal() {
		return nil, apperrors.NewInvalidTransition(string(request.Status), "update_priority")
	}

	oldPriority := request.Priority
	request.Priority = newPriority
	if err := s.requests.Update(ctx, request, request.Status); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			current, getErr := s.getRequest(ctx, request.ID)
			if getErr != nil {
				return nil, getErr
			}
			if current.Terminal() {
				return nil, apperrors.NewInvalidTransition(string(current.Status), "update_priority")
			}
			return nil, apperrors.NewConflict("request changed concurrently; refresh and retry",
				map[string]any{"request_id": request.ID})
		}
		return nil, apperrors.MapError(err)
	}

	s.views.InvalidateRequest(ctx, request.ID)
	s.publish(ctx, events.EventRequestPriorityChanged, request.ID, agentActor(actor.ID), events.RequestPriorityChangedPayload{
		OldPriority: oldPriority,
		NewPriority: newPriority,
	})
	return request, nil
}

func (s *RequestService) getRequest(ctx context.Context, requestID string) (*domain.Request, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("request", map[string]any{"request_id": requestID})
		}
		return nil, apperrors.MapError(err)
	}
	return request, nil
}

// lostTransitionRace explains a guarded write whose status precondition no
// longer held at commit time. The request is re-read so the caller learns
// the state that actually won; when the action is illegal from that state
// the error is an invalid transition, otherwise a plain conflict inviting
// a retry against the fresh state.
func lostTransitionRace(ctx context.Context, requests repository.RequestRepository, requestID string, action domain.LifecycleAction) error {
	request, err := requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("request", map[string]any{"request_id": requestID})
		}
		return apperrors.MapError(err)
	}
	if !domain.CanTransition(request.Status, action) {
		return apperrors.NewInvalidTransition(string(request.Status), string(action))
	}
	return apperrors.NewConflict("request changed concurrently; refresh and retry",
		map[string]any{"request_id": requestID})
}

func (s *RequestService) publish(ctx context.Context, eventType events.EventType, requestID string, actor events.Actor, payload any) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		RequestID: requestID,
		Actor:     actor,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

func generateRequestKey() string {
	return "REQ-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func filterHash(filter repository.RequestFilter) string {
	encoded, err := json.Marshal(filter)
	if err != nil {
		return "all"
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:8])
}

func agentActor(agentID string) events.Actor {
	return events.Actor{Type: domain.SubjectTypeAgent, AgentID: &agentID}
}

func customerActor(customerID string) events.Actor {
	return events.Actor{Type: domain.SubjectTypeCustomer, CustomerID: &customerID}
}
