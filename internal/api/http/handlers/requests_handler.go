package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-request-service/internal/api/dto"
	"github.com/spec-kit/support-request-service/internal/auth"
	"github.com/spec-kit/support-request-service/internal/domain"
	"github.com/spec-kit/support-request-service/internal/service"
	apperrors "github.com/spec-kit/support-request-service/pkg/util"
)

// RequestsHandler manages request lifecycle endpoints.
type RequestsHandler struct {
	requests    *service.RequestService
	assignments *service.AssignmentService
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(requests *service.RequestService, assignments *service.AssignmentService) *RequestsHandler {
	return &RequestsHandler{requests: requests, assignments: assignments}
}

// Create POST /requests.
func (h *RequestsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Customer == nil {
		return apperrors.NewUnauthorized("customer required")
	}
	var req dto.CreateRequestPayload
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.RequestCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Category:    req.Category,
		Tags:        req.Tags,
	}
	request, err := h.requests.Create(c.UserContext(), principal.Customer.ID, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": requestDetail(request)})
}

// List GET /requests. Agents see the full population with filters;
// customers see only their own requests.
func (h *RequestsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	filter := parseRequestListQuery(c)
	viewerAgentID := ""
	if principal.Customer != nil {
		customerID := principal.Customer.ID
		filter.CustomerID = &customerID
		filter.AssignedToMe = false
	} else if principal.Agent != nil {
		viewerAgentID = principal.Agent.ID
	}

	requests, err := h.requests.List(c.UserContext(), viewerAgentID, filter)
	if err != nil {
		return err
	}
	items := make([]dto.RequestSummary, 0, len(requests))
	for i := range requests {
		items = append(items, requestSummary(&requests[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /requests/:id.
func (h *RequestsHandler) Get(c *fiber.Ctx) error {
	_, request, err := h.loadForViewer(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestDetail(request)})
}

// Claim POST /requests/:id/claim.
func (h *RequestsHandler) Claim(c *fiber.Ctx) error {
	agent, err := requireAgent(c)
	if err != nil {
		return err
	}
	request, err := h.assignments.Claim(c.UserContext(), agent, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestDetail(request)})
}

// Complete POST /requests/:id/complete.
func (h *RequestsHandler) Complete(c *fiber.Ctx) error {
	agent, err := requireAgent(c)
	if err != nil {
		return err
	}
	var req dto.CompleteRequestPayload
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	request, err := h.requests.Complete(c.UserContext(), agent, c.Params("id"), req.Resolution)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestDetail(request)})
}

// Close POST /requests/:id/close.
func (h *RequestsHandler) Close(c *fiber.Ctx) error {
	agent, err := requireAgent(c)
	if err != nil {
		return err
	}
	var req dto.CloseRequestPayload
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	request, err := h.requests.Close(c.UserContext(), agent, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestDetail(request)})
}

// Reopen POST /requests/:id/reopen.
func (h *RequestsHandler) Reopen(c *fiber.Ctx) error {
	agent, err := requireAgent(c)
	if err != nil {
		return err
	}
	var req dto.ReopenRequestPayload
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	request, err := h.requests.Reopen(c.UserContext(), agent, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestDetail(request)})
}

// Reassign POST /requests/:id/reassign.
func (h *RequestsHandler) Reassign(c *fiber.Ctx) error {
	agent, err := requireAgent(c)
	if err != nil {
		return err
	}
	var req dto.ReassignRequestPayload
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.AgentID) == "" {
		return apperrors.NewValidationError("agent_id required", nil)
	}
	request, err := h.assignments.Reassign(c.UserContext(), agent, c.Params("id"), req.AgentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestDetail(request)})
}

// Release POST /requests/:id/release.
func (h *RequestsHandler) Release(c *fiber.Ctx) error {
	agent, err := requireAgent(c)
	if err != nil {
		return err
	}
	request, err := h.assignments.Release(c.UserContext(), agent, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestDetail(request)})
}

// UpdatePriority PATCH /requests/:id/priority.
func (h *RequestsHandler) UpdatePriority(c *fiber.Ctx) error {
	agent, err := requireAgent(c)
	if err != nil {
		return err
	}
	var req dto.UpdatePriorityPayload
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	request, err := h.requests.UpdatePriority(c.UserContext(), agent, c.Params("id"), req.Priority)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestDetail(request)})
}

// loadForViewer fetches the request and enforces customer ownership.
// Agents may view any request.
func (h *RequestsHandler) loadForViewer(c *fiber.Ctx) (*auth.Principal, *domain.Request, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, nil, apperrors.NewUnauthorized("authentication required")
	}
	request, err := h.requests.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return nil, nil, err
	}
	if principal.Customer != nil && request.CustomerID != principal.Customer.ID {
		return nil, nil, apperrors.NewNotFound("request", map[string]any{"request_id": c.Params("id")})
	}
	return principal, request, nil
}

func requireAgent(c *fiber.Ctx) (*domain.Agent, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	return principal.Agent, nil
}

func parseRequestListQuery(c *fiber.Ctx) service.RequestListFilter {
	filter := service.RequestListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.RequestStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.RequestPriority(strings.TrimSpace(part)))
		}
	}
	if categoryStr := c.Query("category"); categoryStr != "" {
		for _, part := range strings.Split(categoryStr, ",") {
			filter.Categories = append(filter.Categories, domain.RequestCategory(strings.TrimSpace(part)))
		}
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		filter.SearchTerm = &search
	}
	filter.AssignedToMe = c.Query("assigned_to_me") == "true"

	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func requestSummary(request *domain.Request) dto.RequestSummary {
	return dto.RequestSummary{
		ID:              request.ID,
		ExternalKey:     request.ExternalKey,
		CustomerID:      request.CustomerID,
		AssignedAgentID: request.AssignedAgentID,
		Title:           request.Title,
		Status:          request.Status,
		Priority:        request.Priority,
		Category:        request.Category,
		Tags:            request.Tags,
		MessageCount:    request.MessageCount,
		LastMessageAt:   request.LastMessageAt,
		CreatedAt:       request.CreatedAt,
		UpdatedAt:       request.UpdatedAt,
	}
}

func requestDetail(request *domain.Request) dto.RequestDetailResponse {
	return dto.RequestDetailResponse{
		ID:              request.ID,
		ExternalKey:     request.ExternalKey,
		CustomerID:      request.CustomerID,
		AssignedAgentID: request.AssignedAgentID,
		Title:           request.Title,
		Description:     request.Description,
		Status:          request.Status,
		Priority:        request.Priority,
		Category:        request.Category,
		Tags:            request.Tags,
		Resolution:      request.Resolution,
		CloseReason:     request.CloseReason,
		MessageCount:    request.MessageCount,
		LastMessageAt:   request.LastMessageAt,
		CreatedAt:       request.CreatedAt,
		UpdatedAt:       request.UpdatedAt,
		CompletedAt:     request.CompletedAt,
		ClosedAt:        request.ClosedAt,
	}
}
