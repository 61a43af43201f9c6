package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-request-service/internal/api/dto"
	"github.com/spec-kit/support-request-service/internal/auth"
	"github.com/spec-kit/support-request-service/internal/domain"
	"github.com/spec-kit/support-request-service/internal/service"
	apperrors "github.com/spec-kit/support-request-service/pkg/util"
)

// MessagesHandler manages request thread endpoints.
type MessagesHandler struct {
	messages *service.MessageService
	requests *service.RequestService
}

// NewMessagesHandler constructs handler.
func NewMessagesHandler(messages *service.MessageService, requests *service.RequestService) *MessagesHandler {
	return &MessagesHandler{messages: messages, requests: requests}
}

// Post POST /requests/:id/messages.
func (h *MessagesHandler) Post(c *fiber.Ctx) error {
	principal, err := h.requireThreadAccess(c)
	if err != nil {
		return err
	}
	var req dto.PostMessagePayload
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	attachments := make([]service.MessageAttachmentInput, 0, len(req.Attachments))
	for _, att := range req.Attachments {
		attachments = append(attachments, service.MessageAttachmentInput{
			StorageKey: att.StorageKey,
			FileName:   att.FileName,
			MimeType:   att.MimeType,
			SizeBytes:  att.SizeBytes,
		})
	}
	sender := service.Sender{ID: principalID(principal), Role: principal.SenderRole()}
	msg, err := h.messages.PostMessage(c.UserContext(), sender, c.Params("id"), req.Body, req.Internal, attachments)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": messageResponse(msg, sender.ID)})
}

// Thread GET /requests/:id/messages.
func (h *MessagesHandler) Thread(c *fiber.Ctx) error {
	principal, err := h.requireThreadAccess(c)
	if err != nil {
		return err
	}
	limit := parseInt(c.Query("limit"), 50)
	page := parseInt(c.Query("page"), 1)
	offset := (page - 1) * limit

	thread, err := h.messages.GetThread(c.UserContext(), principal.SenderRole(), c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	viewerID := principalID(principal)
	items := make([]dto.MessageResponse, 0, len(thread.Messages))
	for i := range thread.Messages {
		items = append(items, messageResponse(&thread.Messages[i], viewerID))
	}
	return c.JSON(fiber.Map{"data": dto.ThreadResponse{
		Messages: items,
		Limit:    thread.Limit,
		Offset:   thread.Offset,
	}})
}

// MarkRead POST /requests/:id/messages/read.
func (h *MessagesHandler) MarkRead(c *fiber.Ctx) error {
	principal, err := h.requireThreadAccess(c)
	if err != nil {
		return err
	}
	var req dto.MarkReadPayload
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.messages.MarkRead(c.UserContext(), c.Params("id"), principalID(principal), req.MessageIDs); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// UnreadCount GET /requests/:id/messages/unread.
func (h *MessagesHandler) UnreadCount(c *fiber.Ctx) error {
	principal, err := h.requireThreadAccess(c)
	if err != nil {
		return err
	}
	count, err := h.messages.UnreadCount(c.UserContext(), principal.SenderRole(), c.Params("id"), principalID(principal))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.UnreadCountResponse{
		RequestID: c.Params("id"),
		Unread:    count,
	}})
}

// requireThreadAccess loads the principal and enforces customer ownership
// of the parent request. Agents may access any thread.
func (h *MessagesHandler) requireThreadAccess(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if principal.Customer != nil {
		request, err := h.requests.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return nil, err
		}
		if request.CustomerID != principal.Customer.ID {
			return nil, apperrors.NewNotFound("request", map[string]any{"request_id": c.Params("id")})
		}
	}
	return principal, nil
}

func principalID(principal *auth.Principal) string {
	if principal.Agent != nil {
		return principal.Agent.ID
	}
	if principal.Customer != nil {
		return principal.Customer.ID
	}
	return ""
}

func messageResponse(msg *domain.Message, viewerID string) dto.MessageResponse {
	attachments := make([]dto.AttachmentResponse, 0, len(msg.Attachments))
	for _, att := range msg.Attachments {
		attachments = append(attachments, dto.AttachmentResponse{
			ID:        att.ID,
			FileName:  att.FileName,
			MimeType:  att.MimeType,
			SizeBytes: att.SizeBytes,
		})
	}
	return dto.MessageResponse{
		ID:          msg.ID,
		RequestID:   msg.RequestID,
		SenderID:    msg.SenderID,
		SenderRole:  msg.SenderRole,
		Body:        msg.Body,
		Internal:    msg.Internal,
		Attachments: attachments,
		Read:        msg.ReadByViewer(viewerID),
		CreatedAt:   msg.CreatedAt,
	}
}
