package service

import (
	"context"
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

// MessageService owns request threads: appends, visibility-filtered
// reads and per-viewer read tracking.
type MessageService struct {
	requests   repository.RequestRepository
	messages   repository.MessageRepository
	dispatcher events.Dispatcher
	views      *viewcache.Views
}

// MessageDependencies bundles collaborators.
type MessageDependencies struct {
	RequestRepo repository.RequestRepository
	MessageRepo repository.MessageRepository
	Dispatcher  events.Dispatcher
	Views       *viewcache.Views
}

// Sender identifies the author of a message.
type Sender struct {
	ID   string
	Role domain.SenderRole
}

// MessageAttachmentInput defines attachment metadata.
type MessageAttachmentInput struct {
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
}

// ThreadPage describes a paged thread read.
type ThreadPage struct {
	Messages []domain.Message `json:"messages"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

// NewMessageService constructs the service.
func NewMessageService(deps MessageDependencies) *MessageService {
	return &MessageService{
		requests:   deps.RequestRepo,
		messages:   deps.MessageRepo,
		dispatcher: deps.Dispatcher,
		views:      deps.Views,
	}
}

// PostMessage appends a message to a request thread. Closed requests
// reject messages; every other state accepts them, including completed,
// so post-resolution follow-up stays possible until archival. Validation
// happens before any write and surfaces per-field detail.
func (s *MessageService) PostMessage(ctx context.Context, sender Sender, requestID, body string, internal bool, attachments []MessageAttachmentInput) (*domain.Message, error) {
	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status == domain.RequestStatusClosed {
		return nil, apperrors.NewInvalidTransition(string(request.Status), "post_message")
	}
	if sender.Role == domain.SenderRoleCustomer {
		if internal {
			return nil, apperrors.NewForbidden("customers cannot post internal notes")
		}
		if request.CustomerID != sender.ID {
			return nil, apperrors.NewForbidden("access denied")
		}
	}

	fieldErrs := domain.ValidateMessageBody(body)
	refs := make([]domain.AttachmentReference, 0, len(attachments))
	for _, att := range attachments {
		refs = append(refs, domain.AttachmentReference{
			StorageKey: att.StorageKey,
			FileName:   att.FileName,
			MimeType:   att.MimeType,
			SizeBytes:  att.SizeBytes,
		})
	}
	existingBytes, err := s.messages.TotalAttachmentBytes(ctx, requestID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for field, reason := range domain.ValidateAttachments(refs, existingBytes) {
		fieldErrs[field] = reason
	}
	if len(fieldErrs) > 0 {
		return nil, apperrors.NewValidationError("invalid message", fieldErrs)
	}

	msg := &domain.Message{
		RequestID:   request.ID,
		SenderID:    sender.ID,
		SenderRole:  sender.Role,
		Body:        strings.TrimSpace(body),
		Internal:    internal,
		Attachments: refs,
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("request", map[string]any{"request_id": requestID})
		}
		return nil, apperrors.MapError(err)
	}

	s.views.InvalidateThread(ctx, request.ID)
	s.publish(ctx, events.EventMessagePosted, request.ID, sender, events.MessagePostedPayload{
		MessageID:   msg.ID,
		SenderRole:  sender.Role,
		Internal:    internal,
		BodyPreview: bodyPreview(msg.Body, 120),
	})
	return msg, nil
}

// GetThread returns a page of the request's thread. Internal notes are
// filtered out at read time for customer viewers, whatever the paging.
func (s *MessageService) GetThread(ctx context.Context, viewerRole domain.SenderRole, requestID string, limit, offset int) (*ThreadPage, error) {
	if _, err := s.getRequest(ctx, requestID); err != nil {
		return nil, err
	}
	includeInternal := viewerRole == domain.SenderRoleAgent

	variant := fmt.Sprintf("%s:l%d:o%d", viewerRole, limit, offset)
	if cached, ok := s.views.GetThread(ctx, requestID, variant); ok {
		var page ThreadPage
		if err := json.Unmarshal(cached, &page); err == nil {
			return &page, nil
		}
	}

	messages, err := s.messages.ListByRequest(ctx, requestID, includeInternal, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	page := &ThreadPage{Messages: messages, Limit: limit, Offset: offset}
	if encoded, err := json.Marshal(page); err == nil {
		s.views.PutThread(ctx, requestID, variant, encoded)
	}
	return page, nil
}

// MarkRead records read receipts for the viewer. Idempotent: marking a
// message already read changes nothing.
func (s *MessageService) MarkRead(ctx context.Context, requestID, viewerID string, messageIDs []string) error {
	if _, err := s.getRequest(ctx, requestID); err != nil {
		return err
	}
	if err := s.messages.MarkRead(ctx, requestID, viewerID, messageIDs); err != nil {
		return apperrors.MapError(err)
	}
	s.views.InvalidateThread(ctx, requestID)
	return nil
}

// UnreadCount counts messages visible to the viewer's role that the
// viewer has not read.
func (s *MessageService) UnreadCount(ctx context.Context, viewerRole domain.SenderRole, requestID, viewerID string) (int64, error) {
	if _, err := s.getRequest(ctx, requestID); err != nil {
		return 0, err
	}
	count, err := s.messages.UnreadCount(ctx, requestID, viewerID, viewerRole == domain.SenderRoleAgent)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return count, nil
}

func (s *MessageService) getRequest(ctx context.Context, requestID string) (*domain.Request, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("request", map[string]any{"request_id": requestID})
		}
		return nil, apperrors.MapError(err)
	}
	return request, nil
}

func (s *MessageService) publish(ctx context.Context, eventType events.EventType, requestID string, sender Sender, payload any) {
	if s.dispatcher == nil {
		return
	}
	actor := customerActor(sender.ID)
	if sender.Role == domain.SenderRoleAgent {
		actor = agentActor(sender.ID)
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

func bodyPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
