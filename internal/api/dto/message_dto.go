package dto

import (
	"time"

	"github.com/spec-kit/support-request-service/internal/domain"
)

// PostMessagePayload payload.
type PostMessagePayload struct {
	Body        string              `json:"body"`
	Internal    bool                `json:"internal"`
	Attachments []AttachmentRequest `json:"attachments"`
}

// AttachmentRequest describes attachment input.
type AttachmentRequest struct {
	StorageKey string `json:"storage_key"`
	FileName   string `json:"file_name"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
}

// MessageResponse represents one thread entry.
type MessageResponse struct {
	ID          string               `json:"id"`
	RequestID   string               `json:"request_id"`
	SenderID    string               `json:"sender_id"`
	SenderRole  domain.SenderRole    `json:"sender_role"`
	Body        string               `json:"body"`
	Internal    bool                 `json:"internal"`
	Attachments []AttachmentResponse `json:"attachments"`
	Read        bool                 `json:"read"`
	CreatedAt   time.Time            `json:"created_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID        string `json:"id"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}

// ThreadResponse is a paged slice of the conversation.
type ThreadResponse struct {
	Messages []MessageResponse `json:"messages"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// MarkReadPayload lists the messages to acknowledge. An empty list marks
// every visible message read.
type MarkReadPayload struct {
	MessageIDs []string `json:"message_ids"`
}

// UnreadCountResponse response.
type UnreadCountResponse struct {
	RequestID string `json:"request_id"`
	Unread    int64  `json:"unread"`
}
