package domain

import "time"

// SenderRole indicates which side of the conversation authored a message.
type SenderRole string

const (
	SenderRoleCustomer SenderRole = "CUSTOMER"
	SenderRoleAgent    SenderRole = "AGENT"
)

// Message captures one entry in a request's conversation thread.
// CreatedAt is monotonically non-decreasing within a request; the store
// serializes append order per request.
type Message struct {
	ID          string
	RequestID   string
	SenderID    string
	SenderRole  SenderRole
	Body        string
	Internal    bool
	Attachments []AttachmentReference
	ReadBy      []string
	CreatedAt   time.Time
}

// ReadByViewer reports whether the viewer already has a read receipt.
func (m *Message) ReadByViewer(viewerID string) bool {
	for _, id := range m.ReadBy {
		if id == viewerID {
			return true
		}
	}
	return false
}

// AttachmentReference stores metadata for message attachments. The blob
// itself lives in external storage keyed by StorageKey.
type AttachmentReference struct {
	ID         string
	MessageID  string
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
	CreatedAt  time.Time
}
