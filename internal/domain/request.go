package domain

import "time"

// RequestStatus enumerates lifecycle states for support requests.
type RequestStatus string

const (
	RequestStatusOpen       RequestStatus = "OPEN"
	RequestStatusInProgress RequestStatus = "IN_PROGRESS"
	RequestStatusCompleted  RequestStatus = "COMPLETED"
	RequestStatusClosed     RequestStatus = "CLOSED"
)

// RequestPriority enumerates urgency levels.
type RequestPriority string

const (
	RequestPriorityLow    RequestPriority = "LOW"
	RequestPriorityMedium RequestPriority = "MEDIUM"
	RequestPriorityHigh   RequestPriority = "HIGH"
	RequestPriorityUrgent RequestPriority = "URGENT"
)

// RequestCategory tags a request with its problem area.
type RequestCategory string

const (
	CategoryTechnical RequestCategory = "TECHNICAL"
	CategoryBilling   RequestCategory = "BILLING"
	CategoryAccount   RequestCategory = "ACCOUNT"
	CategoryGeneral   RequestCategory = "GENERAL"
	CategoryFeedback  RequestCategory = "FEEDBACK"
)

// Request is the aggregate for customer support requests.
// MessageCount and LastMessageAt are derived from the message thread and
// are recomputed by the store inside the same write that appends a message.
type Request struct {
	ID              string
	ExternalKey     string
	CustomerID      string
	AssignedAgentID *string
	Title           string
	Description     string
	Status          RequestStatus
	Priority        RequestPriority
	Category        RequestCategory
	Tags            []string
	Resolution      *string
	CloseReason     *string
	MessageCount    int
	LastMessageAt   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
	ClosedAt        *time.Time
}

// Terminal reports whether the request has reached the archival state.
func (r *Request) Terminal() bool {
	return r.Status == RequestStatusClosed
}

// ValidStatus reports whether the value is a known lifecycle state.
func ValidStatus(s RequestStatus) bool {
	switch s {
	case RequestStatusOpen, RequestStatusInProgress, RequestStatusCompleted, RequestStatusClosed:
		return true
	}
	return false
}

// ValidPriority reports whether the value is a known priority.
func ValidPriority(p RequestPriority) bool {
	switch p {
	case RequestPriorityLow, RequestPriorityMedium, RequestPriorityHigh, RequestPriorityUrgent:
		return true
	}
	return false
}

// ValidCategory reports whether the value is a known category.
func ValidCategory(c RequestCategory) bool {
	switch c {
	case CategoryTechnical, CategoryBilling, CategoryAccount, CategoryGeneral, CategoryFeedback:
		return true
	}
	return false
}
