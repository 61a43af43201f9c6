package domain

import "time"

// SubjectType differentiates customer vs agent tokens.
type SubjectType string

const (
	SubjectTypeCustomer SubjectType = "CUSTOMER"
	SubjectTypeAgent    SubjectType = "AGENT"
)

// CustomerStatus represents lifecycle states for a customer account.
type CustomerStatus string

const (
	CustomerStatusActive    CustomerStatus = "ACTIVE"
	CustomerStatusSuspended CustomerStatus = "SUSPENDED"
)

// Customer is the domain model for end-users who open support requests.
// The support core references customers; it does not own their accounts.
type Customer struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Status       CustomerStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
