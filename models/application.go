package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ApplicationStatus string

const (
	ApplicationStatusPending     ApplicationStatus = "pending"
	ApplicationStatusApproved    ApplicationStatus = "approved"
	ApplicationStatusRejected    ApplicationStatus = "rejected"
	ApplicationStatusAllotted    ApplicationStatus = "allotted"
	ApplicationStatusNotAllotted ApplicationStatus = "not_allotted"
)

func (s ApplicationStatus) IsValid() bool {
	switch s {
	case ApplicationStatusPending, ApplicationStatusApproved, ApplicationStatusRejected,
		ApplicationStatusAllotted, ApplicationStatusNotAllotted:
		return true
	}
	return false
}

// Application is a user's bid for one IPO. TotalAmount is fixed at creation.
type Application struct {
	ID                uuid.UUID         `json:"id"`
	UserID            string            `json:"userId"`
	IPOID             uuid.UUID         `json:"ipoId"`
	Quantity          int               `json:"quantity"`
	BidPrice          decimal.Decimal   `json:"bidPrice"`
	TotalAmount       decimal.Decimal   `json:"totalAmount"`
	Status            ApplicationStatus `json:"status"`
	AllottedQuantity  int               `json:"allottedQuantity"`
	ApplicationNumber string            `json:"applicationNumber"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`

	IPO *IPOSummary `json:"ipo,omitempty"`
}

// ApplicationSummary is embedded in transaction responses.
type ApplicationSummary struct {
	ID                uuid.UUID         `json:"id"`
	ApplicationNumber string            `json:"applicationNumber"`
	IPOID             uuid.UUID         `json:"ipoId"`
	Status            ApplicationStatus `json:"status"`
}

// ApplicationFilter selects applications for listing. An empty UserID
// lists across all users.
type ApplicationFilter struct {
	UserID string
	Status ApplicationStatus
	PageRequest
}
