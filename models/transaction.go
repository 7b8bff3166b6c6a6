package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeApplication TransactionType = "application"
	TransactionTypeRefund      TransactionType = "refund"
	TransactionTypeAllotment   TransactionType = "allotment"
)

func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeApplication, TransactionTypeRefund, TransactionTypeAllotment:
		return true
	}
	return false
}

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusCompleted, TransactionStatusFailed:
		return true
	}
	return false
}

// Transaction is an append-only ledger entry.
type Transaction struct {
	ID            uuid.UUID         `json:"id"`
	UserID        string            `json:"userId"`
	ApplicationID *uuid.UUID        `json:"applicationId,omitempty"`
	Type          TransactionType   `json:"type"`
	Amount        decimal.Decimal   `json:"amount"`
	Status        TransactionStatus `json:"status"`
	TransactionID string            `json:"transactionId"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`

	Application *ApplicationSummary `json:"application,omitempty"`
}

type TransactionFilter struct {
	UserID string
	Type   TransactionType
	Status TransactionStatus
	PageRequest
}
