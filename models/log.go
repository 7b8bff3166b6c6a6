package models

import (
	"time"

	"github.com/google/uuid"
)

// ApplicationStatusLog records one admin status change on an application.
type ApplicationStatusLog struct {
	ID               uuid.UUID         `json:"id"`
	ApplicationID    uuid.UUID         `json:"applicationId"`
	FromStatus       ApplicationStatus `json:"fromStatus"`
	ToStatus         ApplicationStatus `json:"toStatus"`
	AllottedQuantity int               `json:"allottedQuantity"`
	ChangedBy        string            `json:"changedBy"`
	Timestamp        time.Time         `json:"timestamp"`
}
