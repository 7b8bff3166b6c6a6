package services

import (
	"fmt"
	"time"

	"github.com/fenilmodi00/ipo-subscription-backend/models"
	"github.com/sirupsen/logrus"
)

// AuditLogger writes structured audit entries for admin-visible changes.
type AuditLogger struct {
	serviceName string
}

func NewAuditLogger(serviceName string) *AuditLogger {
	return &AuditLogger{serviceName: serviceName}
}

// AuditEntry represents a single audit log entry
type AuditEntry struct {
	Timestamp   time.Time              `json:"timestamp"`
	ServiceName string                 `json:"service_name"`
	Operation   string                 `json:"operation"`
	EntityType  string                 `json:"entity_type"`
	EntityID    string                 `json:"entity_id"`
	UserID      string                 `json:"user_id,omitempty"`
	Changes     map[string]interface{} `json:"changes,omitempty"`
	Success     bool                   `json:"success"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (a *AuditLogger) LogIPOCreation(ipo *models.IPO, userID string, err error) {
	a.logAuditEntry(AuditEntry{
		Timestamp:   time.Now(),
		ServiceName: a.serviceName,
		Operation:   "CREATE",
		EntityType:  "IPO",
		EntityID:    ipo.ID.String(),
		UserID:      userID,
		Success:     err == nil,
		ErrorMsg:    errorText(err),
		Metadata: map[string]interface{}{
			"company_name": ipo.CompanyName,
			"symbol":       ipo.Symbol,
			"status":       ipo.Status,
		},
	})
}

// LogIPOUpdate logs IPO updates with before/after comparison
func (a *AuditLogger) LogIPOUpdate(before, after *models.IPO, userID string, err error) {
	changes := calculateIPOChanges(before, after)
	a.logAuditEntry(AuditEntry{
		Timestamp:   time.Now(),
		ServiceName: a.serviceName,
		Operation:   "UPDATE",
		EntityType:  "IPO",
		EntityID:    after.ID.String(),
		UserID:      userID,
		Changes:     changes,
		Success:     err == nil,
		ErrorMsg:    errorText(err),
		Metadata: map[string]interface{}{
			"symbol":        after.Symbol,
			"changes_count": len(changes),
		},
	})
}

func (a *AuditLogger) LogIPODeletion(id, userID string, err error) {
	a.logAuditEntry(AuditEntry{
		Timestamp:   time.Now(),
		ServiceName: a.serviceName,
		Operation:   "DELETE",
		EntityType:  "IPO",
		EntityID:    id,
		UserID:      userID,
		Success:     err == nil,
		ErrorMsg:    errorText(err),
	})
}

// LogBatchOperation logs batch operations with summary statistics
func (a *AuditLogger) LogBatchOperation(operation string, totalCount, successCount, failureCount int, userID string, errors []string) {
	successRate := 0.0
	if totalCount > 0 {
		successRate = float64(successCount) / float64(totalCount)
	}
	entry := AuditEntry{
		Timestamp:   time.Now(),
		ServiceName: a.serviceName,
		Operation:   "BATCH_" + operation,
		EntityType:  "IPO",
		EntityID:    "BATCH",
		UserID:      userID,
		Success:     failureCount == 0,
		Metadata: map[string]interface{}{
			"total_count":   totalCount,
			"success_count": successCount,
			"failure_count": failureCount,
			"success_rate":  successRate,
			"errors":        errors,
		},
	}
	if failureCount > 0 {
		entry.ErrorMsg = fmt.Sprintf("Batch operation had %d failures out of %d total operations", failureCount, totalCount)
	}
	a.logAuditEntry(entry)
}

// LogApplicationStatusChange records an admin decision on an application.
func (a *AuditLogger) LogApplicationStatusChange(app *models.Application, from models.ApplicationStatus, userID string, ledgerEntry *models.Transaction) {
	metadata := map[string]interface{}{
		"application_number": app.ApplicationNumber,
		"allotted_quantity":  app.AllottedQuantity,
	}
	if ledgerEntry != nil {
		metadata["transaction_id"] = ledgerEntry.TransactionID
		metadata["amount"] = ledgerEntry.Amount.String()
	}
	a.logAuditEntry(AuditEntry{
		Timestamp:   time.Now(),
		ServiceName: a.serviceName,
		Operation:   "STATUS_CHANGE",
		EntityType:  "APPLICATION",
		EntityID:    app.ID.String(),
		UserID:      userID,
		Changes: map[string]interface{}{
			"status": map[string]interface{}{"before": from, "after": app.Status},
		},
		Success:  true,
		Metadata: metadata,
	})
}

// calculateIPOChanges compares two IPO objects and returns the changes
func calculateIPOChanges(before, after *models.IPO) map[string]interface{} {
	changes := make(map[string]interface{})
	record := func(field string, b, a interface{}) {
		changes[field] = map[string]interface{}{"before": b, "after": a}
	}

	if before.CompanyName != after.CompanyName {
		record("company_name", before.CompanyName, after.CompanyName)
	}
	if before.Symbol != after.Symbol {
		record("symbol", before.Symbol, after.Symbol)
	}
	if before.Status != after.Status {
		record("status", before.Status, after.Status)
	}
	if !before.PriceRange.Min.Equal(after.PriceRange.Min) || !before.PriceRange.Max.Equal(after.PriceRange.Max) {
		record("price_range", before.PriceRange, after.PriceRange)
	}
	if before.LotSize != after.LotSize {
		record("lot_size", before.LotSize, after.LotSize)
	}
	if before.TotalShares != after.TotalShares {
		record("total_shares", before.TotalShares, after.TotalShares)
	}
	if !before.MinInvestment.Equal(after.MinInvestment) {
		record("min_investment", before.MinInvestment, after.MinInvestment)
	}
	if !before.OpenDate.Equal(after.OpenDate) {
		record("open_date", before.OpenDate, after.OpenDate)
	}
	if !before.CloseDate.Equal(after.CloseDate) {
		record("close_date", before.CloseDate, after.CloseDate)
	}
	if !compareDates(before.ListingDate, after.ListingDate) {
		record("listing_date", before.ListingDate, after.ListingDate)
	}
	if !compareStringPointers(before.Description, after.Description) {
		record("description", before.Description, after.Description)
	}
	if !compareStringPointers(before.Sector, after.Sector) {
		record("sector", before.Sector, after.Sector)
	}
	return changes
}

func compareDates(date1, date2 *time.Time) bool {
	if date1 == nil || date2 == nil {
		return date1 == date2
	}
	return date1.Equal(*date2)
}

func compareStringPointers(str1, str2 *string) bool {
	if str1 == nil || str2 == nil {
		return str1 == str2
	}
	return *str1 == *str2
}

// logAuditEntry logs the audit entry using structured logging
func (a *AuditLogger) logAuditEntry(entry AuditEntry) {
	logFields := logrus.Fields{
		"audit_timestamp": entry.Timestamp,
		"service_name":    entry.ServiceName,
		"operation":       entry.Operation,
		"entity_type":     entry.EntityType,
		"entity_id":       entry.EntityID,
		"success":         entry.Success,
	}
	if entry.UserID != "" {
		logFields["user_id"] = entry.UserID
	}
	if entry.ErrorMsg != "" {
		logFields["error_msg"] = entry.ErrorMsg
	}
	if len(entry.Changes) > 0 {
		logFields["changes"] = entry.Changes
	}
	for key, value := range entry.Metadata {
		logFields["meta_"+key] = value
	}

	if entry.Success {
		logrus.WithFields(logFields).Info("Audit log entry")
	} else {
		logrus.WithFields(logFields).Warn("Audit log entry - operation failed")
	}
}
