package services

import (
	"context"
	"fmt"
	"time"

	"github.com/fenilmodi00/ipo-subscription-backend/database"
	"github.com/fenilmodi00/ipo-subscription-backend/models"
	"github.com/fenilmodi00/ipo-subscription-backend/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// TransactionStore persists ledger entries. database.TransactionRepository
// implements it.
type TransactionStore interface {
	Create(ctx context.Context, q database.Querier, txn *models.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, int, error)
}

// LedgerEntry is the input for one append to the ledger.
type LedgerEntry struct {
	UserID        string
	ApplicationID *uuid.UUID
	Type          models.TransactionType
	Amount        decimal.Decimal
	Status        models.TransactionStatus
}

// LedgerService is the append-only transaction ledger.
type LedgerService struct {
	store          TransactionStore
	ids            IdentifierGenerator
	serviceMetrics *shared.ServiceMetrics
}

func NewLedgerService(store TransactionStore, ids IdentifierGenerator, metrics *shared.ServiceMetrics) *LedgerService {
	if ids == nil {
		ids = TimeOrderedIdentifierGenerator{}
	}
	if metrics == nil {
		metrics = shared.NewServiceMetrics("Ledger_Service")
	}
	return &LedgerService{store: store, ids: ids, serviceMetrics: metrics}
}

// Record appends one entry using q, normally the caller's open transaction.
func (s *LedgerService) Record(ctx context.Context, q database.Querier, entry LedgerEntry) (*models.Transaction, error) {
	if entry.Status == "" {
		entry.Status = models.TransactionStatusPending
	}
	if !entry.Type.IsValid() {
		return nil, shared.NewValidationError(fmt.Sprintf("transaction type %q is not valid", entry.Type))
	}
	if !entry.Status.IsValid() {
		return nil, shared.NewValidationError(fmt.Sprintf("transaction status %q is not valid", entry.Status))
	}
	if entry.Amount.IsNegative() {
		return nil, shared.NewValidationError("transaction amount must not be negative")
	}

	txn := &models.Transaction{
		UserID:        entry.UserID,
		ApplicationID: entry.ApplicationID,
		Type:          entry.Type,
		Amount:        entry.Amount,
		Status:        entry.Status,
		TransactionID: s.ids.Generate(TransactionIDPrefix),
	}
	if err := s.store.Create(ctx, q, txn); err != nil {
		return nil, err
	}

	s.serviceMetrics.IncrementCustomCounter("ledger_" + string(entry.Type))
	logrus.WithFields(logrus.Fields{
		"component":      "ledger",
		"transaction_id": txn.TransactionID,
		"type":           txn.Type,
		"amount":         txn.Amount.String(),
	}).Debug("Ledger entry recorded")
	return txn, nil
}

func validateTransactionFilter(filter *models.TransactionFilter) error {
	if filter.Type != "" && !filter.Type.IsValid() {
		return shared.NewValidationError(fmt.Sprintf("transaction type %q is not valid", filter.Type))
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return shared.NewValidationError(fmt.Sprintf("transaction status %q is not valid", filter.Status))
	}
	filter.PageRequest = filter.PageRequest.Normalized()
	return nil
}

func (s *LedgerService) list(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, models.Pagination, error) {
	start := time.Now()
	if err := validateTransactionFilter(&filter); err != nil {
		return nil, models.Pagination{}, err
	}
	txns, total, err := s.store.List(ctx, filter)
	s.serviceMetrics.RecordRequest(err == nil, time.Since(start))
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return txns, models.NewPagination(filter.PageRequest, total), nil
}

// GetMyTransactions lists the caller's ledger entries, newest first.
func (s *LedgerService) GetMyTransactions(ctx context.Context, userID string, filter models.TransactionFilter) ([]models.Transaction, models.Pagination, error) {
	if userID == "" {
		return nil, models.Pagination{}, shared.NewUnauthorizedError("Not authorized")
	}
	filter.UserID = userID
	return s.list(ctx, filter)
}

// GetAllTransactions lists ledger entries across all users.
func (s *LedgerService) GetAllTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, models.Pagination, error) {
	filter.UserID = ""
	return s.list(ctx, filter)
}

// GetTransactionByID returns one entry if the caller owns it or is an admin.
func (s *LedgerService) GetTransactionByID(ctx context.Context, id string, caller models.Principal) (*models.Transaction, error) {
	txnID, err := parseID(id, "Transaction not found")
	if err != nil {
		return nil, err
	}
	txn, err := s.store.GetByID(ctx, txnID)
	if err != nil {
		return nil, withMessage(err, "Transaction not found")
	}
	if !caller.CanAccess(txn.UserID) {
		return nil, shared.NewForbiddenError("Not authorized")
	}
	return txn, nil
}
