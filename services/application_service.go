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

// ApplicationStore persists applications. database.ApplicationRepository
// implements it.
type ApplicationStore interface {
	WithTransaction(ctx context.Context, fn func(q database.Querier) error) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error)
	GetForUpdate(ctx context.Context, q database.Querier, id uuid.UUID) (*models.Application, error)
	ExistsForUserAndIPO(ctx context.Context, q database.Querier, userID string, ipoID uuid.UUID) (bool, error)
	Create(ctx context.Context, q database.Querier, app *models.Application) error
	UpdateStatus(ctx context.Context, q database.Querier, id uuid.UUID, status models.ApplicationStatus, allottedQuantity int) (*models.Application, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error)
	InsertStatusLog(ctx context.Context, q database.Querier, entry *models.ApplicationStatusLog) error
	StatusHistory(ctx context.Context, applicationID uuid.UUID) ([]models.ApplicationStatusLog, error)
}

// SubmitApplicationInput is a user's bid for an IPO.
type SubmitApplicationInput struct {
	UserID   string
	IPOID    string
	Quantity int
	BidPrice decimal.Decimal
}

// StatusUpdateInput is an admin decision on an application.
type StatusUpdateInput struct {
	Status           models.ApplicationStatus
	AllottedQuantity int
	ChangedBy        string
}

// identifierAttempts bounds how often a unit of work is replayed after a
// generated identifier collides with an existing one.
const identifierAttempts = 2

// ApplicationService runs the application lifecycle. Application rows and
// their ledger entries are written in one database transaction.
type ApplicationService struct {
	applications   ApplicationStore
	ipos           *IPOService
	ledger         *LedgerService
	ids            IdentifierGenerator
	auditLogger    *AuditLogger
	serviceMetrics *shared.ServiceMetrics
}

func NewApplicationService(applications ApplicationStore, ipos *IPOService, ledger *LedgerService, ids IdentifierGenerator, metrics *shared.ServiceMetrics) *ApplicationService {
	if ids == nil {
		ids = TimeOrderedIdentifierGenerator{}
	}
	if metrics == nil {
		metrics = shared.NewServiceMetrics("Application_Service")
	}
	return &ApplicationService{
		applications:   applications,
		ipos:           ipos,
		ledger:         ledger,
		ids:            ids,
		auditLogger:    NewAuditLogger("application-service"),
		serviceMetrics: metrics,
	}
}

// inTransaction runs fn in a database transaction and replays it once when
// a generated identifier collides.
func (s *ApplicationService) inTransaction(ctx context.Context, operation string, fn func(q database.Querier) error) error {
	var err error
	for attempt := 1; attempt <= identifierAttempts; attempt++ {
		err = s.applications.WithTransaction(ctx, fn)
		if err == nil || !database.IsIdentifierCollision(err) {
			return err
		}
		s.serviceMetrics.IncrementCustomCounter("identifier_collisions")
		logrus.WithFields(logrus.Fields{
			"component": "application_workflow",
			"operation": operation,
			"attempt":   attempt,
		}).Warn("Generated identifier collided, retrying")
	}
	return err
}

// SubmitApplication places a bid on an active IPO and records the matching
// ledger entry.
func (s *ApplicationService) SubmitApplication(ctx context.Context, input SubmitApplicationInput) (*models.Application, error) {
	start := time.Now()
	app, err := s.submit(ctx, input)
	s.serviceMetrics.RecordRequest(err == nil, time.Since(start))
	return app, err
}

func (s *ApplicationService) submit(ctx context.Context, input SubmitApplicationInput) (*models.Application, error) {
	if input.UserID == "" {
		return nil, shared.NewUnauthorizedError("Not authorized")
	}
	if input.Quantity < 1 {
		return nil, shared.NewValidationError("Quantity must be at least 1")
	}
	if input.BidPrice.IsNegative() {
		return nil, shared.NewValidationError("Bid price must be a positive number")
	}
	if !models.HasMoneyPrecision(input.BidPrice) {
		return nil, shared.NewValidationError("Bid price must have at most 2 decimal places")
	}

	ipo, err := s.ipos.GetIPOByID(ctx, input.IPOID)
	if err != nil {
		return nil, err
	}
	if !IsOpenForApplication(ipo) {
		return nil, shared.NewInvalidStateError("IPO is not active")
	}

	totalAmount := input.BidPrice.Mul(decimal.NewFromInt(int64(input.Quantity)))

	var app *models.Application
	var ledgerEntry *models.Transaction
	err = s.inTransaction(ctx, "submit_application", func(q database.Querier) error {
		exists, err := s.applications.ExistsForUserAndIPO(ctx, q, input.UserID, ipo.ID)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewConflictError(database.MessageDuplicateApplication, nil)
		}

		app = &models.Application{
			UserID:            input.UserID,
			IPOID:             ipo.ID,
			Quantity:          input.Quantity,
			BidPrice:          input.BidPrice,
			TotalAmount:       totalAmount,
			Status:            models.ApplicationStatusPending,
			ApplicationNumber: s.ids.Generate(ApplicationNumberPrefix),
		}
		if err := s.applications.Create(ctx, q, app); err != nil {
			return err
		}

		ledgerEntry, err = s.ledger.Record(ctx, q, LedgerEntry{
			UserID:        input.UserID,
			ApplicationID: &app.ID,
			Type:          models.TransactionTypeApplication,
			Amount:        totalAmount,
			Status:        models.TransactionStatusCompleted,
		})
		return err
	})
	if err != nil {
		if shared.IsCategory(err, shared.ErrorCategoryConflict) {
			s.serviceMetrics.IncrementCustomCounter("duplicate_applications")
		}
		return nil, err
	}

	app.IPO = &models.IPOSummary{
		ID:          ipo.ID,
		CompanyName: ipo.CompanyName,
		Symbol:      ipo.Symbol,
		Status:      ipo.Status,
	}

	logrus.WithFields(logrus.Fields{
		"component":          "application_workflow",
		"application_number": app.ApplicationNumber,
		"transaction_id":     ledgerEntry.TransactionID,
		"ipo_symbol":         ipo.Symbol,
		"total_amount":       totalAmount.String(),
	}).Info("Application submitted")
	return app, nil
}

// UpdateApplicationStatus applies an admin decision. Allotting a positive
// quantity appends an allotment entry to the ledger each time it is called.
func (s *ApplicationService) UpdateApplicationStatus(ctx context.Context, id string, input StatusUpdateInput) (*models.Application, error) {
	start := time.Now()
	if !input.Status.IsValid() {
		return nil, shared.NewValidationError(fmt.Sprintf("Invalid status %q", input.Status))
	}
	if input.AllottedQuantity < 0 {
		return nil, shared.NewValidationError("Allotted quantity must not be negative")
	}
	appID, err := parseID(id, "Application not found")
	if err != nil {
		return nil, err
	}

	var updated *models.Application
	var previous models.ApplicationStatus
	var ledgerEntry *models.Transaction
	err = s.inTransaction(ctx, "update_application_status", func(q database.Querier) error {
		ledgerEntry = nil
		current, err := s.applications.GetForUpdate(ctx, q, appID)
		if err != nil {
			return withMessage(err, "Application not found")
		}
		previous = current.Status

		updated, err = s.applications.UpdateStatus(ctx, q, appID, input.Status, input.AllottedQuantity)
		if err != nil {
			return withMessage(err, "Application not found")
		}

		if input.Status == models.ApplicationStatusAllotted && input.AllottedQuantity > 0 {
			ledgerEntry, err = s.ledger.Record(ctx, q, LedgerEntry{
				UserID:        updated.UserID,
				ApplicationID: &updated.ID,
				Type:          models.TransactionTypeAllotment,
				Amount:        updated.BidPrice.Mul(decimal.NewFromInt(int64(input.AllottedQuantity))),
				Status:        models.TransactionStatusCompleted,
			})
			if err != nil {
				return err
			}
		}

		return s.applications.InsertStatusLog(ctx, q, &models.ApplicationStatusLog{
			ApplicationID:    appID,
			FromStatus:       previous,
			ToStatus:         input.Status,
			AllottedQuantity: input.AllottedQuantity,
			ChangedBy:        input.ChangedBy,
		})
	})
	s.serviceMetrics.RecordRequest(err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}

	s.auditLogger.LogApplicationStatusChange(updated, previous, input.ChangedBy, ledgerEntry)
	return updated, nil
}

func validateApplicationFilter(filter *models.ApplicationFilter) error {
	if filter.Status != "" && !filter.Status.IsValid() {
		return shared.NewValidationError(fmt.Sprintf("Invalid status %q", filter.Status))
	}
	filter.PageRequest = filter.PageRequest.Normalized()
	return nil
}

func (s *ApplicationService) list(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, models.Pagination, error) {
	if err := validateApplicationFilter(&filter); err != nil {
		return nil, models.Pagination{}, err
	}
	apps, total, err := s.applications.List(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return apps, models.NewPagination(filter.PageRequest, total), nil
}

// GetMyApplications lists the caller's applications, newest first.
func (s *ApplicationService) GetMyApplications(ctx context.Context, userID string, filter models.ApplicationFilter) ([]models.Application, models.Pagination, error) {
	if userID == "" {
		return nil, models.Pagination{}, shared.NewUnauthorizedError("Not authorized")
	}
	filter.UserID = userID
	return s.list(ctx, filter)
}

// GetAllApplications lists applications across all users.
func (s *ApplicationService) GetAllApplications(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, models.Pagination, error) {
	filter.UserID = ""
	return s.list(ctx, filter)
}

// GetApplicationByID returns an application to its owner or an admin.
func (s *ApplicationService) GetApplicationByID(ctx context.Context, id string, caller models.Principal) (*models.Application, error) {
	appID, err := parseID(id, "Application not found")
	if err != nil {
		return nil, err
	}
	app, err := s.applications.GetByID(ctx, appID)
	if err != nil {
		return nil, withMessage(err, "Application not found")
	}
	if !caller.CanAccess(app.UserID) {
		return nil, shared.NewForbiddenError("Not authorized")
	}
	return app, nil
}

// GetApplicationHistory returns the admin status changes of an application.
func (s *ApplicationService) GetApplicationHistory(ctx context.Context, id string, caller models.Principal) ([]models.ApplicationStatusLog, error) {
	app, err := s.GetApplicationByID(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	return s.applications.StatusHistory(ctx, app.ID)
}
