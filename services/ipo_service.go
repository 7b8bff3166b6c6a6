package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fenilmodi00/ipo-subscription-backend/models"
	"github.com/fenilmodi00/ipo-subscription-backend/shared"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// IPOStore is the persistence the registry needs. database.IPORepository
// implements it.
type IPOStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.IPO, error)
	GetBySymbol(ctx context.Context, symbol string) (*models.IPO, error)
	List(ctx context.Context, filter models.IPOFilter) ([]models.IPO, int, error)
	ListActive(ctx context.Context, now time.Time) ([]models.IPO, error)
	ListUpcoming(ctx context.Context, now time.Time) ([]models.IPO, error)
	Create(ctx context.Context, ipo *models.IPO) error
	Update(ctx context.Context, ipo *models.IPO) error
	Delete(ctx context.Context, id uuid.UUID) error
	UpsertBySymbol(ctx context.Context, ipo *models.IPO) (created bool, err error)
}

// IPOService is the IPO registry: listings, admin CRUD and the upsert used
// by the sync job.
type IPOService struct {
	store          IPOStore
	auditLogger    *AuditLogger
	serviceMetrics *shared.ServiceMetrics
	now            func() time.Time
}

func NewIPOService(store IPOStore, metrics *shared.ServiceMetrics) *IPOService {
	if metrics == nil {
		metrics = shared.NewServiceMetrics("IPO_Service")
	}
	return &IPOService{
		store:          store,
		auditLogger:    NewAuditLogger("ipo-service"),
		serviceMetrics: metrics,
		now:            time.Now,
	}
}

func (s *IPOService) record(operation string, start time.Time, err error) {
	s.serviceMetrics.RecordRequest(err == nil, time.Since(start))
	if err != nil {
		s.serviceMetrics.IncrementCustomCounter(operation + "_errors")
	}
}

// parseID treats malformed ids as missing records.
func parseID(id, notFoundMessage string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return uuid.Nil, shared.NewNotFoundError(notFoundMessage)
	}
	return parsed, nil
}

// withMessage replaces the generic not-found text from the store.
func withMessage(err error, message string) error {
	if shared.IsCategory(err, shared.ErrorCategoryNotFound) {
		return shared.NewNotFoundError(message)
	}
	return err
}

// IsOpenForApplication reports whether applications may be submitted.
// Only the stored status is consulted; the date window is not.
func IsOpenForApplication(ipo *models.IPO) bool {
	return ipo != nil && ipo.Status == models.IPOStatusActive
}

// ValidateIPO checks the write-time invariants of an IPO record.
func ValidateIPO(ipo *models.IPO) error {
	var problems []string
	if ipo.CompanyName == "" {
		problems = append(problems, "companyName is required")
	}
	if ipo.Symbol == "" {
		problems = append(problems, "symbol is required")
	} else if len(ipo.Symbol) > 20 {
		problems = append(problems, "symbol must be at most 20 characters")
	}
	if ipo.PriceRange.Min.IsNegative() {
		problems = append(problems, "priceRange.min must not be negative")
	}
	if ipo.PriceRange.Min.GreaterThan(ipo.PriceRange.Max) {
		problems = append(problems, "priceRange.min must not exceed priceRange.max")
	}
	if ipo.LotSize <= 0 {
		problems = append(problems, "lotSize must be positive")
	}
	if ipo.TotalShares <= 0 {
		problems = append(problems, "totalShares must be positive")
	}
	if !ipo.MinInvestment.IsPositive() {
		problems = append(problems, "minInvestment must be positive")
	}
	if ipo.OpenDate.IsZero() {
		problems = append(problems, "openDate is required")
	}
	if ipo.CloseDate.IsZero() {
		problems = append(problems, "closeDate is required")
	}
	if !ipo.OpenDate.IsZero() && !ipo.CloseDate.IsZero() && ipo.CloseDate.Before(ipo.OpenDate) {
		problems = append(problems, "closeDate must not be before openDate")
	}
	if !ipo.Status.IsValid() {
		problems = append(problems, fmt.Sprintf("status %q is not valid", ipo.Status))
	}

	if len(problems) > 0 {
		return shared.NewValidationError(strings.Join(problems, "; ")).WithDetails(problems)
	}
	return nil
}

func (s *IPOService) GetIPOByID(ctx context.Context, id string) (*models.IPO, error) {
	ipoID, err := parseID(id, "IPO not found")
	if err != nil {
		return nil, err
	}
	ipo, err := s.store.GetByID(ctx, ipoID)
	if err != nil {
		return nil, withMessage(err, "IPO not found")
	}
	return ipo, nil
}

// ListIPOs returns one page of IPOs, newest opening first.
func (s *IPOService) ListIPOs(ctx context.Context, filter models.IPOFilter) ([]models.IPO, models.Pagination, error) {
	start := time.Now()
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, models.Pagination{}, shared.NewValidationError(fmt.Sprintf("status %q is not valid", filter.Status))
	}
	filter.Search = strings.TrimSpace(filter.Search)
	filter.PageRequest = filter.PageRequest.Normalized()

	ipos, total, err := s.store.List(ctx, filter)
	s.record("list_ipos", start, err)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return ipos, models.NewPagination(filter.PageRequest, total), nil
}

// GetActiveIPOs returns active IPOs whose window contains now.
func (s *IPOService) GetActiveIPOs(ctx context.Context) ([]models.IPO, error) {
	return s.store.ListActive(ctx, s.now())
}

// GetUpcomingIPOs returns upcoming IPOs opening after now, soonest first.
func (s *IPOService) GetUpcomingIPOs(ctx context.Context) ([]models.IPO, error) {
	return s.store.ListUpcoming(ctx, s.now())
}

func (s *IPOService) CreateIPO(ctx context.Context, ipo *models.IPO, actor string) error {
	start := time.Now()
	ipo.Normalize()
	if err := ValidateIPO(ipo); err != nil {
		return err
	}

	err := s.store.Create(ctx, ipo)
	s.auditLogger.LogIPOCreation(ipo, actor, err)
	s.record("create_ipo", start, err)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"ipo_id": ipo.ID,
		"symbol": ipo.Symbol,
	}).Info("IPO created successfully")
	return nil
}

func (s *IPOService) UpdateIPO(ctx context.Context, id string, patch models.IPOPatch, actor string) (*models.IPO, error) {
	start := time.Now()
	existing, err := s.GetIPOByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *existing
	patch.Apply(&updated)
	updated.Normalize()
	if err := ValidateIPO(&updated); err != nil {
		return nil, err
	}

	err = s.store.Update(ctx, &updated)
	s.auditLogger.LogIPOUpdate(existing, &updated, actor, err)
	s.record("update_ipo", start, err)
	if err != nil {
		return nil, withMessage(err, "IPO not found")
	}
	return &updated, nil
}

// DeleteIPO removes an IPO. IPOs with applications cannot be deleted.
func (s *IPOService) DeleteIPO(ctx context.Context, id, actor string) error {
	start := time.Now()
	ipoID, err := parseID(id, "IPO not found")
	if err != nil {
		return err
	}

	err = s.store.Delete(ctx, ipoID)
	s.auditLogger.LogIPODeletion(ipoID.String(), actor, err)
	s.record("delete_ipo", start, err)
	if shared.IsCategory(err, shared.ErrorCategoryInvalidState) {
		return shared.NewInvalidStateError("IPO has applications and cannot be deleted")
	}
	return withMessage(err, "IPO not found")
}

// UpsertIPOBySymbol inserts or refreshes one IPO keyed by symbol.
func (s *IPOService) UpsertIPOBySymbol(ctx context.Context, ipo *models.IPO) (bool, error) {
	ipo.Normalize()
	if err := ValidateIPO(ipo); err != nil {
		return false, err
	}
	return s.store.UpsertBySymbol(ctx, ipo)
}

// UpsertIPOs upserts every IPO, skipping invalid records. The error is
// non-nil only when no record could be written.
func (s *IPOService) UpsertIPOs(ctx context.Context, ipos []models.IPO, actor string) (models.UpsertResult, error) {
	start := time.Now()
	var result models.UpsertResult
	var failures []string
	var lastErr error

	for i := range ipos {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		created, err := s.UpsertIPOBySymbol(ctx, &ipos[i])
		if err != nil {
			lastErr = err
			failures = append(failures, fmt.Sprintf("%s: %v", ipos[i].Symbol, err))
			logrus.WithFields(logrus.Fields{
				"symbol": ipos[i].Symbol,
				"error":  err,
			}).Warn("Failed to upsert IPO")
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}
	result.Total = result.Created + result.Updated

	s.auditLogger.LogBatchOperation("UPSERT", len(ipos), result.Total, len(failures), actor, failures)
	s.record("upsert_ipos", start, lastErr)

	if result.Total == 0 && lastErr != nil {
		return result, fmt.Errorf("failed to upsert any IPO: %w", lastErr)
	}
	return result, nil
}
