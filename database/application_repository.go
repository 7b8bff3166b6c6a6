package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/fenilmodi00/ipo-subscription-backend/models"
	"github.com/google/uuid"
)

const applicationSelect = `SELECT a.id, a.user_id, a.ipo_id, a.quantity, a.bid_price, a.total_amount,
	a.status, a.allotted_quantity, a.application_number, a.created_at, a.updated_at,
	i.company_name, i.symbol, i.status, i.price_min, i.price_max
	FROM applications a JOIN ipos i ON i.id = a.ipo_id`

// ApplicationRepository persists applications and their status history.
// Writes take a Querier so the workflow can group them in one transaction.
type ApplicationRepository struct {
	db        *sql.DB
	optimizer *DatabaseOptimizer
}

func NewApplicationRepository(db *sql.DB, optimizer *DatabaseOptimizer) *ApplicationRepository {
	if optimizer == nil {
		optimizer = NewDatabaseOptimizer(nil)
	}
	return &ApplicationRepository{db: db, optimizer: optimizer}
}

// WithTransaction runs fn in a database transaction.
func (r *ApplicationRepository) WithTransaction(ctx context.Context, fn func(q Querier) error) error {
	return WithTransaction(ctx, r.db, fn)
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var app models.Application
	summary := models.IPOSummary{PriceRange: &models.PriceRange{}}
	err := row.Scan(
		&app.ID, &app.UserID, &app.IPOID, &app.Quantity, &app.BidPrice, &app.TotalAmount,
		&app.Status, &app.AllottedQuantity, &app.ApplicationNumber, &app.CreatedAt, &app.UpdatedAt,
		&summary.CompanyName, &summary.Symbol, &summary.Status, &summary.PriceRange.Min, &summary.PriceRange.Max,
	)
	if err != nil {
		return nil, err
	}
	summary.ID = app.IPOID
	app.IPO = &summary
	return &app, nil
}

// GetByID returns the application with its IPO summary.
func (r *ApplicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	var app *models.Application
	err := r.optimizer.ExecuteWithRetry(ctx, func() error {
		var err error
		app, err = scanApplication(r.db.QueryRowContext(ctx, applicationSelect+` WHERE a.id = $1`, id))
		return err
	})
	if err != nil {
		return nil, translateError("get_application", err)
	}
	return app, nil
}

// GetForUpdate reads and row-locks the application inside q's transaction.
func (r *ApplicationRepository) GetForUpdate(ctx context.Context, q Querier, id uuid.UUID) (*models.Application, error) {
	app, err := scanApplication(q.QueryRowContext(ctx, applicationSelect+` WHERE a.id = $1 FOR UPDATE OF a`, id))
	if err != nil {
		return nil, translateError("lock_application", err)
	}
	return app, nil
}

// ExistsForUserAndIPO reports whether userID already applied to ipoID.
func (r *ApplicationRepository) ExistsForUserAndIPO(ctx context.Context, q Querier, userID string, ipoID uuid.UUID) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM applications WHERE user_id = $1 AND ipo_id = $2)`,
		userID, ipoID).Scan(&exists)
	if err != nil {
		return false, translateError("check_duplicate_application", err)
	}
	return exists, nil
}

// Create inserts app, filling ID and timestamps.
func (r *ApplicationRepository) Create(ctx context.Context, q Querier, app *models.Application) error {
	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	err := r.optimizer.Record(func() error {
		return q.QueryRowContext(ctx, `
			INSERT INTO applications (id, user_id, ipo_id, quantity, bid_price, total_amount,
				status, allotted_quantity, application_number)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING created_at, updated_at`,
			app.ID, app.UserID, app.IPOID, app.Quantity, app.BidPrice, app.TotalAmount,
			app.Status, app.AllottedQuantity, app.ApplicationNumber,
		).Scan(&app.CreatedAt, &app.UpdatedAt)
	})
	return translateError("create_application", err)
}

// UpdateStatus sets status and allotted quantity and returns the new row.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, q Querier, id uuid.UUID, status models.ApplicationStatus, allottedQuantity int) (*models.Application, error) {
	var affected int64
	err := r.optimizer.Record(func() error {
		res, err := q.ExecContext(ctx, `
			UPDATE applications SET status = $2, allotted_quantity = $3, updated_at = NOW()
			WHERE id = $1`, id, status, allottedQuantity)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return nil, translateError("update_application_status", err)
	}
	if affected == 0 {
		return nil, translateError("update_application_status", sql.ErrNoRows)
	}

	app, err := scanApplication(q.QueryRowContext(ctx, applicationSelect+` WHERE a.id = $1`, id))
	if err != nil {
		return nil, translateError("get_application", err)
	}
	return app, nil
}

// List returns one page of applications, newest first, and the total count.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error) {
	var conditions []string
	var args []any
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("a.user_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	err := r.optimizer.ExecuteWithRetry(ctx, func() error {
		return r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM applications a`+where, args...).Scan(&total)
	})
	if err != nil {
		return nil, 0, translateError("count_applications", err)
	}

	page := filter.PageRequest.Normalized()
	args = append(args, page.Limit, page.Offset())
	query := fmt.Sprintf(`%s%s ORDER BY a.created_at DESC, a.id DESC LIMIT $%d OFFSET $%d`,
		applicationSelect, where, len(args)-1, len(args))

	var apps []models.Application
	err = r.optimizer.ExecuteWithRetry(ctx, func() error {
		apps = apps[:0]
		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			app, err := scanApplication(rows)
			if err != nil {
				return fmt.Errorf("failed to scan application row: %w", err)
			}
			apps = append(apps, *app)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, translateError("list_applications", err)
	}
	return apps, total, nil
}

// InsertStatusLog appends one status change record.
func (r *ApplicationRepository) InsertStatusLog(ctx context.Context, q Querier, entry *models.ApplicationStatusLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	err := q.QueryRowContext(ctx, `
		INSERT INTO application_status_history (id, application_id, from_status, to_status,
			allotted_quantity, changed_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		entry.ID, entry.ApplicationID, entry.FromStatus, entry.ToStatus, entry.AllottedQuantity, entry.ChangedBy,
	).Scan(&entry.Timestamp)
	return translateError("insert_status_log", err)
}

// StatusHistory returns the status changes of an application, oldest first.
func (r *ApplicationRepository) StatusHistory(ctx context.Context, applicationID uuid.UUID) ([]models.ApplicationStatusLog, error) {
	var entries []models.ApplicationStatusLog
	err := r.optimizer.ExecuteWithRetry(ctx, func() error {
		entries = entries[:0]
		rows, err := r.db.QueryContext(ctx, `
			SELECT id, application_id, from_status, to_status, allotted_quantity, changed_by, created_at
			FROM application_status_history WHERE application_id = $1
			ORDER BY created_at ASC, id ASC`, applicationID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var e models.ApplicationStatusLog
			if err := rows.Scan(&e.ID, &e.ApplicationID, &e.FromStatus, &e.ToStatus,
				&e.AllottedQuantity, &e.ChangedBy, &e.Timestamp); err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, translateError("list_status_history", err)
	}
	return entries, nil
}
