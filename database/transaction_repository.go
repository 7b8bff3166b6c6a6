package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/fenilmodi00/ipo-subscription-backend/models"
	"github.com/google/uuid"
)

const transactionSelect = `SELECT t.id, t.user_id, t.application_id, t.type, t.amount, t.status,
	t.transaction_id, t.created_at, t.updated_at,
	a.application_number, a.ipo_id, a.status
	FROM transactions t LEFT JOIN applications a ON a.id = t.application_id`

// TransactionRepository is the append-only ledger store. There is no
// update or delete.
type TransactionRepository struct {
	db        *sql.DB
	optimizer *DatabaseOptimizer
}

func NewTransactionRepository(db *sql.DB, optimizer *DatabaseOptimizer) *TransactionRepository {
	if optimizer == nil {
		optimizer = NewDatabaseOptimizer(nil)
	}
	return &TransactionRepository{db: db, optimizer: optimizer}
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var txn models.Transaction
	var applicationID uuid.NullUUID
	var appNumber sql.NullString
	var appIPOID uuid.NullUUID
	var appStatus sql.NullString

	err := row.Scan(
		&txn.ID, &txn.UserID, &applicationID, &txn.Type, &txn.Amount, &txn.Status,
		&txn.TransactionID, &txn.CreatedAt, &txn.UpdatedAt,
		&appNumber, &appIPOID, &appStatus,
	)
	if err != nil {
		return nil, err
	}
	if applicationID.Valid {
		id := applicationID.UUID
		txn.ApplicationID = &id
		if appNumber.Valid {
			txn.Application = &models.ApplicationSummary{
				ID:                id,
				ApplicationNumber: appNumber.String,
				IPOID:             appIPOID.UUID,
				Status:            models.ApplicationStatus(appStatus.String),
			}
		}
	}
	return &txn, nil
}

// Create appends txn, filling ID and timestamps.
func (r *TransactionRepository) Create(ctx context.Context, q Querier, txn *models.Transaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	var applicationID uuid.NullUUID
	if txn.ApplicationID != nil {
		applicationID = uuid.NullUUID{UUID: *txn.ApplicationID, Valid: true}
	}
	err := r.optimizer.Record(func() error {
		return q.QueryRowContext(ctx, `
			INSERT INTO transactions (id, user_id, application_id, type, amount, status, transaction_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at, updated_at`,
			txn.ID, txn.UserID, applicationID, txn.Type, txn.Amount, txn.Status, txn.TransactionID,
		).Scan(&txn.CreatedAt, &txn.UpdatedAt)
	})
	return translateError("create_transaction", err)
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn *models.Transaction
	err := r.optimizer.ExecuteWithRetry(ctx, func() error {
		var err error
		txn, err = scanTransaction(r.db.QueryRowContext(ctx, transactionSelect+` WHERE t.id = $1`, id))
		return err
	})
	if err != nil {
		return nil, translateError("get_transaction", err)
	}
	return txn, nil
}

// List returns one page of ledger entries, newest first, and the total count.
func (r *TransactionRepository) List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, int, error) {
	var conditions []string
	var args []any
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("t.user_id = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("t.type = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("t.status = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	err := r.optimizer.ExecuteWithRetry(ctx, func() error {
		return r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions t`+where, args...).Scan(&total)
	})
	if err != nil {
		return nil, 0, translateError("count_transactions", err)
	}

	page := filter.PageRequest.Normalized()
	args = append(args, page.Limit, page.Offset())
	query := fmt.Sprintf(`%s%s ORDER BY t.created_at DESC, t.id DESC LIMIT $%d OFFSET $%d`,
		transactionSelect, where, len(args)-1, len(args))

	var txns []models.Transaction
	err = r.optimizer.ExecuteWithRetry(ctx, func() error {
		txns = txns[:0]
		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			txn, err := scanTransaction(rows)
			if err != nil {
				return fmt.Errorf("failed to scan transaction row: %w", err)
			}
			txns = append(txns, *txn)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, translateError("list_transactions", err)
	}
	return txns, total, nil
}
