package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/fenilmodi00/ipo-subscription-backend/models"
	"github.com/google/uuid"
)

const ipoColumns = `id, company_name, symbol, price_min, price_max, lot_size,
	open_date, close_date, listing_date, status, total_shares, min_investment,
	description, sector, created_at, updated_at`

// IPORepository is the Postgres implementation of the IPO registry store.
type IPORepository struct {
	db        *sql.DB
	optimizer *DatabaseOptimizer
}

func NewIPORepository(db *sql.DB, optimizer *DatabaseOptimizer) *IPORepository {
	if optimizer == nil {
		optimizer = NewDatabaseOptimizer(nil)
	}
	return &IPORepository{db: db, optimizer: optimizer}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIPO(row rowScanner) (*models.IPO, error) {
	var ipo models.IPO
	err := row.Scan(
		&ipo.ID, &ipo.CompanyName, &ipo.Symbol, &ipo.PriceRange.Min, &ipo.PriceRange.Max, &ipo.LotSize,
		&ipo.OpenDate, &ipo.CloseDate, &ipo.ListingDate, &ipo.Status, &ipo.TotalShares, &ipo.MinInvestment,
		&ipo.Description, &ipo.Sector, &ipo.CreatedAt, &ipo.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ipo, nil
}

func (r *IPORepository) queryIPOs(ctx context.Context, operation, query string, args ...any) ([]models.IPO, error) {
	var ipos []models.IPO
	err := r.optimizer.ExecuteWithRetry(ctx, func() error {
		ipos = ipos[:0]
		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			ipo, err := scanIPO(rows)
			if err != nil {
				return fmt.Errorf("failed to scan IPO row: %w", err)
			}
			ipos = append(ipos, *ipo)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, translateError(operation, err)
	}
	return ipos, nil
}

func (r *IPORepository) getOne(ctx context.Context, operation, query string, arg any) (*models.IPO, error) {
	var ipo *models.IPO
	err := r.optimizer.ExecuteWithRetry(ctx, func() error {
		var err error
		ipo, err = scanIPO(r.db.QueryRowContext(ctx, query, arg))
		return err
	})
	if err != nil {
		return nil, translateError(operation, err)
	}
	return ipo, nil
}

// GetByID returns the IPO or a not_found ServiceError.
func (r *IPORepository) GetByID(ctx context.Context, id uuid.UUID) (*models.IPO, error) {
	return r.getOne(ctx, "get_ipo_by_id", `SELECT `+ipoColumns+` FROM ipos WHERE id = $1`, id)
}

func (r *IPORepository) GetBySymbol(ctx context.Context, symbol string) (*models.IPO, error) {
	return r.getOne(ctx, "get_ipo_by_symbol", `SELECT `+ipoColumns+` FROM ipos WHERE symbol = $1`,
		strings.ToUpper(strings.TrimSpace(symbol)))
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// List returns one page of IPOs, newest opening first, plus the total
// number of matching rows.
func (r *IPORepository) List(ctx context.Context, filter models.IPOFilter) ([]models.IPO, int, error) {
	var conditions []string
	var args []any

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		conditions = append(conditions, fmt.Sprintf("(company_name ILIKE $%d OR symbol ILIKE $%d)", len(args), len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	err := r.optimizer.ExecuteWithRetry(ctx, func() error {
		return r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ipos`+where, args...).Scan(&total)
	})
	if err != nil {
		return nil, 0, translateError("count_ipos", err)
	}

	page := filter.PageRequest.Normalized()
	args = append(args, page.Limit, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM ipos%s ORDER BY open_date DESC, id DESC LIMIT $%d OFFSET $%d`,
		ipoColumns, where, len(args)-1, len(args))

	ipos, err := r.queryIPOs(ctx, "list_ipos", query, args...)
	if err != nil {
		return nil, 0, err
	}
	return ipos, total, nil
}

// ListActive returns IPOs marked active whose window contains now.
func (r *IPORepository) ListActive(ctx context.Context, now time.Time) ([]models.IPO, error) {
	return r.queryIPOs(ctx, "list_active_ipos",
		`SELECT `+ipoColumns+` FROM ipos
		 WHERE status = 'active' AND open_date <= $1 AND close_date >= $1
		 ORDER BY open_date DESC, id DESC`, now)
}

// ListUpcoming returns IPOs marked upcoming that have not opened yet.
func (r *IPORepository) ListUpcoming(ctx context.Context, now time.Time) ([]models.IPO, error) {
	return r.queryIPOs(ctx, "list_upcoming_ipos",
		`SELECT `+ipoColumns+` FROM ipos
		 WHERE status = 'upcoming' AND open_date > $1
		 ORDER BY open_date ASC, id ASC`, now)
}

// Create inserts ipo, filling ID and timestamps.
func (r *IPORepository) Create(ctx context.Context, ipo *models.IPO) error {
	if ipo.ID == uuid.Nil {
		ipo.ID = uuid.New()
	}
	err := r.optimizer.Record(func() error {
		return r.db.QueryRowContext(ctx, `
			INSERT INTO ipos (id, company_name, symbol, price_min, price_max, lot_size,
				open_date, close_date, listing_date, status, total_shares, min_investment,
				description, sector)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			RETURNING created_at, updated_at`,
			ipo.ID, ipo.CompanyName, ipo.Symbol, ipo.PriceRange.Min, ipo.PriceRange.Max, ipo.LotSize,
			ipo.OpenDate, ipo.CloseDate, ipo.ListingDate, ipo.Status, ipo.TotalShares, ipo.MinInvestment,
			ipo.Description, ipo.Sector,
		).Scan(&ipo.CreatedAt, &ipo.UpdatedAt)
	})
	return translateError("create_ipo", err)
}

// Update overwrites every mutable column of ipo.
func (r *IPORepository) Update(ctx context.Context, ipo *models.IPO) error {
	err := r.optimizer.Record(func() error {
		return r.db.QueryRowContext(ctx, `
			UPDATE ipos SET company_name = $2, symbol = $3, price_min = $4, price_max = $5,
				lot_size = $6, open_date = $7, close_date = $8, listing_date = $9, status = $10,
				total_shares = $11, min_investment = $12, description = $13, sector = $14,
				updated_at = NOW()
			WHERE id = $1
			RETURNING created_at, updated_at`,
			ipo.ID, ipo.CompanyName, ipo.Symbol, ipo.PriceRange.Min, ipo.PriceRange.Max,
			ipo.LotSize, ipo.OpenDate, ipo.CloseDate, ipo.ListingDate, ipo.Status,
			ipo.TotalShares, ipo.MinInvestment, ipo.Description, ipo.Sector,
		).Scan(&ipo.CreatedAt, &ipo.UpdatedAt)
	})
	return translateError("update_ipo", err)
}

// Delete removes the IPO. IPOs that already have applications are kept.
func (r *IPORepository) Delete(ctx context.Context, id uuid.UUID) error {
	var affected int64
	err := r.optimizer.Record(func() error {
		res, err := r.db.ExecContext(ctx, `DELETE FROM ipos WHERE id = $1`, id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return translateError("delete_ipo", err)
	}
	if affected == 0 {
		return translateError("delete_ipo", sql.ErrNoRows)
	}
	return nil
}

// UpsertBySymbol inserts ipo or refreshes the row with the same symbol.
// created reports whether a new row was inserted.
func (r *IPORepository) UpsertBySymbol(ctx context.Context, ipo *models.IPO) (created bool, err error) {
	if ipo.ID == uuid.Nil {
		ipo.ID = uuid.New()
	}
	err = r.optimizer.Record(func() error {
		// xmax is zero only for a freshly inserted tuple
		return r.db.QueryRowContext(ctx, `
			INSERT INTO ipos (id, company_name, symbol, price_min, price_max, lot_size,
				open_date, close_date, listing_date, status, total_shares, min_investment,
				description, sector)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (symbol) DO UPDATE SET
				company_name = EXCLUDED.company_name,
				price_min = EXCLUDED.price_min,
				price_max = EXCLUDED.price_max,
				lot_size = EXCLUDED.lot_size,
				open_date = EXCLUDED.open_date,
				close_date = EXCLUDED.close_date,
				listing_date = EXCLUDED.listing_date,
				status = EXCLUDED.status,
				total_shares = EXCLUDED.total_shares,
				min_investment = EXCLUDED.min_investment,
				description = EXCLUDED.description,
				sector = EXCLUDED.sector,
				updated_at = NOW()
			RETURNING id, created_at, updated_at, (xmax = 0)`,
			ipo.ID, ipo.CompanyName, ipo.Symbol, ipo.PriceRange.Min, ipo.PriceRange.Max, ipo.LotSize,
			ipo.OpenDate, ipo.CloseDate, ipo.ListingDate, ipo.Status, ipo.TotalShares, ipo.MinInvestment,
			ipo.Description, ipo.Sector,
		).Scan(&ipo.ID, &ipo.CreatedAt, &ipo.UpdatedAt, &created)
	})
	return created, translateError("upsert_ipo", err)
}
