package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/segyhp/loan-ledger/internal/domain"
	apperrors "github.com/segyhp/loan-ledger/pkg/errors"
)

type lineRepository struct {
	db *sqlx.DB
}

func NewLineRepository(db *sqlx.DB) LineListingRepository {
	return &lineRepository{db: db}
}

type lineRow struct {
	LineID             int64           `db:"line_id"`
	HasAnalytics       bool            `db:"has_analytics"`
	TotalPendingAmount decimal.Decimal `db:"total_pending_amount"`
	TotalPendingPoints decimal.Decimal `db:"total_pending_points"`
	OverdueAmount      decimal.Decimal `db:"overdue_amount"`
	OverduePoints      decimal.Decimal `db:"overdue_points"`
	FetchedAt          time.Time       `db:"fetched_at"`
}

type customerRow struct {
	Position      int    `db:"position"`
	CustomerID    int64  `db:"customer_id"`
	DisplayName   string `db:"display_name"`
	PrimaryMobile string `db:"primary_mobile"`
	LoanStatus    string `db:"loan_status"`
	OverdueDays   int    `db:"overdue_days"`
	IsMissing     bool   `db:"is_missing"`
	PendingLoan   bool   `db:"pending_loan"`
}

func (r *lineRepository) SaveLine(ctx context.Context, userID int64, listing domain.LineListing, fetchedAt time.Time) error {
	row := lineRow{LineID: listing.LineID, FetchedAt: fetchedAt}
	if a := listing.Analytics; a != nil {
		row.HasAnalytics = true
		row.TotalPendingAmount = a.TotalPendingAmount
		row.TotalPendingPoints = a.TotalPendingPoints
		row.OverdueAmount = a.OverdueAmount
		row.OverduePoints = a.OverduePoints
	}

	upsert := `
		INSERT INTO line_listings (
			user_id, line_id, has_analytics, total_pending_amount, total_pending_points,
			overdue_amount, overdue_points, fetched_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, line_id) DO UPDATE SET
			has_analytics = EXCLUDED.has_analytics,
			total_pending_amount = EXCLUDED.total_pending_amount,
			total_pending_points = EXCLUDED.total_pending_points,
			overdue_amount = EXCLUDED.overdue_amount,
			overdue_points = EXCLUDED.overdue_points,
			fetched_at = EXCLUDED.fetched_at
	`

	insertCustomer := `
		INSERT INTO line_customers (
			user_id, line_id, position, customer_id, display_name, primary_mobile,
			loan_status, overdue_days, is_missing, pending_loan
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.WrapDatabaseError(err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, upsert,
		userID,
		row.LineID,
		row.HasAnalytics,
		row.TotalPendingAmount,
		row.TotalPendingPoints,
		row.OverdueAmount,
		row.OverduePoints,
		row.FetchedAt,
	)
	if err != nil {
		return apperrors.WrapDatabaseError(err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM line_customers WHERE user_id = $1 AND line_id = $2`, userID, listing.LineID); err != nil {
		return apperrors.WrapDatabaseError(err)
	}

	for i, c := range listing.Customers {
		_, err = tx.ExecContext(ctx, insertCustomer,
			userID,
			listing.LineID,
			i,
			c.CustomerID,
			c.DisplayName,
			c.PrimaryMobile,
			c.LoanStatus,
			c.OverdueDays,
			c.IsMissing,
			c.PendingLoan,
		)
		if err != nil {
			return apperrors.WrapDatabaseError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.WrapDatabaseError(err)
	}
	return nil
}

func (r *lineRepository) GetLine(ctx context.Context, userID, lineID int64) (domain.LineListing, time.Time, error) {
	var row lineRow
	err := r.db.GetContext(ctx, &row, `
		SELECT line_id, has_analytics, total_pending_amount, total_pending_points,
			overdue_amount, overdue_points, fetched_at
		FROM line_listings
		WHERE user_id = $1 AND line_id = $2
	`, userID, lineID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.LineListing{}, time.Time{}, apperrors.WrapLineNotFound(lineID)
	}
	if err != nil {
		return domain.LineListing{}, time.Time{}, apperrors.WrapDatabaseError(err)
	}

	var customers []customerRow
	err = r.db.SelectContext(ctx, &customers, `
		SELECT position, customer_id, display_name, primary_mobile, loan_status,
			overdue_days, is_missing, pending_loan
		FROM line_customers
		WHERE user_id = $1 AND line_id = $2
		ORDER BY position
	`, userID, lineID)
	if err != nil {
		return domain.LineListing{}, time.Time{}, apperrors.WrapDatabaseError(err)
	}

	listing := domain.LineListing{
		LineID:    row.LineID,
		Customers: make([]domain.CustomerSummary, 0, len(customers)),
	}
	for _, c := range customers {
		listing.Customers = append(listing.Customers, domain.CustomerSummary{
			CustomerID:    c.CustomerID,
			DisplayName:   c.DisplayName,
			PrimaryMobile: c.PrimaryMobile,
			LoanStatus:    c.LoanStatus,
			OverdueDays:   c.OverdueDays,
			IsMissing:     c.IsMissing,
			PendingLoan:   c.PendingLoan,
		})
	}
	if row.HasAnalytics {
		listing.Analytics = &domain.LineAnalytics{
			TotalPendingAmount: row.TotalPendingAmount,
			TotalPendingPoints: row.TotalPendingPoints,
			OverdueAmount:      row.OverdueAmount,
			OverduePoints:      row.OverduePoints,
		}
	}

	return listing, row.FetchedAt, nil
}

func (r *lineRepository) DeleteLine(ctx context.Context, userID, lineID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM line_listings WHERE user_id = $1 AND line_id = $2`, userID, lineID)
	if err != nil {
		return apperrors.WrapDatabaseError(err)
	}
	return nil
}

func (r *lineRepository) PruneLines(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM line_listings WHERE fetched_at < $1`, cutoff)
	if err != nil {
		return 0, apperrors.WrapDatabaseError(err)
	}
	return result.RowsAffected()
}
