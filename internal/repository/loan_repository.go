package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/segyhp/loan-ledger/internal/domain"
	apperrors "github.com/segyhp/loan-ledger/pkg/errors"
)

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanSnapshotRepository {
	return &loanRepository{db: db}
}

// loanRow adds the columns LoanRecord leaves to the caller.
type loanRow struct {
	domain.LoanRecord
	UserID    int64     `db:"user_id"`
	LentOn    time.Time `db:"lending_date"`
	FetchedAt time.Time `db:"fetched_at"`
}

type repaymentRow struct {
	Position      int             `db:"position"`
	Amount        decimal.Decimal `db:"amount"`
	RepaymentType string          `db:"repayment_type"`
	RepaymentDate time.Time       `db:"repayment_date"`
	Comment       string          `db:"comment"`
}

// dateValue passes a calendar date as YYYY-MM-DD text so the session time
// zone cannot shift it.
func dateValue(d civil.Date) string {
	return d.String()
}

func (r *loanRepository) SaveLoan(ctx context.Context, userID int64, snapshot domain.LoanSnapshot, fetchedAt time.Time) error {
	record := snapshot.Record()

	upsert := `
		INSERT INTO loan_snapshots (
			user_id, loan_id, loan_type, principal_amount, pre_charges, rate_of_interest_percent,
			repayment_amount_per_installment, number_of_installments, repayment_frequency,
			no_of_repayments_paid, total_amount_paid, total_principal_paid, lending_date, fetched_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (user_id, loan_id) DO UPDATE SET
			loan_type = EXCLUDED.loan_type,
			principal_amount = EXCLUDED.principal_amount,
			pre_charges = EXCLUDED.pre_charges,
			rate_of_interest_percent = EXCLUDED.rate_of_interest_percent,
			repayment_amount_per_installment = EXCLUDED.repayment_amount_per_installment,
			number_of_installments = EXCLUDED.number_of_installments,
			repayment_frequency = EXCLUDED.repayment_frequency,
			no_of_repayments_paid = EXCLUDED.no_of_repayments_paid,
			total_amount_paid = EXCLUDED.total_amount_paid,
			total_principal_paid = EXCLUDED.total_principal_paid,
			lending_date = EXCLUDED.lending_date,
			fetched_at = EXCLUDED.fetched_at
	`

	insertRepayment := `
		INSERT INTO loan_repayments (user_id, loan_id, position, amount, repayment_type, repayment_date, comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.WrapDatabaseError(err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, upsert,
		userID,
		record.LoanID,
		record.LoanType,
		record.PrincipalAmount,
		record.PreCharges,
		record.RateOfInterestPercent,
		record.RepaymentAmountPerInstallment,
		record.NumberOfInstallments,
		record.RepaymentFrequency,
		record.NoOfRepaymentsPaid,
		record.TotalAmountPaid,
		record.TotalPrincipalPaid,
		dateValue(record.LendingDate),
		fetchedAt,
	)
	if err != nil {
		return apperrors.WrapDatabaseError(err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM loan_repayments WHERE user_id = $1 AND loan_id = $2`, userID, record.LoanID); err != nil {
		return apperrors.WrapDatabaseError(err)
	}

	for i, repayment := range record.Repayments {
		_, err = tx.ExecContext(ctx, insertRepayment,
			userID,
			record.LoanID,
			i,
			repayment.Amount,
			repayment.Type,
			dateValue(repayment.Date),
			repayment.Comment,
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

func (r *loanRepository) GetLoan(ctx context.Context, userID, loanID int64) (domain.LoanSnapshot, time.Time, error) {
	query := `
		SELECT user_id, loan_id, loan_type, principal_amount, pre_charges, rate_of_interest_percent,
			repayment_amount_per_installment, number_of_installments, repayment_frequency,
			no_of_repayments_paid, total_amount_paid, total_principal_paid, lending_date, fetched_at
		FROM loan_snapshots
		WHERE user_id = $1 AND loan_id = $2
	`

	var row loanRow
	err := r.db.GetContext(ctx, &row, query, userID, loanID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.LoanSnapshot{}, time.Time{}, apperrors.WrapLoanNotFound(loanID)
	}
	if err != nil {
		return domain.LoanSnapshot{}, time.Time{}, apperrors.WrapDatabaseError(err)
	}

	var repayments []repaymentRow
	err = r.db.SelectContext(ctx, &repayments, `
		SELECT position, amount, repayment_type, repayment_date, comment
		FROM loan_repayments
		WHERE user_id = $1 AND loan_id = $2
		ORDER BY position
	`, userID, loanID)
	if err != nil {
		return domain.LoanSnapshot{}, time.Time{}, apperrors.WrapDatabaseError(err)
	}

	record := row.LoanRecord
	record.LendingDate = civil.DateOf(row.LentOn)
	record.Repayments = make([]domain.RepaymentRecord, 0, len(repayments))
	for _, rp := range repayments {
		record.Repayments = append(record.Repayments, domain.RepaymentRecord{
			Amount:  rp.Amount,
			Type:    rp.RepaymentType,
			Date:    civil.DateOf(rp.RepaymentDate),
			Comment: rp.Comment,
		})
	}

	snapshot, err := domain.NewLoanSnapshot(record)
	if err != nil {
		return domain.LoanSnapshot{}, time.Time{}, err
	}
	return snapshot, row.FetchedAt, nil
}

func (r *loanRepository) DeleteLoan(ctx context.Context, userID, loanID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM loan_snapshots WHERE user_id = $1 AND loan_id = $2`, userID, loanID)
	if err != nil {
		return apperrors.WrapDatabaseError(err)
	}
	return nil
}

func (r *loanRepository) PruneLoans(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM loan_snapshots WHERE fetched_at < $1`, cutoff)
	if err != nil {
		return 0, apperrors.WrapDatabaseError(err)
	}
	return result.RowsAffected()
}
