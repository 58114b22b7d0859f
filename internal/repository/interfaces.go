package repository

import (
	"context"
	"time"

	"github.com/segyhp/loan-ledger/internal/domain"
)

// LoanSnapshotRepository keeps the last loan snapshot fetched for each user so
// a loan page can still be shown while the lending api is unavailable.
type LoanSnapshotRepository interface {
	// SaveLoan replaces the stored snapshot and its repayments
	SaveLoan(ctx context.Context, userID int64, snapshot domain.LoanSnapshot, fetchedAt time.Time) error

	// GetLoan returns the stored snapshot and when it was fetched
	GetLoan(ctx context.Context, userID, loanID int64) (domain.LoanSnapshot, time.Time, error)

	// DeleteLoan removes a stored snapshot; deleting a missing loan is not an error
	DeleteLoan(ctx context.Context, userID, loanID int64) error

	// PruneLoans removes snapshots fetched before cutoff
	PruneLoans(ctx context.Context, cutoff time.Time) (int64, error)
}

// LineListingRepository keeps the last customer listing fetched per line.
type LineListingRepository interface {
	// SaveLine replaces the stored listing
	SaveLine(ctx context.Context, userID int64, listing domain.LineListing, fetchedAt time.Time) error

	// GetLine returns the stored listing and when it was fetched
	GetLine(ctx context.Context, userID, lineID int64) (domain.LineListing, time.Time, error)

	// DeleteLine removes a stored listing
	DeleteLine(ctx context.Context, userID, lineID int64) error

	// PruneLines removes listings fetched before cutoff
	PruneLines(ctx context.Context, cutoff time.Time) (int64, error)
}
