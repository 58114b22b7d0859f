package service

import (
	"context"

	"github.com/segyhp/loan-ledger/internal/cache"
	"github.com/segyhp/loan-ledger/internal/domain"
)

// LendingAPI is the remote system of record for users, lines, customers and
// loans.
type LendingAPI interface {
	Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error)
	Signup(ctx context.Context, req domain.SignupRequest) error

	GetLines(ctx context.Context, token string, userID int64) ([]domain.Line, error)
	AddLine(ctx context.Context, token string, userID int64, req domain.NewLineRequest) (int64, error)
	GetLineCustomers(ctx context.Context, token string, lineID int64) (domain.LineListing, error)

	GetCustomerInfo(ctx context.Context, token string, customerID int64) (domain.CustomerDetail, error)
	AddCustomer(ctx context.Context, token string, req domain.NewCustomerRequest) (int64, error)
	ToggleMissingCustomer(ctx context.Context, token string, customerID int64) (*bool, error)
	DeleteCustomer(ctx context.Context, token string, customerID int64) error

	GetLoanDetails(ctx context.Context, token string, loanID int64) (domain.LoanSnapshot, error)
	AddLoan(ctx context.Context, token string, req domain.NewLoanRequest) (int64, error)
	DeleteLoan(ctx context.Context, token string, loanID int64) error
	SendLoanSMS(ctx context.Context, token string, req domain.LoanSMSRequest) error
	AddRepayment(ctx context.Context, token string, req domain.NewRepaymentRequest) error

	AddExpense(ctx context.Context, token string, userID int64, req domain.NewExpenseRequest) error
	ViewExpenses(ctx context.Context, token string, userID int64) ([]domain.Expense, error)
}

// SnapshotCache holds fetched views together with their refresh state.
type SnapshotCache interface {
	GetLoan(ctx context.Context, userID, loanID int64) (cache.LoanEntry, error)
	PutLoan(ctx context.Context, userID int64, entry cache.LoanEntry) error
	GetLine(ctx context.Context, userID, lineID int64) (cache.LineEntry, error)
	PutLine(ctx context.Context, userID int64, entry cache.LineEntry) error
	Delete(ctx context.Context, key cache.Key) error

	State(ctx context.Context, key cache.Key) (domain.RefreshState, error)
	Transition(ctx context.Context, key cache.Key, event domain.RefreshEvent) (domain.RefreshState, error)
	Invalidate(ctx context.Context, keys ...cache.Key) error
	InvalidateKind(ctx context.Context, userID int64, kind cache.Kind) (int, error)
}
