package mocks

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/mock"

	"github.com/segyhp/loan-ledger/internal/auth"
	"github.com/segyhp/loan-ledger/internal/cache"
	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/internal/ledger"
	"github.com/segyhp/loan-ledger/internal/service"
)

type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoginResponse), args.Error(1)
}

func (m *MockLedgerService) Signup(ctx context.Context, req domain.SignupRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockLedgerService) ListLines(ctx context.Context, p auth.Principal) ([]domain.Line, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Line), args.Error(1)
}

func (m *MockLedgerService) AddLine(ctx context.Context, p auth.Principal, req domain.NewLineRequest) (int64, error) {
	args := m.Called(ctx, p, req)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerService) GetLineView(ctx context.Context, p auth.Principal, lineID int64, tab ledger.Tab) (*service.LineView, error) {
	args := m.Called(ctx, p, lineID, tab)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LineView), args.Error(1)
}

func (m *MockLedgerService) AddCustomer(ctx context.Context, p auth.Principal, req domain.NewCustomerRequest) (int64, error) {
	args := m.Called(ctx, p, req)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerService) GetCustomer(ctx context.Context, p auth.Principal, customerID int64) (*domain.CustomerDetail, error) {
	args := m.Called(ctx, p, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CustomerDetail), args.Error(1)
}

func (m *MockLedgerService) DeleteCustomer(ctx context.Context, p auth.Principal, customerID int64) error {
	args := m.Called(ctx, p, customerID)
	return args.Error(0)
}

func (m *MockLedgerService) ToggleMissingCustomer(ctx context.Context, p auth.Principal, customerID int64) (*bool, error) {
	args := m.Called(ctx, p, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bool), args.Error(1)
}

func (m *MockLedgerService) AddLoan(ctx context.Context, p auth.Principal, req domain.NewLoanRequest) (*service.AddLoanResult, error) {
	args := m.Called(ctx, p, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AddLoanResult), args.Error(1)
}

func (m *MockLedgerService) GetLoanView(ctx context.Context, p auth.Principal, loanID int64, today civil.Date) (*service.LoanView, error) {
	args := m.Called(ctx, p, loanID, today)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LoanView), args.Error(1)
}

func (m *MockLedgerService) DeleteLoan(ctx context.Context, p auth.Principal, loanID int64) error {
	args := m.Called(ctx, p, loanID)
	return args.Error(0)
}

func (m *MockLedgerService) MarkRepayment(ctx context.Context, p auth.Principal, req domain.NewRepaymentRequest) error {
	args := m.Called(ctx, p, req)
	return args.Error(0)
}

func (m *MockLedgerService) AddExpense(ctx context.Context, p auth.Principal, req domain.NewExpenseRequest) error {
	args := m.Called(ctx, p, req)
	return args.Error(0)
}

func (m *MockLedgerService) ListExpenses(ctx context.Context, p auth.Principal) ([]domain.Expense, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Expense), args.Error(1)
}

func (m *MockLedgerService) InvalidateCache(ctx context.Context, p auth.Principal, kind cache.Kind) (int, error) {
	args := m.Called(ctx, p, kind)
	return args.Int(0), args.Error(1)
}
