package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/segyhp/loan-ledger/internal/domain"
)

type MockLendingAPI struct {
	mock.Mock
}

func (m *MockLendingAPI) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.LoginResponse), args.Error(1)
}

func (m *MockLendingAPI) Signup(ctx context.Context, req domain.SignupRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockLendingAPI) GetLines(ctx context.Context, token string, userID int64) ([]domain.Line, error) {
	args := m.Called(ctx, token, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Line), args.Error(1)
}

func (m *MockLendingAPI) AddLine(ctx context.Context, token string, userID int64, req domain.NewLineRequest) (int64, error) {
	args := m.Called(ctx, token, userID, req)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLendingAPI) GetLineCustomers(ctx context.Context, token string, lineID int64) (domain.LineListing, error) {
	args := m.Called(ctx, token, lineID)
	return args.Get(0).(domain.LineListing), args.Error(1)
}

func (m *MockLendingAPI) GetCustomerInfo(ctx context.Context, token string, customerID int64) (domain.CustomerDetail, error) {
	args := m.Called(ctx, token, customerID)
	return args.Get(0).(domain.CustomerDetail), args.Error(1)
}

func (m *MockLendingAPI) AddCustomer(ctx context.Context, token string, req domain.NewCustomerRequest) (int64, error) {
	args := m.Called(ctx, token, req)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLendingAPI) ToggleMissingCustomer(ctx context.Context, token string, customerID int64) (*bool, error) {
	args := m.Called(ctx, token, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bool), args.Error(1)
}

func (m *MockLendingAPI) DeleteCustomer(ctx context.Context, token string, customerID int64) error {
	args := m.Called(ctx, token, customerID)
	return args.Error(0)
}

func (m *MockLendingAPI) GetLoanDetails(ctx context.Context, token string, loanID int64) (domain.LoanSnapshot, error) {
	args := m.Called(ctx, token, loanID)
	return args.Get(0).(domain.LoanSnapshot), args.Error(1)
}

func (m *MockLendingAPI) AddLoan(ctx context.Context, token string, req domain.NewLoanRequest) (int64, error) {
	args := m.Called(ctx, token, req)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLendingAPI) DeleteLoan(ctx context.Context, token string, loanID int64) error {
	args := m.Called(ctx, token, loanID)
	return args.Error(0)
}

func (m *MockLendingAPI) SendLoanSMS(ctx context.Context, token string, req domain.LoanSMSRequest) error {
	args := m.Called(ctx, token, req)
	return args.Error(0)
}

func (m *MockLendingAPI) AddRepayment(ctx context.Context, token string, req domain.NewRepaymentRequest) error {
	args := m.Called(ctx, token, req)
	return args.Error(0)
}

func (m *MockLendingAPI) AddExpense(ctx context.Context, token string, userID int64, req domain.NewExpenseRequest) error {
	args := m.Called(ctx, token, userID, req)
	return args.Error(0)
}

func (m *MockLendingAPI) ViewExpenses(ctx context.Context, token string, userID int64) ([]domain.Expense, error) {
	args := m.Called(ctx, token, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Expense), args.Error(1)
}
