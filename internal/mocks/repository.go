package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/segyhp/loan-ledger/internal/domain"
)

type MockLoanSnapshotRepository struct {
	mock.Mock
}

func (m *MockLoanSnapshotRepository) SaveLoan(ctx context.Context, userID int64, snapshot domain.LoanSnapshot, fetchedAt time.Time) error {
	args := m.Called(ctx, userID, snapshot, fetchedAt)
	return args.Error(0)
}

func (m *MockLoanSnapshotRepository) GetLoan(ctx context.Context, userID, loanID int64) (domain.LoanSnapshot, time.Time, error) {
	args := m.Called(ctx, userID, loanID)
	return args.Get(0).(domain.LoanSnapshot), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockLoanSnapshotRepository) DeleteLoan(ctx context.Context, userID, loanID int64) error {
	args := m.Called(ctx, userID, loanID)
	return args.Error(0)
}

func (m *MockLoanSnapshotRepository) PruneLoans(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type MockLineListingRepository struct {
	mock.Mock
}

func (m *MockLineListingRepository) SaveLine(ctx context.Context, userID int64, listing domain.LineListing, fetchedAt time.Time) error {
	args := m.Called(ctx, userID, listing, fetchedAt)
	return args.Error(0)
}

func (m *MockLineListingRepository) GetLine(ctx context.Context, userID, lineID int64) (domain.LineListing, time.Time, error) {
	args := m.Called(ctx, userID, lineID)
	return args.Get(0).(domain.LineListing), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockLineListingRepository) DeleteLine(ctx context.Context, userID, lineID int64) error {
	args := m.Called(ctx, userID, lineID)
	return args.Error(0)
}

func (m *MockLineListingRepository) PruneLines(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}
