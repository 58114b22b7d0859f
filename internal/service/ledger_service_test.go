package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/loan-ledger/internal/auth"
	"github.com/segyhp/loan-ledger/internal/cache"
	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/internal/ledger"
	"github.com/segyhp/loan-ledger/internal/mocks"
	"github.com/segyhp/loan-ledger/internal/service"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
)

const (
	userID int64 = 7
	loanID int64 = 101
	lineID int64 = 3
	token        = "access-token"
)

var (
	principal = auth.Principal{UserID: userID, Token: token}
	fixedNow  = time.Date(2025, 5, 16, 9, 30, 0, 0, time.UTC)
	today     = civil.Date{Year: 2025, Month: 5, Day: 16}
)

type fixture struct {
	api      *mocks.MockLendingAPI
	loanRepo *mocks.MockLoanSnapshotRepository
	lineRepo *mocks.MockLineListingRepository
	cache    *cache.Cache
	redis    *miniredis.Miniredis
	hook     *test.Hook
	service  *service.LedgerService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	f := &fixture{
		api:      new(mocks.MockLendingAPI),
		loanRepo: new(mocks.MockLoanSnapshotRepository),
		lineRepo: new(mocks.MockLineListingRepository),
		cache:    cache.New(client, time.Hour),
		redis:    mr,
		hook:     hook,
	}
	f.service = service.NewLedgerService(f.api, f.cache, f.loanRepo, f.lineRepo, logger, 30).
		WithClock(func() time.Time { return fixedNow })
	return f
}

func (f *fixture) assertExpectations(t *testing.T) {
	f.api.AssertExpectations(t)
	f.loanRepo.AssertExpectations(t)
	f.lineRepo.AssertExpectations(t)
}

func (f *fixture) state(t *testing.T, key cache.Key) domain.RefreshState {
	t.Helper()
	state, err := f.cache.State(context.Background(), key)
	require.NoError(t, err)
	return state
}

func interestOnlyLoan(t *testing.T) domain.LoanSnapshot {
	t.Helper()
	s, err := domain.NewInterestOnlyLoan(domain.LoanBase{
		LoanID:               loanID,
		PrincipalAmount:      decimal.NewFromInt(10000),
		NumberOfInstallments: 12,
		LendingDate:          civil.Date{Year: 2025, Month: 4, Day: 1},
	}, domain.InterestOnlyTerms{
		RateOfInterestPercent: decimal.NewFromInt(2),
		TotalPrincipalPaid:    decimal.NewFromInt(4000),
	})
	require.NoError(t, err)
	return s
}

func installmentLoan(t *testing.T) domain.LoanSnapshot {
	t.Helper()
	s, err := domain.NewInstallmentLoan(domain.LoanBase{
		LoanID:               loanID,
		PrincipalAmount:      decimal.NewFromInt(10000),
		NumberOfInstallments: 10,
		LendingDate:          civil.Date{Year: 2025, Month: 4, Day: 1},
	}, domain.InstallmentTerms{
		RepaymentAmountPerInstallment: decimal.NewFromInt(1200),
		TotalAmountPaid:               decimal.NewFromInt(3600),
	})
	require.NoError(t, err)
	return s
}

func upstreamDown() error {
	return fmt.Errorf("%w: connection refused", customError.ErrUpstream)
}

func TestLedgerService_GetLoanView(t *testing.T) {
	tests := []struct {
		name          string
		setup         func(t *testing.T, f *fixture)
		expectedState domain.RefreshState
		expectedCode  string
		checkView     func(t *testing.T, f *fixture, view *service.LoanView)
	}{
		{
			name: "first view fetches and stores the loan",
			setup: func(t *testing.T, f *fixture) {
				f.api.On("GetLoanDetails", mock.Anything, token, loanID).Return(interestOnlyLoan(t), nil).Once()
				f.loanRepo.On("SaveLoan", mock.Anything, userID, mock.Anything, fixedNow).Return(nil).Once()
			},
			expectedState: domain.RefreshFresh,
			checkView: func(t *testing.T, f *fixture, view *service.LoanView) {
				assert.Equal(t, fixedNow, view.FetchedAt)
				require.NotNil(t, view.Figures.InterestOnly)
				assert.True(t, decimal.NewFromInt(200).Equal(view.Figures.InterestOnly.MonthlyInterestAmount))
				assert.True(t, decimal.NewFromInt(6000).Equal(view.Figures.InterestOnly.OutstandingPrincipal))
				assert.Nil(t, view.Figures.Installment)
				assert.Equal(t, 45, view.Figures.DaysSinceLending)
			},
		},
		{
			name: "fresh loan is served from the cache",
			setup: func(t *testing.T, f *fixture) {
				ctx := context.Background()
				require.NoError(t, f.cache.PutLoan(ctx, userID, cache.LoanEntry{Snapshot: installmentLoan(t), FetchedAt: fixedNow.Add(-time.Hour)}))
				_, err := f.cache.Transition(ctx, cache.LoanKey(userID, loanID), domain.EventBeginFetch)
				require.NoError(t, err)
				_, err = f.cache.Transition(ctx, cache.LoanKey(userID, loanID), domain.EventFetchSucceeded)
				require.NoError(t, err)
			},
			expectedState: domain.RefreshFresh,
			checkView: func(t *testing.T, f *fixture, view *service.LoanView) {
				assert.Equal(t, fixedNow.Add(-time.Hour), view.FetchedAt)
				require.NotNil(t, view.Figures.Installment)
				assert.True(t, decimal.NewFromInt(8400).Equal(view.Figures.Installment.AmountPending))
			},
		},
		{
			name: "stale cached loan is refetched",
			setup: func(t *testing.T, f *fixture) {
				ctx := context.Background()
				require.NoError(t, f.cache.PutLoan(ctx, userID, cache.LoanEntry{Snapshot: installmentLoan(t), FetchedAt: fixedNow.Add(-time.Hour)}))
				require.NoError(t, f.cache.Invalidate(ctx, cache.LoanKey(userID, loanID)))

				f.api.On("GetLoanDetails", mock.Anything, token, loanID).Return(interestOnlyLoan(t), nil).Once()
				f.loanRepo.On("SaveLoan", mock.Anything, userID, mock.Anything, fixedNow).Return(nil).Once()
			},
			expectedState: domain.RefreshFresh,
			checkView: func(t *testing.T, f *fixture, view *service.LoanView) {
				assert.Equal(t, domain.LoanTypeInterestOnly, view.Snapshot.Type())
				assert.Equal(t, fixedNow, view.FetchedAt)
			},
		},
		{
			name: "failed refetch serves the cached loan",
			setup: func(t *testing.T, f *fixture) {
				ctx := context.Background()
				require.NoError(t, f.cache.PutLoan(ctx, userID, cache.LoanEntry{Snapshot: installmentLoan(t), FetchedAt: fixedNow.Add(-time.Hour)}))

				f.api.On("GetLoanDetails", mock.Anything, token, loanID).Return(domain.LoanSnapshot{}, upstreamDown()).Once()
			},
			expectedState: domain.RefreshError,
			checkView: func(t *testing.T, f *fixture, view *service.LoanView) {
				assert.Equal(t, domain.LoanTypeInstallment, view.Snapshot.Type())
				assert.Equal(t, fixedNow.Add(-time.Hour), view.FetchedAt)
			},
		},
		{
			name: "failed fetch falls back to the stored loan",
			setup: func(t *testing.T, f *fixture) {
				storedAt := fixedNow.Add(-24 * time.Hour)
				f.api.On("GetLoanDetails", mock.Anything, token, loanID).Return(domain.LoanSnapshot{}, upstreamDown()).Once()
				f.loanRepo.On("GetLoan", mock.Anything, userID, loanID).Return(installmentLoan(t), storedAt, nil).Once()
			},
			expectedState: domain.RefreshError,
			checkView: func(t *testing.T, f *fixture, view *service.LoanView) {
				assert.Equal(t, fixedNow.Add(-24*time.Hour), view.FetchedAt)
				assert.Equal(t, loanID, view.Figures.LoanID)
			},
		},
		{
			name: "failed fetch with nothing to fall back on",
			setup: func(t *testing.T, f *fixture) {
				f.api.On("GetLoanDetails", mock.Anything, token, loanID).Return(domain.LoanSnapshot{}, upstreamDown()).Once()
				f.loanRepo.On("GetLoan", mock.Anything, userID, loanID).
					Return(domain.LoanSnapshot{}, time.Time{}, customError.WrapLoanNotFound(loanID)).Once()
			},
			expectedState: domain.RefreshError,
			expectedCode:  customError.ErrCodeUpstreamError,
		},
		{
			name: "deleted loan is forgotten",
			setup: func(t *testing.T, f *fixture) {
				ctx := context.Background()
				require.NoError(t, f.cache.PutLoan(ctx, userID, cache.LoanEntry{Snapshot: installmentLoan(t), FetchedAt: fixedNow}))

				f.api.On("GetLoanDetails", mock.Anything, token, loanID).
					Return(domain.LoanSnapshot{}, fmt.Errorf("%w: loan", customError.ErrNotFound)).Once()
				f.loanRepo.On("DeleteLoan", mock.Anything, userID, loanID).Return(nil).Once()
			},
			expectedState: domain.RefreshStale,
			expectedCode:  customError.ErrCodeLoanNotFound,
			checkView: func(t *testing.T, f *fixture, _ *service.LoanView) {
				_, err := f.cache.GetLoan(context.Background(), userID, loanID)
				assert.ErrorIs(t, err, customError.ErrSnapshotNotCached)
			},
		},
		{
			name: "rejected token is not masked by a fallback",
			setup: func(t *testing.T, f *fixture) {
				f.api.On("GetLoanDetails", mock.Anything, token, loanID).
					Return(domain.LoanSnapshot{}, customError.ErrUnauthorized).Once()
			},
			expectedState: domain.RefreshError,
			expectedCode:  customError.ErrCodeUpstreamUnauthorized,
		},
		{
			name: "store failure does not fail the view",
			setup: func(t *testing.T, f *fixture) {
				f.api.On("GetLoanDetails", mock.Anything, token, loanID).Return(interestOnlyLoan(t), nil).Once()
				f.loanRepo.On("SaveLoan", mock.Anything, userID, mock.Anything, fixedNow).
					Return(customError.WrapDatabaseError(errors.New("disk full"))).Once()
			},
			expectedState: domain.RefreshFresh,
			checkView: func(t *testing.T, f *fixture, view *service.LoanView) {
				require.NotNil(t, f.hook.LastEntry())
				assert.Equal(t, logrus.WarnLevel, f.hook.LastEntry().Level)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(t, f)

			view, err := f.service.GetLoanView(context.Background(), principal, loanID, today)

			if tt.expectedCode != "" {
				var be *customError.BusinessError
				require.ErrorAs(t, err, &be)
				assert.Equal(t, tt.expectedCode, be.Code)
				assert.Nil(t, view)
			} else {
				require.NoError(t, err)
				require.NotNil(t, view)
				assert.Equal(t, tt.expectedState, view.State)
			}

			assert.Equal(t, tt.expectedState, f.state(t, cache.LoanKey(userID, loanID)))
			if tt.checkView != nil {
				tt.checkView(t, f, view)
			}
			f.assertExpectations(t)
		})
	}
}

func TestLedgerService_GetLoanView_FetchesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.api.On("GetLoanDetails", mock.Anything, token, loanID).Return(interestOnlyLoan(t), nil).Once()
	f.loanRepo.On("SaveLoan", mock.Anything, userID, mock.Anything, fixedNow).Return(nil).Once()

	for i := 0; i < 3; i++ {
		view, err := f.service.GetLoanView(ctx, principal, loanID, today)
		require.NoError(t, err)
		assert.Equal(t, domain.RefreshFresh, view.State)
	}

	f.assertExpectations(t)
}

func TestLedgerService_GetLoanView_CancelledFetch(t *testing.T) {
	f := newFixture(t)
	key := cache.LoanKey(userID, loanID)

	require.NoError(t, f.cache.PutLoan(context.Background(), userID, cache.LoanEntry{Snapshot: installmentLoan(t), FetchedAt: fixedNow}))
	require.NoError(t, f.cache.Invalidate(context.Background(), key))

	ctx, cancel := context.WithCancel(context.Background())
	f.api.On("GetLoanDetails", mock.Anything, token, loanID).
		Run(func(mock.Arguments) { cancel() }).
		Return(domain.LoanSnapshot{}, context.Canceled).Once()

	_, err := f.service.GetLoanView(ctx, principal, loanID, today)
	require.Error(t, err)
	assert.Equal(t, domain.RefreshError, f.state(t, key))

	base := installmentLoan(t).Base()
	repaid, err := domain.NewInstallmentLoan(base, domain.InstallmentTerms{
		RepaymentAmountPerInstallment: decimal.NewFromInt(1200),
		TotalAmountPaid:               decimal.NewFromInt(4800),
	})
	require.NoError(t, err)
	f.api.On("GetLoanDetails", mock.Anything, token, loanID).Return(repaid, nil).Once()
	f.loanRepo.On("SaveLoan", mock.Anything, userID, mock.Anything, fixedNow).Return(nil).Once()

	view, err := f.service.GetLoanView(context.Background(), principal, loanID, today)
	require.NoError(t, err)
	assert.Equal(t, domain.RefreshFresh, view.State)
	terms, ok := view.Snapshot.Installment()
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(4800).Equal(terms.TotalAmountPaid))

	f.assertExpectations(t)
}

func TestLedgerService_GetLoanView_AbandonedLoadingRefetches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := cache.LoanKey(userID, loanID)

	require.NoError(t, f.cache.PutLoan(ctx, userID, cache.LoanEntry{Snapshot: installmentLoan(t), FetchedAt: fixedNow}))
	_, err := f.cache.Transition(ctx, key, domain.EventBeginFetch)
	require.NoError(t, err)

	f.redis.FastForward(cache.DefaultLoadingTTL + time.Second)

	f.api.On("GetLoanDetails", mock.Anything, token, loanID).Return(interestOnlyLoan(t), nil).Once()
	f.loanRepo.On("SaveLoan", mock.Anything, userID, mock.Anything, fixedNow).Return(nil).Once()

	view, err := f.service.GetLoanView(ctx, principal, loanID, today)
	require.NoError(t, err)
	assert.Equal(t, domain.RefreshFresh, view.State)
	assert.Equal(t, domain.LoanTypeInterestOnly, view.Snapshot.Type())

	f.assertExpectations(t)
}

func TestLedgerService_GetLineView_CancelledFetch(t *testing.T) {
	f := newFixture(t)
	key := cache.LineKey(userID, lineID)

	ctx, cancel := context.WithCancel(context.Background())
	f.api.On("GetLineCustomers", mock.Anything, token, lineID).
		Run(func(mock.Arguments) { cancel() }).
		Return(domain.LineListing{}, context.Canceled).Once()

	_, err := f.service.GetLineView(ctx, principal, lineID, "")
	require.Error(t, err)
	assert.Equal(t, domain.RefreshError, f.state(t, key))
	assert.True(t, f.state(t, key).NeedsFetch())

	f.assertExpectations(t)
}

func TestLedgerService_GetLoanView_ScopedPerUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := auth.Principal{UserID: 8, Token: "other-token"}

	require.NoError(t, f.cache.PutLoan(ctx, userID, cache.LoanEntry{Snapshot: installmentLoan(t), FetchedAt: fixedNow}))
	_, err := f.cache.Transition(ctx, cache.LoanKey(userID, loanID), domain.EventBeginFetch)
	require.NoError(t, err)
	_, err = f.cache.Transition(ctx, cache.LoanKey(userID, loanID), domain.EventFetchSucceeded)
	require.NoError(t, err)

	f.api.On("GetLoanDetails", mock.Anything, "other-token", loanID).Return(interestOnlyLoan(t), nil).Once()
	f.loanRepo.On("SaveLoan", mock.Anything, int64(8), mock.Anything, fixedNow).Return(nil).Once()

	view, err := f.service.GetLoanView(ctx, other, loanID, today)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanTypeInterestOnly, view.Snapshot.Type())

	f.assertExpectations(t)
}

func TestLedgerService_GetLineView(t *testing.T) {
	listing := domain.LineListing{
		Customers: []domain.CustomerSummary{
			{CustomerID: 1, LoanStatus: domain.LoanStatusInactive},
			{CustomerID: 2, LoanStatus: domain.LoanStatusActive, OverdueDays: 10},
			{CustomerID: 3, LoanStatus: domain.LoanStatusOverdue, OverdueDays: 45},
			{CustomerID: 4, LoanStatus: domain.LoanStatusActive, IsMissing: true, OverdueDays: 90},
		},
	}

	ids := func(customers []domain.CustomerSummary) []int64 {
		out := make([]int64, 0, len(customers))
		for _, c := range customers {
			out = append(out, c.CustomerID)
		}
		return out
	}

	tests := []struct {
		name  string
		tab   ledger.Tab
		check func(t *testing.T, view *service.LineView)
	}{
		{
			name: "all tabs",
			check: func(t *testing.T, view *service.LineView) {
				require.NotNil(t, view.Categories)
				assert.Equal(t, []int64{2, 1}, ids(view.Categories.Regular))
				assert.Equal(t, []int64{3}, ids(view.Categories.BadCustomer))
				assert.Equal(t, []int64{4}, ids(view.Categories.Missing))
				assert.Nil(t, view.Customers)
			},
		},
		{
			name: "bad customer tab",
			tab:  ledger.TabBadCustomer,
			check: func(t *testing.T, view *service.LineView) {
				assert.Nil(t, view.Categories)
				assert.Equal(t, []int64{3}, ids(view.Customers))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			f.api.On("GetLineCustomers", mock.Anything, token, lineID).Return(listing, nil).Once()
			f.lineRepo.On("SaveLine", mock.Anything, userID, mock.MatchedBy(func(l domain.LineListing) bool {
				return l.LineID == lineID && len(l.Customers) == 4
			}), fixedNow).Return(nil).Once()

			view, err := f.service.GetLineView(context.Background(), principal, lineID, tt.tab)
			require.NoError(t, err)

			assert.Equal(t, lineID, view.LineID)
			assert.Equal(t, domain.RefreshFresh, view.State)
			assert.True(t, view.Analytics.TotalPendingAmount.IsZero())
			assert.True(t, view.Analytics.OverduePoints.IsZero())
			tt.check(t, view)

			f.assertExpectations(t)
		})
	}
}

func TestLedgerService_GetLineView_Fallback(t *testing.T) {
	f := newFixture(t)
	storedAt := fixedNow.Add(-2 * time.Hour)
	analytics := &domain.LineAnalytics{TotalPendingAmount: decimal.NewFromInt(5000)}

	f.api.On("GetLineCustomers", mock.Anything, token, lineID).Return(domain.LineListing{}, upstreamDown()).Once()
	f.lineRepo.On("GetLine", mock.Anything, userID, lineID).
		Return(domain.LineListing{LineID: lineID, Analytics: analytics}, storedAt, nil).Once()

	view, err := f.service.GetLineView(context.Background(), principal, lineID, "")
	require.NoError(t, err)

	assert.Equal(t, domain.RefreshError, view.State)
	assert.Equal(t, storedAt, view.FetchedAt)
	assert.True(t, decimal.NewFromInt(5000).Equal(view.Analytics.TotalPendingAmount))
	require.NotNil(t, view.Categories)
	assert.NotNil(t, view.Categories.Regular)

	f.assertExpectations(t)
}

func TestLedgerService_GetLineView_NotFound(t *testing.T) {
	f := newFixture(t)

	f.api.On("GetLineCustomers", mock.Anything, token, lineID).
		Return(domain.LineListing{}, fmt.Errorf("%w: line", customError.ErrNotFound)).Once()
	f.lineRepo.On("DeleteLine", mock.Anything, userID, lineID).Return(nil).Once()

	view, err := f.service.GetLineView(context.Background(), principal, lineID, "")
	assert.Nil(t, view)

	var be *customError.BusinessError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, customError.ErrCodeLineNotFound, be.Code)

	f.assertExpectations(t)
}

// warmLine caches a fresh listing so invalidations can be observed.
func warmLine(t *testing.T, f *fixture, id int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.cache.PutLine(ctx, userID, cache.LineEntry{Listing: domain.LineListing{LineID: id}, FetchedAt: fixedNow}))
	_, err := f.cache.Transition(ctx, cache.LineKey(userID, id), domain.EventBeginFetch)
	require.NoError(t, err)
	_, err = f.cache.Transition(ctx, cache.LineKey(userID, id), domain.EventFetchSucceeded)
	require.NoError(t, err)
}

func warmLoan(t *testing.T, f *fixture, snapshot domain.LoanSnapshot) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.cache.PutLoan(ctx, userID, cache.LoanEntry{Snapshot: snapshot, FetchedAt: fixedNow}))
	_, err := f.cache.Transition(ctx, cache.LoanKey(userID, snapshot.LoanID()), domain.EventBeginFetch)
	require.NoError(t, err)
	_, err = f.cache.Transition(ctx, cache.LoanKey(userID, snapshot.LoanID()), domain.EventFetchSucceeded)
	require.NoError(t, err)
}

func newLoanRequest() domain.NewLoanRequest {
	return domain.NewLoanRequest{
		CustomerID:            55,
		LoanType:              domain.LoanTypeInterestOnly,
		LoanAmount:            decimal.NewFromInt(10000),
		PreCharges:            decimal.NewFromInt(500),
		NumberOfInstallments:  12,
		RateOfInterestPercent: decimal.NewFromInt(2),
		LendingDate:           today,
	}
}

func TestLedgerService_AddLoan(t *testing.T) {
	tests := []struct {
		name       string
		notify     string
		setupMocks func(f *fixture)
		expected   service.AddLoanResult
	}{
		{
			name: "without sms",
			setupMocks: func(f *fixture) {
				f.api.On("AddLoan", mock.Anything, token, mock.MatchedBy(func(req domain.NewLoanRequest) bool {
					return req.RepaymentFrequency == domain.DefaultRepaymentFrequency
				})).Return(int64(42), nil).Once()
			},
			expected: service.AddLoanResult{LoanID: 42},
		},
		{
			name:   "with sms",
			notify: "9876543210",
			setupMocks: func(f *fixture) {
				f.api.On("AddLoan", mock.Anything, token, mock.Anything).Return(int64(42), nil).Once()
				f.api.On("SendLoanSMS", mock.Anything, token, mock.MatchedBy(func(req domain.LoanSMSRequest) bool {
					return req.MobileNumber == "9876543210" && req.Message != ""
				})).Return(nil).Once()
			},
			expected: service.AddLoanResult{LoanID: 42, SMSSent: true},
		},
		{
			name:   "sms failure keeps the loan",
			notify: "9876543210",
			setupMocks: func(f *fixture) {
				f.api.On("AddLoan", mock.Anything, token, mock.Anything).Return(int64(42), nil).Once()
				f.api.On("SendLoanSMS", mock.Anything, token, mock.Anything).Return(errors.New("sms gateway down")).Once()
			},
			expected: service.AddLoanResult{LoanID: 42, SMSError: "sms gateway down"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			warmLine(t, f, lineID)
			tt.setupMocks(f)

			req := newLoanRequest()
			req.NotifyMobile = tt.notify

			result, err := f.service.AddLoan(context.Background(), principal, req)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, *result)
			assert.Equal(t, domain.RefreshStale, f.state(t, cache.LineKey(userID, lineID)))

			f.assertExpectations(t)
		})
	}
}

func TestLedgerService_AddLoan_UpstreamFailure(t *testing.T) {
	f := newFixture(t)
	warmLine(t, f, lineID)

	f.api.On("AddLoan", mock.Anything, token, mock.Anything).Return(int64(0), upstreamDown()).Once()

	result, err := f.service.AddLoan(context.Background(), principal, newLoanRequest())
	assert.Nil(t, result)

	var be *customError.BusinessError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, customError.ErrCodeUpstreamError, be.Code)
	assert.Equal(t, domain.RefreshFresh, f.state(t, cache.LineKey(userID, lineID)))

	f.assertExpectations(t)
}

func TestLedgerService_DeleteLoan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	warmLoan(t, f, installmentLoan(t))
	warmLine(t, f, lineID)

	f.api.On("DeleteLoan", mock.Anything, token, loanID).Return(nil).Once()
	f.loanRepo.On("DeleteLoan", mock.Anything, userID, loanID).Return(nil).Once()

	require.NoError(t, f.service.DeleteLoan(ctx, principal, loanID))

	_, err := f.cache.GetLoan(ctx, userID, loanID)
	assert.ErrorIs(t, err, customError.ErrSnapshotNotCached)
	assert.Equal(t, domain.RefreshStale, f.state(t, cache.LineKey(userID, lineID)))

	f.assertExpectations(t)
}

func TestLedgerService_MarkRepayment(t *testing.T) {
	tests := []struct {
		name           string
		snapshot       func(t *testing.T) domain.LoanSnapshot
		repaymentType  string
		amount         decimal.Decimal
		expectedAmount decimal.Decimal
		expectedErr    error
	}{
		{
			name:           "explicit amount is forwarded",
			snapshot:       interestOnlyLoan,
			repaymentType:  domain.RepaymentTypePrincipal,
			amount:         decimal.NewFromInt(1500),
			expectedAmount: decimal.NewFromInt(1500),
		},
		{
			name:           "principal defaults to the outstanding principal",
			snapshot:       interestOnlyLoan,
			repaymentType:  domain.RepaymentTypePrincipal,
			expectedAmount: decimal.NewFromInt(6000),
		},
		{
			name:           "interest defaults to the monthly interest",
			snapshot:       interestOnlyLoan,
			repaymentType:  domain.RepaymentTypeInterest,
			expectedAmount: decimal.NewFromInt(200),
		},
		{
			name:           "installment defaults to the installment amount",
			snapshot:       installmentLoan,
			repaymentType:  domain.RepaymentTypeEMI,
			expectedAmount: decimal.NewFromInt(1200),
		},
		{
			name:          "interest on an installment loan",
			snapshot:      installmentLoan,
			repaymentType: domain.RepaymentTypeInterest,
			expectedErr:   customError.ErrWrongLoanType,
		},
		{
			name:          "interest-only loan needs an amount for other types",
			snapshot:      interestOnlyLoan,
			repaymentType: "Penalty",
			expectedErr:   customError.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			warmLoan(t, f, tt.snapshot(t))
			warmLine(t, f, lineID)

			if tt.expectedErr == nil {
				f.api.On("AddRepayment", mock.Anything, token, mock.MatchedBy(func(req domain.NewRepaymentRequest) bool {
					return req.LoanID == loanID && req.Amount.Equal(tt.expectedAmount)
				})).Return(nil).Once()
			}

			err := f.service.MarkRepayment(ctx, principal, domain.NewRepaymentRequest{
				LoanID:        loanID,
				RepaymentType: tt.repaymentType,
				Amount:        tt.amount,
				PaymentDate:   today,
			})

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Equal(t, domain.RefreshFresh, f.state(t, cache.LoanKey(userID, loanID)))
			} else {
				require.NoError(t, err)
				assert.Equal(t, domain.RefreshStale, f.state(t, cache.LoanKey(userID, loanID)))
				assert.Equal(t, domain.RefreshStale, f.state(t, cache.LineKey(userID, lineID)))
			}

			f.assertExpectations(t)
		})
	}
}

func TestLedgerService_CustomerMutations(t *testing.T) {
	missing := true

	tests := []struct {
		name       string
		setupMocks func(f *fixture)
		run        func(ctx context.Context, s *service.LedgerService) error
		wantCode   string
	}{
		{
			name: "add customer",
			setupMocks: func(f *fixture) {
				f.api.On("AddCustomer", mock.Anything, token, mock.Anything).Return(int64(9), nil).Once()
			},
			run: func(ctx context.Context, s *service.LedgerService) error {
				id, err := s.AddCustomer(ctx, principal, domain.NewCustomerRequest{LineID: lineID, CustomerName: "Ravi"})
				if err == nil && id != 9 {
					return fmt.Errorf("unexpected id %d", id)
				}
				return err
			},
		},
		{
			name: "delete customer",
			setupMocks: func(f *fixture) {
				f.api.On("DeleteCustomer", mock.Anything, token, int64(9)).Return(nil).Once()
			},
			run: func(ctx context.Context, s *service.LedgerService) error {
				return s.DeleteCustomer(ctx, principal, 9)
			},
		},
		{
			name: "toggle missing",
			setupMocks: func(f *fixture) {
				f.api.On("ToggleMissingCustomer", mock.Anything, token, int64(9)).Return(&missing, nil).Once()
			},
			run: func(ctx context.Context, s *service.LedgerService) error {
				got, err := s.ToggleMissingCustomer(ctx, principal, 9)
				if err == nil && (got == nil || !*got) {
					return errors.New("missing flag not returned")
				}
				return err
			},
		},
		{
			name: "delete unknown customer",
			setupMocks: func(f *fixture) {
				f.api.On("DeleteCustomer", mock.Anything, token, int64(9)).
					Return(fmt.Errorf("%w: customer", customError.ErrNotFound)).Once()
			},
			run: func(ctx context.Context, s *service.LedgerService) error {
				return s.DeleteCustomer(ctx, principal, 9)
			},
			wantCode: customError.ErrCodeCustomerNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			warmLine(t, f, lineID)
			tt.setupMocks(f)

			err := tt.run(context.Background(), f.service)

			if tt.wantCode != "" {
				var be *customError.BusinessError
				require.ErrorAs(t, err, &be)
				assert.Equal(t, tt.wantCode, be.Code)
				assert.Equal(t, domain.RefreshFresh, f.state(t, cache.LineKey(userID, lineID)))
			} else {
				require.NoError(t, err)
				assert.Equal(t, domain.RefreshStale, f.state(t, cache.LineKey(userID, lineID)))
			}

			f.assertExpectations(t)
		})
	}
}

func TestLedgerService_PassThrough(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.api.On("GetLines", mock.Anything, token, userID).Return(nil, nil).Once()
	f.api.On("ViewExpenses", mock.Anything, token, userID).Return(nil, nil).Once()
	f.api.On("AddLine", mock.Anything, token, userID, domain.NewLineRequest{LineName: "Market"}).Return(int64(4), nil).Once()
	f.api.On("Login", mock.Anything, domain.LoginRequest{Email: "a@b.in", Password: "secret"}).
		Return(domain.LoginResponse{}, customError.ErrUnauthorized).Once()

	lines, err := f.service.ListLines(ctx, principal)
	require.NoError(t, err)
	assert.NotNil(t, lines)
	assert.Empty(t, lines)

	expenses, err := f.service.ListExpenses(ctx, principal)
	require.NoError(t, err)
	assert.NotNil(t, expenses)

	id, err := f.service.AddLine(ctx, principal, domain.NewLineRequest{LineName: "Market"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)

	_, err = f.service.Login(ctx, domain.LoginRequest{Email: "a@b.in", Password: "secret"})
	var be *customError.BusinessError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, customError.ErrCodeUpstreamUnauthorized, be.Code)

	f.assertExpectations(t)
}

func TestLedgerService_GetCustomer_NotFound(t *testing.T) {
	f := newFixture(t)

	f.api.On("GetCustomerInfo", mock.Anything, token, int64(9)).
		Return(domain.CustomerDetail{}, fmt.Errorf("%w: customer", customError.ErrNotFound)).Once()

	customer, err := f.service.GetCustomer(context.Background(), principal, 9)
	assert.Nil(t, customer)
	assert.ErrorIs(t, err, customError.ErrCustomerNotFound)

	f.assertExpectations(t)
}

func TestLedgerService_InvalidateCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	warmLoan(t, f, installmentLoan(t))
	warmLine(t, f, lineID)

	n, err := f.service.InvalidateCache(ctx, principal, cache.KindLine)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, domain.RefreshFresh, f.state(t, cache.LoanKey(userID, loanID)))

	n, err = f.service.InvalidateCache(ctx, principal, "")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, domain.RefreshStale, f.state(t, cache.LoanKey(userID, loanID)))
}

func TestLedgerService_SweepStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	warmLine(t, f, 1)
	warmLine(t, f, 2)
	warmLoan(t, f, installmentLoan(t))

	n, err := f.service.SweepStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, domain.RefreshStale, f.state(t, cache.LineKey(userID, 1)))
	assert.Equal(t, domain.RefreshStale, f.state(t, cache.LineKey(userID, 2)))
	assert.Equal(t, domain.RefreshFresh, f.state(t, cache.LoanKey(userID, loanID)))
}

func TestLedgerService_PruneStore(t *testing.T) {
	f := newFixture(t)
	cutoff := fixedNow.Add(-48 * time.Hour)

	f.loanRepo.On("PruneLoans", mock.Anything, cutoff).Return(int64(3), nil).Once()
	f.lineRepo.On("PruneLines", mock.Anything, cutoff).Return(int64(2), nil).Once()

	n, err := f.service.PruneStore(context.Background(), 48*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	f.assertExpectations(t)
}
