package service

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/loan-ledger/internal/auth"
	"github.com/segyhp/loan-ledger/internal/cache"
	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/internal/ledger"
	"github.com/segyhp/loan-ledger/internal/repository"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
)

// LoanView is a loan page: the snapshot, its derived figures and how current
// the data is.
type LoanView struct {
	Snapshot  domain.LoanSnapshot `json:"snapshot"`
	Figures   ledger.Figures      `json:"figures"`
	State     domain.RefreshState `json:"state"`
	FetchedAt time.Time           `json:"fetched_at"`
}

// LineView is a line's customer listing split into tabs. When a tab was
// requested only Customers is set.
type LineView struct {
	LineID     int64                    `json:"line_id"`
	Tab        ledger.Tab               `json:"tab,omitempty"`
	Categories *ledger.Categories       `json:"categories,omitempty"`
	Customers  []domain.CustomerSummary `json:"customers,omitempty"`
	Analytics  domain.LineAnalytics     `json:"analytics"`
	State      domain.RefreshState      `json:"state"`
	FetchedAt  time.Time                `json:"fetched_at"`
}

// AddLoanResult reports the new loan id and whether the summary SMS went out.
type AddLoanResult struct {
	LoanID   int64  `json:"loan_id"`
	SMSSent  bool   `json:"sms_sent"`
	SMSError string `json:"sms_error,omitempty"`
}

type LedgerService struct {
	api      LendingAPI
	cache    SnapshotCache
	loanRepo repository.LoanSnapshotRepository
	lineRepo repository.LineListingRepository
	logger   *logrus.Logger

	overdueThresholdDays int
	moneyPlaces          int32
	now                  func() time.Time
}

// DefaultMoneyPlaces is the number of decimals amounts are shown with.
const DefaultMoneyPlaces = 2

func NewLedgerService(
	api LendingAPI,
	snapshots SnapshotCache,
	loanRepo repository.LoanSnapshotRepository,
	lineRepo repository.LineListingRepository,
	logger *logrus.Logger,
	overdueThresholdDays int,
) *LedgerService {
	if overdueThresholdDays <= 0 {
		overdueThresholdDays = ledger.DefaultOverdueThresholdDays
	}
	return &LedgerService{
		api:                  api,
		cache:                snapshots,
		loanRepo:             loanRepo,
		lineRepo:             lineRepo,
		logger:               logger,
		overdueThresholdDays: overdueThresholdDays,
		moneyPlaces:          DefaultMoneyPlaces,
		now:                  time.Now,
	}
}

// WithMoneyPlaces sets the decimals used for amounts in customer messages.
func (s *LedgerService) WithMoneyPlaces(places int) *LedgerService {
	s.moneyPlaces = int32(places)
	return s
}

// WithClock replaces the clock used to stamp fetched snapshots.
func (s *LedgerService) WithClock(now func() time.Time) *LedgerService {
	s.now = now
	return s
}

// GetLoanView serves a loan page. A Fresh or Loading snapshot comes from the
// cache; otherwise the loan is fetched. When the fetch fails the last known
// snapshot is served with state Error.
func (s *LedgerService) GetLoanView(ctx context.Context, p auth.Principal, loanID int64, today civil.Date) (*LoanView, error) {
	key := cache.LoanKey(p.UserID, loanID)

	state, err := s.cache.State(ctx, key)
	if err != nil {
		return nil, err
	}

	if !state.NeedsFetch() {
		entry, err := s.cache.GetLoan(ctx, p.UserID, loanID)
		if err == nil {
			return newLoanView(entry.Snapshot, state, entry.FetchedAt, today)
		}
		if !errors.Is(err, customError.ErrSnapshotNotCached) {
			return nil, err
		}
	}

	if _, err := s.cache.Transition(ctx, key, domain.EventBeginFetch); err != nil {
		return nil, err
	}

	snapshot, fetchErr := s.api.GetLoanDetails(ctx, p.Token, loanID)
	if fetchErr != nil {
		return s.loanFetchFailed(ctx, p, loanID, fetchErr, today)
	}

	fetchedAt := s.now().UTC()
	if err := s.cache.PutLoan(ctx, p.UserID, cache.LoanEntry{Snapshot: snapshot, FetchedAt: fetchedAt}); err != nil {
		s.abandonFetch(ctx, key)
		return nil, err
	}
	if err := s.loanRepo.SaveLoan(ctx, p.UserID, snapshot, fetchedAt); err != nil {
		s.logger.WithError(err).WithField("loan_id", loanID).Warn("Failed to store loan snapshot")
	}

	state, err = s.cache.Transition(ctx, key, domain.EventFetchSucceeded)
	if err != nil {
		s.abandonFetch(ctx, key)
		return nil, err
	}

	return newLoanView(snapshot, state, fetchedAt, today)
}

func (s *LedgerService) loanFetchFailed(ctx context.Context, p auth.Principal, loanID int64, fetchErr error, today civil.Date) (*LoanView, error) {
	key := cache.LoanKey(p.UserID, loanID)
	log := s.logger.WithError(fetchErr).WithField("loan_id", loanID)

	state, err := s.cache.Transition(context.WithoutCancel(ctx), key, domain.EventFetchFailed)
	if err != nil {
		return nil, err
	}

	switch {
	case ctx.Err() != nil:
		return nil, customError.WrapUpstreamError(fetchErr)
	case errors.Is(fetchErr, customError.ErrNotFound):
		if err := s.forgetLoan(ctx, p.UserID, loanID); err != nil {
			return nil, err
		}
		return nil, customError.WrapLoanNotFound(loanID)
	case errors.Is(fetchErr, customError.ErrUnauthorized), errors.Is(fetchErr, customError.ErrAccountFrozen):
		return nil, customError.WrapUpstreamError(fetchErr)
	}

	if entry, err := s.cache.GetLoan(ctx, p.UserID, loanID); err == nil {
		log.Warn("Serving cached loan snapshot after failed fetch")
		return newLoanView(entry.Snapshot, state, entry.FetchedAt, today)
	}

	snapshot, fetchedAt, err := s.loanRepo.GetLoan(ctx, p.UserID, loanID)
	if err == nil {
		log.Warn("Serving stored loan snapshot after failed fetch")
		return newLoanView(snapshot, state, fetchedAt, today)
	}

	log.Error("Loan fetch failed with no snapshot to fall back on")
	return nil, customError.WrapUpstreamError(fetchErr)
}

// abandonFetch moves key out of Loading after a fetch that produced no
// result. It is recorded even when the request was cancelled.
func (s *LedgerService) abandonFetch(ctx context.Context, key cache.Key) {
	if _, err := s.cache.Transition(context.WithoutCancel(ctx), key, domain.EventFetchFailed); err != nil {
		s.logger.WithError(err).WithField("key", key.String()).Warn("Failed to record abandoned fetch")
	}
}

func newLoanView(snapshot domain.LoanSnapshot, state domain.RefreshState, fetchedAt time.Time, today civil.Date) (*LoanView, error) {
	figures, err := ledger.Derive(snapshot, today)
	if err != nil {
		return nil, err
	}
	return &LoanView{
		Snapshot:  snapshot,
		Figures:   figures,
		State:     state,
		FetchedAt: fetchedAt,
	}, nil
}

func (s *LedgerService) forgetLoan(ctx context.Context, userID, loanID int64) error {
	if err := s.cache.Delete(ctx, cache.LoanKey(userID, loanID)); err != nil {
		return err
	}
	if err := s.loanRepo.DeleteLoan(ctx, userID, loanID); err != nil {
		s.logger.WithError(err).WithField("loan_id", loanID).Warn("Failed to delete stored loan snapshot")
	}
	return nil
}

// GetLineView serves a line's categorized customers, following the same
// refresh rules as GetLoanView. An empty tab returns every category.
func (s *LedgerService) GetLineView(ctx context.Context, p auth.Principal, lineID int64, tab ledger.Tab) (*LineView, error) {
	key := cache.LineKey(p.UserID, lineID)

	state, err := s.cache.State(ctx, key)
	if err != nil {
		return nil, err
	}

	if !state.NeedsFetch() {
		entry, err := s.cache.GetLine(ctx, p.UserID, lineID)
		if err == nil {
			return s.newLineView(entry.Listing, tab, state, entry.FetchedAt), nil
		}
		if !errors.Is(err, customError.ErrSnapshotNotCached) {
			return nil, err
		}
	}

	if _, err := s.cache.Transition(ctx, key, domain.EventBeginFetch); err != nil {
		return nil, err
	}

	listing, fetchErr := s.api.GetLineCustomers(ctx, p.Token, lineID)
	if fetchErr != nil {
		return s.lineFetchFailed(ctx, p, lineID, tab, fetchErr)
	}
	listing.LineID = lineID

	fetchedAt := s.now().UTC()
	if err := s.cache.PutLine(ctx, p.UserID, cache.LineEntry{Listing: listing, FetchedAt: fetchedAt}); err != nil {
		s.abandonFetch(ctx, key)
		return nil, err
	}
	if err := s.lineRepo.SaveLine(ctx, p.UserID, listing, fetchedAt); err != nil {
		s.logger.WithError(err).WithField("line_id", lineID).Warn("Failed to store line listing")
	}

	state, err = s.cache.Transition(ctx, key, domain.EventFetchSucceeded)
	if err != nil {
		s.abandonFetch(ctx, key)
		return nil, err
	}

	return s.newLineView(listing, tab, state, fetchedAt), nil
}

func (s *LedgerService) lineFetchFailed(ctx context.Context, p auth.Principal, lineID int64, tab ledger.Tab, fetchErr error) (*LineView, error) {
	key := cache.LineKey(p.UserID, lineID)
	log := s.logger.WithError(fetchErr).WithField("line_id", lineID)

	state, err := s.cache.Transition(context.WithoutCancel(ctx), key, domain.EventFetchFailed)
	if err != nil {
		return nil, err
	}

	switch {
	case ctx.Err() != nil:
		return nil, customError.WrapUpstreamError(fetchErr)
	case errors.Is(fetchErr, customError.ErrNotFound):
		if err := s.cache.Delete(ctx, key); err != nil {
			return nil, err
		}
		if err := s.lineRepo.DeleteLine(ctx, p.UserID, lineID); err != nil {
			log.WithField("cause", err.Error()).Warn("Failed to delete stored line listing")
		}
		return nil, customError.WrapLineNotFound(lineID)
	case errors.Is(fetchErr, customError.ErrUnauthorized), errors.Is(fetchErr, customError.ErrAccountFrozen):
		return nil, customError.WrapUpstreamError(fetchErr)
	}

	if entry, err := s.cache.GetLine(ctx, p.UserID, lineID); err == nil {
		log.Warn("Serving cached line listing after failed fetch")
		return s.newLineView(entry.Listing, tab, state, entry.FetchedAt), nil
	}

	listing, fetchedAt, err := s.lineRepo.GetLine(ctx, p.UserID, lineID)
	if err == nil {
		log.Warn("Serving stored line listing after failed fetch")
		return s.newLineView(listing, tab, state, fetchedAt), nil
	}

	log.Error("Line fetch failed with no listing to fall back on")
	return nil, customError.WrapUpstreamError(fetchErr)
}

func (s *LedgerService) newLineView(listing domain.LineListing, tab ledger.Tab, state domain.RefreshState, fetchedAt time.Time) *LineView {
	categories := ledger.CategorizeWithThreshold(listing.Customers, s.overdueThresholdDays)

	view := &LineView{
		LineID:    listing.LineID,
		Tab:       tab,
		Analytics: ledger.SummarizeAnalytics(listing.Analytics),
		State:     state,
		FetchedAt: fetchedAt,
	}
	if tab == "" {
		view.Categories = &categories
	} else {
		view.Customers = categories.Tab(tab)
	}
	return view
}

func (s *LedgerService) GetCustomer(ctx context.Context, p auth.Principal, customerID int64) (*domain.CustomerDetail, error) {
	detail, err := s.api.GetCustomerInfo(ctx, p.Token, customerID)
	if err != nil {
		if errors.Is(err, customError.ErrNotFound) {
			return nil, customError.WrapCustomerNotFound(customerID)
		}
		return nil, upstreamError(err)
	}
	return &detail, nil
}

// AddLoan issues a loan and invalidates the user's line listings. When
// NotifyMobile is set the loan summary is sent by SMS; a failed SMS is
// reported in the result and does not fail the loan.
func (s *LedgerService) AddLoan(ctx context.Context, p auth.Principal, req domain.NewLoanRequest) (*AddLoanResult, error) {
	if req.RepaymentFrequency == "" {
		req.RepaymentFrequency = domain.DefaultRepaymentFrequency
	}

	loanID, err := s.api.AddLoan(ctx, p.Token, req)
	if err != nil {
		return nil, upstreamError(err)
	}

	if _, err := s.cache.InvalidateKind(ctx, p.UserID, cache.KindLine); err != nil {
		return nil, err
	}

	result := &AddLoanResult{LoanID: loanID}
	if req.NotifyMobile == "" {
		return result, nil
	}

	sms := domain.LoanSMSRequest{MobileNumber: req.NotifyMobile, Message: LoanSMSMessage(req, s.moneyPlaces)}
	if err := s.api.SendLoanSMS(ctx, p.Token, sms); err != nil {
		s.logger.WithError(err).WithField("loan_id", loanID).Warn("Failed to send loan SMS")
		result.SMSError = err.Error()
		return result, nil
	}

	result.SMSSent = true
	return result, nil
}

func (s *LedgerService) DeleteLoan(ctx context.Context, p auth.Principal, loanID int64) error {
	if err := s.api.DeleteLoan(ctx, p.Token, loanID); err != nil {
		if errors.Is(err, customError.ErrNotFound) {
			return customError.WrapLoanNotFound(loanID)
		}
		return upstreamError(err)
	}

	if err := s.forgetLoan(ctx, p.UserID, loanID); err != nil {
		return err
	}
	_, err := s.cache.InvalidateKind(ctx, p.UserID, cache.KindLine)
	return err
}

// MarkRepayment records a payment against a loan. A zero amount is filled
// from the loan's figures: the outstanding principal for a principal payment
// on an interest-only loan, the monthly interest for an interest payment, and
// the installment amount otherwise.
func (s *LedgerService) MarkRepayment(ctx context.Context, p auth.Principal, req domain.NewRepaymentRequest) error {
	if req.Amount.IsZero() {
		amount, err := s.defaultRepaymentAmount(ctx, p, req)
		if err != nil {
			return err
		}
		req.Amount = amount
	}

	if err := s.api.AddRepayment(ctx, p.Token, req); err != nil {
		if errors.Is(err, customError.ErrNotFound) {
			return customError.WrapLoanNotFound(req.LoanID)
		}
		return upstreamError(err)
	}

	if err := s.cache.Invalidate(ctx, cache.LoanKey(p.UserID, req.LoanID)); err != nil {
		return err
	}
	_, err := s.cache.InvalidateKind(ctx, p.UserID, cache.KindLine)
	return err
}

func (s *LedgerService) defaultRepaymentAmount(ctx context.Context, p auth.Principal, req domain.NewRepaymentRequest) (decimal.Decimal, error) {
	view, err := s.GetLoanView(ctx, p, req.LoanID, req.PaymentDate)
	if err != nil {
		return decimal.Zero, err
	}
	snapshot := view.Snapshot

	switch req.RepaymentType {
	case domain.RepaymentTypePrincipal:
		if snapshot.Type() == domain.LoanTypeInterestOnly {
			return ledger.OutstandingPrincipal(snapshot)
		}
	case domain.RepaymentTypeInterest:
		return ledger.MonthlyInterestAmount(snapshot)
	}

	terms, ok := snapshot.Installment()
	if !ok {
		return decimal.Zero, customError.NewValidationError("repayment_amount", "is required for this repayment type")
	}
	return terms.RepaymentAmountPerInstallment, nil
}

func (s *LedgerService) AddCustomer(ctx context.Context, p auth.Principal, req domain.NewCustomerRequest) (int64, error) {
	customerID, err := s.api.AddCustomer(ctx, p.Token, req)
	if err != nil {
		if errors.Is(err, customError.ErrNotFound) {
			return 0, customError.WrapLineNotFound(req.LineID)
		}
		return 0, upstreamError(err)
	}

	if err := s.cache.Invalidate(ctx, cache.LineKey(p.UserID, req.LineID)); err != nil {
		return 0, err
	}
	return customerID, nil
}

func (s *LedgerService) DeleteCustomer(ctx context.Context, p auth.Principal, customerID int64) error {
	if err := s.api.DeleteCustomer(ctx, p.Token, customerID); err != nil {
		if errors.Is(err, customError.ErrNotFound) {
			return customError.WrapCustomerNotFound(customerID)
		}
		return upstreamError(err)
	}

	_, err := s.cache.InvalidateKind(ctx, p.UserID, cache.KindLine)
	return err
}

// ToggleMissingCustomer flips the customer's missing flag and returns the new
// value when the lending api reports it.
func (s *LedgerService) ToggleMissingCustomer(ctx context.Context, p auth.Principal, customerID int64) (*bool, error) {
	missing, err := s.api.ToggleMissingCustomer(ctx, p.Token, customerID)
	if err != nil {
		if errors.Is(err, customError.ErrNotFound) {
			return nil, customError.WrapCustomerNotFound(customerID)
		}
		return nil, upstreamError(err)
	}

	if _, err := s.cache.InvalidateKind(ctx, p.UserID, cache.KindLine); err != nil {
		return nil, err
	}
	return missing, nil
}

func (s *LedgerService) ListLines(ctx context.Context, p auth.Principal) ([]domain.Line, error) {
	lines, err := s.api.GetLines(ctx, p.Token, p.UserID)
	if err != nil {
		return nil, upstreamError(err)
	}
	if lines == nil {
		lines = []domain.Line{}
	}
	return lines, nil
}

func (s *LedgerService) AddLine(ctx context.Context, p auth.Principal, req domain.NewLineRequest) (int64, error) {
	lineID, err := s.api.AddLine(ctx, p.Token, p.UserID, req)
	if err != nil {
		return 0, upstreamError(err)
	}
	return lineID, nil
}

func (s *LedgerService) AddExpense(ctx context.Context, p auth.Principal, req domain.NewExpenseRequest) error {
	if err := s.api.AddExpense(ctx, p.Token, p.UserID, req); err != nil {
		return upstreamError(err)
	}
	return nil
}

func (s *LedgerService) ListExpenses(ctx context.Context, p auth.Principal) ([]domain.Expense, error) {
	expenses, err := s.api.ViewExpenses(ctx, p.Token, p.UserID)
	if err != nil {
		return nil, upstreamError(err)
	}
	if expenses == nil {
		expenses = []domain.Expense{}
	}
	return expenses, nil
}

func (s *LedgerService) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	tokens, err := s.api.Login(ctx, req)
	if err != nil {
		return nil, upstreamError(err)
	}
	return &tokens, nil
}

func (s *LedgerService) Signup(ctx context.Context, req domain.SignupRequest) error {
	if err := s.api.Signup(ctx, req); err != nil {
		return upstreamError(err)
	}
	return nil
}

// InvalidateCache marks the user's cached views of kind Stale, or every kind
// when kind is empty.
func (s *LedgerService) InvalidateCache(ctx context.Context, p auth.Principal, kind cache.Kind) (int, error) {
	kinds := []cache.Kind{cache.KindLoan, cache.KindLine}
	if kind != "" {
		kinds = []cache.Kind{kind}
	}

	total := 0
	for _, k := range kinds {
		n, err := s.cache.InvalidateKind(ctx, p.UserID, k)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// SweepStale invalidates every cached line listing. Overdue days move with
// the calendar, so listings go stale at day boundaries even without writes.
func (s *LedgerService) SweepStale(ctx context.Context) (int, error) {
	n, err := s.cache.InvalidateKind(ctx, 0, cache.KindLine)
	if err != nil {
		return n, err
	}
	s.logger.WithField("invalidated", n).Info("Swept line listings")
	return n, nil
}

// PruneStore removes stored snapshots fetched more than retention ago.
func (s *LedgerService) PruneStore(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().UTC().Add(-retention)

	loans, err := s.loanRepo.PruneLoans(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	lines, err := s.lineRepo.PruneLines(ctx, cutoff)
	if err != nil {
		return loans, err
	}

	s.logger.WithFields(logrus.Fields{
		"loans": loans,
		"lines": lines,
	}).Info("Pruned stored snapshots")
	return loans + lines, nil
}

// upstreamError classifies a lending api failure. Validation failures of the
// api's own payloads are upstream faults, not caller mistakes.
func upstreamError(err error) error {
	var be *customError.BusinessError
	if errors.As(err, &be) {
		return err
	}
	return customError.WrapUpstreamError(err)
}
