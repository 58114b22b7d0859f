package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/loan-ledger/internal/auth"
	"github.com/segyhp/loan-ledger/internal/cache"
	"github.com/segyhp/loan-ledger/internal/client"
	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/internal/ledger"
	"github.com/segyhp/loan-ledger/internal/service"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
	"github.com/segyhp/loan-ledger/pkg/response"
	"github.com/segyhp/loan-ledger/pkg/utils"
	"github.com/segyhp/loan-ledger/pkg/validation"
)

// LedgerService is the subset of service.LedgerService the handlers call.
type LedgerService interface {
	Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)
	Signup(ctx context.Context, req domain.SignupRequest) error

	ListLines(ctx context.Context, p auth.Principal) ([]domain.Line, error)
	AddLine(ctx context.Context, p auth.Principal, req domain.NewLineRequest) (int64, error)
	GetLineView(ctx context.Context, p auth.Principal, lineID int64, tab ledger.Tab) (*service.LineView, error)

	AddCustomer(ctx context.Context, p auth.Principal, req domain.NewCustomerRequest) (int64, error)
	GetCustomer(ctx context.Context, p auth.Principal, customerID int64) (*domain.CustomerDetail, error)
	DeleteCustomer(ctx context.Context, p auth.Principal, customerID int64) error
	ToggleMissingCustomer(ctx context.Context, p auth.Principal, customerID int64) (*bool, error)

	AddLoan(ctx context.Context, p auth.Principal, req domain.NewLoanRequest) (*service.AddLoanResult, error)
	GetLoanView(ctx context.Context, p auth.Principal, loanID int64, today civil.Date) (*service.LoanView, error)
	DeleteLoan(ctx context.Context, p auth.Principal, loanID int64) error
	MarkRepayment(ctx context.Context, p auth.Principal, req domain.NewRepaymentRequest) error

	AddExpense(ctx context.Context, p auth.Principal, req domain.NewExpenseRequest) error
	ListExpenses(ctx context.Context, p auth.Principal) ([]domain.Expense, error)

	InvalidateCache(ctx context.Context, p auth.Principal, kind cache.Kind) (int, error)
}

type LedgerHandler struct {
	service  LedgerService
	logger   *logrus.Logger
	location *time.Location
	now      func() time.Time
}

// NewLedgerHandler builds the handlers. location decides which calendar day
// "today" is when a loan page does not name one.
func NewLedgerHandler(service LedgerService, logger *logrus.Logger, location *time.Location) *LedgerHandler {
	return &LedgerHandler{
		service:  service,
		logger:   logger,
		location: location,
		now:      time.Now,
	}
}

// WithClock replaces the clock used to resolve today's date.
func (h *LedgerHandler) WithClock(now func() time.Time) *LedgerHandler {
	h.now = now
	return h
}

func (h *LedgerHandler) today() civil.Date {
	return utils.Today(h.now(), h.location)
}

// decode reads a JSON body into dest and validates it.
func decode(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return customError.NewValidationError("", fmt.Sprintf("invalid request body: %v", err))
	}
	return validation.Struct(dest)
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, customError.NewValidationError(name, fmt.Sprintf("must be a positive integer, got %q", raw))
	}
	return id, nil
}

func principal(r *http.Request) (auth.Principal, error) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		return auth.Principal{}, customError.ErrUnauthorized
	}
	return p, nil
}

// writeError maps err onto a status code and the error envelope.
func (h *LedgerHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := classify(err)

	entry := h.logger.WithError(err).WithFields(logrus.Fields{
		"path":       r.URL.Path,
		"status":     status,
		"request_id": response.RequestID(r.Context()),
	})
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
		response.ErrorWithCode(w, status, code, message, nil)
		return
	}
	entry.Debug("Request rejected")
	response.ErrorWithCode(w, status, code, message, err)
}

func classify(err error) (int, string, string) {
	var be *customError.BusinessError
	if errors.As(err, &be) {
		return businessStatus(be), be.Code, be.Message
	}

	var validationErr *customError.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, "", "Invalid request"
	case errors.Is(err, customError.ErrWrongLoanType):
		return http.StatusConflict, "", "Operation does not apply to this loan type"
	case errors.Is(err, customError.ErrNotFound):
		return http.StatusNotFound, "", "Resource not found"
	case errors.Is(err, customError.ErrUnauthorized):
		return http.StatusUnauthorized, "", "Unauthorized"
	case errors.Is(err, customError.ErrAccountFrozen):
		return http.StatusForbidden, "", "Account subscription has expired"
	case errors.Is(err, customError.ErrUpstream):
		return http.StatusBadGateway, "", "Lending api request failed"
	}
	return http.StatusInternalServerError, "", "Internal server error"
}

func businessStatus(be *customError.BusinessError) int {
	switch be.Code {
	case customError.ErrCodeLoanNotFound, customError.ErrCodeCustomerNotFound, customError.ErrCodeLineNotFound:
		return http.StatusNotFound
	case customError.ErrCodeUpstreamUnauthorized:
		return http.StatusUnauthorized
	case customError.ErrCodeAccountFrozen:
		return http.StatusForbidden
	case customError.ErrCodeUpstreamError:
		// The lending api refused the request itself, e.g. a duplicate signup.
		var apiErr *client.APIError
		if errors.As(be.Err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
