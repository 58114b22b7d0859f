// Package ledger derives the figures and views shown to lenders from loan
// snapshots and customer listings. Every function is a pure computation over
// its arguments; the caller supplies the current date.
package ledger

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/segyhp/loan-ledger/internal/domain"
	apperrors "github.com/segyhp/loan-ledger/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

func interestOnlyTerms(operation string, s domain.LoanSnapshot) (domain.InterestOnlyTerms, error) {
	t, ok := s.InterestOnly()
	if !ok {
		return domain.InterestOnlyTerms{}, apperrors.NewWrongLoanTypeError(operation, string(domain.LoanTypeInterestOnly), string(s.Type()))
	}
	return t, nil
}

func installmentTerms(operation string, s domain.LoanSnapshot) (domain.InstallmentTerms, error) {
	t, ok := s.Installment()
	if !ok {
		return domain.InstallmentTerms{}, apperrors.NewWrongLoanTypeError(operation, string(domain.LoanTypeInstallment), string(s.Type()))
	}
	return t, nil
}

// OutstandingPrincipal is principal minus principal repaid on an interest-only loan.
func OutstandingPrincipal(s domain.LoanSnapshot) (decimal.Decimal, error) {
	t, err := interestOnlyTerms("OutstandingPrincipal", s)
	if err != nil {
		return decimal.Zero, err
	}
	return s.PrincipalAmount().Sub(t.TotalPrincipalPaid), nil
}

// MonthlyInterestAmount is simple interest for one period on the full
// principal: principal * rate / 100.
func MonthlyInterestAmount(s domain.LoanSnapshot) (decimal.Decimal, error) {
	t, err := interestOnlyTerms("MonthlyInterestAmount", s)
	if err != nil {
		return decimal.Zero, err
	}
	return s.PrincipalAmount().Mul(t.RateOfInterestPercent).Div(hundred), nil
}

// TotalAmountWithInterest is the flat obligation of an installment loan.
func TotalAmountWithInterest(s domain.LoanSnapshot) (decimal.Decimal, error) {
	t, err := installmentTerms("TotalAmountWithInterest", s)
	if err != nil {
		return decimal.Zero, err
	}
	return totalWithInterest(s, t), nil
}

func totalWithInterest(s domain.LoanSnapshot, t domain.InstallmentTerms) decimal.Decimal {
	return decimal.NewFromInt(int64(s.NumberOfInstallments())).Mul(t.RepaymentAmountPerInstallment)
}

// AmountPending is what remains of an installment loan's obligation. An
// over-payment yields a negative amount; it is not clamped.
func AmountPending(s domain.LoanSnapshot) (decimal.Decimal, error) {
	t, err := installmentTerms("AmountPending", s)
	if err != nil {
		return decimal.Zero, err
	}
	return totalWithInterest(s, t).Sub(t.TotalAmountPaid), nil
}

// DaysSinceLending is the absolute number of days between the lending date
// and today. Both are calendar dates so the difference is already whole.
func DaysSinceLending(s domain.LoanSnapshot, today civil.Date) int {
	return DaysBetween(s.LendingDate(), today)
}

// DaysBetween returns |b - a| in days.
func DaysBetween(a, b civil.Date) int {
	days := b.DaysSince(a)
	if days < 0 {
		return -days
	}
	return days
}

// InstallmentFigures are shown for installment loans.
type InstallmentFigures struct {
	RepaymentAmountPerInstallment decimal.Decimal `json:"repayment_amount_per_installment"`
	TotalAmountWithInterest       decimal.Decimal `json:"total_amount_with_interest"`
	TotalAmountPaid               decimal.Decimal `json:"total_amount_paid"`
	AmountPending                 decimal.Decimal `json:"amount_pending"`
}

// InterestOnlyFigures are shown for interest-only loans.
type InterestOnlyFigures struct {
	RateOfInterestPercent decimal.Decimal `json:"rate_of_interest_percent"`
	MonthlyInterestAmount decimal.Decimal `json:"monthly_interest_amount"`
	TotalPrincipalPaid    decimal.Decimal `json:"total_principal_paid"`
	OutstandingPrincipal  decimal.Decimal `json:"outstanding_principal"`
}

// Figures bundles everything a loan page displays. Exactly one of
// Installment and InterestOnly is set, matching LoanType.
type Figures struct {
	LoanID               int64                `json:"loan_id"`
	LoanType             domain.LoanType      `json:"loan_type"`
	PrincipalAmount      decimal.Decimal      `json:"principal_amount"`
	PreCharges           decimal.Decimal      `json:"pre_charges"`
	NumberOfInstallments int                  `json:"number_of_installments"`
	LendingDate          civil.Date           `json:"lending_date"`
	DaysSinceLending     int                  `json:"days_since_lending"`
	RepaymentCount       int                  `json:"repayment_count"`
	PrincipalRepaid      decimal.Decimal      `json:"principal_repaid"`
	InterestCollected    decimal.Decimal      `json:"interest_collected"`
	Installment          *InstallmentFigures  `json:"installment,omitempty"`
	InterestOnly         *InterestOnlyFigures `json:"interest_only,omitempty"`
}

// Derive computes the figures for s. A snapshot without terms returns
// ErrWrongLoanType.
func Derive(s domain.LoanSnapshot, today civil.Date) (Figures, error) {
	repayments := s.Repayments()

	f := Figures{
		LoanID:               s.LoanID(),
		LoanType:             s.Type(),
		PrincipalAmount:      s.PrincipalAmount(),
		PreCharges:           s.PreCharges(),
		NumberOfInstallments: s.NumberOfInstallments(),
		LendingDate:          s.LendingDate(),
		DaysSinceLending:     DaysSinceLending(s, today),
		RepaymentCount:       len(repayments),
		PrincipalRepaid:      decimal.Zero,
		InterestCollected:    decimal.Zero,
	}

	for _, r := range repayments {
		switch {
		case r.IsPrincipal():
			f.PrincipalRepaid = f.PrincipalRepaid.Add(r.Amount)
		case r.IsInterest():
			f.InterestCollected = f.InterestCollected.Add(r.Amount)
		}
	}

	switch t := s.Terms().(type) {
	case domain.InstallmentTerms:
		total := totalWithInterest(s, t)
		f.Installment = &InstallmentFigures{
			RepaymentAmountPerInstallment: t.RepaymentAmountPerInstallment,
			TotalAmountWithInterest:       total,
			TotalAmountPaid:               t.TotalAmountPaid,
			AmountPending:                 total.Sub(t.TotalAmountPaid),
		}
	case domain.InterestOnlyTerms:
		f.InterestOnly = &InterestOnlyFigures{
			RateOfInterestPercent: t.RateOfInterestPercent,
			MonthlyInterestAmount: s.PrincipalAmount().Mul(t.RateOfInterestPercent).Div(hundred),
			TotalPrincipalPaid:    t.TotalPrincipalPaid,
			OutstandingPrincipal:  s.PrincipalAmount().Sub(t.TotalPrincipalPaid),
		}
	default:
		return Figures{}, apperrors.NewWrongLoanTypeError("Derive", "a loan type", "none")
	}

	return f, nil
}
