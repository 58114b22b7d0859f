package domain

import (
	"encoding/json"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	apperrors "github.com/segyhp/loan-ledger/pkg/errors"
	"github.com/segyhp/loan-ledger/pkg/validation"
)

// LoanType selects which terms payload a loan carries.
type LoanType string

const (
	LoanTypeInstallment  LoanType = "InstallmentLoan"
	LoanTypeInterestOnly LoanType = "InterestOnlyLoan"
)

const DefaultRepaymentFrequency = "Monthly"

func (t LoanType) Valid() bool {
	return t == LoanTypeInstallment || t == LoanTypeInterestOnly
}

// ParseLoanType accepts only the canonical names. Upstream labels are mapped
// by the api adapter.
func ParseLoanType(s string) (LoanType, error) {
	t := LoanType(s)
	if !t.Valid() {
		return "", apperrors.NewValidationError("loan_type", fmt.Sprintf("unrecognized loan type %q", s))
	}
	return t, nil
}

// LoanTerms is the loan-type specific payload of a snapshot. Only
// InstallmentTerms and InterestOnlyTerms implement it.
type LoanTerms interface {
	LoanType() LoanType
	validate() error
	isLoanTerms()
}

// InstallmentTerms are repaid through fixed periodic payments of equal size.
type InstallmentTerms struct {
	RepaymentAmountPerInstallment decimal.Decimal `json:"repayment_amount_per_installment" validate:"dgte=0"`
	TotalAmountPaid               decimal.Decimal `json:"total_amount_paid" validate:"dgte=0"`
}

func (InstallmentTerms) LoanType() LoanType { return LoanTypeInstallment }
func (InstallmentTerms) isLoanTerms()       {}

func (t InstallmentTerms) validate() error {
	return validation.Struct(t)
}

// InterestOnlyTerms collect periodic interest while principal is repaid at will.
type InterestOnlyTerms struct {
	RateOfInterestPercent decimal.Decimal `json:"rate_of_interest_percent" validate:"dgte=0"`
	TotalPrincipalPaid    decimal.Decimal `json:"total_principal_paid" validate:"dgte=0"`
}

func (InterestOnlyTerms) LoanType() LoanType { return LoanTypeInterestOnly }
func (InterestOnlyTerms) isLoanTerms()       {}

func (t InterestOnlyTerms) validate() error {
	return validation.Struct(t)
}

// LoanBase holds the fields every loan carries regardless of type.
type LoanBase struct {
	LoanID               int64             `json:"loan_id" validate:"gte=0"`
	PrincipalAmount      decimal.Decimal   `json:"principal_amount" validate:"dgte=0"`
	PreCharges           decimal.Decimal   `json:"pre_charges" validate:"dgte=0"`
	NumberOfInstallments int               `json:"number_of_installments" validate:"gt=0"`
	RepaymentFrequency   string            `json:"repayment_frequency"`
	NoOfRepaymentsPaid   int               `json:"no_of_repayments_paid" validate:"gte=0"`
	LendingDate          civil.Date        `json:"lending_date" validate:"required"`
	Repayments           []RepaymentRecord `json:"repayments" validate:"dive"`
}

// LoanSnapshot is an immutable copy of one loan as last fetched from the
// lending api. Build it with NewInstallmentLoan, NewInterestOnlyLoan or
// NewLoanSnapshot; the zero value carries no terms.
type LoanSnapshot struct {
	base  LoanBase
	terms LoanTerms
}

// NewInstallmentLoan validates and builds an installment loan snapshot.
func NewInstallmentLoan(base LoanBase, terms InstallmentTerms) (LoanSnapshot, error) {
	return newSnapshot(base, terms)
}

// NewInterestOnlyLoan validates and builds an interest-only loan snapshot.
func NewInterestOnlyLoan(base LoanBase, terms InterestOnlyTerms) (LoanSnapshot, error) {
	return newSnapshot(base, terms)
}

func newSnapshot(base LoanBase, terms LoanTerms) (LoanSnapshot, error) {
	if err := validation.Struct(base); err != nil {
		return LoanSnapshot{}, err
	}
	if err := terms.validate(); err != nil {
		return LoanSnapshot{}, err
	}
	if base.RepaymentFrequency == "" {
		base.RepaymentFrequency = DefaultRepaymentFrequency
	}
	base.Repayments = copyRepayments(base.Repayments)

	return LoanSnapshot{base: base, terms: terms}, nil
}

func copyRepayments(in []RepaymentRecord) []RepaymentRecord {
	out := make([]RepaymentRecord, len(in))
	copy(out, in)
	return out
}

func (s LoanSnapshot) LoanID() int64                    { return s.base.LoanID }
func (s LoanSnapshot) PrincipalAmount() decimal.Decimal { return s.base.PrincipalAmount }
func (s LoanSnapshot) PreCharges() decimal.Decimal      { return s.base.PreCharges }
func (s LoanSnapshot) NumberOfInstallments() int        { return s.base.NumberOfInstallments }
func (s LoanSnapshot) RepaymentFrequency() string       { return s.base.RepaymentFrequency }
func (s LoanSnapshot) NoOfRepaymentsPaid() int          { return s.base.NoOfRepaymentsPaid }
func (s LoanSnapshot) LendingDate() civil.Date          { return s.base.LendingDate }

// Repayments returns the payment history in server order.
func (s LoanSnapshot) Repayments() []RepaymentRecord {
	return copyRepayments(s.base.Repayments)
}

// Base returns a copy of the common loan fields.
func (s LoanSnapshot) Base() LoanBase {
	b := s.base
	b.Repayments = copyRepayments(s.base.Repayments)
	return b
}

// Terms returns the type specific payload, nil for the zero snapshot.
func (s LoanSnapshot) Terms() LoanTerms {
	return s.terms
}

// Type returns the loan type, empty for the zero snapshot.
func (s LoanSnapshot) Type() LoanType {
	if s.terms == nil {
		return ""
	}
	return s.terms.LoanType()
}

func (s LoanSnapshot) Installment() (InstallmentTerms, bool) {
	t, ok := s.terms.(InstallmentTerms)
	return t, ok
}

func (s LoanSnapshot) InterestOnly() (InterestOnlyTerms, bool) {
	t, ok := s.terms.(InterestOnlyTerms)
	return t, ok
}

// LoanRecord is the flat, canonical-unit form of a snapshot used for storage
// and caching. Fields of the inactive loan type are zero.
type LoanRecord struct {
	LoanID                        int64             `json:"loan_id" db:"loan_id"`
	LoanType                      LoanType          `json:"loan_type" db:"loan_type"`
	PrincipalAmount               decimal.Decimal   `json:"principal_amount" db:"principal_amount"`
	PreCharges                    decimal.Decimal   `json:"pre_charges" db:"pre_charges"`
	RateOfInterestPercent         decimal.Decimal   `json:"rate_of_interest_percent" db:"rate_of_interest_percent"`
	RepaymentAmountPerInstallment decimal.Decimal   `json:"repayment_amount_per_installment" db:"repayment_amount_per_installment"`
	NumberOfInstallments          int               `json:"number_of_installments" db:"number_of_installments"`
	RepaymentFrequency            string            `json:"repayment_frequency" db:"repayment_frequency"`
	NoOfRepaymentsPaid            int               `json:"no_of_repayments_paid" db:"no_of_repayments_paid"`
	TotalAmountPaid               decimal.Decimal   `json:"total_amount_paid" db:"total_amount_paid"`
	TotalPrincipalPaid            decimal.Decimal   `json:"total_principal_paid" db:"total_principal_paid"`
	LendingDate                   civil.Date        `json:"lending_date" db:"-"`
	Repayments                    []RepaymentRecord `json:"repayments" db:"-"`
}

// NewLoanSnapshot builds the variant selected by r.LoanType. Fields belonging
// to the other loan type are ignored.
func NewLoanSnapshot(r LoanRecord) (LoanSnapshot, error) {
	base := LoanBase{
		LoanID:               r.LoanID,
		PrincipalAmount:      r.PrincipalAmount,
		PreCharges:           r.PreCharges,
		NumberOfInstallments: r.NumberOfInstallments,
		RepaymentFrequency:   r.RepaymentFrequency,
		NoOfRepaymentsPaid:   r.NoOfRepaymentsPaid,
		LendingDate:          r.LendingDate,
		Repayments:           r.Repayments,
	}

	switch r.LoanType {
	case LoanTypeInstallment:
		return NewInstallmentLoan(base, InstallmentTerms{
			RepaymentAmountPerInstallment: r.RepaymentAmountPerInstallment,
			TotalAmountPaid:               r.TotalAmountPaid,
		})
	case LoanTypeInterestOnly:
		return NewInterestOnlyLoan(base, InterestOnlyTerms{
			RateOfInterestPercent: r.RateOfInterestPercent,
			TotalPrincipalPaid:    r.TotalPrincipalPaid,
		})
	}

	_, err := ParseLoanType(string(r.LoanType))
	return LoanSnapshot{}, err
}

// Record flattens the snapshot. NewLoanSnapshot(s.Record()) yields an equal snapshot.
func (s LoanSnapshot) Record() LoanRecord {
	r := LoanRecord{
		LoanID:               s.base.LoanID,
		LoanType:             s.Type(),
		PrincipalAmount:      s.base.PrincipalAmount,
		PreCharges:           s.base.PreCharges,
		NumberOfInstallments: s.base.NumberOfInstallments,
		RepaymentFrequency:   s.base.RepaymentFrequency,
		NoOfRepaymentsPaid:   s.base.NoOfRepaymentsPaid,
		LendingDate:          s.base.LendingDate,
		Repayments:           copyRepayments(s.base.Repayments),
	}

	switch t := s.terms.(type) {
	case InstallmentTerms:
		r.RepaymentAmountPerInstallment = t.RepaymentAmountPerInstallment
		r.TotalAmountPaid = t.TotalAmountPaid
	case InterestOnlyTerms:
		r.RateOfInterestPercent = t.RateOfInterestPercent
		r.TotalPrincipalPaid = t.TotalPrincipalPaid
	}

	return r
}

func (s LoanSnapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Record())
}

// UnmarshalJSON re-validates the record, so a cached snapshot that no longer
// satisfies the invariants is rejected rather than served.
func (s *LoanSnapshot) UnmarshalJSON(data []byte) error {
	var r LoanRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}

	snapshot, err := NewLoanSnapshot(r)
	if err != nil {
		return err
	}

	*s = snapshot
	return nil
}
