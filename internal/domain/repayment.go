package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Repayment labels used by the lending api. Type is free-form; these are the
// values the client offers.
const (
	RepaymentTypePrincipal = "Principal"
	RepaymentTypeInterest  = "Interest"
	RepaymentTypeEMI       = "EMI"
)

// RepaymentRecord is one historical payment against a loan.
type RepaymentRecord struct {
	Amount  decimal.Decimal `json:"amount" validate:"dgte=0"`
	Type    string          `json:"type"`
	Date    civil.Date      `json:"date" validate:"required"`
	Comment string          `json:"comment,omitempty"`
}

// IsPrincipal reports whether the payment reduced principal.
func (r RepaymentRecord) IsPrincipal() bool {
	return r.Type == RepaymentTypePrincipal
}

// IsInterest reports whether the payment was an interest collection.
func (r RepaymentRecord) IsInterest() bool {
	return r.Type == RepaymentTypeInterest
}
