package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Expense is an operating cost logged by a lender.
type Expense struct {
	ExpenseAmount decimal.Decimal `json:"expense_amount"`
	Date          civil.Date      `json:"date"`
	Description   string          `json:"description,omitempty"`
}
