package domain

import (
	"github.com/shopspring/decimal"
)

const (
	LoanStatusActive   = "Active"
	LoanStatusInactive = "Inactive"
	LoanStatusOverdue  = "Overdue"
)

// CustomerSummary is one row of a line's customer listing.
type CustomerSummary struct {
	CustomerID    int64  `json:"customer_id"`
	DisplayName   string `json:"display_name"`
	PrimaryMobile string `json:"primary_mobile"`
	LoanStatus    string `json:"loan_status"`
	OverdueDays   int    `json:"overdue_days" validate:"gte=0"`
	IsMissing     bool   `json:"is_missing"`
	PendingLoan   bool   `json:"pending_loan"`
}

// LineAnalytics are the portfolio aggregates computed by the lending api for
// one line.
type LineAnalytics struct {
	TotalPendingAmount decimal.Decimal `json:"total_pending_amount"`
	TotalPendingPoints decimal.Decimal `json:"total_pending_points"`
	OverdueAmount      decimal.Decimal `json:"overdue_amount"`
	OverduePoints      decimal.Decimal `json:"overdue_points"`
}

// LineListing is one fetch of a line's customers. Analytics is nil when the
// lending api omitted the aggregate object.
type LineListing struct {
	LineID    int64             `json:"line_id"`
	Customers []CustomerSummary `json:"customers"`
	Analytics *LineAnalytics    `json:"analytics,omitempty"`
}

// Line is a lending portfolio owned by a user.
type Line struct {
	LineID   int64  `json:"line_id"`
	LineName string `json:"line_name"`
}

// CustomerLoan is the short loan entry listed on a customer's page.
type CustomerLoan struct {
	LoanID      int64           `json:"loan_id"`
	LoanType    LoanType        `json:"loan_type"`
	LoanAmount  decimal.Decimal `json:"loan_amount"`
	PendingLoan bool            `json:"pending_loan"`
	LoanStatus  string          `json:"loan_status"`
}

// CustomerDetail is the full customer record with its loans.
type CustomerDetail struct {
	CustomerID            int64          `json:"customer_id"`
	CustomerName          string         `json:"customer_name"`
	CustomerMobileNumber  string         `json:"customer_mobile_number"`
	AlternateMobileNumber string         `json:"alternate_mobile_number,omitempty"`
	AadharNumber          string         `json:"aadhar_number,omitempty"`
	PanNumber             string         `json:"pan_number,omitempty"`
	Address               string         `json:"address,omitempty"`
	IsMissingCustomer     bool           `json:"is_missing_customer"`
	Loans                 []CustomerLoan `json:"loans"`
}
