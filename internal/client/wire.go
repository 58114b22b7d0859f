package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/segyhp/loan-ledger/internal/domain"
	apperrors "github.com/segyhp/loan-ledger/pkg/errors"
	"github.com/segyhp/loan-ledger/pkg/utils"
	"github.com/segyhp/loan-ledger/pkg/validation"
)

// Loan type labels as the lending api spells them.
const (
	apiLabelInstallment  = "Installment Loan"
	apiLabelInterestOnly = "Interest-Only Loan"
)

// apiRepaymentPrincipal is how the lending api spells principal repayments.
const apiRepaymentPrincipal = "Principle"

// flexDecimal accepts a JSON string, number or null.
type flexDecimal struct {
	decimal.Decimal
}

func (d *flexDecimal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		d.Decimal = decimal.Zero
		return nil
	}

	text := string(data)
	if strings.HasPrefix(text, `"`) {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
	}

	value, err := utils.DecimalFromString(text)
	if err != nil {
		return fmt.Errorf("invalid amount %s: %w", data, err)
	}
	d.Decimal = value
	return nil
}

// flexDate accepts "YYYY-MM-DD", a timestamp or null.
type flexDate struct {
	civil.Date
}

func (d *flexDate) UnmarshalJSON(data []byte) error {
	var text *string
	if err := json.Unmarshal(data, &text); err != nil {
		return fmt.Errorf("invalid date %s: %w", data, err)
	}
	if text == nil || strings.TrimSpace(*text) == "" {
		d.Date = civil.Date{}
		return nil
	}

	value, err := utils.ParseDate(*text)
	if err != nil {
		return err
	}
	d.Date = value
	return nil
}

// CanonicalLoanType maps the lending api's labels onto LoanType. Spacing,
// hyphens and case are ignored so "Interest-Only Loan" and "InterestOnlyLoan"
// both match.
func CanonicalLoanType(label string) (domain.LoanType, error) {
	key := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToLower(label))
	switch key {
	case "installmentloan", "installment":
		return domain.LoanTypeInstallment, nil
	case "interestonlyloan", "interestonly":
		return domain.LoanTypeInterestOnly, nil
	}
	return "", apperrors.NewValidationError("loan_type", fmt.Sprintf("unrecognized loan type %q", label))
}

// APILoanType is the inverse of CanonicalLoanType.
func APILoanType(t domain.LoanType) string {
	switch t {
	case domain.LoanTypeInstallment:
		return apiLabelInstallment
	case domain.LoanTypeInterestOnly:
		return apiLabelInterestOnly
	}
	return string(t)
}

func canonicalRepaymentType(label string) string {
	if strings.EqualFold(strings.TrimSpace(label), apiRepaymentPrincipal) {
		return domain.RepaymentTypePrincipal
	}
	return label
}

func apiRepaymentType(label string) string {
	if label == domain.RepaymentTypePrincipal {
		return apiRepaymentPrincipal
	}
	return label
}

type repaymentDTO struct {
	RepaymentAmount flexDecimal `json:"repayment_amount"`
	InterestAmount  flexDecimal `json:"interest_amount"`
	RepaymentType   string      `json:"repayment_type"`
	RepaymentDate   flexDate    `json:"repayment_date"`
	Comments        string      `json:"comments"`
}

func (r repaymentDTO) toDomain() domain.RepaymentRecord {
	amount := r.RepaymentAmount.Decimal
	if amount.IsZero() {
		amount = r.InterestAmount.Decimal
	}

	return domain.RepaymentRecord{
		Amount:  amount,
		Type:    canonicalRepaymentType(r.RepaymentType),
		Date:    r.RepaymentDate.Date,
		Comment: r.Comments,
	}
}

type loanDetailsDTO struct {
	LoanID               int64          `json:"loan_id"`
	LoanAmount           flexDecimal    `json:"loan_amount"`
	LoanType             string         `json:"loan_type"`
	RepaymentAmount      flexDecimal    `json:"repayment_amount"`
	RepaymentFrequency   string         `json:"repayment_frequency"`
	NumberOfInstallments int            `json:"number_of_installments"`
	LendingDate          flexDate       `json:"lending_date"`
	NoOfRepaymentsPaid   int            `json:"no_of_repayments_paid"`
	TotalAmountPaid      flexDecimal    `json:"total_amount_paid"`
	TotalPrinciplePaid   flexDecimal    `json:"total_principle_paid"`
	TotalPrincipalPaid   flexDecimal    `json:"total_principal_paid"`
	PreCharges           flexDecimal    `json:"pre_charges"`
	RateOfInterest       flexDecimal    `json:"rate_of_interest"`
	Repayments           []repaymentDTO `json:"repayments"`
}

// toSnapshot converts the wire form into a validated snapshot. Negative
// amounts or an unknown loan type surface as ValidationError.
func (l loanDetailsDTO) toSnapshot() (domain.LoanSnapshot, error) {
	loanType, err := CanonicalLoanType(l.LoanType)
	if err != nil {
		return domain.LoanSnapshot{}, err
	}

	repayments := make([]domain.RepaymentRecord, 0, len(l.Repayments))
	for _, r := range l.Repayments {
		repayments = append(repayments, r.toDomain())
	}

	principalPaid := l.TotalPrincipalPaid.Decimal
	if principalPaid.IsZero() {
		principalPaid = l.TotalPrinciplePaid.Decimal
	}

	return domain.NewLoanSnapshot(domain.LoanRecord{
		LoanID:                        l.LoanID,
		LoanType:                      loanType,
		PrincipalAmount:               l.LoanAmount.Decimal,
		PreCharges:                    l.PreCharges.Decimal,
		RateOfInterestPercent:         l.RateOfInterest.Decimal,
		RepaymentAmountPerInstallment: l.RepaymentAmount.Decimal,
		NumberOfInstallments:          l.NumberOfInstallments,
		RepaymentFrequency:            l.RepaymentFrequency,
		NoOfRepaymentsPaid:            l.NoOfRepaymentsPaid,
		TotalAmountPaid:               l.TotalAmountPaid.Decimal,
		TotalPrincipalPaid:            principalPaid,
		LendingDate:                   l.LendingDate.Date,
		Repayments:                    repayments,
	})
}

type customerSummaryDTO struct {
	CustomerID           int64  `json:"customer_id"`
	CustomerName         string `json:"customer_name"`
	CustomerMobileNumber string `json:"customer_mobile_number"`
	PendingLoan          bool   `json:"pending_loan"`
	LoanStatus           string `json:"loan_status"`
	OverdueDays          *int   `json:"overdue_days"`
	IsMissingCustomer    bool   `json:"is_missing_customer"`
}

// toDomain validates the summary. An absent overdue_days reads as zero; a
// negative one is a ValidationError.
func (c customerSummaryDTO) toDomain() (domain.CustomerSummary, error) {
	overdue := 0
	if c.OverdueDays != nil {
		overdue = *c.OverdueDays
	}

	summary := domain.CustomerSummary{
		CustomerID:    c.CustomerID,
		DisplayName:   c.CustomerName,
		PrimaryMobile: c.CustomerMobileNumber,
		LoanStatus:    c.LoanStatus,
		OverdueDays:   overdue,
		IsMissing:     c.IsMissingCustomer,
		PendingLoan:   c.PendingLoan,
	}
	if err := validation.Struct(summary); err != nil {
		return domain.CustomerSummary{}, fmt.Errorf("customer %d: %w", c.CustomerID, err)
	}
	return summary, nil
}

type lineAnalyticsDTO struct {
	TotalPendingAmount flexDecimal `json:"total_pending_amount"`
	TotalPendingPoints flexDecimal `json:"total_pending_points"`
	OverdueAmount      flexDecimal `json:"overdue_amount"`
	OverduePoints      flexDecimal `json:"overdue_points"`
}

type lineCustomersDTO struct {
	Customers     []customerSummaryDTO `json:"customers"`
	LineAnalytics *lineAnalyticsDTO    `json:"line_analytics"`
}

func (l lineCustomersDTO) toListing(lineID int64) (domain.LineListing, error) {
	listing := domain.LineListing{
		LineID:    lineID,
		Customers: make([]domain.CustomerSummary, 0, len(l.Customers)),
	}
	for _, c := range l.Customers {
		summary, err := c.toDomain()
		if err != nil {
			return domain.LineListing{}, err
		}
		listing.Customers = append(listing.Customers, summary)
	}

	if a := l.LineAnalytics; a != nil {
		listing.Analytics = &domain.LineAnalytics{
			TotalPendingAmount: a.TotalPendingAmount.Decimal,
			TotalPendingPoints: a.TotalPendingPoints.Decimal,
			OverdueAmount:      a.OverdueAmount.Decimal,
			OverduePoints:      a.OverduePoints.Decimal,
		}
	}

	return listing, nil
}

type customerLoanDTO struct {
	LoanID      int64       `json:"loan_id"`
	LoanAmount  flexDecimal `json:"loan_amount"`
	PendingLoan bool        `json:"pending_loan"`
	LoanType    string      `json:"loan_type"`
	LoanStatus  string      `json:"loan_status"`
}

type customerDetailDTO struct {
	CustomerID            int64             `json:"customer_id"`
	CustomerName          string            `json:"customer_name"`
	CustomerMobileNumber  string            `json:"customer_mobile_number"`
	AlternateMobileNumber string            `json:"alternate_mobile_number"`
	AadharNumber          string            `json:"aadhar_number"`
	PanNumber             string            `json:"pan_number"`
	Address               string            `json:"address"`
	IsMissingCustomer     bool              `json:"is_missing_customer"`
	Loans                 []customerLoanDTO `json:"loans"`
}

func (c customerDetailDTO) toDomain() (domain.CustomerDetail, error) {
	detail := domain.CustomerDetail{
		CustomerID:            c.CustomerID,
		CustomerName:          c.CustomerName,
		CustomerMobileNumber:  c.CustomerMobileNumber,
		AlternateMobileNumber: c.AlternateMobileNumber,
		AadharNumber:          c.AadharNumber,
		PanNumber:             c.PanNumber,
		Address:               c.Address,
		IsMissingCustomer:     c.IsMissingCustomer,
		Loans:                 make([]domain.CustomerLoan, 0, len(c.Loans)),
	}

	for _, l := range c.Loans {
		loanType, err := CanonicalLoanType(l.LoanType)
		if err != nil {
			return domain.CustomerDetail{}, fmt.Errorf("loan %d: %w", l.LoanID, err)
		}
		detail.Loans = append(detail.Loans, domain.CustomerLoan{
			LoanID:      l.LoanID,
			LoanType:    loanType,
			LoanAmount:  l.LoanAmount.Decimal,
			PendingLoan: l.PendingLoan,
			LoanStatus:  l.LoanStatus,
		})
	}

	return detail, nil
}

type lineDTO struct {
	LineID   int64  `json:"line_id"`
	LineName string `json:"line_name"`
}

type expenseDTO struct {
	ExpenseAmount flexDecimal `json:"expense_amount"`
	Date          flexDate    `json:"date"`
	ExpenseDate   flexDate    `json:"expense_date"`
	Description   string      `json:"description"`
}

func (e expenseDTO) toDomain() domain.Expense {
	date := e.Date.Date
	if !date.IsValid() {
		date = e.ExpenseDate.Date
	}
	return domain.Expense{
		ExpenseAmount: e.ExpenseAmount.Decimal,
		Date:          date,
		Description:   e.Description,
	}
}

// Outgoing payloads.

type addLoanPayload struct {
	CustomerID           int64            `json:"customer_id"`
	LoanAmount           decimal.Decimal  `json:"loan_amount"`
	LoanType             string           `json:"loan_type"`
	PreCharges           decimal.Decimal  `json:"pre_charges"`
	RepaymentAmount      *decimal.Decimal `json:"repayment_amount,omitempty"`
	RepaymentFrequency   string           `json:"repayment_frequency"`
	NumberOfInstallments int              `json:"number_of_installments"`
	RateOfInterest       *decimal.Decimal `json:"rate_of_interest,omitempty"`
	LendingDate          civil.Date       `json:"lending_date"`
}

// newAddLoanPayload forwards only the terms belonging to the requested type.
func newAddLoanPayload(req domain.NewLoanRequest) addLoanPayload {
	frequency := req.RepaymentFrequency
	if frequency == "" {
		frequency = domain.DefaultRepaymentFrequency
	}

	p := addLoanPayload{
		CustomerID:           req.CustomerID,
		LoanAmount:           req.LoanAmount,
		LoanType:             APILoanType(req.LoanType),
		PreCharges:           req.PreCharges,
		RepaymentFrequency:   frequency,
		NumberOfInstallments: req.NumberOfInstallments,
		LendingDate:          req.LendingDate,
	}

	switch req.LoanType {
	case domain.LoanTypeInstallment:
		amount := req.RepaymentAmountPerInstallment
		p.RepaymentAmount = &amount
	case domain.LoanTypeInterestOnly:
		rate := req.RateOfInterestPercent
		p.RateOfInterest = &rate
	}

	return p
}

type addRepaymentPayload struct {
	LoanID          int64           `json:"loan_id"`
	RepaymentType   string          `json:"repayment_type"`
	RepaymentAmount decimal.Decimal `json:"repayment_amount"`
	PaymentDate     civil.Date      `json:"payment_date"`
	Comments        string          `json:"comments,omitempty"`
}

type addExpensePayload struct {
	ExpenseAmount decimal.Decimal `json:"expense_amount"`
	ExpenseDate   civil.Date      `json:"expense_date"`
	Description   string          `json:"description,omitempty"`
	UserID        int64           `json:"user_id"`
}

type addLinePayload struct {
	LineName string `json:"line_name"`
	UserID   int64  `json:"user_id"`
}

type createdDTO struct {
	LoanID     int64  `json:"loan_id"`
	CustomerID int64  `json:"customer_id"`
	LineID     int64  `json:"line_id"`
	ID         int64  `json:"id"`
	Message    string `json:"message"`
}

func (c createdDTO) pick(id int64) int64 {
	if id != 0 {
		return id
	}
	return c.ID
}

type missingToggleDTO struct {
	IsMissingCustomer *bool  `json:"is_missing_customer"`
	Message           string `json:"message"`
}
