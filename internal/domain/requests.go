package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// DTOs for requests and responses

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	UserID  int64  `json:"user_id"`
}

type SignupRequest struct {
	FinanceName       string `json:"finance_name" validate:"required"`
	Email             string `json:"email" validate:"required,email"`
	Password          string `json:"password" validate:"required,min=6"`
	UserName          string `json:"user_name" validate:"required"`
	MobileNumber      string `json:"mobile_number" validate:"required,numeric,min=10,max=15"`
	Role              string `json:"role" validate:"omitempty,oneof=admin agent"`
	AdminID           string `json:"admin_id,omitempty"`
	AdminMobileNumber string `json:"admin_mobile_number,omitempty"`
}

type NewLineRequest struct {
	LineName string `json:"line_name" validate:"required"`
}

type NewCustomerRequest struct {
	LineID                int64      `json:"line_id" validate:"gt=0"`
	CustomerName          string     `json:"customer_name" validate:"required"`
	CustomerMobileNumber  string     `json:"customer_mobile_number" validate:"required,numeric,min=10,max=15"`
	AlternateMobileNumber string     `json:"alternate_mobile_number,omitempty" validate:"omitempty,numeric,min=10,max=15"`
	DateOfBirth           civil.Date `json:"date_of_birth"`
	AadharNumber          string     `json:"aadhar_number,omitempty"`
	PanNumber             string     `json:"pan_number,omitempty"`
	Address               string     `json:"address,omitempty"`
}

// NewLoanRequest issues a loan. Only the terms of LoanType are forwarded.
type NewLoanRequest struct {
	CustomerID                    int64           `json:"customer_id" validate:"gt=0"`
	LoanType                      LoanType        `json:"loan_type" validate:"required,oneof=InstallmentLoan InterestOnlyLoan"`
	LoanAmount                    decimal.Decimal `json:"loan_amount" validate:"dgt=0"`
	PreCharges                    decimal.Decimal `json:"pre_charges" validate:"dgte=0"`
	RepaymentAmountPerInstallment decimal.Decimal `json:"repayment_amount" validate:"dgte=0"`
	RepaymentFrequency            string          `json:"repayment_frequency"`
	NumberOfInstallments          int             `json:"number_of_installments" validate:"gt=0"`
	RateOfInterestPercent         decimal.Decimal `json:"rate_of_interest" validate:"dgte=0"`
	LendingDate                   civil.Date      `json:"lending_date" validate:"required"`
	// NotifyMobile, when set, receives the loan summary by SMS.
	NotifyMobile string `json:"notify_mobile,omitempty" validate:"omitempty,numeric,min=10,max=15"`
}

type NewRepaymentRequest struct {
	LoanID int64 `json:"loan_id"`
	// RepaymentType is free-form; Principal repayments on interest-only
	// loans default to the outstanding principal when Amount is zero.
	RepaymentType string          `json:"repayment_type"`
	Amount        decimal.Decimal `json:"repayment_amount" validate:"dgte=0"`
	PaymentDate   civil.Date      `json:"payment_date" validate:"required"`
	Comments      string          `json:"comments,omitempty"`
}

type NewExpenseRequest struct {
	ExpenseAmount decimal.Decimal `json:"expense_amount" validate:"dgt=0"`
	ExpenseDate   civil.Date      `json:"expense_date" validate:"required"`
	Description   string          `json:"description,omitempty"`
}

// LoanSMSRequest is the loan summary pushed to the customer after issuance.
type LoanSMSRequest struct {
	MobileNumber string `json:"mobile_number"`
	Message      string `json:"message"`
}
