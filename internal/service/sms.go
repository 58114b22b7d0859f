package service

import (
	"fmt"
	"strings"

	"github.com/segyhp/loan-ledger/internal/client"
	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/pkg/utils"
)

// LoanSMSMessage builds the loan summary texted to a customer after issuance.
// Loan types are shown with the labels customers see in the lending api and
// amounts are rendered with places decimals.
func LoanSMSMessage(req domain.NewLoanRequest, places int32) string {
	var b strings.Builder

	line := func(label string, value interface{}) {
		fmt.Fprintf(&b, "\n%s: %v", label, value)
	}

	switch req.LoanType {
	case domain.LoanTypeInterestOnly:
		b.WriteString("Loan Details (Interest-Only):")
		line("Customer ID", req.CustomerID)
		line("Type", client.APILoanType(req.LoanType))
		line("Amount", utils.FormatMoney(req.LoanAmount, places))
		line("Pre-Charges", utils.FormatMoney(req.PreCharges, places))
		line("Interest Rate", req.RateOfInterestPercent.String())
		line("Installments", req.NumberOfInstallments)
		line("Date", req.LendingDate)
	default:
		b.WriteString("Loan Details (Installment):")
		line("Customer ID", req.CustomerID)
		line("Type", client.APILoanType(req.LoanType))
		line("Amount", utils.FormatMoney(req.LoanAmount, places))
		line("Pre-Charges", utils.FormatMoney(req.PreCharges, places))
		line("Repayment", utils.FormatMoney(req.RepaymentAmountPerInstallment, places))
		line("Frequency", frequency(req.RepaymentFrequency))
		line("Installments", req.NumberOfInstallments)
		line("Interest Rate", req.RateOfInterestPercent.String())
		line("Date", req.LendingDate)
	}

	return b.String()
}

func frequency(f string) string {
	if f == "" {
		return domain.DefaultRepaymentFrequency
	}
	return f
}
