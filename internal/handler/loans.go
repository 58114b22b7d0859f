package handler

import (
	"net/http"

	"github.com/segyhp/loan-ledger/internal/domain"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
	"github.com/segyhp/loan-ledger/pkg/response"
	"github.com/segyhp/loan-ledger/pkg/utils"
)

func (h *LedgerHandler) AddLoan(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req domain.NewLoanRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.service.AddLoan(r.Context(), p, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Created(w, result)
}

// GetLoan returns a loan with its ledger figures. ?today=YYYY-MM-DD pins the
// date days-since-lending is measured to.
func (h *LedgerHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	loanID, err := pathID(r, "loanId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	today, err := utils.ParseDateOr(r.URL.Query().Get("today"), h.today())
	if err != nil {
		h.writeError(w, r, customError.NewValidationError("today", err.Error()))
		return
	}

	view, err := h.service.GetLoanView(r.Context(), p, loanID, today)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, view)
}

func (h *LedgerHandler) DeleteLoan(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	loanID, err := pathID(r, "loanId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.service.DeleteLoan(r.Context(), p, loanID); err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, map[string]int64{"loan_id": loanID})
}

// MarkRepayment records a payment. The loan id comes from the path; a zero
// repayment_amount is filled in from the loan's figures.
func (h *LedgerHandler) MarkRepayment(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	loanID, err := pathID(r, "loanId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req domain.NewRepaymentRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	req.LoanID = loanID

	if err := h.service.MarkRepayment(r.Context(), p, req); err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Created(w, map[string]int64{"loan_id": loanID})
}
