package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/segyhp/loan-ledger/internal/cache"
	"github.com/segyhp/loan-ledger/internal/domain"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
	"github.com/segyhp/loan-ledger/pkg/response"
	"github.com/segyhp/loan-ledger/pkg/validation"
)

func (h *LedgerHandler) AddExpense(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req domain.NewExpenseRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.service.AddExpense(r.Context(), p, req); err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Created(w, map[string]string{"message": "Expense added"})
}

func (h *LedgerHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	expenses, err := h.service.ListExpenses(r.Context(), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, expenses)
}

type invalidateRequest struct {
	Kind cache.Kind `json:"kind" validate:"omitempty,oneof=loan line"`
}

// InvalidateCache marks the caller's cached views stale so the next read
// refetches them. An empty body invalidates every kind.
func (h *LedgerHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req invalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, r, customError.NewValidationError("", fmt.Sprintf("invalid request body: %v", err)))
		return
	}
	if err := validation.Struct(req); err != nil {
		h.writeError(w, r, err)
		return
	}

	n, err := h.service.InvalidateCache(r.Context(), p, req.Kind)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, map[string]int{"invalidated": n})
}
