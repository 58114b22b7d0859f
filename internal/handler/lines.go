package handler

import (
	"net/http"

	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/internal/ledger"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
	"github.com/segyhp/loan-ledger/pkg/response"
)

func (h *LedgerHandler) ListLines(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	lines, err := h.service.ListLines(r.Context(), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, lines)
}

func (h *LedgerHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req domain.NewLineRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	lineID, err := h.service.AddLine(r.Context(), p, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Created(w, map[string]int64{"line_id": lineID})
}

// GetLineCustomers returns a line's categorized customers. ?tab= narrows the
// result to one category.
func (h *LedgerHandler) GetLineCustomers(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	lineID, err := pathID(r, "lineId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	tab, _, err := ledger.ParseTab(r.URL.Query().Get("tab"))
	if err != nil {
		h.writeError(w, r, customError.NewValidationError("tab", err.Error()))
		return
	}

	view, err := h.service.GetLineView(r.Context(), p, lineID, tab)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, view)
}
