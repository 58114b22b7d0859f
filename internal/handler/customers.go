package handler

import (
	"net/http"

	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/pkg/response"
)

func (h *LedgerHandler) AddCustomer(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req domain.NewCustomerRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	customerID, err := h.service.AddCustomer(r.Context(), p, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Created(w, map[string]int64{"customer_id": customerID})
}

func (h *LedgerHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	customerID, err := pathID(r, "customerId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	customer, err := h.service.GetCustomer(r.Context(), p, customerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, customer)
}

func (h *LedgerHandler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	customerID, err := pathID(r, "customerId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.service.DeleteCustomer(r.Context(), p, customerID); err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, map[string]int64{"customer_id": customerID})
}

// ToggleMissingCustomer flips whether a customer is marked missing.
func (h *LedgerHandler) ToggleMissingCustomer(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	customerID, err := pathID(r, "customerId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	missing, err := h.service.ToggleMissingCustomer(r.Context(), p, customerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, map[string]interface{}{
		"customer_id":         customerID,
		"is_missing_customer": missing,
	})
}
