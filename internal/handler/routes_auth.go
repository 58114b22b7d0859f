package handler

import (
	"net/http"

	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/pkg/response"
)

// Login exchanges credentials for lending api tokens.
func (h *LedgerHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	tokens, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, tokens)
}

func (h *LedgerHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req domain.SignupRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.service.Signup(r.Context(), req); err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Created(w, map[string]string{"message": "Account created"})
}
