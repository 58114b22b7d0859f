package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/loan-ledger/internal/auth"
	"github.com/segyhp/loan-ledger/pkg/response"
)

// NewRouter wires every route. Everything under /api/v1 except login and
// signup requires a lending api access token.
func NewRouter(
	ledgerHandler *LedgerHandler,
	healthHandler *HealthHandler,
	verifier *auth.Verifier,
	logger *logrus.Logger,
	allowedOrigins []string,
) http.Handler {
	router := mux.NewRouter()

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(response.JSONMiddleware)

	api.HandleFunc("/auth/login", ledgerHandler.Login).Methods("POST")
	api.HandleFunc("/auth/signup", ledgerHandler.Signup).Methods("POST")

	secured := api.NewRoute().Subrouter()
	secured.Use(auth.Middleware(verifier, logger))

	secured.HandleFunc("/lines", ledgerHandler.ListLines).Methods("GET")
	secured.HandleFunc("/lines", ledgerHandler.AddLine).Methods("POST")
	secured.HandleFunc("/lines/{lineId}/customers", ledgerHandler.GetLineCustomers).Methods("GET")

	secured.HandleFunc("/customers", ledgerHandler.AddCustomer).Methods("POST")
	secured.HandleFunc("/customers/{customerId}", ledgerHandler.GetCustomer).Methods("GET")
	secured.HandleFunc("/customers/{customerId}", ledgerHandler.DeleteCustomer).Methods("DELETE")
	secured.HandleFunc("/customers/{customerId}/missing", ledgerHandler.ToggleMissingCustomer).Methods("POST")

	secured.HandleFunc("/loans", ledgerHandler.AddLoan).Methods("POST")
	secured.HandleFunc("/loans/{loanId}", ledgerHandler.GetLoan).Methods("GET")
	secured.HandleFunc("/loans/{loanId}", ledgerHandler.DeleteLoan).Methods("DELETE")
	secured.HandleFunc("/loans/{loanId}/repayments", ledgerHandler.MarkRepayment).Methods("POST")

	secured.HandleFunc("/expenses", ledgerHandler.AddExpense).Methods("POST")
	secured.HandleFunc("/expenses", ledgerHandler.ListExpenses).Methods("GET")

	secured.HandleFunc("/cache/invalidate", ledgerHandler.InvalidateCache).Methods("POST")

	// CORS and logging wrap the router so preflights and unmatched routes
	// are handled too.
	var h http.Handler = router
	h = response.CORSMiddleware(allowedOrigins)(h)
	h = response.LoggingMiddleware(logger)(h)
	h = response.RequestIDMiddleware(h)
	return h
}
