package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/segyhp/loan-settlement/pkg/response"
)

// Handlers groups everything the router mounts
type Handlers struct {
	Billing *BillingHandler
	Client  *ClientHandler
	Health  *HealthHandler
}

// NewRouter mounts the public health checks and the authenticated /api/v1 routes
func NewRouter(h Handlers, authenticate mux.MiddlewareFunc, log *zap.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware(log))
	router.Use(response.CORSMiddleware)

	// Health check
	router.HandleFunc("/health", h.Health.Health).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", h.Health.Ready).Methods(http.MethodGet)

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(authenticate)

	api.HandleFunc("/clients", h.Client.Register).Methods(http.MethodPost)
	api.HandleFunc("/clients", h.Client.List).Methods(http.MethodGet)
	api.HandleFunc("/clients/{clientId}", h.Client.Get).Methods(http.MethodGet)
	api.HandleFunc("/clients/{clientId}/documents", h.Client.AttachDocument).Methods(http.MethodPost)
	api.HandleFunc("/documents", h.Client.UploadDocument).Methods(http.MethodPost)

	api.HandleFunc("/loans", h.Billing.CreateLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans", h.Billing.ListLoans).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}", h.Billing.GetLoan).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}/outstanding", h.Billing.GetOutstanding).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}/quote", h.Billing.Quote).Methods(http.MethodPost)
	api.HandleFunc("/loans/{loanId}/payments", h.Billing.MakePayment).Methods(http.MethodPost)
	api.HandleFunc("/loans/{loanId}/payments", h.Billing.ListPayments).Methods(http.MethodGet)

	api.HandleFunc("/dashboard", h.Billing.Dashboard).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "route not found")
	})

	return router
}
