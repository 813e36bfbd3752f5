package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/segyhp/loan-settlement/internal/auth"
	"github.com/segyhp/loan-settlement/internal/domain"
	"github.com/segyhp/loan-settlement/pkg/response"
	"github.com/segyhp/loan-settlement/pkg/utils"
)

// LoanService is the loan and settlement surface the API exposes
type LoanService interface {
	CreateLoan(ctx context.Context, actor domain.Actor, request *domain.CreateLoanRequest) (*domain.Loan, error)
	GetLoan(ctx context.Context, actor domain.Actor, loanID uuid.UUID) (*domain.Loan, error)
	ListLoans(ctx context.Context, actor domain.Actor, filter domain.LoanFilter) ([]*domain.Loan, error)
	GetOutstanding(ctx context.Context, actor domain.Actor, loanID uuid.UUID) (*domain.OutstandingResponse, error)
	Quote(ctx context.Context, actor domain.Actor, loanID uuid.UUID, request *domain.QuoteRequest) (*domain.QuoteResponse, error)
	MakePayment(ctx context.Context, actor domain.Actor, loanID uuid.UUID, request *domain.MakePaymentRequest) (*domain.SettlementResult, error)
	ListPayments(ctx context.Context, actor domain.Actor, loanID uuid.UUID) ([]*domain.Payment, error)
	Dashboard(ctx context.Context, actor domain.Actor) (*domain.DashboardSummary, error)
}

type BillingHandler struct {
	service   LoanService
	validator *validator.Validate
	log       *zap.Logger
}

func NewBillingHandler(service LoanService, log *zap.Logger) *BillingHandler {
	return &BillingHandler{
		service:   service,
		validator: NewValidator(),
		log:       log,
	}
}

// CreateLoan handles POST /loans
func (h *BillingHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var request domain.CreateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}
	if err := h.validator.Struct(request); err != nil {
		response.BadRequest(w, validationMessage(err), nil)
		return
	}

	loan, err := h.service.CreateLoan(r.Context(), actor, &request)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	response.Created(w, loan)
}

// ListLoans handles GET /loans?status=PENDING,LATE&due_from=2024-01-01&due_to=2024-01-31&limit=50
func (h *BillingHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	filter, err := parseLoanFilter(r)
	if err != nil {
		response.BadRequest(w, err.Error(), nil)
		return
	}

	loans, err := h.service.ListLoans(r.Context(), actor, filter)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	response.Success(w, loans)
}

// GetLoan handles GET /loans/{loanId}
func (h *BillingHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	actor, loanID, ok := h.loanRequest(w, r)
	if !ok {
		return
	}

	loan, err := h.service.GetLoan(r.Context(), actor, loanID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	response.Success(w, loan)
}

// GetOutstanding handles GET /loans/{loanId}/outstanding
func (h *BillingHandler) GetOutstanding(w http.ResponseWriter, r *http.Request) {
	actor, loanID, ok := h.loanRequest(w, r)
	if !ok {
		return
	}

	outstanding, err := h.service.GetOutstanding(r.Context(), actor, loanID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	response.Success(w, outstanding)
}

// Quote handles POST /loans/{loanId}/quote
func (h *BillingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	actor, loanID, ok := h.loanRequest(w, r)
	if !ok {
		return
	}

	var request domain.QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}
	if err := h.validator.Struct(request); err != nil {
		response.BadRequest(w, validationMessage(err), nil)
		return
	}

	quote, err := h.service.Quote(r.Context(), actor, loanID, &request)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	response.Success(w, quote)
}

// MakePayment handles POST /loans/{loanId}/payments. A replayed payment id
// answers 200 with the original settlement instead of 201.
func (h *BillingHandler) MakePayment(w http.ResponseWriter, r *http.Request) {
	actor, loanID, ok := h.loanRequest(w, r)
	if !ok {
		return
	}

	var request domain.MakePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}
	if err := h.validator.Struct(request); err != nil {
		response.BadRequest(w, validationMessage(err), nil)
		return
	}

	result, err := h.service.MakePayment(r.Context(), actor, loanID, &request)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	if result.Replayed {
		response.Success(w, result)
		return
	}
	response.Created(w, result)
}

// ListPayments handles GET /loans/{loanId}/payments
func (h *BillingHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	actor, loanID, ok := h.loanRequest(w, r)
	if !ok {
		return
	}

	payments, err := h.service.ListPayments(r.Context(), actor, loanID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	response.Success(w, payments)
}

// Dashboard handles GET /dashboard
func (h *BillingHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	summary, err := h.service.Dashboard(r.Context(), actor)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	response.Success(w, summary)
}

func (h *BillingHandler) loanRequest(w http.ResponseWriter, r *http.Request) (domain.Actor, uuid.UUID, bool) {
	actor, ok := requireActor(w, r)
	if !ok {
		return domain.Actor{}, uuid.Nil, false
	}

	loanID, err := uuid.Parse(mux.Vars(r)["loanId"])
	if err != nil {
		response.BadRequest(w, "loanId must be a UUID", nil)
		return domain.Actor{}, uuid.Nil, false
	}

	return actor, loanID, true
}

func requireActor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "authentication required")
	}
	return actor, ok
}

type filterError string

func (e filterError) Error() string { return string(e) }

func parseLoanFilter(r *http.Request) (domain.LoanFilter, error) {
	var filter domain.LoanFilter
	query := r.URL.Query()

	for _, raw := range query["status"] {
		for _, s := range strings.Split(raw, ",") {
			status := domain.LoanStatus(strings.ToUpper(strings.TrimSpace(s)))
			if status == "" {
				continue
			}
			if !status.Valid() {
				return filter, filterError("status must be PENDING, LATE or PAID")
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}

	if raw := query.Get("due_from"); raw != "" {
		from, err := utils.ParseDate(raw)
		if err != nil {
			return filter, filterError("due_from must be formatted as YYYY-MM-DD")
		}
		filter.DueFrom = &from
	}
	if raw := query.Get("due_to"); raw != "" {
		to, err := utils.ParseDate(raw)
		if err != nil {
			return filter, filterError("due_to must be formatted as YYYY-MM-DD")
		}
		filter.DueTo = &to
	}
	if filter.DueFrom != nil && filter.DueTo != nil && filter.DueTo.Before(*filter.DueFrom) {
		return filter, filterError("due_to must not be before due_from")
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return filter, filterError("limit must be a positive integer")
		}
		filter.Limit = limit
	}

	return filter, nil
}
