package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/segyhp/loan-settlement/internal/auth"
	"github.com/segyhp/loan-settlement/internal/domain"
	"github.com/segyhp/loan-settlement/internal/mocks"
	"github.com/segyhp/loan-settlement/internal/settlement"
	customError "github.com/segyhp/loan-settlement/pkg/errors"
)

var testActor = domain.Actor{UserID: "emp-1", Role: domain.RoleEmployee}

// serve routes a single request through a mux router so path variables resolve
func serve(method, pattern, target string, body []byte, fn http.HandlerFunc, withActor bool) *httptest.ResponseRecorder {
	router := mux.NewRouter()
	router.HandleFunc(pattern, fn).Methods(method)

	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if withActor {
		req = req.WithContext(auth.WithActor(req.Context(), testActor))
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestBillingHandler_CreateLoan(t *testing.T) {
	clientID := uuid.New()

	t.Run("creates loan", func(t *testing.T) {
		svc := &mocks.MockBillingService{}
		h := NewBillingHandler(svc, zap.NewNop())

		loan := &domain.Loan{ID: uuid.New(), ClientID: clientID, Status: domain.LoanStatusPending}
		svc.On("CreateLoan", mock.Anything, testActor, mock.MatchedBy(func(r *domain.CreateLoanRequest) bool {
			return r.ClientID == clientID && r.Amount.Equal(decimal.NewFromInt(1000)) && r.DueDate == "2024-02-01"
		})).Return(loan, nil)

		body := []byte(`{"client_id":"` + clientID.String() + `","amount":1000,"interest_rate":30,"due_date":"2024-02-01"}`)
		rec := serve(http.MethodPost, "/loans", "/loans", body, h.CreateLoan, true)

		assert.Equal(t, http.StatusCreated, rec.Code)
		resp := decodeBody(t, rec)
		assert.Equal(t, true, resp["success"])
		svc.AssertExpectations(t)
	})

	t.Run("validation failure", func(t *testing.T) {
		svc := &mocks.MockBillingService{}
		h := NewBillingHandler(svc, zap.NewNop())

		body := []byte(`{"client_id":"` + clientID.String() + `","amount":0,"interest_rate":30,"due_date":"01/02/2024"}`)
		rec := serve(http.MethodPost, "/loans", "/loans", body, h.CreateLoan, true)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeBody(t, rec)
		assert.Contains(t, resp["message"], "amount")
		assert.Contains(t, resp["message"], "due_date must be formatted as YYYY-MM-DD")
		svc.AssertNotCalled(t, "CreateLoan", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("malformed body", func(t *testing.T) {
		svc := &mocks.MockBillingService{}
		h := NewBillingHandler(svc, zap.NewNop())

		rec := serve(http.MethodPost, "/loans", "/loans", []byte(`{`), h.CreateLoan, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing actor", func(t *testing.T) {
		svc := &mocks.MockBillingService{}
		h := NewBillingHandler(svc, zap.NewNop())

		rec := serve(http.MethodPost, "/loans", "/loans", []byte(`{}`), h.CreateLoan, false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown client", func(t *testing.T) {
		svc := &mocks.MockBillingService{}
		h := NewBillingHandler(svc, zap.NewNop())

		svc.On("CreateLoan", mock.Anything, testActor, mock.Anything).
			Return(nil, customError.WrapClientNotFound(clientID.String()))

		body := []byte(`{"client_id":"` + clientID.String() + `","amount":1000,"interest_rate":30,"due_date":"2024-02-01"}`)
		rec := serve(http.MethodPost, "/loans", "/loans", body, h.CreateLoan, true)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, customError.ErrCodeClientNotFound, decodeBody(t, rec)["code"])
	})
}

func TestBillingHandler_GetLoan(t *testing.T) {
	loanID := uuid.New()

	t.Run("found", func(t *testing.T) {
		svc := &mocks.MockBillingService{}
		h := NewBillingHandler(svc, zap.NewNop())
		svc.On("GetLoan", mock.Anything, testActor, loanID).Return(&domain.Loan{ID: loanID}, nil)

		rec := serve(http.MethodGet, "/loans/{loanId}", "/loans/"+loanID.String(), nil, h.GetLoan, true)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		svc := &mocks.MockBillingService{}
		h := NewBillingHandler(svc, zap.NewNop())
		svc.On("GetLoan", mock.Anything, testActor, loanID).Return(nil, customError.WrapLoanNotFound(loanID.String()))

		rec := serve(http.MethodGet, "/loans/{loanId}", "/loans/"+loanID.String(), nil, h.GetLoan, true)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, customError.ErrCodeLoanNotFound, decodeBody(t, rec)["code"])
	})

	t.Run("invalid id", func(t *testing.T) {
		svc := &mocks.MockBillingService{}
		h := NewBillingHandler(svc, zap.NewNop())

		rec := serve(http.MethodGet, "/loans/{loanId}", "/loans/not-a-uuid", nil, h.GetLoan, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("database failure is hidden", func(t *testing.T) {
		svc := &mocks.MockBillingService{}
		h := NewBillingHandler(svc, zap.NewNop())
		svc.On("GetLoan", mock.Anything, testActor, loanID).
			Return(nil, customError.WrapDatabaseError(assert.AnError))

		rec := serve(http.MethodGet, "/loans/{loanId}", "/loans/"+loanID.String(), nil, h.GetLoan, true)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
	})
}

func TestBillingHandler_ListLoans(t *testing.T) {
	t.Run("parses filters", func(t *testing.T) {
		svc := &mocks.MockBillingService{}
		h := NewBillingHandler(svc, zap.NewNop())

		from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
		svc.On("ListLoans", mock.Anything, testActor, mock.MatchedBy(func(f domain.LoanFilter) bool {
			return assert.ObjectsAreEqual([]domain.LoanStatus{domain.LoanStatusPending, domain.LoanStatusLate}, f.Statuses) &&
				f.DueFrom != nil && f.DueFrom.Equal(from) &&
				f.DueTo != nil && f.DueTo.Equal(to) &&
				f.Limit == 20
		})).Return([]*domain.Loan{}, nil)

		rec := serve(http.MethodGet, "/loans",
			"/loans?status=pending,LATE&due_from=2024-01-01&due_to=2024-01-31&limit=20", nil, h.ListLoans, true)

		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("repeated status params", func(t *testing.T) {
		svc := &mocks.MockBillingService{}
		h := NewBillingHandler(svc, zap.NewNop())

		svc.On("ListLoans", mock.Anything, testActor, mock.MatchedBy(func(f domain.LoanFilter) bool {
			return len(f.Statuses) == 2 && f.Statuses[1] == domain.LoanStatusPaid
		})).Return([]*domain.Loan{}, nil)

		rec := serve(http.MethodGet, "/loans", "/loans?status=LATE&status=PAID", nil, h.ListLoans, true)
		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	tests := []struct {
		name  string
		query string
	}{
		{"unknown status", "status=OVERDUE"},
		{"bad due_from", "due_from=2024/01/01"},
		{"bad due_to", "due_to=yesterday"},
		{"inverted range", "due_from=2024-02-01&due_to=2024-01-01"},
		{"bad limit", "limit=-3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mocks.MockBillingService{}
			h := NewBillingHandler(svc, zap.NewNop())

			rec := serve(http.MethodGet, "/loans", "/loans?"+tt.query, nil, h.ListLoans, true)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			svc.AssertNotCalled(t, "ListLoans", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestBillingHandler_Quote(t *testing.T) {
	loanID := uuid.New()

	svc := &mocks.MockBillingService{}
	h := NewBillingHandler(svc, zap.NewNop())

	threshold := decimal.NewFromInt(300)
	svc.On("Quote", mock.Anything, testActor, loanID, mock.MatchedBy(func(r *domain.QuoteRequest) bool {
		return r.Type == domain.PaymentTypeInterestOnly && r.Amount.Equal(decimal.NewFromInt(100))
	})).Return(&domain.QuoteResponse{
		LoanID:      loanID,
		PaymentType: domain.PaymentTypeInterestOnly,
		Accepted:    false,
		Threshold:   &threshold,
		Reason:      "amount below interest due",
	}, nil)

	body := []byte(`{"payment_type":"INTEREST_ONLY","amount":"100","payment_date":"2024-01-10"}`)
	rec := serve(http.MethodPost, "/loans/{loanId}/quote", "/loans/"+loanID.String()+"/quote", body, h.Quote, true)

	assert.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, false, data["accepted"])
	assert.Equal(t, "300", data["threshold"])
	svc.AssertExpectations(t)
}

func TestBillingHandler_MakePayment(t *testing.T) {
	loanID := uuid.New()
	paymentID := uuid.New()
	body := []byte(`{"payment_id":"` + paymentID.String() + `","payment_type":"INTEREST_PLUS_AMORTIZATION","amount":"800","payment_date":"2024-01-10"}`)
	path := "/loans/" + loanID.String() + "/payments"

	matchRequest := mock.MatchedBy(func(r *domain.MakePaymentRequest) bool {
		return r.PaymentID != nil && *r.PaymentID == paymentID &&
			r.Type == domain.PaymentTypeInterestPlusAmortization
	})

	t.Run("settles", func(t *testing.T) {
		svc := &mocks.MockBillingService{}
		h := NewBillingHandler(svc, zap.NewNop())
		svc.On("MakePayment", mock.Anything, testActor, loanID, matchRequest).Return(&domain.SettlementResult{
			Payment:    &domain.Payment{ID: paymentID, LoanID: loanID},
			Loan:       &domain.Loan{ID: loanID, Status: domain.LoanStatusPending},
			Reputation: domain.ReputationGood,
		}, nil)

		rec := serve(http.MethodPost, "/loans/{loanId}/payments", path, body, h.MakePayment, true)
		assert.Equal(t, http.StatusCreated, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("replay answers 200", func(t *testing.T) {
		svc := &mocks.MockBillingService{}
		h := NewBillingHandler(svc, zap.NewNop())
		svc.On("MakePayment", mock.Anything, testActor, loanID, matchRequest).Return(&domain.SettlementResult{
			Payment:  &domain.Payment{ID: paymentID, LoanID: loanID},
			Loan:     &domain.Loan{ID: loanID},
			Replayed: true,
		}, nil)

		rec := serve(http.MethodPost, "/loans/{loanId}/payments", path, body, h.MakePayment, true)
		assert.Equal(t, http.StatusOK, rec.Code)
		data := decodeBody(t, rec)["data"].(map[string]interface{})
		assert.Equal(t, true, data["replayed"])
	})

	t.Run("rejection carries threshold", func(t *testing.T) {
		svc := &mocks.MockBillingService{}
		h := NewBillingHandler(svc, zap.NewNop())
		rejection := &settlement.Rejection{
			Mode:      domain.PaymentTypeInterestPlusAmortization,
			Threshold: decimal.NewFromInt(300),
			Amount:    decimal.NewFromInt(200),
			Reason:    "amount must exceed interest due",
		}
		svc.On("MakePayment", mock.Anything, testActor, loanID, mock.Anything).
			Return(nil, customError.WrapPaymentRejected(rejection))

		rec := serve(http.MethodPost, "/loans/{loanId}/payments", path, body, h.MakePayment, true)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		resp := decodeBody(t, rec)
		assert.Equal(t, customError.ErrCodePaymentRejected, resp["code"])
		details := resp["data"].(map[string]interface{})
		assert.Equal(t, "INTEREST_PLUS_AMORTIZATION", details["payment_type"])
		assert.Equal(t, "300.00", details["threshold"])
		assert.Equal(t, "200.00", details["amount"])
	})

	t.Run("concurrent settlement", func(t *testing.T) {
		svc := &mocks.MockBillingService{}
		h := NewBillingHandler(svc, zap.NewNop())
		svc.On("MakePayment", mock.Anything, testActor, loanID, mock.Anything).
			Return(nil, customError.WrapSettlementInProgress(paymentID.String()))

		rec := serve(http.MethodPost, "/loans/{loanId}/payments", path, body, h.MakePayment, true)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("already paid", func(t *testing.T) {
		svc := &mocks.MockBillingService{}
		h := NewBillingHandler(svc, zap.NewNop())
		svc.On("MakePayment", mock.Anything, testActor, loanID, mock.Anything).
			Return(nil, customError.WrapLoanAlreadyPaid(loanID.String()))

		rec := serve(http.MethodPost, "/loans/{loanId}/payments", path, body, h.MakePayment, true)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, customError.ErrCodeLoanAlreadyPaid, decodeBody(t, rec)["code"])
	})

	t.Run("unknown payment type", func(t *testing.T) {
		svc := &mocks.MockBillingService{}
		h := NewBillingHandler(svc, zap.NewNop())

		bad := []byte(`{"payment_type":"PARTIAL","amount":"800","payment_date":"2024-01-10"}`)
		rec := serve(http.MethodPost, "/loans/{loanId}/payments", path, bad, h.MakePayment, true)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.True(t, strings.Contains(decodeBody(t, rec)["message"].(string), "payment_type must be one of"))
	})
}

func TestBillingHandler_OutstandingPaymentsDashboard(t *testing.T) {
	loanID := uuid.New()
	svc := &mocks.MockBillingService{}
	h := NewBillingHandler(svc, zap.NewNop())

	svc.On("GetOutstanding", mock.Anything, testActor, loanID).Return(&domain.OutstandingResponse{
		LoanID:       loanID,
		InterestDue:  decimal.NewFromInt(300),
		PayoffAmount: decimal.NewFromInt(1300),
	}, nil)
	svc.On("ListPayments", mock.Anything, testActor, loanID).Return([]*domain.Payment{{ID: uuid.New(), LoanID: loanID}}, nil)
	svc.On("Dashboard", mock.Anything, testActor).Return(&domain.DashboardSummary{ContractCount: 2}, nil)

	rec := serve(http.MethodGet, "/loans/{loanId}/outstanding", "/loans/"+loanID.String()+"/outstanding", nil, h.GetOutstanding, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1300", decodeBody(t, rec)["data"].(map[string]interface{})["payoff_amount"])

	rec = serve(http.MethodGet, "/loans/{loanId}/payments", "/loans/"+loanID.String()+"/payments", nil, h.ListPayments, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["data"], 1)

	rec = serve(http.MethodGet, "/dashboard", "/dashboard", nil, h.Dashboard, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decodeBody(t, rec)["data"].(map[string]interface{})["contract_count"])

	svc.AssertExpectations(t)
}
