package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/segyhp/loan-settlement/internal/auth"
	"github.com/segyhp/loan-settlement/internal/domain"
	"github.com/segyhp/loan-settlement/internal/mocks"
	"github.com/segyhp/loan-settlement/internal/service"
)

var (
	_ LoanService   = (*service.BillingService)(nil)
	_ LoanService   = (*mocks.MockBillingService)(nil)
	_ ClientService = (*service.ClientService)(nil)
	_ ClientService = (*mocks.MockClientService)(nil)
)

func newTestRouter(billing *mocks.MockBillingService, clients *mocks.MockClientService, authn *auth.Authenticator) http.Handler {
	log := zap.NewNop()
	return NewRouter(Handlers{
		Billing: NewBillingHandler(billing, log),
		Client:  NewClientHandler(clients, log),
		Health:  NewHealthHandler(nil, nil, time.Second, log),
	}, authn.Middleware, log)
}

func TestRouter_Authentication(t *testing.T) {
	authn := auth.NewAuthenticator("test-secret", "loan-settlement")
	billing := &mocks.MockBillingService{}
	router := newTestRouter(billing, &mocks.MockClientService{}, authn)

	t.Run("health is public", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("api requires a token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects a bad token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("actor reaches the service", func(t *testing.T) {
		token, err := authn.IssueToken("emp-7", domain.RoleEmployee, time.Hour)
		require.NoError(t, err)

		actor := domain.Actor{UserID: "emp-7", Role: domain.RoleEmployee}
		billing.On("Dashboard", mock.Anything, actor).Return(&domain.DashboardSummary{}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		billing.AssertExpectations(t)
	})
}

func TestRouter_Routes(t *testing.T) {
	authn := auth.NewAuthenticator("test-secret", "")
	billing := &mocks.MockBillingService{}
	clients := &mocks.MockClientService{}
	router := newTestRouter(billing, clients, authn)

	token, err := authn.IssueToken("admin-1", domain.RoleAdmin, time.Hour)
	require.NoError(t, err)
	admin := domain.Actor{UserID: "admin-1", Role: domain.RoleAdmin}

	loanID := uuid.New()
	clientID := uuid.New()
	billing.On("GetLoan", mock.Anything, admin, loanID).Return(&domain.Loan{ID: loanID}, nil)
	billing.On("ListPayments", mock.Anything, admin, loanID).Return([]*domain.Payment{}, nil)
	billing.On("ListLoans", mock.Anything, admin, mock.Anything).Return([]*domain.Loan{}, nil)
	clients.On("Get", mock.Anything, admin, clientID).Return(&domain.Client{ID: clientID}, nil)
	clients.On("List", mock.Anything, admin).Return([]*domain.Client{}, nil)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/api/v1/loans/" + loanID.String(), http.StatusOK},
		{http.MethodGet, "/api/v1/loans/" + loanID.String() + "/payments", http.StatusOK},
		{http.MethodGet, "/api/v1/loans", http.StatusOK},
		{http.MethodGet, "/api/v1/clients/" + clientID.String(), http.StatusOK},
		{http.MethodGet, "/api/v1/clients", http.StatusOK},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRouter_CORSHeaders(t *testing.T) {
	router := newTestRouter(&mocks.MockBillingService{}, &mocks.MockClientService{}, auth.NewAuthenticator("s", ""))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
