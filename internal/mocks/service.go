package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/segyhp/loan-settlement/internal/domain"
)

type MockBillingService struct {
	mock.Mock
}

func (m *MockBillingService) CreateLoan(ctx context.Context, actor domain.Actor, request *domain.CreateLoanRequest) (*domain.Loan, error) {
	args := m.Called(ctx, actor, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockBillingService) GetLoan(ctx context.Context, actor domain.Actor, loanID uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, actor, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockBillingService) ListLoans(ctx context.Context, actor domain.Actor, filter domain.LoanFilter) ([]*domain.Loan, error) {
	args := m.Called(ctx, actor, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Loan), args.Error(1)
}

func (m *MockBillingService) GetOutstanding(ctx context.Context, actor domain.Actor, loanID uuid.UUID) (*domain.OutstandingResponse, error) {
	args := m.Called(ctx, actor, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OutstandingResponse), args.Error(1)
}

func (m *MockBillingService) Quote(ctx context.Context, actor domain.Actor, loanID uuid.UUID, request *domain.QuoteRequest) (*domain.QuoteResponse, error) {
	args := m.Called(ctx, actor, loanID, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QuoteResponse), args.Error(1)
}

func (m *MockBillingService) MakePayment(ctx context.Context, actor domain.Actor, loanID uuid.UUID, request *domain.MakePaymentRequest) (*domain.SettlementResult, error) {
	args := m.Called(ctx, actor, loanID, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SettlementResult), args.Error(1)
}

func (m *MockBillingService) ListPayments(ctx context.Context, actor domain.Actor, loanID uuid.UUID) ([]*domain.Payment, error) {
	args := m.Called(ctx, actor, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

func (m *MockBillingService) Dashboard(ctx context.Context, actor domain.Actor) (*domain.DashboardSummary, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DashboardSummary), args.Error(1)
}

type MockClientService struct {
	mock.Mock
}

func (m *MockClientService) Register(ctx context.Context, actor domain.Actor, request *domain.RegisterClientRequest, doc *domain.Document) (*domain.Client, error) {
	args := m.Called(ctx, actor, request, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Client), args.Error(1)
}

func (m *MockClientService) Get(ctx context.Context, actor domain.Actor, clientID uuid.UUID) (*domain.Client, error) {
	args := m.Called(ctx, actor, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Client), args.Error(1)
}

func (m *MockClientService) List(ctx context.Context, actor domain.Actor) ([]*domain.Client, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Client), args.Error(1)
}

func (m *MockClientService) AttachDocument(ctx context.Context, actor domain.Actor, clientID uuid.UUID, doc domain.Document) (*domain.Client, error) {
	args := m.Called(ctx, actor, clientID, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Client), args.Error(1)
}

func (m *MockClientService) UploadDocument(ctx context.Context, actor domain.Actor, doc domain.Document) (*domain.DocumentResponse, error) {
	args := m.Called(ctx, actor, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DocumentResponse), args.Error(1)
}
