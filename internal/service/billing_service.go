package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/segyhp/loan-settlement/internal/cache"
	"github.com/segyhp/loan-settlement/internal/config"
	"github.com/segyhp/loan-settlement/internal/domain"
	"github.com/segyhp/loan-settlement/internal/repository"
	"github.com/segyhp/loan-settlement/internal/settlement"
	customError "github.com/segyhp/loan-settlement/pkg/errors"
	"github.com/segyhp/loan-settlement/pkg/utils"
)

const recentLoansLimit = 10

type BillingService struct {
	uow      repository.UnitOfWork
	loans    repository.LoanRepository
	payments repository.PaymentRepository
	clients  repository.ClientRepository
	lock     cache.SettlementLock
	config   config.BusinessConfig
	log      *zap.Logger
	now      func() time.Time
}

// NewBillingService wires the loan and settlement operations. lock may be nil,
// in which case idempotency rests on the payment id primary key alone.
func NewBillingService(
	uow repository.UnitOfWork,
	loans repository.LoanRepository,
	payments repository.PaymentRepository,
	clients repository.ClientRepository,
	lock cache.SettlementLock,
	cfg config.BusinessConfig,
	log *zap.Logger,
) *BillingService {
	return &BillingService{
		uow:      uow,
		loans:    loans,
		payments: payments,
		clients:  clients,
		lock:     lock,
		config:   cfg,
		log:      log,
		now:      time.Now,
	}
}

// CreateLoan issues a contract for a client the actor can see
func (s *BillingService) CreateLoan(ctx context.Context, actor domain.Actor, request *domain.CreateLoanRequest) (*domain.Loan, error) {
	if !request.Amount.IsPositive() {
		return nil, customError.WrapInvalidInput("amount must be greater than zero")
	}
	if request.InterestRate.IsNegative() {
		return nil, customError.WrapInvalidInput("interest_rate cannot be negative")
	}
	dueDate, err := utils.ParseDate(request.DueDate)
	if err != nil {
		return nil, customError.WrapInvalidInput("due_date must be formatted as YYYY-MM-DD")
	}

	client, err := s.clients.GetByID(ctx, request.ClientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapClientNotFound(request.ClientID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}
	if !visible(actor, client.OwnerID) {
		return nil, customError.WrapClientNotFound(request.ClientID.String())
	}

	now := s.now()
	loan := &domain.Loan{
		ID:               uuid.New(),
		ClientID:         client.ID,
		Amount:           request.Amount,
		RemainingBalance: request.Amount,
		InterestRate:     request.InterestRate,
		DueDate:          dueDate,
		Status:           domain.LoanStatusPending,
		OwnerID:          actor.UserID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.loans.Create(ctx, loan); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.log.Info("Loan issued",
		zap.String("loan_id", loan.ID.String()),
		zap.String("client_id", client.ID.String()),
		zap.String("amount", loan.Amount.StringFixed(2)),
	)

	return loan, nil
}

func (s *BillingService) GetLoan(ctx context.Context, actor domain.Actor, loanID uuid.UUID) (*domain.Loan, error) {
	return loadVisibleLoan(ctx, s.loans.GetByID, actor, loanID)
}

// ListLoans applies the actor's ownership scope on top of filter
func (s *BillingService) ListLoans(ctx context.Context, actor domain.Actor, filter domain.LoanFilter) ([]*domain.Loan, error) {
	filter.OwnerID = actor.OwnerScope()

	loans, err := s.loans.List(ctx, filter)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return loans, nil
}

// GetOutstanding returns what each settlement mode would cost today
func (s *BillingService) GetOutstanding(ctx context.Context, actor domain.Actor, loanID uuid.UUID) (*domain.OutstandingResponse, error) {
	loan, err := s.GetLoan(ctx, actor, loanID)
	if err != nil {
		return nil, err
	}

	return &domain.OutstandingResponse{
		LoanID:           loan.ID,
		Status:           loan.Status,
		RemainingBalance: loan.RemainingBalance,
		InterestDue:      settlement.InterestDue(loan),
		PayoffAmount:     settlement.PayoffAmount(loan),
		DueDate:          loan.DueDate,
	}, nil
}

// Quote evaluates a payment without persisting anything. A rejection is a
// successful quote with Accepted=false.
func (s *BillingService) Quote(ctx context.Context, actor domain.Actor, loanID uuid.UUID, request *domain.QuoteRequest) (*domain.QuoteResponse, error) {
	paymentDate, err := parsePaymentDate(request)
	if err != nil {
		return nil, err
	}

	loan, err := s.GetLoan(ctx, actor, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status == domain.LoanStatusPaid {
		return nil, customError.WrapLoanAlreadyPaid(loanID.String())
	}

	quote := &domain.QuoteResponse{
		LoanID:       loan.ID,
		PaymentType:  request.Type,
		InterestDue:  settlement.InterestDue(loan),
		PayoffAmount: settlement.PayoffAmount(loan),
	}

	outcome, err := settlement.Evaluate(loan, request.Type, request.Amount, paymentDate)
	var rejection *settlement.Rejection
	switch {
	case errors.As(err, &rejection):
		quote.Threshold = &rejection.Threshold
		quote.Reason = rejection.Reason
		return quote, nil
	case err != nil:
		return nil, customError.WrapInvalidInput(err.Error())
	}

	quote.Accepted = true
	quote.NewBalance = &outcome.NewBalance
	quote.NewStatus = outcome.NewStatus
	quote.NewReputation = outcome.NewReputation
	quote.InterestComponent = &outcome.InterestComponent
	quote.AmortizationComponent = &outcome.AmortizationComponent

	return quote, nil
}

// MakePayment settles a payment against a loan. The loan update, reputation
// update and payment insert commit together. Replaying a payment id that
// already settled returns the stored result with Replayed=true.
func (s *BillingService) MakePayment(ctx context.Context, actor domain.Actor, loanID uuid.UUID, request *domain.MakePaymentRequest) (*domain.SettlementResult, error) {
	paymentDate, err := parsePaymentDate(&request.QuoteRequest)
	if err != nil {
		return nil, err
	}

	paymentID := uuid.New()
	if request.PaymentID != nil && *request.PaymentID != uuid.Nil {
		paymentID = *request.PaymentID
	}

	if s.lock != nil {
		release, ok, err := s.lock.Acquire(ctx, paymentID)
		switch {
		case err != nil:
			s.log.Warn("Settlement lock unavailable, relying on payment id uniqueness",
				zap.String("payment_id", paymentID.String()),
				zap.Error(err),
			)
		case !ok:
			return nil, customError.WrapSettlementInProgress(paymentID.String())
		default:
			defer func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					s.log.Warn("Failed to release settlement lock",
						zap.String("payment_id", paymentID.String()),
						zap.Error(err),
					)
				}
			}()
		}
	}

	var result *domain.SettlementResult
	err = s.withRetry(ctx, func() error {
		var err error
		result, err = s.settle(ctx, actor, loanID, paymentID, paymentDate, request)
		return err
	})
	if err != nil {
		return nil, err
	}

	if result.Replayed {
		s.log.Info("Settlement replayed",
			zap.String("payment_id", paymentID.String()),
			zap.String("loan_id", loanID.String()),
		)
	} else {
		s.log.Info("Payment settled",
			zap.String("payment_id", paymentID.String()),
			zap.String("loan_id", loanID.String()),
			zap.String("payment_type", string(request.Type)),
			zap.String("amount", request.Amount.StringFixed(2)),
			zap.String("new_balance", result.Loan.RemainingBalance.StringFixed(2)),
			zap.String("status", string(result.Loan.Status)),
			zap.String("reputation", string(result.Reputation)),
		)
	}

	return result, nil
}

func (s *BillingService) settle(
	ctx context.Context,
	actor domain.Actor,
	loanID, paymentID uuid.UUID,
	paymentDate time.Time,
	request *domain.MakePaymentRequest,
) (*domain.SettlementResult, error) {
	var result *domain.SettlementResult

	err := s.uow.WithinTx(ctx, func(r repository.Repos) error {
		existing, err := r.Payments.GetByID(ctx, paymentID)
		switch {
		case err == nil:
			result, err = replay(ctx, r, actor, loanID, existing)
			return err
		case !errors.Is(err, sql.ErrNoRows):
			return customError.WrapDatabaseError(err)
		}

		loan, err := loadVisibleLoan(ctx, r.Loans.GetByIDForUpdate, actor, loanID)
		if err != nil {
			return err
		}
		if loan.Status == domain.LoanStatusPaid {
			return customError.WrapLoanAlreadyPaid(loanID.String())
		}

		outcome, err := settlement.Evaluate(loan, request.Type, request.Amount, paymentDate)
		if err != nil {
			var rejection *settlement.Rejection
			if errors.As(err, &rejection) {
				return customError.WrapPaymentRejected(rejection)
			}
			return customError.WrapInvalidInput(err.Error())
		}

		updated := outcome.ApplyTo(*loan)
		if err := r.Loans.UpdateState(ctx, &updated); err != nil {
			return customError.WrapDatabaseError(err)
		}

		if err := r.Clients.UpdateReputation(ctx, loan.ClientID, outcome.NewReputation); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapClientNotFound(loan.ClientID.String())
			}
			return customError.WrapDatabaseError(err)
		}

		payment := &domain.Payment{
			ID:                    paymentID,
			LoanID:                loan.ID,
			Amount:                request.Amount,
			Type:                  outcome.PaymentType,
			InterestComponent:     outcome.InterestComponent,
			AmortizationComponent: outcome.AmortizationComponent,
			PaymentDate:           paymentDate,
			RecordedBy:            actor.UserID,
			ProofURL:              request.ProofURL,
			CreatedAt:             s.now(),
		}
		if err := r.Payments.Create(ctx, payment); err != nil {
			return customError.WrapDatabaseError(err)
		}

		result = &domain.SettlementResult{
			Payment:    payment,
			Loan:       &updated,
			Reputation: outcome.NewReputation,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func replay(ctx context.Context, r repository.Repos, actor domain.Actor, loanID uuid.UUID, existing *domain.Payment) (*domain.SettlementResult, error) {
	if existing.LoanID != loanID {
		return nil, customError.WrapInvalidInput("payment_id was already used for a different loan")
	}

	loan, err := loadVisibleLoan(ctx, r.Loans.GetByID, actor, loanID)
	if err != nil {
		return nil, err
	}

	client, err := r.Clients.GetByID(ctx, loan.ClientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapClientNotFound(loan.ClientID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}

	return &domain.SettlementResult{
		Payment:    existing,
		Loan:       loan,
		Reputation: client.Reputation,
		Replayed:   true,
	}, nil
}

// withRetry reruns fn on technical store failures only. Business errors and
// rejections are returned on the first attempt.
func (s *BillingService) withRetry(ctx context.Context, fn func() error) error {
	attempts := s.config.SettlementRetries
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil || customError.Code(err) != customError.ErrCodeDatabaseError || attempt == attempts {
			return err
		}

		s.log.Warn("Settlement attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return customError.WrapDatabaseError(ctx.Err())
		case <-time.After(s.config.RetryBackoff * time.Duration(attempt)):
		}
	}

	return err
}

// ListPayments returns the loan's payments, latest payment date first
func (s *BillingService) ListPayments(ctx context.Context, actor domain.Actor, loanID uuid.UUID) ([]*domain.Payment, error) {
	if _, err := s.GetLoan(ctx, actor, loanID); err != nil {
		return nil, err
	}

	payments, err := s.payments.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return payments, nil
}

// Dashboard aggregates the loans visible to actor
func (s *BillingService) Dashboard(ctx context.Context, actor domain.Actor) (*domain.DashboardSummary, error) {
	loans, err := s.loans.List(ctx, domain.LoanFilter{OwnerID: actor.OwnerScope()})
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	summary := &domain.DashboardSummary{
		TotalLent:            decimal.Zero,
		ExpectedReturn:       decimal.Zero,
		OutstandingPrincipal: decimal.Zero,
		ContractCount:        len(loans),
		RecentLoans:          []*domain.Loan{},
	}

	for _, loan := range loans {
		summary.TotalLent = summary.TotalLent.Add(loan.Amount)
		summary.ExpectedReturn = summary.ExpectedReturn.Add(utils.ExpectedReturn(loan.Amount, loan.InterestRate))
		summary.OutstandingPrincipal = summary.OutstandingPrincipal.Add(loan.RemainingBalance)

		if loan.Status != domain.LoanStatusPaid {
			summary.ActiveCount++
		}
		if loan.Status == domain.LoanStatusLate {
			summary.LateCount++
		}
	}

	summary.TotalLent = utils.RoundMoney(summary.TotalLent)
	summary.ExpectedReturn = utils.RoundMoney(summary.ExpectedReturn)
	summary.OutstandingPrincipal = utils.RoundMoney(summary.OutstandingPrincipal)

	// List is newest first
	if len(loans) > recentLoansLimit {
		summary.RecentLoans = loans[:recentLoansLimit]
	} else {
		summary.RecentLoans = append(summary.RecentLoans, loans...)
	}

	return summary, nil
}

type loanGetter func(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

// loadVisibleLoan hides loans the actor does not own behind LOAN_NOT_FOUND
func loadVisibleLoan(ctx context.Context, get loanGetter, actor domain.Actor, loanID uuid.UUID) (*domain.Loan, error) {
	loan, err := get(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}
	if !visible(actor, loan.OwnerID) {
		return nil, customError.WrapLoanNotFound(loanID.String())
	}
	return loan, nil
}

func visible(actor domain.Actor, ownerID string) bool {
	return actor.IsAdmin() || actor.UserID == ownerID
}

func parsePaymentDate(request *domain.QuoteRequest) (time.Time, error) {
	if !request.Type.Valid() {
		return time.Time{}, customError.WrapInvalidInput("payment_type must be INTEREST_ONLY, INTEREST_PLUS_AMORTIZATION or FULL_SETTLEMENT")
	}
	if request.Amount.IsNegative() {
		return time.Time{}, customError.WrapInvalidInput("amount cannot be negative")
	}
	paymentDate, err := utils.ParseDate(request.PaymentDate)
	if err != nil {
		return time.Time{}, customError.WrapInvalidInput("payment_date must be formatted as YYYY-MM-DD")
	}
	return paymentDate, nil
}
