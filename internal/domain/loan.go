package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoanStatus is owned by the settlement package; nothing else decides it.
type LoanStatus string

const (
	LoanStatusPending LoanStatus = "PENDING"
	LoanStatusLate    LoanStatus = "LATE"
	LoanStatusPaid    LoanStatus = "PAID"
)

// Valid reports whether s is a known loan status
func (s LoanStatus) Valid() bool {
	switch s {
	case LoanStatusPending, LoanStatusLate, LoanStatusPaid:
		return true
	}
	return false
}

// Loan represents a single-principal, single-rate, single-due-date contract
type Loan struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	ClientID         uuid.UUID       `json:"client_id" db:"client_id"`
	Amount           decimal.Decimal `json:"amount" db:"amount"`
	RemainingBalance decimal.Decimal `json:"remaining_balance" db:"remaining_balance"`
	InterestRate     decimal.Decimal `json:"interest_rate" db:"interest_rate"`
	DueDate          time.Time       `json:"due_date" db:"due_date"`
	Status           LoanStatus      `json:"status" db:"status"`
	OwnerID          string          `json:"owner_id" db:"owner_id"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// LoanWithClient is a loan joined with the contact fields the reminder job needs.
// Client columns are nullable because the join is a LEFT JOIN.
type LoanWithClient struct {
	Loan
	ClientName  *string `json:"client_name" db:"client_name"`
	ClientPhone *string `json:"client_phone" db:"client_phone"`
}

// LoanFilter narrows loan listings. Zero values mean "no constraint".
type LoanFilter struct {
	Statuses []LoanStatus
	DueFrom  *time.Time
	DueTo    *time.Time
	OwnerID  string
	Limit    int
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	ClientID     uuid.UUID       `json:"client_id" validate:"required"`
	Amount       decimal.Decimal `json:"amount" validate:"dgt0"`
	InterestRate decimal.Decimal `json:"interest_rate" validate:"dgte0"`
	DueDate      string          `json:"due_date" validate:"required,datetime=2006-01-02"`
}

type OutstandingResponse struct {
	LoanID           uuid.UUID       `json:"loan_id"`
	Status           LoanStatus      `json:"status"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	InterestDue      decimal.Decimal `json:"interest_due"`
	PayoffAmount     decimal.Decimal `json:"payoff_amount"`
	DueDate          time.Time       `json:"due_date"`
}

type DashboardSummary struct {
	TotalLent            decimal.Decimal `json:"total_lent"`
	ExpectedReturn       decimal.Decimal `json:"expected_return"`
	OutstandingPrincipal decimal.Decimal `json:"outstanding_principal"`
	ContractCount        int             `json:"contract_count"`
	ActiveCount          int             `json:"active_count"`
	LateCount            int             `json:"late_count"`
	RecentLoans          []*Loan         `json:"recent_loans"`
}
