package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentType string

const (
	PaymentTypeInterestOnly             PaymentType = "INTEREST_ONLY"
	PaymentTypeInterestPlusAmortization PaymentType = "INTEREST_PLUS_AMORTIZATION"
	PaymentTypeFullSettlement           PaymentType = "FULL_SETTLEMENT"
)

// Valid reports whether t is one of the three settlement modes
func (t PaymentType) Valid() bool {
	switch t {
	case PaymentTypeInterestOnly, PaymentTypeInterestPlusAmortization, PaymentTypeFullSettlement:
		return true
	}
	return false
}

// Payment is the append-only audit record of an accepted settlement
type Payment struct {
	ID                    uuid.UUID       `json:"id" db:"id"`
	LoanID                uuid.UUID       `json:"loan_id" db:"loan_id"`
	Amount                decimal.Decimal `json:"amount" db:"amount"`
	Type                  PaymentType     `json:"payment_type" db:"payment_type"`
	InterestComponent     decimal.Decimal `json:"interest_component" db:"interest_component"`
	AmortizationComponent decimal.Decimal `json:"amortization_component" db:"amortization_component"`
	PaymentDate           time.Time       `json:"payment_date" db:"payment_date"`
	RecordedBy            string          `json:"recorded_by" db:"recorded_by"`
	ProofURL              *string         `json:"proof_url,omitempty" db:"proof_url"`
	CreatedAt             time.Time       `json:"created_at" db:"created_at"`
}

func (Payment) TableName() string {
	return "payments"
}

// QuoteRequest carries the inputs of a settlement evaluation
type QuoteRequest struct {
	Type        PaymentType     `json:"payment_type" validate:"required,oneof=INTEREST_ONLY INTEREST_PLUS_AMORTIZATION FULL_SETTLEMENT"`
	Amount      decimal.Decimal `json:"amount" validate:"dgte0"`
	PaymentDate string          `json:"payment_date" validate:"required,datetime=2006-01-02"`
}

// MakePaymentRequest is a QuoteRequest that gets persisted. PaymentID is
// generated by the caller so retries of the same request settle at most once.
type MakePaymentRequest struct {
	QuoteRequest
	PaymentID *uuid.UUID `json:"payment_id,omitempty"`
	ProofURL  *string    `json:"proof_url,omitempty" validate:"omitempty,url"`
}

type QuoteResponse struct {
	LoanID                uuid.UUID        `json:"loan_id"`
	PaymentType           PaymentType      `json:"payment_type"`
	Accepted              bool             `json:"accepted"`
	InterestDue           decimal.Decimal  `json:"interest_due"`
	PayoffAmount          decimal.Decimal  `json:"payoff_amount"`
	Threshold             *decimal.Decimal `json:"threshold,omitempty"`
	Reason                string           `json:"reason,omitempty"`
	NewBalance            *decimal.Decimal `json:"new_balance,omitempty"`
	NewStatus             LoanStatus       `json:"new_status,omitempty"`
	NewReputation         Reputation       `json:"new_reputation,omitempty"`
	InterestComponent     *decimal.Decimal `json:"interest_component,omitempty"`
	AmortizationComponent *decimal.Decimal `json:"amortization_component,omitempty"`
}

// SettlementResult is what a persisted settlement returns. Replayed is true
// when the payment id had already been settled and nothing new was written.
type SettlementResult struct {
	Payment    *Payment   `json:"payment"`
	Loan       *Loan      `json:"loan"`
	Reputation Reputation `json:"reputation"`
	Replayed   bool       `json:"replayed"`
}
