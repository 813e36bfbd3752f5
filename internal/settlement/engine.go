// Package settlement decides whether a proposed payment settles a loan and
// computes the resulting loan and client state. It has no side effects:
// callers persist the Outcome.
package settlement

import (
	"errors"
	"fmt"
	"time"

	"github.com/segyhp/loan-settlement/internal/domain"
	"github.com/segyhp/loan-settlement/pkg/utils"

	"github.com/shopspring/decimal"
)

// Absolute currency tolerances. They mirror the amounts operators have always
// been allowed to be short by; keep them literal until product says otherwise.
var (
	InterestOnlyTolerance = decimal.RequireFromString("0.1")
	PayoffTolerance       = decimal.RequireFromString("1.0")
	PaidThreshold         = decimal.RequireFromString("0.5")
)

// ErrMalformedInput is returned for inputs that never reach the rules:
// missing amounts, negative values, unknown modes.
var ErrMalformedInput = errors.New("malformed settlement input")

// Outcome is an accepted settlement: the state the caller must persist.
type Outcome struct {
	PaymentType           domain.PaymentType
	InterestDue           decimal.Decimal
	PayoffAmount          decimal.Decimal
	NewBalance            decimal.Decimal
	NewStatus             domain.LoanStatus
	NewReputation         domain.Reputation
	InterestComponent     decimal.Decimal
	AmortizationComponent decimal.Decimal
}

// Rejection is an expected verdict, not a fault. Threshold is the amount the
// proposed payment failed to meet.
type Rejection struct {
	Mode      domain.PaymentType
	Threshold decimal.Decimal
	Amount    decimal.Decimal
	Reason    string
}

func (r *Rejection) Error() string {
	return r.Reason
}

// InterestDue is the flat interest charged on every settlement event:
// original principal times rate, never prorated by elapsed time.
func InterestDue(loan *domain.Loan) decimal.Decimal {
	return utils.FlatInterest(loan.Amount, loan.InterestRate)
}

// PayoffAmount is what a full settlement costs right now
func PayoffAmount(loan *domain.Loan) decimal.Decimal {
	return loan.RemainingBalance.Add(InterestDue(loan))
}

// Evaluate validates amount against mode for loan and returns the resulting
// state. A *Rejection error means the business rule was not met; an error
// wrapping ErrMalformedInput means the inputs themselves were unusable.
func Evaluate(loan *domain.Loan, mode domain.PaymentType, amount decimal.Decimal, paymentDate time.Time) (*Outcome, error) {
	if err := validateInput(loan, mode, amount, paymentDate); err != nil {
		return nil, err
	}

	interest := InterestDue(loan)
	payoff := loan.RemainingBalance.Add(interest)

	out := &Outcome{
		PaymentType:   mode,
		InterestDue:   interest,
		PayoffAmount:  payoff,
		NewReputation: reputationFor(paymentDate, loan.DueDate),
	}

	switch mode {
	case domain.PaymentTypeInterestOnly:
		if amount.LessThan(interest.Sub(InterestOnlyTolerance)) {
			return nil, &Rejection{
				Mode:      mode,
				Threshold: interest,
				Amount:    amount,
				Reason: fmt.Sprintf("interest-only payment of %s is below the minimum required %s",
					amount.StringFixed(2), interest.StringFixed(2)),
			}
		}
		out.NewBalance = loan.RemainingBalance
		out.InterestComponent = amount
		out.AmortizationComponent = decimal.Zero

	case domain.PaymentTypeInterestPlusAmortization:
		if !amount.GreaterThan(interest) {
			return nil, &Rejection{
				Mode:      mode,
				Threshold: interest,
				Amount:    amount,
				Reason: fmt.Sprintf("amount %s covers interest only; an amortizing payment must exceed the interest due of %s",
					amount.StringFixed(2), interest.StringFixed(2)),
			}
		}
		amortization := amount.Sub(interest)
		out.NewBalance = loan.RemainingBalance.Sub(amortization)
		out.InterestComponent = interest
		out.AmortizationComponent = amortization

	case domain.PaymentTypeFullSettlement:
		if amount.LessThan(payoff.Sub(PayoffTolerance)) {
			return nil, &Rejection{
				Mode:      mode,
				Threshold: payoff,
				Amount:    amount,
				Reason: fmt.Sprintf("full settlement requires %s (balance %s + interest %s); received %s",
					payoff.StringFixed(2), loan.RemainingBalance.StringFixed(2), interest.StringFixed(2), amount.StringFixed(2)),
			}
		}
		out.NewBalance = decimal.Zero
		out.InterestComponent = interest
		out.AmortizationComponent = loan.RemainingBalance
	}

	// currency rounding margin
	if out.NewBalance.LessThanOrEqual(PaidThreshold) {
		out.NewBalance = decimal.Zero
		out.NewStatus = domain.LoanStatusPaid
	} else {
		out.NewStatus = domain.LoanStatusPending
	}

	return out, nil
}

// ApplyTo returns a copy of loan carrying the outcome's balance and status
func (o *Outcome) ApplyTo(loan domain.Loan) domain.Loan {
	loan.RemainingBalance = o.NewBalance
	loan.Status = o.NewStatus
	return loan
}

// OverdueStatus returns LATE for a PENDING loan whose due date is before
// today. The second result reports whether the status changed.
func OverdueStatus(loan *domain.Loan, today time.Time) (domain.LoanStatus, bool) {
	if loan.Status != domain.LoanStatusPending {
		return loan.Status, false
	}
	if utils.DateOnly(loan.DueDate).Before(utils.DateOnly(today)) {
		return domain.LoanStatusLate, true
	}
	return loan.Status, false
}

func reputationFor(paymentDate, dueDate time.Time) domain.Reputation {
	if utils.IsOnOrBefore(paymentDate, dueDate) {
		return domain.ReputationGood
	}
	return domain.ReputationBad
}

func validateInput(loan *domain.Loan, mode domain.PaymentType, amount decimal.Decimal, paymentDate time.Time) error {
	switch {
	case loan == nil:
		return fmt.Errorf("%w: loan is required", ErrMalformedInput)
	case !loan.Amount.IsPositive():
		return fmt.Errorf("%w: loan amount must be greater than zero", ErrMalformedInput)
	case loan.RemainingBalance.IsNegative():
		return fmt.Errorf("%w: remaining balance cannot be negative", ErrMalformedInput)
	case loan.RemainingBalance.GreaterThan(loan.Amount):
		return fmt.Errorf("%w: remaining balance %s exceeds original amount %s",
			ErrMalformedInput, loan.RemainingBalance.StringFixed(2), loan.Amount.StringFixed(2))
	case loan.InterestRate.IsNegative():
		return fmt.Errorf("%w: interest rate cannot be negative", ErrMalformedInput)
	case loan.DueDate.IsZero():
		return fmt.Errorf("%w: loan due date is required", ErrMalformedInput)
	case !mode.Valid():
		return fmt.Errorf("%w: unknown payment type %q", ErrMalformedInput, mode)
	case amount.IsNegative():
		return fmt.Errorf("%w: payment amount cannot be negative", ErrMalformedInput)
	case paymentDate.IsZero():
		return fmt.Errorf("%w: payment date is required", ErrMalformedInput)
	}
	return nil
}
