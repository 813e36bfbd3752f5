package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/loan-settlement/internal/domain"
)

// ErrDuplicateKey wraps unique-constraint violations reported by the store
var ErrDuplicateKey = errors.New("duplicate key")

// ClientRepository defines the interface for client data operations
type ClientRepository interface {
	// Create creates a new client; a taken tax id yields ErrDuplicateKey
	Create(ctx context.Context, client *domain.Client) error

	// GetByID retrieves a client by id
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error)

	// List retrieves clients, restricted to ownerID unless it is empty
	List(ctx context.Context, ownerID string) ([]*domain.Client, error)

	// UpdateReputation overwrites the client's reputation flag
	UpdateReputation(ctx context.Context, id uuid.UUID, reputation domain.Reputation) error

	// UpdateDocument attaches a document URL to the client
	UpdateDocument(ctx context.Context, id uuid.UUID, docURL string) error
}

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// Create creates a new loan
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByID retrieves a loan by id
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// GetByIDForUpdate retrieves a loan and locks its row until the transaction ends
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// UpdateState persists remaining balance and status
	UpdateState(ctx context.Context, loan *domain.Loan) error

	// MarkLate moves a PENDING loan due before today to LATE without touching
	// its balance. It reports false when the loan no longer qualifies.
	MarkLate(ctx context.Context, id uuid.UUID, today time.Time) (bool, error)

	// List retrieves loans matching filter, newest first
	List(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error)

	// ListDueWithClient retrieves loans in statuses due on or before day, joined with client contact
	ListDueWithClient(ctx context.Context, statuses []domain.LoanStatus, day time.Time) ([]*domain.LoanWithClient, error)
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// Create creates a new payment record
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by its id
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)

	// GetByLoanID retrieves all payments for a loan, latest payment date first
	GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error)
}

// NotificationRepository defines the interface for the reminder log
type NotificationRepository interface {
	// ExistsForDay reports whether a reminder was logged for the loan on day
	ExistsForDay(ctx context.Context, loanID uuid.UUID, day time.Time) (bool, error)

	// Create appends a log entry; a second entry for the same loan and day is ignored
	Create(ctx context.Context, entry *domain.NotificationLog) error
}

// Repos groups the repositories bound to one transaction
type Repos struct {
	Clients  ClientRepository
	Loans    LoanRepository
	Payments PaymentRepository
}

// UnitOfWork runs fn with repositories sharing a single transaction.
// fn returning an error rolls everything back.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(r Repos) error) error
}
