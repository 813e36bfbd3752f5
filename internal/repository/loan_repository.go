package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/segyhp/loan-settlement/internal/domain"
)

const loanColumns = `id, client_id, amount, remaining_balance, interest_rate, due_date, status, owner_id, created_at, updated_at`

type loanRepository struct {
	db sqlx.ExtContext
}

func NewLoanRepository(db sqlx.ExtContext) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (` + loanColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		loan.ID,
		loan.ClientID,
		loan.Amount,
		loan.RemainingBalance,
		loan.InterestRate,
		loan.DueDate,
		loan.Status,
		loan.OwnerID,
		loan.CreatedAt,
		loan.UpdatedAt,
	)

	return err
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`

	var loan domain.Loan
	if err := sqlx.GetContext(ctx, r.db, &loan, query, id); err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1 FOR UPDATE`

	var loan domain.Loan
	if err := sqlx.GetContext(ctx, r.db, &loan, query, id); err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) UpdateState(ctx context.Context, loan *domain.Loan) error {
	query := `
		UPDATE loans
		SET remaining_balance = $2, status = $3, updated_at = $4
		WHERE id = $1
	`

	return expectOneRow(r.db.ExecContext(ctx, query,
		loan.ID,
		loan.RemainingBalance,
		loan.Status,
		time.Now(),
	))
}

func (r *loanRepository) MarkLate(ctx context.Context, id uuid.UUID, today time.Time) (bool, error) {
	query := `
		UPDATE loans
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = $4 AND due_date < $5
	`

	res, err := r.db.ExecContext(ctx, query,
		id,
		domain.LoanStatusLate,
		time.Now(),
		domain.LoanStatusPending,
		today,
	)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *loanRepository) List(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error) {
	var (
		conditions []string
		args       []interface{}
	)

	if len(filter.Statuses) > 0 {
		args = append(args, pq.Array(statusStrings(filter.Statuses)))
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.DueFrom != nil {
		args = append(args, *filter.DueFrom)
		conditions = append(conditions, fmt.Sprintf("due_date >= $%d", len(args)))
	}
	if filter.DueTo != nil {
		args = append(args, *filter.DueTo)
		conditions = append(conditions, fmt.Sprintf("due_date <= $%d", len(args)))
	}
	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", len(args)))
	}

	query := `SELECT ` + loanColumns + ` FROM loans`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	loans := []*domain.Loan{}
	if err := sqlx.SelectContext(ctx, r.db, &loans, query, args...); err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) ListDueWithClient(ctx context.Context, statuses []domain.LoanStatus, day time.Time) ([]*domain.LoanWithClient, error) {
	query := `
		SELECT l.id, l.client_id, l.amount, l.remaining_balance, l.interest_rate, l.due_date,
		       l.status, l.owner_id, l.created_at, l.updated_at,
		       c.name AS client_name, c.phone AS client_phone
		FROM loans l
		LEFT JOIN clients c ON c.id = l.client_id
		WHERE l.status = ANY($1) AND l.due_date <= $2
		ORDER BY l.due_date
	`

	loans := []*domain.LoanWithClient{}
	if err := sqlx.SelectContext(ctx, r.db, &loans, query, pq.Array(statusStrings(statuses)), day); err != nil {
		return nil, err
	}

	return loans, nil
}

func statusStrings(statuses []domain.LoanStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// expectOneRow turns an update that touched nothing into sql.ErrNoRows
func expectOneRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
