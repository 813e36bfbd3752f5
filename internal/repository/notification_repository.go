package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/loan-settlement/internal/domain"
)

type notificationRepository struct {
	db sqlx.ExtContext
}

func NewNotificationRepository(db sqlx.ExtContext) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) ExistsForDay(ctx context.Context, loanID uuid.UUID, day time.Time) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM notification_logs WHERE loan_id = $1 AND sent_on = $2)`

	var exists bool
	if err := sqlx.GetContext(ctx, r.db, &exists, query, loanID, day); err != nil {
		return false, err
	}

	return exists, nil
}

func (r *notificationRepository) Create(ctx context.Context, entry *domain.NotificationLog) error {
	query := `
		INSERT INTO notification_logs (id, loan_id, sent_on, status, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (loan_id, sent_on) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.LoanID,
		entry.SentOn,
		entry.Status,
		entry.Message,
		entry.CreatedAt,
	)

	return err
}
