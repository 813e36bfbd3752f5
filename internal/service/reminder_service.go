package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/segyhp/loan-settlement/internal/domain"
	"github.com/segyhp/loan-settlement/internal/notifier"
	"github.com/segyhp/loan-settlement/internal/repository"
	"github.com/segyhp/loan-settlement/internal/settlement"
	customError "github.com/segyhp/loan-settlement/pkg/errors"
	"github.com/segyhp/loan-settlement/pkg/utils"
)

const reminderTemplate = "Olá %s, notamos que seu empréstimo de R$ %s vence em %s. Por favor, regularize sua situação."

// ReminderService runs the scheduled collection jobs
type ReminderService struct {
	loans         repository.LoanRepository
	notifications repository.NotificationRepository
	sender        notifier.Sender
	location      *time.Location
	log           *zap.Logger
	now           func() time.Time
}

func NewReminderService(
	loans repository.LoanRepository,
	notifications repository.NotificationRepository,
	sender notifier.Sender,
	location *time.Location,
	log *zap.Logger,
) *ReminderService {
	if location == nil {
		location = time.UTC
	}
	return &ReminderService{
		loans:         loans,
		notifications: notifications,
		sender:        sender,
		location:      location,
		log:           log,
		now:           time.Now,
	}
}

// today is the current calendar date in the scheduler's time zone
func (s *ReminderService) today() time.Time {
	return utils.DateOnly(s.now().In(s.location))
}

// MarkOverdue moves PENDING loans whose due date has passed to LATE. Only the
// status is written, and only while the row is still PENDING, so a payment
// committed after the scan is never overwritten. A loan that fails to update
// is logged and left for the next run.
func (s *ReminderService) MarkOverdue(ctx context.Context) (*domain.OverdueSummary, error) {
	today := s.today()
	yesterday := today.AddDate(0, 0, -1)

	loans, err := s.loans.List(ctx, domain.LoanFilter{
		Statuses: []domain.LoanStatus{domain.LoanStatusPending},
		DueTo:    &yesterday,
	})
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	summary := &domain.OverdueSummary{Scanned: len(loans)}
	for _, loan := range loans {
		status, changed := settlement.OverdueStatus(loan, today)
		if !changed {
			continue
		}

		marked, err := s.loans.MarkLate(ctx, loan.ID, today)
		if err != nil {
			s.log.Error("Failed to mark loan as late",
				zap.String("loan_id", loan.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if !marked {
			s.log.Info("Loan settled before the sweep reached it, skipping",
				zap.String("loan_id", loan.ID.String()))
			summary.Settled++
			continue
		}

		loan.Status = status
		summary.Marked++
	}

	s.log.Info("Overdue sweep finished",
		zap.String("date", utils.FormatDate(today)),
		zap.Int("scanned", summary.Scanned),
		zap.Int("marked", summary.Marked),
		zap.Int("settled", summary.Settled),
	)

	return summary, nil
}

// RunReminders messages every client with a PENDING or LATE loan due on or
// before today, at most once per loan per day. Delivery failures are logged
// and do not stop the run.
func (s *ReminderService) RunReminders(ctx context.Context) (*domain.ReminderSummary, error) {
	today := s.today()

	loans, err := s.loans.ListDueWithClient(ctx,
		[]domain.LoanStatus{domain.LoanStatusPending, domain.LoanStatusLate}, today)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	summary := &domain.ReminderSummary{Found: len(loans)}
	s.log.Info("Reminder run started",
		zap.String("date", utils.FormatDate(today)),
		zap.Int("found", summary.Found),
	)

	for _, loan := range loans {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		log := s.log.With(zap.String("loan_id", loan.ID.String()))

		if loan.ClientName == nil || loan.ClientPhone == nil {
			log.Error("Loan has no client attached, skipping")
			summary.Skipped++
			continue
		}
		log = log.With(zap.String("client", *loan.ClientName))

		sent, err := s.notifications.ExistsForDay(ctx, loan.ID, today)
		if err != nil {
			log.Error("Failed to check notification log", zap.Error(err))
			summary.Failed++
			continue
		}
		if sent {
			log.Info("Client already notified today, skipping")
			summary.Skipped++
			continue
		}

		message := ReminderMessage(*loan.ClientName, &loan.Loan)
		if err := s.sender.Send(ctx, *loan.ClientPhone, message); err != nil {
			log.Warn("Reminder not delivered",
				zap.Error(customError.WrapNotifierError(*loan.ClientPhone, err)))
			summary.Failed++
			continue
		}

		entry := &domain.NotificationLog{
			ID:        uuid.New(),
			LoanID:    loan.ID,
			SentOn:    today,
			Status:    domain.NotificationStatusSuccess,
			Message:   message,
			CreatedAt: s.now(),
		}
		if err := s.notifications.Create(ctx, entry); err != nil {
			log.Error("Reminder sent but not logged; it may be repeated today", zap.Error(err))
		}

		log.Info("Reminder sent")
		summary.Sent++
	}

	s.log.Info("Reminder run finished",
		zap.Int("found", summary.Found),
		zap.Int("sent", summary.Sent),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
	)

	return summary, nil
}

// ReminderMessage composes the collection text from the client name, the
// original loan amount and the due date.
func ReminderMessage(clientName string, loan *domain.Loan) string {
	return fmt.Sprintf(reminderTemplate, clientName, loan.Amount.StringFixed(2), utils.FormatDate(loan.DueDate))
}
