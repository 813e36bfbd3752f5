package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/segyhp/loan-settlement/internal/config"
	"github.com/segyhp/loan-settlement/internal/notifier"
	"github.com/segyhp/loan-settlement/internal/repository"
	"github.com/segyhp/loan-settlement/internal/service"
	"github.com/segyhp/loan-settlement/pkg/logger"
)

func main() {
	root := &cobra.Command{
		Use:          "scheduler",
		Short:        "Daily loan collection jobs",
		SilenceUsage: true,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the overdue sweep and reminder jobs on their cron schedules",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withJobs(run)
			},
		},
		&cobra.Command{
			Use:   "once",
			Short: "Run the overdue sweep, then the reminder job, and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withJobs(once)
			},
		},
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

type jobs struct {
	cfg       *config.Config
	log       *zap.Logger
	reminders *service.ReminderService
}

func withJobs(fn func(j *jobs) error) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		log.Error("Failed to initialize database", zap.Error(err))
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	sender := notifier.NewWhatsAppClient(
		cfg.Notifier.URL,
		cfg.Notifier.APIKey,
		cfg.Business.CountryCode,
		cfg.Notifier.Timeout,
		log.Named("whatsapp"),
	)
	if sender.Simulated() {
		log.Warn("WHATSAPP_API_URL not set, reminders will only be logged")
	}

	reminders := service.NewReminderService(
		repository.NewLoanRepository(db),
		repository.NewNotificationRepository(db),
		sender,
		cfg.Scheduler.Location(),
		log.Named("reminders"),
	)

	return fn(&jobs{cfg: cfg, log: log, reminders: reminders})
}

func run(j *jobs) error {
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(j.cfg.Scheduler.Location()),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	if err := setupCronJobs(c, j); err != nil {
		return err
	}

	// Start the scheduler
	c.Start()
	j.log.Info("Scheduler started",
		zap.String("overdue_spec", j.cfg.Scheduler.OverdueSpec),
		zap.String("reminder_spec", j.cfg.Scheduler.ReminderSpec),
		zap.String("timezone", j.cfg.Scheduler.Timezone),
	)

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	j.log.Info("Shutting down scheduler...")
	<-c.Stop().Done()
	j.log.Info("Scheduler stopped")
	return nil
}

func setupCronJobs(c *cron.Cron, j *jobs) error {
	// Overdue sweep runs first each day so the reminder text sees fresh statuses
	if _, err := c.AddFunc(j.cfg.Scheduler.OverdueSpec, func() {
		markOverdue(context.Background(), j)
	}); err != nil {
		return fmt.Errorf("error scheduling overdue job: %w", err)
	}

	if _, err := c.AddFunc(j.cfg.Scheduler.ReminderSpec, func() {
		sendReminders(context.Background(), j)
	}); err != nil {
		return fmt.Errorf("error scheduling reminder job: %w", err)
	}

	return nil
}

func once(j *jobs) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := markOverdue(ctx, j); err != nil {
		return err
	}
	return sendReminders(ctx, j)
}

func markOverdue(ctx context.Context, j *jobs) error {
	j.log.Info("Running overdue sweep...")
	if _, err := j.reminders.MarkOverdue(ctx); err != nil {
		j.log.Error("Overdue sweep failed", zap.Error(err))
		return err
	}
	return nil
}

func sendReminders(ctx context.Context, j *jobs) error {
	j.log.Info("Running payment reminder job...")
	if _, err := j.reminders.RunReminders(ctx); err != nil {
		j.log.Error("Reminder job failed", zap.Error(err))
		return err
	}
	return nil
}
