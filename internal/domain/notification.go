package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationStatusSuccess = "success"
)

// NotificationLog records a reminder delivered for a loan on a given day
type NotificationLog struct {
	ID        uuid.UUID `json:"id" db:"id"`
	LoanID    uuid.UUID `json:"loan_id" db:"loan_id"`
	SentOn    time.Time `json:"sent_on" db:"sent_on"`
	Status    string    `json:"status" db:"status"`
	Message   string    `json:"message" db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ReminderSummary counts what one reminder run did
type ReminderSummary struct {
	Found   int `json:"found"`
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// OverdueSummary counts loans moved to LATE by the overdue sweep
type OverdueSummary struct {
	Scanned int `json:"scanned"`
	Marked  int `json:"marked"`
	// Settled counts loans paid or changed between the scan and the update
	Settled int `json:"settled"`
}
