package appointment

import (
	"time"

	"github.com/BruksfildServices01/salon-scheduler/internal/models"
)

// ===============================
// Domain Actions
// ===============================

// Apply moves ap to status `to`, stamping the matching timestamp.
// ap is left untouched when the transition is illegal.
func Apply(ap *models.Appointment, to Status, now time.Time) error {
	if err := Transition(Status(ap.Status), to); err != nil {
		return err
	}

	ap.Status = string(to)
	switch to {
	case StatusConfirmed:
		ap.ConfirmedAt = &now
	case StatusCancelled:
		ap.CancelledAt = &now
	case StatusCompleted:
		ap.CompletedAt = &now
	case StatusNoShow:
		ap.NoShowAt = &now
	}
	return nil
}

func Cancel(ap *models.Appointment, now time.Time) error {
	return Apply(ap, StatusCancelled, now)
}

func Complete(ap *models.Appointment, now time.Time) error {
	return Apply(ap, StatusCompleted, now)
}

func MarkNoShow(ap *models.Appointment, now time.Time) error {
	return Apply(ap, StatusNoShow, now)
}

func Confirm(ap *models.Appointment, now time.Time) error {
	return Apply(ap, StatusConfirmed, now)
}

// TimestampColumn names the column stamped when entering status s.
func TimestampColumn(s Status) string {
	switch s {
	case StatusConfirmed:
		return "confirmed_at"
	case StatusCancelled:
		return "cancelled_at"
	case StatusCompleted:
		return "completed_at"
	case StatusNoShow:
		return "no_show_at"
	}
	return ""
}

// IsOwnedBy reports whether the appointment's linked customer belongs to userID.
func IsOwnedBy(ap *models.Appointment, userID uint) bool {
	return ap.Customer != nil && ap.Customer.UserID != nil && *ap.Customer.UserID == userID
}
