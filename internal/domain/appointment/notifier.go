package appointment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/BruksfildServices01/salon-scheduler/internal/models"
)

// Notification is the appointment data handed to a Notifier.
type Notification struct {
	AppointmentID uint
	CustomerName  string
	CustomerEmail string
	StaffName     string
	Services      []string
	StartTime     time.Time
	EndTime       time.Time
	TotalPrice    decimal.Decimal
	DepositAmount decimal.Decimal
	DepositPaid   bool

	// Set for reschedule notifications only.
	PreviousStart *time.Time
	PreviousEnd   *time.Time
}

type Notifier interface {
	SendConfirmation(ctx context.Context, n Notification) error
	SendCancellation(ctx context.Context, n Notification) error
	SendReschedule(ctx context.Context, n Notification) error
	SendNoShow(ctx context.Context, n Notification) error
}

// NotificationFor builds a Notification from a loaded appointment.
func NotificationFor(ap *models.Appointment, staffName string) Notification {
	n := Notification{
		AppointmentID: ap.ID,
		CustomerName:  ap.ContactName(),
		CustomerEmail: ap.ContactEmail(),
		StaffName:     staffName,
		StartTime:     ap.StartTime,
		EndTime:       ap.EndTime,
		TotalPrice:    ap.TotalPrice,
		DepositAmount: ap.DepositAmount,
		DepositPaid:   ap.DepositPaid,
	}
	for _, link := range ap.Services {
		if link.Service.Name != "" {
			n.Services = append(n.Services, link.Service.Name)
		}
	}
	return n
}
