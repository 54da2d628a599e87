package appointment

import (
	"context"
	"fmt"
	"time"

	domain "github.com/BruksfildServices01/salon-scheduler/internal/domain/appointment"
	"github.com/BruksfildServices01/salon-scheduler/internal/metrics"
	"github.com/BruksfildServices01/salon-scheduler/pkg/logging"
)

type NotificationKind string

const (
	NotifyConfirmation NotificationKind = "confirmation"
	NotifyCancellation NotificationKind = "cancellation"
	NotifyReschedule   NotificationKind = "reschedule"
	NotifyNoShow       NotificationKind = "no_show"
)

// Notifications sends best-effort emails. A failed send becomes a warning,
// never an error for the booking operation.
type Notifications struct {
	notifier domain.Notifier
	timeout  time.Duration
	metrics  *metrics.BookingMetrics
	logger   *logging.Logger
}

func NewNotifications(
	notifier domain.Notifier,
	timeout time.Duration,
	m *metrics.BookingMetrics,
	logger *logging.Logger,
) *Notifications {
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Notifications{
		notifier: notifier,
		timeout:  timeout,
		metrics:  m,
		logger:   logger,
	}
}

// Send returns a warning message when the notification could not be delivered.
func (n *Notifications) Send(
	ctx context.Context,
	kind NotificationKind,
	msg domain.Notification,
) []string {

	if n == nil || n.notifier == nil {
		return nil
	}
	if msg.CustomerEmail == "" {
		n.logger.Warn("notification skipped: no recipient",
			"kind", kind, "appointment_id", msg.AppointmentID)
		return []string{fmt.Sprintf("%s notification skipped: no customer email", kind)}
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	var err error
	switch kind {
	case NotifyConfirmation:
		err = n.notifier.SendConfirmation(sendCtx, msg)
	case NotifyCancellation:
		err = n.notifier.SendCancellation(sendCtx, msg)
	case NotifyReschedule:
		err = n.notifier.SendReschedule(sendCtx, msg)
	case NotifyNoShow:
		err = n.notifier.SendNoShow(sendCtx, msg)
	default:
		err = fmt.Errorf("unknown notification kind %q", kind)
	}

	n.metrics.ObserveNotification(string(kind), err)
	if err != nil {
		n.logger.Warn("notification failed",
			"kind", kind, "appointment_id", msg.AppointmentID, "error", err)
		return []string{fmt.Sprintf("%s notification failed: %v", kind, err)}
	}
	return nil
}
