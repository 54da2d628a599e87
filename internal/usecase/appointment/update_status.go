package appointment

import (
	"context"

	"github.com/BruksfildServices01/salon-scheduler/internal/audit"
	"github.com/BruksfildServices01/salon-scheduler/internal/clock"
	domain "github.com/BruksfildServices01/salon-scheduler/internal/domain/appointment"
	"github.com/BruksfildServices01/salon-scheduler/internal/httperr"
	"github.com/BruksfildServices01/salon-scheduler/internal/metrics"
	"github.com/BruksfildServices01/salon-scheduler/internal/models"
)

var statusNotifications = map[domain.Status]NotificationKind{
	domain.StatusConfirmed: NotifyConfirmation,
	domain.StatusCancelled: NotifyCancellation,
	domain.StatusNoShow:    NotifyNoShow,
}

type UpdateAppointmentStatus struct {
	repo          domain.Repository
	availability  *GetAvailability
	notifications *Notifications
	audit         audit.Recorder
	clock         clock.Clock
	metrics       *metrics.BookingMetrics
}

func NewUpdateAppointmentStatus(
	repo domain.Repository,
	availability *GetAvailability,
	notifications *Notifications,
	recorder audit.Recorder,
	clk clock.Clock,
	m *metrics.BookingMetrics,
) *UpdateAppointmentStatus {
	if recorder == nil {
		recorder = audit.Discard{}
	}
	if clk == nil {
		clk = clock.System()
	}
	return &UpdateAppointmentStatus{
		repo:          repo,
		availability:  availability,
		notifications: notifications,
		audit:         recorder,
		clock:         clk,
		metrics:       m,
	}
}

// Execute applies an admin status change. Staff members may change the
// status of their own appointments.
func (uc *UpdateAppointmentStatus) Execute(
	ctx context.Context,
	actor domain.Actor,
	appointmentID uint,
	to domain.Status,
) (*Result, error) {

	ap, err := uc.repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	canManage := actor.IsAdmin() ||
		(actor.Role == models.RoleStaff && ap.StaffID == actor.UserID)
	if !canManage {
		return nil, httperr.ErrBusiness(httperr.CodeForbidden)
	}

	if err := changeStatus(ctx, uc.repo, ap, to, uc.clock); err != nil {
		code, _ := httperr.CodeOf(err)
		uc.metrics.ObserveTransition(string(to), metrics.Outcome(code, false))
		return nil, err
	}
	uc.metrics.ObserveTransition(string(to), "ok")

	if !to.IsActive() {
		uc.availability.Invalidate(ctx, ap.StaffID, ap.StartTime)
	}

	uc.audit.Dispatch(audit.Event{
		UserID:   actorID(&actor),
		Action:   "appointment_status_changed",
		Entity:   "appointment",
		EntityID: &ap.ID,
		Metadata: map[string]any{"status": to},
	})

	var warnings []string
	if kind, ok := statusNotifications[to]; ok {
		warnings = uc.notifications.Send(ctx, kind, domain.NotificationFor(ap, ap.Staff.Name))
	}

	return &Result{Appointment: ap, Warnings: warnings}, nil
}
