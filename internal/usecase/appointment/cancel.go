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

type CancelAppointment struct {
	repo          domain.Repository
	availability  *GetAvailability
	notifications *Notifications
	audit         audit.Recorder
	clock         clock.Clock
	metrics       *metrics.BookingMetrics
}

func NewCancelAppointment(
	repo domain.Repository,
	availability *GetAvailability,
	notifications *Notifications,
	recorder audit.Recorder,
	clk clock.Clock,
	m *metrics.BookingMetrics,
) *CancelAppointment {
	if recorder == nil {
		recorder = audit.Discard{}
	}
	if clk == nil {
		clk = clock.System()
	}
	return &CancelAppointment{
		repo:          repo,
		availability:  availability,
		notifications: notifications,
		audit:         recorder,
		clock:         clk,
		metrics:       m,
	}
}

// Execute cancels on behalf of the appointment's owner or an admin.
// A paid deposit stays paid.
func (uc *CancelAppointment) Execute(
	ctx context.Context,
	actor domain.Actor,
	appointmentID uint,
) (*Result, error) {

	ap, err := loadForActor(ctx, uc.repo, actor, appointmentID)
	if err != nil {
		return nil, err
	}

	if err := changeStatus(ctx, uc.repo, ap, domain.StatusCancelled, uc.clock); err != nil {
		uc.metrics.ObserveTransition(string(domain.StatusCancelled), "rejected")
		return nil, err
	}
	uc.metrics.ObserveTransition(string(domain.StatusCancelled), "ok")

	uc.availability.Invalidate(ctx, ap.StaffID, ap.StartTime)

	uc.audit.Dispatch(audit.Event{
		UserID:   actorID(&actor),
		Action:   "appointment_cancelled",
		Entity:   "appointment",
		EntityID: &ap.ID,
	})

	warnings := uc.notifications.Send(ctx, NotifyCancellation, domain.NotificationFor(ap, ap.Staff.Name))
	return &Result{Appointment: ap, Warnings: warnings}, nil
}

// loadForActor loads an appointment the actor owns or administers.
func loadForActor(
	ctx context.Context,
	repo domain.BookingLedger,
	actor domain.Actor,
	appointmentID uint,
) (*models.Appointment, error) {

	ap, err := repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !domain.IsOwnedBy(ap, actor.UserID) {
		return nil, httperr.ErrBusiness(httperr.CodeForbidden)
	}
	return ap, nil
}

// changeStatus validates the transition, persists it conditionally and
// mirrors it onto ap.
func changeStatus(
	ctx context.Context,
	repo domain.BookingLedger,
	ap *models.Appointment,
	to domain.Status,
	clk clock.Clock,
) error {

	from := domain.Status(ap.Status)
	if err := domain.Transition(from, to); err != nil {
		return err
	}

	now := clk.Now()
	if err := repo.UpdateAppointmentStatus(ctx, ap.ID, from, to, now); err != nil {
		return persistError(err)
	}
	return domain.Apply(ap, to, now)
}
