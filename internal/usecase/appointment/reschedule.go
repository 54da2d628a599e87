package appointment

import (
	"context"
	"time"

	"github.com/BruksfildServices01/salon-scheduler/internal/audit"
	domain "github.com/BruksfildServices01/salon-scheduler/internal/domain/appointment"
	"github.com/BruksfildServices01/salon-scheduler/internal/httperr"
	"github.com/BruksfildServices01/salon-scheduler/internal/metrics"
)

type RescheduleAppointmentInput struct {
	AppointmentID uint
	StartTime     time.Time

	// StaffID moves the appointment to another staff member. Zero keeps
	// the current one.
	StaffID uint
}

type RescheduleAppointment struct {
	repo          domain.Repository
	availability  *GetAvailability
	notifications *Notifications
	audit         audit.Recorder
	metrics       *metrics.BookingMetrics
}

func NewRescheduleAppointment(
	repo domain.Repository,
	availability *GetAvailability,
	notifications *Notifications,
	recorder audit.Recorder,
	m *metrics.BookingMetrics,
) *RescheduleAppointment {
	if recorder == nil {
		recorder = audit.Discard{}
	}
	return &RescheduleAppointment{
		repo:          repo,
		availability:  availability,
		notifications: notifications,
		audit:         recorder,
		metrics:       m,
	}
}

// Execute moves an active appointment to a new start, optionally on another
// staff member, keeping its duration, status and deposit flags.
func (uc *RescheduleAppointment) Execute(
	ctx context.Context,
	actor domain.Actor,
	in RescheduleAppointmentInput,
) (*Result, error) {

	if in.AppointmentID == 0 || in.StartTime.IsZero() {
		return nil, httperr.ErrBusiness(httperr.CodeMissingFields)
	}

	ap, err := loadForActor(ctx, uc.repo, actor, in.AppointmentID)
	if err != nil {
		return nil, err
	}

	if err := domain.CanReschedule(domain.Status(ap.Status)); err != nil {
		return nil, err
	}

	oldStaffID := ap.StaffID
	staffID := ap.StaffID
	staff := ap.Staff
	if in.StaffID != 0 && in.StaffID != ap.StaffID {
		s, err := uc.repo.GetStaff(ctx, in.StaffID)
		if err != nil {
			return nil, err
		}
		staffID, staff = s.ID, *s
	}

	duration := ap.EndTime.Sub(ap.StartTime)
	newStart := in.StartTime.In(uc.availability.Location())

	ok, err := uc.availability.IsAvailable(ctx, staffID, newStart, duration, ap.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		uc.metrics.ObserveTransition("RESCHEDULED", httperr.CodeSlotUnavailable)
		return nil, httperr.ErrBusiness(httperr.CodeSlotUnavailable)
	}

	oldStart, oldEnd := ap.StartTime, ap.EndTime
	newEnd := newStart.Add(duration)

	if err := uc.repo.UpdateAppointmentTime(ctx, ap.ID, staffID, newStart, newEnd); err != nil {
		return nil, persistError(err)
	}
	ap.StaffID, ap.Staff = staffID, staff
	ap.StartTime, ap.EndTime = newStart, newEnd
	uc.metrics.ObserveTransition("RESCHEDULED", "ok")

	if staffID == oldStaffID {
		uc.availability.Invalidate(ctx, staffID, oldStart, newStart)
	} else {
		uc.availability.Invalidate(ctx, oldStaffID, oldStart)
		uc.availability.Invalidate(ctx, staffID, newStart)
	}

	uc.audit.Dispatch(audit.Event{
		UserID:   actorID(&actor),
		Action:   "appointment_rescheduled",
		Entity:   "appointment",
		EntityID: &ap.ID,
		Metadata: map[string]any{
			"old_start":    oldStart,
			"new_start":    newStart,
			"old_staff_id": oldStaffID,
			"new_staff_id": staffID,
		},
	})

	n := domain.NotificationFor(ap, ap.Staff.Name)
	n.PreviousStart, n.PreviousEnd = &oldStart, &oldEnd
	warnings := uc.notifications.Send(ctx, NotifyReschedule, n)

	return &Result{Appointment: ap, Warnings: warnings}, nil
}
