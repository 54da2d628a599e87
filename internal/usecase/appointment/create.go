package appointment

import (
	"context"
	"strings"
	"time"

	"github.com/BruksfildServices01/salon-scheduler/internal/audit"
	"github.com/BruksfildServices01/salon-scheduler/internal/clock"
	domain "github.com/BruksfildServices01/salon-scheduler/internal/domain/appointment"
	"github.com/BruksfildServices01/salon-scheduler/internal/httperr"
	"github.com/BruksfildServices01/salon-scheduler/internal/metrics"
	"github.com/BruksfildServices01/salon-scheduler/internal/models"
	"github.com/BruksfildServices01/salon-scheduler/internal/usecase/customer"
	"github.com/BruksfildServices01/salon-scheduler/pkg/logging"
)

// ======================================================
// INPUT
// ======================================================

type CreateAppointmentInput struct {
	StaffID    uint
	ServiceIDs []uint
	StartTime  time.Time
	Identity   domain.Identity
	Notes      string

	// DepositPaidOutOfBand marks the deposit as settled in person.
	// Only admin callers may set it.
	DepositPaidOutOfBand bool
	Actor                *domain.Actor
}

// ======================================================
// USE CASE
// ======================================================

type CreateAppointment struct {
	repo           domain.Repository
	availability   *GetAvailability
	resolver       *customer.Resolver
	notifications  *Notifications
	audit          audit.Recorder
	clock          clock.Clock
	depositPercent int
	metrics        *metrics.BookingMetrics
	logger         *logging.Logger
}

func NewCreateAppointment(
	repo domain.Repository,
	availability *GetAvailability,
	resolver *customer.Resolver,
	notifications *Notifications,
	recorder audit.Recorder,
	clk clock.Clock,
	depositPercent int,
	m *metrics.BookingMetrics,
	logger *logging.Logger,
) *CreateAppointment {
	if recorder == nil {
		recorder = audit.Discard{}
	}
	if clk == nil {
		clk = clock.System()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CreateAppointment{
		repo:           repo,
		availability:   availability,
		resolver:       resolver,
		notifications:  notifications,
		audit:          recorder,
		clock:          clk,
		depositPercent: depositPercent,
		metrics:        m,
		logger:         logger,
	}
}

// ======================================================
// EXECUTE
// ======================================================

func (uc *CreateAppointment) Execute(
	ctx context.Context,
	in CreateAppointmentInput,
) (*Result, error) {

	res, err := uc.execute(ctx, in)
	code, _ := httperr.CodeOf(err)
	uc.metrics.ObserveBooking("direct", metrics.Outcome(code, err == nil))
	return res, err
}

func (uc *CreateAppointment) execute(
	ctx context.Context,
	in CreateAppointmentInput,
) (*Result, error) {

	// --------------------------------------------------
	// 1. Required fields
	// --------------------------------------------------
	if in.StaffID == 0 || len(in.ServiceIDs) == 0 || in.StartTime.IsZero() {
		return nil, httperr.ErrBusiness(httperr.CodeMissingFields)
	}
	if err := domain.CheckServiceIDs(in.ServiceIDs); err != nil {
		return nil, err
	}
	if in.Identity == nil {
		return nil, httperr.ErrBusiness(httperr.CodeMissingCustomerInfo)
	}
	if in.DepositPaidOutOfBand && (in.Actor == nil || !in.Actor.IsAdmin()) {
		return nil, httperr.ErrBusiness(httperr.CodeForbidden)
	}
	if err := customer.Validate(in.Identity); err != nil {
		return nil, err
	}

	// --------------------------------------------------
	// 2. Staff + services
	// --------------------------------------------------
	staff, err := uc.repo.GetStaff(ctx, in.StaffID)
	if err != nil {
		return nil, err
	}

	services, err := uc.repo.GetServices(ctx, in.ServiceIDs)
	if err != nil {
		return nil, err
	}
	quote := domain.ComputeQuote(services, uc.depositPercent)

	// --------------------------------------------------
	// 3. Re-validate the exact slot against fresh data
	// --------------------------------------------------
	start := in.StartTime.In(uc.availability.Location())
	ok, err := uc.availability.IsAvailable(ctx, in.StaffID, start, quote.Duration, 0)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, httperr.ErrBusiness(httperr.CodeSlotUnavailable)
	}

	// --------------------------------------------------
	// 4. Customer
	// --------------------------------------------------
	resolution, err := uc.resolver.Resolve(ctx, in.Identity)
	if err != nil {
		return nil, err
	}

	// --------------------------------------------------
	// 5. Persist (store re-checks overlap under lock)
	// --------------------------------------------------
	ap := &models.Appointment{
		StaffID:       in.StaffID,
		StartTime:     start,
		EndTime:       start.Add(quote.Duration),
		Status:        string(domain.InitialStatus()),
		TotalPrice:    quote.TotalPrice,
		DepositAmount: quote.DepositAmount,
		DepositPaid:   in.DepositPaidOutOfBand,
		Notes:         strings.TrimSpace(in.Notes),
		Services:      domain.ServiceLinks(services),
	}
	resolution.Apply(ap)

	if err := uc.repo.CreateAppointment(ctx, ap); err != nil {
		return nil, persistError(err)
	}

	uc.availability.Invalidate(ctx, ap.StaffID, ap.StartTime)

	// --------------------------------------------------
	// 6. Audit + notification
	// --------------------------------------------------
	uc.audit.Dispatch(audit.Event{
		UserID:   actorID(in.Actor),
		Action:   "appointment_created",
		Entity:   "appointment",
		EntityID: &ap.ID,
		Metadata: map[string]any{
			"staff_id": ap.StaffID,
			"start":    ap.StartTime,
			"guest":    resolution.Guest != nil,
		},
	})

	uc.logger.Info("appointment created",
		"appointment_id", ap.ID, "staff_id", ap.StaffID, "start", ap.StartTime)

	n := domain.NotificationFor(ap, staff.Name)
	n.CustomerName, n.CustomerEmail = resolution.Name, resolution.Email
	n.Services = quote.ServiceNames
	warnings := uc.notifications.Send(ctx, NotifyConfirmation, n)

	return &Result{Appointment: reload(ctx, uc.repo, ap), Warnings: warnings}, nil
}

// persistError keeps business codes and wraps store failures.
func persistError(err error) error {
	if _, ok := httperr.CodeOf(err); ok {
		return err
	}
	return httperr.Wrap(httperr.CodePersistenceFailure, err)
}

// reload fetches ap with associations, falling back to ap on error.
func reload(ctx context.Context, repo domain.BookingLedger, ap *models.Appointment) *models.Appointment {
	full, err := repo.GetAppointment(ctx, ap.ID)
	if err != nil {
		return ap
	}
	return full
}

func actorID(a *domain.Actor) *uint {
	if a == nil || a.UserID == 0 {
		return nil
	}
	id := a.UserID
	return &id
}
