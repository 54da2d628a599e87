package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/BruksfildServices01/salon-scheduler/internal/audit"
	"github.com/BruksfildServices01/salon-scheduler/internal/clock"
	domain "github.com/BruksfildServices01/salon-scheduler/internal/domain/appointment"
	"github.com/BruksfildServices01/salon-scheduler/internal/httperr"
	"github.com/BruksfildServices01/salon-scheduler/internal/metrics"
	"github.com/BruksfildServices01/salon-scheduler/internal/models"
	bookings "github.com/BruksfildServices01/salon-scheduler/internal/usecase/appointment"
	"github.com/BruksfildServices01/salon-scheduler/internal/usecase/customer"
	"github.com/BruksfildServices01/salon-scheduler/pkg/logging"
)

const (
	SourceWebhook = "webhook"
	SourceVerify  = "verify"
)

// Reconciler turns verified payments into confirmed appointments. The
// webhook and the verify fallback both funnel into Reconcile, and the
// unique payment reference makes repeated calls converge on one row.
type Reconciler struct {
	repo           domain.Repository
	availability   *bookings.GetAvailability
	resolver       *customer.Resolver
	notifications  *bookings.Notifications
	audit          audit.Recorder
	provider       Provider
	archive        WebhookArchive
	clock          clock.Clock
	depositPercent int
	timeout        time.Duration
	metrics        *metrics.BookingMetrics
	logger         *logging.Logger
}

type ReconcilerDeps struct {
	Repo           domain.Repository
	Availability   *bookings.GetAvailability
	Resolver       *customer.Resolver
	Notifications  *bookings.Notifications
	Audit          audit.Recorder
	Provider       Provider
	Archive        WebhookArchive
	Clock          clock.Clock
	DepositPercent int
	Timeout        time.Duration
	Metrics        *metrics.BookingMetrics
	Logger         *logging.Logger
}

func NewReconciler(d ReconcilerDeps) *Reconciler {
	r := &Reconciler{
		repo:           d.Repo,
		availability:   d.Availability,
		resolver:       d.Resolver,
		notifications:  d.Notifications,
		audit:          d.Audit,
		provider:       d.Provider,
		archive:        d.Archive,
		clock:          d.Clock,
		depositPercent: d.DepositPercent,
		timeout:        d.Timeout,
		metrics:        d.Metrics,
		logger:         d.Logger,
	}
	if r.audit == nil {
		r.audit = audit.Discard{}
	}
	if r.clock == nil {
		r.clock = clock.System()
	}
	if r.timeout <= 0 {
		r.timeout = 10 * time.Second
	}
	if r.logger == nil {
		r.logger = logging.Default()
	}
	return r
}

// ======================================================
// RECONCILE
// ======================================================

func (r *Reconciler) Reconcile(ctx context.Context, source string, c Confirmation) (*bookings.Result, error) {
	res, err := r.reconcile(ctx, c)

	outcome := "created"
	switch {
	case err != nil:
		code, _ := httperr.CodeOf(err)
		outcome = metrics.Outcome(code, false)
		r.logger.Error("payment reconciliation failed",
			"source", source, "payment_reference", c.PaymentReference, "error", err)
	case res.AlreadyExisted:
		outcome = "already_existed"
	}
	r.metrics.ObserveReconciliation(source, outcome)
	return res, err
}

func (r *Reconciler) reconcile(ctx context.Context, c Confirmation) (*bookings.Result, error) {
	if c.PaymentReference == "" {
		return nil, httperr.Wrap(httperr.CodeInvalidPaymentMetadata, fmt.Errorf("missing payment reference"))
	}

	// --------------------------------------------------
	// 1. Idempotency guard
	// --------------------------------------------------
	if existing, err := r.existing(ctx, c.PaymentReference); err != nil || existing != nil {
		return existing, err
	}

	// --------------------------------------------------
	// 2. Booking request from metadata
	// --------------------------------------------------
	meta, err := ParseMetadata(c.Metadata)
	if err != nil {
		return nil, err
	}

	staff, err := r.repo.GetStaff(ctx, meta.StaffID)
	if err != nil {
		return nil, err
	}
	services, err := r.repo.GetServices(ctx, meta.ServiceIDs)
	if err != nil {
		return nil, err
	}
	quote := domain.ComputeQuote(services, r.depositPercent)

	resolution, err := r.resolver.ResolveLinked(ctx, meta.Identity(c.CustomerEmail))
	if err != nil {
		return nil, err
	}

	// --------------------------------------------------
	// 3. Persist CONFIRMED with the deposit paid
	// --------------------------------------------------
	now := r.clock.Now()
	ref := c.PaymentReference
	start := meta.StartTime.In(r.availability.Location())

	ap := &models.Appointment{
		StaffID:         meta.StaffID,
		StartTime:       start,
		EndTime:         start.Add(quote.Duration),
		Status:          string(domain.StatusConfirmed),
		TotalPrice:      quote.TotalPrice,
		DepositAmount:   quote.DepositAmount,
		DepositPaid:     true,
		StripePaymentID: &ref,
		Notes:           meta.Notes,
		Services:        domain.ServiceLinks(services),
		ConfirmedAt:     &now,
	}
	resolution.Apply(ap)

	if err := r.repo.CreateAppointment(ctx, ap); err != nil {
		// The other entry point may have won the race. Its row trips either
		// the overlap check or the payment reference index first.
		if existing, ferr := r.existing(ctx, ref); ferr == nil && existing != nil {
			return existing, nil
		}
		if _, ok := httperr.CodeOf(err); ok {
			return nil, err
		}
		return nil, httperr.Wrap(httperr.CodePersistenceFailure, err)
	}

	r.availability.Invalidate(ctx, ap.StaffID, ap.StartTime)

	r.audit.Dispatch(audit.Event{
		Action:   "appointment_reconciled",
		Entity:   "appointment",
		EntityID: &ap.ID,
		Metadata: map[string]any{"payment_reference": ref},
	})

	r.logger.Info("payment reconciled",
		"appointment_id", ap.ID, "payment_reference", ref, "staff_id", ap.StaffID)

	// --------------------------------------------------
	// 4. Confirmation
	// --------------------------------------------------
	n := domain.NotificationFor(ap, staff.Name)
	n.CustomerName, n.CustomerEmail = resolution.Name, resolution.Email
	if n.CustomerEmail == "" {
		n.CustomerEmail = c.CustomerEmail
	}
	n.Services = quote.ServiceNames
	warnings := r.notifications.Send(ctx, bookings.NotifyConfirmation, n)

	stored, err := r.repo.GetAppointment(ctx, ap.ID)
	if err != nil {
		stored = ap
	}
	return &bookings.Result{Appointment: stored, Warnings: warnings}, nil
}

func (r *Reconciler) existing(ctx context.Context, ref string) (*bookings.Result, error) {
	ap, err := r.repo.FindByStripePaymentID(ctx, ref)
	if err != nil {
		return nil, httperr.Wrap(httperr.CodePersistenceFailure, err)
	}
	if ap == nil {
		return nil, nil
	}
	return &bookings.Result{Appointment: ap, AlreadyExisted: true}, nil
}

// ======================================================
// VERIFY (fallback path)
// ======================================================

func (r *Reconciler) VerifySession(ctx context.Context, sessionID string) (*bookings.Result, error) {
	return r.verify(ctx, SourceVerify, sessionID)
}

func (r *Reconciler) verify(ctx context.Context, source, sessionID string) (*bookings.Result, error) {
	if sessionID == "" {
		return nil, httperr.ErrBusiness(httperr.CodeMissingFields)
	}
	if r.provider == nil {
		return nil, httperr.Wrap(httperr.CodePaymentProviderError, fmt.Errorf("no payment provider configured"))
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	status, err := r.provider.RetrieveSession(callCtx, sessionID)
	if err != nil {
		if _, ok := httperr.CodeOf(err); ok {
			return nil, err
		}
		return nil, httperr.Wrap(httperr.CodePaymentProviderError, err)
	}
	if !status.Paid {
		r.metrics.ObserveReconciliation(source, httperr.CodePaymentNotCompleted)
		return nil, httperr.ErrBusiness(httperr.CodePaymentNotCompleted)
	}

	return r.Reconcile(ctx, source, status.confirmation())
}

// ======================================================
// WEBHOOK (primary path)
// ======================================================

// HandleWebhook verifies and dispatches one provider notification. It
// returns a nil result for events that do not concern a paid booking.
func (r *Reconciler) HandleWebhook(ctx context.Context, payload []byte, header http.Header) (*bookings.Result, error) {
	if r.provider == nil {
		return nil, httperr.Wrap(httperr.CodePaymentProviderError, fmt.Errorf("no payment provider configured"))
	}

	if r.archive != nil {
		if err := r.archive.Archive(ctx, r.provider.Name(), payload); err != nil {
			r.logger.Warn("webhook archive failed", "provider", r.provider.Name(), "error", err)
		}
	}

	ev, err := r.provider.ParseWebhook(ctx, payload, header)
	if err != nil {
		if !errors.Is(err, ErrInvalidWebhook) {
			err = fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
		}
		r.logger.Warn("webhook rejected", "provider", r.provider.Name(), "error", err)
		return nil, err
	}

	switch {
	case ev.Confirmation != nil:
		return r.Reconcile(ctx, SourceWebhook, *ev.Confirmation)
	case ev.SessionID != "":
		return r.verify(ctx, SourceWebhook, ev.SessionID)
	default:
		r.logger.Debug("webhook ignored", "provider", r.provider.Name(), "type", ev.Type, "event_id", ev.ID)
		return nil, nil
	}
}
