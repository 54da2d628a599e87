package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domain "github.com/BruksfildServices01/salon-scheduler/internal/domain/appointment"
	"github.com/BruksfildServices01/salon-scheduler/internal/httperr"
	bookings "github.com/BruksfildServices01/salon-scheduler/internal/usecase/appointment"
	"github.com/BruksfildServices01/salon-scheduler/internal/usecase/customer"
	"github.com/BruksfildServices01/salon-scheduler/pkg/logging"
)

type StartCheckoutInput struct {
	StaffID    uint
	ServiceIDs []uint
	StartTime  time.Time
	Identity   domain.Identity
	Notes      string
}

type CheckoutResult struct {
	CheckoutURL   string          `json:"checkout_url"`
	SessionID     string          `json:"session_id"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	DepositAmount decimal.Decimal `json:"deposit_amount"`
}

// StartCheckout opens a deposit checkout for a booking request. Nothing is
// persisted until the payment is reconciled.
type StartCheckout struct {
	repo           domain.Repository
	availability   *bookings.GetAvailability
	provider       Provider
	depositPercent int
	currency       string
	timeout        time.Duration
	logger         *logging.Logger
}

func NewStartCheckout(
	repo domain.Repository,
	availability *bookings.GetAvailability,
	provider Provider,
	depositPercent int,
	currency string,
	timeout time.Duration,
	logger *logging.Logger,
) *StartCheckout {
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &StartCheckout{
		repo:           repo,
		availability:   availability,
		provider:       provider,
		depositPercent: depositPercent,
		currency:       strings.ToLower(currency),
		timeout:        timeout,
		logger:         logger,
	}
}

func (uc *StartCheckout) Execute(ctx context.Context, in StartCheckoutInput) (*CheckoutResult, error) {
	if in.StaffID == 0 || len(in.ServiceIDs) == 0 || in.StartTime.IsZero() {
		return nil, httperr.ErrBusiness(httperr.CodeMissingFields)
	}
	if err := domain.CheckServiceIDs(in.ServiceIDs); err != nil {
		return nil, err
	}
	if in.Identity == nil {
		return nil, httperr.ErrBusiness(httperr.CodeMissingCustomerInfo)
	}
	if err := customer.Validate(in.Identity); err != nil {
		return nil, err
	}
	if uc.provider == nil {
		return nil, httperr.Wrap(httperr.CodePaymentProviderError, fmt.Errorf("no payment provider configured"))
	}

	if _, err := uc.repo.GetStaff(ctx, in.StaffID); err != nil {
		return nil, err
	}
	services, err := uc.repo.GetServices(ctx, in.ServiceIDs)
	if err != nil {
		return nil, err
	}
	quote := domain.ComputeQuote(services, uc.depositPercent)

	start := in.StartTime.In(uc.availability.Location())
	ok, err := uc.availability.IsAvailable(ctx, in.StaffID, start, quote.Duration, 0)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, httperr.ErrBusiness(httperr.CodeSlotUnavailable)
	}

	meta := NewBookingMetadata(in.StaffID, in.ServiceIDs, start, strings.TrimSpace(in.Notes), in.Identity)
	email := meta.GuestEmail
	if auth, isAuth := in.Identity.(domain.AuthenticatedIdentity); isAuth {
		email = auth.Email
	}

	callCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	session, err := uc.provider.CreateCheckoutSession(callCtx, CheckoutRequest{
		Amount:         quote.DepositAmount,
		Currency:       uc.currency,
		Description:    "Deposit: " + strings.Join(quote.ServiceNames, ", "),
		CustomerEmail:  email,
		Metadata:       meta.Encode(),
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		uc.logger.Error("checkout session failed",
			"provider", uc.provider.Name(), "staff_id", in.StaffID, "error", err)
		return nil, httperr.Wrap(httperr.CodePaymentProviderError, err)
	}

	uc.logger.Info("checkout session created",
		"provider", uc.provider.Name(), "session_id", session.ID, "staff_id", in.StaffID)

	return &CheckoutResult{
		CheckoutURL:   session.URL,
		SessionID:     session.ID,
		TotalPrice:    quote.TotalPrice,
		DepositAmount: quote.DepositAmount,
	}, nil
}

