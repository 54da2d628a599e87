package appointment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/BruksfildServices01/salon-scheduler/internal/clock"
	domain "github.com/BruksfildServices01/salon-scheduler/internal/domain/appointment"
	"github.com/BruksfildServices01/salon-scheduler/internal/httperr"
	"github.com/BruksfildServices01/salon-scheduler/internal/infra/cache"
	"github.com/BruksfildServices01/salon-scheduler/internal/metrics"
	"github.com/BruksfildServices01/salon-scheduler/internal/timezone"
	"github.com/BruksfildServices01/salon-scheduler/pkg/logging"
)

type AvailabilityResult struct {
	StaffID     uint          `json:"staff_id"`
	Date        string        `json:"date"`
	DurationMin int           `json:"duration_min"`
	Slots       []domain.Slot `json:"slots"`
}

type GetAvailability struct {
	repo     domain.Repository
	cache    cache.Cache
	cacheTTL time.Duration
	clock    clock.Clock
	loc      *time.Location
	metrics  *metrics.BookingMetrics
	logger   *logging.Logger
}

func NewGetAvailability(
	repo domain.Repository,
	c cache.Cache,
	cacheTTL time.Duration,
	clk clock.Clock,
	loc *time.Location,
	m *metrics.BookingMetrics,
	logger *logging.Logger,
) *GetAvailability {
	if c == nil {
		c = cache.NewNoop()
	}
	if clk == nil {
		clk = clock.System()
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &GetAvailability{
		repo:     repo,
		cache:    c,
		cacheTTL: cacheTTL,
		clock:    clk,
		loc:      loc,
		metrics:  m,
		logger:   logger,
	}
}

func (uc *GetAvailability) Location() *time.Location {
	return uc.loc
}

// Execute answers an advisory availability query. Busy intervals may come
// from the cache.
func (uc *GetAvailability) Execute(
	ctx context.Context,
	in domain.AvailabilityInput,
) (*AvailabilityResult, error) {

	started := time.Now()

	if in.StaffID == 0 || in.Date.IsZero() {
		return nil, httperr.ErrBusiness(httperr.CodeMissingFields)
	}

	if _, err := uc.repo.GetStaff(ctx, in.StaffID); err != nil {
		return nil, err
	}

	duration := in.Duration
	if len(in.ServiceIDs) > 0 {
		services, err := uc.repo.GetServices(ctx, in.ServiceIDs)
		if err != nil {
			return nil, err
		}
		duration = domain.ComputeQuote(services, 0).Duration
	}
	if duration <= 0 {
		return nil, httperr.ErrBusiness(httperr.CodeMissingFields)
	}

	date := in.Date.In(uc.loc)
	slots, hit, err := uc.slots(ctx, in.StaffID, date, duration, 0, true)
	if err != nil {
		return nil, err
	}

	uc.metrics.ObserveAvailability(hit, time.Since(started).Seconds())

	return &AvailabilityResult{
		StaffID:     in.StaffID,
		Date:        date.Format(timezone.DateLayout),
		DurationMin: int(duration / time.Minute),
		Slots:       slots,
	}, nil
}

// Fresh computes slots straight from the ledger. excludeID ignores one
// appointment's own interval.
func (uc *GetAvailability) Fresh(
	ctx context.Context,
	staffID uint,
	date time.Time,
	duration time.Duration,
	excludeID uint,
) ([]domain.Slot, error) {
	slots, _, err := uc.slots(ctx, staffID, date.In(uc.loc), duration, excludeID, false)
	return slots, err
}

// IsAvailable re-validates one exact start time against fresh data.
func (uc *GetAvailability) IsAvailable(
	ctx context.Context,
	staffID uint,
	start time.Time,
	duration time.Duration,
	excludeID uint,
) (bool, error) {
	slots, err := uc.Fresh(ctx, staffID, start, duration, excludeID)
	if err != nil {
		return false, err
	}
	return domain.IsSlotAvailable(slots, start), nil
}

// Invalidate drops cached busy intervals for the staff member's day of t.
func (uc *GetAvailability) Invalidate(ctx context.Context, staffID uint, t ...time.Time) {
	keys := make([]string, 0, len(t))
	for _, ts := range t {
		keys = append(keys, cacheKey(staffID, ts.In(uc.loc)))
	}
	if err := uc.cache.Delete(ctx, keys...); err != nil {
		uc.logger.Warn("availability cache invalidation failed", "staff_id", staffID, "error", err)
	}
}

func (uc *GetAvailability) slots(
	ctx context.Context,
	staffID uint,
	date time.Time,
	duration time.Duration,
	excludeID uint,
	useCache bool,
) ([]domain.Slot, bool, error) {

	wh, err := uc.repo.GetWorkingHours(ctx, staffID, int(date.Weekday()))
	if err != nil {
		return nil, false, httperr.Wrap(httperr.CodePersistenceFailure, err)
	}
	if wh == nil || !wh.IsActive {
		return []domain.Slot{}, false, nil
	}

	dayStart, dayEnd := timezone.DayBounds(date, uc.loc)

	var busy []domain.Interval
	hit := false
	if useCache && excludeID == 0 {
		busy, hit = uc.cachedBusy(ctx, staffID, date)
	}
	if !hit {
		busy, err = uc.repo.FindActiveAppointments(ctx, staffID, dayStart, dayEnd, excludeID)
		if err != nil {
			return nil, false, httperr.Wrap(httperr.CodePersistenceFailure, err)
		}
		if useCache && excludeID == 0 {
			uc.storeBusy(ctx, staffID, date, busy)
		}
	}

	return domain.ComputeSlots(wh, dayStart, duration, busy, uc.clock.Now()), hit, nil
}

func cacheKey(staffID uint, date time.Time) string {
	return fmt.Sprintf("availability:%d:%s", staffID, date.Format(timezone.DateLayout))
}

func (uc *GetAvailability) cachedBusy(ctx context.Context, staffID uint, date time.Time) ([]domain.Interval, bool) {
	raw, ok, err := uc.cache.Get(ctx, cacheKey(staffID, date))
	if err != nil {
		uc.logger.Warn("availability cache read failed", "staff_id", staffID, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var busy []domain.Interval
	if err := json.Unmarshal(raw, &busy); err != nil {
		return nil, false
	}
	return busy, true
}

func (uc *GetAvailability) storeBusy(ctx context.Context, staffID uint, date time.Time, busy []domain.Interval) {
	if uc.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(busy)
	if err != nil {
		return
	}
	if err := uc.cache.Set(ctx, cacheKey(staffID, date), raw, uc.cacheTTL); err != nil {
		uc.logger.Warn("availability cache write failed", "staff_id", staffID, "error", err)
	}
}
