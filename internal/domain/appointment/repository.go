package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/BruksfildServices01/salon-scheduler/internal/models"
)

// ErrCustomerExists is returned by CustomerStore.CreateCustomer when a
// concurrent request already created the same customer.
var ErrCustomerExists = errors.New("customer already exists")

// WorkingHoursProvider returns nil, nil when the staff member has no row for the day.
type WorkingHoursProvider interface {
	GetWorkingHours(
		ctx context.Context,
		staffID uint,
		dayOfWeek int,
	) (*models.WorkingHours, error)
}

type BookingLedger interface {
	// FindActiveAppointments returns PENDING/CONFIRMED intervals starting in [from, to).
	// excludeID skips one appointment (0 skips none).
	FindActiveAppointments(
		ctx context.Context,
		staffID uint,
		from time.Time,
		to time.Time,
		excludeID uint,
	) ([]Interval, error)

	// CreateAppointment persists ap and its service links atomically and
	// fails with slot_unavailable if an overlapping active row exists.
	CreateAppointment(
		ctx context.Context,
		ap *models.Appointment,
	) error

	GetAppointment(
		ctx context.Context,
		id uint,
	) (*models.Appointment, error)

	// FindByStripePaymentID returns nil, nil when no appointment carries ref.
	FindByStripePaymentID(
		ctx context.Context,
		ref string,
	) (*models.Appointment, error)

	// UpdateAppointmentStatus applies from → to only if the row is still in from.
	UpdateAppointmentStatus(
		ctx context.Context,
		id uint,
		from Status,
		to Status,
		at time.Time,
	) error

	// UpdateAppointmentTime moves an active appointment to staffID and a new
	// interval, rejecting overlaps with that staff member's active appointments.
	UpdateAppointmentTime(
		ctx context.Context,
		id uint,
		staffID uint,
		start time.Time,
		end time.Time,
	) error

	ListAppointmentsForPeriod(
		ctx context.Context,
		staffID uint,
		start time.Time,
		end time.Time,
	) ([]models.Appointment, error)
}

// CustomerStore lookups return nil, nil when nothing matches.
type CustomerStore interface {
	FindCustomerByUserID(ctx context.Context, userID uint) (*models.Customer, error)
	FindCustomerByEmail(ctx context.Context, email string) (*models.Customer, error)
	CreateCustomer(ctx context.Context, c *models.Customer) error
	GetUser(ctx context.Context, id uint) (*models.User, error)
}

type Catalog interface {
	// GetServices returns active services in the order of ids, or not_found.
	GetServices(ctx context.Context, ids []uint) ([]models.SalonService, error)

	// GetStaff returns a user with a staff or admin role, or not_found.
	GetStaff(ctx context.Context, id uint) (*models.User, error)
}

type Repository interface {
	WorkingHoursProvider
	BookingLedger
	CustomerStore
	Catalog
}
