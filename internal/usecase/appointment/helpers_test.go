package appointment

import (
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/BruksfildServices01/salon-scheduler/internal/audit"
	"github.com/BruksfildServices01/salon-scheduler/internal/clock"
	domain "github.com/BruksfildServices01/salon-scheduler/internal/domain/appointment"
	"github.com/BruksfildServices01/salon-scheduler/internal/infra/cache"
	"github.com/BruksfildServices01/salon-scheduler/internal/models"
	"github.com/BruksfildServices01/salon-scheduler/internal/testfixtures"
	"github.com/BruksfildServices01/salon-scheduler/internal/usecase/customer"
	"github.com/BruksfildServices01/salon-scheduler/pkg/logging"
)

// monday is 2025-06-02; the clock starts the day before.
var monday = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func on(h, m int) time.Time {
	return monday.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

type env struct {
	repo         *testfixtures.Repository
	notifier     *testfixtures.Notifier
	clock        *clock.Fixed
	availability *GetAvailability
	create       *CreateAppointment
	cancel       *CancelAppointment
	reschedule   *RescheduleAppointment
	status       *UpdateAppointmentStatus

	staff *models.User
	admin *models.User
	cut   *models.SalonService
	color *models.SalonService
}

func newEnv(t *testing.T) *env {
	return newEnvWithCache(t, cache.NewNoop())
}

func newEnvWithCache(t *testing.T, c cache.Cache) *env {
	t.Helper()

	repo := testfixtures.NewRepository()
	notifier := &testfixtures.Notifier{}
	clk := clock.NewFixed(monday.Add(-16 * time.Hour))
	logger := logging.NewWithWriter(io.Discard, "error")

	staff := repo.AddStaff("Rita")
	admin := repo.AddUser("Owner", "owner@salon.test", models.RoleAdmin)
	cut := repo.AddService("Cut", 60, "40.00")
	color := repo.AddService("Color", 90, "80.00")
	repo.SetWorkingHours(staff.ID, time.Monday, "09:00", "18:00", true)

	availability := NewGetAvailability(repo, c, time.Minute, clk, time.UTC, nil, logger)
	notifications := NewNotifications(notifier, time.Second, nil, logger)
	resolver := customer.NewResolver(repo)

	return &env{
		repo:         repo,
		notifier:     notifier,
		clock:        clk,
		availability: availability,
		create:       NewCreateAppointment(repo, availability, resolver, notifications, audit.Discard{}, clk, 20, nil, logger),
		cancel:       NewCancelAppointment(repo, availability, notifications, audit.Discard{}, clk, nil),
		reschedule:   NewRescheduleAppointment(repo, availability, notifications, audit.Discard{}, nil),
		status:       NewUpdateAppointmentStatus(repo, availability, notifications, audit.Discard{}, clk, nil),
		staff:        staff,
		admin:        admin,
		cut:          cut,
		color:        color,
	}
}

func guest(email string) domain.GuestIdentity {
	return domain.GuestIdentity{Name: "Guest", Email: email, Phone: "555-0100"}
}

// seed stores an appointment directly, bypassing validation.
func (e *env) seed(start time.Time, minutes int, status domain.Status, customerID *uint) *models.Appointment {
	email := "seed@example.com"
	ap := models.Appointment{
		StaffID:       e.staff.ID,
		StartTime:     start,
		EndTime:       start.Add(time.Duration(minutes) * time.Minute),
		Status:        string(status),
		TotalPrice:    decimal.NewFromInt(40),
		DepositAmount: decimal.NewFromInt(8),
		Services:      []models.AppointmentService{{ServiceID: e.cut.ID}},
	}
	if customerID != nil {
		ap.CustomerID = customerID
	} else {
		name := "Seeded Guest"
		ap.GuestName, ap.GuestEmail = &name, &email
	}
	return e.repo.Insert(ap)
}

// customerFor creates a customer linked to a new account.
func (e *env) customerFor(name string) (*models.User, *models.Customer) {
	user := e.repo.AddUser(name, name+"@example.com", models.RoleCustomer)
	email := user.Email
	c := e.repo.AddCustomer(models.Customer{Name: name, Email: &email, UserID: &user.ID})
	return user, c
}

func actorOf(u *models.User) domain.Actor {
	return domain.Actor{UserID: u.ID, Role: u.Role}
}
