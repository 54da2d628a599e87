// Package testfixtures provides in-memory collaborators for use case tests.
package testfixtures

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/BruksfildServices01/salon-scheduler/internal/domain/appointment"
	"github.com/BruksfildServices01/salon-scheduler/internal/httperr"
	"github.com/BruksfildServices01/salon-scheduler/internal/models"
)

// Repository is an in-memory domain.Repository that enforces the same
// overlap and payment-reference uniqueness rules as the postgres schema.
type Repository struct {
	mu sync.Mutex

	users        map[uint]*models.User
	services     map[uint]*models.SalonService
	workingHours map[[2]uint]*models.WorkingHours
	customers    []*models.Customer
	appointments map[uint]*models.Appointment
	nextID       uint

	// BeforeCreate runs inside CreateAppointment before the conflict check.
	BeforeCreate func()
	// CreateErr, when set, is returned by CreateAppointment.
	CreateErr error
	// CustomerRace makes the next CreateCustomer fail with ErrCustomerExists
	// after storing the customer, as if another request won the race.
	CustomerRace bool
}

func NewRepository() *Repository {
	return &Repository{
		users:        map[uint]*models.User{},
		services:     map[uint]*models.SalonService{},
		workingHours: map[[2]uint]*models.WorkingHours{},
		appointments: map[uint]*models.Appointment{},
	}
}

func (r *Repository) id() uint {
	r.nextID++
	return r.nextID
}

// --------------------------------------------------
// Seeding
// --------------------------------------------------

func (r *Repository) AddUser(name, email, role string) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := &models.User{ID: r.id(), Name: name, Email: email, Role: role}
	r.users[u.ID] = u
	return u
}

func (r *Repository) AddStaff(name string) *models.User {
	return r.AddUser(name, name+"@salon.test", models.RoleStaff)
}

func (r *Repository) AddService(name string, durationMin int, price string) *models.SalonService {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &models.SalonService{
		ID:          r.id(),
		Name:        name,
		DurationMin: durationMin,
		Price:       decimal.RequireFromString(price),
		Active:      true,
	}
	r.services[s.ID] = s
	return s
}

func (r *Repository) SetWorkingHours(staffID uint, day time.Weekday, start, end string, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workingHours[[2]uint{staffID, uint(day)}] = &models.WorkingHours{
		ID:        r.id(),
		StaffID:   staffID,
		DayOfWeek: int(day),
		StartTime: start,
		EndTime:   end,
		IsActive:  active,
	}
}

// Insert stores ap without any checks.
func (r *Repository) Insert(ap models.Appointment) *models.Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	ap.ID = r.id()
	stored := ap
	r.appointments[ap.ID] = &stored
	return r.snapshot(&stored)
}

func (r *Repository) AddCustomer(c models.Customer) *models.Customer {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = r.id()
	stored := c
	r.customers = append(r.customers, &stored)
	cp := stored
	return &cp
}

// --------------------------------------------------
// Inspection
// --------------------------------------------------

func (r *Repository) Appointments() []models.Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Appointment, 0, len(r.appointments))
	for _, ap := range r.appointments {
		out = append(out, *r.snapshot(ap))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Repository) Customers() []models.Customer {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Customer, 0, len(r.customers))
	for _, c := range r.customers {
		out = append(out, *c)
	}
	return out
}

// snapshot copies ap and fills its associations.
func (r *Repository) snapshot(ap *models.Appointment) *models.Appointment {
	cp := *ap
	cp.Services = make([]models.AppointmentService, len(ap.Services))
	for i, link := range ap.Services {
		if s, ok := r.services[link.ServiceID]; ok {
			link.Service = *s
		}
		cp.Services[i] = link
	}
	if u, ok := r.users[ap.StaffID]; ok {
		cp.Staff = *u
	}
	cp.Customer = nil
	if ap.CustomerID != nil {
		for _, c := range r.customers {
			if c.ID == *ap.CustomerID {
				cust := *c
				cp.Customer = &cust
			}
		}
	}
	return &cp
}

// --------------------------------------------------
// domain.WorkingHoursProvider
// --------------------------------------------------

func (r *Repository) GetWorkingHours(_ context.Context, staffID uint, dayOfWeek int) (*models.WorkingHours, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wh, ok := r.workingHours[[2]uint{staffID, uint(dayOfWeek)}]
	if !ok {
		return nil, nil
	}
	cp := *wh
	return &cp, nil
}

// --------------------------------------------------
// domain.Catalog
// --------------------------------------------------

func (r *Repository) GetServices(_ context.Context, ids []uint) ([]models.SalonService, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(ids) == 0 {
		return nil, httperr.ErrBusiness(httperr.CodeMissingFields)
	}
	out := make([]models.SalonService, 0, len(ids))
	for _, id := range ids {
		s, ok := r.services[id]
		if !ok || !s.Active {
			return nil, httperr.ErrBusiness(httperr.CodeNotFound)
		}
		out = append(out, *s)
	}
	return out, nil
}

func (r *Repository) GetStaff(_ context.Context, id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || !u.IsStaff() {
		return nil, httperr.ErrBusiness(httperr.CodeNotFound)
	}
	cp := *u
	return &cp, nil
}

// --------------------------------------------------
// domain.CustomerStore
// --------------------------------------------------

func (r *Repository) FindCustomerByUserID(_ context.Context, userID uint) (*models.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.customers {
		if c.UserID != nil && *c.UserID == userID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *Repository) FindCustomerByEmail(_ context.Context, email string) (*models.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.customers {
		if c.Email != nil && *c.Email == email {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *Repository) CreateCustomer(_ context.Context, c *models.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.UserID != nil {
		for _, existing := range r.customers {
			if existing.UserID != nil && *existing.UserID == *c.UserID {
				return domain.ErrCustomerExists
			}
		}
	}
	c.ID = r.id()
	stored := *c
	r.customers = append(r.customers, &stored)
	if r.CustomerRace {
		r.CustomerRace = false
		c.ID = 0
		return domain.ErrCustomerExists
	}
	return nil
}

func (r *Repository) GetUser(_ context.Context, id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, httperr.ErrBusiness(httperr.CodeNotFound)
	}
	cp := *u
	return &cp, nil
}

// --------------------------------------------------
// domain.BookingLedger
// --------------------------------------------------

func (r *Repository) FindActiveAppointments(
	_ context.Context,
	staffID uint,
	from time.Time,
	to time.Time,
	excludeID uint,
) ([]domain.Interval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Interval
	for _, ap := range r.appointments {
		if ap.StaffID != staffID || ap.ID == excludeID || !domain.Status(ap.Status).IsActive() {
			continue
		}
		if ap.StartTime.Before(from) || !ap.StartTime.Before(to) {
			continue
		}
		out = append(out, domain.Interval{Start: ap.StartTime, End: ap.EndTime})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (r *Repository) conflicts(staffID uint, start, end time.Time, excludeID uint) bool {
	want := domain.Interval{Start: start, End: end}
	for _, ap := range r.appointments {
		if ap.StaffID != staffID || ap.ID == excludeID || !domain.Status(ap.Status).IsActive() {
			continue
		}
		if want.Overlaps(domain.Interval{Start: ap.StartTime, End: ap.EndTime}) {
			return true
		}
	}
	return false
}

func (r *Repository) CreateAppointment(_ context.Context, ap *models.Appointment) error {
	if r.BeforeCreate != nil {
		hook := r.BeforeCreate
		r.BeforeCreate = nil
		hook()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CreateErr != nil {
		return r.CreateErr
	}
	// Overlap is checked before the payment reference, in the same order as
	// the gorm repository.
	if domain.Status(ap.Status).IsActive() && r.conflicts(ap.StaffID, ap.StartTime, ap.EndTime, 0) {
		return httperr.ErrBusiness(httperr.CodeSlotUnavailable)
	}
	if ap.StripePaymentID != nil {
		for _, existing := range r.appointments {
			if existing.StripePaymentID != nil && *existing.StripePaymentID == *ap.StripePaymentID {
				return httperr.ErrBusiness(httperr.CodeReconciliationConflict)
			}
		}
	}

	ap.ID = r.id()
	for i := range ap.Services {
		ap.Services[i].AppointmentID = ap.ID
	}
	stored := *ap
	stored.Services = append([]models.AppointmentService(nil), ap.Services...)
	stored.Customer = nil
	r.appointments[ap.ID] = &stored
	return nil
}

func (r *Repository) GetAppointment(_ context.Context, id uint) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ap, ok := r.appointments[id]
	if !ok {
		return nil, httperr.ErrBusiness(httperr.CodeNotFound)
	}
	return r.snapshot(ap), nil
}

func (r *Repository) FindByStripePaymentID(_ context.Context, ref string) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ap := range r.appointments {
		if ap.StripePaymentID != nil && *ap.StripePaymentID == ref {
			return r.snapshot(ap), nil
		}
	}
	return nil, nil
}

func (r *Repository) UpdateAppointmentStatus(
	_ context.Context,
	id uint,
	from domain.Status,
	to domain.Status,
	at time.Time,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ap, ok := r.appointments[id]
	if !ok || ap.Status != string(from) {
		return httperr.ErrBusiness(httperr.CodeInvalidTransition)
	}
	return domain.Apply(ap, to, at)
}

func (r *Repository) UpdateAppointmentTime(_ context.Context, id, staffID uint, start, end time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ap, ok := r.appointments[id]
	if !ok {
		return httperr.ErrBusiness(httperr.CodeNotFound)
	}
	if err := domain.CanReschedule(domain.Status(ap.Status)); err != nil {
		return err
	}
	if r.conflicts(staffID, start, end, id) {
		return httperr.ErrBusiness(httperr.CodeSlotUnavailable)
	}
	ap.StaffID = staffID
	ap.StartTime, ap.EndTime = start, end
	return nil
}

func (r *Repository) ListAppointmentsForPeriod(
	_ context.Context,
	staffID uint,
	start time.Time,
	end time.Time,
) ([]models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Appointment
	for _, ap := range r.appointments {
		if ap.StaffID == staffID && !ap.StartTime.Before(start) && ap.StartTime.Before(end) {
			out = append(out, *r.snapshot(ap))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

var _ domain.Repository = (*Repository)(nil)
