package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/BruksfildServices01/salon-scheduler/internal/domain/appointment"
	"github.com/BruksfildServices01/salon-scheduler/internal/httperr"
	"github.com/BruksfildServices01/salon-scheduler/internal/models"
)

type AppointmentGormRepository struct {
	db *gorm.DB
}

func NewAppointmentGormRepository(db *gorm.DB) *AppointmentGormRepository {
	return &AppointmentGormRepository{db: db}
}

var activeStatuses = domain.StatusStrings(domain.ActiveStatuses)

// paymentRefIndex is the unique index gorm derives for Appointment.StripePaymentID.
const paymentRefIndex = "idx_appointments_stripe_payment_id"

// mapWriteError converts store errors into booking business errors.
func mapWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case httperr.IsExclusionConflict(err):
		return httperr.Wrap(httperr.CodeSlotUnavailable, err)
	case httperr.IsUniqueViolation(err, paymentRefIndex):
		return httperr.Wrap(httperr.CodeReconciliationConflict, err)
	case errors.As(err, new(httperr.BusinessError)):
		return err
	default:
		return httperr.Wrap(httperr.CodePersistenceFailure, err)
	}
}

// --------------------------------------------------
// Working hours
// --------------------------------------------------

func (r *AppointmentGormRepository) GetWorkingHours(
	ctx context.Context,
	staffID uint,
	dayOfWeek int,
) (*models.WorkingHours, error) {

	var wh models.WorkingHours
	err := r.db.WithContext(ctx).
		Where("staff_id = ? AND day_of_week = ?", staffID, dayOfWeek).
		First(&wh).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &wh, nil
}

// --------------------------------------------------
// Catalog
// --------------------------------------------------

func (r *AppointmentGormRepository) GetServices(
	ctx context.Context,
	ids []uint,
) ([]models.SalonService, error) {

	if len(ids) == 0 {
		return nil, httperr.ErrBusiness(httperr.CodeMissingFields)
	}

	var found []models.SalonService
	if err := r.db.WithContext(ctx).
		Where("id IN ? AND active = ?", ids, true).
		Find(&found).Error; err != nil {
		return nil, err
	}

	byID := make(map[uint]models.SalonService, len(found))
	for _, s := range found {
		byID[s.ID] = s
	}

	out := make([]models.SalonService, 0, len(ids))
	for _, id := range ids {
		s, ok := byID[id]
		if !ok {
			return nil, httperr.ErrBusiness(httperr.CodeNotFound)
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *AppointmentGormRepository) GetStaff(
	ctx context.Context,
	id uint,
) (*models.User, error) {

	var user models.User
	err := r.db.WithContext(ctx).
		Where("id = ? AND role IN ?", id, []string{models.RoleStaff, models.RoleAdmin}).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, httperr.ErrBusiness(httperr.CodeNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// --------------------------------------------------
// Customers
// --------------------------------------------------

func (r *AppointmentGormRepository) FindCustomerByUserID(
	ctx context.Context,
	userID uint,
) (*models.Customer, error) {
	return r.findCustomer(ctx, "user_id = ?", userID)
}

// FindCustomerByEmail matches the stored email exactly (case-sensitive).
func (r *AppointmentGormRepository) FindCustomerByEmail(
	ctx context.Context,
	email string,
) (*models.Customer, error) {
	return r.findCustomer(ctx, "email = ?", email)
}

func (r *AppointmentGormRepository) findCustomer(
	ctx context.Context,
	query string,
	arg any,
) (*models.Customer, error) {

	var c models.Customer
	err := r.db.WithContext(ctx).
		Where(query, arg).
		Order("id ASC").
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *AppointmentGormRepository) CreateCustomer(
	ctx context.Context,
	c *models.Customer,
) error {
	err := r.db.WithContext(ctx).Create(c).Error
	if httperr.IsUniqueViolation(err) {
		return domain.ErrCustomerExists
	}
	return err
}

func (r *AppointmentGormRepository) GetUser(
	ctx context.Context,
	id uint,
) (*models.User, error) {

	var user models.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, httperr.ErrBusiness(httperr.CodeNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// --------------------------------------------------
// Appointment (create / conflict)
// --------------------------------------------------

func (r *AppointmentGormRepository) FindActiveAppointments(
	ctx context.Context,
	staffID uint,
	from time.Time,
	to time.Time,
	excludeID uint,
) ([]domain.Interval, error) {

	q := r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Select("start_time", "end_time").
		Where(
			"staff_id = ? AND status IN ? AND start_time >= ? AND start_time < ?",
			staffID, activeStatuses, from, to,
		)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}

	var apps []models.Appointment
	if err := q.Order("start_time ASC").Find(&apps).Error; err != nil {
		return nil, err
	}

	out := make([]domain.Interval, 0, len(apps))
	for _, ap := range apps {
		out = append(out, domain.Interval{Start: ap.StartTime, End: ap.EndTime})
	}
	return out, nil
}

// lockConflicts re-reads overlapping active rows under FOR UPDATE.
func lockConflicts(
	tx *gorm.DB,
	staffID uint,
	start time.Time,
	end time.Time,
	excludeID uint,
) error {

	q := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where(
			"staff_id = ? AND status IN ? AND start_time < ? AND end_time > ?",
			staffID, activeStatuses, end, start,
		)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}

	var conflicts []models.Appointment
	if err := q.Find(&conflicts).Error; err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return httperr.ErrBusiness(httperr.CodeSlotUnavailable)
	}
	return nil
}

func (r *AppointmentGormRepository) CreateAppointment(
	ctx context.Context,
	ap *models.Appointment,
) error {

	links := ap.Services

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockConflicts(tx, ap.StaffID, ap.StartTime, ap.EndTime, 0); err != nil {
			return err
		}

		if err := tx.Omit("Services", "Customer", "Staff").Create(ap).Error; err != nil {
			return err
		}

		for i := range links {
			links[i].AppointmentID = ap.ID
		}
		if len(links) > 0 {
			if err := tx.Omit("Service").Create(&links).Error; err != nil {
				return err
			}
		}
		return nil
	})

	ap.Services = links
	if err != nil {
		ap.ID = 0
	}
	return mapWriteError(err)
}

// --------------------------------------------------
// Appointment (state change)
// --------------------------------------------------

func (r *AppointmentGormRepository) GetAppointment(
	ctx context.Context,
	id uint,
) (*models.Appointment, error) {

	var ap models.Appointment
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Staff").
		Preload("Services", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Services.Service").
		First(&ap, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, httperr.ErrBusiness(httperr.CodeNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &ap, nil
}

func (r *AppointmentGormRepository) FindByStripePaymentID(
	ctx context.Context,
	ref string,
) (*models.Appointment, error) {

	var ap models.Appointment
	err := r.db.WithContext(ctx).
		Where("stripe_payment_id = ?", ref).
		First(&ap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ap, nil
}

func (r *AppointmentGormRepository) UpdateAppointmentStatus(
	ctx context.Context,
	id uint,
	from domain.Status,
	to domain.Status,
	at time.Time,
) error {

	updates := map[string]any{
		"status":     string(to),
		"updated_at": at,
	}
	if col := domain.TimestampColumn(to); col != "" {
		updates[col] = at
	}

	res := r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(updates)
	if res.Error != nil {
		return mapWriteError(res.Error)
	}
	if res.RowsAffected == 0 {
		return httperr.ErrBusiness(httperr.CodeInvalidTransition)
	}
	return nil
}

func (r *AppointmentGormRepository) UpdateAppointmentTime(
	ctx context.Context,
	id uint,
	staffID uint,
	start time.Time,
	end time.Time,
) error {

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ap models.Appointment
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&ap, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return httperr.ErrBusiness(httperr.CodeNotFound)
			}
			return err
		}

		if err := domain.CanReschedule(domain.Status(ap.Status)); err != nil {
			return err
		}

		if err := lockConflicts(tx, staffID, start, end, ap.ID); err != nil {
			return err
		}

		return tx.Model(&models.Appointment{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"staff_id":   staffID,
				"start_time": start,
				"end_time":   end,
			}).Error
	})

	return mapWriteError(err)
}

// --------------------------------------------------
// Listings
// --------------------------------------------------

func (r *AppointmentGormRepository) ListAppointmentsForPeriod(
	ctx context.Context,
	staffID uint,
	start time.Time,
	end time.Time,
) ([]models.Appointment, error) {

	var apps []models.Appointment

	err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Services", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Services.Service").
		Where(
			"staff_id = ? AND start_time >= ? AND start_time < ?",
			staffID,
			start,
			end,
		).
		Order("start_time ASC").
		Find(&apps).Error

	if err != nil {
		return nil, err
	}

	return apps, nil
}

// Compile-time check
var _ domain.Repository = (*AppointmentGormRepository)(nil)
