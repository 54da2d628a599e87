package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/BruksfildServices01/salon-scheduler/internal/domain/appointment"
	"github.com/BruksfildServices01/salon-scheduler/internal/httperr"
	"github.com/BruksfildServices01/salon-scheduler/internal/models"
)

func TestCreateGuestAppointment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	res, err := e.create.Execute(ctx, CreateAppointmentInput{
		StaffID:    e.staff.ID,
		ServiceIDs: []uint{e.cut.ID, e.color.ID},
		StartTime:  on(10, 0),
		Identity:   guest("ana@example.com"),
		Notes:      "  first visit ",
	})
	require.NoError(t, err)

	ap := res.Appointment
	assert.Equal(t, string(domain.StatusPending), ap.Status)
	assert.Equal(t, on(12, 30), ap.EndTime)
	assert.True(t, ap.TotalPrice.Equal(decimal.NewFromInt(120)))
	assert.True(t, ap.DepositAmount.Equal(decimal.NewFromInt(24)))
	assert.False(t, ap.DepositPaid)
	assert.Nil(t, ap.CustomerID)
	assert.Equal(t, "ana@example.com", *ap.GuestEmail)
	assert.Equal(t, "first visit", ap.Notes)
	require.Len(t, ap.Services, 2)
	assert.Equal(t, e.color.ID, ap.Services[1].ServiceID)
	assert.Empty(t, res.Warnings)

	require.Equal(t, []string{"confirmation"}, e.notifier.Kinds())
	sent := e.notifier.Sent[0]
	assert.Equal(t, "ana@example.com", sent.CustomerEmail)
	assert.Equal(t, []string{"Cut", "Color"}, sent.Services)
	assert.Equal(t, "Rita", sent.StaffName)
}

func TestCreateAuthenticatedLinksCustomer(t *testing.T) {
	e := newEnv(t)
	user := e.repo.AddUser("Bea", "bea@example.com", models.RoleCustomer)

	res, err := e.create.Execute(context.Background(), CreateAppointmentInput{
		StaffID:    e.staff.ID,
		ServiceIDs: []uint{e.cut.ID},
		StartTime:  on(9, 0),
		Identity:   domain.AuthenticatedIdentity{UserID: user.ID, Name: user.Name, Email: user.Email},
	})
	require.NoError(t, err)

	require.NotNil(t, res.Appointment.CustomerID)
	assert.Nil(t, res.Appointment.GuestName)
	assert.Nil(t, res.Appointment.GuestEmail)
	assert.Equal(t, "bea@example.com", e.notifier.Sent[0].CustomerEmail)
}

func TestSlotCreationConsistency(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seed(on(11, 0), 60, domain.StatusConfirmed, nil)
	e.clock.Set(on(9, 45))

	result, err := e.availability.Execute(ctx, domain.AvailabilityInput{
		StaffID:    e.staff.ID,
		Date:       monday,
		ServiceIDs: []uint{e.cut.ID},
	})
	require.NoError(t, err)

	for i, slot := range result.Slots {
		// fresh fixture each time so bookings do not interact
		f := newEnv(t)
		f.seed(on(11, 0), 60, domain.StatusConfirmed, nil)
		f.clock.Set(on(9, 45))

		_, err := f.create.Execute(ctx, CreateAppointmentInput{
			StaffID:    f.staff.ID,
			ServiceIDs: []uint{f.cut.ID},
			StartTime:  slot.Start,
			Identity:   guest("consistency@example.com"),
		})
		if slot.Available {
			assert.NoError(t, err, "slot %d %s", i, slot.Time)
		} else {
			assert.True(t, httperr.IsBusiness(err, httperr.CodeSlotUnavailable), "slot %d %s", i, slot.Time)
		}
	}
}

func TestCreateRejectsTakenSlot(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	in := CreateAppointmentInput{
		StaffID:    e.staff.ID,
		ServiceIDs: []uint{e.cut.ID},
		StartTime:  on(14, 0),
		Identity:   guest("first@example.com"),
	}

	_, err := e.create.Execute(ctx, in)
	require.NoError(t, err)

	in.Identity = guest("second@example.com")
	in.StartTime = on(14, 30)
	_, err = e.create.Execute(ctx, in)

	assert.True(t, httperr.IsBusiness(err, httperr.CodeSlotUnavailable))
	assert.Len(t, e.repo.Appointments(), 1)
}

func TestCreateAllowsTouchingBookings(t *testing.T) {
	e := newEnv(t)
	e.seed(on(10, 0), 60, domain.StatusPending, nil)
	e.seed(on(12, 0), 60, domain.StatusConfirmed, nil)

	_, err := e.create.Execute(context.Background(), CreateAppointmentInput{
		StaffID:    e.staff.ID,
		ServiceIDs: []uint{e.cut.ID},
		StartTime:  on(11, 0),
		Identity:   guest("between@example.com"),
	})

	assert.NoError(t, err)
}

func TestCreateIgnoresHistoricalAppointments(t *testing.T) {
	e := newEnv(t)
	for _, st := range []domain.Status{domain.StatusCancelled, domain.StatusCompleted, domain.StatusNoShow} {
		e.seed(on(10, 0), 60, st, nil)
	}

	_, err := e.create.Execute(context.Background(), CreateAppointmentInput{
		StaffID:    e.staff.ID,
		ServiceIDs: []uint{e.cut.ID},
		StartTime:  on(10, 0),
		Identity:   guest("reuse@example.com"),
	})

	assert.NoError(t, err)
}

func TestCreateLosesRaceToConcurrentBooking(t *testing.T) {
	e := newEnv(t)
	e.repo.BeforeCreate = func() {
		e.seed(on(10, 30), 30, domain.StatusPending, nil)
	}

	_, err := e.create.Execute(context.Background(), CreateAppointmentInput{
		StaffID:    e.staff.ID,
		ServiceIDs: []uint{e.cut.ID},
		StartTime:  on(10, 0),
		Identity:   guest("late@example.com"),
	})

	assert.True(t, httperr.IsBusiness(err, httperr.CodeSlotUnavailable))
	assert.Len(t, e.repo.Appointments(), 1)
	assert.Empty(t, e.notifier.Sent)
}

func TestCreateRejectsOffGridAndPastStarts(t *testing.T) {
	e := newEnv(t)
	e.clock.Set(on(12, 0))
	ctx := context.Background()

	for _, start := range []time.Time{on(13, 15), on(10, 0), on(17, 30), on(8, 30)} {
		_, err := e.create.Execute(ctx, CreateAppointmentInput{
			StaffID:    e.staff.ID,
			ServiceIDs: []uint{e.cut.ID},
			StartTime:  start,
			Identity:   guest("grid@example.com"),
		})
		assert.True(t, httperr.IsBusiness(err, httperr.CodeSlotUnavailable), start.Format("15:04"))
	}
	assert.Empty(t, e.repo.Appointments())
}

func TestCreateValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	base := CreateAppointmentInput{
		StaffID:    e.staff.ID,
		ServiceIDs: []uint{e.cut.ID},
		StartTime:  on(10, 0),
		Identity:   guest("ok@example.com"),
	}

	tests := []struct {
		name   string
		mutate func(*CreateAppointmentInput)
		code   string
	}{
		{"no services", func(in *CreateAppointmentInput) { in.ServiceIDs = nil }, httperr.CodeMissingFields},
		{"no staff", func(in *CreateAppointmentInput) { in.StaffID = 0 }, httperr.CodeMissingFields},
		{"no start", func(in *CreateAppointmentInput) { in.StartTime = time.Time{} }, httperr.CodeMissingFields},
		{"no identity", func(in *CreateAppointmentInput) { in.Identity = nil }, httperr.CodeMissingCustomerInfo},
		{"guest without email", func(in *CreateAppointmentInput) { in.Identity = domain.GuestIdentity{Name: "A"} }, httperr.CodeMissingCustomerInfo},
		{"guest bad email", func(in *CreateAppointmentInput) { in.Identity = guest("nope") }, httperr.CodeInvalidCustomerInfo},
		{"repeated service", func(in *CreateAppointmentInput) { in.ServiceIDs = []uint{e.cut.ID, e.cut.ID} }, httperr.CodeDuplicateService},
		{"unknown service", func(in *CreateAppointmentInput) { in.ServiceIDs = []uint{999} }, httperr.CodeNotFound},
		{"unknown staff", func(in *CreateAppointmentInput) { in.StaffID = 999 }, httperr.CodeNotFound},
		{"non-staff user", func(in *CreateAppointmentInput) {
			in.StaffID = e.repo.AddUser("Carla", "c@example.com", models.RoleCustomer).ID
		}, httperr.CodeNotFound},
		{"deposit flag without admin", func(in *CreateAppointmentInput) { in.DepositPaidOutOfBand = true }, httperr.CodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mutate(&in)
			_, err := e.create.Execute(ctx, in)
			assert.True(t, httperr.IsBusiness(err, tt.code), "got %v", err)
		})
	}
	assert.Empty(t, e.repo.Appointments())
}

func TestCreateAdminMarksDepositPaid(t *testing.T) {
	e := newEnv(t)
	admin := actorOf(e.admin)

	res, err := e.create.Execute(context.Background(), CreateAppointmentInput{
		StaffID:              e.staff.ID,
		ServiceIDs:           []uint{e.cut.ID},
		StartTime:            on(9, 0),
		Identity:             guest("walkin@example.com"),
		DepositPaidOutOfBand: true,
		Actor:                &admin,
	})

	require.NoError(t, err)
	assert.True(t, res.Appointment.DepositPaid)
	assert.Nil(t, res.Appointment.StripePaymentID)
}

func TestCreateNotificationFailureIsWarning(t *testing.T) {
	e := newEnv(t)
	e.notifier.Err = errors.New("smtp unavailable")

	res, err := e.create.Execute(context.Background(), CreateAppointmentInput{
		StaffID:    e.staff.ID,
		ServiceIDs: []uint{e.cut.ID},
		StartTime:  on(9, 0),
		Identity:   guest("warn@example.com"),
	})

	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "smtp unavailable")
	assert.Len(t, e.repo.Appointments(), 1)
}

func TestCreatePersistenceFailure(t *testing.T) {
	e := newEnv(t)
	e.repo.CreateErr = errors.New("connection refused")

	_, err := e.create.Execute(context.Background(), CreateAppointmentInput{
		StaffID:    e.staff.ID,
		ServiceIDs: []uint{e.cut.ID},
		StartTime:  on(9, 0),
		Identity:   guest("db@example.com"),
	})

	assert.True(t, httperr.IsBusiness(err, httperr.CodePersistenceFailure))
	assert.Empty(t, e.notifier.Sent)
}
