package handlers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/BruksfildServices01/salon-scheduler/internal/domain/appointment"
	"github.com/BruksfildServices01/salon-scheduler/internal/httperr"
	"github.com/BruksfildServices01/salon-scheduler/internal/models"
	"github.com/BruksfildServices01/salon-scheduler/internal/usecase/payment"
)

func (e *env) availabilityPath(query string) string {
	return fmt.Sprintf("/api/public/staff/%d/availability?%s", e.staff.ID, query)
}

func (e *env) booking(hm string, extra map[string]any) map[string]any {
	body := map[string]any{
		"staff_id":    e.staff.ID,
		"service_ids": []uint{e.cut.ID},
		"date":        "2025-06-02",
		"time":        hm,
	}
	for k, v := range extra {
		body[k] = v
	}
	return body
}

var guestFields = map[string]any{
	"guest_name":  "Ana",
	"guest_email": "ana@example.com",
	"guest_phone": "555-0101",
}

// ======================================================
// AVAILABILITY
// ======================================================

func TestAvailabilityEndpoint(t *testing.T) {
	e := newEnv(t)

	w := do(e.router, http.MethodGet, e.availabilityPath(fmt.Sprintf("date=2025-06-02&service_ids=%d", e.cut.ID)), "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	slots := body["slots"].([]any)
	assert.Len(t, slots, 17)
	assert.Equal(t, "09:00", slots[0].(map[string]any)["time"])
	assert.Equal(t, "17:00", slots[16].(map[string]any)["time"])
	assert.EqualValues(t, 60, body["duration_min"])

	w = do(e.router, http.MethodGet, e.availabilityPath("date=2025-06-02&duration=90"), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["slots"].([]any), 16)
}

func TestAvailabilityEndpointRejectsBadInput(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name   string
		path   string
		status int
		code   string
	}{
		{"missing date", e.availabilityPath("duration=60"), http.StatusBadRequest, httperr.CodeMissingFields},
		{"bad date", e.availabilityPath("date=02/06/2025&duration=60"), http.StatusBadRequest, "invalid_date"},
		{"bad service ids", e.availabilityPath("date=2025-06-02&service_ids=a,b"), http.StatusBadRequest, "invalid_service_ids"},
		{"bad duration", e.availabilityPath("date=2025-06-02&duration=-5"), http.StatusBadRequest, "invalid_duration"},
		{"no duration", e.availabilityPath("date=2025-06-02"), http.StatusBadRequest, httperr.CodeMissingFields},
		{"unknown staff", "/api/public/staff/999/availability?date=2025-06-02&duration=60", http.StatusNotFound, httperr.CodeNotFound},
		{"bad staff id", "/api/public/staff/abc/availability?date=2025-06-02&duration=60", http.StatusBadRequest, "invalid_staff_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(e.router, http.MethodGet, tt.path, "", nil)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}
}

// ======================================================
// CREATE
// ======================================================

func TestCreateAppointmentAsGuest(t *testing.T) {
	e := newEnv(t)

	w := do(e.router, http.MethodPost, "/api/public/appointments", "", e.booking("10:00", guestFields))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	ap := decode(t, w)["appointment"].(map[string]any)
	assert.Equal(t, string(domain.StatusPending), ap["status"])
	assert.Equal(t, false, ap["deposit_paid"])

	stored := e.repo.Appointments()
	require.Len(t, stored, 1)
	assert.Nil(t, stored[0].CustomerID)
	require.NotNil(t, stored[0].GuestEmail)
	assert.Equal(t, "ana@example.com", *stored[0].GuestEmail)
	assert.True(t, stored[0].StartTime.Equal(monday.Add(10*time.Hour)))
	assert.Equal(t, []string{"confirmation"}, e.notifier.Kinds())

	w = do(e.router, http.MethodPost, "/api/public/appointments", "", e.booking("10:30", guestFields))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, httperr.CodeSlotUnavailable, errorCode(t, w))
}

func TestCreateAppointmentAcceptsRFC3339Start(t *testing.T) {
	e := newEnv(t)

	body := e.booking("", guestFields)
	delete(body, "date")
	delete(body, "time")
	body["start_time"] = "2025-06-02T13:30:00Z"

	w := do(e.router, http.MethodPost, "/api/public/appointments", "", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, e.repo.Appointments()[0].StartTime.Equal(monday.Add(13*time.Hour+30*time.Minute)))
}

func TestCreateAppointmentAuthenticatedCustomer(t *testing.T) {
	e := newEnv(t)
	user := e.customer("bea")

	w := do(e.router, http.MethodPost, "/api/public/appointments", e.token(t, user), e.booking("11:00", nil))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	stored := e.repo.Appointments()
	require.Len(t, stored, 1)
	require.NotNil(t, stored[0].CustomerID)
	assert.Nil(t, stored[0].GuestName)
}

func TestCreateAppointmentErrors(t *testing.T) {
	e := newEnv(t)
	customerToken := e.token(t, e.customer("carl"))

	tests := []struct {
		name   string
		token  string
		body   any
		status int
		code   string
	}{
		{"malformed json", "", `{"staff_id":`, http.StatusBadRequest, "invalid_request"},
		{"bad time", "", e.booking("25:99", guestFields), http.StatusBadRequest, "invalid_date_or_time"},
		{"no start", "", map[string]any{"staff_id": e.staff.ID, "service_ids": []uint{e.cut.ID}}, http.StatusBadRequest, httperr.CodeMissingFields},
		{"no services", "", map[string]any{"staff_id": e.staff.ID, "date": "2025-06-02", "time": "10:00"}, http.StatusBadRequest, httperr.CodeMissingFields},
		{"repeated service", "", map[string]any{"staff_id": e.staff.ID, "service_ids": []uint{e.cut.ID, e.cut.ID}, "date": "2025-06-02", "time": "10:00", "guest_name": "Ana", "guest_email": "ana@example.com"}, http.StatusBadRequest, httperr.CodeDuplicateService},
		{"guest without details", "", e.booking("10:00", nil), http.StatusBadRequest, httperr.CodeMissingCustomerInfo},
		{"guest bad email", "", e.booking("10:00", map[string]any{"guest_name": "Ana", "guest_email": "nope"}), http.StatusBadRequest, httperr.CodeInvalidCustomerInfo},
		{"off grid", "", e.booking("10:15", guestFields), http.StatusConflict, httperr.CodeSlotUnavailable},
		{"customer marks deposit paid", customerToken, e.booking("10:00", map[string]any{"deposit_paid": true}), http.StatusForbidden, httperr.CodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(e.router, http.MethodPost, "/api/public/appointments", tt.token, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}

	assert.Empty(t, e.repo.Appointments())
}

func TestCreateAppointmentRejectsInvalidToken(t *testing.T) {
	e := newEnv(t)

	w := do(e.router, http.MethodPost, "/api/public/appointments", "not-a-token", e.booking("10:00", guestFields))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, e.repo.Appointments())
}

func TestAdminBooksGuestWithDepositPaid(t *testing.T) {
	e := newEnv(t)

	body := e.booking("09:00", guestFields)
	body["deposit_paid"] = true

	w := do(e.router, http.MethodPost, "/api/public/appointments", e.token(t, e.admin), body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	stored := e.repo.Appointments()
	require.Len(t, stored, 1)
	assert.True(t, stored[0].DepositPaid)
	assert.Nil(t, stored[0].CustomerID)
	assert.Equal(t, "Ana", *stored[0].GuestName)
}

// ======================================================
// LIFECYCLE
// ======================================================

func (e *env) seedFor(customerID *uint, start time.Time) *models.Appointment {
	ap := models.Appointment{
		StaffID:       e.staff.ID,
		CustomerID:    customerID,
		StartTime:     start,
		EndTime:       start.Add(time.Hour),
		Status:        string(domain.StatusPending),
		TotalPrice:    decimal.NewFromInt(40),
		DepositAmount: decimal.NewFromInt(8),
		Services:      []models.AppointmentService{{ServiceID: e.cut.ID}},
	}
	if customerID == nil {
		name, email := "Walk In", "walkin@example.com"
		ap.GuestName, ap.GuestEmail = &name, &email
	}
	return e.repo.Insert(ap)
}

func (e *env) customerID(t *testing.T, u *models.User) *uint {
	t.Helper()
	for _, c := range e.repo.Customers() {
		if c.UserID != nil && *c.UserID == u.ID {
			id := c.ID
			return &id
		}
	}
	t.Fatalf("no customer for user %d", u.ID)
	return nil
}

func TestCancelEndpoint(t *testing.T) {
	e := newEnv(t)
	owner := e.customer("dora")
	other := e.customer("eve")
	ap := e.seedFor(e.customerID(t, owner), monday.Add(10*time.Hour))
	path := fmt.Sprintf("/api/appointments/%d/cancel", ap.ID)

	w := do(e.router, http.MethodPatch, path, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(e.router, http.MethodPatch, path, e.token(t, other), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, httperr.CodeForbidden, errorCode(t, w))

	w = do(e.router, http.MethodPatch, path, e.token(t, owner), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, string(domain.StatusCancelled), decode(t, w)["appointment"].(map[string]any)["status"])

	w = do(e.router, http.MethodPatch, path, e.token(t, owner), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, httperr.CodeInvalidTransition, errorCode(t, w))

	w = do(e.router, http.MethodPatch, "/api/appointments/abc/cancel", e.token(t, owner), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_appointment_id", errorCode(t, w))
}

func TestRescheduleEndpoint(t *testing.T) {
	e := newEnv(t)
	owner := e.customer("fay")
	ap := e.seedFor(e.customerID(t, owner), monday.Add(10*time.Hour))
	e.seedFor(nil, monday.Add(14*time.Hour))
	path := fmt.Sprintf("/api/appointments/%d/reschedule", ap.ID)
	tok := e.token(t, owner)

	w := do(e.router, http.MethodPatch, path, tok, map[string]any{"date": "2025-06-02", "time": "14:30"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, httperr.CodeSlotUnavailable, errorCode(t, w))

	w = do(e.router, http.MethodPatch, path, tok, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, httperr.CodeMissingFields, errorCode(t, w))

	w = do(e.router, http.MethodPatch, path, tok, map[string]any{"start_time": "2025-06-02T16:00:00Z", "staff_id": 999})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(e.router, http.MethodPatch, path, tok, map[string]any{"start_time": "2025-06-02T16:00:00Z"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	moved := e.repo.Appointments()[0]
	assert.True(t, moved.StartTime.Equal(monday.Add(16*time.Hour)))
	assert.True(t, moved.EndTime.Equal(monday.Add(17*time.Hour)))
	assert.Contains(t, e.notifier.Kinds(), "reschedule")
}

func TestUpdateStatusEndpoint(t *testing.T) {
	e := newEnv(t)
	owner := e.customer("gil")
	ap := e.seedFor(e.customerID(t, owner), monday.Add(10*time.Hour))
	path := fmt.Sprintf("/api/admin/appointments/%d/status", ap.ID)

	w := do(e.router, http.MethodPatch, path, e.token(t, owner), map[string]any{"status": "CONFIRMED"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(e.router, http.MethodPatch, path, e.token(t, e.admin), map[string]any{"status": "LATE"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_status", errorCode(t, w))

	w = do(e.router, http.MethodPatch, path, e.token(t, e.staff), map[string]any{"status": "CONFIRMED"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(e.router, http.MethodPatch, path, e.token(t, e.admin), map[string]any{"status": "NO_SHOW"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, string(domain.StatusNoShow), e.repo.Appointments()[0].Status)

	w = do(e.router, http.MethodPatch, path, e.token(t, e.admin), map[string]any{"status": "CONFIRMED"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, httperr.CodeInvalidTransition, errorCode(t, w))
}

func TestListEndpoints(t *testing.T) {
	e := newEnv(t)
	e.seedFor(nil, monday.Add(10*time.Hour))
	e.seedFor(nil, monday.Add(12*time.Hour))

	w := do(e.router, http.MethodGet, "/api/admin/appointments?date=2025-06-02", e.token(t, e.staff), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.EqualValues(t, 2, body["total"])

	w = do(e.router, http.MethodGet, fmt.Sprintf("/api/admin/appointments?date=2025-06-03&staff_id=%d", e.staff.ID), e.token(t, e.admin), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["total"])

	w = do(e.router, http.MethodGet, fmt.Sprintf("/api/admin/appointments/month?staff_id=%d&year=2025&month=6", e.staff.ID), e.token(t, e.admin), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["appointments"].([]any), 2)

	w = do(e.router, http.MethodGet, "/api/admin/appointments/month?year=2025", e.token(t, e.admin), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, httperr.CodeMissingFields, errorCode(t, w))

	w = do(e.router, http.MethodGet, "/api/admin/appointments?staff_id=x", e.token(t, e.admin), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ======================================================
// CHECKOUT + RECONCILIATION
// ======================================================

func (e *env) paidSession(id, ref string, start time.Time) {
	meta := payment.NewBookingMetadata(e.staff.ID, []uint{e.cut.ID}, start, "", domain.GuestIdentity{
		Name:  "Hana",
		Email: "hana@example.com",
	})
	e.provider.sessions[id] = &payment.SessionStatus{
		SessionID:        id,
		Paid:             true,
		PaymentReference: ref,
		Metadata:         meta.Encode(),
	}
}

func TestStartCheckoutEndpoint(t *testing.T) {
	e := newEnv(t)

	w := do(e.router, http.MethodPost, "/api/public/checkout", "", e.booking("15:00", guestFields))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "cs_1", body["session_id"])
	assert.Equal(t, "https://pay.test/cs_1", body["checkout_url"])

	require.Len(t, e.provider.created, 1)
	assert.True(t, e.provider.created[0].Amount.Equal(decimal.NewFromInt(8)))
	assert.Empty(t, e.repo.Appointments())
}

func TestVerifyCheckoutEndpoint(t *testing.T) {
	e := newEnv(t)
	e.paidSession("cs_paid", "pi_1", monday.Add(11*time.Hour))
	e.provider.sessions["cs_open"] = &payment.SessionStatus{SessionID: "cs_open"}

	w := do(e.router, http.MethodGet, "/api/public/checkout/verify", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, httperr.CodeMissingFields, errorCode(t, w))

	w = do(e.router, http.MethodGet, "/api/public/checkout/verify?session_id=cs_open", "", nil)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, httperr.CodePaymentNotCompleted, errorCode(t, w))

	w = do(e.router, http.MethodGet, "/api/public/checkout/verify?session_id=cs_paid", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode(t, w)
	assert.Equal(t, false, first["already_existed"])
	ap := first["appointment"].(map[string]any)
	assert.Equal(t, string(domain.StatusConfirmed), ap["status"])
	assert.Equal(t, true, ap["deposit_paid"])

	w = do(e.router, http.MethodGet, "/api/public/checkout/verify?payment_id=cs_paid", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["already_existed"])

	assert.Len(t, e.repo.Appointments(), 1)
}

func TestPaymentWebhookEndpoint(t *testing.T) {
	e := newEnv(t)
	start := monday.Add(9 * time.Hour)
	meta := payment.NewBookingMetadata(e.staff.ID, []uint{e.cut.ID}, start, "", domain.GuestIdentity{
		Name:  "Iris",
		Email: "iris@example.com",
	}).Encode()

	e.provider.events["paid"] = &payment.WebhookEvent{
		ID:   "evt_1",
		Type: "checkout.session.completed",
		Confirmation: &payment.Confirmation{
			PaymentReference: "pi_9",
			Metadata:         meta,
		},
	}
	e.provider.events["noise"] = &payment.WebhookEvent{ID: "evt_2", Type: "customer.created"}
	e.provider.events["pending"] = &payment.WebhookEvent{ID: "evt_3", Type: "payment", SessionID: "cs_open"}
	e.provider.sessions["cs_open"] = &payment.SessionStatus{SessionID: "cs_open"}

	w := do(e.router, http.MethodPost, "/api/webhooks/payments", "", "forged")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_webhook", errorCode(t, w))

	w = do(e.router, http.MethodPost, "/api/webhooks/payments", "", "noise")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ignored", decode(t, w)["status"])

	w = do(e.router, http.MethodPost, "/api/webhooks/payments", "", "pending")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pending", decode(t, w)["status"])

	w = do(e.router, http.MethodPost, "/api/webhooks/payments", "", "paid")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "reconciled", body["status"])
	assert.Equal(t, false, body["already_existed"])

	w = do(e.router, http.MethodPost, "/api/webhooks/payments", "", "paid")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["already_existed"])

	stored := e.repo.Appointments()
	require.Len(t, stored, 1)
	require.NotNil(t, stored[0].StripePaymentID)
	assert.Equal(t, "pi_9", *stored[0].StripePaymentID)
	require.NotNil(t, stored[0].CustomerID)
}

func TestPaymentWebhookReportsBadMetadata(t *testing.T) {
	e := newEnv(t)
	e.provider.events["broken"] = &payment.WebhookEvent{
		ID:   "evt_1",
		Type: "checkout.session.completed",
		Confirmation: &payment.Confirmation{
			PaymentReference: "pi_bad",
			Metadata:         map[string]string{payment.MetaStaffID: "zero"},
		},
	}

	w := do(e.router, http.MethodPost, "/api/webhooks/payments", "", "broken")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, httperr.CodeInvalidPaymentMetadata, errorCode(t, w))
	assert.Empty(t, e.repo.Appointments())
}
