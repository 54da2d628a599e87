package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/BruksfildServices01/salon-scheduler/internal/audit"
	"github.com/BruksfildServices01/salon-scheduler/internal/clock"
	"github.com/BruksfildServices01/salon-scheduler/internal/config"
	"github.com/BruksfildServices01/salon-scheduler/internal/middleware"
	"github.com/BruksfildServices01/salon-scheduler/internal/models"
	"github.com/BruksfildServices01/salon-scheduler/internal/testfixtures"
	"github.com/BruksfildServices01/salon-scheduler/internal/usecase/appointment"
	"github.com/BruksfildServices01/salon-scheduler/internal/usecase/customer"
	"github.com/BruksfildServices01/salon-scheduler/internal/usecase/payment"
	"github.com/BruksfildServices01/salon-scheduler/pkg/logging"
)

const testSecret = "test-secret"

// monday is 2025-06-02; the clock starts the evening before.
var monday = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *logging.Logger {
	return logging.NewWithWriter(io.Discard, "error")
}

// ======================================================
// PAYMENT PROVIDER FAKE
// ======================================================

type fakeProvider struct {
	sessions map[string]*payment.SessionStatus
	events   map[string]*payment.WebhookEvent
	created  []payment.CheckoutRequest
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		sessions: map[string]*payment.SessionStatus{},
		events:   map[string]*payment.WebhookEvent{},
	}
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) CreateCheckoutSession(_ context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	p.created = append(p.created, req)
	id := fmt.Sprintf("cs_%d", len(p.created))
	return &payment.CheckoutSession{ID: id, URL: "https://pay.test/" + id}, nil
}

func (p *fakeProvider) RetrieveSession(_ context.Context, id string) (*payment.SessionStatus, error) {
	s, ok := p.sessions[id]
	if !ok {
		return nil, errors.New("no such session")
	}
	return s, nil
}

func (p *fakeProvider) ParseWebhook(_ context.Context, payload []byte, _ http.Header) (*payment.WebhookEvent, error) {
	ev, ok := p.events[string(payload)]
	if !ok {
		return nil, fmt.Errorf("%w: bad signature", payment.ErrInvalidWebhook)
	}
	return ev, nil
}

// ======================================================
// BOOKING ENV
// ======================================================

type env struct {
	repo     *testfixtures.Repository
	notifier *testfixtures.Notifier
	provider *fakeProvider
	cfg      *config.Config
	router   *gin.Engine

	staff *models.User
	admin *models.User
	cut   *models.SalonService
	color *models.SalonService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	repo := testfixtures.NewRepository()
	notifier := &testfixtures.Notifier{}
	provider := newFakeProvider()
	clk := clock.NewFixed(monday.Add(-6 * time.Hour))
	log := quietLogger()
	cfg := &config.Config{JWTSecret: testSecret}

	staff := repo.AddStaff("Rita")
	admin := repo.AddUser("Owner", "owner@salon.test", models.RoleAdmin)
	cut := repo.AddService("Cut", 60, "40.00")
	color := repo.AddService("Color", 90, "80.00")
	repo.SetWorkingHours(staff.ID, time.Monday, "09:00", "18:00", true)

	availability := appointment.NewGetAvailability(repo, nil, 0, clk, time.UTC, nil, log)
	notifications := appointment.NewNotifications(notifier, time.Second, nil, log)
	resolver := customer.NewResolver(repo)

	reconciler := payment.NewReconciler(payment.ReconcilerDeps{
		Repo:           repo,
		Availability:   availability,
		Resolver:       resolver,
		Notifications:  notifications,
		Audit:          audit.Discard{},
		Provider:       provider,
		Clock:          clk,
		DepositPercent: 20,
		Logger:         log,
	})

	public := NewPublicHandler(
		nil,
		availability,
		appointment.NewCreateAppointment(repo, availability, resolver, notifications, audit.Discard{}, clk, 20, nil, log),
		payment.NewStartCheckout(repo, availability, provider, 20, "usd", time.Second, log),
		reconciler,
	)
	appointments := NewAppointmentHandler(
		appointment.NewCancelAppointment(repo, availability, notifications, audit.Discard{}, clk, nil),
		appointment.NewRescheduleAppointment(repo, availability, notifications, audit.Discard{}, nil),
		appointment.NewUpdateAppointmentStatus(repo, availability, notifications, audit.Discard{}, clk, nil),
		appointment.NewListAppointmentsByDate(repo, time.UTC),
		appointment.NewListAppointmentsByMonth(repo, time.UTC),
		time.UTC,
	)
	webhook := NewPaymentWebhookHandler(reconciler, log)

	r := gin.New()
	api := r.Group("/api")
	api.GET("/public/staff/:staffId/availability", public.Availability)
	api.GET("/public/checkout/verify", public.VerifyCheckout)
	api.POST("/public/appointments", middleware.OptionalAuth(cfg), public.CreateAppointment)
	api.POST("/public/checkout", middleware.OptionalAuth(cfg), public.StartCheckout)
	api.POST("/webhooks/payments", webhook.Handle)

	secured := api.Group("/", middleware.AuthMiddleware(cfg))
	secured.PATCH("/appointments/:id/cancel", appointments.Cancel)
	secured.PATCH("/appointments/:id/reschedule", appointments.Reschedule)

	salon := api.Group("/admin", middleware.AuthMiddleware(cfg), middleware.RequireRole(models.RoleAdmin, models.RoleStaff))
	salon.PATCH("/appointments/:id/status", appointments.UpdateStatus)
	salon.GET("/appointments", appointments.ListByDate)
	salon.GET("/appointments/month", appointments.ListByMonth)

	return &env{
		repo:     repo,
		notifier: notifier,
		provider: provider,
		cfg:      cfg,
		router:   r,
		staff:    staff,
		admin:    admin,
		cut:      cut,
		color:    color,
	}
}

func (e *env) token(t *testing.T, u *models.User) string {
	t.Helper()
	tok, err := middleware.IssueToken(testSecret, u.ID, u.Role, time.Hour)
	require.NoError(t, err)
	return tok
}

// customer registers an account with a linked customer profile.
func (e *env) customer(name string) *models.User {
	u := e.repo.AddUser(name, name+"@example.com", models.RoleCustomer)
	email := u.Email
	e.repo.AddCustomer(models.Customer{Name: name, Email: &email, UserID: &u.ID})
	return u
}

// ======================================================
// HTTP HELPERS
// ======================================================

func do(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewBuffer(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	code, _ := decode(t, w)["error_code"].(string)
	return code
}

// ======================================================
// SQLMOCK
// ======================================================

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return gdb, mock
}
