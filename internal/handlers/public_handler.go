package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	domain "github.com/BruksfildServices01/salon-scheduler/internal/domain/appointment"
	"github.com/BruksfildServices01/salon-scheduler/internal/httperr"
	"github.com/BruksfildServices01/salon-scheduler/internal/httpresp"
	"github.com/BruksfildServices01/salon-scheduler/internal/middleware"
	"github.com/BruksfildServices01/salon-scheduler/internal/models"
	"github.com/BruksfildServices01/salon-scheduler/internal/timezone"
	"github.com/BruksfildServices01/salon-scheduler/internal/usecase/appointment"
	"github.com/BruksfildServices01/salon-scheduler/internal/usecase/payment"
)

////////////////////////////////////////////////////////
// HANDLER
////////////////////////////////////////////////////////

type PublicHandler struct {
	db           *gorm.DB
	availability *appointment.GetAvailability
	create       *appointment.CreateAppointment
	checkout     *payment.StartCheckout
	reconciler   *payment.Reconciler
}

func NewPublicHandler(
	db *gorm.DB,
	availability *appointment.GetAvailability,
	create *appointment.CreateAppointment,
	checkout *payment.StartCheckout,
	reconciler *payment.Reconciler,
) *PublicHandler {
	return &PublicHandler{
		db:           db,
		availability: availability,
		create:       create,
		checkout:     checkout,
		reconciler:   reconciler,
	}
}

////////////////////////////////////////////////////////
// DTOs
////////////////////////////////////////////////////////

// BookingRequest is shared by direct bookings and deposit checkouts.
// start_time (RFC3339) wins over date + time.
type BookingRequest struct {
	StaffID    uint   `json:"staff_id"`
	ServiceIDs []uint `json:"service_ids"`
	StartTime  string `json:"start_time"`
	Date       string `json:"date"` // YYYY-MM-DD
	Time       string `json:"time"` // HH:mm
	Notes      string `json:"notes"`

	GuestName  string `json:"guest_name"`
	GuestEmail string `json:"guest_email"`
	GuestPhone string `json:"guest_phone"`

	DepositPaid bool `json:"deposit_paid"`
}

type StaffMember struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// identity picks the bearer's account unless a staff member or admin is
// booking on behalf of a guest.
func (r BookingRequest) identity(actor domain.Actor, authenticated bool) domain.Identity {
	guest := domain.GuestIdentity{
		Name:  r.GuestName,
		Email: r.GuestEmail,
		Phone: r.GuestPhone,
	}
	if !authenticated {
		return guest
	}
	if actor.Role != models.RoleCustomer && (r.GuestName != "" || r.GuestEmail != "") {
		return guest
	}
	return domain.AuthenticatedIdentity{UserID: actor.UserID, Phone: r.GuestPhone}
}

func (h *PublicHandler) bindBooking(c *gin.Context) (BookingRequest, time.Time, bool) {
	var req BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid request body.")
		return req, time.Time{}, false
	}

	start, err := parseStart(h.availability.Location(), req.StartTime, req.Date, req.Time)
	if err == errNoStartTime {
		// the use case reports missing_fields for a zero start
		return req, time.Time{}, true
	}
	if err != nil {
		httperr.BadRequest(c, "invalid_date_or_time", "Invalid date or time.")
		return req, time.Time{}, false
	}
	return req, start, true
}

////////////////////////////////////////////////////////
// CATALOG
////////////////////////////////////////////////////////

func (h *PublicHandler) ListServices(c *gin.Context) {
	category := strings.TrimSpace(strings.ToLower(c.Query("category")))

	q := h.db.WithContext(c.Request.Context()).Where("active = ?", true)
	if category != "" {
		q = q.Where("LOWER(category) = ?", category)
	}

	var services []models.SalonService
	if err := q.Order("id ASC").Find(&services).Error; err != nil {
		httperr.Internal(c, "failed_to_list_services", "Could not list services.")
		return
	}

	httpresp.List(c, services)
}

func (h *PublicHandler) ListStaff(c *gin.Context) {
	var users []models.User
	if err := h.db.WithContext(c.Request.Context()).
		Where("role IN ?", []string{models.RoleStaff, models.RoleAdmin}).
		Order("name ASC").
		Find(&users).Error; err != nil {
		httperr.Internal(c, "failed_to_list_staff", "Could not list staff.")
		return
	}

	out := make([]StaffMember, 0, len(users))
	for _, u := range users {
		out = append(out, StaffMember{ID: u.ID, Name: u.Name})
	}
	httpresp.List(c, out)
}

////////////////////////////////////////////////////////
// AVAILABILITY
////////////////////////////////////////////////////////

func (h *PublicHandler) Availability(c *gin.Context) {
	staffID, ok := parseUint(c.Param("staffId"))
	if !ok {
		httperr.BadRequest(c, "invalid_staff_id", "Invalid staff id.")
		return
	}

	dateStr := c.Query("date")
	if dateStr == "" {
		httperr.FromError(c, httperr.ErrBusiness(httperr.CodeMissingFields))
		return
	}
	date, err := timezone.ParseDate(dateStr, h.availability.Location())
	if err != nil {
		httperr.BadRequest(c, "invalid_date", "Invalid date.")
		return
	}

	in := domain.AvailabilityInput{StaffID: staffID, Date: date}

	if raw := c.Query("service_ids"); raw != "" {
		ids, err := parseIDList(raw)
		if err != nil {
			httperr.BadRequest(c, "invalid_service_ids", "Invalid service ids.")
			return
		}
		in.ServiceIDs = ids
	} else if raw := c.Query("duration"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			httperr.BadRequest(c, "invalid_duration", "Invalid duration.")
			return
		}
		in.Duration = time.Duration(minutes) * time.Minute
	}

	res, err := h.availability.Execute(c.Request.Context(), in)
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	httpresp.OK(c, res)
}

////////////////////////////////////////////////////////
// CREATE APPOINTMENT
////////////////////////////////////////////////////////

func (h *PublicHandler) CreateAppointment(c *gin.Context) {
	req, start, ok := h.bindBooking(c)
	if !ok {
		return
	}

	actor, authenticated := middleware.ActorFrom(c)

	in := appointment.CreateAppointmentInput{
		StaffID:              req.StaffID,
		ServiceIDs:           req.ServiceIDs,
		StartTime:            start,
		Identity:             req.identity(actor, authenticated),
		Notes:                req.Notes,
		DepositPaidOutOfBand: req.DepositPaid,
	}
	if authenticated {
		in.Actor = &actor
	}

	res, err := h.create.Execute(c.Request.Context(), in)
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	writeResult(c, http.StatusCreated, res)
}

////////////////////////////////////////////////////////
// CHECKOUT
////////////////////////////////////////////////////////

func (h *PublicHandler) StartCheckout(c *gin.Context) {
	req, start, ok := h.bindBooking(c)
	if !ok {
		return
	}

	actor, authenticated := middleware.ActorFrom(c)

	res, err := h.checkout.Execute(c.Request.Context(), payment.StartCheckoutInput{
		StaffID:    req.StaffID,
		ServiceIDs: req.ServiceIDs,
		StartTime:  start,
		Identity:   req.identity(actor, authenticated),
		Notes:      req.Notes,
	})
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

// VerifyCheckout is the fallback for clients returning from checkout before
// the provider's webhook arrived. payment_id is accepted for providers that
// redirect with a payment id instead of a session id.
func (h *PublicHandler) VerifyCheckout(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		sessionID = c.Query("payment_id")
	}

	res, err := h.reconciler.VerifySession(c.Request.Context(), sessionID)
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	writeResult(c, http.StatusOK, res)
}
