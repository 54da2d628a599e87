package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	domain "github.com/BruksfildServices01/salon-scheduler/internal/domain/appointment"
	"github.com/BruksfildServices01/salon-scheduler/internal/httperr"
	"github.com/BruksfildServices01/salon-scheduler/internal/httpresp"
	"github.com/BruksfildServices01/salon-scheduler/internal/middleware"
	"github.com/BruksfildServices01/salon-scheduler/internal/timezone"
	"github.com/BruksfildServices01/salon-scheduler/internal/usecase/appointment"
)

// ======================================================
// HANDLER
// ======================================================

type AppointmentHandler struct {
	cancel       *appointment.CancelAppointment
	reschedule   *appointment.RescheduleAppointment
	updateStatus *appointment.UpdateAppointmentStatus
	listByDate   *appointment.ListAppointmentsByDate
	listByMonth  *appointment.ListAppointmentsByMonth
	loc          *time.Location
}

func NewAppointmentHandler(
	cancel *appointment.CancelAppointment,
	reschedule *appointment.RescheduleAppointment,
	updateStatus *appointment.UpdateAppointmentStatus,
	listByDate *appointment.ListAppointmentsByDate,
	listByMonth *appointment.ListAppointmentsByMonth,
	loc *time.Location,
) *AppointmentHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AppointmentHandler{
		cancel:       cancel,
		reschedule:   reschedule,
		updateStatus: updateStatus,
		listByDate:   listByDate,
		listByMonth:  listByMonth,
		loc:          loc,
	}
}

// ======================================================
// REQUESTS
// ======================================================

type RescheduleRequest struct {
	StartTime string `json:"start_time"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	StaffID   uint   `json:"staff_id"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ======================================================
// HELPERS
// ======================================================

func writeResult(c *gin.Context, status int, res *appointment.Result) {
	c.JSON(status, res)
}

func appointmentID(c *gin.Context) (uint, bool) {
	id, ok := parseUint(c.Param("id"))
	if !ok {
		httperr.BadRequest(c, "invalid_appointment_id", "Invalid appointment id.")
	}
	return id, ok
}

func requireActor(c *gin.Context) (domain.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httperr.Unauthorized(c, "unauthorized", "Authentication required.")
	}
	return actor, ok
}

// ======================================================
// CANCEL
// ======================================================

func (h *AppointmentHandler) Cancel(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := appointmentID(c)
	if !ok {
		return
	}

	res, err := h.cancel.Execute(c.Request.Context(), actor, id)
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	writeResult(c, http.StatusOK, res)
}

// ======================================================
// RESCHEDULE
// ======================================================

func (h *AppointmentHandler) Reschedule(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := appointmentID(c)
	if !ok {
		return
	}

	var req RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid request body.")
		return
	}

	start, err := parseStart(h.loc, req.StartTime, req.Date, req.Time)
	if err != nil {
		if err == errNoStartTime {
			httperr.FromError(c, httperr.ErrBusiness(httperr.CodeMissingFields))
			return
		}
		httperr.BadRequest(c, "invalid_date_or_time", "Invalid date or time.")
		return
	}

	res, err := h.reschedule.Execute(c.Request.Context(), actor, appointment.RescheduleAppointmentInput{
		AppointmentID: id,
		StartTime:     start,
		StaffID:       req.StaffID,
	})
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	writeResult(c, http.StatusOK, res)
}

// ======================================================
// STATUS (ADMIN / STAFF)
// ======================================================

func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := appointmentID(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.FromError(c, httperr.ErrBusiness(httperr.CodeMissingFields))
		return
	}

	to, ok := domain.ParseStatus(req.Status)
	if !ok {
		httperr.BadRequest(c, "invalid_status", "Unknown appointment status.")
		return
	}

	res, err := h.updateStatus.Execute(c.Request.Context(), actor, id, to)
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	writeResult(c, http.StatusOK, res)
}

// ======================================================
// LIST BY DATE
// ======================================================

// staffFilter defaults to the caller when staff_id is omitted.
func staffFilter(c *gin.Context) (uint, bool) {
	raw := c.Query("staff_id")
	if raw == "" {
		return c.GetUint(middleware.ContextUserID), true
	}
	id, ok := parseUint(raw)
	if !ok {
		httperr.BadRequest(c, "invalid_staff_id", "Invalid staff id.")
	}
	return id, ok
}

func (h *AppointmentHandler) ListByDate(c *gin.Context) {
	staffID, ok := staffFilter(c)
	if !ok {
		return
	}

	dateStr := c.Query("date")
	if dateStr == "" {
		dateStr = time.Now().In(h.loc).Format(timezone.DateLayout)
	}

	date, err := timezone.ParseDate(dateStr, h.loc)
	if err != nil {
		httperr.BadRequest(c, "invalid_date", "Invalid date.")
		return
	}

	items, err := h.listByDate.Execute(c.Request.Context(), staffID, date)
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	httpresp.List(c, items)
}

// ======================================================
// LIST BY MONTH
// ======================================================

func (h *AppointmentHandler) ListByMonth(c *gin.Context) {
	staffID, ok := staffFilter(c)
	if !ok {
		return
	}

	yearStr := c.Query("year")
	monthStr := c.Query("month")
	if yearStr == "" || monthStr == "" {
		httperr.FromError(c, httperr.ErrBusiness(httperr.CodeMissingFields))
		return
	}

	year, err := strconv.Atoi(yearStr)
	if err != nil {
		httperr.BadRequest(c, "invalid_year", "Invalid year.")
		return
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil {
		httperr.BadRequest(c, "invalid_month", "Invalid month.")
		return
	}

	items, err := h.listByMonth.Execute(c.Request.Context(), staffID, year, month)
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"staff_id":     staffID,
		"year":         year,
		"month":        month,
		"appointments": items,
	})
}
