package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	domain "github.com/BruksfildServices01/salon-scheduler/internal/domain/appointment"
	"github.com/BruksfildServices01/salon-scheduler/internal/httperr"
	"github.com/BruksfildServices01/salon-scheduler/internal/models"
)

type WorkingHoursHandler struct {
	db *gorm.DB
}

func NewWorkingHoursHandler(db *gorm.DB) *WorkingHoursHandler {
	return &WorkingHoursHandler{db: db}
}

type WorkingDayConfig struct {
	DayOfWeek int    `json:"day_of_week" binding:"min=0,max=6"`
	Active    bool   `json:"is_active"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type WorkingHoursUpdateRequest struct {
	Days []WorkingDayConfig `json:"days" binding:"required,dive"`
}

// validate requires well-formed HH:mm bounds with start before end on
// active days, and at most one entry per weekday.
func (r WorkingHoursUpdateRequest) validate() (string, bool) {
	seen := make(map[int]bool, len(r.Days))
	for _, d := range r.Days {
		if seen[d.DayOfWeek] {
			return "duplicate_day", false
		}
		seen[d.DayOfWeek] = true

		if !d.Active {
			continue
		}
		if !domain.ValidClock(d.StartTime) || !domain.ValidClock(d.EndTime) {
			return "invalid_time", false
		}
		if d.StartTime >= d.EndTime {
			return "invalid_interval", false
		}
	}
	return "", true
}

func (h *WorkingHoursHandler) staff(c *gin.Context) (uint, bool) {
	staffID, ok := parseUint(c.Param("staffId"))
	if !ok {
		httperr.BadRequest(c, "invalid_staff_id", "Invalid staff id.")
		return 0, false
	}

	var count int64
	if err := h.db.WithContext(c.Request.Context()).
		Model(&models.User{}).
		Where("id = ? AND role IN ?", staffID, []string{models.RoleStaff, models.RoleAdmin}).
		Count(&count).Error; err != nil {
		httperr.Internal(c, "failed_to_get_staff", "Could not load staff member.")
		return 0, false
	}
	if count == 0 {
		httperr.NotFound(c, httperr.CodeNotFound, "Staff member not found.")
		return 0, false
	}
	return staffID, true
}

func (h *WorkingHoursHandler) Get(c *gin.Context) {
	staffID, ok := h.staff(c)
	if !ok {
		return
	}

	var hours []models.WorkingHours
	if err := h.db.WithContext(c.Request.Context()).
		Where("staff_id = ?", staffID).
		Order("day_of_week ASC").
		Find(&hours).Error; err != nil {

		httperr.Internal(c, "failed_to_get_working_hours", "Could not load working hours.")
		return
	}

	c.JSON(http.StatusOK, hours)
}

// Update replaces the whole week. Inactive or omitted days get no row.
func (h *WorkingHoursHandler) Update(c *gin.Context) {
	staffID, ok := h.staff(c)
	if !ok {
		return
	}

	var req WorkingHoursUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid request body.")
		return
	}
	if code, ok := req.validate(); !ok {
		httperr.BadRequest(c, code, "Invalid working hours.")
		return
	}

	toCreate := make([]models.WorkingHours, 0, len(req.Days))
	for _, d := range req.Days {
		if !d.Active {
			continue
		}
		toCreate = append(toCreate, models.WorkingHours{
			StaffID:   staffID,
			DayOfWeek: d.DayOfWeek,
			IsActive:  true,
			StartTime: d.StartTime,
			EndTime:   d.EndTime,
		})
	}

	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("staff_id = ?", staffID).Delete(&models.WorkingHours{}).Error; err != nil {
			return err
		}
		if len(toCreate) == 0 {
			return nil
		}
		return tx.Create(&toCreate).Error
	})
	if err != nil {
		httperr.Internal(c, "failed_to_save_working_hours", "Could not save working hours.")
		return
	}

	c.JSON(http.StatusOK, toCreate)
}
