package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/salon-scheduler/internal/dto"
	"github.com/BruksfildServices01/salon-scheduler/internal/httperr"
	"github.com/BruksfildServices01/salon-scheduler/internal/middleware"
	"github.com/BruksfildServices01/salon-scheduler/internal/models"
)

const meAppointmentsLimit = 50

type MeHandler struct {
	db *gorm.DB
}

func NewMeHandler(db *gorm.DB) *MeHandler {
	return &MeHandler{db: db}
}

// GetMe returns the account, its customer profile once one exists, and the
// customer's most recent appointments.
func (h *MeHandler) GetMe(c *gin.Context) {
	userIDVal, exists := c.Get(middleware.ContextUserID)
	if !exists {
		httperr.Unauthorized(c, "user_not_in_context", "Authentication required.")
		return
	}

	userID, ok := userIDVal.(uint)
	if !ok {
		httperr.Unauthorized(c, "invalid_user_id_type", "Authentication required.")
		return
	}

	db := h.db.WithContext(c.Request.Context())

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httperr.NotFound(c, "user_not_found", "User not found.")
			return
		}
		httperr.Internal(c, "internal_error", "Unexpected error.")
		return
	}

	var customer *models.Customer
	var found models.Customer
	err := db.Where("user_id = ?", userID).First(&found).Error
	switch {
	case err == nil:
		customer = &found
	case !errors.Is(err, gorm.ErrRecordNotFound):
		httperr.Internal(c, "internal_error", "Unexpected error.")
		return
	}

	appointments := []dto.AppointmentListDTO{}
	if customer != nil {
		var rows []models.Appointment
		if err := db.
			Preload("Customer").
			Preload("Services", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
			Preload("Services.Service").
			Where("customer_id = ?", customer.ID).
			Order("start_time DESC").
			Limit(meAppointmentsLimit).
			Find(&rows).Error; err != nil {
			httperr.Internal(c, "internal_error", "Unexpected error.")
			return
		}
		for i := range rows {
			appointments = append(appointments, dto.NewAppointmentListDTO(&rows[i]))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"user":         userResponse(&user),
		"customer":     customer,
		"appointments": appointments,
	})
}
