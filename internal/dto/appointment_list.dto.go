package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/BruksfildServices01/salon-scheduler/internal/models"
)

type AppointmentListDTO struct {
	ID            uint            `json:"id"`
	StartTime     time.Time       `json:"start_time"`
	EndTime       time.Time       `json:"end_time"`
	Status        string          `json:"status"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	Guest         bool            `json:"guest"`
	Services      []string        `json:"services"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	DepositPaid   bool            `json:"deposit_paid"`
}

func NewAppointmentListDTO(ap *models.Appointment) AppointmentListDTO {
	out := AppointmentListDTO{
		ID:            ap.ID,
		StartTime:     ap.StartTime,
		EndTime:       ap.EndTime,
		Status:        ap.Status,
		CustomerName:  ap.ContactName(),
		CustomerEmail: ap.ContactEmail(),
		Guest:         ap.CustomerID == nil,
		Services:      make([]string, 0, len(ap.Services)),
		TotalPrice:    ap.TotalPrice,
		DepositPaid:   ap.DepositPaid,
	}
	for _, link := range ap.Services {
		out.Services = append(out.Services, link.Service.Name)
	}
	return out
}
