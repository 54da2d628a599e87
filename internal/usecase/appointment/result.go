package appointment

import (
	"github.com/BruksfildServices01/salon-scheduler/internal/models"
)

// Result is the outcome of a successful lifecycle operation.
type Result struct {
	Appointment    *models.Appointment `json:"appointment"`
	AlreadyExisted bool                `json:"already_existed"`
	Warnings       []string            `json:"warnings,omitempty"`
}
