package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Appointment struct {
	ID uint `gorm:"primaryKey" json:"id"`

	StaffID uint `gorm:"not null;index" json:"staff_id"`
	Staff   User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`

	CustomerID *uint     `gorm:"index" json:"customer_id"`
	Customer   *Customer `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"customer,omitempty"`

	// Guest fields are set only when CustomerID is nil.
	GuestName  *string `gorm:"size:100" json:"guest_name"`
	GuestEmail *string `gorm:"size:100" json:"guest_email"`
	GuestPhone *string `gorm:"size:20" json:"guest_phone"`

	StartTime time.Time `gorm:"not null" json:"start_time"`
	EndTime   time.Time `gorm:"not null" json:"end_time"`

	Status string `gorm:"size:20;not null;default:'PENDING';index" json:"status"`

	TotalPrice      decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total_price"`
	DepositAmount   decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"deposit_amount"`
	DepositPaid     bool            `gorm:"not null;default:false" json:"deposit_paid"`
	StripePaymentID *string         `gorm:"size:255;uniqueIndex" json:"stripe_payment_id"`

	Notes string `gorm:"size:255" json:"notes"`

	Services []AppointmentService `gorm:"constraint:OnDelete:CASCADE;" json:"services"`

	ConfirmedAt *time.Time `json:"confirmed_at"`
	CancelledAt *time.Time `json:"cancelled_at"`
	CompletedAt *time.Time `json:"completed_at"`
	NoShowAt    *time.Time `json:"no_show_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AppointmentService links an appointment to one of its services, in booking order.
type AppointmentService struct {
	AppointmentID uint         `gorm:"primaryKey" json:"appointment_id"`
	ServiceID     uint         `gorm:"primaryKey" json:"service_id"`
	Service       SalonService `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"service"`
	Position      int          `gorm:"not null" json:"position"`
}

// ContactName returns the linked customer's name or the guest name.
func (a *Appointment) ContactName() string {
	if a.Customer != nil {
		return a.Customer.Name
	}
	if a.GuestName != nil {
		return *a.GuestName
	}
	return ""
}

// ContactEmail returns the linked customer's email or the guest email.
func (a *Appointment) ContactEmail() string {
	if a.Customer != nil {
		return a.Customer.EmailValue()
	}
	if a.GuestEmail != nil {
		return *a.GuestEmail
	}
	return ""
}
