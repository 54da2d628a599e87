package models

import "time"

// Customer is created lazily on first booking. Guests have no UserID.
type Customer struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Name  string  `gorm:"size:100;not null" json:"name"`
	Email *string `gorm:"size:100;index" json:"email"`
	Phone *string `gorm:"size:20" json:"phone"`

	UserID *uint `gorm:"uniqueIndex" json:"user_id"`
	User   *User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Customer) EmailValue() string {
	if c == nil || c.Email == nil {
		return ""
	}
	return *c.Email
}
