package models

import "time"

// WorkingHours holds one [StartTime, EndTime) interval per staff member and weekday.
// Times are "HH:mm" in the salon time zone.
type WorkingHours struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	StaffID uint `gorm:"not null;uniqueIndex:idx_working_hours_staff_day" json:"staff_id"`

	DayOfWeek int `gorm:"not null;uniqueIndex:idx_working_hours_staff_day" json:"day_of_week"`

	StartTime string `gorm:"size:5;not null" json:"start_time"`
	EndTime   string `gorm:"size:5;not null" json:"end_time"`
	IsActive  bool   `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
