package payment

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	domain "github.com/BruksfildServices01/salon-scheduler/internal/domain/appointment"
	"github.com/BruksfildServices01/salon-scheduler/internal/httperr"
)

const (
	MetaStaffID    = "staff_id"
	MetaServiceIDs = "service_ids"
	MetaStartTime  = "start_time"
	MetaNotes      = "notes"
	MetaUserID     = "user_id"
	MetaGuestName  = "guest_name"
	MetaGuestEmail = "guest_email"
	MetaGuestPhone = "guest_phone"
)

// BookingMetadata is the booking request carried through a checkout session.
type BookingMetadata struct {
	StaffID    uint
	ServiceIDs []uint
	StartTime  time.Time
	Notes      string
	UserID     uint
	GuestName  string
	GuestEmail string
	GuestPhone string
}

func NewBookingMetadata(
	staffID uint,
	serviceIDs []uint,
	start time.Time,
	notes string,
	identity domain.Identity,
) BookingMetadata {
	m := BookingMetadata{
		StaffID:    staffID,
		ServiceIDs: serviceIDs,
		StartTime:  start,
		Notes:      notes,
	}
	switch v := identity.(type) {
	case domain.AuthenticatedIdentity:
		m.UserID = v.UserID
	case domain.GuestIdentity:
		m.GuestName = strings.TrimSpace(v.Name)
		m.GuestEmail = strings.TrimSpace(v.Email)
		m.GuestPhone = strings.TrimSpace(v.Phone)
	}
	return m
}

func (m BookingMetadata) Encode() map[string]string {
	ids := make([]string, len(m.ServiceIDs))
	for i, id := range m.ServiceIDs {
		ids[i] = strconv.FormatUint(uint64(id), 10)
	}

	out := map[string]string{
		MetaStaffID:    strconv.FormatUint(uint64(m.StaffID), 10),
		MetaServiceIDs: strings.Join(ids, ","),
		MetaStartTime:  m.StartTime.UTC().Format(time.RFC3339),
	}
	if m.Notes != "" {
		out[MetaNotes] = m.Notes
	}
	if m.UserID != 0 {
		out[MetaUserID] = strconv.FormatUint(uint64(m.UserID), 10)
		return out
	}
	out[MetaGuestName] = m.GuestName
	out[MetaGuestEmail] = m.GuestEmail
	if m.GuestPhone != "" {
		out[MetaGuestPhone] = m.GuestPhone
	}
	return out
}

// ParseMetadata validates an untrusted metadata bag.
func ParseMetadata(raw map[string]string) (BookingMetadata, error) {
	var m BookingMetadata

	staffID, err := parseID(raw[MetaStaffID])
	if err != nil {
		return m, invalidMetadata(MetaStaffID, err)
	}
	m.StaffID = staffID

	for _, part := range strings.Split(raw[MetaServiceIDs], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := parseID(part)
		if err != nil {
			return m, invalidMetadata(MetaServiceIDs, err)
		}
		m.ServiceIDs = append(m.ServiceIDs, id)
	}
	if len(m.ServiceIDs) == 0 {
		return m, invalidMetadata(MetaServiceIDs, fmt.Errorf("empty"))
	}
	if err := domain.CheckServiceIDs(m.ServiceIDs); err != nil {
		return m, invalidMetadata(MetaServiceIDs, fmt.Errorf("repeated service"))
	}

	m.StartTime, err = time.Parse(time.RFC3339, strings.TrimSpace(raw[MetaStartTime]))
	if err != nil {
		return m, invalidMetadata(MetaStartTime, err)
	}

	if v := strings.TrimSpace(raw[MetaUserID]); v != "" {
		m.UserID, err = parseID(v)
		if err != nil {
			return m, invalidMetadata(MetaUserID, err)
		}
	}

	m.Notes = strings.TrimSpace(raw[MetaNotes])
	m.GuestName = strings.TrimSpace(raw[MetaGuestName])
	m.GuestEmail = strings.TrimSpace(raw[MetaGuestEmail])
	m.GuestPhone = strings.TrimSpace(raw[MetaGuestPhone])
	return m, nil
}

// Identity picks the booking identity. capturedEmail is the provider's
// checkout email, used only when the metadata has none.
func (m BookingMetadata) Identity(capturedEmail string) domain.Identity {
	if m.UserID != 0 {
		return domain.AuthenticatedIdentity{UserID: m.UserID}
	}
	email := m.GuestEmail
	if email == "" {
		email = strings.TrimSpace(capturedEmail)
	}
	name := m.GuestName
	if name == "" {
		name = email
	}
	return domain.GuestIdentity{Name: name, Email: email, Phone: m.GuestPhone}
}

func parseID(s string) (uint, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("zero id")
	}
	return uint(n), nil
}

func invalidMetadata(key string, err error) error {
	return httperr.Wrap(httperr.CodeInvalidPaymentMetadata, fmt.Errorf("%s: %w", key, err))
}
