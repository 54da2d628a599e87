package appointment

import "github.com/BruksfildServices01/salon-scheduler/internal/models"

// Identity is either a GuestIdentity or an AuthenticatedIdentity.
type Identity interface {
	isIdentity()
}

type GuestIdentity struct {
	Name  string
	Email string
	Phone string
}

type AuthenticatedIdentity struct {
	UserID uint
	Name   string
	Email  string
	Phone  string
}

func (GuestIdentity) isIdentity()         {}
func (AuthenticatedIdentity) isIdentity() {}

// Actor is the caller of a lifecycle operation.
type Actor struct {
	UserID uint
	Role   string
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}
