package customer

import (
	"context"
	"errors"
	"strings"

	domain "github.com/BruksfildServices01/salon-scheduler/internal/domain/appointment"
	"github.com/BruksfildServices01/salon-scheduler/internal/httperr"
	"github.com/BruksfildServices01/salon-scheduler/internal/models"
	"github.com/BruksfildServices01/salon-scheduler/internal/validators"
)

// Resolution is the outcome of resolving a booking identity.
// Exactly one of CustomerID and Guest is set.
type Resolution struct {
	CustomerID *uint
	Guest      *domain.GuestIdentity
	Name       string
	Email      string
}

// Apply writes the resolution onto an appointment.
func (r Resolution) Apply(ap *models.Appointment) {
	ap.CustomerID = r.CustomerID
	ap.GuestName, ap.GuestEmail, ap.GuestPhone = nil, nil, nil
	if r.Guest != nil {
		ap.GuestName = strPtr(r.Guest.Name)
		ap.GuestEmail = strPtr(r.Guest.Email)
		ap.GuestPhone = optional(r.Guest.Phone)
	}
}

type Resolver struct {
	store domain.CustomerStore
}

func NewResolver(store domain.CustomerStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve handles direct bookings. Guests stay unlinked and are carried on
// the appointment itself.
func (r *Resolver) Resolve(ctx context.Context, id domain.Identity) (Resolution, error) {
	switch v := id.(type) {
	case domain.AuthenticatedIdentity:
		return r.resolveAuthenticated(ctx, v)
	case domain.GuestIdentity:
		g, err := validateGuest(v)
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{Guest: &g, Name: g.Name, Email: g.Email}, nil
	default:
		return Resolution{}, httperr.ErrBusiness(httperr.CodeMissingCustomerInfo)
	}
}

// ResolveLinked handles reconciled checkouts. Guests are matched to an
// existing customer by exact email or a new customer is created.
func (r *Resolver) ResolveLinked(ctx context.Context, id domain.Identity) (Resolution, error) {
	switch v := id.(type) {
	case domain.AuthenticatedIdentity:
		return r.resolveAuthenticated(ctx, v)
	case domain.GuestIdentity:
		g, err := validateGuest(v)
		if err != nil {
			return Resolution{}, err
		}
		c, err := r.findOrCreate(ctx,
			func() (*models.Customer, error) { return r.store.FindCustomerByEmail(ctx, g.Email) },
			&models.Customer{
				Name:  g.Name,
				Email: strPtr(g.Email),
				Phone: optional(g.Phone),
			},
		)
		if err != nil {
			return Resolution{}, err
		}
		return linked(c), nil
	default:
		return Resolution{}, httperr.ErrBusiness(httperr.CodeMissingCustomerInfo)
	}
}

func (r *Resolver) resolveAuthenticated(
	ctx context.Context,
	id domain.AuthenticatedIdentity,
) (Resolution, error) {

	if id.UserID == 0 {
		return Resolution{}, httperr.ErrBusiness(httperr.CodeMissingCustomerInfo)
	}

	existing, err := r.store.FindCustomerByUserID(ctx, id.UserID)
	if err != nil {
		return Resolution{}, httperr.Wrap(httperr.CodePersistenceFailure, err)
	}
	if existing != nil {
		return linked(existing), nil
	}

	name, email := id.Name, id.Email
	if name == "" || email == "" {
		user, err := r.store.GetUser(ctx, id.UserID)
		if err != nil {
			return Resolution{}, err
		}
		name, email = user.Name, user.Email
	}

	uid := id.UserID
	c, err := r.findOrCreate(ctx,
		func() (*models.Customer, error) { return r.store.FindCustomerByUserID(ctx, uid) },
		&models.Customer{
			Name:   name,
			Email:  optional(email),
			Phone:  optional(id.Phone),
			UserID: &uid,
		},
	)
	if err != nil {
		return Resolution{}, err
	}
	return linked(c), nil
}

// findOrCreate re-reads after losing a creation race.
func (r *Resolver) findOrCreate(
	ctx context.Context,
	find func() (*models.Customer, error),
	fresh *models.Customer,
) (*models.Customer, error) {

	existing, err := find()
	if err != nil {
		return nil, httperr.Wrap(httperr.CodePersistenceFailure, err)
	}
	if existing != nil {
		return existing, nil
	}

	err = r.store.CreateCustomer(ctx, fresh)
	if errors.Is(err, domain.ErrCustomerExists) {
		existing, err = find()
		if err == nil && existing == nil {
			err = domain.ErrCustomerExists
		}
		if err != nil {
			return nil, httperr.Wrap(httperr.CodePersistenceFailure, err)
		}
		return existing, nil
	}
	if err != nil {
		return nil, httperr.Wrap(httperr.CodePersistenceFailure, err)
	}
	return fresh, nil
}

// Validate checks an identity without touching the store.
func Validate(id domain.Identity) error {
	switch v := id.(type) {
	case domain.AuthenticatedIdentity:
		if v.UserID == 0 {
			return httperr.ErrBusiness(httperr.CodeMissingCustomerInfo)
		}
		return nil
	case domain.GuestIdentity:
		_, err := validateGuest(v)
		return err
	default:
		return httperr.ErrBusiness(httperr.CodeMissingCustomerInfo)
	}
}

func validateGuest(g domain.GuestIdentity) (domain.GuestIdentity, error) {
	g.Name = strings.TrimSpace(g.Name)
	g.Email = strings.TrimSpace(g.Email)
	g.Phone = strings.TrimSpace(g.Phone)

	if g.Name == "" || g.Email == "" {
		return g, httperr.ErrBusiness(httperr.CodeMissingCustomerInfo)
	}
	if !validators.IsEmailSyntaxValid(g.Email) {
		return g, httperr.ErrBusiness(httperr.CodeInvalidCustomerInfo)
	}
	return g, nil
}

func linked(c *models.Customer) Resolution {
	id := c.ID
	return Resolution{CustomerID: &id, Name: c.Name, Email: c.EmailValue()}
}

func strPtr(s string) *string {
	return &s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
