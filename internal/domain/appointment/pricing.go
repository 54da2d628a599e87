package appointment

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/BruksfildServices01/salon-scheduler/internal/httperr"
	"github.com/BruksfildServices01/salon-scheduler/internal/models"
)

// Quote is the derived totals of an ordered list of services.
type Quote struct {
	TotalPrice    decimal.Decimal
	DepositAmount decimal.Decimal
	Duration      time.Duration
	ServiceNames  []string
}

// CheckServiceIDs rejects a service listed more than once.
func CheckServiceIDs(ids []uint) error {
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return httperr.ErrBusiness(httperr.CodeDuplicateService)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func ComputeQuote(services []models.SalonService, depositPercent int) Quote {
	q := Quote{
		TotalPrice:   decimal.Zero,
		ServiceNames: make([]string, 0, len(services)),
	}
	for _, s := range services {
		q.TotalPrice = q.TotalPrice.Add(s.Price)
		q.Duration += time.Duration(s.DurationMin) * time.Minute
		q.ServiceNames = append(q.ServiceNames, s.Name)
	}
	q.DepositAmount = q.TotalPrice.
		Mul(decimal.NewFromInt(int64(depositPercent))).
		Div(decimal.NewFromInt(100)).
		Round(2)
	return q
}

// ServiceLinks builds the ordered appointment/service links.
func ServiceLinks(services []models.SalonService) []models.AppointmentService {
	links := make([]models.AppointmentService, 0, len(services))
	for i, s := range services {
		links = append(links, models.AppointmentService{
			ServiceID: s.ID,
			Position:  i,
		})
	}
	return links
}
