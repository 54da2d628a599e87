package appointment

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/BruksfildServices01/salon-scheduler/internal/httperr"
	"github.com/BruksfildServices01/salon-scheduler/internal/models"
)

func TestComputeQuote(t *testing.T) {
	services := []models.SalonService{
		{ID: 1, Name: "Cut", DurationMin: 45, Price: decimal.RequireFromString("35.50")},
		{ID: 2, Name: "Color", DurationMin: 90, Price: decimal.RequireFromString("84.99")},
	}

	q := ComputeQuote(services, 20)

	assert.True(t, q.TotalPrice.Equal(decimal.RequireFromString("120.49")))
	assert.True(t, q.DepositAmount.Equal(decimal.RequireFromString("24.10")), q.DepositAmount.String())
	assert.Equal(t, 135*time.Minute, q.Duration)
	assert.Equal(t, []string{"Cut", "Color"}, q.ServiceNames)

	links := ServiceLinks(services)
	assert.Equal(t, uint(2), links[1].ServiceID)
	assert.Equal(t, 1, links[1].Position)
}

func TestComputeQuoteZeroDeposit(t *testing.T) {
	q := ComputeQuote([]models.SalonService{{DurationMin: 30, Price: decimal.NewFromInt(40)}}, 0)
	assert.True(t, q.DepositAmount.IsZero())
}

func TestCheckServiceIDs(t *testing.T) {
	assert.NoError(t, CheckServiceIDs([]uint{3, 1, 2}))
	assert.True(t, httperr.IsBusiness(CheckServiceIDs([]uint{1, 2, 1}), httperr.CodeDuplicateService))
}
