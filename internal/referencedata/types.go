// Package referencedata talks to the platform reference-data service for the
// facilities, programs, periods and products that quantifications refer to.
package referencedata

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Facility struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
	Name string    `json:"name"`
}

type Program struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
	Name string    `json:"name"`
}

type ProcessingPeriod struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

// ApprovedProduct is one orderable approved for a facility/program pair,
// used to seed quantification line items.
type ApprovedProduct struct {
	OrderableID     uuid.UUID       `json:"orderableId"`
	ProductCode     string          `json:"productCode"`
	FullProductName string          `json:"fullProductName"`
	PricePerPack    decimal.Decimal `json:"pricePerPack"`
}
