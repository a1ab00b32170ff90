package dto

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlmis/buq/internal/domain"
)

func TestBottomUpQuantificationDto_RoundTrip(t *testing.T) {
	consumption := 150
	forecast := 180
	remarkID := uuid.New()

	original := &BottomUpQuantificationDto{
		BaseDto:            BaseDto{ID: uuid.New()},
		FacilityID:         uuid.New(),
		ProgramID:          uuid.New(),
		ProcessingPeriodID: uuid.New(),
		TargetYear:         2026,
		LineItems: []*BottomUpQuantificationLineItemDto{
			{
				OrderableID:               uuid.New(),
				AnnualAdjustedConsumption: &consumption,
				ForecastedDemand:          &forecast,
				TotalCost:                 decimal.RequireFromString("99.95"),
				RemarkID:                  &remarkID,
			},
		},
	}

	entity := domain.NewBottomUpQuantification(original)

	exported := &BottomUpQuantificationDto{}
	entity.Export(exported)

	assert.Equal(t, original.ID, exported.ID)
	assert.Equal(t, original.FacilityID, exported.FacilityID)
	assert.Equal(t, original.ProgramID, exported.ProgramID)
	assert.Equal(t, original.ProcessingPeriodID, exported.ProcessingPeriodID)
	assert.Equal(t, original.TargetYear, exported.TargetYear)
	assert.Equal(t, domain.StatusDraft, exported.Status)

	require.Len(t, exported.LineItems, 1)
	item := exported.LineItems[0]
	assert.Equal(t, original.LineItems[0].OrderableID, item.OrderableID)
	assert.Equal(t, &consumption, item.AnnualAdjustedConsumption)
	assert.Equal(t, &forecast, item.ForecastedDemand)
	assert.True(t, item.TotalCost.Equal(decimal.RequireFromString("99.95")))
	require.NotNil(t, item.RemarkID)
	assert.Equal(t, remarkID, *item.RemarkID)
}

func TestBottomUpQuantificationDto_ExportsStatusChanges(t *testing.T) {
	entity := domain.NewBottomUpQuantification(&BottomUpQuantificationDto{
		FacilityID:         uuid.New(),
		ProgramID:          uuid.New(),
		ProcessingPeriodID: uuid.New(),
		TargetYear:         2026,
	})

	authorID := uuid.New()
	require.NoError(t, entity.ChangeStatus(domain.StatusSubmitted, authorID, nil))

	exported := &BottomUpQuantificationDto{}
	entity.Export(exported)

	require.Len(t, exported.StatusChanges, 1)
	assert.Equal(t, domain.StatusSubmitted, exported.StatusChanges[0].Status)
	assert.Equal(t, authorID, exported.StatusChanges[0].AuthorID)
}
