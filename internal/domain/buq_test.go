package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineItemData struct {
	id                                uuid.UUID
	orderableID                       uuid.UUID
	annualAdjustedConsumption         *int
	verifiedAnnualAdjustedConsumption *int
	forecastedDemand                  *int
	totalCost                         decimal.Decimal
	remarkID                          *uuid.UUID
}

func (d *lineItemData) GetID() uuid.UUID                            { return d.id }
func (d *lineItemData) GetOrderableID() uuid.UUID                   { return d.orderableID }
func (d *lineItemData) GetAnnualAdjustedConsumption() *int          { return d.annualAdjustedConsumption }
func (d *lineItemData) GetVerifiedAnnualAdjustedConsumption() *int {
	return d.verifiedAnnualAdjustedConsumption
}
func (d *lineItemData) GetForecastedDemand() *int     { return d.forecastedDemand }
func (d *lineItemData) GetTotalCost() decimal.Decimal { return d.totalCost }
func (d *lineItemData) GetRemarkID() *uuid.UUID       { return d.remarkID }

type buqData struct {
	id                 uuid.UUID
	facilityID         uuid.UUID
	programID          uuid.UUID
	processingPeriodID uuid.UUID
	targetYear         int
	status             Status
	lineItems          []*lineItemData
}

func (d *buqData) GetID() uuid.UUID                 { return d.id }
func (d *buqData) GetFacilityID() uuid.UUID         { return d.facilityID }
func (d *buqData) GetProgramID() uuid.UUID          { return d.programID }
func (d *buqData) GetProcessingPeriodID() uuid.UUID { return d.processingPeriodID }
func (d *buqData) GetTargetYear() int               { return d.targetYear }
func (d *buqData) GetStatus() Status                { return d.status }
func (d *buqData) GetLineItems() []BottomUpQuantificationLineItemImporter {
	importers := make([]BottomUpQuantificationLineItemImporter, 0, len(d.lineItems))
	for _, item := range d.lineItems {
		importers = append(importers, item)
	}
	return importers
}

func newBuqData() *buqData {
	consumption := 120
	return &buqData{
		facilityID:         uuid.New(),
		programID:          uuid.New(),
		processingPeriodID: uuid.New(),
		targetYear:         2026,
		lineItems: []*lineItemData{
			{
				orderableID:               uuid.New(),
				annualAdjustedConsumption: &consumption,
				totalCost:                 decimal.RequireFromString("120.50"),
			},
		},
	}
}

func TestNewBottomUpQuantification_DefaultsToDraft(t *testing.T) {
	buq := NewBottomUpQuantification(newBuqData())

	assert.Equal(t, StatusDraft, buq.Status)
	assert.False(t, buq.CreatedDate.IsZero())
	require.Len(t, buq.LineItems, 1)
	assert.True(t, buq.LineItems[0].TotalCost.Equal(decimal.RequireFromString("120.50")))
}

func TestNewBottomUpQuantification_KeepsImporterStatus(t *testing.T) {
	data := newBuqData()
	data.status = StatusSubmitted

	buq := NewBottomUpQuantification(data)
	assert.Equal(t, StatusSubmitted, buq.Status)
}

func TestNewBottomUpQuantification_NilImporterPanics(t *testing.T) {
	assert.Panics(t, func() { NewBottomUpQuantification(nil) })
}

func TestBottomUpQuantification_UpdateFrom_NeverChangesStatus(t *testing.T) {
	buq := NewBottomUpQuantification(newBuqData())
	require.NoError(t, buq.ChangeStatus(StatusSubmitted, uuid.New(), nil))

	update := newBuqData()
	update.status = StatusApproved
	buq.UpdateFrom(update)

	assert.Equal(t, StatusSubmitted, buq.Status)
	assert.Equal(t, update.facilityID, buq.FacilityID)
}

func TestBottomUpQuantification_UpdateFrom_ReplacesLineItems(t *testing.T) {
	buq := NewBottomUpQuantification(newBuqData())

	update := newBuqData()
	update.lineItems = append(update.lineItems, &lineItemData{orderableID: uuid.New()})
	buq.UpdateFrom(update)

	require.Len(t, buq.LineItems, 2)
	for _, item := range buq.LineItems {
		assert.Equal(t, buq.ID, item.BottomUpQuantificationID)
	}
}

func TestBottomUpQuantification_ChangeStatus(t *testing.T) {
	authorID := uuid.New()
	buq := NewBottomUpQuantification(newBuqData())

	require.NoError(t, buq.ChangeStatus(StatusSubmitted, authorID, nil))
	require.NoError(t, buq.ChangeStatus(StatusAuthorized, authorID, nil))
	require.NoError(t, buq.ChangeStatus(StatusInApproval, authorID, nil))
	require.NoError(t, buq.ChangeStatus(StatusApproved, authorID, nil))

	require.Len(t, buq.StatusChanges, 4)
	assert.Equal(t, StatusApproved, buq.Status)
	assert.Equal(t, authorID, buq.StatusChanges[0].AuthorID)
}

func TestBottomUpQuantification_ChangeStatus_IllegalTransition(t *testing.T) {
	buq := NewBottomUpQuantification(newBuqData())

	err := buq.ChangeStatus(StatusApproved, uuid.New(), nil)

	var illegal *IllegalTransitionError
	require.ErrorAs(t, err, &illegal)
	assert.Equal(t, StatusDraft, illegal.From)
	assert.Equal(t, StatusApproved, illegal.To)

	// Rejected transitions leave the entity untouched.
	assert.Equal(t, StatusDraft, buq.Status)
	assert.Empty(t, buq.StatusChanges)
}

func TestBottomUpQuantification_ChangeStatus_RejectionReason(t *testing.T) {
	buq := NewBottomUpQuantification(newBuqData())
	require.NoError(t, buq.ChangeStatus(StatusSubmitted, uuid.New(), nil))

	reason := "figures are inconsistent with stock cards"
	require.NoError(t, buq.ChangeStatus(StatusRejected, uuid.New(), &reason))

	last := buq.StatusChanges[len(buq.StatusChanges)-1]
	require.NotNil(t, last.RejectionReason)
	assert.Equal(t, reason, *last.RejectionReason)
	assert.WithinDuration(t, time.Now().UTC(), last.OccurredDate, time.Minute)
}

func TestBottomUpQuantification_UpdateFrom_Idempotent(t *testing.T) {
	data := newBuqData()
	data.id = uuid.New()

	buq := NewBottomUpQuantification(data)
	firstItems := make([]BottomUpQuantificationLineItem, 0, len(buq.LineItems))
	for _, item := range buq.LineItems {
		firstItems = append(firstItems, *item)
	}

	buq.UpdateFrom(data)

	require.Len(t, buq.LineItems, len(firstItems))
	for i, item := range buq.LineItems {
		assert.Equal(t, firstItems[i], *item)
	}
}
