package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openlmis/buq/internal/domain"
)

// ObjectReferenceDto is a denormalized reference-data object (facility,
// program, processing period) attached to a quantification DTO.
type ObjectReferenceDto struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code,omitempty"`
	Name string    `json:"name"`
}

// BottomUpQuantificationDto is the wire representation of a quantification
// document. It satisfies both sides of the import/export contract; the
// reference-data fields are populated by the DTO builder, not by the entity.
type BottomUpQuantificationDto struct {
	BaseDto
	VersionNumber      int64         `json:"versionNumber,omitempty"`
	FacilityID         uuid.UUID     `json:"facilityId"`
	ProgramID          uuid.UUID     `json:"programId"`
	ProcessingPeriodID uuid.UUID     `json:"processingPeriodId"`
	TargetYear         int           `json:"targetYear"`
	Status             domain.Status `json:"status"`
	CreatedDate        time.Time     `json:"createdDate"`
	ModifiedDate       time.Time     `json:"modifiedDate"`

	Facility         *ObjectReferenceDto `json:"facility,omitempty"`
	Program          *ObjectReferenceDto `json:"program,omitempty"`
	ProcessingPeriod *ObjectReferenceDto `json:"processingPeriod,omitempty"`

	LineItems     []*BottomUpQuantificationLineItemDto     `json:"lineItems"`
	StatusChanges []*BottomUpQuantificationStatusChangeDto `json:"statusChanges"`
}

type BottomUpQuantificationLineItemDto struct {
	BaseDto
	OrderableID                       uuid.UUID       `json:"orderableId"`
	AnnualAdjustedConsumption         *int            `json:"annualAdjustedConsumption"`
	VerifiedAnnualAdjustedConsumption *int            `json:"verifiedAnnualAdjustedConsumption"`
	ForecastedDemand                  *int            `json:"forecastedDemand"`
	TotalCost                         decimal.Decimal `json:"totalCost"`
	RemarkID                          *uuid.UUID      `json:"remarkId"`

	Remark *RemarkDto `json:"remark,omitempty"`
}

type BottomUpQuantificationStatusChangeDto struct {
	BaseDto
	Status          domain.Status `json:"status"`
	AuthorID        uuid.UUID     `json:"authorId"`
	RejectionReason *string       `json:"rejectionReason"`
	OccurredDate    time.Time     `json:"occurredDate"`
}

// Importer side.

func (d *BottomUpQuantificationDto) GetFacilityID() uuid.UUID         { return d.FacilityID }
func (d *BottomUpQuantificationDto) GetProgramID() uuid.UUID          { return d.ProgramID }
func (d *BottomUpQuantificationDto) GetProcessingPeriodID() uuid.UUID { return d.ProcessingPeriodID }
func (d *BottomUpQuantificationDto) GetTargetYear() int               { return d.TargetYear }
func (d *BottomUpQuantificationDto) GetStatus() domain.Status         { return d.Status }

func (d *BottomUpQuantificationDto) GetLineItems() []domain.BottomUpQuantificationLineItemImporter {
	importers := make([]domain.BottomUpQuantificationLineItemImporter, 0, len(d.LineItems))
	for _, item := range d.LineItems {
		importers = append(importers, item)
	}
	return importers
}

// Exporter side.

func (d *BottomUpQuantificationDto) SetFacilityID(id uuid.UUID)         { d.FacilityID = id }
func (d *BottomUpQuantificationDto) SetProgramID(id uuid.UUID)          { d.ProgramID = id }
func (d *BottomUpQuantificationDto) SetProcessingPeriodID(id uuid.UUID) { d.ProcessingPeriodID = id }
func (d *BottomUpQuantificationDto) SetTargetYear(year int)             { d.TargetYear = year }
func (d *BottomUpQuantificationDto) SetStatus(status domain.Status)     { d.Status = status }
func (d *BottomUpQuantificationDto) SetCreatedDate(date time.Time)      { d.CreatedDate = date }
func (d *BottomUpQuantificationDto) SetModifiedDate(date time.Time)     { d.ModifiedDate = date }

// ProvideLineItemExporter appends a fresh line-item DTO and hands it to the
// entity for population.
func (d *BottomUpQuantificationDto) ProvideLineItemExporter() domain.BottomUpQuantificationLineItemExporter {
	item := &BottomUpQuantificationLineItemDto{}
	d.LineItems = append(d.LineItems, item)
	return item
}

func (d *BottomUpQuantificationDto) ProvideStatusChangeExporter() domain.BottomUpQuantificationStatusChangeExporter {
	change := &BottomUpQuantificationStatusChangeDto{}
	d.StatusChanges = append(d.StatusChanges, change)
	return change
}

func (d *BottomUpQuantificationDto) String() string {
	return Describe(d)
}

// Line item importer side.

func (d *BottomUpQuantificationLineItemDto) GetOrderableID() uuid.UUID { return d.OrderableID }
func (d *BottomUpQuantificationLineItemDto) GetAnnualAdjustedConsumption() *int {
	return d.AnnualAdjustedConsumption
}
func (d *BottomUpQuantificationLineItemDto) GetVerifiedAnnualAdjustedConsumption() *int {
	return d.VerifiedAnnualAdjustedConsumption
}
func (d *BottomUpQuantificationLineItemDto) GetForecastedDemand() *int { return d.ForecastedDemand }
func (d *BottomUpQuantificationLineItemDto) GetTotalCost() decimal.Decimal {
	return d.TotalCost
}
func (d *BottomUpQuantificationLineItemDto) GetRemarkID() *uuid.UUID { return d.RemarkID }

// Line item exporter side.

func (d *BottomUpQuantificationLineItemDto) SetOrderableID(id uuid.UUID) { d.OrderableID = id }
func (d *BottomUpQuantificationLineItemDto) SetAnnualAdjustedConsumption(value *int) {
	d.AnnualAdjustedConsumption = value
}
func (d *BottomUpQuantificationLineItemDto) SetVerifiedAnnualAdjustedConsumption(value *int) {
	d.VerifiedAnnualAdjustedConsumption = value
}
func (d *BottomUpQuantificationLineItemDto) SetForecastedDemand(value *int) {
	d.ForecastedDemand = value
}
func (d *BottomUpQuantificationLineItemDto) SetTotalCost(value decimal.Decimal) {
	d.TotalCost = value
}
func (d *BottomUpQuantificationLineItemDto) SetRemarkID(id *uuid.UUID) { d.RemarkID = id }

func (d *BottomUpQuantificationLineItemDto) String() string {
	return Describe(d)
}

// Status change exporter side.

func (d *BottomUpQuantificationStatusChangeDto) SetStatus(status domain.Status) { d.Status = status }
func (d *BottomUpQuantificationStatusChangeDto) SetAuthorID(id uuid.UUID)       { d.AuthorID = id }
func (d *BottomUpQuantificationStatusChangeDto) SetRejectionReason(reason *string) {
	d.RejectionReason = reason
}
func (d *BottomUpQuantificationStatusChangeDto) SetOccurredDate(date time.Time) {
	d.OccurredDate = date
}

func (d *BottomUpQuantificationStatusChangeDto) String() string {
	return Describe(d)
}
