package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BottomUpQuantification is a facility/program/period scoped quantification
// document moving through the submit/authorize/approve workflow.
type BottomUpQuantification struct {
	BaseEntity
	FacilityID         uuid.UUID `json:"facilityId" validate:"required"`
	ProgramID          uuid.UUID `json:"programId" validate:"required"`
	ProcessingPeriodID uuid.UUID `json:"processingPeriodId" validate:"required"`
	TargetYear         int       `json:"targetYear" validate:"required"`
	Status             Status    `json:"status" validate:"required"`
	CreatedDate        time.Time `json:"createdDate"`
	ModifiedDate       time.Time `json:"modifiedDate"`

	LineItems     []*BottomUpQuantificationLineItem    `json:"lineItems" validate:"dive"`
	StatusChanges []*BottomUpQuantificationStatusChange `json:"statusChanges"`
}

// BottomUpQuantificationLineItem holds the per-product figures of a
// quantification.
type BottomUpQuantificationLineItem struct {
	BaseEntity
	BottomUpQuantificationID          uuid.UUID       `json:"bottomUpQuantificationId"`
	OrderableID                       uuid.UUID       `json:"orderableId" validate:"required"`
	AnnualAdjustedConsumption         *int            `json:"annualAdjustedConsumption"`
	VerifiedAnnualAdjustedConsumption *int            `json:"verifiedAnnualAdjustedConsumption"`
	ForecastedDemand                  *int            `json:"forecastedDemand"`
	TotalCost                         decimal.Decimal `json:"totalCost"`
	RemarkID                          *uuid.UUID      `json:"remarkId"`
}

// BottomUpQuantificationStatusChange records one workflow transition.
type BottomUpQuantificationStatusChange struct {
	BaseEntity
	BottomUpQuantificationID uuid.UUID `json:"bottomUpQuantificationId"`
	Status                   Status    `json:"status"`
	AuthorID                 uuid.UUID `json:"authorId"`
	RejectionReason          *string   `json:"rejectionReason"`
	OccurredDate             time.Time `json:"occurredDate"`
}

type BottomUpQuantificationLineItemImporter interface {
	BaseImporter
	GetOrderableID() uuid.UUID
	GetAnnualAdjustedConsumption() *int
	GetVerifiedAnnualAdjustedConsumption() *int
	GetForecastedDemand() *int
	GetTotalCost() decimal.Decimal
	GetRemarkID() *uuid.UUID
}

type BottomUpQuantificationLineItemExporter interface {
	BaseExporter
	SetOrderableID(id uuid.UUID)
	SetAnnualAdjustedConsumption(value *int)
	SetVerifiedAnnualAdjustedConsumption(value *int)
	SetForecastedDemand(value *int)
	SetTotalCost(value decimal.Decimal)
	SetRemarkID(id *uuid.UUID)
}

type BottomUpQuantificationStatusChangeExporter interface {
	BaseExporter
	SetStatus(status Status)
	SetAuthorID(id uuid.UUID)
	SetRejectionReason(reason *string)
	SetOccurredDate(date time.Time)
}

type BottomUpQuantificationImporter interface {
	BaseImporter
	GetFacilityID() uuid.UUID
	GetProgramID() uuid.UUID
	GetProcessingPeriodID() uuid.UUID
	GetTargetYear() int
	GetStatus() Status
	GetLineItems() []BottomUpQuantificationLineItemImporter
}

// BottomUpQuantificationExporter provides nested exporters so the entity can
// write collections without depending on a concrete DTO type.
type BottomUpQuantificationExporter interface {
	BaseExporter
	SetFacilityID(id uuid.UUID)
	SetProgramID(id uuid.UUID)
	SetProcessingPeriodID(id uuid.UUID)
	SetTargetYear(year int)
	SetStatus(status Status)
	SetCreatedDate(date time.Time)
	SetModifiedDate(date time.Time)
	ProvideLineItemExporter() BottomUpQuantificationLineItemExporter
	ProvideStatusChangeExporter() BottomUpQuantificationStatusChangeExporter
}

// NewBottomUpQuantification builds an entity from importer data. The status
// defaults to DRAFT when the importer does not carry one.
func NewBottomUpQuantification(importer BottomUpQuantificationImporter) *BottomUpQuantification {
	if importer == nil {
		panic("domain: nil BottomUpQuantificationImporter")
	}
	buq := &BottomUpQuantification{}
	buq.SetID(importer.GetID())
	buq.Status = importer.GetStatus()
	if buq.Status == "" {
		buq.Status = StatusDraft
	}
	buq.CreatedDate = time.Now().UTC()
	buq.UpdateFrom(importer)
	return buq
}

// UpdateFrom copies every importer-supplied field. The status is workflow
// owned and never changes here; see ChangeStatus.
func (b *BottomUpQuantification) UpdateFrom(importer BottomUpQuantificationImporter) {
	if importer == nil {
		panic("domain: nil BottomUpQuantificationImporter")
	}
	b.FacilityID = importer.GetFacilityID()
	b.ProgramID = importer.GetProgramID()
	b.ProcessingPeriodID = importer.GetProcessingPeriodID()
	b.TargetYear = importer.GetTargetYear()
	b.ModifiedDate = time.Now().UTC()

	items := importer.GetLineItems()
	b.LineItems = make([]*BottomUpQuantificationLineItem, 0, len(items))
	for _, item := range items {
		b.LineItems = append(b.LineItems, NewBottomUpQuantificationLineItem(b.ID, item))
	}
}

// ChangeStatus applies a workflow transition, recording a status change.
// An illegal transition is rejected without mutating the entity.
func (b *BottomUpQuantification) ChangeStatus(next Status, authorID uuid.UUID, rejectionReason *string) error {
	if !b.Status.CanTransitionTo(next) {
		return &IllegalTransitionError{From: b.Status, To: next}
	}
	b.Status = next
	b.ModifiedDate = time.Now().UTC()
	b.StatusChanges = append(b.StatusChanges, &BottomUpQuantificationStatusChange{
		BottomUpQuantificationID: b.ID,
		Status:                   next,
		AuthorID:                 authorID,
		RejectionReason:          rejectionReason,
		OccurredDate:             time.Now().UTC(),
	})
	return nil
}

func (b *BottomUpQuantification) Export(exporter BottomUpQuantificationExporter) {
	if exporter == nil {
		panic("domain: nil BottomUpQuantificationExporter")
	}
	exporter.SetID(b.ID)
	exporter.SetFacilityID(b.FacilityID)
	exporter.SetProgramID(b.ProgramID)
	exporter.SetProcessingPeriodID(b.ProcessingPeriodID)
	exporter.SetTargetYear(b.TargetYear)
	exporter.SetStatus(b.Status)
	exporter.SetCreatedDate(b.CreatedDate)
	exporter.SetModifiedDate(b.ModifiedDate)
	for _, item := range b.LineItems {
		item.Export(exporter.ProvideLineItemExporter())
	}
	for _, change := range b.StatusChanges {
		change.Export(exporter.ProvideStatusChangeExporter())
	}
}

func NewBottomUpQuantificationLineItem(buqID uuid.UUID, importer BottomUpQuantificationLineItemImporter) *BottomUpQuantificationLineItem {
	if importer == nil {
		panic("domain: nil BottomUpQuantificationLineItemImporter")
	}
	item := &BottomUpQuantificationLineItem{BottomUpQuantificationID: buqID}
	item.SetID(importer.GetID())
	item.UpdateFrom(importer)
	return item
}

func (li *BottomUpQuantificationLineItem) UpdateFrom(importer BottomUpQuantificationLineItemImporter) {
	if importer == nil {
		panic("domain: nil BottomUpQuantificationLineItemImporter")
	}
	li.OrderableID = importer.GetOrderableID()
	li.AnnualAdjustedConsumption = importer.GetAnnualAdjustedConsumption()
	li.VerifiedAnnualAdjustedConsumption = importer.GetVerifiedAnnualAdjustedConsumption()
	li.ForecastedDemand = importer.GetForecastedDemand()
	li.TotalCost = importer.GetTotalCost()
	li.RemarkID = importer.GetRemarkID()
}

func (li *BottomUpQuantificationLineItem) Export(exporter BottomUpQuantificationLineItemExporter) {
	if exporter == nil {
		panic("domain: nil BottomUpQuantificationLineItemExporter")
	}
	exporter.SetID(li.ID)
	exporter.SetOrderableID(li.OrderableID)
	exporter.SetAnnualAdjustedConsumption(li.AnnualAdjustedConsumption)
	exporter.SetVerifiedAnnualAdjustedConsumption(li.VerifiedAnnualAdjustedConsumption)
	exporter.SetForecastedDemand(li.ForecastedDemand)
	exporter.SetTotalCost(li.TotalCost)
	exporter.SetRemarkID(li.RemarkID)
}

func (sc *BottomUpQuantificationStatusChange) Export(exporter BottomUpQuantificationStatusChangeExporter) {
	if exporter == nil {
		panic("domain: nil BottomUpQuantificationStatusChangeExporter")
	}
	exporter.SetID(sc.ID)
	exporter.SetStatus(sc.Status)
	exporter.SetAuthorID(sc.AuthorID)
	exporter.SetRejectionReason(sc.RejectionReason)
	exporter.SetOccurredDate(sc.OccurredDate)
}

// IllegalTransitionError reports a workflow transition the status machine
// does not allow.
type IllegalTransitionError struct {
	From Status
	To   Status
}

func (e *IllegalTransitionError) Error() string {
	return "cannot transition bottom-up quantification from " +
		string(e.From) + " to " + string(e.To)
}
