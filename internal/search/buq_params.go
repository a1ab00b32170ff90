package search

import (
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/openlmis/buq/internal/domain"
)

// BottomUpQuantificationSearchParams are the recognized filter dimensions
// for quantification searches. Nil fields mean "no filter"; supplied filters
// combine with logical AND.
type BottomUpQuantificationSearchParams struct {
	FacilityID         *uuid.UUID
	ProgramID          *uuid.UUID
	ProcessingPeriodID *uuid.UUID
	Status             *domain.Status
	ModifiedDateFrom   *time.Time
}

// NewBottomUpQuantificationSearchParams parses the recognized keys from raw
// query parameters. Unrecognized keys are ignored.
func NewBottomUpQuantificationSearchParams(values url.Values) (*BottomUpQuantificationSearchParams, error) {
	qp := NewQueryParams(values)
	params := &BottomUpQuantificationSearchParams{
		FacilityID:         qp.UUID("facilityId"),
		ProgramID:          qp.UUID("programId"),
		ProcessingPeriodID: qp.UUID("processingPeriodId"),
		Status:             qp.Status("status"),
		ModifiedDateFrom:   qp.Date("modifiedDateFrom"),
	}
	if err := qp.Err(); err != nil {
		return nil, err
	}
	return params, nil
}

// IsEmpty reports whether no filter dimension was supplied.
func (p *BottomUpQuantificationSearchParams) IsEmpty() bool {
	return p.FacilityID == nil && p.ProgramID == nil &&
		p.ProcessingPeriodID == nil && p.Status == nil && p.ModifiedDateFrom == nil
}
