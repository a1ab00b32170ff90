package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/openlmis/buq/internal/domain"
	"github.com/openlmis/buq/internal/dto"
	"github.com/openlmis/buq/internal/referencedata"
	"github.com/openlmis/buq/internal/store"
	"github.com/openlmis/buq/pkg/utils"
)

// DtoBuilder turns quantification entities into wire DTOs, denormalizing
// reference-data objects and line-item remarks so clients need no follow-up
// lookups. Enrichment is best effort: a missing or unreachable reference
// leaves the plain identifier in place.
type DtoBuilder struct {
	refData    referencedata.Client
	remarkRepo store.RemarkRepository
	logger     zerolog.Logger
}

func NewDtoBuilder(refData referencedata.Client, remarkRepo store.RemarkRepository, logger zerolog.Logger) *DtoBuilder {
	return &DtoBuilder{
		refData:    refData,
		remarkRepo: remarkRepo,
		logger:     logger.With().Str("component", "dto_builder").Logger(),
	}
}

// Build exports the entity and enriches the result.
func (b *DtoBuilder) Build(ctx context.Context, buq *domain.BottomUpQuantification) *dto.BottomUpQuantificationDto {
	out := &dto.BottomUpQuantificationDto{}
	buq.Export(out)
	out.VersionNumber = buq.VersionNumber

	b.enrichReferences(ctx, out)
	b.enrichRemarks(ctx, out)
	return out
}

// BuildPlain exports without enrichment. Search results use it so a listing
// does not fan out into per-row reference-data calls.
func (b *DtoBuilder) BuildPlain(buq *domain.BottomUpQuantification) *dto.BottomUpQuantificationDto {
	out := &dto.BottomUpQuantificationDto{}
	buq.Export(out)
	out.VersionNumber = buq.VersionNumber
	return out
}

func (b *DtoBuilder) enrichReferences(ctx context.Context, out *dto.BottomUpQuantificationDto) {
	if facility, err := b.refData.GetFacility(ctx, out.FacilityID); err == nil {
		out.Facility = &dto.ObjectReferenceDto{ID: facility.ID, Code: facility.Code, Name: facility.Name}
	} else {
		b.logEnrichmentMiss(err, "facility", out.FacilityID)
	}

	if program, err := b.refData.GetProgram(ctx, out.ProgramID); err == nil {
		out.Program = &dto.ObjectReferenceDto{ID: program.ID, Code: program.Code, Name: program.Name}
	} else {
		b.logEnrichmentMiss(err, "program", out.ProgramID)
	}

	if period, err := b.refData.GetProcessingPeriod(ctx, out.ProcessingPeriodID); err == nil {
		out.ProcessingPeriod = &dto.ObjectReferenceDto{ID: period.ID, Name: period.Name}
	} else {
		b.logEnrichmentMiss(err, "processing period", out.ProcessingPeriodID)
	}
}

func (b *DtoBuilder) enrichRemarks(ctx context.Context, out *dto.BottomUpQuantificationDto) {
	// The same remark is usually shared across many line items.
	cache := make(map[uuid.UUID]*dto.RemarkDto)

	for _, item := range out.LineItems {
		if item.RemarkID == nil {
			continue
		}
		id := *item.RemarkID

		if cached, ok := cache[id]; ok {
			item.Remark = cached
			continue
		}

		remark, err := b.remarkRepo.FindByID(ctx, id)
		if err != nil {
			b.logEnrichmentMiss(err, "remark", id)
			cache[id] = nil
			continue
		}
		remarkDto := &dto.RemarkDto{}
		remark.Export(remarkDto)
		cache[id] = remarkDto
		item.Remark = remarkDto
	}
}

func (b *DtoBuilder) logEnrichmentMiss(err error, resource string, id uuid.UUID) {
	event := b.logger.Warn()
	if utils.IsNotFound(err) {
		event = b.logger.Debug()
	}
	event.Err(err).Str("resource", resource).Stringer("id", id).Msg("skipping dto enrichment")
}
