package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/openlmis/buq/internal/audit"
	"github.com/openlmis/buq/internal/domain"
	"github.com/openlmis/buq/internal/dto"
	"github.com/openlmis/buq/internal/observability"
	"github.com/openlmis/buq/internal/referencedata"
	"github.com/openlmis/buq/internal/search"
	"github.com/openlmis/buq/internal/security"
	"github.com/openlmis/buq/internal/store"
	"github.com/openlmis/buq/pkg/utils"
)

const entityTypeBuq = "bottomUpQuantification"

// BottomUpQuantificationService owns the quantification lifecycle: preparing
// drafts from approved products, saving line-item figures, moving documents
// through the approval workflow and exposing the audit trail.
type BottomUpQuantificationService struct {
	repo      store.BottomUpQuantificationRepository
	auditRepo audit.Repository
	refData   referencedata.Client
	tx        store.TxManager
	builder   *DtoBuilder
	validator *Validator
	sanitizer *security.Sanitizer
	auditor   *audit.Recorder
	obs       *observability.Manager
	logger    zerolog.Logger
}

func NewBottomUpQuantificationService(
	repo store.BottomUpQuantificationRepository,
	auditRepo audit.Repository,
	refData referencedata.Client,
	tx store.TxManager,
	builder *DtoBuilder,
	validator *Validator,
	sanitizer *security.Sanitizer,
	auditor *audit.Recorder,
	obs *observability.Manager,
) *BottomUpQuantificationService {
	return &BottomUpQuantificationService{
		repo:      repo,
		auditRepo: auditRepo,
		refData:   refData,
		tx:        tx,
		builder:   builder,
		validator: validator,
		sanitizer: sanitizer,
		auditor:   auditor,
		obs:       obs,
		logger:    obs.Logger().With().Str("component", "buq_service").Logger(),
	}
}

func (s *BottomUpQuantificationService) Search(ctx context.Context, params *search.BottomUpQuantificationSearchParams, pageable search.Pageable) (store.Page[*dto.BottomUpQuantificationDto], error) {
	page, err := s.repo.Search(ctx, params, pageable)
	if err != nil {
		return store.Page[*dto.BottomUpQuantificationDto]{}, err
	}
	return store.MapPage(page, s.builder.BuildPlain), nil
}

func (s *BottomUpQuantificationService) Get(ctx context.Context, id uuid.UUID) (*dto.BottomUpQuantificationDto, error) {
	buq, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.builder.Build(ctx, buq), nil
}

// Prepare creates a DRAFT quantification for the facility/program/period,
// seeded with one zeroed line item per approved product. The target year is
// taken from the processing period end date.
func (s *BottomUpQuantificationService) Prepare(ctx context.Context, author string, facilityID, programID, processingPeriodID uuid.UUID) (*dto.BottomUpQuantificationDto, error) {
	ctx, span := s.obs.Tracing().StartOperation(ctx, "prepare", entityTypeBuq, "")
	defer span.End()
	start := time.Now()

	fail := func(err error) (*dto.BottomUpQuantificationDto, error) {
		s.obs.Tracing().SetSpanError(span, err)
		s.obs.Metrics().RecordEntityOperation(entityTypeBuq, "prepare", "error", time.Since(start))
		return nil, err
	}

	if _, err := s.refData.GetFacility(ctx, facilityID); err != nil {
		return fail(err)
	}
	if _, err := s.refData.GetProgram(ctx, programID); err != nil {
		return fail(err)
	}
	period, err := s.refData.GetProcessingPeriod(ctx, processingPeriodID)
	if err != nil {
		return fail(err)
	}
	products, err := s.refData.GetApprovedProducts(ctx, facilityID, programID)
	if err != nil {
		return fail(err)
	}

	payload := &dto.BottomUpQuantificationDto{
		FacilityID:         facilityID,
		ProgramID:          programID,
		ProcessingPeriodID: processingPeriodID,
		TargetYear:         period.EndDate.Year(),
	}
	zero := 0
	for _, product := range products {
		payload.LineItems = append(payload.LineItems, &dto.BottomUpQuantificationLineItemDto{
			OrderableID:               product.OrderableID,
			AnnualAdjustedConsumption: &zero,
			TotalCost:                 decimal.Zero,
		})
	}

	buq := domain.NewBottomUpQuantification(payload)
	if err := s.validator.ValidateStruct(buq); err != nil {
		return fail(err)
	}

	saved, err := s.repo.Save(ctx, buq)
	if err != nil {
		return fail(err)
	}

	s.recordAudit(ctx, saved.ID, author, nil, saved)
	s.obs.Metrics().RecordEntityOperation(entityTypeBuq, "prepare", "success", time.Since(start))
	s.logger.Info().
		Stringer("buq_id", saved.ID).
		Stringer("facility_id", facilityID).
		Stringer("program_id", programID).
		Int("line_items", len(saved.LineItems)).
		Msg("quantification prepared")
	return s.builder.Build(ctx, saved), nil
}

// Save replaces the stored document's importer-owned fields and line items.
// The payload version number decides staleness; the status is untouched.
func (s *BottomUpQuantificationService) Save(ctx context.Context, id uuid.UUID, author string, in *dto.BottomUpQuantificationDto) (*dto.BottomUpQuantificationDto, error) {
	ctx, span := s.obs.Tracing().StartOperation(ctx, "save", entityTypeBuq, id.String())
	defer span.End()
	start := time.Now()

	if in == nil {
		panic("service: nil BottomUpQuantificationDto")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *existing
	existing.VersionNumber = versionFromPayload(in, existing.VersionNumber)
	existing.UpdateFrom(in)

	if err := s.validator.ValidateStruct(existing); err != nil {
		s.obs.Metrics().RecordEntityOperation(entityTypeBuq, "save", "error", time.Since(start))
		return nil, err
	}

	saved, err := s.repo.Save(ctx, existing)
	if err != nil {
		s.obs.Tracing().SetSpanError(span, err)
		s.obs.Metrics().RecordEntityOperation(entityTypeBuq, "save", "error", time.Since(start))
		return nil, err
	}

	s.recordAudit(ctx, saved.ID, author, &before, saved)
	s.obs.Metrics().RecordEntityOperation(entityTypeBuq, "save", "success", time.Since(start))
	return s.builder.Build(ctx, saved), nil
}

func (s *BottomUpQuantificationService) Delete(ctx context.Context, id uuid.UUID, author string) error {
	ctx, span := s.obs.Tracing().StartOperation(ctx, "delete", entityTypeBuq, id.String())
	defer span.End()
	start := time.Now()

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.Status != domain.StatusDraft && existing.Status != domain.StatusRejected {
		err := utils.NewInvalidStateError("only draft or rejected quantifications can be deleted")
		s.obs.Metrics().RecordEntityOperation(entityTypeBuq, "delete", "error", time.Since(start))
		return err
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		s.obs.Tracing().SetSpanError(span, err)
		s.obs.Metrics().RecordEntityOperation(entityTypeBuq, "delete", "error", time.Since(start))
		return err
	}

	s.recordAudit(ctx, id, author, existing, nil)
	s.obs.Metrics().RecordEntityOperation(entityTypeBuq, "delete", "success", time.Since(start))
	s.logger.Info().Stringer("buq_id", id).Msg("quantification deleted")
	return nil
}

func (s *BottomUpQuantificationService) Submit(ctx context.Context, id uuid.UUID, author string, authorID uuid.UUID) (*dto.BottomUpQuantificationDto, error) {
	return s.transition(ctx, id, author, authorID, nil, domain.StatusSubmitted)
}

// Authorize confirms the submitted figures and hands the document to the
// approval chain, so it ends up IN_APPROVAL with both steps recorded.
func (s *BottomUpQuantificationService) Authorize(ctx context.Context, id uuid.UUID, author string, authorID uuid.UUID) (*dto.BottomUpQuantificationDto, error) {
	return s.transition(ctx, id, author, authorID, nil, domain.StatusAuthorized, domain.StatusInApproval)
}

func (s *BottomUpQuantificationService) Approve(ctx context.Context, id uuid.UUID, author string, authorID uuid.UUID) (*dto.BottomUpQuantificationDto, error) {
	return s.transition(ctx, id, author, authorID, nil, domain.StatusApproved)
}

// Reject sends a document back with a sanitized reason attached to the
// status change.
func (s *BottomUpQuantificationService) Reject(ctx context.Context, id uuid.UUID, author string, authorID uuid.UUID, reason *string) (*dto.BottomUpQuantificationDto, error) {
	return s.transition(ctx, id, author, authorID, s.sanitizer.CleanPtr(reason), domain.StatusRejected)
}

func (s *BottomUpQuantificationService) transition(ctx context.Context, id uuid.UUID, author string, authorID uuid.UUID, reason *string, steps ...domain.Status) (*dto.BottomUpQuantificationDto, error) {
	operation := "transition_" + string(steps[len(steps)-1])
	ctx, span := s.obs.Tracing().StartOperation(ctx, operation, entityTypeBuq, id.String())
	defer span.End()
	start := time.Now()

	var saved *domain.BottomUpQuantification
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		existing, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		before := *existing

		for _, next := range steps {
			if err := existing.ChangeStatus(next, authorID, reason); err != nil {
				return utils.NewInvalidStateError(err.Error())
			}
		}

		saved, err = s.repo.Save(ctx, existing)
		if err != nil {
			return err
		}
		s.recordAudit(ctx, saved.ID, author, &before, saved)
		return nil
	})
	if err != nil {
		s.obs.Tracing().SetSpanError(span, err)
		s.obs.Metrics().RecordEntityOperation(entityTypeBuq, operation, "error", time.Since(start))
		return nil, err
	}

	s.obs.Metrics().RecordEntityOperation(entityTypeBuq, operation, "success", time.Since(start))
	s.logger.Info().
		Stringer("buq_id", id).
		Str("status", string(saved.Status)).
		Stringer("author_id", authorID).
		Msg("quantification status changed")
	return s.builder.Build(ctx, saved), nil
}

// AuditLog returns the change history of one quantification, newest first,
// optionally narrowed by author or property name.
func (s *BottomUpQuantificationService) AuditLog(ctx context.Context, id uuid.UUID, filter audit.Filter, pageable search.Pageable) (store.Page[*audit.ChangeRecord], error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return store.Page[*audit.ChangeRecord]{}, err
	}
	return s.auditRepo.Query(ctx, id, filter, pageable)
}

// PreparationForm renders the document as the CSV preparation report,
// resolving product names from reference data.
func (s *BottomUpQuantificationService) PreparationForm(ctx context.Context, id uuid.UUID) ([]byte, error) {
	buq, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	products, err := s.refData.GetApprovedProducts(ctx, buq.FacilityID, buq.ProgramID)
	if err != nil {
		// The report degrades to identifiers when reference data is down.
		s.logger.Warn().Err(err).Stringer("buq_id", id).Msg("rendering preparation form without product names")
		products = nil
	}

	return renderPreparationForm(buq, products)
}

func (s *BottomUpQuantificationService) recordAudit(ctx context.Context, id uuid.UUID, author string, before, after interface{}) {
	if err := s.auditor.Record(ctx, entityTypeBuq, id, author, before, after); err != nil {
		s.logger.Warn().Err(err).Stringer("buq_id", id).Msg("failed to record audit trail")
	}
}

// versionFromPayload lets clients carry the version they read; an absent
// version keeps the stored one so the optimistic check still applies.
func versionFromPayload(in *dto.BottomUpQuantificationDto, current int64) int64 {
	if in.VersionNumber > 0 {
		return in.VersionNumber
	}
	return current
}
