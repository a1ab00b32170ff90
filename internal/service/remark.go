package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/openlmis/buq/internal/audit"
	"github.com/openlmis/buq/internal/domain"
	"github.com/openlmis/buq/internal/dto"
	"github.com/openlmis/buq/internal/observability"
	"github.com/openlmis/buq/internal/search"
	"github.com/openlmis/buq/internal/security"
	"github.com/openlmis/buq/internal/store"
)

// RemarkService owns the remark lifecycle: search, retrieval, creation,
// update and deletion, with field-level audit records for every mutation.
type RemarkService struct {
	repo      store.RemarkRepository
	validator *Validator
	sanitizer *security.Sanitizer
	auditor   *audit.Recorder
	obs       *observability.Manager
	logger    zerolog.Logger
}

func NewRemarkService(
	repo store.RemarkRepository,
	validator *Validator,
	sanitizer *security.Sanitizer,
	auditor *audit.Recorder,
	obs *observability.Manager,
) *RemarkService {
	return &RemarkService{
		repo:      repo,
		validator: validator,
		sanitizer: sanitizer,
		auditor:   auditor,
		obs:       obs,
		logger:    obs.Logger().With().Str("component", "remark_service").Logger(),
	}
}

func (s *RemarkService) Search(ctx context.Context, params *search.RemarkSearchParams, pageable search.Pageable) (store.Page[*dto.RemarkDto], error) {
	page, err := s.repo.Search(ctx, params, pageable)
	if err != nil {
		return store.Page[*dto.RemarkDto]{}, err
	}
	return store.MapPage(page, exportRemark), nil
}

func (s *RemarkService) Get(ctx context.Context, id uuid.UUID) (*dto.RemarkDto, error) {
	remark, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return exportRemark(remark), nil
}

// Create persists a new remark from importer data. The supplied identifier,
// if any, is ignored; the repository assigns one.
func (s *RemarkService) Create(ctx context.Context, author string, in *dto.RemarkDto) (*dto.RemarkDto, error) {
	ctx, span := s.obs.Tracing().StartOperation(ctx, "create", "remark", "")
	defer span.End()
	start := time.Now()

	s.sanitize(in)
	in.SetID(uuid.Nil)
	remark := domain.NewRemark(in)

	if err := s.validator.ValidateStruct(remark); err != nil {
		s.obs.Metrics().RecordEntityOperation("remark", "create", "error", time.Since(start))
		return nil, err
	}

	saved, err := s.repo.Save(ctx, remark)
	if err != nil {
		s.obs.Tracing().SetSpanError(span, err)
		s.obs.Metrics().RecordEntityOperation("remark", "create", "error", time.Since(start))
		return nil, err
	}

	if err := s.auditor.Record(ctx, "remark", saved.ID, author, nil, saved); err != nil {
		s.logger.Warn().Err(err).Stringer("remark_id", saved.ID).Msg("failed to record audit trail")
	}

	s.obs.Metrics().RecordEntityOperation("remark", "create", "success", time.Since(start))
	s.logger.Info().Stringer("remark_id", saved.ID).Str("name", saved.Name).Msg("remark created")
	return exportRemark(saved), nil
}

// Update applies importer data to the stored remark. The version number of
// the incoming payload decides whether the update is stale.
func (s *RemarkService) Update(ctx context.Context, id uuid.UUID, author string, in *dto.RemarkDto) (*dto.RemarkDto, error) {
	ctx, span := s.obs.Tracing().StartOperation(ctx, "update", "remark", id.String())
	defer span.End()
	start := time.Now()

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *existing

	s.sanitize(in)
	if in.VersionNumber > 0 {
		existing.VersionNumber = in.VersionNumber
	}
	existing.UpdateFrom(in)

	if err := s.validator.ValidateStruct(existing); err != nil {
		s.obs.Metrics().RecordEntityOperation("remark", "update", "error", time.Since(start))
		return nil, err
	}

	saved, err := s.repo.Save(ctx, existing)
	if err != nil {
		s.obs.Tracing().SetSpanError(span, err)
		s.obs.Metrics().RecordEntityOperation("remark", "update", "error", time.Since(start))
		return nil, err
	}

	if err := s.auditor.Record(ctx, "remark", saved.ID, author, &before, saved); err != nil {
		s.logger.Warn().Err(err).Stringer("remark_id", saved.ID).Msg("failed to record audit trail")
	}

	s.obs.Metrics().RecordEntityOperation("remark", "update", "success", time.Since(start))
	return exportRemark(saved), nil
}

func (s *RemarkService) Delete(ctx context.Context, id uuid.UUID, author string) error {
	ctx, span := s.obs.Tracing().StartOperation(ctx, "delete", "remark", id.String())
	defer span.End()
	start := time.Now()

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		s.obs.Tracing().SetSpanError(span, err)
		s.obs.Metrics().RecordEntityOperation("remark", "delete", "error", time.Since(start))
		return err
	}

	if err := s.auditor.Record(ctx, "remark", id, author, existing, nil); err != nil {
		s.logger.Warn().Err(err).Stringer("remark_id", id).Msg("failed to record audit trail")
	}

	s.obs.Metrics().RecordEntityOperation("remark", "delete", "success", time.Since(start))
	s.logger.Info().Stringer("remark_id", id).Msg("remark deleted")
	return nil
}

func (s *RemarkService) sanitize(in *dto.RemarkDto) {
	if in == nil {
		panic("service: nil RemarkDto")
	}
	in.Name = s.sanitizer.Clean(in.Name)
	in.Description = s.sanitizer.CleanPtr(in.Description)
}

func exportRemark(remark *domain.Remark) *dto.RemarkDto {
	out := &dto.RemarkDto{}
	remark.Export(out)
	out.VersionNumber = remark.VersionNumber
	return out
}
