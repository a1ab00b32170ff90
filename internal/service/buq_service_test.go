package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlmis/buq/internal/audit"
	"github.com/openlmis/buq/internal/domain"
	"github.com/openlmis/buq/internal/dto"
	"github.com/openlmis/buq/internal/search"
	"github.com/openlmis/buq/internal/security"
	"github.com/openlmis/buq/pkg/utils"
)

type buqFixture struct {
	svc       *BottomUpQuantificationService
	repo      *fakeBuqRepo
	refData   *fakeReferenceData
	auditRepo *fakeAuditRepo

	facilityID uuid.UUID
	programID  uuid.UUID
	periodID   uuid.UUID
}

func newBuqFixture(t *testing.T) *buqFixture {
	t.Helper()
	obs := testObservability()
	repo := newFakeBuqRepo()
	refData := newFakeReferenceData()
	auditRepo := &fakeAuditRepo{}

	svc := NewBottomUpQuantificationService(
		repo,
		auditRepo,
		refData,
		fakeTxManager{},
		NewDtoBuilder(refData, newFakeRemarkRepo(), obs.Logger()),
		NewValidator(),
		security.NewSanitizer(),
		audit.NewRecorder(auditRepo),
		obs,
	)

	fixture := &buqFixture{
		svc:        svc,
		repo:       repo,
		refData:    refData,
		auditRepo:  auditRepo,
		facilityID: refData.addFacility("Lurio Health Center"),
		programID:  refData.addProgram("Essential Meds"),
		periodID:   refData.addPeriod("AnnualPeriod2026", 2026),
	}
	refData.addProduct("C100", "Paracetamol 500mg", "1.25")
	refData.addProduct("C200", "Amoxicillin 250mg", "3.40")
	return fixture
}

func (f *buqFixture) prepare(t *testing.T) *dto.BottomUpQuantificationDto {
	t.Helper()
	prepared, err := f.svc.Prepare(context.Background(), "jdoe", f.facilityID, f.programID, f.periodID)
	require.NoError(t, err)
	return prepared
}

func TestBuqService_Prepare(t *testing.T) {
	f := newBuqFixture(t)

	prepared := f.prepare(t)

	assert.NotEqual(t, uuid.Nil, prepared.ID)
	assert.Equal(t, domain.StatusDraft, prepared.Status)
	assert.Equal(t, 2026, prepared.TargetYear)
	assert.EqualValues(t, 1, prepared.VersionNumber)

	require.Len(t, prepared.LineItems, 2)
	for _, item := range prepared.LineItems {
		require.NotNil(t, item.AnnualAdjustedConsumption)
		assert.Zero(t, *item.AnnualAdjustedConsumption)
		assert.True(t, decimal.Zero.Equal(item.TotalCost))
	}

	// The builder denormalizes the reference-data objects.
	require.NotNil(t, prepared.Facility)
	assert.Equal(t, "Lurio Health Center", prepared.Facility.Name)
	require.NotNil(t, prepared.Program)
	require.NotNil(t, prepared.ProcessingPeriod)

	require.NotEmpty(t, f.auditRepo.records)
}

func TestBuqService_Prepare_UnknownFacility(t *testing.T) {
	f := newBuqFixture(t)

	_, err := f.svc.Prepare(context.Background(), "jdoe", uuid.New(), f.programID, f.periodID)
	require.Error(t, err)
	assert.True(t, utils.IsNotFound(err))
}

func TestBuqService_Save_ReplacesLineItems(t *testing.T) {
	f := newBuqFixture(t)
	ctx := context.Background()
	prepared := f.prepare(t)

	consumption := 1200
	verified := 1150
	demand := 1300
	payload := &dto.BottomUpQuantificationDto{
		VersionNumber:      prepared.VersionNumber,
		FacilityID:         prepared.FacilityID,
		ProgramID:          prepared.ProgramID,
		ProcessingPeriodID: prepared.ProcessingPeriodID,
		TargetYear:         prepared.TargetYear,
		LineItems: []*dto.BottomUpQuantificationLineItemDto{
			{
				OrderableID:                       prepared.LineItems[0].OrderableID,
				AnnualAdjustedConsumption:         &consumption,
				VerifiedAnnualAdjustedConsumption: &verified,
				ForecastedDemand:                  &demand,
				TotalCost:                         decimal.RequireFromString("1500.00"),
			},
		},
	}

	saved, err := f.svc.Save(ctx, prepared.ID, "jdoe", payload)
	require.NoError(t, err)

	assert.EqualValues(t, 2, saved.VersionNumber)
	require.Len(t, saved.LineItems, 1)
	assert.Equal(t, 1200, *saved.LineItems[0].AnnualAdjustedConsumption)
	assert.Equal(t, 1300, *saved.LineItems[0].ForecastedDemand)
	assert.Equal(t, domain.StatusDraft, saved.Status, "save never changes the workflow status")
}

func TestBuqService_Save_StatusInPayloadIgnored(t *testing.T) {
	f := newBuqFixture(t)
	prepared := f.prepare(t)

	saved, err := f.svc.Save(context.Background(), prepared.ID, "jdoe", &dto.BottomUpQuantificationDto{
		VersionNumber:      prepared.VersionNumber,
		FacilityID:         prepared.FacilityID,
		ProgramID:          prepared.ProgramID,
		ProcessingPeriodID: prepared.ProcessingPeriodID,
		TargetYear:         prepared.TargetYear,
		Status:             domain.StatusApproved,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusDraft, saved.Status)
}

func TestBuqService_Save_StaleVersionConflicts(t *testing.T) {
	f := newBuqFixture(t)
	ctx := context.Background()
	prepared := f.prepare(t)

	base := &dto.BottomUpQuantificationDto{
		VersionNumber:      prepared.VersionNumber,
		FacilityID:         prepared.FacilityID,
		ProgramID:          prepared.ProgramID,
		ProcessingPeriodID: prepared.ProcessingPeriodID,
		TargetYear:         prepared.TargetYear,
	}

	_, err := f.svc.Save(ctx, prepared.ID, "first", base)
	require.NoError(t, err)

	_, err = f.svc.Save(ctx, prepared.ID, "second", base)
	require.Error(t, err)
	assert.True(t, utils.IsConflict(err))
}

func TestBuqService_Save_NotFound(t *testing.T) {
	f := newBuqFixture(t)

	_, err := f.svc.Save(context.Background(), uuid.New(), "jdoe", &dto.BottomUpQuantificationDto{})
	require.Error(t, err)
	assert.True(t, utils.IsNotFound(err))
}

func TestBuqService_Save_NilDtoPanics(t *testing.T) {
	f := newBuqFixture(t)
	assert.Panics(t, func() {
		f.svc.Save(context.Background(), uuid.New(), "jdoe", nil) //nolint:errcheck
	})
}

func TestBuqService_Delete_DraftAndRejectedOnly(t *testing.T) {
	f := newBuqFixture(t)
	ctx := context.Background()
	authorID := uuid.New()

	draft := f.prepare(t)
	require.NoError(t, f.svc.Delete(ctx, draft.ID, "jdoe"))

	submitted := f.prepare(t)
	_, err := f.svc.Submit(ctx, submitted.ID, "jdoe", authorID)
	require.NoError(t, err)

	err = f.svc.Delete(ctx, submitted.ID, "jdoe")
	require.Error(t, err)
	assert.True(t, utils.IsInvalidState(err))

	_, err = f.svc.Reject(ctx, submitted.ID, "jdoe", authorID, nil)
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, submitted.ID, "jdoe"))
}

func TestBuqService_Workflow(t *testing.T) {
	f := newBuqFixture(t)
	ctx := context.Background()
	authorID := uuid.New()
	prepared := f.prepare(t)

	submitted, err := f.svc.Submit(ctx, prepared.ID, "jdoe", authorID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, submitted.Status)

	authorized, err := f.svc.Authorize(ctx, prepared.ID, "jdoe", authorID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInApproval, authorized.Status)

	approved, err := f.svc.Approve(ctx, prepared.ID, "jdoe", authorID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, approved.Status)

	// Every step of the path is on record, the authorize hand-off included.
	statuses := make([]domain.Status, 0, len(approved.StatusChanges))
	for _, change := range approved.StatusChanges {
		statuses = append(statuses, change.Status)
		assert.Equal(t, authorID, change.AuthorID)
	}
	assert.Equal(t, []domain.Status{
		domain.StatusSubmitted,
		domain.StatusAuthorized,
		domain.StatusInApproval,
		domain.StatusApproved,
	}, statuses)
}

func TestBuqService_Reject_SanitizesReason(t *testing.T) {
	f := newBuqFixture(t)
	ctx := context.Background()
	authorID := uuid.New()
	prepared := f.prepare(t)

	_, err := f.svc.Submit(ctx, prepared.ID, "jdoe", authorID)
	require.NoError(t, err)

	reason := `figures look <script>bad()</script> inflated`
	rejected, err := f.svc.Reject(ctx, prepared.ID, "reviewer", authorID, &reason)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusRejected, rejected.Status)
	last := rejected.StatusChanges[len(rejected.StatusChanges)-1]
	require.NotNil(t, last.RejectionReason)
	assert.Equal(t, "figures look  inflated", *last.RejectionReason)
	assert.False(t, last.OccurredDate.IsZero())
}

func TestBuqService_IllegalTransition(t *testing.T) {
	f := newBuqFixture(t)
	prepared := f.prepare(t)

	// A draft cannot be approved directly.
	_, err := f.svc.Approve(context.Background(), prepared.ID, "jdoe", uuid.New())
	require.Error(t, err)
	assert.True(t, utils.IsInvalidState(err))

	// The failed transition leaves the document untouched.
	current, err := f.svc.Get(context.Background(), prepared.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, current.Status)
	assert.Equal(t, prepared.VersionNumber, current.VersionNumber)
}

func TestBuqService_Transition_NotFound(t *testing.T) {
	f := newBuqFixture(t)

	_, err := f.svc.Submit(context.Background(), uuid.New(), "jdoe", uuid.New())
	require.Error(t, err)
	assert.True(t, utils.IsNotFound(err))
}

func TestBuqService_Search_UsesPlainRepresentation(t *testing.T) {
	f := newBuqFixture(t)
	f.prepare(t)
	f.prepare(t)

	page, err := f.svc.Search(context.Background(), &search.BottomUpQuantificationSearchParams{},
		search.Pageable{Size: search.DefaultPageSize})
	require.NoError(t, err)

	assert.EqualValues(t, 2, page.TotalElements)
	require.Len(t, page.Content, 2)
	for _, item := range page.Content {
		// Listings skip the reference-data fan-out.
		assert.Nil(t, item.Facility)
		assert.Nil(t, item.Program)
	}
}

func TestBuqService_AuditLog(t *testing.T) {
	f := newBuqFixture(t)
	ctx := context.Background()
	prepared := f.prepare(t)

	_, err := f.svc.Submit(ctx, prepared.ID, "reviewer", uuid.New())
	require.NoError(t, err)

	page, err := f.svc.AuditLog(ctx, prepared.ID, audit.Filter{}, search.Pageable{Size: search.DefaultPageSize})
	require.NoError(t, err)
	assert.NotEmpty(t, page.Content)

	author := "reviewer"
	filtered, err := f.svc.AuditLog(ctx, prepared.ID, audit.Filter{Author: &author}, search.Pageable{Size: search.DefaultPageSize})
	require.NoError(t, err)
	for _, record := range filtered.Content {
		assert.Equal(t, "reviewer", record.Author)
	}

	_, err = f.svc.AuditLog(ctx, uuid.New(), audit.Filter{}, search.Pageable{Size: search.DefaultPageSize})
	require.Error(t, err)
	assert.True(t, utils.IsNotFound(err))
}
