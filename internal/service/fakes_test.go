package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openlmis/buq/internal/audit"
	"github.com/openlmis/buq/internal/domain"
	"github.com/openlmis/buq/internal/observability"
	"github.com/openlmis/buq/internal/referencedata"
	"github.com/openlmis/buq/internal/search"
	"github.com/openlmis/buq/internal/store"
	"github.com/openlmis/buq/pkg/utils"
)

func testObservability() *observability.Manager {
	obs, err := observability.NewManager(observability.Config{
		Logging: observability.LoggingConfig{Level: "error", Format: observability.LogFormatJSON},
	})
	if err != nil {
		panic(err)
	}
	return obs
}

type fakeRemarkRepo struct {
	mu      sync.Mutex
	remarks map[uuid.UUID]domain.Remark
}

func newFakeRemarkRepo() *fakeRemarkRepo {
	return &fakeRemarkRepo{remarks: make(map[uuid.UUID]domain.Remark)}
}

func (r *fakeRemarkRepo) Search(ctx context.Context, params *search.RemarkSearchParams, pageable search.Pageable) (store.Page[*domain.Remark], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []*domain.Remark
	for id := range r.remarks {
		remark := r.remarks[id]
		if params.Name != nil && remark.Name != *params.Name {
			continue
		}
		all = append(all, &remark)
	}

	total := int64(len(all))
	start := pageable.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + pageable.Size
	if end > len(all) {
		end = len(all)
	}
	return store.Page[*domain.Remark]{
		Content:       all[start:end],
		Number:        pageable.Page,
		Size:          pageable.Size,
		TotalElements: total,
	}, nil
}

func (r *fakeRemarkRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Remark, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	remark, ok := r.remarks[id]
	if !ok {
		return nil, utils.NewNotFoundError("remark", id)
	}
	return &remark, nil
}

func (r *fakeRemarkRepo) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.remarks[id]
	return ok, nil
}

func (r *fakeRemarkRepo) DeleteByID(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.remarks[id]; !ok {
		return utils.NewNotFoundError("remark", id)
	}
	delete(r.remarks, id)
	return nil
}

func (r *fakeRemarkRepo) Save(ctx context.Context, remark *domain.Remark) (*domain.Remark, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if remark.IsNew() {
		remark.SetID(uuid.New())
		remark.VersionNumber = 1
		r.remarks[remark.ID] = *remark
		return remark, nil
	}

	stored, ok := r.remarks[remark.ID]
	if !ok {
		return nil, utils.NewNotFoundError("remark", remark.ID)
	}
	if stored.VersionNumber != remark.VersionNumber {
		return nil, utils.NewConflictError("remark", remark.ID)
	}
	remark.VersionNumber++
	r.remarks[remark.ID] = *remark
	return remark, nil
}

type fakeBuqRepo struct {
	mu   sync.Mutex
	buqs map[uuid.UUID]*domain.BottomUpQuantification
}

func newFakeBuqRepo() *fakeBuqRepo {
	return &fakeBuqRepo{buqs: make(map[uuid.UUID]*domain.BottomUpQuantification)}
}

func (r *fakeBuqRepo) Search(ctx context.Context, params *search.BottomUpQuantificationSearchParams, pageable search.Pageable) (store.Page[*domain.BottomUpQuantification], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*domain.BottomUpQuantification
	for _, buq := range r.buqs {
		if params.FacilityID != nil && buq.FacilityID != *params.FacilityID {
			continue
		}
		if params.Status != nil && buq.Status != *params.Status {
			continue
		}
		copied := *buq
		matched = append(matched, &copied)
	}

	total := int64(len(matched))
	start := pageable.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + pageable.Size
	if end > len(matched) {
		end = len(matched)
	}
	return store.Page[*domain.BottomUpQuantification]{
		Content:       matched[start:end],
		Number:        pageable.Page,
		Size:          pageable.Size,
		TotalElements: total,
	}, nil
}

func (r *fakeBuqRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.BottomUpQuantification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	buq, ok := r.buqs[id]
	if !ok {
		return nil, utils.NewNotFoundError("bottom-up quantification", id)
	}
	copied := *buq
	return &copied, nil
}

func (r *fakeBuqRepo) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.buqs[id]
	return ok, nil
}

func (r *fakeBuqRepo) DeleteByID(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.buqs[id]; !ok {
		return utils.NewNotFoundError("bottom-up quantification", id)
	}
	delete(r.buqs, id)
	return nil
}

func (r *fakeBuqRepo) Save(ctx context.Context, buq *domain.BottomUpQuantification) (*domain.BottomUpQuantification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if buq.IsNew() {
		buq.SetID(uuid.New())
		buq.VersionNumber = 1
		for _, item := range buq.LineItems {
			item.BottomUpQuantificationID = buq.ID
		}
	} else {
		stored, ok := r.buqs[buq.ID]
		if !ok {
			return nil, utils.NewNotFoundError("bottom-up quantification", buq.ID)
		}
		if stored.VersionNumber != buq.VersionNumber {
			return nil, utils.NewConflictError("bottom-up quantification", buq.ID)
		}
		buq.VersionNumber++
	}

	copied := *buq
	r.buqs[buq.ID] = &copied
	return buq, nil
}

type fakeTxManager struct{}

func (fakeTxManager) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	records []*audit.ChangeRecord
}

func (r *fakeAuditRepo) Append(ctx context.Context, records []*audit.ChangeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, records...)
	return nil
}

func (r *fakeAuditRepo) Query(ctx context.Context, entityID uuid.UUID, filter audit.Filter, pageable search.Pageable) (store.Page[*audit.ChangeRecord], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*audit.ChangeRecord
	for _, record := range r.records {
		if record.EntityID != entityID {
			continue
		}
		if filter.Author != nil && record.Author != *filter.Author {
			continue
		}
		if filter.PropertyName != nil && record.PropertyName != *filter.PropertyName {
			continue
		}
		matched = append(matched, record)
	}
	return store.Page[*audit.ChangeRecord]{
		Content:       matched,
		Number:        pageable.Page,
		Size:          pageable.Size,
		TotalElements: int64(len(matched)),
	}, nil
}

type fakeReferenceData struct {
	facilities map[uuid.UUID]*referencedata.Facility
	programs   map[uuid.UUID]*referencedata.Program
	periods    map[uuid.UUID]*referencedata.ProcessingPeriod
	products   []*referencedata.ApprovedProduct
	err        error
}

func newFakeReferenceData() *fakeReferenceData {
	return &fakeReferenceData{
		facilities: make(map[uuid.UUID]*referencedata.Facility),
		programs:   make(map[uuid.UUID]*referencedata.Program),
		periods:    make(map[uuid.UUID]*referencedata.ProcessingPeriod),
	}
}

func (f *fakeReferenceData) addFacility(name string) uuid.UUID {
	id := uuid.New()
	f.facilities[id] = &referencedata.Facility{ID: id, Code: "F-" + name, Name: name}
	return id
}

func (f *fakeReferenceData) addProgram(name string) uuid.UUID {
	id := uuid.New()
	f.programs[id] = &referencedata.Program{ID: id, Code: "P-" + name, Name: name}
	return id
}

func (f *fakeReferenceData) addPeriod(name string, year int) uuid.UUID {
	id := uuid.New()
	f.periods[id] = &referencedata.ProcessingPeriod{
		ID:        id,
		Name:      name,
		StartDate: time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	return id
}

func (f *fakeReferenceData) addProduct(code, name, price string) uuid.UUID {
	id := uuid.New()
	f.products = append(f.products, &referencedata.ApprovedProduct{
		OrderableID:     id,
		ProductCode:     code,
		FullProductName: name,
		PricePerPack:    decimal.RequireFromString(price),
	})
	return id
}

func (f *fakeReferenceData) GetFacility(ctx context.Context, id uuid.UUID) (*referencedata.Facility, error) {
	if f.err != nil {
		return nil, f.err
	}
	facility, ok := f.facilities[id]
	if !ok {
		return nil, utils.NewNotFoundError("facility", id)
	}
	return facility, nil
}

func (f *fakeReferenceData) GetProgram(ctx context.Context, id uuid.UUID) (*referencedata.Program, error) {
	if f.err != nil {
		return nil, f.err
	}
	program, ok := f.programs[id]
	if !ok {
		return nil, utils.NewNotFoundError("program", id)
	}
	return program, nil
}

func (f *fakeReferenceData) GetProcessingPeriod(ctx context.Context, id uuid.UUID) (*referencedata.ProcessingPeriod, error) {
	if f.err != nil {
		return nil, f.err
	}
	period, ok := f.periods[id]
	if !ok {
		return nil, utils.NewNotFoundError("processing period", id)
	}
	return period, nil
}

func (f *fakeReferenceData) GetApprovedProducts(ctx context.Context, facilityID, programID uuid.UUID) ([]*referencedata.ApprovedProduct, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.products, nil
}
