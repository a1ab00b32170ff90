package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/openlmis/buq/internal/domain"
	"github.com/openlmis/buq/internal/search"
)

// RemarkRepository is the persistence boundary for remarks. Save assigns an
// identifier on first persistence and detects lost updates through the
// version number.
type RemarkRepository interface {
	Search(ctx context.Context, params *search.RemarkSearchParams, pageable search.Pageable) (Page[*domain.Remark], error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Remark, error)
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	Save(ctx context.Context, remark *domain.Remark) (*domain.Remark, error)
}

// BottomUpQuantificationRepository persists quantification documents with
// their line items and status changes as one aggregate.
type BottomUpQuantificationRepository interface {
	Search(ctx context.Context, params *search.BottomUpQuantificationSearchParams, pageable search.Pageable) (Page[*domain.BottomUpQuantification], error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.BottomUpQuantification, error)
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	Save(ctx context.Context, buq *domain.BottomUpQuantification) (*domain.BottomUpQuantification, error)
}

/// TxManager wraps an operation in a request-scoped transaction: commit on
// nil error, rollback otherwise. Repositories resolve the transaction from
// the context so services stay persistence-agnostic.
type TxManager interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
