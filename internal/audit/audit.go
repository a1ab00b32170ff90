// Package audit keeps an append-only log of field-level changes keyed by
// entity id, queryable by author and property name.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/openlmis/buq/internal/search"
	"github.com/openlmis/buq/internal/store"
)

// ChangeRecord is one field-level change of a persisted entity.
type ChangeRecord struct {
	ID           uuid.UUID  `json:"id"`
	EntityID     uuid.UUID  `json:"entityId"`
	EntityType   string     `json:"entityType"`
	PropertyName string     `json:"propertyName"`
	OldValue     *string    `json:"oldValue"`
	NewValue     *string    `json:"newValue"`
	Author       string     `json:"author"`
	OccurredDate time.Time  `json:"occurredDate"`
}

// Filter narrows an audit query. Nil fields match everything.
type Filter struct {
	Author       *string
	PropertyName *string
}

// Repository is the persistence boundary for the audit trail.
type Repository interface {
	Append(ctx context.Context, records []*ChangeRecord) error
	Query(ctx context.Context, entityID uuid.UUID, filter Filter, pageable search.Pageable) (store.Page[*ChangeRecord], error)
}
