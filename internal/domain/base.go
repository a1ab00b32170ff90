package domain

import (
	"github.com/google/uuid"
)

// BaseEntity carries the identity and optimistic-concurrency metadata shared
// by every persisted type. A zero ID (uuid.Nil) marks an entity that has not
// been persisted yet.
type BaseEntity struct {
	ID            uuid.UUID `json:"id"`
	VersionNumber int64     `json:"versionNumber"`
}

// BaseImporter is the read side of the capability contract every entity
// importer embeds.
type BaseImporter interface {
	GetID() uuid.UUID
}

// BaseExporter is the write side of the capability contract every entity
// exporter embeds.
type BaseExporter interface {
	SetID(id uuid.UUID)
}

func (e *BaseEntity) GetID() uuid.UUID {
	return e.ID
}

func (e *BaseEntity) SetID(id uuid.UUID) {
	e.ID = id
}

// IsNew reports whether the entity has been assigned a persistent identity.
func (e *BaseEntity) IsNew() bool {
	return e.ID == uuid.Nil
}

// SameIdentityAs implements identifier-based equality: two entities are equal
// iff both identifiers are assigned and equal. An entity without an
// identifier is only equal to itself.
func (e *BaseEntity) SameIdentityAs(other *BaseEntity) bool {
	if other == nil {
		return false
	}
	if e.ID == uuid.Nil || other.ID == uuid.Nil {
		return e == other
	}
	return e.ID == other.ID
}
