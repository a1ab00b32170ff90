// Package search translates raw multi-valued query parameters into typed
// filter objects consumed by the repository layer. Recognized keys are
// enumerated per entity type; anything else is ignored so clients can send
// newer parameters without breaking older servers.
package search

import (
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/openlmis/buq/internal/domain"
	"github.com/openlmis/buq/pkg/utils"
)

// QueryParams is an immutable, read-only view over raw query parameters with
// typed accessors. Malformed values are collected, not reported one at a
// time, so a single error names every offending key.
type QueryParams struct {
	values     url.Values
	violations map[string]string
}

func NewQueryParams(values url.Values) *QueryParams {
	if values == nil {
		values = url.Values{}
	}
	return &QueryParams{
		values:     values,
		violations: make(map[string]string),
	}
}

// Has reports whether the key was supplied with a non-empty value.
func (p *QueryParams) Has(key string) bool {
	return p.values.Get(key) != ""
}

// String returns the raw value, or nil when the key is absent.
func (p *QueryParams) String(key string) *string {
	raw := p.values.Get(key)
	if raw == "" {
		return nil
	}
	return &raw
}

// UUID parses the value as a UUID; absence means no filter on the dimension.
func (p *QueryParams) UUID(key string) *uuid.UUID {
	raw := p.values.Get(key)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		p.violations[key] = fmt.Sprintf("%q is not a valid UUID", raw)
		return nil
	}
	return &id
}

// Status parses the value as a workflow status.
func (p *QueryParams) Status(key string) *domain.Status {
	raw := p.values.Get(key)
	if raw == "" {
		return nil
	}
	status, err := domain.ParseStatus(raw)
	if err != nil {
		p.violations[key] = err.Error()
		return nil
	}
	return &status
}

// Date parses the value as RFC 3339, falling back to a plain date.
func (p *QueryParams) Date(key string) *time.Time {
	raw := p.values.Get(key)
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		p.violations[key] = fmt.Sprintf("%q is not a valid date", raw)
		return nil
	}
	return &t
}

// Err returns a validation error naming every malformed key, or nil when all
// recognized parameters parsed cleanly.
func (p *QueryParams) Err() error {
	if len(p.violations) == 0 {
		return nil
	}
	return utils.NewValidationError("invalid search parameters", p.violations)
}
