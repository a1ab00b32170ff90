package dto

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
)

// BaseDto mirrors the persisted identity across the HTTP boundary. A DTO for
// an unsaved entity carries uuid.Nil until the create operation assigns one.
type BaseDto struct {
	ID uuid.UUID `json:"id,omitempty"`
}

func (d *BaseDto) GetID() uuid.UUID {
	return d.ID
}

func (d *BaseDto) SetID(id uuid.UUID) {
	d.ID = id
}

// Equals applies the identifier-based equality contract: equal iff both
// identifiers are assigned and equal. An unassigned identifier only matches
// the same instance.
func (d *BaseDto) Equals(other *BaseDto) bool {
	if other == nil {
		return false
	}
	if d.ID == uuid.Nil || other.ID == uuid.Nil {
		return d == other
	}
	return d.ID == other.ID
}

// Describe renders a diagnostic string for dto, naming every declared field
// of the concrete type. Nil pointer fields render as <nil> instead of
// failing, so the result is always safe to log.
func Describe(dto interface{}) string {
	value := reflect.ValueOf(dto)
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return "<nil>"
		}
		value = value.Elem()
	}

	var sb strings.Builder
	sb.WriteString(value.Type().Name())
	sb.WriteByte('{')
	writeFields(&sb, value, true)
	sb.WriteByte('}')
	return sb.String()
}

func writeFields(sb *strings.Builder, value reflect.Value, first bool) bool {
	t := value.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		fv := value.Field(i)
		if field.Anonymous && fv.Kind() == reflect.Struct {
			first = writeFields(sb, fv, first)
			continue
		}
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(field.Name)
		sb.WriteByte('=')
		sb.WriteString(describeValue(fv))
	}
	return first
}

func describeValue(v reflect.Value) string {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return "<nil>"
		}
		v = v.Elem()
	}
	return fmt.Sprintf("%v", v.Interface())
}
