package audit

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Recorder turns before/after entity snapshots into change records and
// appends them to the audit trail.
type Recorder struct {
	repo Repository
}

func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo}
}

// Record diffs two snapshots of the same entity and appends one record per
// changed scalar property. A nil before marks creation, a nil after marks
// deletion.
func (r *Recorder) Record(ctx context.Context, entityType string, entityID uuid.UUID, author string, before, after interface{}) error {
	records := Diff(entityType, entityID, author, FieldMap(before), FieldMap(after))
	if len(records) == 0 {
		return nil
	}
	return r.repo.Append(ctx, records)
}

// Diff produces change records for every property whose rendered value
// differs between the two snapshots, in deterministic property order.
func Diff(entityType string, entityID uuid.UUID, author string, before, after map[string]*string) []*ChangeRecord {
	names := make(map[string]struct{}, len(before)+len(after))
	for name := range before {
		names[name] = struct{}{}
	}
	for name := range after {
		names[name] = struct{}{}
	}

	ordered := make([]string, 0, len(names))
	for name := range names {
		ordered = append(ordered, name)
	}
	sort.Strings(ordered)

	now := time.Now().UTC()
	var records []*ChangeRecord
	for _, name := range ordered {
		oldValue := before[name]
		newValue := after[name]
		if stringEqual(oldValue, newValue) {
			continue
		}
		records = append(records, &ChangeRecord{
			EntityID:     entityID,
			EntityType:   entityType,
			PropertyName: name,
			OldValue:     oldValue,
			NewValue:     newValue,
			Author:       author,
			OccurredDate: now,
		})
	}
	return records
}

// FieldMap flattens the scalar exported fields of an entity snapshot into
// property name/value pairs. Collections are tracked through their own
// entities, not through the parent diff.
func FieldMap(snapshot interface{}) map[string]*string {
	if snapshot == nil {
		return nil
	}
	value := reflect.ValueOf(snapshot)
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return nil
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return nil
	}

	fields := make(map[string]*string)
	collectFields(value, fields)
	return fields
}

// Identity and concurrency metadata never show up as audited properties.
var skippedFields = map[string]struct{}{
	"ID":            {},
	"VersionNumber": {},
}

func collectFields(value reflect.Value, fields map[string]*string) {
	t := value.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		if _, skip := skippedFields[field.Name]; skip {
			continue
		}
		fv := value.Field(i)
		if field.Anonymous && fv.Kind() == reflect.Struct {
			collectFields(fv, fields)
			continue
		}
		if rendered, ok := renderScalar(fv); ok {
			fields[field.Name] = rendered
		}
	}
}

func renderScalar(v reflect.Value) (*string, bool) {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, true
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array, reflect.Chan, reflect.Func:
		return nil, false
	}
	rendered := fmt.Sprintf("%v", v.Interface())
	return &rendered, true
}

func stringEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
