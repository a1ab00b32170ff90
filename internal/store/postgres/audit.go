package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/openlmis/buq/internal/audit"
	"github.com/openlmis/buq/internal/search"
	"github.com/openlmis/buq/internal/store"
)

// AuditLogRepository is the Postgres-backed append-only audit trail.
type AuditLogRepository struct {
	store *Store
}

func NewAuditLogRepository(s *Store) *AuditLogRepository {
	return &AuditLogRepository{store: s}
}

func (r *AuditLogRepository) Append(ctx context.Context, records []*audit.ChangeRecord) error {
	q := r.store.q(ctx)
	for _, record := range records {
		if record.ID == uuid.Nil {
			record.ID = uuid.New()
		}
		_, err := q.Exec(ctx,
			`INSERT INTO audit_log
			 (id, entity_id, entity_type, property_name, old_value, new_value, author, occurred_date)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			record.ID, record.EntityID, record.EntityType, record.PropertyName,
			record.OldValue, record.NewValue, record.Author, record.OccurredDate)
		if err != nil {
			return fmt.Errorf("failed to append audit record: %w", err)
		}
	}
	return nil
}

func (r *AuditLogRepository) Query(ctx context.Context, entityID uuid.UUID, filter audit.Filter, pageable search.Pageable) (store.Page[*audit.ChangeRecord], error) {
	var page store.Page[*audit.ChangeRecord]

	where := []string{"entity_id = $1"}
	args := []any{entityID}
	if filter.Author != nil {
		args = append(args, *filter.Author)
		where = append(where, fmt.Sprintf("author = $%d", len(args)))
	}
	if filter.PropertyName != nil {
		args = append(args, *filter.PropertyName)
		where = append(where, fmt.Sprintf("property_name = $%d", len(args)))
	}
	whereClause := " WHERE " + strings.Join(where, " AND ")

	var total int64
	if err := r.store.q(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM audit_log`+whereClause, args...).Scan(&total); err != nil {
		return page, fmt.Errorf("failed to count audit records: %w", err)
	}

	args = append(args, pageable.Size, pageable.Offset())
	query := fmt.Sprintf(
		`SELECT id, entity_id, entity_type, property_name, old_value, new_value, author, occurred_date
		 FROM audit_log%s ORDER BY occurred_date DESC, property_name LIMIT $%d OFFSET $%d`,
		whereClause, len(args)-1, len(args))

	rows, err := r.store.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return page, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer rows.Close()

	content := make([]*audit.ChangeRecord, 0, pageable.Size)
	for rows.Next() {
		var record audit.ChangeRecord
		if err := rows.Scan(&record.ID, &record.EntityID, &record.EntityType,
			&record.PropertyName, &record.OldValue, &record.NewValue,
			&record.Author, &record.OccurredDate); err != nil {
			return page, fmt.Errorf("failed to scan audit record: %w", err)
		}
		content = append(content, &record)
	}
	if err := rows.Err(); err != nil {
		return page, fmt.Errorf("failed to read audit records: %w", err)
	}

	page = store.Page[*audit.ChangeRecord]{
		Content:       content,
		Number:        pageable.Page,
		Size:          pageable.Size,
		TotalElements: total,
	}
	return page, nil
}
