package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/openlmis/buq/internal/domain"
	"github.com/openlmis/buq/internal/search"
	"github.com/openlmis/buq/internal/store"
	"github.com/openlmis/buq/pkg/utils"
)

// RemarkRepository is the Postgres-backed remark store.
type RemarkRepository struct {
	store *Store
}

func NewRemarkRepository(s *Store) *RemarkRepository {
	return &RemarkRepository{store: s}
}

var remarkSortColumns = map[string]string{
	"name": "name",
	"id":   "id",
}

func (r *RemarkRepository) Search(ctx context.Context, params *search.RemarkSearchParams, pageable search.Pageable) (store.Page[*domain.Remark], error) {
	var page store.Page[*domain.Remark]

	where := make([]string, 0, 1)
	args := make([]any, 0, 3)
	if params != nil && params.Name != nil {
		args = append(args, "%"+*params.Name+"%")
		where = append(where, fmt.Sprintf("name ILIKE $%d", len(args)))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM remarks` + whereClause
	if err := r.store.q(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return page, fmt.Errorf("failed to count remarks: %w", err)
	}

	orderClause := buildOrderClause(pageable.Sort, remarkSortColumns, "name ASC")
	args = append(args, pageable.Size, pageable.Offset())
	query := fmt.Sprintf(
		`SELECT id, version_number, name, description FROM remarks%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		whereClause, orderClause, len(args)-1, len(args))

	rows, err := r.store.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return page, fmt.Errorf("failed to search remarks: %w", err)
	}
	defer rows.Close()

	content := make([]*domain.Remark, 0, pageable.Size)
	for rows.Next() {
		var remark domain.Remark
		if err := rows.Scan(&remark.ID, &remark.VersionNumber, &remark.Name, &remark.Description); err != nil {
			return page, fmt.Errorf("failed to scan remark: %w", err)
		}
		content = append(content, &remark)
	}
	if err := rows.Err(); err != nil {
		return page, fmt.Errorf("failed to read remarks: %w", err)
	}

	page = store.Page[*domain.Remark]{
		Content:       content,
		Number:        pageable.Page,
		Size:          pageable.Size,
		TotalElements: total,
	}
	return page, nil
}

func (r *RemarkRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Remark, error) {
	var remark domain.Remark
	err := r.store.q(ctx).QueryRow(ctx,
		`SELECT id, version_number, name, description FROM remarks WHERE id = $1`, id,
	).Scan(&remark.ID, &remark.VersionNumber, &remark.Name, &remark.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, utils.NewNotFoundError("remark", id)
		}
		return nil, fmt.Errorf("failed to get remark: %w", err)
	}
	return &remark, nil
}

func (r *RemarkRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.store.q(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM remarks WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check remark existence: %w", err)
	}
	return exists, nil
}

func (r *RemarkRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	result, err := r.store.q(ctx).Exec(ctx, `DELETE FROM remarks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete remark: %w", err)
	}
	if result.RowsAffected() == 0 {
		return utils.NewNotFoundError("remark", id)
	}
	return nil
}

// Save inserts a new remark or updates an existing one with an
// optimistic-concurrency check.
func (r *RemarkRepository) Save(ctx context.Context, remark *domain.Remark) (*domain.Remark, error) {
	if remark.IsNew() {
		remark.ID = uuid.New()
		remark.VersionNumber = 1
		_, err := r.store.q(ctx).Exec(ctx,
			`INSERT INTO remarks (id, version_number, name, description) VALUES ($1, $2, $3, $4)`,
			remark.ID, remark.VersionNumber, remark.Name, remark.Description)
		if err != nil {
			return nil, fmt.Errorf("failed to create remark: %w", err)
		}
		return remark, nil
	}

	result, err := r.store.q(ctx).Exec(ctx,
		`UPDATE remarks
		 SET name = $1, description = $2, version_number = version_number + 1
		 WHERE id = $3 AND version_number = $4`,
		remark.Name, remark.Description, remark.ID, remark.VersionNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to update remark: %w", err)
	}
	if result.RowsAffected() == 0 {
		exists, existsErr := r.ExistsByID(ctx, remark.ID)
		if existsErr != nil {
			return nil, existsErr
		}
		if !exists {
			return nil, utils.NewNotFoundError("remark", remark.ID)
		}
		return nil, utils.NewConflictError("remark", remark.ID)
	}
	remark.VersionNumber++
	return remark, nil
}

// buildOrderClause maps requested sort fields onto whitelisted columns,
// falling back to the given default ordering.
func buildOrderClause(sorts []search.Sort, columns map[string]string, fallback string) string {
	clauses := make([]string, 0, len(sorts))
	for _, s := range sorts {
		column, ok := columns[s.Field]
		if !ok {
			continue
		}
		direction := "ASC"
		if s.Descending {
			direction = "DESC"
		}
		clauses = append(clauses, column+" "+direction)
	}
	if len(clauses) == 0 {
		return fallback
	}
	return strings.Join(clauses, ", ")
}
