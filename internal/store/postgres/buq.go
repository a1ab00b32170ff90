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

// BottomUpQuantificationRepository persists quantification aggregates: the
// document row, its line items and its status changes.
type BottomUpQuantificationRepository struct {
	store *Store
}

func NewBottomUpQuantificationRepository(s *Store) *BottomUpQuantificationRepository {
	return &BottomUpQuantificationRepository{store: s}
}

var buqSortColumns = map[string]string{
	"createdDate":  "created_date",
	"modifiedDate": "modified_date",
	"status":       "status",
	"targetYear":   "target_year",
}

const buqColumns = `id, version_number, facility_id, program_id, processing_period_id,
	target_year, status, created_date, modified_date`

func (r *BottomUpQuantificationRepository) Search(ctx context.Context, params *search.BottomUpQuantificationSearchParams, pageable search.Pageable) (store.Page[*domain.BottomUpQuantification], error) {
	var page store.Page[*domain.BottomUpQuantification]

	where := make([]string, 0, 5)
	args := make([]any, 0, 7)
	if params != nil {
		if params.FacilityID != nil {
			args = append(args, *params.FacilityID)
			where = append(where, fmt.Sprintf("facility_id = $%d", len(args)))
		}
		if params.ProgramID != nil {
			args = append(args, *params.ProgramID)
			where = append(where, fmt.Sprintf("program_id = $%d", len(args)))
		}
		if params.ProcessingPeriodID != nil {
			args = append(args, *params.ProcessingPeriodID)
			where = append(where, fmt.Sprintf("processing_period_id = $%d", len(args)))
		}
		if params.Status != nil {
			args = append(args, string(*params.Status))
			where = append(where, fmt.Sprintf("status = $%d", len(args)))
		}
		if params.ModifiedDateFrom != nil {
			args = append(args, *params.ModifiedDateFrom)
			where = append(where, fmt.Sprintf("modified_date >= $%d", len(args)))
		}
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM bottom_up_quantifications` + whereClause
	if err := r.store.q(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return page, fmt.Errorf("failed to count bottom-up quantifications: %w", err)
	}

	orderClause := buildOrderClause(pageable.Sort, buqSortColumns, "created_date DESC")
	args = append(args, pageable.Size, pageable.Offset())
	query := fmt.Sprintf(
		`SELECT %s FROM bottom_up_quantifications%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		buqColumns, whereClause, orderClause, len(args)-1, len(args))

	rows, err := r.store.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return page, fmt.Errorf("failed to search bottom-up quantifications: %w", err)
	}
	defer rows.Close()

	content := make([]*domain.BottomUpQuantification, 0, pageable.Size)
	for rows.Next() {
		buq, err := scanBuq(rows)
		if err != nil {
			return page, err
		}
		content = append(content, buq)
	}
	if err := rows.Err(); err != nil {
		return page, fmt.Errorf("failed to read bottom-up quantifications: %w", err)
	}

	if err := r.loadChildren(ctx, content); err != nil {
		return page, err
	}

	page = store.Page[*domain.BottomUpQuantification]{
		Content:       content,
		Number:        pageable.Page,
		Size:          pageable.Size,
		TotalElements: total,
	}
	return page, nil
}

func (r *BottomUpQuantificationRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.BottomUpQuantification, error) {
	row := r.store.q(ctx).QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM bottom_up_quantifications WHERE id = $1`, buqColumns), id)
	buq, err := scanBuq(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, utils.NewNotFoundError("bottom-up quantification", id)
		}
		return nil, err
	}
	if err := r.loadChildren(ctx, []*domain.BottomUpQuantification{buq}); err != nil {
		return nil, err
	}
	return buq, nil
}

func (r *BottomUpQuantificationRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.store.q(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM bottom_up_quantifications WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check bottom-up quantification existence: %w", err)
	}
	return exists, nil
}

func (r *BottomUpQuantificationRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	result, err := r.store.q(ctx).Exec(ctx,
		`DELETE FROM bottom_up_quantifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete bottom-up quantification: %w", err)
	}
	if result.RowsAffected() == 0 {
		return utils.NewNotFoundError("bottom-up quantification", id)
	}
	return nil
}

// Save writes the whole aggregate. Line items are replaced with the current
// set; status changes are append-only. The document row carries the
// optimistic-concurrency check.
func (r *BottomUpQuantificationRepository) Save(ctx context.Context, buq *domain.BottomUpQuantification) (*domain.BottomUpQuantification, error) {
	var saved *domain.BottomUpQuantification
	err := r.store.InTx(ctx, func(ctx context.Context) error {
		var err error
		saved, err = r.saveInTx(ctx, buq)
		return err
	})
	return saved, err
}

func (r *BottomUpQuantificationRepository) saveInTx(ctx context.Context, buq *domain.BottomUpQuantification) (*domain.BottomUpQuantification, error) {
	q := r.store.q(ctx)

	if buq.IsNew() {
		buq.ID = uuid.New()
		buq.VersionNumber = 1
		for _, item := range buq.LineItems {
			item.BottomUpQuantificationID = buq.ID
		}
		for _, change := range buq.StatusChanges {
			change.BottomUpQuantificationID = buq.ID
		}
		_, err := q.Exec(ctx,
			`INSERT INTO bottom_up_quantifications
			 (id, version_number, facility_id, program_id, processing_period_id,
			  target_year, status, created_date, modified_date)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			buq.ID, buq.VersionNumber, buq.FacilityID, buq.ProgramID,
			buq.ProcessingPeriodID, buq.TargetYear, string(buq.Status),
			buq.CreatedDate, buq.ModifiedDate)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, utils.NewAppError(utils.CodeConflict,
					"a bottom-up quantification already exists for this facility, program and period", err)
			}
			return nil, fmt.Errorf("failed to create bottom-up quantification: %w", err)
		}
	} else {
		result, err := q.Exec(ctx,
			`UPDATE bottom_up_quantifications
			 SET facility_id = $1, program_id = $2, processing_period_id = $3,
			     target_year = $4, status = $5, modified_date = $6,
			     version_number = version_number + 1
			 WHERE id = $7 AND version_number = $8`,
			buq.FacilityID, buq.ProgramID, buq.ProcessingPeriodID,
			buq.TargetYear, string(buq.Status), buq.ModifiedDate,
			buq.ID, buq.VersionNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to update bottom-up quantification: %w", err)
		}
		if result.RowsAffected() == 0 {
			exists, existsErr := r.ExistsByID(ctx, buq.ID)
			if existsErr != nil {
				return nil, existsErr
			}
			if !exists {
				return nil, utils.NewNotFoundError("bottom-up quantification", buq.ID)
			}
			return nil, utils.NewConflictError("bottom-up quantification", buq.ID)
		}
		buq.VersionNumber++

		if _, err := q.Exec(ctx,
			`DELETE FROM bottom_up_quantification_line_items WHERE bottom_up_quantification_id = $1`,
			buq.ID); err != nil {
			return nil, fmt.Errorf("failed to replace line items: %w", err)
		}
	}

	for _, item := range buq.LineItems {
		if item.IsNew() {
			item.ID = uuid.New()
			item.VersionNumber = 1
		}
		item.BottomUpQuantificationID = buq.ID
		_, err := q.Exec(ctx,
			`INSERT INTO bottom_up_quantification_line_items
			 (id, version_number, bottom_up_quantification_id, orderable_id,
			  annual_adjusted_consumption, verified_annual_adjusted_consumption,
			  forecasted_demand, total_cost, remark_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			item.ID, item.VersionNumber, item.BottomUpQuantificationID,
			item.OrderableID, item.AnnualAdjustedConsumption,
			item.VerifiedAnnualAdjustedConsumption, item.ForecastedDemand,
			item.TotalCost, item.RemarkID)
		if err != nil {
			return nil, fmt.Errorf("failed to save line item: %w", err)
		}
	}

	for _, change := range buq.StatusChanges {
		if !change.IsNew() {
			continue
		}
		change.ID = uuid.New()
		change.VersionNumber = 1
		change.BottomUpQuantificationID = buq.ID
		_, err := q.Exec(ctx,
			`INSERT INTO bottom_up_quantification_status_changes
			 (id, version_number, bottom_up_quantification_id, status, author_id,
			  rejection_reason, occurred_date)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			change.ID, change.VersionNumber, change.BottomUpQuantificationID,
			string(change.Status), change.AuthorID, change.RejectionReason,
			change.OccurredDate)
		if err != nil {
			return nil, fmt.Errorf("failed to save status change: %w", err)
		}
	}

	return buq, nil
}

func scanBuq(row pgx.Row) (*domain.BottomUpQuantification, error) {
	var buq domain.BottomUpQuantification
	var status string
	err := row.Scan(&buq.ID, &buq.VersionNumber, &buq.FacilityID, &buq.ProgramID,
		&buq.ProcessingPeriodID, &buq.TargetYear, &status,
		&buq.CreatedDate, &buq.ModifiedDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan bottom-up quantification: %w", err)
	}
	buq.Status = domain.Status(status)
	return &buq, nil
}

// loadChildren fetches line items and status changes for the given documents
// in two queries.
func (r *BottomUpQuantificationRepository) loadChildren(ctx context.Context, buqs []*domain.BottomUpQuantification) error {
	if len(buqs) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*domain.BottomUpQuantification, len(buqs))
	ids := make([]uuid.UUID, 0, len(buqs))
	for _, buq := range buqs {
		byID[buq.ID] = buq
		ids = append(ids, buq.ID)
	}

	rows, err := r.store.q(ctx).Query(ctx,
		`SELECT id, version_number, bottom_up_quantification_id, orderable_id,
		        annual_adjusted_consumption, verified_annual_adjusted_consumption,
		        forecasted_demand, total_cost, remark_id
		 FROM bottom_up_quantification_line_items
		 WHERE bottom_up_quantification_id = ANY($1)
		 ORDER BY orderable_id`, ids)
	if err != nil {
		return fmt.Errorf("failed to load line items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.BottomUpQuantificationLineItem
		if err := rows.Scan(&item.ID, &item.VersionNumber, &item.BottomUpQuantificationID,
			&item.OrderableID, &item.AnnualAdjustedConsumption,
			&item.VerifiedAnnualAdjustedConsumption, &item.ForecastedDemand,
			&item.TotalCost, &item.RemarkID); err != nil {
			return fmt.Errorf("failed to scan line item: %w", err)
		}
		parent := byID[item.BottomUpQuantificationID]
		parent.LineItems = append(parent.LineItems, &item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read line items: %w", err)
	}

	changeRows, err := r.store.q(ctx).Query(ctx,
		`SELECT id, version_number, bottom_up_quantification_id, status, author_id,
		        rejection_reason, occurred_date
		 FROM bottom_up_quantification_status_changes
		 WHERE bottom_up_quantification_id = ANY($1)
		 ORDER BY occurred_date`, ids)
	if err != nil {
		return fmt.Errorf("failed to load status changes: %w", err)
	}
	defer changeRows.Close()

	for changeRows.Next() {
		var change domain.BottomUpQuantificationStatusChange
		var status string
		if err := changeRows.Scan(&change.ID, &change.VersionNumber,
			&change.BottomUpQuantificationID, &status, &change.AuthorID,
			&change.RejectionReason, &change.OccurredDate); err != nil {
			return fmt.Errorf("failed to scan status change: %w", err)
		}
		change.Status = domain.Status(status)
		parent := byID[change.BottomUpQuantificationID]
		parent.StatusChanges = append(parent.StatusChanges, &change)
	}
	return changeRows.Err()
}
