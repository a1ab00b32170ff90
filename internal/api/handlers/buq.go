package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/openlmis/buq/internal/api/middleware"
	"github.com/openlmis/buq/internal/audit"
	"github.com/openlmis/buq/internal/dto"
	"github.com/openlmis/buq/internal/search"
	"github.com/openlmis/buq/internal/service"
)

type BottomUpQuantificationHandler struct {
	service *service.BottomUpQuantificationService
}

func NewBottomUpQuantificationHandler(service *service.BottomUpQuantificationService) *BottomUpQuantificationHandler {
	return &BottomUpQuantificationHandler{service: service}
}

// RejectRequest carries the optional reason for sending a document back.
type RejectRequest struct {
	RejectionReason *string `json:"rejectionReason"`
}

// Search godoc
// @Summary Search bottom-up quantifications
// @Description Returns a page of quantifications filtered by facility, program, period, status or modified date. Unrecognized parameters are ignored.
// @Tags bottomUpQuantifications
// @Produce json
// @Param facilityId query string false "Facility ID" format(uuid)
// @Param programId query string false "Program ID" format(uuid)
// @Param processingPeriodId query string false "Processing period ID" format(uuid)
// @Param status query string false "Workflow status"
// @Param modifiedDateFrom query string false "Lower bound on modification date" format(date-time)
// @Param page query int false "Zero-based page number"
// @Param size query int false "Page size"
// @Success 200 {object} PageResponse[dto.BottomUpQuantificationDto]
// @Failure 400 {object} middleware.ErrorResponse
// @Router /api/v1/bottomUpQuantifications [get]
func (h *BottomUpQuantificationHandler) Search(w http.ResponseWriter, r *http.Request) {
	params, err := search.NewBottomUpQuantificationSearchParams(r.URL.Query())
	if err != nil {
		middleware.SendError(w, r, err)
		return
	}
	pageable, err := search.ParsePageable(r.URL.Query())
	if err != nil {
		middleware.SendError(w, r, err)
		return
	}

	page, err := h.service.Search(r.Context(), params, pageable)
	if err != nil {
		middleware.SendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, toPageResponse(page))
}

// Get godoc
// @Summary Get a bottom-up quantification
// @Tags bottomUpQuantifications
// @Produce json
// @Param id path string true "Quantification ID" format(uuid)
// @Success 200 {object} dto.BottomUpQuantificationDto
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/v1/bottomUpQuantifications/{id} [get]
func (h *BottomUpQuantificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	buq, err := h.service.Get(r.Context(), id)
	if err != nil {
		middleware.SendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, buq)
}

// Prepare godoc
// @Summary Prepare a draft quantification
// @Description Creates a DRAFT quantification seeded with one line item per approved product of the facility/program pair
// @Tags bottomUpQuantifications
// @Produce json
// @Param facilityId query string true "Facility ID" format(uuid)
// @Param programId query string true "Program ID" format(uuid)
// @Param processingPeriodId query string true "Processing period ID" format(uuid)
// @Success 201 {object} dto.BottomUpQuantificationDto
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Failure 503 {object} middleware.ErrorResponse
// @Router /api/v1/bottomUpQuantifications/prepare [post]
func (h *BottomUpQuantificationHandler) Prepare(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	violations := make(map[string]string)

	facilityID := requiredUUID(query.Get("facilityId"), "facilityId", violations)
	programID := requiredUUID(query.Get("programId"), "programId", violations)
	processingPeriodID := requiredUUID(query.Get("processingPeriodId"), "processingPeriodId", violations)
	if len(violations) > 0 {
		middleware.SendValidationError(w, r, "invalid preparation parameters", violations)
		return
	}

	created, err := h.service.Prepare(r.Context(), author(r), facilityID, programID, processingPeriodID)
	if err != nil {
		middleware.SendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusCreated, created)
}

// Save godoc
// @Summary Save a quantification
// @Description Replaces the stored document's fields and line items; the workflow status is never changed here
// @Tags bottomUpQuantifications
// @Accept json
// @Produce json
// @Param id path string true "Quantification ID" format(uuid)
// @Param quantification body dto.BottomUpQuantificationDto true "Quantification data"
// @Success 200 {object} dto.BottomUpQuantificationDto
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /api/v1/bottomUpQuantifications/{id} [put]
func (h *BottomUpQuantificationHandler) Save(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var payload dto.BottomUpQuantificationDto
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		middleware.SendValidationError(w, r, "invalid request body", map[string]string{"body": err.Error()})
		return
	}

	saved, err := h.service.Save(r.Context(), id, author(r), &payload)
	if err != nil {
		middleware.SendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, saved)
}

// Delete godoc
// @Summary Delete a quantification
// @Description Only draft or rejected quantifications can be deleted
// @Tags bottomUpQuantifications
// @Param id path string true "Quantification ID" format(uuid)
// @Success 204
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/v1/bottomUpQuantifications/{id} [delete]
func (h *BottomUpQuantificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id, author(r)); err != nil {
		middleware.SendError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Submit godoc
// @Summary Submit a draft quantification
// @Tags bottomUpQuantifications
// @Produce json
// @Param id path string true "Quantification ID" format(uuid)
// @Success 200 {object} dto.BottomUpQuantificationDto
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/v1/bottomUpQuantifications/{id}/submit [post]
func (h *BottomUpQuantificationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Submit)
}

// Authorize godoc
// @Summary Authorize a submitted quantification
// @Tags bottomUpQuantifications
// @Produce json
// @Param id path string true "Quantification ID" format(uuid)
// @Success 200 {object} dto.BottomUpQuantificationDto
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/v1/bottomUpQuantifications/{id}/authorize [post]
func (h *BottomUpQuantificationHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Authorize)
}

// Approve godoc
// @Summary Approve a quantification
// @Tags bottomUpQuantifications
// @Produce json
// @Param id path string true "Quantification ID" format(uuid)
// @Success 200 {object} dto.BottomUpQuantificationDto
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/v1/bottomUpQuantifications/{id}/approve [post]
func (h *BottomUpQuantificationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Approve)
}

// Reject godoc
// @Summary Reject a quantification under review
// @Tags bottomUpQuantifications
// @Accept json
// @Produce json
// @Param id path string true "Quantification ID" format(uuid)
// @Param rejection body RejectRequest false "Rejection reason"
// @Success 200 {object} dto.BottomUpQuantificationDto
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/v1/bottomUpQuantifications/{id}/reject [post]
func (h *BottomUpQuantificationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var payload RejectRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			middleware.SendValidationError(w, r, "invalid request body", map[string]string{"body": err.Error()})
			return
		}
	}

	rejected, err := h.service.Reject(r.Context(), id, author(r), authorID(r), payload.RejectionReason)
	if err != nil {
		middleware.SendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, rejected)
}

// Download godoc
// @Summary Download the preparation form
// @Description Renders the quantification as the CSV preparation report
// @Tags bottomUpQuantifications
// @Produce text/csv
// @Param id path string true "Quantification ID" format(uuid)
// @Success 200 {string} string "CSV report"
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/v1/bottomUpQuantifications/{id}/download [get]
func (h *BottomUpQuantificationHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	report, err := h.service.PreparationForm(r.Context(), id)
	if err != nil {
		middleware.SendError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+service.PreparationFormFilename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(report)
}

// AuditLog godoc
// @Summary Get the change history of a quantification
// @Description Field-level change records, newest first, optionally filtered by author or property name
// @Tags bottomUpQuantifications
// @Produce json
// @Param id path string true "Quantification ID" format(uuid)
// @Param author query string false "Author filter"
// @Param changedPropertyName query string false "Property name filter"
// @Param page query int false "Zero-based page number"
// @Param size query int false "Page size"
// @Success 200 {object} PageResponse[audit.ChangeRecord]
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/v1/bottomUpQuantifications/{id}/auditLog [get]
func (h *BottomUpQuantificationHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	pageable, err := search.ParsePageable(r.URL.Query())
	if err != nil {
		middleware.SendError(w, r, err)
		return
	}

	var filter audit.Filter
	if value := r.URL.Query().Get("author"); value != "" {
		filter.Author = &value
	}
	if value := r.URL.Query().Get("changedPropertyName"); value != "" {
		filter.PropertyName = &value
	}

	page, err := h.service.AuditLog(r.Context(), id, filter, pageable)
	if err != nil {
		middleware.SendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, toPageResponse(page))
}

func (h *BottomUpQuantificationHandler) transition(
	w http.ResponseWriter, r *http.Request,
	operation func(ctx context.Context, id uuid.UUID, author string, authorID uuid.UUID) (*dto.BottomUpQuantificationDto, error),
) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	result, err := operation(r.Context(), id, author(r), authorID(r))
	if err != nil {
		middleware.SendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, result)
}

// authorID parses the author header as a UUID for status-change records. A
// non-UUID author still audits by name but records a nil author id.
func authorID(r *http.Request) uuid.UUID {
	id, err := uuid.Parse(r.Header.Get(authorHeader))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func requiredUUID(raw, name string, violations map[string]string) uuid.UUID {
	if raw == "" {
		violations[name] = "is required"
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		violations[name] = "must be a UUID"
		return uuid.Nil
	}
	return id
}
