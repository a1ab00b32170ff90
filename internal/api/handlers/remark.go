// Package handlers exposes the REST surface of the quantification service.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/openlmis/buq/internal/api/middleware"
	"github.com/openlmis/buq/internal/dto"
	"github.com/openlmis/buq/internal/search"
	"github.com/openlmis/buq/internal/service"
	"github.com/openlmis/buq/internal/store"
)

// authorHeader identifies the acting user for audit purposes.
const authorHeader = "X-Author-Id"

type RemarkHandler struct {
	service *service.RemarkService
}

func NewRemarkHandler(service *service.RemarkService) *RemarkHandler {
	return &RemarkHandler{service: service}
}

// PageResponse is the paginated listing envelope.
// @Description Paginated result with total element count independent of slice size
type PageResponse[T any] struct {
	Content       []T   `json:"content"`
	Number        int   `json:"number" example:"0"`
	Size          int   `json:"size" example:"10"`
	TotalElements int64 `json:"totalElements" example:"25"`
	TotalPages    int   `json:"totalPages" example:"3"`
}

func toPageResponse[T any](page store.Page[T]) PageResponse[T] {
	content := page.Content
	if content == nil {
		content = []T{}
	}
	return PageResponse[T]{
		Content:       content,
		Number:        page.Number,
		Size:          page.Size,
		TotalElements: page.TotalElements,
		TotalPages:    page.TotalPages(),
	}
}

// Search godoc
// @Summary Search remarks
// @Description Returns a page of remarks, optionally filtered by name
// @Tags remarks
// @Produce json
// @Param name query string false "Name filter (substring match)"
// @Param page query int false "Zero-based page number"
// @Param size query int false "Page size"
// @Success 200 {object} PageResponse[dto.RemarkDto]
// @Failure 400 {object} middleware.ErrorResponse
// @Router /api/v1/remarks [get]
func (h *RemarkHandler) Search(w http.ResponseWriter, r *http.Request) {
	params, err := search.NewRemarkSearchParams(r.URL.Query())
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
// @Summary Get a remark
// @Tags remarks
// @Produce json
// @Param id path string true "Remark ID" format(uuid)
// @Success 200 {object} dto.RemarkDto
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/v1/remarks/{id} [get]
func (h *RemarkHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	remark, err := h.service.Get(r.Context(), id)
	if err != nil {
		middleware.SendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, remark)
}

// Create godoc
// @Summary Create a remark
// @Tags remarks
// @Accept json
// @Produce json
// @Param remark body dto.RemarkDto true "Remark data"
// @Success 201 {object} dto.RemarkDto
// @Failure 400 {object} middleware.ErrorResponse
// @Router /api/v1/remarks [post]
func (h *RemarkHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload dto.RemarkDto
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		middleware.SendValidationError(w, r, "invalid request body", map[string]string{"body": err.Error()})
		return
	}

	created, err := h.service.Create(r.Context(), author(r), &payload)
	if err != nil {
		middleware.SendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusCreated, created)
}

// Update godoc
// @Summary Update a remark
// @Description Applies the payload to the stored remark; a stale versionNumber is rejected with 409
// @Tags remarks
// @Accept json
// @Produce json
// @Param id path string true "Remark ID" format(uuid)
// @Param remark body dto.RemarkDto true "Remark data"
// @Success 200 {object} dto.RemarkDto
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /api/v1/remarks/{id} [put]
func (h *RemarkHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var payload dto.RemarkDto
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		middleware.SendValidationError(w, r, "invalid request body", map[string]string{"body": err.Error()})
		return
	}

	updated, err := h.service.Update(r.Context(), id, author(r), &payload)
	if err != nil {
		middleware.SendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, updated)
}

// Delete godoc
// @Summary Delete a remark
// @Tags remarks
// @Param id path string true "Remark ID" format(uuid)
// @Success 204
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/v1/remarks/{id} [delete]
func (h *RemarkHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		middleware.SendValidationError(w, r, "invalid identifier", map[string]string{"id": "must be a UUID"})
		return uuid.Nil, false
	}
	return id, true
}

func author(r *http.Request) string {
	if value := r.Header.Get(authorHeader); value != "" {
		return value
	}
	return "anonymous"
}

func sendJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
