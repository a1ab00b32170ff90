package search

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/openlmis/buq/pkg/utils"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 2000
)

// Sort is one ordering directive, applied in declaration order.
type Sort struct {
	Field      string
	Descending bool
}

// Pageable carries zero-based page number, page size and sort order.
type Pageable struct {
	Page int
	Size int
	Sort []Sort
}

func (p Pageable) Offset() int {
	return p.Page * p.Size
}

// ParsePageable reads page, size and sort query parameters, applying
// defaults when absent and collecting every malformed value.
func ParsePageable(values url.Values) (Pageable, error) {
	violations := make(map[string]string)
	pageable := Pageable{Page: 0, Size: DefaultPageSize}

	if raw := values.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 0 {
			violations["page"] = "must be a non-negative integer"
		} else {
			pageable.Page = page
		}
	}

	if raw := values.Get("size"); raw != "" {
		size, err := strconv.Atoi(raw)
		switch {
		case err != nil || size < 1:
			violations["size"] = "must be a positive integer"
		case size > MaxPageSize:
			violations["size"] = "exceeds the maximum page size"
		default:
			pageable.Size = size
		}
	}

	for _, raw := range values["sort"] {
		field, direction, hasDirection := strings.Cut(raw, ",")
		if field == "" {
			violations["sort"] = "sort field must not be empty"
			continue
		}
		sort := Sort{Field: field}
		if hasDirection {
			switch strings.ToLower(direction) {
			case "asc":
			case "desc":
				sort.Descending = true
			default:
				violations["sort"] = "direction must be asc or desc"
				continue
			}
		}
		pageable.Sort = append(pageable.Sort, sort)
	}

	if len(violations) > 0 {
		return Pageable{}, utils.NewValidationError("invalid pagination parameters", violations)
	}
	return pageable, nil
}
