package store

// Page is a bounded slice of a larger ordered result set plus the total
// matching count, which is reported independently of pagination so clients
// can compute page counts.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
}

func (p Page[T]) TotalPages() int {
	if p.Size <= 0 {
		return 0
	}
	pages := int(p.TotalElements) / p.Size
	if int(p.TotalElements)%p.Size != 0 {
		pages++
	}
	return pages
}

// MapPage converts page content element-wise, keeping the pagination
// metadata intact.
func MapPage[T, U any](p Page[T], fn func(T) U) Page[U] {
	content := make([]U, 0, len(p.Content))
	for _, item := range p.Content {
		content = append(content, fn(item))
	}
	return Page[U]{
		Content:       content,
		Number:        p.Number,
		Size:          p.Size,
		TotalElements: p.TotalElements,
	}
}
