package search

import "net/url"

// RemarkSearchParams are the recognized filter dimensions for remark
// searches.
type RemarkSearchParams struct {
	Name *string
}

func NewRemarkSearchParams(values url.Values) (*RemarkSearchParams, error) {
	qp := NewQueryParams(values)
	params := &RemarkSearchParams{
		Name: qp.String("name"),
	}
	if err := qp.Err(); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *RemarkSearchParams) IsEmpty() bool {
	return p.Name == nil
}
