package model

// PaginatedResponse is the envelope returned by the record query endpoints.
type PaginatedResponse[T any] struct {
	Data        []T  `json:"data"`
	TotalCount  int  `json:"totalCount"`
	PageSize    int  `json:"pageSize"`
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	HasPrevious bool `json:"hasPrevious"`
	HasNext     bool `json:"hasNext"`
}

// NewPaginatedResponse computes the page bookkeeping for a result slice.
func NewPaginatedResponse[T any](data []T, totalCount, offset, limit int) PaginatedResponse[T] {
	totalPages := 0
	if limit > 0 {
		totalPages = (totalCount + limit - 1) / limit
	}
	currentPage := 1
	if limit > 0 {
		currentPage = offset/limit + 1
	}
	return PaginatedResponse[T]{
		Data:        data,
		TotalCount:  totalCount,
		PageSize:    limit,
		CurrentPage: currentPage,
		TotalPages:  totalPages,
		HasPrevious: offset > 0,
		HasNext:     offset+limit < totalCount,
	}
}
