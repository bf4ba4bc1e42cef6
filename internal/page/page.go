// Package page computes pagination windows over ordinally sorted scopes.
package page

// Window describes one page of a scope. Totals are always computed from a
// fresh row count, never cached, since deletes shift page boundaries between
// requests.
type Window struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Compute clamps the requested page into [1, totalPages] and returns the
// window. An empty scope still has one (empty) page.
func Compute(total, requestedPage, perPage int) Window {
	if perPage < 1 {
		perPage = 1
	}
	if total < 0 {
		total = 0
	}

	totalPages := (total + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}

	page := requestedPage
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	return Window{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}
}

// Offset is the number of rows to skip for this window.
func (w Window) Offset() int {
	return (w.Page - 1) * w.PerPage
}

// Limit is the maximum number of rows in this window.
func (w Window) Limit() int {
	return w.PerPage
}
