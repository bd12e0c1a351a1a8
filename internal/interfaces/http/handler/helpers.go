package handler

import "github.com/manuerp/backend/internal/domain/shared"

// listFilter builds a repository filter from optional paging parameters
func listFilter(page, pageSize int) shared.Filter {
	f := shared.DefaultFilter()
	if page > 0 {
		f.Page = page
	}
	if pageSize > 0 {
		f.PageSize = pageSize
	}
	return f
}
