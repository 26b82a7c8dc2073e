package search

import "bsfilter-bot/internal/model"

// PageView is one page of a result set plus the navigation facts needed to
// render paging controls.
type PageView struct {
	Items      []model.FileRecord
	Page       int
	PageSize   int
	Total      int
	TotalPages int
	HasPrev    bool
	HasNext    bool
}

// Page slices results into fixed-size pages. Pages are 1-based; an
// out-of-range page clamps to the nearest valid page instead of erroring.
func Page(results []model.FileRecord, page, pageSize int) PageView {
	if pageSize < 1 {
		pageSize = 1
	}
	total := len(results)
	totalPages := (total + pageSize - 1) / pageSize

	if page < 1 {
		page = 1
	}
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return PageView{
		Items:      results[start:end],
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}
}
