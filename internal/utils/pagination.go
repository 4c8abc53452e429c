package utils

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type PageInfo struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// NormalizePage applies defaults: page starts at 1, size within 1..MaxPageSize.
func NormalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

// Paginate returns one page of items. A page past the end is empty but still
// reports the totals.
func Paginate[T any](items []T, page, size int) ([]T, PageInfo) {
	page, size = NormalizePage(page, size)
	total := len(items)
	info := PageInfo{
		Page:       page,
		PageSize:   size,
		TotalItems: total,
		TotalPages: (total + size - 1) / size,
	}

	// Compared before multiplying so a huge page cannot overflow start.
	if page-1 >= info.TotalPages {
		return []T{}, info
	}
	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	return items[start:end], info
}
