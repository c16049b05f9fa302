package shared

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Filter narrows a catalog listing. Filters holds equality conditions keyed by
// field name; repositories ignore keys they do not recognise.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Filters  map[string]any
}

// DefaultFilter returns the first page, newest first
func DefaultFilter() Filter {
	return Filter{Page: 1, PageSize: DefaultPageSize, OrderBy: "created_at", OrderDir: "desc", Filters: map[string]any{}}
}

// Offset is the number of rows before the current page
func (f Filter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// Page is one page of a listing with the total across all pages
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

func NewPage[T any](items []T, total int64, f Filter) Page[T] {
	p := Page[T]{Items: items, Total: total, Page: f.Page, PageSize: f.PageSize}
	if items == nil {
		p.Items = []T{}
	}
	if f.PageSize > 0 {
		p.TotalPages = int((total + int64(f.PageSize) - 1) / int64(f.PageSize))
	}
	return p
}
