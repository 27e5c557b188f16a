package shared

// ListFilters represents standard list endpoint filters. Filtering happens
// server-side so growing datasets never get shipped to the client wholesale.
type ListFilters struct {
	Page    int
	Limit   int
	Search  string
	SortBy  string
	SortDir string

	IsActive   *bool
	CategoryID *int64
}

// Normalize applies defaults and clamps the page window.
func (f *ListFilters) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 20
	}
	if f.Limit > 200 {
		f.Limit = 200
	}
}

// Offset returns the SQL offset for the current page.
func (f ListFilters) Offset() int {
	offset := (f.Page - 1) * f.Limit
	if offset < 0 {
		return 0
	}
	return offset
}
