package datatable

import "fmt"

// Pagination is the server-supplied page descriptor. Zero From/To mean the
// server omitted them.
type Pagination struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	From        int `json:"from,omitempty"`
	To          int `json:"to,omitempty"`
	LastPage    int `json:"last_page,omitempty"`
	// PageCount carries total_pages from servers that send it instead of
	// last_page.
	PageCount int `json:"total_pages,omitempty"`
}

func (p Pagination) TotalPages() int {
	if p.LastPage > 0 {
		return p.LastPage
	}
	if p.PageCount > 0 {
		return p.PageCount
	}
	return 1
}

// Range returns the 1-based inclusive range of rows on the page.
func (p Pagination) Range() (from, to int) {
	if p.Total <= 0 {
		return 0, 0
	}
	perPage := p.perPage()
	from, to = p.From, p.To
	if from <= 0 {
		page := p.CurrentPage
		if page < 1 {
			page = 1
		}
		from = (page-1)*perPage + 1
	}
	if from > p.Total {
		return 0, 0
	}
	if to <= 0 {
		to = from + perPage - 1
	}
	if to > p.Total {
		to = p.Total
	}
	return from, to
}

// perPage falls back to DefaultPerPage when the server omitted per_page.
func (p Pagination) perPage() int {
	if p.PerPage <= 0 {
		return DefaultPerPage
	}
	return p.PerPage
}

func (p Pagination) Summary() string {
	from, to := p.Range()
	return fmt.Sprintf("Showing %d to %d of %d", from, to, p.Total)
}

// ShowControls reports whether page buttons render at all.
func (p Pagination) ShowControls() bool {
	return p.TotalPages() > 1
}

// RowNumber is the continuous 1-based number shown for the row at index
// within the current page.
func RowNumber(p *Pagination, currentPage, index int) int {
	if p == nil {
		return index + 1
	}
	if p.From > 0 {
		return p.From + index
	}
	page := currentPage
	if page < 1 {
		page = p.CurrentPage
	}
	if page < 1 {
		page = 1
	}
	return (page-1)*p.perPage() + 1 + index
}

type PageItem struct {
	Page     int
	Ellipsis bool
	Current  bool
}

// PageWindow lists the page buttons: always the first and last page, and a
// window of two pages either side of current clamped to [2, total-1], with an
// ellipsis marker wherever a gap remains.
func PageWindow(current, total int) []PageItem {
	if total < 1 {
		total = 1
	}
	if current < 1 {
		current = 1
	}
	if current > total {
		current = total
	}
	items := []PageItem{{Page: 1, Current: current == 1}}
	if total == 1 {
		return items
	}

	start := max(2, current-2)
	end := min(total-1, current+2)
	if current <= 3 {
		end = min(total-1, 5)
	}
	if current >= total-2 {
		start = max(2, total-4)
	}

	if start > 2 {
		items = append(items, PageItem{Ellipsis: true})
	}
	for page := start; page <= end; page++ {
		items = append(items, PageItem{Page: page, Current: page == current})
	}
	if end < total-1 {
		items = append(items, PageItem{Ellipsis: true})
	}
	return append(items, PageItem{Page: total, Current: current == total})
}

func CanPrev(current int) bool {
	return current > 1
}

func CanNext(current, total int) bool {
	return current < total
}

// PageSizes offered by the rows-per-page selector.
var PageSizes = []int{5, 10, 25, 50, 100}
