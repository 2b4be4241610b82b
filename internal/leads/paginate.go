package leads

// windowThreshold is the page count up to which every page is listed.
const windowThreshold = 7

// PageLink is one entry of the pagination bar: a page number or a gap.
type PageLink struct {
	Number   int  `json:"number,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
}

type PaginationView struct {
	TotalPages int        `json:"total_pages"`
	Window     []PageLink `json:"window"`
	HasPrev    bool       `json:"has_prev"`
	HasNext    bool       `json:"has_next"`
}

func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// Paginate derives the pagination bar. Up to seven pages are all shown;
// beyond that the bar keeps the first and last page plus the current page
// and its direct neighbours, with gaps in between.
func Paginate(total, pageSize, currentPage int) PaginationView {
	n := TotalPages(total, pageSize)
	v := PaginationView{
		TotalPages: n,
		HasPrev:    currentPage > 1,
		HasNext:    currentPage < n,
		Window:     []PageLink{},
	}
	if n == 0 {
		v.HasPrev = false
		return v
	}

	if n <= windowThreshold {
		for p := 1; p <= n; p++ {
			v.Window = append(v.Window, PageLink{Number: p})
		}
		return v
	}

	v.Window = append(v.Window, PageLink{Number: 1})
	if currentPage > 3 {
		v.Window = append(v.Window, PageLink{Ellipsis: true})
	}
	for p := max(2, currentPage-1); p <= min(n-1, currentPage+1); p++ {
		v.Window = append(v.Window, PageLink{Number: p})
	}
	if currentPage < n-2 {
		v.Window = append(v.Window, PageLink{Ellipsis: true})
	}
	v.Window = append(v.Window, PageLink{Number: n})
	return v
}

// Range returns the 1-based positions of the first and last row on page,
// for "Showing 11–20 of 95". Both are 0 when there is nothing to show.
func Range(total, pageSize, page int) (first, last int) {
	if total <= 0 || pageSize <= 0 || page < 1 {
		return 0, 0
	}
	first = (page-1)*pageSize + 1
	if first > total {
		return 0, 0
	}
	last = min(page*pageSize, total)
	return first, last
}
