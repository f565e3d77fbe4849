package listing

import (
	"sort"
	"strings"

	"zapgoals/internal/domain"
)

const (
	DefaultPageSize = 30
	DefaultMaxPages = 5
)

// Filter keeps the views matching the filter type and search text.
// Search is a case-insensitive substring match over title and summary.
func Filter(views []domain.GoalView, filter domain.FilterType, following []string, search string) []domain.GoalView {
	follows := make(map[string]struct{}, len(following))
	for _, pk := range following {
		follows[pk] = struct{}{}
	}
	needle := strings.ToLower(strings.TrimSpace(search))

	out := make([]domain.GoalView, 0, len(views))
	for _, v := range views {
		switch filter {
		case domain.FilterActive:
			if v.Progress >= 100 {
				continue
			}
		case domain.FilterCompleted:
			if v.Progress < 100 {
				continue
			}
		case domain.FilterFollowing:
			if _, ok := follows[v.Goal.AuthorPubkey]; !ok {
				continue
			}
		}
		if needle != "" && !matches(v.Goal, needle) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func matches(g domain.Goal, needle string) bool {
	return strings.Contains(strings.ToLower(g.Title), needle) ||
		strings.Contains(strings.ToLower(g.Summary), needle)
}

// Sort orders views in place by key and direction. Equal keys keep input order.
func Sort(views []domain.GoalView, key domain.SortKey, dir domain.SortDirection) {
	value := sortValue(key)
	desc := dir != domain.SortAsc
	sort.SliceStable(views, func(i, j int) bool {
		a, b := value(views[i]), value(views[j])
		if desc {
			return a > b
		}
		return a < b
	})
}

func sortValue(key domain.SortKey) func(domain.GoalView) float64 {
	switch key {
	case domain.SortRaised:
		return func(v domain.GoalView) float64 { return float64(v.RaisedSats) }
	case domain.SortProgress:
		return func(v domain.GoalView) float64 { return v.Progress }
	case domain.SortZaps:
		return func(v domain.GoalView) float64 { return float64(v.ZapCount) }
	case domain.SortTarget:
		return func(v domain.GoalView) float64 { return float64(v.Goal.TargetSats) }
	case domain.SortUpvotes:
		return func(v domain.GoalView) float64 { return float64(v.Votes.Up) }
	case domain.SortRemaining:
		return func(v domain.GoalView) float64 { return float64(v.RemainingSats()) }
	default:
		return func(v domain.GoalView) float64 { return float64(v.Goal.CreatedAt) }
	}
}

// ParseSort reads a sort key and direction. Besides plain keys it accepts the
// listing presets of the web client. Unknown values fall back to newest first.
func ParseSort(sortParam, dirParam string) (domain.SortKey, domain.SortDirection) {
	dir := domain.SortDesc
	if strings.EqualFold(dirParam, string(domain.SortAsc)) {
		dir = domain.SortAsc
	}
	switch strings.ToLower(strings.TrimSpace(sortParam)) {
	case "recent":
		return domain.SortCreated, domain.SortDesc
	case "oldest":
		return domain.SortCreated, domain.SortAsc
	case "highest":
		return domain.SortRaised, domain.SortDesc
	case "lowest":
		return domain.SortRaised, domain.SortAsc
	case "almost-funded":
		return domain.SortRemaining, domain.SortAsc
	case "most-zaps":
		return domain.SortZaps, domain.SortDesc
	}
	switch key := domain.SortKey(strings.ToLower(strings.TrimSpace(sortParam))); key {
	case domain.SortCreated, domain.SortRaised, domain.SortProgress, domain.SortZaps,
		domain.SortTarget, domain.SortUpvotes, domain.SortRemaining:
		return key, dir
	}
	return domain.SortCreated, dir
}

// ParseFilter reads a filter type, defaulting to all.
func ParseFilter(s string) domain.FilterType {
	switch f := domain.FilterType(strings.ToLower(strings.TrimSpace(s))); f {
	case domain.FilterActive, domain.FilterCompleted, domain.FilterFollowing:
		return f
	}
	return domain.FilterAll
}

// Paginator slices results into bounded pages.
type Paginator struct {
	PageSize int
	MaxPages int
}

// NewPaginator creates a paginator, applying defaults to non-positive values.
func NewPaginator(pageSize, maxPages int) Paginator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return Paginator{PageSize: pageSize, MaxPages: maxPages}
}

// TotalPages is ceil(n/size) capped at MaxPages.
func (p Paginator) TotalPages(n int) int {
	pages := (n + p.PageSize - 1) / p.PageSize
	if pages > p.MaxPages {
		pages = p.MaxPages
	}
	return pages
}

// Paginate returns page number page (1-based). Pages past the cap are empty.
func (p Paginator) Paginate(views []domain.GoalView, page int) ([]domain.GoalView, int) {
	if page < 1 {
		page = 1
	}
	total := p.TotalPages(len(views))
	if page > total {
		return []domain.GoalView{}, total
	}
	start := (page - 1) * p.PageSize
	end := start + p.PageSize
	if end > len(views) {
		end = len(views)
	}
	return views[start:end], total
}

// Apply composes filter, sort and pagination.
func (p Paginator) Apply(views []domain.GoalView, q domain.ListQuery) domain.Page {
	filtered := Filter(views, q.Filter, q.Following, q.Search)
	Sort(filtered, q.Sort, q.Direction)
	page := q.Page
	if page < 1 {
		page = 1
	}
	items, total := p.Paginate(filtered, page)
	return domain.Page{
		Items:         items,
		Page:          page,
		TotalPages:    total,
		TotalCount:    len(views),
		FilteredCount: len(filtered),
	}
}
