package domain

// FilterType selects which goals a listing shows.
type FilterType string

const (
	FilterAll       FilterType = "all"
	FilterActive    FilterType = "active"
	FilterCompleted FilterType = "completed"
	FilterFollowing FilterType = "following"
)

// SortKey is the ordering attribute of a listing.
type SortKey string

const (
	SortCreated   SortKey = "created"
	SortRaised    SortKey = "raised"
	SortProgress  SortKey = "progress"
	SortZaps      SortKey = "zaps"
	SortTarget    SortKey = "target"
	SortUpvotes   SortKey = "upvotes"
	SortRemaining SortKey = "remaining"
)

// SortDirection is ascending or descending.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ListQuery describes one listing request.
type ListQuery struct {
	Filter    FilterType
	Search    string
	Following []string
	Sort      SortKey
	Direction SortDirection
	Page      int
}

// Page is one page of a listing.
type Page struct {
	Items         []GoalView `json:"items"`
	Page          int        `json:"page"`
	TotalPages    int        `json:"total_pages"`
	TotalCount    int        `json:"total_count"`
	FilteredCount int        `json:"filtered_count"`
}
