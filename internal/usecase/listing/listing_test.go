package listing

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"zapgoals/internal/domain"
)

func view(id string, progress float64, created int64) domain.GoalView {
	return domain.GoalView{
		Goal:     domain.Goal{EventID: id, GoalID: id, Title: "goal " + id, CreatedAt: created, TargetSats: 1000},
		Progress: progress,
	}
}

func ids(views []domain.GoalView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.Goal.EventID)
	}
	return out
}

func TestFilterSortComposition(t *testing.T) {
	views := []domain.GoalView{view("a", 30, 1), view("b", 100, 2), view("c", 60, 3)}
	page := NewPaginator(0, 0).Apply(views, domain.ListQuery{
		Filter:    domain.FilterActive,
		Sort:      domain.SortProgress,
		Direction: domain.SortDesc,
		Page:      1,
	})
	require.Equal(t, []string{"c", "a"}, ids(page.Items))
	require.Equal(t, 3, page.TotalCount)
	require.Equal(t, 2, page.FilteredCount)
	require.Equal(t, 1, page.TotalPages)
}

func TestFilters(t *testing.T) {
	views := []domain.GoalView{view("a", 30, 1), view("b", 100, 2), view("c", 60, 3)}
	views[0].Goal.AuthorPubkey = "friend"
	views[2].Goal.Summary = "Bitcoin MEETUP in town"

	require.Equal(t, []string{"b"}, ids(Filter(views, domain.FilterCompleted, nil, "")))
	require.Equal(t, []string{"a", "b", "c"}, ids(Filter(views, domain.FilterAll, nil, "")))
	require.Equal(t, []string{"a"}, ids(Filter(views, domain.FilterFollowing, []string{"friend"}, "")))
	require.Empty(t, Filter(views, domain.FilterFollowing, nil, ""))
	require.Equal(t, []string{"c"}, ids(Filter(views, domain.FilterAll, nil, "meetup")))
	require.Equal(t, []string{"b"}, ids(Filter(views, domain.FilterAll, nil, "GOAL B")))
}

func TestSortIsStable(t *testing.T) {
	views := []domain.GoalView{view("a", 50, 1), view("b", 50, 2), view("c", 10, 3), view("d", 50, 4)}
	Sort(views, domain.SortProgress, domain.SortDesc)
	require.Equal(t, []string{"a", "b", "d", "c"}, ids(views))
	Sort(views, domain.SortProgress, domain.SortAsc)
	require.Equal(t, []string{"c", "a", "b", "d"}, ids(views))
}

func TestSortKeys(t *testing.T) {
	a := view("a", 10, 1)
	a.RaisedSats, a.ZapCount, a.Votes.Up, a.Goal.TargetSats = 100, 5, 1, 10_000
	b := view("b", 90, 2)
	b.RaisedSats, b.ZapCount, b.Votes.Up, b.Goal.TargetSats = 900, 2, 7, 1000

	cases := []struct {
		key  domain.SortKey
		dir  domain.SortDirection
		want []string
	}{
		{key: domain.SortCreated, dir: domain.SortDesc, want: []string{"b", "a"}},
		{key: domain.SortCreated, dir: domain.SortAsc, want: []string{"a", "b"}},
		{key: domain.SortRaised, dir: domain.SortDesc, want: []string{"b", "a"}},
		{key: domain.SortZaps, dir: domain.SortDesc, want: []string{"a", "b"}},
		{key: domain.SortTarget, dir: domain.SortDesc, want: []string{"a", "b"}},
		{key: domain.SortUpvotes, dir: domain.SortDesc, want: []string{"b", "a"}},
		{key: domain.SortRemaining, dir: domain.SortAsc, want: []string{"b", "a"}},
	}
	for _, tc := range cases {
		t.Run(string(tc.key)+"/"+string(tc.dir), func(t *testing.T) {
			views := []domain.GoalView{a, b}
			Sort(views, tc.key, tc.dir)
			require.Equal(t, tc.want, ids(views))
		})
	}
}

func TestParseSort(t *testing.T) {
	key, dir := ParseSort("almost-funded", "desc")
	require.Equal(t, domain.SortRemaining, key)
	require.Equal(t, domain.SortAsc, dir)

	key, dir = ParseSort("upvotes", "ASC")
	require.Equal(t, domain.SortUpvotes, key)
	require.Equal(t, domain.SortAsc, dir)

	key, dir = ParseSort("nonsense", "")
	require.Equal(t, domain.SortCreated, key)
	require.Equal(t, domain.SortDesc, dir)

	require.Equal(t, domain.FilterAll, ParseFilter("weird"))
	require.Equal(t, domain.FilterCompleted, ParseFilter("Completed"))
}

func TestPaginationCap(t *testing.T) {
	views := make([]domain.GoalView, 0, 200)
	for i := 0; i < 200; i++ {
		views = append(views, view(fmt.Sprintf("g%03d", i), 0, int64(i)))
	}
	p := NewPaginator(30, 5)

	items, total := p.Paginate(views, 1)
	require.Equal(t, 5, total)
	require.Len(t, items, 30)
	require.Equal(t, "g000", items[0].Goal.EventID)

	items, _ = p.Paginate(views, 5)
	require.Len(t, items, 30)
	require.Equal(t, "g120", items[0].Goal.EventID)

	items, _ = p.Paginate(views, 6)
	require.Empty(t, items)

	items, total = p.Paginate(views[:31], 2)
	require.Equal(t, 2, total)
	require.Len(t, items, 1)

	items, total = p.Paginate(nil, 1)
	require.Zero(t, total)
	require.Empty(t, items)

	items, _ = p.Paginate(views[:10], 0)
	require.Len(t, items, 10)
}
