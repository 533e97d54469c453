package model

import (
	"sort"
	"time"
)

const dayLayout = "2006-01-02"

// Group holds the todos created on one calendar day.
type Group struct {
	Date  string // YYYY-MM-DD, UTC
	Todos []Todo
}

// Day returns the UTC calendar date of a timestamp, e.g. "2024-01-01".
func Day(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// GroupByDate partitions todos by the day they were created. Newest day
// first, newest todo first inside a day. The input slice is not modified.
func GroupByDate(todos []Todo) []Group {
	sorted := make([]Todo, len(todos))
	copy(sorted, todos)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	var groups []Group
	index := make(map[string]int)
	for _, t := range sorted {
		d := Day(t.CreatedAt)
		i, ok := index[d]
		if !ok {
			i = len(groups)
			index[d] = i
			groups = append(groups, Group{Date: d})
		}
		groups[i].Todos = append(groups[i].Todos, t)
	}
	return groups
}

// Flatten returns the todos of groups in display order.
func Flatten(groups []Group) []Todo {
	var out []Todo
	for _, g := range groups {
		out = append(out, g.Todos...)
	}
	return out
}
