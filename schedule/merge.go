package schedule

import (
	"fmt"
	"sort"
)

// SplitRow is a raw schedule row from an institution that reports each
// contiguous block of a course as several single-period rows. Payload
// carries the caller's index into its own raw data so merged rows can be
// mapped back.
type SplitRow struct {
	Name        string
	Weekday     int
	StartPeriod int
	EndPeriod   int
	WeekBitmap  string
	Payload     int
}

// MergeSplitRows merges rows of the same course that sit back to back on
// the same weekday into one row spanning the whole block: rows are grouped
// by name, sorted by (weekday, start period), then chained greedily while
// one row's end period + 1 equals the next row's start period.
//
// Two rows in one name group sharing a (weekday, start period) pair break
// the chaining assumption; that is an error, not a silent pick.
func MergeSplitRows(rows []SplitRow) ([]SplitRow, error) {
	byName := make(map[string][]SplitRow)
	var names []string
	for _, r := range rows {
		if _, seen := byName[r.Name]; !seen {
			names = append(names, r.Name)
		}
		byName[r.Name] = append(byName[r.Name], r)
	}
	sort.Strings(names)

	var merged []SplitRow
	for _, name := range names {
		group := byName[name]
		sort.Slice(group, func(i, j int) bool {
			if group[i].Weekday != group[j].Weekday {
				return group[i].Weekday < group[j].Weekday
			}
			return group[i].StartPeriod < group[j].StartPeriod
		})

		// Index rows by (weekday, start period) to find chain successors.
		type slot struct{ weekday, start int }
		byStart := make(map[slot]int, len(group))
		for i, r := range group {
			key := slot{r.Weekday, r.StartPeriod}
			if _, dup := byStart[key]; dup {
				return nil, fmt.Errorf("course %q has two rows at weekday %d period %d", name, r.Weekday, r.StartPeriod)
			}
			byStart[key] = i
		}

		used := make([]bool, len(group))
		for i := range group {
			if used[i] {
				continue
			}
			used[i] = true
			curr := group[i]
			for {
				next, ok := byStart[slot{curr.Weekday, curr.EndPeriod + 1}]
				if !ok || used[next] {
					break
				}
				used[next] = true
				curr.EndPeriod = group[next].EndPeriod
			}
			merged = append(merged, curr)
		}
	}

	return merged, nil
}
