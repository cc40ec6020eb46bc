// Package schedule turns raw per-institution schedule encodings into
// absolute calendar occurrences: the fixed class-period table, week-bitmap
// expansion, split-row merging and holiday filtering.
package schedule

import (
	"fmt"
	"time"
)

// Clock is a time of day without a date attached.
type Clock struct {
	Hour   int
	Minute int
}

// TimeSpan is a (start, end) pair of times within one day.
type TimeSpan struct {
	Start Clock
	End   Clock
}

// periodTable maps class-period slots 1..13 to their time windows.
// Shared by every institution; slot 1 is the first morning period.
var periodTable = [13]TimeSpan{
	{Clock{8, 0}, Clock{8, 50}},
	{Clock{9, 0}, Clock{9, 50}},
	{Clock{10, 10}, Clock{11, 0}},
	{Clock{11, 10}, Clock{12, 0}},
	{Clock{14, 0}, Clock{14, 50}},
	{Clock{15, 0}, Clock{15, 50}},
	{Clock{16, 10}, Clock{17, 0}},
	{Clock{17, 10}, Clock{18, 0}},
	{Clock{18, 30}, Clock{19, 20}},
	{Clock{19, 30}, Clock{20, 20}},
	{Clock{20, 30}, Clock{21, 20}},
	{Clock{21, 30}, Clock{22, 20}},
	{Clock{22, 30}, Clock{23, 20}},
}

// NumPeriods is the number of class-period slots in a day.
const NumPeriods = len(periodTable)

// SpanForPeriod returns the time window of a single class-period slot.
func SpanForPeriod(idx int) (TimeSpan, error) {
	if idx < 1 || idx > NumPeriods {
		return TimeSpan{}, fmt.Errorf("invalid class period %d", idx)
	}
	return periodTable[idx-1], nil
}

// SpanForPeriodRange returns the window covering slots [start, end]:
// start slot's start time through end slot's end time.
func SpanForPeriodRange(start, end int) (TimeSpan, error) {
	first, err := SpanForPeriod(start)
	if err != nil {
		return TimeSpan{}, err
	}
	last, err := SpanForPeriod(end)
	if err != nil {
		return TimeSpan{}, err
	}
	return TimeSpan{Start: first.Start, End: last.End}, nil
}

// CourseTime is one weekly meeting of a course: its time window, weekday
// (1 = Monday .. 7 = Sunday) and week of semester (1-based).
type CourseTime struct {
	Span    TimeSpan
	Weekday int
	Week    int
}

// DateOn resolves the meeting to a concrete date given the Monday the
// semester starts on.
func (ct CourseTime) DateOn(semesterStart time.Time) (time.Time, error) {
	if ct.Weekday < 1 || ct.Weekday > 7 {
		return time.Time{}, fmt.Errorf("invalid weekday %d", ct.Weekday)
	}
	if ct.Week < 1 {
		return time.Time{}, fmt.Errorf("invalid week %d", ct.Week)
	}
	date := semesterStart.AddDate(0, 0, (ct.Week-1)*7+(ct.Weekday-1))
	if date.Year() < semesterStart.Year() || date.Year() > semesterStart.Year()+1 {
		return time.Time{}, fmt.Errorf("week %d weekday %d lands on impossible date %s", ct.Week, ct.Weekday, date.Format("2006-01-02"))
	}
	return date, nil
}

// WindowOn resolves the meeting to absolute start and end instants in loc.
func (ct CourseTime) WindowOn(semesterStart time.Time, loc *time.Location) (time.Time, time.Time, error) {
	date, err := ct.DateOn(semesterStart)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	start := time.Date(date.Year(), date.Month(), date.Day(), ct.Span.Start.Hour, ct.Span.Start.Minute, 0, 0, loc)
	end := time.Date(date.Year(), date.Month(), date.Day(), ct.Span.End.Hour, ct.Span.End.Minute, 0, 0, loc)
	return start, end, nil
}

// ExpandWeekBitmap decodes a per-course week bitmap into concrete meetings.
// Position i of the bitmap stands for week i+1; '1' means the course meets
// that week. A start period of 0 marks a free-time course with no fixed
// meetings and expands to nothing.
func ExpandWeekBitmap(bitmap string, weekday, startPeriod, endPeriod int) ([]CourseTime, error) {
	if startPeriod == 0 {
		return nil, nil
	}

	span, err := SpanForPeriodRange(startPeriod, endPeriod)
	if err != nil {
		return nil, err
	}

	var times []CourseTime
	for i, c := range bitmap {
		if c != '1' {
			continue
		}
		times = append(times, CourseTime{
			Span:    span,
			Weekday: weekday,
			Week:    i + 1,
		})
	}
	return times, nil
}
