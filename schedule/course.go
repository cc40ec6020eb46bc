package schedule

import "time"

// Occurrence is one concrete meeting of a course.
type Occurrence struct {
	Start time.Time
	End   time.Time
}

// GeoLocation is a latitude/longitude pair for a course location.
type GeoLocation struct {
	Latitude  float64
	Longitude float64
}

// Course is the normalized representation every institution adapter
// produces. Times is an explicit, ordered list of absolute occurrences
// rather than a recurrence rule: irregular week patterns and mid-semester
// swaps make rule-based recurrence unsafe.
type Course struct {
	Name     string
	Location string
	Geo      *GeoLocation
	Campus   string

	// Notes holds free-text lines (teacher, class section, credits,
	// swap notices, final-exam info). Rendered one per line in the
	// calendar event description.
	Notes []string

	Times []Occurrence
}
