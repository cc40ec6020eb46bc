// Package calendar renders courses into an iCalendar document.
package calendar

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"campuscal/adapter"
	"campuscal/schedule"
)

// Build renders every course occurrence as its own VEVENT. Occurrences
// are deliberately not collapsed into recurrence rules: holiday filtering
// and irregular weeks make per-date events the only faithful encoding.
// All instants are emitted in UTC.
func Build(school adapter.CalendarHelper, courses []schedule.Course) (string, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetXWRCalName(school.DisplayName() + "课程表")

	now := time.Now()
	for _, course := range courses {
		for _, occ := range course.Times {
			event := cal.AddEvent(uuid.NewString())
			event.SetDtStampTime(now)
			event.SetSummary(course.Name)
			event.SetStartAt(occ.Start.UTC())
			event.SetEndAt(occ.End.UTC())

			if course.Location != "" {
				// The second line shows the school under the room name.
				// Serialization escapes the newline to the \n form itself.
				event.SetLocation(course.Location + "\n" + school.DisplayName())
				if course.Geo != nil {
					setGeo(event, course, school)
				}
			}

			event.SetDescription(describeCourse(course))
		}
	}
	return cal.Serialize(), nil
}

func setGeo(event *ics.VEvent, course schedule.Course, school adapter.CalendarHelper) {
	geo := course.Geo
	event.SetProperty(ics.ComponentProperty("GEO"), fmt.Sprintf("%v;%v", geo.Latitude, geo.Longitude))
	event.SetProperty(
		ics.ComponentProperty("X-APPLE-STRUCTURED-LOCATION"),
		fmt.Sprintf("geo:%v,%v", geo.Latitude, geo.Longitude),
		&ics.KeyValues{Key: "X-ADDRESS", Value: []string{school.DisplayName()}},
		&ics.KeyValues{Key: "X-TITLE", Value: []string{course.Location}},
	)
}

// describeCourse builds the event notes: campus first, then each note on
// its own line.
func describeCourse(course schedule.Course) string {
	var lines []string
	if course.Campus != "" {
		lines = append(lines, course.Campus)
	}
	lines = append(lines, course.Notes...)
	return strings.Join(lines, "\n")
}
