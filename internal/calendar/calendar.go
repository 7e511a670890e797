// Package calendar turns a course table into dated calendar events and
// serializes them as iCalendar.
package calendar

import (
	"fmt"
	"slices"
	"time"

	"eamsassist-backend/internal/eams"

	"github.com/google/uuid"
)

// uidNamespace scopes event UIDs so they never collide with UUIDs minted by
// other calendars.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("eams.shanghaitech.edu.cn"))

type Options struct {
	// MaxWeeks is the last academic week considered, defaults to 18.
	MaxWeeks int
}

// Event is one occurrence of a course on one day.
type Event struct {
	UID         string
	Week        int
	Weekday     int
	Start       time.Time
	End         time.Time
	Summary     string
	Location    string
	Description string
}

// WeekOneMonday returns midnight of the Monday of the week containing
// termStart, weeks start on Monday.
func WeekOneMonday(termStart time.Time) time.Time {
	offset := int(termStart.Weekday()) - 1
	if termStart.Weekday() == time.Sunday {
		offset = 6
	}
	day := termStart.AddDate(0, 0, -offset)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, termStart.Location())
}

// clockOn places an "HH:MM" time on the given day.
func clockOn(day time.Time, clock string) (time.Time, error) {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), parsed.Hour(), parsed.Minute(), 0, 0, day.Location()), nil
}

func eventUID(day time.Time, start, end string, course eams.Course, week int) string {
	name := fmt.Sprintf(
		"%s-%s-%s-%s-%s-%d",
		day.Format("20060102"),
		start,
		end,
		course.Name,
		course.Classroom,
		week,
	)
	return uuid.NewSHA1(uidNamespace, []byte(name)).String()
}

// Export emits one event per course, week and weekday, in that order. Week i
// is present when character i-1 of the course's week bitstring is '1'. An
// occurrence runs from the start of its first period to the end of its last
// period in declaration order; occurrences naming periods that do not exist
// are skipped.
func Export(courses []eams.Course, periods []eams.Period, termStart time.Time, opts Options) []Event {
	if opts.MaxWeeks <= 0 {
		opts.MaxWeeks = eams.DefaultMaxWeeks
	}
	anchor := WeekOneMonday(termStart)

	var events []Event
	for _, course := range courses {
		weekdays := make([]int, 0, len(course.Times))
		for weekday := range course.Times {
			weekdays = append(weekdays, weekday)
		}
		slices.Sort(weekdays)

		for week := 1; week <= opts.MaxWeeks && week <= len(course.Weeks); week++ {
			if course.Weeks[week-1] != '1' {
				continue
			}
			monday := anchor.AddDate(0, 0, (week-1)*7)

			for _, weekday := range weekdays {
				dayPeriods := course.Times[weekday]
				if weekday < 1 || weekday > 7 || len(dayPeriods) == 0 {
					continue
				}
				first, last := dayPeriods[0], dayPeriods[len(dayPeriods)-1]
				if first < 1 || first > len(periods) || last < 1 || last > len(periods) {
					continue
				}

				day := monday.AddDate(0, 0, weekday-1)
				start, err := clockOn(day, periods[first-1].StartTime)
				if err != nil {
					continue
				}
				end, err := clockOn(day, periods[last-1].EndTime)
				if err != nil {
					continue
				}

				events = append(events, Event{
					UID:         eventUID(day, start.Format("1504"), end.Format("1504"), course, week),
					Week:        week,
					Weekday:     weekday,
					Start:       start,
					End:         end,
					Summary:     course.Name,
					Location:    course.Classroom,
					Description: course.Teachers,
				})
			}
		}
	}
	return events
}
