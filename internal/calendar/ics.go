package calendar

import (
	"time"

	ics "github.com/arran4/golang-ical"
)

const (
	DefaultCalendarName = "课表"
	DefaultTimeZone     = "Asia/Shanghai"
)

// localTimestamp is the floating date-time form (no trailing Z), calendar
// clients read it in the X-WR-TIMEZONE zone.
const localTimestamp = "20060102T150405"

type EncodeOptions struct {
	CalendarName string
	TimeZone     string
	// Stamp is written as DTSTAMP on every event.
	Stamp time.Time
}

// Encode renders events as a VCALENDAR document.
func Encode(events []Event, opts EncodeOptions) string {
	if opts.CalendarName == "" {
		opts.CalendarName = DefaultCalendarName
	}
	if opts.TimeZone == "" {
		opts.TimeZone = DefaultTimeZone
	}

	cal := ics.NewCalendar()
	cal.SetXWRCalName(opts.CalendarName)
	cal.SetXWRTimezone(opts.TimeZone)

	for _, e := range events {
		event := cal.AddEvent(e.UID)
		if !opts.Stamp.IsZero() {
			event.SetDtStampTime(opts.Stamp)
		}
		event.SetProperty(ics.ComponentPropertyDtStart, e.Start.Format(localTimestamp))
		event.SetProperty(ics.ComponentPropertyDtEnd, e.End.Format(localTimestamp))
		event.SetSummary(e.Summary)
		event.SetLocation(e.Location)
		event.SetDescription(e.Description)
		event.SetProperty(ics.ComponentProperty("SEQUENCE"), "0")
	}

	return cal.Serialize()
}
