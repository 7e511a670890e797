package calendar

import (
	"strings"
	"testing"
	"time"

	"eamsassist-backend/internal/eams"

	"github.com/stretchr/testify/require"
)

var shanghai = time.FixedZone("CST", 8*60*60)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, shanghai)
}

func TestWeekOneMonday(t *testing.T) {
	monday := date(2025, time.February, 17)

	// every day of that week maps back to its Monday
	for offset := 0; offset < 7; offset++ {
		day := monday.AddDate(0, 0, offset)
		require.Equal(t, monday, WeekOneMonday(day), day.Weekday().String())
	}

	// a Sunday belongs to the week that started six days earlier
	sunday := date(2025, time.February, 16)
	require.Equal(t, time.Sunday, sunday.Weekday())
	require.Equal(t, date(2025, time.February, 10), WeekOneMonday(sunday))

	// time of day is dropped
	require.Equal(t, monday, WeekOneMonday(time.Date(2025, 2, 19, 15, 30, 0, 0, shanghai)))
}

var examplePeriods = []eams.Period{
	{Index: 0, StartTime: "08:15", EndTime: "09:00"},
	{Index: 1, StartTime: "09:50", EndTime: "10:35"},
	{Index: 2, StartTime: "10:45", EndTime: "11:30"},
}

func TestExportSingleOccurrence(t *testing.T) {
	course := eams.Course{
		Name:      "线性代数(MATH1112.01)",
		Classroom: "教学中心201",
		Teachers:  "张伟",
		Weeks:     "1000000000000000000",
		Times:     map[int][]int{3: {2, 3}},
	}

	events := Export([]eams.Course{course}, examplePeriods, date(2025, time.February, 17), Options{})
	require.Len(t, events, 1)

	event := events[0]
	require.Equal(t, 1, event.Week)
	require.Equal(t, 3, event.Weekday)
	require.Equal(t, "20250219", event.Start.Format("20060102"))
	require.Equal(t, "0950", event.Start.Format("1504"))
	require.Equal(t, "1130", event.End.Format("1504"))
	require.Equal(t, course.Name, event.Summary)
	require.Equal(t, course.Classroom, event.Location)
	require.Equal(t, course.Teachers, event.Description)
}

func TestExportWeeksAndOrder(t *testing.T) {
	course := eams.Course{
		Name:      "Physics I(PHYS1181.03)",
		Classroom: "Teaching Center 105",
		Weeks:     "0110",
		Times:     map[int][]int{5: {1}, 1: {2}},
	}
	// a Thursday term start still anchors on that week's Monday
	events := Export([]eams.Course{course}, examplePeriods, date(2025, time.February, 20), Options{})
	require.Len(t, events, 4)

	var got []string
	for _, e := range events {
		got = append(got, e.Start.Format("2006-01-02 15:04"))
	}
	require.Equal(t, []string{
		"2025-02-24 09:50",
		"2025-02-28 08:15",
		"2025-03-03 09:50",
		"2025-03-07 08:15",
	}, got)
}

func TestExportMaxWeeks(t *testing.T) {
	course := eams.Course{
		Name:  "Seminar(SEM1)",
		Weeks: strings.Repeat("1", 25),
		Times: map[int][]int{1: {1}},
	}
	start := date(2025, time.February, 17)

	require.Len(t, Export([]eams.Course{course}, examplePeriods, start, Options{}), 18)
	require.Len(t, Export([]eams.Course{course}, examplePeriods, start, Options{MaxWeeks: 20}), 20)

	// shorter bitstrings simply end early
	course.Weeks = "111"
	require.Len(t, Export([]eams.Course{course}, examplePeriods, start, Options{}), 3)
}

func TestExportSkipsUnknownPeriods(t *testing.T) {
	course := eams.Course{
		Name:  "Ghost(G1)",
		Weeks: "1",
		Times: map[int][]int{1: {7}, 2: {}, 9: {1}},
	}
	require.Empty(t, Export([]eams.Course{course}, examplePeriods, date(2025, time.February, 17), Options{}))
}

func TestExportDoesNotDeduplicate(t *testing.T) {
	course := eams.Course{
		Name:  "Seminar(SEM1)",
		Weeks: "1",
		Times: map[int][]int{1: {1}},
	}
	other := course
	other.Name = "Seminar(SEM2)"

	events := Export([]eams.Course{course, other}, examplePeriods, date(2025, time.February, 17), Options{})
	require.Len(t, events, 2)
	require.NotEqual(t, events[0].UID, events[1].UID)
}

func TestEventUIDIsStable(t *testing.T) {
	course := eams.Course{
		Name:      "Seminar(SEM1)",
		Classroom: "Room 1",
		Weeks:     "11",
		Times:     map[int][]int{1: {1}},
	}
	start := date(2025, time.February, 17)

	a := Export([]eams.Course{course}, examplePeriods, start, Options{})
	b := Export([]eams.Course{course}, examplePeriods, start, Options{})
	require.Equal(t, a[0].UID, b[0].UID)
	require.NotEqual(t, a[0].UID, a[1].UID)

	course.Classroom = "Room 2"
	c := Export([]eams.Course{course}, examplePeriods, start, Options{})
	require.NotEqual(t, a[0].UID, c[0].UID)
}

func TestEncode(t *testing.T) {
	course := eams.Course{
		Name:      "线性代数(MATH1112.01)",
		Classroom: "教学中心201",
		Teachers:  "张伟",
		Weeks:     "1",
		Times:     map[int][]int{3: {2, 3}},
	}
	events := Export([]eams.Course{course}, examplePeriods, date(2025, time.February, 17), Options{})

	out := Encode(events, EncodeOptions{
		Stamp: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	out = strings.ReplaceAll(out, "\r\n", "\n") + "\n"

	for _, line := range []string{
		"BEGIN:VCALENDAR",
		"X-WR-CALNAME:课表",
		"X-WR-TIMEZONE:Asia/Shanghai",
		"BEGIN:VEVENT",
		"UID:" + events[0].UID,
		"DTSTART:20250219T095000",
		"DTEND:20250219T113000",
		"SUMMARY:线性代数(MATH1112.01)",
		"LOCATION:教学中心201",
		"DESCRIPTION:张伟",
		"SEQUENCE:0",
		"END:VEVENT",
		"END:VCALENDAR",
	} {
		require.Contains(t, out, line+"\n")
	}
	require.NotContains(t, out, "DTSTART:20250219T095000Z")
}
