package timetable

import (
	"fmt"
	"strings"

	"eamsassist-backend/internal/eams"

	"github.com/jedib0t/go-pretty/v6/table"
)

var weekdayNames = [Weekdays]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// FormatWeeks renders week ranges as "1-8,10-16".
func FormatWeeks(weeks []WeekRange) string {
	parts := make([]string, 0, len(weeks))
	for _, w := range weeks {
		if w.Start == w.End {
			parts = append(parts, fmt.Sprint(w.Start))
			continue
		}
		parts = append(parts, fmt.Sprintf("%d-%d", w.Start, w.End))
	}
	return strings.Join(parts, ",")
}

func cellText(slot *Slot) string {
	if slot == nil {
		return ""
	}
	name, code := eams.SplitCourseName(slot.Name)
	lines := []string{name}
	if code != "" {
		lines = append(lines, code)
	}
	lines = append(lines, "weeks "+FormatWeeks(slot.Weeks))
	if len(slot.Weeks) > 0 && slot.Weeks[0].Classroom != "" {
		lines = append(lines, slot.Weeks[0].Classroom)
	}
	return strings.Join(lines, "\n")
}

// Render draws the grid as a text table, merging vertically adjacent cells of
// the same slot.
func (g Grid) Render() string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Options.SeparateRows = true

	header := table.Row{"Period"}
	for _, name := range weekdayNames {
		header = append(header, name)
	}
	t.AppendHeader(header)

	for i, row := range g.Rows {
		out := table.Row{fmt.Sprintf("%d\n%s-%s", i+1, row.Period.StartTime, row.Period.EndTime)}
		for weekday := 1; weekday <= Weekdays; weekday++ {
			out = append(out, cellText(g.Cell(i, weekday)))
		}
		t.AppendRow(out)
	}

	configs := make([]table.ColumnConfig, 0, Weekdays)
	for weekday := 1; weekday <= Weekdays; weekday++ {
		configs = append(configs, table.ColumnConfig{Number: weekday + 1, AutoMerge: true})
	}
	t.SetColumnConfigs(configs)

	return t.Render()
}
