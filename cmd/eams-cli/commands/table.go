package commands

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"eamsassist-backend/internal/eams"
	"eamsassist-backend/internal/eams/scraper"
	"eamsassist-backend/internal/timetable"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	tableID   string
	startWeek int
)

func init() {
	for _, cmd := range []*cobra.Command{tableCmd, gridCmd} {
		cmd.Flags().StringVar(&tableID, "table-id", "", "The course table id, looked up when empty.")
		cmd.Flags().IntVar(&startWeek, "start-week", 0, "Only show weeks from this one on, 0 for all.")
		rootCmd.AddCommand(cmd)
	}
}

func fetchCourseTable(ctx context.Context, semesterID string) (eams.CourseTable, error) {
	session, err := loadSession()
	if err != nil {
		return eams.CourseTable{}, err
	}
	query := scraper.CourseTableQuery{
		SemesterID: semesterID,
		TableID:    tableID,
	}
	if startWeek > 0 {
		query.StartWeek = &startWeek
	}
	courseTable, err := deps.scraper.CourseTable(ctx, session, query)
	if err != nil {
		return eams.CourseTable{}, forgetOnExpiry(err)
	}
	return courseTable, nil
}

var weekdayNames = [timetable.Weekdays]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

func formatTimes(times map[int][]int) string {
	var parts []string
	for _, weekday := range slices.Sorted(maps.Keys(times)) {
		if weekday < 1 || weekday > timetable.Weekdays {
			continue
		}
		periods := make([]string, len(times[weekday]))
		for i, p := range times[weekday] {
			periods[i] = strconv.Itoa(p)
		}
		parts = append(parts, fmt.Sprintf("%s %s", weekdayNames[weekday-1], strings.Join(periods, ",")))
	}
	return strings.Join(parts, "; ")
}

var tableCmd = &cobra.Command{
	Use:   "table <semester-id> [--table-id <id>] [--start-week <n>]",
	Short: "Lists the courses of a semester.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		courseTable, err := fetchCourseTable(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		t := newTable()
		t.AppendHeader(table.Row{"Course", "Code", "Classroom", "Teachers", "Weeks", "Times"})
		for _, course := range courseTable.Courses {
			if course.Name == "" {
				continue
			}
			name, code := eams.SplitCourseName(course.Name)
			t.AppendRow(table.Row{
				name,
				code,
				course.Classroom,
				course.Teachers,
				timetable.FormatWeeks(timetable.WeekRuns(course.Weeks)),
				formatTimes(course.Times),
			})
		}
		t.Render()
		return nil
	},
}

var gridCmd = &cobra.Command{
	Use:   "grid <semester-id> [--table-id <id>] [--start-week <n>]",
	Short: "Draws the weekly schedule grid of a semester.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		courseTable, err := fetchCourseTable(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		grid := timetable.Build(courseTable.Periods, courseTable.Courses)
		fmt.Println(grid.Render())
		return nil
	},
}
