package commands

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"eamsassist-backend/internal/calendar"

	"github.com/spf13/cobra"
)

var icsOutput string

func init() {
	icsCmd.Flags().StringVarP(&icsOutput, "output", "o", "", "The file to write, <year>-<term>.ics when empty.")
	icsCmd.Flags().StringVar(&tableID, "table-id", "", "The course table id, looked up when empty.")
	rootCmd.AddCommand(icsCmd)
	rootCmd.AddCommand(termBeginCmd)
}

var icsCmd = &cobra.Command{
	Use:   "ics <semester-id> [-o <file.ics>]",
	Short: "Exports a semester as an iCalendar file.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		semesterID := args[0]

		session, err := loadSession()
		if err != nil {
			return err
		}
		catalog, err := deps.scraper.Semesters(ctx, session)
		if err != nil {
			return forgetOnExpiry(err)
		}
		year, term, ok := catalog.Lookup(semesterID)
		if !ok {
			return fmt.Errorf("unknown semester %s", semesterID)
		}

		courseTable, err := fetchCourseTable(ctx, semesterID)
		if err != nil {
			return err
		}
		begin, err := deps.scraper.TermBegin(ctx, session, year, term)
		if err != nil {
			return forgetOnExpiry(err)
		}

		events := calendar.Export(
			courseTable.Courses,
			courseTable.Periods,
			begin,
			calendar.Options{MaxWeeks: deps.cfg.Calendar.MaxWeeks},
		)
		doc := calendar.Encode(events, calendar.EncodeOptions{
			CalendarName: deps.cfg.Calendar.Name,
			TimeZone:     deps.cfg.Calendar.TimeZone,
			Stamp:        deps.clock.Now(),
		})

		out := icsOutput
		if out == "" {
			out = fmt.Sprintf("%s-%s.ics", year, term)
		}
		if err := os.WriteFile(out, []byte(doc), 0644); err != nil {
			return err
		}
		slog.Info("wrote calendar", "file", out, "events", len(events), "term_begin", begin.Format(time.DateOnly))
		return nil
	},
}

var termBeginCmd = &cobra.Command{
	Use:   "term-begin <school-year> <term>",
	Short: "Prints the first day of a term, e.g. term-begin 2024-2025 2.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := loadSession()
		if err != nil {
			return err
		}
		begin, err := deps.scraper.TermBegin(cmd.Context(), session, args[0], args[1])
		if err != nil {
			return forgetOnExpiry(err)
		}
		fmt.Println(begin.Format(time.DateOnly))
		return nil
	},
}
