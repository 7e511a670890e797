package commands

import (
	"maps"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(semestersCmd)
}

var semestersCmd = &cobra.Command{
	Use:   "semesters",
	Short: "Lists the semesters EAMS knows about.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := loadSession()
		if err != nil {
			return err
		}
		catalog, err := deps.scraper.Semesters(cmd.Context(), session)
		if err != nil {
			return forgetOnExpiry(err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"School year", "Term", "Semester id", ""})
		for _, year := range slices.Sorted(maps.Keys(catalog.Semesters)) {
			terms := catalog.Semesters[year]
			for _, term := range slices.Sorted(maps.Keys(terms)) {
				id := terms[term]
				marker := ""
				if id == catalog.Default {
					marker = "default"
				}
				t.AppendRow(table.Row{year, term, id, marker})
			}
		}
		if catalog.TableID != "" {
			t.AppendFooter(table.Row{"", "", "table", catalog.TableID})
		}
		t.Render()
		return nil
	},
}
