// Package timetable lays a scraped course table out as a period by weekday
// grid.
package timetable

import (
	"slices"
	"strconv"

	"eamsassist-backend/internal/eams"
)

const Weekdays = 7

// WeekRange is an inclusive run of academic weeks (1-based).
type WeekRange struct {
	Start     int    `json:"minWeek"`
	End       int    `json:"maxWeek"`
	Classroom string `json:"classroom"`
	Teachers  string `json:"teachers"`
}

func (w WeekRange) Contains(week int) bool {
	return week >= w.Start && week <= w.End
}

// Slot is the content of one occupied cell.
type Slot struct {
	// Key is name+classroom+teachers+weekday, two registrations with the same
	// key are one logical slot.
	Key   string      `json:"key"`
	Name  string      `json:"name"`
	Weeks []WeekRange `json:"weeks"`
}

type Row struct {
	Period eams.Period `json:"period"`
	// Cells is indexed by weekday-1, nil cells are empty.
	Cells [Weekdays]*Slot `json:"cells"`
}

type Grid struct {
	Rows []Row `json:"rows"`
}

// WeekRuns decomposes a week bitstring into its maximal runs of '1'.
// Character i marks week i+1, so "111000111" yields weeks 1-3 and 7-9.
func WeekRuns(bits string) []WeekRange {
	var out []WeekRange
	start := 0
	for i := 0; i <= len(bits); i++ {
		present := i < len(bits) && bits[i] == '1'
		switch {
		case present && start == 0:
			start = i + 1
		case !present && start != 0:
			out = append(out, WeekRange{Start: start, End: i})
			start = 0
		}
	}
	return out
}

func slotKey(course eams.Course, weekday int) string {
	return course.Name + course.Classroom + course.Teachers + strconv.Itoa(weekday)
}

// Build places every course into the cells it occupies. Each cell keeps the
// first slot placed in it and collects the week ranges of everything else
// landing there, sorted by start week. Period and weekday indices outside the
// grid are ignored.
func Build(periods []eams.Period, courses []eams.Course) Grid {
	grid := Grid{Rows: make([]Row, len(periods))}
	for i, period := range periods {
		grid.Rows[i].Period = period
	}

	for _, course := range courses {
		runs := WeekRuns(course.Weeks)
		for _, run := range runs {
			run.Classroom = course.Classroom
			run.Teachers = course.Teachers

			for weekday, dayPeriods := range course.Times {
				if weekday < 1 || weekday > Weekdays {
					continue
				}
				for _, period := range dayPeriods {
					if period < 1 || period > len(grid.Rows) {
						continue
					}
					cell := &grid.Rows[period-1].Cells[weekday-1]
					if *cell == nil {
						*cell = &Slot{
							Key:   slotKey(course, weekday),
							Name:  course.Name,
							Weeks: []WeekRange{run},
						}
						continue
					}
					if !slices.Contains((*cell).Weeks, run) {
						(*cell).Weeks = append((*cell).Weeks, run)
					}
				}
			}
		}
	}

	for i := range grid.Rows {
		for _, slot := range grid.Rows[i].Cells {
			if slot == nil {
				continue
			}
			slices.SortStableFunc(slot.Weeks, func(a, b WeekRange) int {
				return a.Start - b.Start
			})
		}
	}
	return grid
}

// Cell returns the slot at a 0-based row and 1-based weekday, nil when empty
// or out of range.
func (g Grid) Cell(row, weekday int) *Slot {
	if row < 0 || row >= len(g.Rows) || weekday < 1 || weekday > Weekdays {
		return nil
	}
	return g.Rows[row].Cells[weekday-1]
}

func sameSlot(a, b *Slot) bool {
	return a != nil && b != nil && a.Key == b.Key
}

// RowSpan is the number of rows the cell at (row, weekday) covers when
// rendered: 0 when it continues the slot of the row above, 1 for empty cells,
// otherwise the length of the run of identical keys starting here.
func (g Grid) RowSpan(row, weekday int) int {
	slot := g.Cell(row, weekday)
	if slot == nil {
		return 1
	}
	if sameSlot(g.Cell(row-1, weekday), slot) {
		return 0
	}
	span := 1
	for sameSlot(g.Cell(row+span, weekday), slot) {
		span++
	}
	return span
}

// Block is a run of consecutive rows holding the same slot on one weekday.
type Block struct {
	Weekday int `json:"weekday"`
	// FirstRow and LastRow are 0-based and inclusive.
	FirstRow int   `json:"firstRow"`
	LastRow  int   `json:"lastRow"`
	Slot     *Slot `json:"slot"`
	// Weeks is the union of the week ranges of every cell in the block.
	Weeks []WeekRange `json:"weeks"`
}

// Blocks lists the merged blocks of one weekday from top to bottom.
func (g Grid) Blocks(weekday int) []Block {
	var out []Block
	for row := range g.Rows {
		span := g.RowSpan(row, weekday)
		slot := g.Cell(row, weekday)
		if span == 0 || slot == nil {
			continue
		}

		block := Block{
			Weekday:  weekday,
			FirstRow: row,
			LastRow:  row + span - 1,
			Slot:     slot,
		}
		for r := block.FirstRow; r <= block.LastRow; r++ {
			for _, week := range g.Cell(r, weekday).Weeks {
				if !slices.Contains(block.Weeks, week) {
					block.Weeks = append(block.Weeks, week)
				}
			}
		}
		slices.SortStableFunc(block.Weeks, func(a, b WeekRange) int {
			return a.Start - b.Start
		})
		out = append(out, block)
	}
	return out
}
