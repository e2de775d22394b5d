// Package graph buckets timestamped events into per-year calendar grids.
package graph

import (
	"sort"
	"time"

	appLog "activitygraph/internal/log"
	"activitygraph/internal/model"
)

// Gather sorts the given events by time and distributes them into one
// 7x53 weekday-major grid per calendar year, covering every year from
// the earliest to the latest event. An empty input yields no grids.
//
// The grid for a year starts on the Monday of the week containing Jan 1,
// so the first and last week columns of adjacent years represent the
// same real-world week. Events landing in those shared columns are
// written into both grids to keep the overlapping weeks consistent.
// Slots before Jan 1 or after Dec 31 are marked as filler.
func Gather(events []model.Event) []model.Year {
	if len(events) == 0 {
		return nil
	}

	sorted := make([]model.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].When.Before(sorted[j].When)
	})

	firstYear := sorted[0].When.Year()
	lastYear := sorted[len(sorted)-1].When.Year()

	years := make([]model.Year, 0, lastYear-firstYear+1)
	for year := firstYear; year <= lastYear; year++ {
		years = append(years, model.Year{
			Year: year,
			Days: make([]model.Day, 7*model.Weeks),
		})
	}

	counted := 0
	dropped := 0
	next := 0
	for i := range years {
		year := years[i].Year
		days := years[i].Days

		// Offset of Jan 1 within its week, Monday-based. Slot indices in
		// the flattened 0..7*53 space are day-of-year plus this offset.
		weekdayOffset := mondayIndex(time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).Weekday())
		lastDay := weekdayOffset + time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).YearDay()
		lastWeek := (lastDay - lastDay%7) / 7

		for next < len(sorted) && sorted[next].When.Year() == year {
			event := sorted[next]
			next++

			ordinalWithOffset := event.When.YearDay() - 1 + weekdayOffset
			weekdayIndex := ordinalWithOffset % 7
			weekIndex := ordinalWithOffset / 7
			if weekIndex >= model.Weeks {
				// Past the grid's capacity. Dec 31 of a leap year that
				// starts on a Sunday lands here (slot 371); such events
				// are not drawn, only counted.
				dropped++
				continue
			}

			// Duplicate events in the shared first/last week columns
			// into the adjacent year's grid.
			if weekIndex == lastWeek && i+1 < len(years) {
				cell := &years[i+1].Days[weekdayIndex*model.Weeks]
				cell.Events = append(cell.Events, event)
			}
			if weekIndex == 0 && i > 0 {
				cell := &years[i-1].Days[weekdayIndex*model.Weeks+model.Weeks-1]
				cell.Events = append(cell.Events, event)
			}

			cell := &days[weekdayIndex*model.Weeks+weekIndex]
			cell.Events = append(cell.Events, event)
			counted++
		}

		for slot := 0; slot < weekdayOffset; slot++ {
			days[slot%7*model.Weeks+slot/7].Filler = true
		}
		for slot := lastDay; slot < len(days); slot++ {
			days[slot%7*model.Weeks+slot/7].Filler = true
		}

		appLog.Debug("prepared year for rendering", "year", year, "events_so_far", counted)
	}

	appLog.Info("prepared years for rendering",
		"first_year", firstYear,
		"last_year", lastYear,
		"events", counted,
	)
	if dropped > 0 {
		appLog.Info("events beyond the last week column were not drawn", "dropped", dropped)
	}

	return years
}

// mondayIndex converts time.Weekday (Sunday=0) to a Monday-based index.
func mondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}
