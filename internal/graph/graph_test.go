package graph

import (
	"testing"
	"time"

	"activitygraph/internal/model"
)

func day(t *testing.T, value string) time.Time {
	t.Helper()
	when, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("bad test timestamp %q: %v", value, err)
	}
	return when
}

func cell(year model.Year, weekday, week int) model.Day {
	return year.Days[weekday*model.Weeks+week]
}

func countNonFiller(year model.Year) int {
	count := 0
	for _, d := range year.Days {
		if !d.Filler {
			count++
		}
	}
	return count
}

func TestGatherEmpty(t *testing.T) {
	if years := Gather(nil); len(years) != 0 {
		t.Errorf("Gather(nil) returned %d grids, want 0", len(years))
	}
	if years := Gather([]model.Event{}); len(years) != 0 {
		t.Errorf("Gather of empty slice returned %d grids, want 0", len(years))
	}
}

func TestGatherDayCounts(t *testing.T) {
	tests := []struct {
		name          string
		timestamp     string
		wantNonFiller int
	}{
		// 2023 is a regular year starting on a Sunday: 6 leading
		// filler slots, none trailing (371 slots exactly).
		{"non-leap year", "2023-06-15T12:00:00Z", 365},
		// 2024 is a leap year starting on a Monday: no leading filler,
		// 5 trailing filler slots.
		{"leap year", "2024-06-15T12:00:00Z", 366},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			years := Gather([]model.Event{{When: day(t, tt.timestamp), Source: "repo"}})
			if len(years) != 1 {
				t.Fatalf("got %d grids, want 1", len(years))
			}
			if got := countNonFiller(years[0]); got != tt.wantNonFiller {
				t.Errorf("non-filler cells = %d, want %d", got, tt.wantNonFiller)
			}
		})
	}
}

func TestGatherUnsortedInput(t *testing.T) {
	events := []model.Event{
		{When: day(t, "2024-03-10T08:00:00Z"), Source: "b"},
		{When: day(t, "2024-01-05T08:00:00Z"), Source: "a"},
		{When: day(t, "2024-02-20T08:00:00Z"), Source: "c"},
	}
	years := Gather(events)
	if len(years) != 1 {
		t.Fatalf("got %d grids, want 1", len(years))
	}
	total := 0
	for _, d := range years[0].Days {
		total += len(d.Events)
	}
	if total != 3 {
		t.Errorf("placed %d events, want 3", total)
	}
	// Jan 5 2024 is a Friday in week 0.
	if got := cell(years[0], 4, 0); len(got.Events) != 1 || got.Events[0].Source != "a" {
		t.Errorf("cell (4,0) = %+v, want the Jan 5 event", got)
	}
}

func TestGatherBoundaryDuplication(t *testing.T) {
	// Dec 31 2024 is a Tuesday in the year's final week column (52),
	// which 2024 shares with 2025's week 0.
	events := []model.Event{
		{When: day(t, "2024-12-31T10:00:00Z"), Source: "repo1"},
		{When: day(t, "2025-01-02T10:00:00Z"), Source: "repo1"},
	}
	years := Gather(events)
	if len(years) != 2 {
		t.Fatalf("got %d grids, want 2", len(years))
	}

	if got := cell(years[0], 1, 52); len(got.Events) != 1 {
		t.Errorf("2024 cell (1,52) holds %d events, want 1", len(got.Events))
	}
	if got := cell(years[1], 1, 0); len(got.Events) != 1 {
		t.Errorf("2025 week-0 duplicate: cell (1,0) holds %d events, want 1", len(got.Events))
	}
}

func TestGatherYearBoundaryScenario(t *testing.T) {
	events := []model.Event{
		{When: day(t, "2023-12-31T23:00:00Z"), Source: "repo1"},
		{When: day(t, "2024-01-01T01:00:00Z"), Source: "repo1"},
	}
	years := Gather(events)
	if len(years) != 2 {
		t.Fatalf("got %d grids, want 2", len(years))
	}
	if years[0].Year != 2023 || years[1].Year != 2024 {
		t.Fatalf("got years %d, %d", years[0].Year, years[1].Year)
	}

	// Dec 31 2023 is a Sunday in week 52. 2023 ends exactly on a week
	// boundary (371 slots), so its final real week is not shared with
	// 2024 and the event is not duplicated forward.
	if got := cell(years[0], 6, 52); len(got.Events) != 1 {
		t.Errorf("2023 cell (6,52) holds %d events, want 1", len(got.Events))
	}
	if got := cell(years[1], 6, 0); len(got.Events) != 0 {
		t.Errorf("2024 cell (6,0) holds %d events, want 0", len(got.Events))
	}

	// Jan 1 2024 is a Monday in week 0, duplicated back into 2023's
	// week-52 column.
	if got := cell(years[1], 0, 0); len(got.Events) != 1 {
		t.Errorf("2024 cell (0,0) holds %d events, want 1", len(got.Events))
	}
	if got := cell(years[0], 0, 52); len(got.Events) != 1 {
		t.Errorf("2023 week-52 duplicate: cell (0,52) holds %d events, want 1", len(got.Events))
	}
}

func TestGatherDropsBeyondGridCapacity(t *testing.T) {
	// 2012 is a leap year starting on a Sunday, so Dec 31 2012 lands on
	// flattened slot 371, one past the 7x53 grid.
	events := []model.Event{
		{When: day(t, "2012-01-01T12:00:00Z"), Source: "repo"},
		{When: day(t, "2012-12-31T12:00:00Z"), Source: "repo"},
	}
	years := Gather(events)
	if len(years) != 1 {
		t.Fatalf("got %d grids, want 1", len(years))
	}

	total := 0
	for _, d := range years[0].Days {
		total += len(d.Events)
	}
	if total != 1 {
		t.Errorf("placed %d events, want 1 (Dec 31 dropped)", total)
	}
	if got := cell(years[0], 6, 0); len(got.Events) != 1 {
		t.Errorf("Jan 1 2012 missing from cell (6,0)")
	}
}

func TestGatherSpansGapYears(t *testing.T) {
	events := []model.Event{
		{When: day(t, "2020-05-01T00:00:00Z"), Source: "old"},
		{When: day(t, "2023-05-01T00:00:00Z"), Source: "new"},
	}
	years := Gather(events)
	if len(years) != 4 {
		t.Fatalf("got %d grids, want 4 (2020 through 2023)", len(years))
	}
	for i, want := range []int{2020, 2021, 2022, 2023} {
		if years[i].Year != want {
			t.Errorf("years[%d].Year = %d, want %d", i, years[i].Year, want)
		}
	}
}
