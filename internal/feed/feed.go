// Package feed serializes commit activity as an iCalendar subscription:
// one all-day event per day with commits, so the activity shows up in
// regular calendar apps.
package feed

import (
	"fmt"
	"sort"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"activitygraph/internal/model"
)

const productID = "-//activitygraph//Activity feed//EN"

// Build renders the iCalendar feed for the given events. Days are keyed
// by the event's UTC date; the summary carries the commit count and the
// description lists the repositories touched that day.
func Build(events []model.Event, now time.Time) string {
	type dayActivity struct {
		count   int
		sources map[string]struct{}
	}

	days := make(map[string]*dayActivity)
	for _, ev := range events {
		key := ev.When.UTC().Format("2006-01-02")
		act := days[key]
		if act == nil {
			act = &dayActivity{sources: make(map[string]struct{})}
			days[key] = act
		}
		act.count++
		act.sources[ev.Source] = struct{}{}
	}

	keys := make([]string, 0, len(days))
	for key := range days {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, key := range keys {
		act := days[key]
		day, err := time.Parse("2006-01-02", key)
		if err != nil {
			continue
		}

		sources := make([]string, 0, len(act.sources))
		for source := range act.sources {
			sources = append(sources, source)
		}
		sort.Strings(sources)

		event := cal.AddEvent(strings.ReplaceAll(key, "-", "") + "@activitygraph")
		event.SetDtStampTime(now)
		event.SetAllDayStartAt(day)
		event.SetAllDayEndAt(day.AddDate(0, 0, 1))
		if act.count == 1 {
			event.SetSummary("1 commit")
		} else {
			event.SetSummary(fmt.Sprintf("%d commits", act.count))
		}
		event.SetDescription(strings.Join(sources, ", "))
	}

	return cal.Serialize()
}
