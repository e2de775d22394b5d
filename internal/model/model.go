package model

import "time"

// Weeks is the number of week columns in a year grid. 53 columns fit
// every calendar year: 365 or 366 days plus at most 6 leading weekday
// offset slots stay within 53*7.
const Weeks = 53

// Event is a single dated occurrence attributed to a source repository.
type Event struct {
	// When is the commit timestamp as reported by git.
	When time.Time
	// Source is the repository name the event came from.
	Source string
}

// Repository identifies a discovered git repository on disk.
type Repository struct {
	Name string
	Path string
}

// Day is one weekday-in-a-week slot of a year grid.
type Day struct {
	// Filler marks slots that do not correspond to a real day of the
	// represented year (padding before Jan 1 or after Dec 31).
	Filler bool
	// Events holds the events assigned to this day in discovery order.
	// Boundary duplication means the order is not strictly chronological.
	Events []Event
}

// Year is a 7x53 grid of days in weekday-major order: row d (0=Monday,
// 6=Sunday) holds all cells for weekday d across the week columns, so
// the cell for (weekday, week) lives at Days[weekday*Weeks+week].
type Year struct {
	Year int
	Days []Day
}

// Snapshot is one fully rendered set of cached artifacts. A snapshot is
// built in full and swapped in as a whole; it is never mutated after
// publication.
type Snapshot struct {
	HTML       string
	CSS        string
	ProducedAt time.Time
}
