package models

import "time"

// Period is one teaching period of the day, ordered by Sort.
type Period struct {
	ID        int64  `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	Sort      int    `db:"sort" json:"sort"`
	StartTime string `db:"start_time" json:"start_time"` // HH:MM
	EndTime   string `db:"end_time" json:"end_time"`     // HH:MM
}

// TimeSlot is a named clock range mapped to a period set, e.g. "morning".
type TimeSlot struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	StartTime string    `db:"start_time" json:"start_time"` // HH:MM
	EndTime   string    `db:"end_time" json:"end_time"`     // HH:MM
	PeriodIDs Int64List `db:"period_ids" json:"period_ids"`
}

// Contains reports whether the wall-clock of t falls inside the slot.
func (s TimeSlot) Contains(t time.Time) bool {
	hm := t.Format("15:04")
	return s.StartTime <= hm && hm <= s.EndTime
}

type Semester struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	IsCurrent bool      `db:"is_current" json:"is_current"`
}

// ClampRange narrows [from, to] to the semester window. The zero Semester
// leaves the range untouched (documented fallback when none is configured).
func (s Semester) ClampRange(from, to time.Time) (time.Time, time.Time) {
	if s.ID == 0 {
		return from, to
	}
	if from.Before(s.StartDate) {
		from = s.StartDate
	}
	if to.After(s.EndDate) {
		to = s.EndDate
	}
	return from, to
}
