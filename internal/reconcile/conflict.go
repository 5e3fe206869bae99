package reconcile

import (
	"context"
	"time"

	"github.com/elsakane2015/classtrack/internal/db"
	"github.com/elsakane2015/classtrack/internal/models"
)

// Conflict pairs a requested day with the existing record that claims it.
type Conflict struct {
	Day    time.Time               `json:"day"`
	Record models.AttendanceRecord `json:"record"`
}

// ConflictsOn classifies which of the existing records for one day collide
// with a proposed leave. A whole-day proposal collides with anything; a
// period-scoped proposal collides when the period sets intersect (an
// existing unscoped whole-day row intersects everything).
func ConflictsOn(day time.Time, existing []models.AttendanceRecord, periodIDs models.Int64List) []Conflict {
	var out []Conflict
	for _, rec := range existing {
		if len(periodIDs) == 0 {
			out = append(out, Conflict{Day: day, Record: rec})
			continue
		}
		if rec.WholeDay() && len(rec.Details.PeriodIDs) == 0 {
			out = append(out, Conflict{Day: day, Record: rec})
			continue
		}
		if IntersectMatch(rec.PeriodSet(), periodIDs) {
			out = append(out, Conflict{Day: day, Record: rec})
		}
	}
	return out
}

// DetectConflicts scans every day of the proposed span for active records of
// the student. A non-empty result means reject-on-overlap: no two active
// facts may claim the same (student, date, period) tuple. Rejected rows are
// filtered at the query; cancelled leaves leave no rows at all.
func DetectConflicts(ctx context.Context, q db.DBTX, studentID int64,
	start, end time.Time, periodIDs models.Int64List) ([]Conflict, error) {
	var out []Conflict
	for _, day := range DaysBetween(start, end) {
		existing, err := db.ListActiveByStudentDate(ctx, q, studentID, day)
		if err != nil {
			return nil, err
		}
		out = append(out, ConflictsOn(day, existing, periodIDs)...)
	}
	return out, nil
}
