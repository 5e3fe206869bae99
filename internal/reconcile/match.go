package reconcile

import (
	"time"

	"github.com/elsakane2015/classtrack/internal/models"
)

// MatchStrategy decides whether a record's period set suppresses a roll call
// covering typePeriods.
type MatchStrategy func(recordPeriods, typePeriods models.Int64List) bool

// ExactMatch requires set equality. Punctuality violations (late,
// early_leave) are period-precise events: a late mark for period 3 only
// suppresses a roll call configured for exactly {3}.
func ExactMatch(recordPeriods, typePeriods models.Int64List) bool {
	if len(recordPeriods) != len(typePeriods) || len(recordPeriods) == 0 {
		return false
	}
	set := make(map[int64]bool, len(recordPeriods))
	for _, p := range recordPeriods {
		set[p] = true
	}
	for _, p := range typePeriods {
		if !set[p] {
			return false
		}
	}
	return true
}

// IntersectMatch requires one shared period. Absence and leave are coarser
// facts: a partial-day leave suppresses a roll call for any period it
// overlaps.
func IntersectMatch(recordPeriods, typePeriods models.Int64List) bool {
	set := make(map[int64]bool, len(recordPeriods))
	for _, p := range recordPeriods {
		set[p] = true
	}
	for _, p := range typePeriods {
		if set[p] {
			return true
		}
	}
	return false
}

// StrategyFor selects the named strategy by record status.
func StrategyFor(status models.AttendanceStatus) MatchStrategy {
	switch status {
	case models.AttendanceLate, models.AttendanceEarlyLeave:
		return ExactMatch
	default:
		return IntersectMatch
	}
}

// matchable statuses; a present row never suppresses a roll call.
func matchable(status models.AttendanceStatus) bool {
	switch status {
	case models.AttendanceLeave, models.AttendanceExcused, models.AttendanceAbsent,
		models.AttendanceLate, models.AttendanceEarlyLeave:
		return true
	default:
		return false
	}
}

// MatchRecord cross-references a student's records for the roll-call day
// against the roll-call type and returns the record that marks the student
// on leave, if any. Records must arrive most-recently-updated first; the
// first match wins and ties are not otherwise broken. Rows the roll call
// itself wrote earlier (source roll_call with ownRollCallID) are ignored so
// re-derivation never feeds on its own output.
func MatchRecord(records []models.AttendanceRecord, rcType models.RollCallType,
	calledAt time.Time, slots []models.TimeSlot, ownRollCallID int64) *models.AttendanceRecord {
	for i := range records {
		rec := &records[i]
		if !matchable(rec.Status) {
			continue
		}
		if rec.SourceType == models.SourceRollCall && rec.SourceID != nil && *rec.SourceID == ownRollCallID {
			continue
		}
		if matchOne(rec, rcType, calledAt, slots) {
			return rec
		}
	}
	return nil
}

func matchOne(rec *models.AttendanceRecord, rcType models.RollCallType,
	calledAt time.Time, slots []models.TimeSlot) bool {
	if len(rcType.PeriodIDs) > 0 {
		// An unscoped whole-day row claims every period: it intersects any
		// type but can never satisfy an exact period-set match.
		if rec.WholeDay() && len(rec.Details.PeriodIDs) == 0 {
			switch rec.Status {
			case models.AttendanceLate, models.AttendanceEarlyLeave:
				return false
			default:
				return true
			}
		}
		return StrategyFor(rec.Status)(rec.PeriodSet(), rcType.PeriodIDs)
	}

	// No periods configured on the type: fall back to structured details.
	if rec.Details.Option != "" {
		if slot := slotForOption(slots, rec.Details.Option); slot != nil {
			return slot.Contains(calledAt)
		}
		return true
	}
	if rec.Details.SlotID != 0 {
		for i := range slots {
			if slots[i].ID == rec.Details.SlotID {
				return slots[i].Contains(calledAt)
			}
		}
		return false
	}
	// An unscoped whole-day record matches unconditionally.
	return rec.WholeDay() && len(rec.Details.PeriodIDs) == 0
}

func slotForOption(slots []models.TimeSlot, option string) *models.TimeSlot {
	for i := range slots {
		if slots[i].Name == option {
			return &slots[i]
		}
	}
	return nil
}
