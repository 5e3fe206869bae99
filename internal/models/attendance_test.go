package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	// The transitional pair follows the approval workflow.
	assert.True(t, CanTransition(AttendanceLeave, AttendanceExcused))
	assert.False(t, CanTransition(AttendanceLeave, AttendancePresent))
	assert.False(t, CanTransition(AttendanceLeave, AttendanceAbsent))

	// excused is terminal.
	assert.False(t, CanTransition(AttendanceExcused, AttendancePresent))
	assert.False(t, CanTransition(AttendanceExcused, AttendanceLeave))

	// Plain marks replace each other freely.
	assert.True(t, CanTransition(AttendancePresent, AttendanceAbsent))
	assert.True(t, CanTransition(AttendanceAbsent, AttendanceLate))
	assert.True(t, CanTransition(AttendanceLate, AttendanceLate))

	// Nothing re-enters the workflow by hand.
	assert.False(t, CanTransition(AttendancePresent, AttendanceLeave))
}

func TestDecodeDetails_Tolerant(t *testing.T) {
	d := DecodeDetails([]byte(`{"period_ids":[1,2],"option":"morning"}`))
	assert.Equal(t, Int64List{1, 2}, d.PeriodIDs)
	assert.Equal(t, "morning", d.Option)

	assert.True(t, DecodeDetails(nil).IsZero())
	assert.True(t, DecodeDetails([]byte(`{broken`)).IsZero())
}

func TestDetails_Scan(t *testing.T) {
	var d Details
	assert.NoError(t, d.Scan([]byte(`{"slot_id":3}`)))
	assert.Equal(t, int64(3), d.SlotID)

	assert.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	assert.Error(t, d.Scan(42))
}

func TestInt64List_RoundTrip(t *testing.T) {
	v, err := Int64List{1, 2, 3}.Value()
	assert.NoError(t, err)

	var got Int64List
	assert.NoError(t, got.Scan(v))
	assert.Equal(t, Int64List{1, 2, 3}, got)

	nilVal, err := Int64List(nil).Value()
	assert.NoError(t, err)
	assert.Equal(t, "[]", nilVal)
}

func TestAttendanceRecord_PeriodSet(t *testing.T) {
	p := int64(4)
	scoped := AttendanceRecord{PeriodID: &p, Details: Details{PeriodIDs: Int64List{1, 2}}}
	assert.Equal(t, Int64List{4}, scoped.PeriodSet())
	assert.False(t, scoped.WholeDay())

	whole := AttendanceRecord{Details: Details{PeriodIDs: Int64List{1, 2}}}
	assert.Equal(t, Int64List{1, 2}, whole.PeriodSet())
	assert.True(t, whole.WholeDay())
}

func TestTimeSlot_Contains(t *testing.T) {
	slot := TimeSlot{StartTime: "08:00", EndTime: "12:00"}
	at := func(clock string) time.Time {
		ts, _ := time.Parse("15:04", clock)
		return ts
	}
	assert.True(t, slot.Contains(at("08:00")))
	assert.True(t, slot.Contains(at("10:30")))
	assert.True(t, slot.Contains(at("12:00")))
	assert.False(t, slot.Contains(at("12:01")))
	assert.False(t, slot.Contains(at("07:59")))
}

func TestIdentity_ManagesClass(t *testing.T) {
	teacher := Identity{Role: RoleTeacher, ClassIDs: Int64List{1, 5}}
	assert.True(t, teacher.ManagesClass(5))
	assert.False(t, teacher.ManagesClass(2))

	admin := Identity{Role: RoleAdmin}
	assert.True(t, admin.ManagesClass(999))

	student := Identity{Role: RoleStudent, ClassIDs: Int64List{1}}
	assert.False(t, student.ManagesClass(1))
	assert.False(t, student.Staff())
}

func TestSemester_ClampRange(t *testing.T) {
	sem := Semester{
		ID:        1,
		StartDate: time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC),
	}
	from, to := sem.ClampRange(
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, sem.StartDate, from)
	assert.Equal(t, sem.EndDate, to)

	var none Semester
	f := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	from, to = none.ClampRange(f, g)
	assert.Equal(t, f, from)
	assert.Equal(t, g, to)
}
