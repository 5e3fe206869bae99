package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/elsakane2015/classtrack/internal/models"
)

func TestConflictsOn(t *testing.T) {
	day := Day(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))

	t.Run("whole day proposal collides with anything", func(t *testing.T) {
		existing := []models.AttendanceRecord{rec(models.AttendancePresent, pid(4), models.Details{})}
		got := ConflictsOn(day, existing, nil)
		assert.Len(t, got, 1)
		assert.Equal(t, day, got[0].Day)
	})

	t.Run("period proposal vs whole day row", func(t *testing.T) {
		existing := []models.AttendanceRecord{rec(models.AttendanceExcused, nil, models.Details{})}
		assert.Len(t, ConflictsOn(day, existing, models.Int64List{1}), 1)
	})

	t.Run("disjoint period sets do not collide", func(t *testing.T) {
		existing := []models.AttendanceRecord{rec(models.AttendanceLeave, pid(1), models.Details{})}
		assert.Empty(t, ConflictsOn(day, existing, models.Int64List{2, 3}))
	})

	t.Run("overlap is symmetric", func(t *testing.T) {
		a := []models.AttendanceRecord{rec(models.AttendanceLeave, pid(2), models.Details{})}
		b := []models.AttendanceRecord{rec(models.AttendanceLeave, pid(3), models.Details{})}
		assert.Len(t, ConflictsOn(day, a, models.Int64List{2, 3}), 1)
		assert.Len(t, ConflictsOn(day, b, models.Int64List{1, 2, 3}), 1)
	})

	t.Run("details period list counts", func(t *testing.T) {
		existing := []models.AttendanceRecord{
			rec(models.AttendanceLeave, nil, models.Details{PeriodIDs: models.Int64List{5}}),
		}
		assert.Empty(t, ConflictsOn(day, existing, models.Int64List{1}))
		assert.Len(t, ConflictsOn(day, existing, models.Int64List{5}), 1)
	})

	t.Run("no existing rows", func(t *testing.T) {
		assert.Empty(t, ConflictsOn(day, nil, models.Int64List{1}))
	})
}

func TestDaysBetween(t *testing.T) {
	start := time.Date(2026, 2, 27, 15, 30, 0, 0, time.UTC)
	end := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	days := DaysBetween(start, end)
	assert.Len(t, days, 4)
	assert.Equal(t, Day(start), days[0])
	assert.Equal(t, Day(end), days[3])

	assert.Len(t, DaysBetween(start, start), 1)
	assert.Nil(t, DaysBetween(end, start))
}
