//go:build testutil
// +build testutil

package db_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/elsakane2015/classtrack/internal/db"
	"github.com/elsakane2015/classtrack/internal/models"
	"github.com/elsakane2015/classtrack/internal/testutil/testdb"
)

func seedStudent(t *testing.T, ctx context.Context, database *sql.DB) int64 {
	t.Helper()
	var depID, classID, studentID int64
	require.NoError(t, database.QueryRowContext(ctx,
		`INSERT INTO departments (name) VALUES ('初中部') RETURNING id`).Scan(&depID))
	require.NoError(t, database.QueryRowContext(ctx,
		`INSERT INTO classes (name, grade, department_id) VALUES ('7年级1班', 7, $1) RETURNING id`,
		depID).Scan(&classID))
	require.NoError(t, database.QueryRowContext(ctx,
		`INSERT INTO students (student_no, name, class_id) VALUES ('S001', '张三', $1) RETURNING id`,
		classID).Scan(&studentID))
	return studentID
}

func seedPeriods(t *testing.T, ctx context.Context, database *sql.DB, n int) []int64 {
	t.Helper()
	out := make([]int64, 0, n)
	for i := 1; i <= n; i++ {
		var id int64
		require.NoError(t, database.QueryRowContext(ctx,
			`INSERT INTO periods (name, sort) VALUES ($1, $2) RETURNING id`,
			"第"+string(rune('0'+i))+"节", i).Scan(&id))
		out = append(out, id)
	}
	return out
}

func TestUpsertAttendance_KeyedLastWriteWins(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h, err := testdb.Start(ctx)
	require.NoError(t, err)
	defer h.Close()

	studentID := seedStudent(t, ctx, h.DB)
	periods := seedPeriods(t, ctx, h.DB, 2)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	first := models.AttendanceRecord{
		StudentID:  studentID,
		Date:       day,
		PeriodID:   &periods[0],
		Status:     models.AttendancePresent,
		SourceType: models.SourceManual,
	}
	require.NoError(t, db.UpsertAttendance(ctx, h.DB, &first))

	second := models.AttendanceRecord{
		StudentID:  studentID,
		Date:       day,
		PeriodID:   &periods[0],
		Status:     models.AttendanceLate,
		SourceType: models.SourceManual,
	}
	require.NoError(t, db.UpsertAttendance(ctx, h.DB, &second))
	require.Equal(t, first.ID, second.ID, "same key must hit the same row")

	got, err := db.GetAttendanceByKey(ctx, h.DB, studentID, day, &periods[0])
	require.NoError(t, err)
	require.Equal(t, models.AttendanceLate, got.Status)
}

func TestUpsertAttendance_WholeDayKeyIsUnique(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h, err := testdb.Start(ctx)
	require.NoError(t, err)
	defer h.Close()

	studentID := seedStudent(t, ctx, h.DB)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	a := models.AttendanceRecord{
		StudentID: studentID, Date: day,
		Status: models.AttendanceLeave, SourceType: models.SourceSelfApplied,
	}
	require.NoError(t, db.UpsertAttendance(ctx, h.DB, &a))

	b := models.AttendanceRecord{
		StudentID: studentID, Date: day,
		Status: models.AttendanceExcused, SourceType: models.SourceManual,
	}
	require.NoError(t, db.UpsertAttendance(ctx, h.DB, &b))
	require.Equal(t, a.ID, b.ID, "NULL period rows share one key per day")

	got, err := db.GetAttendanceByKey(ctx, h.DB, studentID, day, nil)
	require.NoError(t, err)
	require.Equal(t, models.AttendanceExcused, got.Status)
}

func TestDeleteAttendanceBySource(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h, err := testdb.Start(ctx)
	require.NoError(t, err)
	defer h.Close()

	studentID := seedStudent(t, ctx, h.DB)
	periods := seedPeriods(t, ctx, h.DB, 3)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	srcID := int64(77)

	for _, p := range periods {
		p := p
		rec := models.AttendanceRecord{
			StudentID: studentID, Date: day, PeriodID: &p,
			Status: models.AttendanceLeave, SourceType: models.SourceLeaveRequest, SourceID: &srcID,
		}
		require.NoError(t, db.UpsertAttendance(ctx, h.DB, &rec))
	}
	other := models.AttendanceRecord{
		StudentID: studentID, Date: day.AddDate(0, 0, 1),
		Status: models.AttendancePresent, SourceType: models.SourceManual,
	}
	require.NoError(t, db.UpsertAttendance(ctx, h.DB, &other))

	n, err := db.DeleteAttendanceBySource(ctx, h.DB, models.SourceLeaveRequest, srcID)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	left, err := db.ListAttendanceByStudentRange(ctx, h.DB, studentID, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, left, 1)
	require.Equal(t, models.SourceManual, left[0].SourceType)
}

func TestSetApprovalBySource(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h, err := testdb.Start(ctx)
	require.NoError(t, err)
	defer h.Close()

	studentID := seedStudent(t, ctx, h.DB)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	srcID := int64(5)
	pending := models.ApprovalPending

	for i := 0; i < 2; i++ {
		rec := models.AttendanceRecord{
			StudentID: studentID, Date: day.AddDate(0, 0, i),
			Status: models.AttendanceLeave, ApprovalStatus: &pending,
			SourceType: models.SourceLeaveRequest, SourceID: &srcID,
		}
		require.NoError(t, db.UpsertAttendance(ctx, h.DB, &rec))
	}

	n, err := db.SetApprovalBySource(ctx, h.DB, models.SourceLeaveRequest, srcID,
		models.AttendanceExcused, models.ApprovalApproved)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	rows, err := db.ListAttendanceByStudentRange(ctx, h.DB, studentID, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		require.Equal(t, models.AttendanceExcused, r.Status)
		require.Equal(t, models.ApprovalApproved, *r.ApprovalStatus)
	}
}

func TestWithTx_MidCascadeFailureWritesNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h, err := testdb.Start(ctx)
	require.NoError(t, err)
	defer h.Close()

	studentID := seedStudent(t, ctx, h.DB)
	periods := seedPeriods(t, ctx, h.DB, 3)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	boom := errors.New("boom")
	err = db.WithTx(ctx, h.DB, func(tx *sql.Tx) error {
		for _, p := range periods {
			p := p
			rec := models.AttendanceRecord{
				StudentID: studentID, Date: day, PeriodID: &p,
				Status: models.AttendanceLeave, SourceType: models.SourceLeaveRequest,
			}
			if err := db.UpsertAttendance(ctx, tx, &rec); err != nil {
				return err
			}
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// All N writes rolled back together.
	rows, err := db.ListAttendanceByStudentRange(ctx, h.DB, studentID, day, day)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestListActiveByStudentDate_FiltersRejected(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h, err := testdb.Start(ctx)
	require.NoError(t, err)
	defer h.Close()

	studentID := seedStudent(t, ctx, h.DB)
	periods := seedPeriods(t, ctx, h.DB, 2)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	rejected := models.ApprovalRejected

	good := models.AttendanceRecord{
		StudentID: studentID, Date: day, PeriodID: &periods[0],
		Status: models.AttendancePresent, SourceType: models.SourceManual,
	}
	require.NoError(t, db.UpsertAttendance(ctx, h.DB, &good))
	bad := models.AttendanceRecord{
		StudentID: studentID, Date: day, PeriodID: &periods[1],
		Status: models.AttendanceLeave, ApprovalStatus: &rejected,
		SourceType: models.SourceSelfApplied,
	}
	require.NoError(t, db.UpsertAttendance(ctx, h.DB, &bad))

	active, err := db.ListActiveByStudentDate(ctx, h.DB, studentID, day)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, good.ID, active[0].ID)
}
