package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/elsakane2015/classtrack/internal/models"
)

const attendanceCols = `id, student_id, date, period_id, status, approval_status,
source_type, source_id, leave_type_id, details, created_at, updated_at`

// UpsertAttendance writes one attendance fact keyed on (student_id, date,
// period_id). The last write for a key wins; the unique constraint keeps the
// row authoritative under concurrent writers.
func UpsertAttendance(ctx context.Context, q DBTX, rec *models.AttendanceRecord) error {
	const op = "db.UpsertAttendance"

	now := time.Now().UTC()
	err := q.QueryRowContext(ctx, `
		INSERT INTO attendance_records
			(student_id, date, period_id, status, approval_status, source_type, source_id, leave_type_id, details, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT ON CONSTRAINT uq_attendance_key
		DO UPDATE SET
			status = EXCLUDED.status,
			approval_status = EXCLUDED.approval_status,
			source_type = EXCLUDED.source_type,
			source_id = EXCLUDED.source_id,
			leave_type_id = EXCLUDED.leave_type_id,
			details = EXCLUDED.details,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`,
		rec.StudentID, rec.Date, rec.PeriodID, rec.Status, rec.ApprovalStatus,
		rec.SourceType, rec.SourceID, rec.LeaveTypeID, rec.Details, now,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rec.UpdatedAt = now
	return nil
}

func GetAttendanceByID(ctx context.Context, q DBTX, id int64) (*models.AttendanceRecord, error) {
	const op = "db.GetAttendanceByID"

	row := q.QueryRowContext(ctx, `SELECT `+attendanceCols+` FROM attendance_records WHERE id = $1`, id)
	rec, err := scanAttendance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

// GetAttendanceByKey does the point lookup on the authoritative upsert key.
func GetAttendanceByKey(ctx context.Context, q DBTX, studentID int64, day time.Time, periodID *int64) (*models.AttendanceRecord, error) {
	const op = "db.GetAttendanceByKey"

	row := q.QueryRowContext(ctx, `
		SELECT `+attendanceCols+`
		FROM attendance_records
		WHERE student_id = $1 AND date = $2 AND period_id IS NOT DISTINCT FROM $3`,
		studentID, day, periodID)
	rec, err := scanAttendance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

// LockStudentAttendance takes a transaction-scoped advisory lock on the
// student, serializing conflict checks against concurrent submissions for the
// same student. Released automatically at commit or rollback.
func LockStudentAttendance(ctx context.Context, q DBTX, studentID int64) error {
	const op = "db.LockStudentAttendance"

	if _, err := q.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, studentID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListActiveByStudentDate returns the student's rows for one day, excluding
// rejected ones. Rejection normally deletes rows outright; the filter is kept
// anyway so a missed delete cannot surface as a conflict or a leave match.
func ListActiveByStudentDate(ctx context.Context, q DBTX, studentID int64, day time.Time) ([]models.AttendanceRecord, error) {
	const op = "db.ListActiveByStudentDate"

	rows, err := q.QueryContext(ctx, `
		SELECT `+attendanceCols+`
		FROM attendance_records
		WHERE student_id = $1 AND date = $2
		  AND (approval_status IS NULL OR approval_status <> 'rejected')
		ORDER BY updated_at DESC, id DESC`, studentID, day)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()
	return collectAttendance(rows, op)
}

func ListAttendanceByStudentRange(ctx context.Context, q DBTX, studentID int64, from, to time.Time) ([]models.AttendanceRecord, error) {
	const op = "db.ListAttendanceByStudentRange"

	rows, err := q.QueryContext(ctx, `
		SELECT `+attendanceCols+`
		FROM attendance_records
		WHERE student_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date, period_id NULLS FIRST`, studentID, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()
	return collectAttendance(rows, op)
}

// ListAttendanceByClassDate is the per-class daily scan with leave type,
// period and student names loaded eagerly.
func ListAttendanceByClassDate(ctx context.Context, q DBTX, classID int64, day time.Time) ([]models.AttendanceRecord, error) {
	const op = "db.ListAttendanceByClassDate"

	rows, err := q.QueryContext(ctx, `
		SELECT a.id, a.student_id, a.date, a.period_id, a.status, a.approval_status,
		       a.source_type, a.source_id, a.leave_type_id, a.details, a.created_at, a.updated_at,
		       COALESCE(lt.name, ''), COALESCE(p.name, ''), s.name
		FROM attendance_records a
		JOIN students s ON s.id = a.student_id
		LEFT JOIN leave_types lt ON lt.id = a.leave_type_id
		LEFT JOIN periods p ON p.id = a.period_id
		WHERE s.class_id = $1 AND a.date = $2
		ORDER BY s.name, a.period_id NULLS FIRST`, classID, day)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.AttendanceRecord
	for rows.Next() {
		var r models.AttendanceRecord
		if err := rows.Scan(
			&r.ID, &r.StudentID, &r.Date, &r.PeriodID, &r.Status, &r.ApprovalStatus,
			&r.SourceType, &r.SourceID, &r.LeaveTypeID, &r.Details, &r.CreatedAt, &r.UpdatedAt,
			&r.LeaveTypeName, &r.PeriodName, &r.StudentName,
		); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteAttendanceBySource removes every row written by one originating
// entity, not just one period. This is the cancellation mechanism: rejected
// and cancelled leaves leave no rows behind.
func DeleteAttendanceBySource(ctx context.Context, q DBTX, st models.SourceType, sourceID int64) (int64, error) {
	const op = "db.DeleteAttendanceBySource"

	res, err := q.ExecContext(ctx,
		`DELETE FROM attendance_records WHERE source_type = $1 AND source_id = $2`, st, sourceID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

func DeleteAttendanceByID(ctx context.Context, q DBTX, id int64) error {
	const op = "db.DeleteAttendanceByID"

	res, err := q.ExecContext(ctx, `DELETE FROM attendance_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetApprovalBySource flips every row of one source through the approval
// workflow in a single statement, e.g. leave -> excused on approval.
func SetApprovalBySource(ctx context.Context, q DBTX, st models.SourceType, sourceID int64,
	status models.AttendanceStatus, approval models.ApprovalStatus) (int64, error) {
	const op = "db.SetApprovalBySource"

	res, err := q.ExecContext(ctx, `
		UPDATE attendance_records
		SET status = $3, approval_status = $4, updated_at = now()
		WHERE source_type = $1 AND source_id = $2`, st, sourceID, status, approval)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// StudentIDsWithRecordOn returns students that already have any record for
// the day. The auto-mark job skips them.
func StudentIDsWithRecordOn(ctx context.Context, q DBTX, day time.Time) (map[int64]bool, error) {
	const op = "db.StudentIDsWithRecordOn"

	rows, err := q.QueryContext(ctx,
		`SELECT DISTINCT student_id FROM attendance_records WHERE date = $1`, day)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	out := map[int64]bool{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out[id] = true
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttendance(row rowScanner) (*models.AttendanceRecord, error) {
	var r models.AttendanceRecord
	err := row.Scan(
		&r.ID, &r.StudentID, &r.Date, &r.PeriodID, &r.Status, &r.ApprovalStatus,
		&r.SourceType, &r.SourceID, &r.LeaveTypeID, &r.Details, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func collectAttendance(rows *sql.Rows, op string) ([]models.AttendanceRecord, error) {
	var out []models.AttendanceRecord
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}
