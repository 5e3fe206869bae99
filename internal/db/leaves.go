package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/elsakane2015/classtrack/internal/models"
)

const leaveCols = `l.id, l.student_id, l.leave_type_id, l.start_date, l.end_date,
l.period_ids, l.option, l.reason, l.status, l.decided_by, l.decided_at, l.created_at, l.updated_at`

func CreateLeaveRequest(ctx context.Context, q DBTX, l *models.LeaveRequest) error {
	const op = "db.CreateLeaveRequest"

	now := time.Now().UTC()
	err := q.QueryRowContext(ctx, `
		INSERT INTO leave_requests
			(student_id, leave_type_id, start_date, end_date, period_ids, option, reason, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING id`,
		l.StudentID, l.LeaveTypeID, l.StartDate, l.EndDate, l.PeriodIDs, l.Option, l.Reason, models.LeavePending, now,
	).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	l.Status = models.LeavePending
	l.CreatedAt = now
	l.UpdatedAt = now
	return nil
}

func GetLeaveRequest(ctx context.Context, q DBTX, id int64) (*models.LeaveRequest, error) {
	const op = "db.GetLeaveRequest"

	row := q.QueryRowContext(ctx, `
		SELECT `+leaveCols+`, lt.name, s.name
		FROM leave_requests l
		JOIN leave_types lt ON lt.id = l.leave_type_id
		JOIN students s ON s.id = l.student_id
		WHERE l.id = $1`, id)

	var l models.LeaveRequest
	err := row.Scan(
		&l.ID, &l.StudentID, &l.LeaveTypeID, &l.StartDate, &l.EndDate,
		&l.PeriodIDs, &l.Option, &l.Reason, &l.Status, &l.DecidedBy, &l.DecidedAt,
		&l.CreatedAt, &l.UpdatedAt, &l.LeaveTypeName, &l.StudentName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &l, nil
}

type LeaveFilter struct {
	StudentID int64
	ClassID   int64
	Status    models.LeaveStatus
	Limit     int
}

func ListLeaveRequests(ctx context.Context, q DBTX, f LeaveFilter) ([]models.LeaveRequest, error) {
	const op = "db.ListLeaveRequests"

	where := []string{"TRUE"}
	args := []any{}
	if f.StudentID != 0 {
		args = append(args, f.StudentID)
		where = append(where, "l.student_id = $"+strconv.Itoa(len(args)))
	}
	if f.ClassID != 0 {
		args = append(args, f.ClassID)
		where = append(where, "s.class_id = $"+strconv.Itoa(len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, "l.status = $"+strconv.Itoa(len(args)))
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, `
		SELECT `+leaveCols+`, lt.name, s.name
		FROM leave_requests l
		JOIN leave_types lt ON lt.id = l.leave_type_id
		JOIN students s ON s.id = l.student_id
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY l.created_at DESC
		LIMIT $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.LeaveRequest
	for rows.Next() {
		var l models.LeaveRequest
		if err := rows.Scan(
			&l.ID, &l.StudentID, &l.LeaveTypeID, &l.StartDate, &l.EndDate,
			&l.PeriodIDs, &l.Option, &l.Reason, &l.Status, &l.DecidedBy, &l.DecidedAt,
			&l.CreatedAt, &l.UpdatedAt, &l.LeaveTypeName, &l.StudentName,
		); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// SetLeaveStatus records a decision. The guard on the current status keeps
// double decisions out even when two approvers race.
func SetLeaveStatus(ctx context.Context, q DBTX, id int64, from, to models.LeaveStatus, decidedBy *int64) error {
	const op = "db.SetLeaveStatus"

	res, err := q.ExecContext(ctx, `
		UPDATE leave_requests
		SET status = $3, decided_by = $4, decided_at = now(), updated_at = now()
		WHERE id = $1 AND status = $2`, id, from, to, decidedBy)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
