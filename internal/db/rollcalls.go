package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/elsakane2015/classtrack/internal/models"
)

func CreateRollCall(ctx context.Context, q DBTX, rc *models.RollCall) error {
	const op = "db.CreateRollCall"

	err := q.QueryRowContext(ctx, `
		INSERT INTO roll_calls (class_id, type_id, called_at, status, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		rc.ClassID, rc.TypeID, rc.CalledAt, models.RollCallOpen, rc.CreatedBy,
	).Scan(&rc.ID, &rc.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rc.Status = models.RollCallOpen
	return nil
}

func GetRollCall(ctx context.Context, q DBTX, id int64) (*models.RollCall, error) {
	const op = "db.GetRollCall"

	row := q.QueryRowContext(ctx, `
		SELECT rc.id, rc.class_id, rc.type_id, rc.called_at, rc.status, rc.created_by, rc.created_at, t.name
		FROM roll_calls rc
		JOIN roll_call_types t ON t.id = rc.type_id
		WHERE rc.id = $1`, id)

	var rc models.RollCall
	err := row.Scan(&rc.ID, &rc.ClassID, &rc.TypeID, &rc.CalledAt, &rc.Status, &rc.CreatedBy, &rc.CreatedAt, &rc.TypeName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &rc, nil
}

func InsertRollCallRecord(ctx context.Context, q DBTX, r *models.RollCallRecord) error {
	const op = "db.InsertRollCallRecord"

	err := q.QueryRowContext(ctx, `
		INSERT INTO roll_call_records (roll_call_id, student_id, status, detail, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT ON CONSTRAINT uq_roll_call_student DO NOTHING
		RETURNING id, updated_at`,
		r.RollCallID, r.StudentID, r.Status, r.Detail,
	).Scan(&r.ID, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Duplicate enrollment row, already present.
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func ListRollCallRecords(ctx context.Context, q DBTX, rollCallID int64) ([]models.RollCallRecord, error) {
	const op = "db.ListRollCallRecords"

	rows, err := q.QueryContext(ctx, `
		SELECT r.id, r.roll_call_id, r.student_id, r.status, r.detail, r.updated_at, s.name
		FROM roll_call_records r
		JOIN students s ON s.id = r.student_id
		WHERE r.roll_call_id = $1
		ORDER BY s.name`, rollCallID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.RollCallRecord
	for rows.Next() {
		var r models.RollCallRecord
		if err := rows.Scan(&r.ID, &r.RollCallID, &r.StudentID, &r.Status, &r.Detail, &r.UpdatedAt, &r.StudentName); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func GetRollCallRecord(ctx context.Context, q DBTX, rollCallID, studentID int64) (*models.RollCallRecord, error) {
	const op = "db.GetRollCallRecord"

	row := q.QueryRowContext(ctx, `
		SELECT id, roll_call_id, student_id, status, detail, updated_at
		FROM roll_call_records
		WHERE roll_call_id = $1 AND student_id = $2`, rollCallID, studentID)

	var r models.RollCallRecord
	err := row.Scan(&r.ID, &r.RollCallID, &r.StudentID, &r.Status, &r.Detail, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &r, nil
}

func SetRollCallRecordStatus(ctx context.Context, q DBTX, id int64, status models.RollCallRecordStatus, detail string) error {
	const op = "db.SetRollCallRecordStatus"

	_, err := q.ExecContext(ctx, `
		UPDATE roll_call_records SET status = $2, detail = $3, updated_at = now()
		WHERE id = $1`, id, status, detail)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// MarkPendingAbsent flips every remaining pending record of a completed roll
// call to absent and returns the affected rows.
func MarkPendingAbsent(ctx context.Context, q DBTX, rollCallID int64) ([]models.RollCallRecord, error) {
	const op = "db.MarkPendingAbsent"

	rows, err := q.QueryContext(ctx, `
		UPDATE roll_call_records SET status = $2, updated_at = now()
		WHERE roll_call_id = $1 AND status = $3
		RETURNING id, roll_call_id, student_id, status, detail, updated_at`,
		rollCallID, models.RecordAbsent, models.RecordPending)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.RollCallRecord
	for rows.Next() {
		var r models.RollCallRecord
		if err := rows.Scan(&r.ID, &r.RollCallID, &r.StudentID, &r.Status, &r.Detail, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func SetRollCallStatus(ctx context.Context, q DBTX, id int64, from, to models.RollCallStatus) error {
	const op = "db.SetRollCallStatus"

	res, err := q.ExecContext(ctx,
		`UPDATE roll_calls SET status = $3 WHERE id = $1 AND status = $2`, id, from, to)
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

// DeleteRollCall removes the event, its records (FK cascade) and the
// attendance rows it wrote.
func DeleteRollCall(ctx context.Context, q DBTX, id int64) error {
	const op = "db.DeleteRollCall"

	if _, err := DeleteAttendanceBySource(ctx, q, models.SourceRollCall, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	res, err := q.ExecContext(ctx, `DELETE FROM roll_calls WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func GetRollCallType(ctx context.Context, q DBTX, id int64) (*models.RollCallType, error) {
	const op = "db.GetRollCallType"

	row := q.QueryRowContext(ctx, `SELECT id, name, period_ids FROM roll_call_types WHERE id = $1`, id)
	var t models.RollCallType
	if err := row.Scan(&t.ID, &t.Name, &t.PeriodIDs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &t, nil
}

func ListRollCallTypes(ctx context.Context, q DBTX) ([]models.RollCallType, error) {
	const op = "db.ListRollCallTypes"

	rows, err := q.QueryContext(ctx, `SELECT id, name, period_ids FROM roll_call_types ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.RollCallType
	for rows.Next() {
		var t models.RollCallType
		if err := rows.Scan(&t.ID, &t.Name, &t.PeriodIDs); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListOpenRollCallsInRange finds still-open events for a class whose day
// falls inside [from, to]. Used to cascade leave retractions into derived
// roll-call state.
func ListOpenRollCallsInRange(ctx context.Context, q DBTX, classID int64, from, to time.Time) ([]models.RollCall, error) {
	const op = "db.ListOpenRollCallsInRange"

	rows, err := q.QueryContext(ctx, `
		SELECT rc.id, rc.class_id, rc.type_id, rc.called_at, rc.status, rc.created_by, rc.created_at, t.name
		FROM roll_calls rc
		JOIN roll_call_types t ON t.id = rc.type_id
		WHERE rc.class_id = $1 AND rc.status = $2 AND rc.called_at::date BETWEEN $3 AND $4
		ORDER BY rc.called_at`, classID, models.RollCallOpen, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.RollCall
	for rows.Next() {
		var rc models.RollCall
		if err := rows.Scan(&rc.ID, &rc.ClassID, &rc.TypeID, &rc.CalledAt, &rc.Status, &rc.CreatedBy, &rc.CreatedAt, &rc.TypeName); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

// ListRollCallsByClass lists recent events for a class, newest first.
func ListRollCallsByClass(ctx context.Context, q DBTX, classID int64, since time.Time) ([]models.RollCall, error) {
	const op = "db.ListRollCallsByClass"

	rows, err := q.QueryContext(ctx, `
		SELECT rc.id, rc.class_id, rc.type_id, rc.called_at, rc.status, rc.created_by, rc.created_at, t.name
		FROM roll_calls rc
		JOIN roll_call_types t ON t.id = rc.type_id
		WHERE rc.class_id = $1 AND rc.called_at >= $2
		ORDER BY rc.called_at DESC`, classID, since)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.RollCall
	for rows.Next() {
		var rc models.RollCall
		if err := rows.Scan(&rc.ID, &rc.ClassID, &rc.TypeID, &rc.CalledAt, &rc.Status, &rc.CreatedBy, &rc.CreatedAt, &rc.TypeName); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}
