package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/elsakane2015/classtrack/internal/models"
)

func GetStudentByID(ctx context.Context, q DBTX, id int64) (*models.Student, error) {
	const op = "db.GetStudentByID"

	row := q.QueryRowContext(ctx,
		`SELECT id, student_no, name, class_id, user_id FROM students WHERE id = $1`, id)
	var s models.Student
	if err := row.Scan(&s.ID, &s.StudentNo, &s.Name, &s.ClassID, &s.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &s, nil
}

func GetStudentByUserID(ctx context.Context, q DBTX, userID int64) (*models.Student, error) {
	const op = "db.GetStudentByUserID"

	row := q.QueryRowContext(ctx,
		`SELECT id, student_no, name, class_id, user_id FROM students WHERE user_id = $1`, userID)
	var s models.Student
	if err := row.Scan(&s.ID, &s.StudentNo, &s.Name, &s.ClassID, &s.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &s, nil
}

func ListStudentsByClass(ctx context.Context, q DBTX, classID int64) ([]models.Student, error) {
	const op = "db.ListStudentsByClass"

	rows, err := q.QueryContext(ctx, `
		SELECT id, student_no, name, class_id, user_id
		FROM students WHERE class_id = $1 ORDER BY student_no`, classID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Student
	for rows.Next() {
		var s models.Student
		if err := rows.Scan(&s.ID, &s.StudentNo, &s.Name, &s.ClassID, &s.UserID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func ListStudents(ctx context.Context, q DBTX) ([]models.Student, error) {
	const op = "db.ListStudents"

	rows, err := q.QueryContext(ctx,
		`SELECT id, student_no, name, class_id, user_id FROM students ORDER BY class_id, student_no`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Student
	for rows.Next() {
		var s models.Student
		if err := rows.Scan(&s.ID, &s.StudentNo, &s.Name, &s.ClassID, &s.UserID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
