package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/elsakane2015/classtrack/internal/models"
)

func GetClassByID(ctx context.Context, q DBTX, id int64) (*models.Class, error) {
	const op = "db.GetClassByID"

	row := q.QueryRowContext(ctx,
		`SELECT id, name, grade, department_id FROM classes WHERE id = $1`, id)
	var c models.Class
	if err := row.Scan(&c.ID, &c.Name, &c.Grade, &c.DepartmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &c, nil
}

func ListClasses(ctx context.Context, q DBTX) ([]models.Class, error) {
	const op = "db.ListClasses"

	rows, err := q.QueryContext(ctx,
		`SELECT id, name, grade, department_id FROM classes ORDER BY grade, name`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Class
	for rows.Next() {
		var c models.Class
		if err := rows.Scan(&c.ID, &c.Name, &c.Grade, &c.DepartmentID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func ListDepartments(ctx context.Context, q DBTX) ([]models.Department, error) {
	const op = "db.ListDepartments"

	rows, err := q.QueryContext(ctx, `SELECT id, name FROM departments ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Department
	for rows.Next() {
		var d models.Department
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
