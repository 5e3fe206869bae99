package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/elsakane2015/classtrack/internal/models"
)

func GetLeaveType(ctx context.Context, q DBTX, id int64) (*models.LeaveType, error) {
	const op = "db.GetLeaveType"

	row := q.QueryRowContext(ctx,
		`SELECT id, slug, name, input_config FROM leave_types WHERE id = $1`, id)
	var t models.LeaveType
	if err := row.Scan(&t.ID, &t.Slug, &t.Name, &t.InputConfig); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &t, nil
}

func ListLeaveTypes(ctx context.Context, q DBTX) ([]models.LeaveType, error) {
	const op = "db.ListLeaveTypes"

	rows, err := q.QueryContext(ctx,
		`SELECT id, slug, name, input_config FROM leave_types ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.LeaveType
	for rows.Next() {
		var t models.LeaveType
		if err := rows.Scan(&t.ID, &t.Slug, &t.Name, &t.InputConfig); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
