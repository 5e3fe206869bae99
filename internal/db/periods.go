package db

import (
	"context"
	"fmt"

	"github.com/elsakane2015/classtrack/internal/models"
)

func ListPeriods(ctx context.Context, q DBTX) ([]models.Period, error) {
	const op = "db.ListPeriods"

	rows, err := q.QueryContext(ctx,
		`SELECT id, name, sort, start_time, end_time FROM periods ORDER BY sort`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Period
	for rows.Next() {
		var p models.Period
		if err := rows.Scan(&p.ID, &p.Name, &p.Sort, &p.StartTime, &p.EndTime); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func ListTimeSlots(ctx context.Context, q DBTX) ([]models.TimeSlot, error) {
	const op = "db.ListTimeSlots"

	rows, err := q.QueryContext(ctx,
		`SELECT id, name, start_time, end_time, period_ids FROM time_slots ORDER BY start_time`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.TimeSlot
	for rows.Next() {
		var s models.TimeSlot
		if err := rows.Scan(&s.ID, &s.Name, &s.StartTime, &s.EndTime, &s.PeriodIDs); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
