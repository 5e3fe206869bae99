package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/elsakane2015/classtrack/internal/models"
)

// CurrentSemester loads the singleton is_current row. Callers thread the
// result through date-window logic explicitly; nothing downstream queries
// for it again. A missing current semester is a documented fallback, so the
// zero value is returned instead of an error.
func CurrentSemester(ctx context.Context, q DBTX) (models.Semester, error) {
	const op = "db.CurrentSemester"

	row := q.QueryRowContext(ctx, `
		SELECT id, name, start_date, end_date, is_current
		FROM semesters WHERE is_current = TRUE LIMIT 1`)

	var s models.Semester
	err := row.Scan(&s.ID, &s.Name, &s.StartDate, &s.EndDate, &s.IsCurrent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Semester{}, nil
		}
		return models.Semester{}, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}
