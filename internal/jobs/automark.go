package jobs

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/elsakane2015/classtrack/internal/db"
	"github.com/elsakane2015/classtrack/internal/models"
)

// AutoMark marks every student without a record for the day as present
// (source auto). Students who already have any record — a leave row, a
// manual mark, a roll-call write — are skipped, which makes the job safe to
// re-run.
func AutoMark(database *sql.DB, loc *time.Location, log *zap.Logger) Job {
	return func(ctx context.Context) error {
		day := time.Now().In(loc)
		day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

		marked, err := db.StudentIDsWithRecordOn(ctx, database, day)
		if err != nil {
			return err
		}
		students, err := db.ListStudents(ctx, database)
		if err != nil {
			return err
		}

		var n int
		for _, st := range students {
			if marked[st.ID] {
				continue
			}
			rec := models.AttendanceRecord{
				StudentID:  st.ID,
				Date:       day,
				Status:     models.AttendancePresent,
				SourceType: models.SourceAuto,
			}
			if err := db.UpsertAttendance(ctx, database, &rec); err != nil {
				return err
			}
			n++
		}
		log.Info("auto-mark finished", zap.Int("marked", n), zap.Time("day", day))
		return nil
	}
}
