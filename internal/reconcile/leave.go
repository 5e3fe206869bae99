package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/elsakane2015/classtrack/internal/db"
	"github.com/elsakane2015/classtrack/internal/models"
)

// ErrNoLinkedRows reports an approval whose request no longer owns any
// attendance rows (a concurrent submission reassigned them).
var ErrNoLinkedRows = errors.New("leave request has no linked attendance rows")

// SubmitLeave runs the conflict check and, when the span is free, creates
// the request plus its attendance rows in one transaction: one whole-day row
// per day, or one row per requested period per day. A non-empty conflict set
// means the submission was rejected and nothing was written. Detection runs
// inside the transaction under a per-student advisory lock so two concurrent
// overlapping submissions cannot both pass the check.
func SubmitLeave(ctx context.Context, database *sql.DB, req *models.LeaveRequest) ([]Conflict, error) {
	const op = "reconcile.SubmitLeave"

	var conflicts []Conflict
	err := db.WithTx(ctx, database, func(tx *sql.Tx) error {
		if err := db.LockStudentAttendance(ctx, tx, req.StudentID); err != nil {
			return err
		}
		found, err := DetectConflicts(ctx, tx, req.StudentID, req.StartDate, req.EndDate, req.PeriodIDs)
		if err != nil {
			return err
		}
		if len(found) > 0 {
			conflicts = found
			return nil
		}
		if err := db.CreateLeaveRequest(ctx, tx, req); err != nil {
			return err
		}
		approval := models.ApprovalPending
		for _, day := range DaysBetween(req.StartDate, req.EndDate) {
			if req.WholeDay() {
				rec := models.AttendanceRecord{
					StudentID:      req.StudentID,
					Date:           day,
					Status:         models.AttendanceLeave,
					ApprovalStatus: &approval,
					SourceType:     models.SourceLeaveRequest,
					SourceID:       &req.ID,
					LeaveTypeID:    &req.LeaveTypeID,
					Details:        models.Details{Option: req.Option},
				}
				if err := db.UpsertAttendance(ctx, tx, &rec); err != nil {
					return err
				}
				continue
			}
			for _, pid := range req.PeriodIDs {
				pid := pid
				rec := models.AttendanceRecord{
					StudentID:      req.StudentID,
					Date:           day,
					PeriodID:       &pid,
					Status:         models.AttendanceLeave,
					ApprovalStatus: &approval,
					SourceType:     models.SourceLeaveRequest,
					SourceID:       &req.ID,
					LeaveTypeID:    &req.LeaveTypeID,
					Details:        models.Details{Option: req.Option},
				}
				if err := db.UpsertAttendance(ctx, tx, &rec); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return conflicts, nil
}

// ApproveLeave flips the request and every linked attendance row to the
// approved state atomically: all N rows end up excused/approved or none do.
func ApproveLeave(ctx context.Context, database *sql.DB, leave *models.LeaveRequest, approverID int64) error {
	const op = "reconcile.ApproveLeave"

	err := db.WithTx(ctx, database, func(tx *sql.Tx) error {
		if err := db.SetLeaveStatus(ctx, tx, leave.ID, models.LeavePending, models.LeaveApproved, &approverID); err != nil {
			return err
		}
		n, err := db.SetApprovalBySource(ctx, tx, models.SourceLeaveRequest, leave.ID,
			models.AttendanceExcused, models.ApprovalApproved)
		if err != nil {
			return err
		}
		// Zero rows means the request's rows were reassigned; rolling back
		// keeps the request pending instead of approving nothing.
		if n == 0 {
			return ErrNoLinkedRows
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	leave.Status = models.LeaveApproved
	return nil
}

// RejectLeave deletes every linked attendance row — deletion, not status
// flagging, is the cancellation mechanism — then re-derives open roll calls
// that may have excused the student off the now-gone rows.
func RejectLeave(ctx context.Context, database *sql.DB, e *Engine, leave *models.LeaveRequest, deciderID int64) error {
	return retractLeave(ctx, database, e, leave, models.LeaveRejected, &deciderID)
}

// CancelLeave is the student-side retraction of a still-pending request.
func CancelLeave(ctx context.Context, database *sql.DB, e *Engine, leave *models.LeaveRequest) error {
	return retractLeave(ctx, database, e, leave, models.LeaveCancelled, nil)
}

func retractLeave(ctx context.Context, database *sql.DB, e *Engine, leave *models.LeaveRequest,
	to models.LeaveStatus, deciderID *int64) error {
	const op = "reconcile.retractLeave"

	err := db.WithTx(ctx, database, func(tx *sql.Tx) error {
		if err := db.SetLeaveStatus(ctx, tx, leave.ID, models.LeavePending, to, deciderID); err != nil {
			return err
		}
		_, err := db.DeleteAttendanceBySource(ctx, tx, models.SourceLeaveRequest, leave.ID)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	leave.Status = to

	if err := e.rederiveStudentSpan(ctx, database, leave); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// rederiveStudentSpan refreshes the student's records on open roll calls
// inside the leave span after its rows were deleted.
func (e *Engine) rederiveStudentSpan(ctx context.Context, q db.DBTX, leave *models.LeaveRequest) error {
	student, err := db.GetStudentByID(ctx, q, leave.StudentID)
	if err != nil {
		return err
	}
	calls, err := db.ListOpenRollCallsInRange(ctx, q, student.ClassID, Day(leave.StartDate), Day(leave.EndDate))
	if err != nil {
		return err
	}
	for i := range calls {
		rc := &calls[i]
		rcType, err := db.GetRollCallType(ctx, q, rc.TypeID)
		if err != nil {
			return err
		}
		rec, err := db.GetRollCallRecord(ctx, q, rc.ID, leave.StudentID)
		if err != nil {
			if err == sql.ErrNoRows {
				continue
			}
			return err
		}
		if _, err := e.Rederive(ctx, q, rc, rcType, []models.RollCallRecord{*rec}); err != nil {
			return err
		}
	}
	return nil
}
