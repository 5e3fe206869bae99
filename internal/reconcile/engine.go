package reconcile

import (
	"context"
	"fmt"

	"github.com/elsakane2015/classtrack/internal/db"
	"github.com/elsakane2015/classtrack/internal/metrics"
	"github.com/elsakane2015/classtrack/internal/models"
)

// Engine drives the roll-call record state machine:
// pending -> {present, absent, on_leave}. on_leave is derived from the
// attendance store, never set by hand, and protected from manual marking.
type Engine struct {
	slots       []models.TimeSlot
	periodNames map[int64]string
	leaveNames  map[int64]string
}

// NewEngine snapshots the registries the matching algorithm consumes.
func NewEngine(ctx context.Context, q db.DBTX) (*Engine, error) {
	const op = "reconcile.NewEngine"

	slots, err := db.ListTimeSlots(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	periods, err := db.ListPeriods(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	types, err := db.ListLeaveTypes(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	e := &Engine{
		slots:       slots,
		periodNames: make(map[int64]string, len(periods)),
		leaveNames:  make(map[int64]string, len(types)),
	}
	for _, p := range periods {
		e.periodNames[p.ID] = p.Name
	}
	for _, t := range types {
		e.leaveNames[t.ID] = t.Name
	}
	return e, nil
}

func (e *Engine) derive(ctx context.Context, q db.DBTX, rc *models.RollCall,
	rcType *models.RollCallType, studentID int64) (models.RollCallRecordStatus, string, error) {
	records, err := db.ListActiveByStudentDate(ctx, q, studentID, Day(rc.CalledAt))
	if err != nil {
		return "", "", err
	}
	match := MatchRecord(records, *rcType, rc.CalledAt, e.slots, rc.ID)
	if match == nil {
		return models.RecordPending, "", nil
	}
	var leaveName string
	if match.LeaveTypeID != nil {
		leaveName = e.leaveNames[*match.LeaveTypeID]
	}
	return models.RecordOnLeave, RenderDetail(match, leaveName, e.periodNames), nil
}

// InitRecords creates one record per enrolled student, pre-resolved to
// on_leave where the attendance store already excuses the student.
func (e *Engine) InitRecords(ctx context.Context, q db.DBTX, rc *models.RollCall, rcType *models.RollCallType) ([]models.RollCallRecord, error) {
	const op = "reconcile.InitRecords"

	students, err := db.ListStudentsByClass(ctx, q, rc.ClassID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]models.RollCallRecord, 0, len(students))
	for _, st := range students {
		status, detail, err := e.derive(ctx, q, rc, rcType, st.ID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		rec := models.RollCallRecord{
			RollCallID:  rc.ID,
			StudentID:   st.ID,
			Status:      status,
			Detail:      detail,
			StudentName: st.Name,
		}
		if err := db.InsertRollCallRecord(ctx, q, &rec); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if status == models.RecordOnLeave {
			metrics.RollCallDerived.Inc()
		}
		out = append(out, rec)
	}
	return out, nil
}

// Rederive re-checks derived state against the live attendance store. Leaves
// submitted after the roll call started upgrade pending records; on_leave
// records whose backing rows vanished (cancelled leaves) fall back to
// pending. Only changed rows are written, so repeated show calls with an
// unchanged store are write-free.
func (e *Engine) Rederive(ctx context.Context, q db.DBTX, rc *models.RollCall, rcType *models.RollCallType,
	records []models.RollCallRecord) ([]models.RollCallRecord, error) {
	const op = "reconcile.Rederive"

	if rc.Status != models.RollCallOpen {
		return records, nil
	}
	for i := range records {
		rec := &records[i]
		if rec.Status != models.RecordPending && rec.Status != models.RecordOnLeave {
			continue
		}
		status, detail, err := e.derive(ctx, q, rc, rcType, rec.StudentID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if status == rec.Status && detail == rec.Detail {
			continue
		}
		if err := db.SetRollCallRecordStatus(ctx, q, rec.ID, status, detail); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if status == models.RecordOnLeave && rec.Status != models.RecordOnLeave {
			metrics.RollCallDerived.Inc()
		}
		rec.Status = status
		rec.Detail = detail
	}
	return records, nil
}

// Complete converts remaining pending records to absent and writes the
// matching attendance rows: status=leave, source roll_call, pending
// approval — one row per configured period, else one whole-day row. Runs
// inside the caller's transaction so a mid-cascade failure leaves nothing.
func (e *Engine) Complete(ctx context.Context, q db.DBTX, rc *models.RollCall, rcType *models.RollCallType) error {
	const op = "reconcile.Complete"

	absent, err := db.MarkPendingAbsent(ctx, q, rc.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	approval := models.ApprovalPending
	for _, rec := range absent {
		if err := e.writeAbsenceRows(ctx, q, rc, rcType, rec.StudentID, approval); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := db.SetRollCallStatus(ctx, q, rc.ID, models.RollCallOpen, models.RollCallCompleted); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rc.Status = models.RollCallCompleted
	return nil
}

func (e *Engine) writeAbsenceRows(ctx context.Context, q db.DBTX, rc *models.RollCall,
	rcType *models.RollCallType, studentID int64, approval models.ApprovalStatus) error {
	day := Day(rc.CalledAt)
	sourceID := rc.ID

	if len(rcType.PeriodIDs) == 0 {
		rec := models.AttendanceRecord{
			StudentID:      studentID,
			Date:           day,
			Status:         models.AttendanceLeave,
			ApprovalStatus: &approval,
			SourceType:     models.SourceRollCall,
			SourceID:       &sourceID,
			Details:        models.Details{Label: rcType.Name},
		}
		return db.UpsertAttendance(ctx, q, &rec)
	}
	for _, pid := range rcType.PeriodIDs {
		pid := pid
		rec := models.AttendanceRecord{
			StudentID:      studentID,
			Date:           day,
			PeriodID:       &pid,
			Status:         models.AttendanceLeave,
			ApprovalStatus: &approval,
			SourceType:     models.SourceRollCall,
			SourceID:       &sourceID,
			Details:        models.Details{Label: rcType.Name},
		}
		if err := db.UpsertAttendance(ctx, q, &rec); err != nil {
			return err
		}
	}
	return nil
}
