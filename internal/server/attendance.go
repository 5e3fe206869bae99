package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/elsakane2015/classtrack/internal/db"
	"github.com/elsakane2015/classtrack/internal/models"
	"github.com/elsakane2015/classtrack/internal/reconcile"
)

type attendanceMarkRequest struct {
	StudentID int64                   `json:"student_id"`
	Date      string                  `json:"date"`
	PeriodID  *int64                  `json:"period_id,omitempty"`
	Status    models.AttendanceStatus `json:"status"`
	Details   models.Details          `json:"details"`
}

type attendanceBulkRequest struct {
	ClassID    int64                   `json:"class_id"`
	Date       string                  `json:"date"`
	PeriodID   *int64                  `json:"period_id,omitempty"`
	Status     models.AttendanceStatus `json:"status"`
	StudentIDs []int64                 `json:"student_ids"`
}

func (s *Server) handleAttendanceMark(w http.ResponseWriter, r *http.Request) {
	id := caller(r)
	if !id.Staff() {
		writeErr(w, http.StatusForbidden, codeForbidden, "staff only")
		return
	}

	var req attendanceMarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, codeBadRequest, "failed to decode request")
		return
	}
	if !req.Status.Valid() || req.Status == models.AttendanceLeave {
		writeErr(w, http.StatusBadRequest, codeBadRequest, "bad status")
		return
	}
	day, err := parseDate(req.Date)
	if err != nil {
		writeErr(w, http.StatusBadRequest, codeBadRequest, "bad date")
		return
	}
	st := s.resolveStudent(w, r, req.StudentID)
	if st == nil {
		return
	}

	rec := models.AttendanceRecord{
		StudentID:  st.ID,
		Date:       day,
		PeriodID:   req.PeriodID,
		Status:     req.Status,
		SourceType: models.SourceManual,
		Details:    req.Details,
	}
	if !s.markOne(w, r, s.db, &rec) {
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleAttendanceBulk(w http.ResponseWriter, r *http.Request) {
	var req attendanceBulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, codeBadRequest, "failed to decode request")
		return
	}
	if !s.requireClass(w, r, req.ClassID) {
		return
	}
	if !req.Status.Valid() || req.Status == models.AttendanceLeave {
		writeErr(w, http.StatusBadRequest, codeBadRequest, "bad status")
		return
	}
	day, err := parseDate(req.Date)
	if err != nil {
		writeErr(w, http.StatusBadRequest, codeBadRequest, "bad date")
		return
	}
	if len(req.StudentIDs) == 0 {
		writeErr(w, http.StatusBadRequest, codeBadRequest, "student_ids is empty")
		return
	}

	enrolled, err := db.ListStudentsByClass(r.Context(), s.db, req.ClassID)
	if err != nil {
		s.fail(w, err)
		return
	}
	inClass := make(map[int64]bool, len(enrolled))
	for _, st := range enrolled {
		inClass[st.ID] = true
	}
	for _, sid := range req.StudentIDs {
		if !inClass[sid] {
			writeErr(w, http.StatusBadRequest, codeBadRequest, "student not in class")
			return
		}
	}

	var out []models.AttendanceRecord
	handled := false
	err = db.WithTx(r.Context(), s.db, func(tx *sql.Tx) error {
		for _, sid := range req.StudentIDs {
			rec := models.AttendanceRecord{
				StudentID:  sid,
				Date:       day,
				PeriodID:   req.PeriodID,
				Status:     req.Status,
				SourceType: models.SourceManualBulk,
				Details:    models.Details{},
			}
			if !s.markOne(w, r, tx, &rec) {
				handled = true
				return errMarkRejected
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		if !handled {
			s.fail(w, err)
		}
		return
	}
	s.log.Info("bulk attendance written",
		zap.Int64("class_id", req.ClassID), zap.Int("count", len(out)))
	writeJSON(w, http.StatusOK, map[string]any{"records": out})
}

var errMarkRejected = errors.New("mark rejected")

// markOne upserts after checking the existing row at the key: transitional
// and terminal approval-workflow rows block the manual write. Returns false
// once the response has been written.
func (s *Server) markOne(w http.ResponseWriter, r *http.Request, q db.DBTX, rec *models.AttendanceRecord) bool {
	existing, err := db.GetAttendanceByKey(r.Context(), q, rec.StudentID, reconcile.Day(rec.Date), rec.PeriodID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.fail(w, err)
		return false
	}
	if existing != nil && !models.CanTransition(existing.Status, rec.Status) {
		writeErr(w, http.StatusConflict, codeConflict, "existing record blocks this status")
		return false
	}
	if err := db.UpsertAttendance(r.Context(), q, rec); err != nil {
		s.fail(w, err)
		return false
	}
	return true
}

func (s *Server) handleAttendanceList(w http.ResponseWriter, r *http.Request) {
	if classID := queryInt64(r, "class_id"); classID != 0 {
		if !s.requireClass(w, r, classID) {
			return
		}
		day, err := parseDate(r.URL.Query().Get("date"))
		if err != nil {
			writeErr(w, http.StatusBadRequest, codeBadRequest, "bad date")
			return
		}
		records, err := db.ListAttendanceByClassDate(r.Context(), s.db, classID, day)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"records": records})
		return
	}

	st := s.resolveStudent(w, r, queryInt64(r, "student_id"))
	if st == nil {
		return
	}
	from, err := parseDate(r.URL.Query().Get("from"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, codeBadRequest, "bad from date")
		return
	}
	to, err := parseDate(r.URL.Query().Get("to"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, codeBadRequest, "bad to date")
		return
	}
	if to.Before(from) {
		writeErr(w, http.StatusBadRequest, codeBadRequest, "to before from")
		return
	}
	records, err := db.ListAttendanceByStudentRange(r.Context(), s.db, st.ID, from, to)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (s *Server) handleAttendanceDelete(w http.ResponseWriter, r *http.Request) {
	id := caller(r)
	if !id.Staff() {
		writeErr(w, http.StatusForbidden, codeForbidden, "staff only")
		return
	}
	recID, err := idParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, codeBadRequest, "bad record id")
		return
	}
	rec, err := db.GetAttendanceByID(r.Context(), s.db, recID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeErr(w, http.StatusNotFound, codeNotFound, "record not found")
			return
		}
		s.fail(w, err)
		return
	}
	if st := s.resolveStudent(w, r, rec.StudentID); st == nil {
		return
	}
	// Leave-sourced rows are owned by their request; retract the leave
	// instead of chipping rows off it.
	if rec.SourceType == models.SourceLeaveRequest {
		writeErr(w, http.StatusConflict, codeConflict, "row belongs to a leave request")
		return
	}
	if err := db.DeleteAttendanceByID(r.Context(), s.db, recID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeErr(w, http.StatusNotFound, codeNotFound, "record not found")
			return
		}
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
