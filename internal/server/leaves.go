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

type leaveSubmitRequest struct {
	StudentID   int64            `json:"student_id,omitempty"`
	LeaveTypeID int64            `json:"leave_type_id"`
	StartDate   string           `json:"start_date"`
	EndDate     string           `json:"end_date"`
	PeriodIDs   models.Int64List `json:"period_ids,omitempty"`
	Option      string           `json:"option,omitempty"`
	Reason      *string          `json:"reason,omitempty"`
}

func (s *Server) handleLeaveSubmit(w http.ResponseWriter, r *http.Request) {
	var req leaveSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, codeBadRequest, "failed to decode request")
		return
	}

	st := s.resolveStudent(w, r, req.StudentID)
	if st == nil {
		return
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		writeErr(w, http.StatusBadRequest, codeBadRequest, "bad start_date")
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		writeErr(w, http.StatusBadRequest, codeBadRequest, "bad end_date")
		return
	}
	if end.Before(start) {
		writeErr(w, http.StatusBadRequest, codeBadRequest, "end_date before start_date")
		return
	}

	leaveType, err := db.GetLeaveType(r.Context(), s.db, req.LeaveTypeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeErr(w, http.StatusBadRequest, codeBadRequest, "unknown leave type")
			return
		}
		s.fail(w, err)
		return
	}
	if req.Option != "" && leaveType.InputConfig.OptionLabel(req.Option) == "" {
		writeErr(w, http.StatusBadRequest, codeBadRequest, "unknown leave option")
		return
	}
	if len(req.PeriodIDs) > 0 {
		periods, err := db.ListPeriods(r.Context(), s.db)
		if err != nil {
			s.fail(w, err)
			return
		}
		known := make(map[int64]bool, len(periods))
		for _, p := range periods {
			known[p.ID] = true
		}
		for _, id := range req.PeriodIDs {
			if !known[id] {
				writeErr(w, http.StatusBadRequest, codeBadRequest, "unknown period id")
				return
			}
		}
	}

	// The semester bound is loaded here and threaded down; with none
	// configured the span passes through unclamped.
	sem, err := db.CurrentSemester(r.Context(), s.db)
	if err != nil {
		s.fail(w, err)
		return
	}
	start, end = sem.ClampRange(start, end)
	if end.Before(start) {
		writeErr(w, http.StatusBadRequest, codeBadRequest, "span outside current semester")
		return
	}

	leave := &models.LeaveRequest{
		StudentID:   st.ID,
		LeaveTypeID: leaveType.ID,
		StartDate:   start,
		EndDate:     end,
		PeriodIDs:   req.PeriodIDs,
		Option:      req.Option,
		Reason:      req.Reason,
	}
	conflicts, err := reconcile.SubmitLeave(r.Context(), s.db, leave)
	if err != nil {
		s.fail(w, err)
		return
	}
	if len(conflicts) > 0 {
		writeConflicts(w, conflicts)
		return
	}

	leave.StudentName = st.Name
	leave.LeaveTypeName = leaveType.Name
	s.notifier.LeaveSubmitted(leave)
	s.log.Info("leave submitted",
		zap.Int64("leave_id", leave.ID), zap.Int64("student_id", st.ID))
	writeJSON(w, http.StatusCreated, leave)
}

func (s *Server) handleLeaveList(w http.ResponseWriter, r *http.Request) {
	id := caller(r)
	f := db.LeaveFilter{
		StudentID: queryInt64(r, "student_id"),
		ClassID:   queryInt64(r, "class_id"),
		Status:    models.LeaveStatus(r.URL.Query().Get("status")),
	}
	if f.Status != "" && !f.Status.Valid() {
		writeErr(w, http.StatusBadRequest, codeBadRequest, "bad status filter")
		return
	}

	switch id.Role {
	case models.RoleStudent:
		st := s.resolveStudent(w, r, 0)
		if st == nil {
			return
		}
		f.StudentID = st.ID
		f.ClassID = 0
	case models.RoleTeacher:
		if f.ClassID != 0 && !id.ManagesClass(f.ClassID) {
			writeErr(w, http.StatusForbidden, codeForbidden, "class not managed by caller")
			return
		}
		if f.StudentID != 0 {
			if st := s.resolveStudent(w, r, f.StudentID); st == nil {
				return
			}
		}
		if f.ClassID == 0 && f.StudentID == 0 {
			if len(id.ClassIDs) != 1 {
				writeErr(w, http.StatusBadRequest, codeBadRequest, "class_id is required")
				return
			}
			f.ClassID = id.ClassIDs[0]
		}
	}

	leaves, err := db.ListLeaveRequests(r.Context(), s.db, f)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaves": leaves})
}

func (s *Server) handleLeaveGet(w http.ResponseWriter, r *http.Request) {
	leave := s.loadLeave(w, r)
	if leave == nil {
		return
	}
	writeJSON(w, http.StatusOK, leave)
}

func (s *Server) handleLeaveApprove(w http.ResponseWriter, r *http.Request) {
	s.decideLeave(w, r, models.LeaveApproved)
}

func (s *Server) handleLeaveReject(w http.ResponseWriter, r *http.Request) {
	s.decideLeave(w, r, models.LeaveRejected)
}

func (s *Server) decideLeave(w http.ResponseWriter, r *http.Request, verdict models.LeaveStatus) {
	id := caller(r)
	if !id.Staff() {
		writeErr(w, http.StatusForbidden, codeForbidden, "staff only")
		return
	}
	leave := s.loadLeave(w, r)
	if leave == nil {
		return
	}
	if leave.Status != models.LeavePending {
		writeErr(w, http.StatusConflict, codeConflict, "leave is not pending")
		return
	}

	var err error
	if verdict == models.LeaveApproved {
		err = reconcile.ApproveLeave(r.Context(), s.db, leave, id.UserID)
	} else {
		var engine *reconcile.Engine
		engine, err = reconcile.NewEngine(r.Context(), s.db)
		if err == nil {
			err = reconcile.RejectLeave(r.Context(), s.db, engine, leave, id.UserID)
		}
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeErr(w, http.StatusConflict, codeConflict, "leave is not pending")
			return
		}
		if errors.Is(err, reconcile.ErrNoLinkedRows) {
			writeErr(w, http.StatusConflict, codeConflict, "leave rows no longer exist")
			return
		}
		s.fail(w, err)
		return
	}

	s.notifier.LeaveDecided(leave)
	s.log.Info("leave decided",
		zap.Int64("leave_id", leave.ID), zap.String("verdict", string(verdict)))
	writeJSON(w, http.StatusOK, leave)
}

func (s *Server) handleLeaveCancel(w http.ResponseWriter, r *http.Request) {
	leave := s.loadLeave(w, r)
	if leave == nil {
		return
	}
	id := caller(r)
	if id.Role == models.RoleTeacher {
		writeErr(w, http.StatusForbidden, codeForbidden, "only the student or an admin may cancel")
		return
	}
	if leave.Status != models.LeavePending {
		writeErr(w, http.StatusConflict, codeConflict, "leave is not pending")
		return
	}

	engine, err := reconcile.NewEngine(r.Context(), s.db)
	if err != nil {
		s.fail(w, err)
		return
	}
	if err := reconcile.CancelLeave(r.Context(), s.db, engine, leave); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeErr(w, http.StatusConflict, codeConflict, "leave is not pending")
			return
		}
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, leave)
}

// loadLeave fetches the leave and applies subject-level access control.
func (s *Server) loadLeave(w http.ResponseWriter, r *http.Request) *models.LeaveRequest {
	id, err := idParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, codeBadRequest, "bad leave id")
		return nil
	}
	leave, err := db.GetLeaveRequest(r.Context(), s.db, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeErr(w, http.StatusNotFound, codeNotFound, "leave not found")
			return nil
		}
		s.fail(w, err)
		return nil
	}
	if st := s.resolveStudent(w, r, leave.StudentID); st == nil {
		return nil
	}
	return leave
}
