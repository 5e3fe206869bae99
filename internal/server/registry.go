package server

import (
	"net/http"

	"github.com/elsakane2015/classtrack/internal/db"
	"github.com/elsakane2015/classtrack/internal/models"
)

// Registry endpoints back the SPA's pickers. Read-only; class rosters are
// still access-checked.

func (s *Server) handleStudentList(w http.ResponseWriter, r *http.Request) {
	classID := queryInt64(r, "class_id")
	if !s.requireClass(w, r, classID) {
		return
	}
	students, err := db.ListStudentsByClass(r.Context(), s.db, classID)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"students": students})
}

func (s *Server) handleClassList(w http.ResponseWriter, r *http.Request) {
	id := caller(r)
	classes, err := db.ListClasses(r.Context(), s.db)
	if err != nil {
		s.fail(w, err)
		return
	}
	if id.Role == models.RoleTeacher {
		managed := classes[:0]
		for _, c := range classes {
			if id.ManagesClass(c.ID) {
				managed = append(managed, c)
			}
		}
		classes = managed
	}
	writeJSON(w, http.StatusOK, map[string]any{"classes": classes})
}

func (s *Server) handleDepartmentList(w http.ResponseWriter, r *http.Request) {
	departments, err := db.ListDepartments(r.Context(), s.db)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"departments": departments})
}

func (s *Server) handlePeriodList(w http.ResponseWriter, r *http.Request) {
	periods, err := db.ListPeriods(r.Context(), s.db)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"periods": periods})
}

func (s *Server) handleTimeSlotList(w http.ResponseWriter, r *http.Request) {
	slots, err := db.ListTimeSlots(r.Context(), s.db)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"time_slots": slots})
}

func (s *Server) handleLeaveTypeList(w http.ResponseWriter, r *http.Request) {
	types, err := db.ListLeaveTypes(r.Context(), s.db)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leave_types": types})
}

func (s *Server) handleRollCallTypeList(w http.ResponseWriter, r *http.Request) {
	types, err := db.ListRollCallTypes(r.Context(), s.db)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roll_call_types": types})
}

func (s *Server) handleCurrentSemester(w http.ResponseWriter, r *http.Request) {
	sem, err := db.CurrentSemester(r.Context(), s.db)
	if err != nil {
		s.fail(w, err)
		return
	}
	if sem.ID == 0 {
		writeErr(w, http.StatusNotFound, codeNotFound, "no current semester configured")
		return
	}
	writeJSON(w, http.StatusOK, sem)
}
