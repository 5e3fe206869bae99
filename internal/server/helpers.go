package server

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/elsakane2015/classtrack/internal/ctxutil"
	"github.com/elsakane2015/classtrack/internal/db"
	"github.com/elsakane2015/classtrack/internal/models"
	"github.com/elsakane2015/classtrack/internal/observability"
)

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

func queryInt64(r *http.Request, name string) int64 {
	n, _ := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	return n
}

// caller returns the trusted identity placed by the middleware.
func caller(r *http.Request) models.Identity {
	id, _ := ctxutil.Identity(r.Context())
	return id
}

// resolveStudent loads the record-subject student and checks the caller may
// act on it: students only on themselves, teachers only inside managed
// classes, admins everywhere.
func (s *Server) resolveStudent(w http.ResponseWriter, r *http.Request, studentID int64) *models.Student {
	id := caller(r)

	if id.Role == models.RoleStudent {
		own, err := db.GetStudentByUserID(r.Context(), s.db, id.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				writeErr(w, http.StatusForbidden, codeForbidden, "no student bound to caller")
				return nil
			}
			s.fail(w, err)
			return nil
		}
		if studentID != 0 && studentID != own.ID {
			writeErr(w, http.StatusForbidden, codeForbidden, "students may only act on themselves")
			return nil
		}
		return own
	}

	if studentID == 0 {
		writeErr(w, http.StatusBadRequest, codeBadRequest, "student_id is required")
		return nil
	}
	st, err := db.GetStudentByID(r.Context(), s.db, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeErr(w, http.StatusNotFound, codeNotFound, "student not found")
			return nil
		}
		s.fail(w, err)
		return nil
	}
	if !id.ManagesClass(st.ClassID) {
		writeErr(w, http.StatusForbidden, codeForbidden, "class not managed by caller")
		return nil
	}
	return st
}

// requireClass checks staff access to a class-scoped operation.
func (s *Server) requireClass(w http.ResponseWriter, r *http.Request, classID int64) bool {
	id := caller(r)
	if !id.Staff() {
		writeErr(w, http.StatusForbidden, codeForbidden, "staff only")
		return false
	}
	if classID == 0 {
		writeErr(w, http.StatusBadRequest, codeBadRequest, "class_id is required")
		return false
	}
	if !id.ManagesClass(classID) {
		writeErr(w, http.StatusForbidden, codeForbidden, "class not managed by caller")
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	s.log.Error("request failed", zap.Error(err))
	observability.CaptureErr(err)
	writeErr(w, http.StatusInternalServerError, codeFailed, "internal error")
}
