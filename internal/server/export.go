package server

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/elsakane2015/classtrack/internal/db"
	"github.com/elsakane2015/classtrack/internal/export"
	"github.com/elsakane2015/classtrack/internal/models"
)

// handleExportAttendance streams an xlsx of one class's records over a date
// range, one day per scan so eager names come along.
func (s *Server) handleExportAttendance(w http.ResponseWriter, r *http.Request) {
	classID := queryInt64(r, "class_id")
	if !s.requireClass(w, r, classID) {
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
	if to.Before(from) || to.Sub(from).Hours() > 24*120 {
		writeErr(w, http.StatusBadRequest, codeBadRequest, "bad date range")
		return
	}

	class, err := db.GetClassByID(r.Context(), s.db, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeErr(w, http.StatusNotFound, codeNotFound, "class not found")
			return
		}
		s.fail(w, err)
		return
	}

	var records []models.AttendanceRecord
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		batch, err := db.ListAttendanceByClassDate(r.Context(), s.db, classID, day)
		if err != nil {
			s.fail(w, err)
			return
		}
		records = append(records, batch...)
	}

	wb, err := export.NewWorkbook([]export.SheetSpec{
		export.AttendanceSheet(class.Name, from, to, records),
	})
	if err != nil {
		s.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.BuildFilename(class.Name, from, to)+`"`)
	if _, err := wb.WriteTo(w); err != nil {
		s.log.Warn("export write aborted")
	}
}
