package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/elsakane2015/classtrack/internal/db"
	"github.com/elsakane2015/classtrack/internal/models"
	"github.com/elsakane2015/classtrack/internal/reconcile"
)

type rollCallCreateRequest struct {
	ClassID  int64  `json:"class_id"`
	TypeID   int64  `json:"type_id"`
	CalledAt string `json:"called_at,omitempty"`
}

type rollCallResponse struct {
	RollCall *models.RollCall        `json:"roll_call"`
	Records  []models.RollCallRecord `json:"records"`
}

func (s *Server) handleRollCallCreate(w http.ResponseWriter, r *http.Request) {
	var req rollCallCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, codeBadRequest, "failed to decode request")
		return
	}
	if !s.requireClass(w, r, req.ClassID) {
		return
	}

	calledAt := time.Now().In(s.loc)
	if req.CalledAt != "" {
		t, err := time.ParseInLocation(time.RFC3339, req.CalledAt, s.loc)
		if err != nil {
			writeErr(w, http.StatusBadRequest, codeBadRequest, "bad called_at")
			return
		}
		calledAt = t
	}

	rcType, err := db.GetRollCallType(r.Context(), s.db, req.TypeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeErr(w, http.StatusBadRequest, codeBadRequest, "unknown roll call type")
			return
		}
		s.fail(w, err)
		return
	}

	engine, err := reconcile.NewEngine(r.Context(), s.db)
	if err != nil {
		s.fail(w, err)
		return
	}

	rc := &models.RollCall{
		ClassID:   req.ClassID,
		TypeID:    rcType.ID,
		CalledAt:  calledAt,
		CreatedBy: caller(r).UserID,
	}
	var records []models.RollCallRecord
	err = db.WithTx(r.Context(), s.db, func(tx *sql.Tx) error {
		if err := db.CreateRollCall(r.Context(), tx, rc); err != nil {
			return err
		}
		records, err = engine.InitRecords(r.Context(), tx, rc, rcType)
		return err
	})
	if err != nil {
		s.fail(w, err)
		return
	}

	rc.TypeName = rcType.Name
	s.log.Info("roll call opened",
		zap.Int64("roll_call_id", rc.ID), zap.Int64("class_id", rc.ClassID),
		zap.Int("students", len(records)))
	writeJSON(w, http.StatusCreated, rollCallResponse{RollCall: rc, Records: records})
}

func (s *Server) handleRollCallList(w http.ResponseWriter, r *http.Request) {
	classID := queryInt64(r, "class_id")
	if !s.requireClass(w, r, classID) {
		return
	}
	since := time.Now().In(s.loc).AddDate(0, 0, -30)
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			writeErr(w, http.StatusBadRequest, codeBadRequest, "bad since date")
			return
		}
		since = t
	}
	calls, err := db.ListRollCallsByClass(r.Context(), s.db, classID, since)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roll_calls": calls})
}

// handleRollCallShow loads the event and, while it is still open, refreshes
// the derived on_leave records against the live attendance store.
func (s *Server) handleRollCallShow(w http.ResponseWriter, r *http.Request) {
	rc, rcType := s.loadRollCall(w, r)
	if rc == nil {
		return
	}
	records, err := db.ListRollCallRecords(r.Context(), s.db, rc.ID)
	if err != nil {
		s.fail(w, err)
		return
	}
	if rc.Status == models.RollCallOpen {
		engine, err := reconcile.NewEngine(r.Context(), s.db)
		if err != nil {
			s.fail(w, err)
			return
		}
		records, err = engine.Rederive(r.Context(), s.db, rc, rcType, records)
		if err != nil {
			s.fail(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, rollCallResponse{RollCall: rc, Records: records})
}

type rollCallMarkRequest struct {
	StudentID int64                       `json:"student_id"`
	Status    models.RollCallRecordStatus `json:"status"`
}

func (s *Server) handleRollCallMark(w http.ResponseWriter, r *http.Request) {
	rc, _ := s.loadRollCall(w, r)
	if rc == nil {
		return
	}
	if rc.Status != models.RollCallOpen {
		writeErr(w, http.StatusConflict, codeConflict, "roll call is completed")
		return
	}

	var req rollCallMarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, codeBadRequest, "failed to decode request")
		return
	}
	// Only the pending/present toggle is manual; absent is assigned at
	// completion and on_leave is derived.
	switch req.Status {
	case models.RecordPresent, models.RecordPending:
	default:
		writeErr(w, http.StatusBadRequest, codeBadRequest, "status not markable by hand")
		return
	}

	rec, err := db.GetRollCallRecord(r.Context(), s.db, rc.ID, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeErr(w, http.StatusNotFound, codeNotFound, "student not on this roll call")
			return
		}
		s.fail(w, err)
		return
	}
	// Derived leave state wins over manual marking; return the row as is.
	if rec.Status == models.RecordOnLeave {
		writeJSON(w, http.StatusOK, rec)
		return
	}
	if rec.Status != req.Status {
		if err := db.SetRollCallRecordStatus(r.Context(), s.db, rec.ID, req.Status, ""); err != nil {
			s.fail(w, err)
			return
		}
		rec.Status = req.Status
		rec.Detail = ""
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleRollCallComplete(w http.ResponseWriter, r *http.Request) {
	rc, rcType := s.loadRollCall(w, r)
	if rc == nil {
		return
	}
	if rc.Status != models.RollCallOpen {
		writeErr(w, http.StatusConflict, codeConflict, "roll call is completed")
		return
	}

	engine, err := reconcile.NewEngine(r.Context(), s.db)
	if err != nil {
		s.fail(w, err)
		return
	}
	err = db.WithTx(r.Context(), s.db, func(tx *sql.Tx) error {
		return engine.Complete(r.Context(), tx, rc, rcType)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeErr(w, http.StatusConflict, codeConflict, "roll call already completed")
			return
		}
		s.fail(w, err)
		return
	}

	records, err := db.ListRollCallRecords(r.Context(), s.db, rc.ID)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.log.Info("roll call completed", zap.Int64("roll_call_id", rc.ID))
	writeJSON(w, http.StatusOK, rollCallResponse{RollCall: rc, Records: records})
}

func (s *Server) handleRollCallDelete(w http.ResponseWriter, r *http.Request) {
	rc, _ := s.loadRollCall(w, r)
	if rc == nil {
		return
	}
	err := db.WithTx(r.Context(), s.db, func(tx *sql.Tx) error {
		return db.DeleteRollCall(r.Context(), tx, rc.ID)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeErr(w, http.StatusNotFound, codeNotFound, "roll call not found")
			return
		}
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// loadRollCall fetches the event plus its type and checks class access.
func (s *Server) loadRollCall(w http.ResponseWriter, r *http.Request) (*models.RollCall, *models.RollCallType) {
	id, err := idParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, codeBadRequest, "bad roll call id")
		return nil, nil
	}
	rc, err := db.GetRollCall(r.Context(), s.db, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeErr(w, http.StatusNotFound, codeNotFound, "roll call not found")
			return nil, nil
		}
		s.fail(w, err)
		return nil, nil
	}
	if !s.requireClass(w, r, rc.ClassID) {
		return nil, nil
	}
	rcType, err := db.GetRollCallType(r.Context(), s.db, rc.TypeID)
	if err != nil {
		s.fail(w, err)
		return nil, nil
	}
	return rc, rcType
}
