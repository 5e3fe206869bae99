package server

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/elsakane2015/classtrack/internal/metrics"
	"github.com/elsakane2015/classtrack/internal/notify"
)

type Server struct {
	db       *sql.DB
	log      *zap.Logger
	loc      *time.Location
	notifier notify.Notifier
}

func New(database *sql.DB, log *zap.Logger, loc *time.Location, notifier notify.Notifier) *Server {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Server{db: database, log: log, loc: loc, notifier: notifier}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors)
	r.Use(requestMetrics)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(identity)

		r.Route("/leaves", func(r chi.Router) {
			r.Post("/", s.handleLeaveSubmit)
			r.Get("/", s.handleLeaveList)
			r.Get("/{id}", s.handleLeaveGet)
			r.Post("/{id}/approve", s.handleLeaveApprove)
			r.Post("/{id}/reject", s.handleLeaveReject)
			r.Post("/{id}/cancel", s.handleLeaveCancel)
		})

		r.Route("/attendance", func(r chi.Router) {
			r.Post("/", s.handleAttendanceMark)
			r.Post("/bulk", s.handleAttendanceBulk)
			r.Get("/", s.handleAttendanceList)
			r.Delete("/{id}", s.handleAttendanceDelete)
		})

		r.Route("/roll-calls", func(r chi.Router) {
			r.Post("/", s.handleRollCallCreate)
			r.Get("/", s.handleRollCallList)
			r.Get("/{id}", s.handleRollCallShow)
			r.Post("/{id}/mark", s.handleRollCallMark)
			r.Post("/{id}/complete", s.handleRollCallComplete)
			r.Delete("/{id}", s.handleRollCallDelete)
		})

		r.Get("/export/attendance", s.handleExportAttendance)

		r.Get("/students", s.handleStudentList)
		r.Get("/classes", s.handleClassList)
		r.Get("/departments", s.handleDepartmentList)
		r.Get("/periods", s.handlePeriodList)
		r.Get("/time-slots", s.handleTimeSlotList)
		r.Get("/leave-types", s.handleLeaveTypeList)
		r.Get("/roll-call-types", s.handleRollCallTypeList)
		r.Get("/semesters/current", s.handleCurrentSemester)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 800*time.Millisecond)
	defer cancel()
	t0 := time.Now()
	if err := s.db.PingContext(ctx); err != nil {
		http.Error(w, "db not ok: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	metrics.ObserveDBPing(time.Since(t0))
	_, _ = w.Write([]byte("ok"))
}
