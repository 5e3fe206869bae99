package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classtrack", Name: "http_requests_total", Help: "Handled HTTP requests",
	}, []string{"route", "code"})
	HandlerErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "classtrack", Name: "handler_errors_total", Help: "Handler errors",
	})
	LeaveConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "classtrack", Name: "leave_conflicts_total", Help: "Leave submissions rejected on overlap",
	})
	RollCallDerived = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "classtrack", Name: "rollcall_on_leave_derived_total", Help: "Roll-call records resolved to on_leave",
	})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "classtrack", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(HTTPRequests, HandlerErrors, LeaveConflicts, RollCallDerived, DBPing)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }
