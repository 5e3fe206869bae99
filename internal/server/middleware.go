package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/elsakane2015/classtrack/internal/ctxutil"
	"github.com/elsakane2015/classtrack/internal/metrics"
	"github.com/elsakane2015/classtrack/internal/models"
)

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-User-ID, X-User-Role, X-Class-IDs, X-Department-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// identity trusts the already-authorized caller headers supplied by the
// upstream gateway; the service performs no authentication of its own.
func identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
		if err != nil || userID == 0 {
			writeErr(w, http.StatusForbidden, codeForbidden, "missing caller identity")
			return
		}
		role := models.Role(r.Header.Get("X-User-Role"))
		switch role {
		case models.RoleStudent, models.RoleTeacher, models.RoleAdmin:
		default:
			writeErr(w, http.StatusForbidden, codeForbidden, "unknown role")
			return
		}

		id := models.Identity{UserID: userID, Role: role}
		if raw := strings.TrimSpace(r.Header.Get("X-Class-IDs")); raw != "" {
			for _, p := range strings.Split(raw, ",") {
				n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
				if err != nil {
					writeErr(w, http.StatusForbidden, codeForbidden, "bad class id header")
					return
				}
				id.ClassIDs = append(id.ClassIDs, n)
			}
		}
		if raw := r.Header.Get("X-Department-ID"); raw != "" {
			if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
				id.DepartmentID = &n
			}
		}

		next.ServeHTTP(w, r.WithContext(ctxutil.WithIdentity(r.Context(), id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}
