package server

import (
	"encoding/json"
	"net/http"

	"github.com/elsakane2015/classtrack/internal/metrics"
	"github.com/elsakane2015/classtrack/internal/reconcile"
)

// Error codes surfaced to the SPA.
const (
	codeFailed     = "REQUEST_FAILED"
	codeBadRequest = "FAILED_TO_DECODE"
	codeNotFound   = "NOT_FOUND"
	codeForbidden  = "FORBIDDEN"
	codeConflict   = "CONFLICT"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// conflictResponse carries the full conflict set so the caller can decide to
// abort or adjust; detection failure is a structured result, not an error.
type conflictResponse struct {
	Error     errorBody            `json:"error"`
	Conflicts []reconcile.Conflict `json:"conflicts"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, code, msg string) {
	if status >= 500 {
		metrics.HandlerErrors.Inc()
	}
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: msg}})
}

func writeConflicts(w http.ResponseWriter, conflicts []reconcile.Conflict) {
	metrics.LeaveConflicts.Inc()
	writeJSON(w, http.StatusConflict, conflictResponse{
		Error:     errorBody{Code: codeConflict, Message: "request overlaps existing records"},
		Conflicts: conflicts,
	})
}
