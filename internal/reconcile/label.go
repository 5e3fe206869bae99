package reconcile

import (
	"strings"

	"github.com/elsakane2015/classtrack/internal/models"
)

const defaultLeaveName = "请假"

// RenderDetail builds the display label for a derived on-leave record,
// e.g. "请假(全天)" for a whole-day leave or "病假(第1节,第2节)" for a
// period-scoped one. An explicit label in the record's details wins.
func RenderDetail(rec *models.AttendanceRecord, leaveTypeName string, periodNames map[int64]string) string {
	if rec.Details.Label != "" {
		return rec.Details.Label
	}
	name := leaveTypeName
	if name == "" {
		name = defaultLeaveName
	}
	if rec.Details.Option != "" {
		return name + "(" + rec.Details.Option + ")"
	}
	set := rec.PeriodSet()
	if len(set) == 0 {
		return name + "(全天)"
	}
	parts := make([]string, 0, len(set))
	for _, id := range set {
		if n, ok := periodNames[id]; ok && n != "" {
			parts = append(parts, n)
		}
	}
	if len(parts) == 0 {
		return name
	}
	return name + "(" + strings.Join(parts, ",") + ")"
}
