package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AttendanceStatus is the per-record attendance fact.
type AttendanceStatus string

const (
	AttendancePresent    AttendanceStatus = "present"
	AttendanceAbsent     AttendanceStatus = "absent"
	AttendanceLate       AttendanceStatus = "late"
	AttendanceExcused    AttendanceStatus = "excused"
	AttendanceEarlyLeave AttendanceStatus = "early_leave"
	// AttendanceLeave is transitional: a pending self-applied or roll-call
	// leave. Approval flips it to excused; rejection deletes the row.
	AttendanceLeave AttendanceStatus = "leave"
)

func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate,
		AttendanceExcused, AttendanceEarlyLeave, AttendanceLeave:
		return true
	default:
		return false
	}
}

// statusTransitions documents the approval workflow. Statuses outside the
// workflow (present/absent/late/early_leave) may replace each other freely
// through the manual upsert path; the transitional pair is restricted.
var statusTransitions = map[AttendanceStatus]map[AttendanceStatus]bool{
	AttendanceLeave:      {AttendanceExcused: true},
	AttendanceExcused:    {}, // terminal
	AttendancePresent:    {AttendanceAbsent: true, AttendanceLate: true, AttendanceEarlyLeave: true, AttendancePresent: true},
	AttendanceAbsent:     {AttendancePresent: true, AttendanceLate: true, AttendanceEarlyLeave: true, AttendanceAbsent: true},
	AttendanceLate:       {AttendancePresent: true, AttendanceAbsent: true, AttendanceEarlyLeave: true, AttendanceLate: true},
	AttendanceEarlyLeave: {AttendancePresent: true, AttendanceAbsent: true, AttendanceLate: true, AttendanceEarlyLeave: true},
}

func CanTransition(from, to AttendanceStatus) bool {
	return statusTransitions[from][to]
}

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

type SourceType string

const (
	SourceManual       SourceType = "manual"
	SourceManualBulk   SourceType = "manual_bulk"
	SourceAuto         SourceType = "auto"
	SourceSelfApplied  SourceType = "self_applied"
	SourceLeaveRequest SourceType = "leave_request"
	SourceRollCall     SourceType = "roll_call"
)

func (s SourceType) Valid() bool {
	switch s {
	case SourceManual, SourceManualBulk, SourceAuto,
		SourceSelfApplied, SourceLeaveRequest, SourceRollCall:
		return true
	default:
		return false
	}
}

// Details is the advisory structured payload attached to a record. It
// disambiguates partial-day records for display and matching but is never
// authoritative state.
type Details struct {
	PeriodIDs Int64List `json:"period_ids,omitempty"`
	Option    string    `json:"option,omitempty"`
	Label     string    `json:"label,omitempty"`
	SlotID    int64     `json:"slot_id,omitempty"`
}

func (d Details) IsZero() bool {
	return len(d.PeriodIDs) == 0 && d.Option == "" && d.Label == "" && d.SlotID == 0
}

// DecodeDetails tolerates malformed payloads: bad JSON scans as empty
// details, never an error.
func DecodeDetails(raw []byte) Details {
	var d Details
	if len(raw) == 0 {
		return d
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		return Details{}
	}
	return d
}

func (d Details) Value() (driver.Value, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (d *Details) Scan(src any) error {
	if src == nil {
		*d = Details{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		*d = DecodeDetails(v)
	case string:
		*d = DecodeDetails([]byte(v))
	default:
		return fmt.Errorf("details: cannot scan %T", src)
	}
	return nil
}

// AttendanceRecord is one row per (student, date, period-or-whole-day) fact.
// PeriodID nil means whole-day.
type AttendanceRecord struct {
	ID             int64            `db:"id" json:"id"`
	StudentID      int64            `db:"student_id" json:"student_id"`
	Date           time.Time        `db:"date" json:"date"`
	PeriodID       *int64           `db:"period_id" json:"period_id,omitempty"`
	Status         AttendanceStatus `db:"status" json:"status"`
	ApprovalStatus *ApprovalStatus  `db:"approval_status" json:"approval_status,omitempty"`
	SourceType     SourceType       `db:"source_type" json:"source_type"`
	SourceID       *int64           `db:"source_id" json:"source_id,omitempty"`
	LeaveTypeID    *int64           `db:"leave_type_id" json:"leave_type_id,omitempty"`
	Details        Details          `db:"details" json:"details"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`

	// Eager-loaded registry lookups, populated on class/date scans.
	LeaveTypeName string `db:"-" json:"leave_type_name,omitempty"`
	PeriodName    string `db:"-" json:"period_name,omitempty"`
	StudentName   string `db:"-" json:"student_name,omitempty"`
}

// WholeDay reports whether the record claims the full day.
func (r *AttendanceRecord) WholeDay() bool { return r.PeriodID == nil }

// PeriodSet is the set of periods this record claims: the explicit period
// column when present, else the period list carried in details.
func (r *AttendanceRecord) PeriodSet() Int64List {
	if r.PeriodID != nil {
		return Int64List{*r.PeriodID}
	}
	return r.Details.PeriodIDs
}
