package models

import "time"

type RollCallStatus string

const (
	RollCallOpen      RollCallStatus = "open"
	RollCallCompleted RollCallStatus = "completed"
)

type RollCallRecordStatus string

const (
	RecordPending RollCallRecordStatus = "pending"
	RecordPresent RollCallRecordStatus = "present"
	RecordAbsent  RollCallRecordStatus = "absent"
	// RecordOnLeave is derived by cross-referencing attendance records,
	// never set by manual marking, and protected once set.
	RecordOnLeave RollCallRecordStatus = "on_leave"
)

func (s RollCallRecordStatus) Valid() bool {
	switch s {
	case RecordPending, RecordPresent, RecordAbsent, RecordOnLeave:
		return true
	default:
		return false
	}
}

// RollCall is a headcount event for a class at a point in time.
type RollCall struct {
	ID        int64          `db:"id" json:"id"`
	ClassID   int64          `db:"class_id" json:"class_id"`
	TypeID    int64          `db:"type_id" json:"type_id"`
	CalledAt  time.Time      `db:"called_at" json:"called_at"`
	Status    RollCallStatus `db:"status" json:"status"`
	CreatedBy int64          `db:"created_by" json:"created_by"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`

	TypeName string `db:"-" json:"type_name,omitempty"`
}

type RollCallRecord struct {
	ID         int64                `db:"id" json:"id"`
	RollCallID int64                `db:"roll_call_id" json:"roll_call_id"`
	StudentID  int64                `db:"student_id" json:"student_id"`
	Status     RollCallRecordStatus `db:"status" json:"status"`
	Detail     string               `db:"detail" json:"detail,omitempty"`
	UpdatedAt  time.Time            `db:"updated_at" json:"updated_at"`

	StudentName string `db:"-" json:"student_name,omitempty"`
}

// RollCallType configures which periods a headcount covers. An empty period
// list means the type matches by structured details instead.
type RollCallType struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	PeriodIDs Int64List `db:"period_ids" json:"period_ids,omitempty"`
}
