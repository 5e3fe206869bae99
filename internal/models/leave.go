package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type LeaveStatus string

const (
	LeavePending   LeaveStatus = "pending"
	LeaveApproved  LeaveStatus = "approved"
	LeaveRejected  LeaveStatus = "rejected"
	LeaveCancelled LeaveStatus = "cancelled"
)

func (s LeaveStatus) Valid() bool {
	switch s {
	case LeavePending, LeaveApproved, LeaveRejected, LeaveCancelled:
		return true
	default:
		return false
	}
}

// LeaveRequest is a student-facing application. Linked attendance rows carry
// source_type=leave_request, source_id=ID; approval mutates every linked row,
// rejection and cancellation delete them.
type LeaveRequest struct {
	ID          int64       `db:"id" json:"id"`
	StudentID   int64       `db:"student_id" json:"student_id"`
	LeaveTypeID int64       `db:"leave_type_id" json:"leave_type_id"`
	StartDate   time.Time   `db:"start_date" json:"start_date"`
	EndDate     time.Time   `db:"end_date" json:"end_date"`
	PeriodIDs   Int64List   `db:"period_ids" json:"period_ids,omitempty"`
	Option      string      `db:"option" json:"option,omitempty"`
	Reason      *string     `db:"reason" json:"reason,omitempty"`
	Status      LeaveStatus `db:"status" json:"status"`
	DecidedBy   *int64      `db:"decided_by" json:"decided_by,omitempty"`
	DecidedAt   *time.Time  `db:"decided_at" json:"decided_at,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`

	LeaveTypeName string `db:"-" json:"leave_type_name,omitempty"`
	StudentName   string `db:"-" json:"student_name,omitempty"`
}

func (l *LeaveRequest) WholeDay() bool { return len(l.PeriodIDs) == 0 }

// LeaveType is a registry entry from the leave-type taxonomy.
type LeaveType struct {
	ID          int64       `db:"id" json:"id"`
	Slug        string      `db:"slug" json:"slug"`
	Name        string      `db:"name" json:"name"`
	InputConfig InputConfig `db:"input_config" json:"input_config"`
}

// InputConfig describes selectable sub-options such as morning/afternoon.
type InputConfig struct {
	Options []InputOption `json:"options,omitempty"`
}

type InputOption struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

func DecodeInputConfig(raw []byte) InputConfig {
	var c InputConfig
	if len(raw) == 0 {
		return c
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return InputConfig{}
	}
	return c
}

func (c InputConfig) Value() (driver.Value, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *InputConfig) Scan(src any) error {
	if src == nil {
		*c = InputConfig{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		*c = DecodeInputConfig(v)
	case string:
		*c = DecodeInputConfig([]byte(v))
	default:
		return fmt.Errorf("input config: cannot scan %T", src)
	}
	return nil
}

func (c InputConfig) OptionLabel(key string) string {
	for _, o := range c.Options {
		if o.Key == key {
			return o.Label
		}
	}
	return ""
}
