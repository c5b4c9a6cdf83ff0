package model

import (
	"errors"
	"time"
)

// AttendanceStatus is the presence status recorded for a day.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusLate    AttendanceStatus = "late"
	StatusAbsent  AttendanceStatus = "absent"
)

// Valid reports whether s belongs to the closed status vocabulary.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusPresent, StatusLate, StatusAbsent:
		return true
	}
	return false
}

var (
	ErrInvalidStatus     = errors.New("status must be one of present, late, absent")
	ErrCheckOutWithoutIn = errors.New("check-out requires a check-in")
	ErrAbsentWithCheckIn = errors.New("absent record cannot carry a check-in")
	ErrCheckOutBeforeIn  = errors.New("check-out precedes check-in")
	ErrMissingEmployee   = errors.New("employee id is required")
	ErrMissingDay        = errors.New("day is required")
)

// AttendanceRecord is the single presence row for an employee and a day.
type AttendanceRecord struct {
	ID         string           `json:"id"`
	EmployeeID string           `json:"employeeId"`
	Day        time.Time        `json:"day"`
	CheckInAt  *time.Time       `json:"checkInAt,omitempty"`
	CheckOutAt *time.Time       `json:"checkOutAt,omitempty"`
	Status     AttendanceStatus `json:"status"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

// Validate checks the record-level invariants every write path must keep.
func (r AttendanceRecord) Validate() error {
	if r.EmployeeID == "" {
		return ErrMissingEmployee
	}
	if r.Day.IsZero() {
		return ErrMissingDay
	}
	if !r.Status.Valid() {
		return ErrInvalidStatus
	}
	if r.CheckOutAt != nil && r.CheckInAt == nil {
		return ErrCheckOutWithoutIn
	}
	if r.Status == StatusAbsent && r.CheckInAt != nil {
		return ErrAbsentWithCheckIn
	}
	if r.CheckInAt != nil && r.CheckOutAt != nil && r.CheckOutAt.Before(*r.CheckInAt) {
		return ErrCheckOutBeforeIn
	}
	return nil
}

// CheckedIn reports whether the employee has a recorded check-in.
func (r AttendanceRecord) CheckedIn() bool { return r.CheckInAt != nil }

// CheckedOut reports whether the day is closed by a check-out.
func (r AttendanceRecord) CheckedOut() bool { return r.CheckOutAt != nil }

// HoursWorked is zero until both timestamps are present.
func (r AttendanceRecord) HoursWorked() float64 {
	if r.CheckInAt == nil || r.CheckOutAt == nil {
		return 0
	}
	return r.CheckOutAt.Sub(*r.CheckInAt).Hours()
}

// RecordPatch carries an administrative correction. Nil fields are left
// untouched; the Clear flags remove a timestamp explicitly.
type RecordPatch struct {
	Day           *time.Time        `json:"day,omitempty"`
	CheckInAt     *time.Time        `json:"checkInAt,omitempty"`
	CheckOutAt    *time.Time        `json:"checkOutAt,omitempty"`
	Status        *AttendanceStatus `json:"status,omitempty"`
	ClearCheckIn  bool              `json:"clearCheckIn,omitempty"`
	ClearCheckOut bool              `json:"clearCheckOut,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p RecordPatch) Empty() bool {
	return p.Day == nil && p.CheckInAt == nil && p.CheckOutAt == nil && p.Status == nil &&
		!p.ClearCheckIn && !p.ClearCheckOut
}

// Apply returns a copy of r with the patch merged in.
func (p RecordPatch) Apply(r AttendanceRecord) AttendanceRecord {
	if p.Day != nil {
		r.Day = *p.Day
	}
	if p.ClearCheckIn {
		r.CheckInAt = nil
	} else if p.CheckInAt != nil {
		t := *p.CheckInAt
		r.CheckInAt = &t
	}
	if p.ClearCheckOut {
		r.CheckOutAt = nil
	} else if p.CheckOutAt != nil {
		t := *p.CheckOutAt
		r.CheckOutAt = &t
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	return r
}

// Role is the closed set of caller roles supplied by the auth layer.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleHR       Role = "hr"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleHR, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// Caller identifies who invokes an operation. Subject is an employee id or
// an email address.
type Caller struct {
	Subject string
	Role    Role
}

// Employee is the read-only view of a worker owned by the HR system.
type Employee struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	FullName       string `json:"fullName"`
	Role           Role   `json:"role"`
	DepartmentID   string `json:"departmentId,omitempty"`
	DepartmentName string `json:"departmentName,omitempty"`
}

// AttendanceView is a record joined with employee display data.
type AttendanceView struct {
	AttendanceRecord
	EmployeeName   string `json:"employeeName,omitempty"`
	EmployeeEmail  string `json:"employeeEmail,omitempty"`
	DepartmentName string `json:"departmentName,omitempty"`
}
