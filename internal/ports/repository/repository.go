package repository

import (
	"context"
	"errors"
	"time"

	"presence.service/internal/core/model"
)

var (
	// ErrDuplicate is returned by Insert and Update when a record already
	// exists for the same employee and day.
	ErrDuplicate = errors.New("attendance record already exists for employee and day")
	ErrNotFound  = errors.New("attendance record not found")
	// ErrConflict means a conditional update found the record in a state
	// that no longer allows the change.
	ErrConflict = errors.New("attendance record state changed")
	// ErrConstraint is returned when a write would break a record invariant
	// the store checks itself (check-out without check-in, absent with a
	// check-in).
	ErrConstraint = errors.New("attendance record violates a constraint")
)

// Repository contract for attendance records. Implementations enforce the
// (employee, day) uniqueness themselves; callers never check-then-insert.
type Repository interface {
	// FindByEmployeeAndDay returns nil, nil when no record exists.
	FindByEmployeeAndDay(ctx context.Context, employeeID string, day time.Time) (*model.AttendanceRecord, error)
	FindByID(ctx context.Context, id string) (*model.AttendanceRecord, error)
	Insert(ctx context.Context, record model.AttendanceRecord) (*model.AttendanceRecord, error)
	Update(ctx context.Context, id string, patch model.RecordPatch) (*model.AttendanceRecord, error)
	// MarkCheckIn sets check_in_at and marks the day present only while the
	// record has no check-in and is not absent.
	MarkCheckIn(ctx context.Context, id string, at time.Time) (*model.AttendanceRecord, error)
	// MarkCheckOut sets check_out_at only while the record is checked in and
	// not yet checked out.
	MarkCheckOut(ctx context.Context, id string, at time.Time) (*model.AttendanceRecord, error)
	Delete(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]model.AttendanceRecord, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]model.AttendanceRecord, error)
}

// dayKey is the canonical textual form of a day; both stores key on it.
func dayKey(day time.Time) string {
	return day.Format(time.DateOnly)
}
