package messaging

import (
	"time"

	"github.com/google/uuid"

	"presence.service/internal/core/model"
)

// EventType names the attendance transition an event reports.
type EventType string

const (
	EventCheckedIn    EventType = "CHECKED_IN"
	EventCheckedOut   EventType = "CHECKED_OUT"
	EventMarkedAbsent EventType = "MARKED_ABSENT"
	EventCreated      EventType = "CREATED"
	EventUpdated      EventType = "UPDATED"
	EventDeleted      EventType = "DELETED"
)

// Notifies reports whether the notification queue cares about t.
func (t EventType) Notifies() bool {
	return t == EventCheckedOut || t == EventMarkedAbsent
}

// AttendanceEvent is the JSON payload sent via SQS to the reporting and
// notification queues.
type AttendanceEvent struct {
	EventID     string                 `json:"eventId"`
	Type        EventType              `json:"type"`
	RecordID    string                 `json:"recordId"`
	EmployeeID  string                 `json:"employeeId"`
	Day         string                 `json:"day"`
	Status      model.AttendanceStatus `json:"status"`
	CheckInAt   *time.Time             `json:"checkInAt,omitempty"`
	CheckOutAt  *time.Time             `json:"checkOutAt,omitempty"`
	HoursWorked float64                `json:"hoursWorked"`
	OccurredAt  time.Time              `json:"occurredAt"`
}

// NewAttendanceEvent snapshots record into an event of type t.
func NewAttendanceEvent(t EventType, record model.AttendanceRecord, occurredAt time.Time) AttendanceEvent {
	return AttendanceEvent{
		EventID:     uuid.NewString(),
		Type:        t,
		RecordID:    record.ID,
		EmployeeID:  record.EmployeeID,
		Day:         record.Day.Format(time.DateOnly),
		Status:      record.Status,
		CheckInAt:   record.CheckInAt,
		CheckOutAt:  record.CheckOutAt,
		HoursWorked: record.HoursWorked(),
		OccurredAt:  occurredAt.UTC(),
	}
}
