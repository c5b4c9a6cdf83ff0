package core

import (
	"slices"

	"presence.service/internal/core/model"
)

// Operation names an entry point guarded by a role allow-list.
type Operation string

const (
	OpAutoGeoCheckIn   Operation = "autoGeoCheckIn"
	OpAutoGeoCheckOut  Operation = "autoGeoCheckOut"
	OpManualCheckIn    Operation = "manualCheckIn"
	OpManualCheckOut   Operation = "manualCheckOut"
	OpCreateAttendance Operation = "createAttendance"
	OpUpdateAttendance Operation = "updateAttendance"
	OpDeleteAttendance Operation = "deleteAttendance"
	OpListAttendance   Operation = "listAttendance"
	OpGetAttendance    Operation = "getAttendance"
	OpEmployeeHistory  Operation = "employeeHistory"
)

var capabilities = map[Operation][]model.Role{
	OpAutoGeoCheckIn:   {model.RoleEmployee},
	OpAutoGeoCheckOut:  {model.RoleEmployee},
	OpManualCheckIn:    {model.RoleAdmin, model.RoleHR, model.RoleManager, model.RoleEmployee},
	OpManualCheckOut:   {model.RoleAdmin, model.RoleHR, model.RoleManager, model.RoleEmployee},
	OpCreateAttendance: {model.RoleAdmin, model.RoleHR},
	OpUpdateAttendance: {model.RoleAdmin, model.RoleHR},
	OpDeleteAttendance: {model.RoleAdmin, model.RoleHR},
	OpListAttendance:   {model.RoleAdmin, model.RoleHR, model.RoleManager},
	OpGetAttendance:    {model.RoleAdmin, model.RoleHR, model.RoleManager, model.RoleEmployee},
	OpEmployeeHistory:  {model.RoleAdmin, model.RoleHR, model.RoleManager, model.RoleEmployee},
}

// selfOnly operations let an employee act only on their own records.
var selfOnly = map[Operation]bool{
	OpManualCheckIn:   true,
	OpManualCheckOut:  true,
	OpGetAttendance:   true,
	OpEmployeeHistory: true,
}

// Allowed reports whether role may invoke op at all.
func Allowed(op Operation, role model.Role) bool {
	return slices.Contains(capabilities[op], role)
}

// Authorize checks the caller against op's allow-list.
func Authorize(caller model.Caller, op Operation) error {
	if !caller.Role.Valid() {
		return NewError(ErrForbidden, "unknown role")
	}
	if !Allowed(op, caller.Role) {
		return NewError(ErrForbidden, "role "+string(caller.Role)+" may not "+string(op))
	}
	return nil
}

// restrictedToSelf reports whether the caller may touch only their own
// records for op.
func restrictedToSelf(caller model.Caller, op Operation) bool {
	return caller.Role == model.RoleEmployee && selfOnly[op]
}
