package core

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"presence.service/internal/core/model"
	"presence.service/internal/ports/directory"
	"presence.service/internal/ports/repository"
)

// AttendanceQuery is the read side. Results are newest day first and carry
// the employee's display data; records of unknown employees keep empty
// display fields.
type AttendanceQuery struct {
	repo      repository.Repository
	directory directory.Directory
}

func NewAttendanceQuery(repo repository.Repository, dir directory.Directory) *AttendanceQuery {
	return &AttendanceQuery{repo: repo, directory: dir}
}

func (q *AttendanceQuery) GetAllAttendance(ctx context.Context, caller model.Caller) (views []model.AttendanceView, err error) {
	ctx, span := tracer.Start(ctx, "AttendanceQuery.GetAllAttendance")
	defer func() { endSpan(span, err) }()

	if err := Authorize(caller, OpListAttendance); err != nil {
		return nil, err
	}
	records, err := q.repo.ListAll(ctx)
	if err != nil {
		return nil, Internal(err, "failed to list attendance")
	}
	return q.join(ctx, records)
}

func (q *AttendanceQuery) GetAttendanceByID(ctx context.Context, caller model.Caller, id string) (view *model.AttendanceView, err error) {
	ctx, span := tracer.Start(ctx, "AttendanceQuery.GetAttendanceByID", trace.WithAttributes(attribute.String("app.recordId", id)))
	defer func() { endSpan(span, err) }()

	if err := Authorize(caller, OpGetAttendance); err != nil {
		return nil, err
	}
	rec, err := q.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrNotFound, "attendance record not found")
	}
	if err != nil {
		return nil, Internal(err, "failed to load attendance record")
	}
	if err := q.checkSelf(ctx, caller, OpGetAttendance, rec.EmployeeID); err != nil {
		return nil, err
	}

	views, err := q.join(ctx, []model.AttendanceRecord{*rec})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// GetAttendanceByEmployee lists one employee's history. employeeKey may be
// an id or an email address.
func (q *AttendanceQuery) GetAttendanceByEmployee(ctx context.Context, caller model.Caller, employeeKey string) (views []model.AttendanceView, err error) {
	ctx, span := tracer.Start(ctx, "AttendanceQuery.GetAttendanceByEmployee")
	defer func() { endSpan(span, err) }()

	if err := Authorize(caller, OpEmployeeHistory); err != nil {
		return nil, err
	}

	employeeID := employeeKey
	emp, err := q.directory.FindByIDOrEmail(ctx, employeeKey)
	switch {
	case err == nil:
		employeeID = emp.ID
	case !errors.Is(err, directory.ErrEmployeeNotFound):
		return nil, Internal(err, "failed to look up employee")
	}
	span.SetAttributes(attribute.String("app.employeeId", employeeID))

	if err := q.checkSelf(ctx, caller, OpEmployeeHistory, employeeID); err != nil {
		return nil, err
	}

	records, err := q.repo.ListByEmployee(ctx, employeeID)
	if err != nil {
		return nil, Internal(err, "failed to list attendance")
	}
	return q.join(ctx, records)
}

// checkSelf rejects employees reading someone else's records.
func (q *AttendanceQuery) checkSelf(ctx context.Context, caller model.Caller, op Operation, employeeID string) error {
	if !restrictedToSelf(caller, op) {
		return nil
	}
	self, err := q.directory.FindByIDOrEmail(ctx, caller.Subject)
	if errors.Is(err, directory.ErrEmployeeNotFound) {
		return NewError(ErrForbidden, "employees may only read their own attendance")
	}
	if err != nil {
		return Internal(err, "failed to look up employee")
	}
	if self.ID != employeeID {
		return NewError(ErrForbidden, "employees may only read their own attendance")
	}
	return nil
}

func (q *AttendanceQuery) join(ctx context.Context, records []model.AttendanceRecord) ([]model.AttendanceView, error) {
	views := make([]model.AttendanceView, 0, len(records))
	if len(records) == 0 {
		return views, nil
	}

	seen := make(map[string]struct{}, len(records))
	ids := make([]string, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.EmployeeID]; ok {
			continue
		}
		seen[r.EmployeeID] = struct{}{}
		ids = append(ids, r.EmployeeID)
	}

	employees, err := q.directory.FindByIDs(ctx, ids)
	if err != nil {
		return nil, Internal(err, "failed to resolve employees")
	}

	for _, r := range records {
		view := model.AttendanceView{AttendanceRecord: r}
		if emp, ok := employees[r.EmployeeID]; ok {
			view.EmployeeName = emp.FullName
			view.EmployeeEmail = emp.Email
			view.DepartmentName = emp.DepartmentName
		}
		views = append(views, view)
	}
	return views, nil
}
