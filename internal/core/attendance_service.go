package core

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"presence.service/internal/core/geo"
	"presence.service/internal/core/model"
	"presence.service/internal/core/workday"
	"presence.service/internal/ports/directory"
	"presence.service/internal/ports/messaging"
	"presence.service/internal/ports/repository"
	"presence.service/pkg/logger"
	"presence.service/pkg/metrics"
	"presence.service/pkg/telemetry"
)

var tracer = otel.Tracer("attendance-service")

// CheckInResult is the outcome of a geolocation check-in. AlreadyMarked is
// set when the day already had a record and nothing was written.
type CheckInResult struct {
	Record        *model.AttendanceRecord `json:"record"`
	AlreadyMarked bool                    `json:"alreadyMarked"`
}

// CreateAttendanceInput is an administrative record for any day.
type CreateAttendanceInput struct {
	EmployeeID string                 `json:"employeeId"`
	Day        time.Time              `json:"day"`
	CheckInAt  *time.Time             `json:"checkInAt,omitempty"`
	CheckOutAt *time.Time             `json:"checkOutAt,omitempty"`
	Status     model.AttendanceStatus `json:"status"`
}

type AttendanceService struct {
	repo      repository.Repository
	directory directory.Directory
	publisher messaging.Publisher
	fence     geo.Fence
	policy    workday.Policy
	metrics   *metrics.Attendance
	now       func() time.Time
}

// Option customizes an AttendanceService.
type Option func(*AttendanceService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *AttendanceService) { s.now = now }
}

// NewAttendanceService wires the store, the employee directory and the event
// publisher together with the geofence and cutoff policy.
func NewAttendanceService(
	repo repository.Repository,
	dir directory.Directory,
	publisher messaging.Publisher,
	fence geo.Fence,
	policy workday.Policy,
	m *metrics.Attendance,
	opts ...Option,
) *AttendanceService {
	s := &AttendanceService{
		repo:      repo,
		directory: dir,
		publisher: publisher,
		fence:     fence,
		policy:    policy,
		metrics:   m,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now is the service clock.
func (s *AttendanceService) Now() time.Time {
	return s.now()
}

// ManualCheckIn records a check-in for today without geofencing. Employees
// may only check themselves in; an empty employeeKey means the caller.
func (s *AttendanceService) ManualCheckIn(ctx context.Context, caller model.Caller, employeeKey string) (rec *model.AttendanceRecord, err error) {
	ctx, span := tracer.Start(ctx, "AttendanceService.ManualCheckIn")
	defer func() { endSpan(span, err) }()

	if err := Authorize(caller, OpManualCheckIn); err != nil {
		return nil, err
	}
	emp, err := s.resolveTarget(ctx, caller, OpManualCheckIn, employeeKey)
	if err != nil {
		return nil, err
	}
	ctx = withEmployee(ctx, emp.ID)
	span.SetAttributes(attribute.String("app.employeeId", emp.ID))

	now := s.now()
	day := s.policy.Day(now)

	existing, err := s.repo.FindByEmployeeAndDay(ctx, emp.ID, day)
	if err != nil {
		return nil, Internal(err, "failed to look up today's attendance")
	}
	if existing != nil {
		return s.checkInExisting(ctx, existing, now)
	}

	rec, err = s.repo.Insert(ctx, model.AttendanceRecord{
		EmployeeID: emp.ID,
		Day:        day,
		CheckInAt:  &now,
		Status:     model.StatusPresent,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		// Lost the race to a concurrent check-in; the winner's record stands.
		s.metrics.AlreadyMarked.Inc()
		return s.existingForDay(ctx, emp.ID, day)
	}
	if err != nil {
		return nil, Internal(err, "failed to record check-in")
	}

	s.metrics.CheckIns.WithLabelValues(string(rec.Status), "manual").Inc()
	s.publish(ctx, messaging.EventCheckedIn, *rec)
	log.Ctx(ctx).Info().Str("record_id", rec.ID).Msg("Manual check-in recorded")
	return rec, nil
}

func (s *AttendanceService) checkInExisting(ctx context.Context, existing *model.AttendanceRecord, now time.Time) (*model.AttendanceRecord, error) {
	if existing.CheckedIn() {
		return nil, NewError(ErrConflict, "already checked in")
	}
	if existing.Status == model.StatusAbsent {
		return nil, NewError(ErrConflict, "marked absent for the day")
	}

	rec, err := s.repo.MarkCheckIn(ctx, existing.ID, now)
	switch {
	case errors.Is(err, repository.ErrConflict):
		return nil, NewError(ErrConflict, "already checked in or marked absent")
	case errors.Is(err, repository.ErrNotFound):
		return nil, NewError(ErrConflict, "attendance record changed, retry")
	case err != nil:
		return nil, Internal(err, "failed to record check-in")
	}

	s.metrics.CheckIns.WithLabelValues(string(rec.Status), "manual").Inc()
	s.publish(ctx, messaging.EventCheckedIn, *rec)
	return rec, nil
}

// ManualCheckOut closes today's record for the employee.
func (s *AttendanceService) ManualCheckOut(ctx context.Context, caller model.Caller, employeeKey string) (rec *model.AttendanceRecord, err error) {
	ctx, span := tracer.Start(ctx, "AttendanceService.ManualCheckOut")
	defer func() { endSpan(span, err) }()

	if err := Authorize(caller, OpManualCheckOut); err != nil {
		return nil, err
	}
	emp, err := s.resolveTarget(ctx, caller, OpManualCheckOut, employeeKey)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("app.employeeId", emp.ID))

	return s.checkOut(withEmployee(ctx, emp.ID), emp.ID, s.now())
}

func (s *AttendanceService) checkOut(ctx context.Context, employeeID string, now time.Time) (*model.AttendanceRecord, error) {
	existing, err := s.repo.FindByEmployeeAndDay(ctx, employeeID, s.policy.Day(now))
	if err != nil {
		return nil, Internal(err, "failed to look up today's attendance")
	}
	if existing == nil || !existing.CheckedIn() {
		return nil, NewError(ErrNotFound, "no check-in today")
	}
	if existing.CheckedOut() {
		return nil, NewError(ErrConflict, "already checked out")
	}

	rec, err := s.repo.MarkCheckOut(ctx, existing.ID, now)
	switch {
	case errors.Is(err, repository.ErrConflict):
		return nil, NewError(ErrConflict, "already checked out")
	case errors.Is(err, repository.ErrNotFound):
		return nil, NewError(ErrNotFound, "no check-in today")
	case err != nil:
		return nil, Internal(err, "failed to record check-out")
	}

	s.metrics.CheckOuts.Inc()
	s.publish(ctx, messaging.EventCheckedOut, *rec)
	log.Ctx(ctx).Info().Float64("hours_worked", rec.HoursWorked()).Msg("Check-out recorded")
	return rec, nil
}

// AutoGeoCheckIn checks the calling employee in from a device location.
//
// A call after the hard cutoff writes an absent record for the day and still
// fails with ErrForbidden; the returned result carries that record.
func (s *AttendanceService) AutoGeoCheckIn(ctx context.Context, caller model.Caller, lat, lng *float64, now time.Time) (result CheckInResult, err error) {
	ctx, span := tracer.Start(ctx, "AttendanceService.AutoGeoCheckIn")
	defer func() { endSpan(span, err) }()

	emp, err := s.locateEmployee(ctx, caller, OpAutoGeoCheckIn, lat, lng)
	if err != nil {
		return CheckInResult{}, err
	}
	ctx = withEmployee(ctx, emp.ID)
	span.SetAttributes(attribute.String("app.employeeId", emp.ID))

	if now.IsZero() {
		now = s.now()
	}
	day := s.policy.Day(now)

	existing, err := s.repo.FindByEmployeeAndDay(ctx, emp.ID, day)
	if err != nil {
		return CheckInResult{}, Internal(err, "failed to look up today's attendance")
	}
	if existing != nil {
		s.metrics.AlreadyMarked.Inc()
		return CheckInResult{Record: existing, AlreadyMarked: true}, nil
	}

	outcome := s.policy.Classify(now)
	span.SetAttributes(attribute.String("app.outcome", outcome.String()))

	record := model.AttendanceRecord{EmployeeID: emp.ID, Day: day}
	switch outcome {
	case workday.Blocked:
		record.Status = model.StatusAbsent
	case workday.Late:
		record.Status = model.StatusLate
		record.CheckInAt = &now
	default:
		record.Status = model.StatusPresent
		record.CheckInAt = &now
	}

	rec, err := s.repo.Insert(ctx, record)
	if errors.Is(err, repository.ErrDuplicate) {
		s.metrics.AlreadyMarked.Inc()
		rec, err := s.existingForDay(ctx, emp.ID, day)
		if err != nil {
			return CheckInResult{}, err
		}
		return CheckInResult{Record: rec, AlreadyMarked: true}, nil
	}
	if err != nil {
		return CheckInResult{}, Internal(err, "failed to record attendance")
	}

	if outcome == workday.Blocked {
		s.metrics.Absences.Inc()
		s.publish(ctx, messaging.EventMarkedAbsent, *rec)
		log.Ctx(ctx).Info().Msg("Check-in after hard cutoff, marked absent")
		return CheckInResult{Record: rec}, NewError(ErrForbidden, "time exceeded, marked absent")
	}

	s.metrics.CheckIns.WithLabelValues(string(rec.Status), "geo").Inc()
	s.publish(ctx, messaging.EventCheckedIn, *rec)
	log.Ctx(ctx).Info().Str("status", string(rec.Status)).Msg("Geolocation check-in recorded")
	return CheckInResult{Record: rec}, nil
}

// AutoGeoCheckOut checks the calling employee out from a device location.
func (s *AttendanceService) AutoGeoCheckOut(ctx context.Context, caller model.Caller, lat, lng *float64, now time.Time) (rec *model.AttendanceRecord, err error) {
	ctx, span := tracer.Start(ctx, "AttendanceService.AutoGeoCheckOut")
	defer func() { endSpan(span, err) }()

	emp, err := s.locateEmployee(ctx, caller, OpAutoGeoCheckOut, lat, lng)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("app.employeeId", emp.ID))

	if now.IsZero() {
		now = s.now()
	}
	return s.checkOut(withEmployee(ctx, emp.ID), emp.ID, now)
}

// locateEmployee runs the checks shared by the geolocation operations: role,
// coordinates, geofence, then the directory lookup of the caller. Nothing is
// written when any of them fails.
func (s *AttendanceService) locateEmployee(ctx context.Context, caller model.Caller, op Operation, lat, lng *float64) (*model.Employee, error) {
	if err := Authorize(caller, op); err != nil {
		return nil, err
	}
	if lat == nil || lng == nil {
		return nil, NewError(ErrValidation, "latitude and longitude are required")
	}
	point := geo.Point{Lat: *lat, Lng: *lng}
	if err := point.Validate(); err != nil {
		return nil, WrapError(err, ErrValidation, err.Error())
	}

	inside, distance := s.fence.Contains(point)
	if !inside {
		s.metrics.GeofenceRejections.Inc()
		log.Ctx(ctx).Info().Float64("distance_m", distance).Msg("Location outside geofence")
		return nil, NewError(ErrForbidden, "outside allowed area")
	}

	return s.lookupEmployee(ctx, caller.Subject)
}

// CreateAttendance inserts a record for any day on behalf of an administrator.
func (s *AttendanceService) CreateAttendance(ctx context.Context, caller model.Caller, input CreateAttendanceInput) (rec *model.AttendanceRecord, err error) {
	ctx, span := tracer.Start(ctx, "AttendanceService.CreateAttendance")
	defer func() { endSpan(span, err) }()

	if err := Authorize(caller, OpCreateAttendance); err != nil {
		return nil, err
	}
	if input.EmployeeID == "" {
		return nil, NewError(ErrValidation, "employeeId is required")
	}
	emp, err := s.lookupEmployee(ctx, input.EmployeeID)
	if err != nil {
		return nil, err
	}

	record := model.AttendanceRecord{
		EmployeeID: emp.ID,
		CheckInAt:  input.CheckInAt,
		CheckOutAt: input.CheckOutAt,
		Status:     input.Status,
	}
	if !input.Day.IsZero() {
		record.Day = workday.StartOfDay(input.Day, s.policy.Location)
	}
	if err := record.Validate(); err != nil {
		return nil, WrapError(err, ErrValidation, err.Error())
	}

	rec, err = s.repo.Insert(ctx, record)
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return nil, NewError(ErrConflict, "attendance already recorded for this employee and day")
	case errors.Is(err, repository.ErrConstraint):
		return nil, WrapError(err, ErrValidation, "attendance record is inconsistent")
	case err != nil:
		return nil, Internal(err, "failed to create attendance")
	}

	s.publish(ctx, messaging.EventCreated, *rec)
	return rec, nil
}

// UpdateAttendance applies an administrative correction. It may bypass the
// check-in/check-out sequence but never the record invariants or the
// one-record-per-day rule.
func (s *AttendanceService) UpdateAttendance(ctx context.Context, caller model.Caller, id string, patch model.RecordPatch) (rec *model.AttendanceRecord, err error) {
	ctx, span := tracer.Start(ctx, "AttendanceService.UpdateAttendance", trace.WithAttributes(attribute.String("app.recordId", id)))
	defer func() { endSpan(span, err) }()

	if err := Authorize(caller, OpUpdateAttendance); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, NewError(ErrValidation, "nothing to update")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, WrapError(model.ErrInvalidStatus, ErrValidation, model.ErrInvalidStatus.Error())
	}
	if patch.Day != nil {
		day := workday.StartOfDay(*patch.Day, s.policy.Location)
		patch.Day = &day
	}

	current, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrNotFound, "attendance record not found")
	}
	if err != nil {
		return nil, Internal(err, "failed to load attendance record")
	}
	if err := patch.Apply(*current).Validate(); err != nil {
		return nil, WrapError(err, ErrValidation, err.Error())
	}

	rec, err = s.repo.Update(ctx, id, patch)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, NewError(ErrNotFound, "attendance record not found")
	case errors.Is(err, repository.ErrDuplicate):
		return nil, NewError(ErrConflict, "attendance already recorded for this employee and day")
	case errors.Is(err, repository.ErrConstraint):
		return nil, WrapError(err, ErrConflict, "attendance record changed, retry")
	case err != nil:
		return nil, Internal(err, "failed to update attendance")
	}

	s.publish(ctx, messaging.EventUpdated, *rec)
	return rec, nil
}

// DeleteAttendance removes a record.
func (s *AttendanceService) DeleteAttendance(ctx context.Context, caller model.Caller, id string) (err error) {
	ctx, span := tracer.Start(ctx, "AttendanceService.DeleteAttendance", trace.WithAttributes(attribute.String("app.recordId", id)))
	defer func() { endSpan(span, err) }()

	if err := Authorize(caller, OpDeleteAttendance); err != nil {
		return err
	}

	current, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return NewError(ErrNotFound, "attendance record not found")
	}
	if err != nil {
		return Internal(err, "failed to load attendance record")
	}

	err = s.repo.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return NewError(ErrNotFound, "attendance record not found")
	}
	if err != nil {
		return Internal(err, "failed to delete attendance")
	}

	s.publish(ctx, messaging.EventDeleted, *current)
	return nil
}

// resolveTarget finds the employee an operation acts on. Employees are
// pinned to themselves for self-only operations.
func (s *AttendanceService) resolveTarget(ctx context.Context, caller model.Caller, op Operation, key string) (*model.Employee, error) {
	if key == "" {
		key = caller.Subject
	}
	if key == "" {
		return nil, NewError(ErrValidation, "employee is required")
	}
	target, err := s.lookupEmployee(ctx, key)
	if err != nil {
		return nil, err
	}
	if !restrictedToSelf(caller, op) {
		return target, nil
	}

	self, err := s.lookupEmployee(ctx, caller.Subject)
	if err != nil {
		return nil, err
	}
	if self.ID != target.ID {
		return nil, NewError(ErrForbidden, "employees may only act on their own attendance")
	}
	return target, nil
}

func (s *AttendanceService) lookupEmployee(ctx context.Context, key string) (*model.Employee, error) {
	emp, err := s.directory.FindByIDOrEmail(ctx, key)
	if errors.Is(err, directory.ErrEmployeeNotFound) {
		return nil, NewError(ErrNotFound, "employee not found")
	}
	if err != nil {
		return nil, Internal(err, "failed to look up employee")
	}
	return emp, nil
}

func (s *AttendanceService) existingForDay(ctx context.Context, employeeID string, day time.Time) (*model.AttendanceRecord, error) {
	rec, err := s.repo.FindByEmployeeAndDay(ctx, employeeID, day)
	if err != nil {
		return nil, Internal(err, "failed to look up today's attendance")
	}
	if rec == nil {
		// Deleted between the failed insert and this read.
		return nil, NewError(ErrConflict, "attendance record changed, retry")
	}
	return rec, nil
}

// publish is best effort: the state change is already durable.
func (s *AttendanceService) publish(ctx context.Context, t messaging.EventType, rec model.AttendanceRecord) {
	event := messaging.NewAttendanceEvent(t, rec, s.now())
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Ctx(ctx).Error().Err(err).
			Str("event_type", string(t)).
			Str("record_id", rec.ID).
			Msg("Failed to publish attendance event")
	}
}

func withEmployee(ctx context.Context, employeeID string) context.Context {
	return logger.WithEmployee(telemetry.WithEmployeeID(ctx, employeeID), employeeID)
}

func endSpan(span trace.Span, err error) {
	if err != nil && errors.Is(err, ErrInternal) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
