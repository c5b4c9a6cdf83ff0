package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"presence.service/internal/core/model"
)

const (
	uniqueViolation = "23505"
	checkViolation  = "23514"
)

const recordColumns = `id, employee_id, day, check_in_at, check_out_at, status, created_at, updated_at`

// AttendanceRepository is the concrete implementation for a PostgreSQL database.
type AttendanceRepository struct {
	DB *sql.DB
	// loc is the canonical zone days are rebuilt in when scanned from DATE columns.
	loc *time.Location
}

// NewAttendanceRepository create new instance
func NewAttendanceRepository(db *sql.DB, loc *time.Location) *AttendanceRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &AttendanceRepository{DB: db, loc: loc}
}

// FindByEmployeeAndDay get the record of an employee for one day.
func (r *AttendanceRepository) FindByEmployeeAndDay(ctx context.Context, employeeID string, day time.Time) (*model.AttendanceRecord, error) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("app.employeeId", employeeID))

	query := `SELECT ` + recordColumns + `
              FROM attendance_records
              WHERE employee_id = $1 AND day = $2`

	rec, err := r.scan(r.DB.QueryRowContext(ctx, query, employeeID, dayKey(day)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find attendance by employee and day: %w", err)
	}
	return rec, nil
}

// FindByID fetches a complete attendance record by its ID.
func (r *AttendanceRepository) FindByID(ctx context.Context, id string) (*model.AttendanceRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	query := `SELECT ` + recordColumns + ` FROM attendance_records WHERE id = $1`

	rec, err := r.scan(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find attendance by id: %w", err)
	}
	return rec, nil
}

// Insert creates the record unless one already exists for the same employee
// and day. The unique constraint decides; no prior lookup is made.
func (r *AttendanceRepository) Insert(ctx context.Context, record model.AttendanceRecord) (*model.AttendanceRecord, error) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("app.employeeId", record.EmployeeID))

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	query := `INSERT INTO attendance_records (id, employee_id, day, check_in_at, check_out_at, status, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, now(), now())
              ON CONFLICT (employee_id, day) DO NOTHING
              RETURNING ` + recordColumns

	rec, err := r.scan(r.DB.QueryRowContext(ctx, query,
		record.ID, record.EmployeeID, dayKey(record.Day), record.CheckInAt, record.CheckOutAt, record.Status,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, translate(err, "insert attendance")
	}
	return rec, nil
}

// Update applies an administrative patch.
func (r *AttendanceRepository) Update(ctx context.Context, id string, patch model.RecordPatch) (*model.AttendanceRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	sets := []string{"updated_at = now()"}
	args := []any{}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Day != nil {
		add("day", dayKey(*patch.Day))
	}
	switch {
	case patch.ClearCheckIn:
		sets = append(sets, "check_in_at = NULL")
	case patch.CheckInAt != nil:
		add("check_in_at", *patch.CheckInAt)
	}
	switch {
	case patch.ClearCheckOut:
		sets = append(sets, "check_out_at = NULL")
	case patch.CheckOutAt != nil:
		add("check_out_at", *patch.CheckOutAt)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE attendance_records SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), recordColumns)

	rec, err := r.scan(r.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, translate(err, "update attendance")
	}
	return rec, nil
}

// MarkCheckIn fills the check-in of a record that has none. A record that is
// already checked in or marked absent is left alone and ErrConflict returned.
func (r *AttendanceRepository) MarkCheckIn(ctx context.Context, id string, at time.Time) (*model.AttendanceRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	query := `UPDATE attendance_records
              SET check_in_at = $1,
                  status = 'present',
                  updated_at = now()
              WHERE id = $2 AND check_in_at IS NULL AND status <> 'absent'
              RETURNING ` + recordColumns

	rec, err := r.scan(r.DB.QueryRowContext(ctx, query, at, id))
	if errors.Is(err, sql.ErrNoRows) {
		if _, findErr := r.FindByID(ctx, id); findErr != nil {
			return nil, findErr
		}
		return nil, ErrConflict
	}
	if err != nil {
		return nil, translate(err, "mark check-in")
	}
	return rec, nil
}

// MarkCheckOut do checkout.
func (r *AttendanceRepository) MarkCheckOut(ctx context.Context, id string, at time.Time) (*model.AttendanceRecord, error) {
	query := `UPDATE attendance_records
              SET check_out_at = $1,
                  updated_at = now()
              WHERE id = $2 AND check_in_at IS NOT NULL AND check_out_at IS NULL
              RETURNING ` + recordColumns

	rec, err := r.scan(r.DB.QueryRowContext(ctx, query, at, id))
	if errors.Is(err, sql.ErrNoRows) {
		if _, findErr := r.FindByID(ctx, id); findErr != nil {
			return nil, findErr
		}
		return nil, ErrConflict
	}
	if err != nil {
		return nil, translate(err, "mark check-out")
	}
	return rec, nil
}

// Delete removes a record.
func (r *AttendanceRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res, err := r.DB.ExecContext(ctx, `DELETE FROM attendance_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAll returns every record, newest day first.
func (r *AttendanceRepository) ListAll(ctx context.Context) ([]model.AttendanceRecord, error) {
	query := `SELECT ` + recordColumns + `
              FROM attendance_records
              ORDER BY day DESC, created_at DESC`
	return r.list(ctx, query)
}

// ListByEmployee returns the records of one employee, newest day first.
func (r *AttendanceRepository) ListByEmployee(ctx context.Context, employeeID string) ([]model.AttendanceRecord, error) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("app.employeeId", employeeID))

	query := `SELECT ` + recordColumns + `
              FROM attendance_records
              WHERE employee_id = $1
              ORDER BY day DESC, created_at DESC`
	return r.list(ctx, query, employeeID)
}

func (r *AttendanceRepository) list(ctx context.Context, query string, args ...any) ([]model.AttendanceRecord, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	records := []model.AttendanceRecord{}
	for rows.Next() {
		rec, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *AttendanceRepository) scan(row scanner) (*model.AttendanceRecord, error) {
	var (
		rec      model.AttendanceRecord
		day      time.Time
		checkIn  sql.NullTime
		checkOut sql.NullTime
	)
	if err := row.Scan(&rec.ID, &rec.EmployeeID, &day, &checkIn, &checkOut, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	// DATE columns come back as UTC midnight; rebuild midnight in the canonical zone.
	y, m, d := day.Date()
	rec.Day = time.Date(y, m, d, 0, 0, 0, 0, r.loc)
	if checkIn.Valid {
		t := checkIn.Time
		rec.CheckInAt = &t
	}
	if checkOut.Valid {
		t := checkOut.Time
		rec.CheckOutAt = &t
	}
	return &rec, nil
}

// translate maps constraint violations onto repository sentinels.
func translate(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return ErrDuplicate
		case checkViolation:
			return fmt.Errorf("%w: %s", ErrConstraint, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
