package database

import (
	"context"
	"database/sql"
	"fmt"
)

// attendanceSchema is idempotent. The constraints are the durable guard for
// one record per employee and day, check-out only once checked in and never
// before the check-in time, and absent days without a check-in.
var attendanceSchema = []string{
	`DO $$ BEGIN
		CREATE TYPE attendance_status AS ENUM ('present', 'late', 'absent');
	EXCEPTION
		WHEN duplicate_object THEN null;
	END $$;`,
	`CREATE TABLE IF NOT EXISTS attendance_records (
		id            UUID PRIMARY KEY,
		employee_id   TEXT NOT NULL,
		day           DATE NOT NULL,
		check_in_at   TIMESTAMPTZ,
		check_out_at  TIMESTAMPTZ,
		status        attendance_status NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT attendance_one_per_day UNIQUE (employee_id, day),
		CONSTRAINT attendance_checkout_after_checkin CHECK (check_out_at IS NULL OR check_in_at IS NOT NULL),
		CONSTRAINT attendance_absent_without_checkin CHECK (status <> 'absent' OR check_in_at IS NULL),
		CONSTRAINT attendance_checkout_not_before_checkin CHECK (check_out_at IS NULL OR check_out_at >= check_in_at)
	)`,
	// Tables created before the ordering check get it added here.
	`DO $$ BEGIN
		ALTER TABLE attendance_records
			ADD CONSTRAINT attendance_checkout_not_before_checkin
			CHECK (check_out_at IS NULL OR check_out_at >= check_in_at);
	EXCEPTION
		WHEN duplicate_object THEN null;
	END $$;`,
	`CREATE INDEX IF NOT EXISTS attendance_records_day_idx ON attendance_records (day DESC, created_at DESC)`,
}

// EnsureSchema creates the attendance table and its constraints if missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range attendanceSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure attendance schema: %w", err)
		}
	}
	return nil
}
