package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRepository implements Repository on Postgres. Single-row writes rely on
// the database for atomicity; the patch-style Update runs as a
// select-for-update transaction so no partial write is ever visible.
type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `
	id, patient_ref, therapy_type, scheduled_date, start_minute,
	duration_minutes, resource_ids, room, status, notes, urgent, recurring,
	cancel_reason, cancelled_by, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.PatientRef,
		&a.TherapyType,
		&a.Date,
		&a.StartMinute,
		&a.DurationMinutes,
		&a.ResourceIDs,
		&a.Room,
		&a.Status,
		&a.Notes,
		&a.Urgent,
		&a.Recurring,
		&a.CancelReason,
		&a.CancelledBy,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, &StoreError{Op: "scan appointment", Err: err}
	}

	a.Date = Day(a.Date)
	return &a, nil
}

func scanResource(row pgx.Row) (*Resource, error) {
	var r Resource

	err := row.Scan(
		&r.ID,
		&r.Kind,
		&r.DisplayName,
		&r.Status,
		&r.Specialty,
		&r.Capacity,
		&r.Condition,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResourceNotFound
		}
		return nil, &StoreError{Op: "scan resource", Err: err}
	}

	return &r, nil
}

func (r *PgRepository) Insert(ctx context.Context, a *Appointment) (*Appointment, error) {
	if err := validateAppointment(a); err != nil {
		return nil, err
	}

	id := a.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	status := a.Status
	if status == "" {
		status = StatusPending
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (
			id, patient_ref, therapy_type, scheduled_date, start_minute,
			duration_minutes, resource_ids, room, status, notes, urgent,
			recurring, cancel_reason, cancelled_by, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, '', '', now(), now())
		RETURNING`+appointmentColumns, id, a.PatientRef, a.TherapyType, Day(a.Date), a.StartMinute,
		a.DurationMinutes, a.ResourceIDs, a.Room, status, a.Notes, a.Urgent, a.Recurring)

	return scanAppointment(row)
}

func (r *PgRepository) Update(ctx context.Context, id uuid.UUID, patch AppointmentPatch) (*Appointment, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, &StoreError{Op: "begin update", Err: err}
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id)
	current, err := scanAppointment(row)
	if err != nil {
		return nil, err
	}

	applyPatch(current, patch)
	if err := validateAppointment(current); err != nil {
		return nil, err
	}

	row = tx.QueryRow(ctx, `
		UPDATE appointments
		SET patient_ref = $2,
		    therapy_type = $3,
		    scheduled_date = $4,
		    start_minute = $5,
		    duration_minutes = $6,
		    resource_ids = $7,
		    room = $8,
		    status = $9,
		    notes = $10,
		    urgent = $11,
		    recurring = $12,
		    cancel_reason = $13,
		    cancelled_by = $14,
		    updated_at = now()
		WHERE id = $1
		RETURNING`+appointmentColumns,
		id, current.PatientRef, current.TherapyType, current.Date, current.StartMinute,
		current.DurationMinutes, current.ResourceIDs, current.Room, current.Status,
		current.Notes, current.Urgent, current.Recurring, current.CancelReason, current.CancelledBy)

	updated, err := scanAppointment(row)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &StoreError{Op: "commit update", Err: err}
	}
	return updated, nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus, reason, by string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    cancel_reason = CASE WHEN $4 <> '' THEN $4 ELSE cancel_reason END,
		    cancelled_by = CASE WHEN $5 <> '' THEN $5 ELSE cancelled_by END,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING`+appointmentColumns, id, to, from, reason, by)

	updated, err := scanAppointment(row)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, ErrAppointmentNotFound) {
		return nil, err
	}

	// No row matched: missing record or a status that moved underneath us.
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrStaleStatus
}

func (r *PgRepository) Remove(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return &StoreError{Op: "delete appointment", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) FindByResourceAndRange(ctx context.Context, resourceID string, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE $1 = ANY(resource_ids)
		  AND scheduled_date BETWEEN $2 AND $3
		ORDER BY scheduled_date, start_minute, id
	`, resourceID, Day(from), Day(to))
	if err != nil {
		return nil, &StoreError{Op: "query by resource", Err: err}
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) FindByRange(ctx context.Context, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE scheduled_date BETWEEN $1 AND $2
		ORDER BY scheduled_date, start_minute, id
	`, Day(from), Day(to))
	if err != nil {
		return nil, &StoreError{Op: "query by range", Err: err}
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) FindByStatus(ctx context.Context, status AppointmentStatus) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE status = $1
		ORDER BY scheduled_date, start_minute, id
	`, status)
	if err != nil {
		return nil, &StoreError{Op: "query by status", Err: err}
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "iterate appointments", Err: err}
	}
	return result, nil
}

func (r *PgRepository) ListResources(ctx context.Context, filter ResourceFilter) ([]Resource, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, kind, display_name, status, specialty, capacity, condition, created_at, updated_at
		FROM resources
		WHERE ($1::text IS NULL OR kind = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY kind, id
	`, filter.Kind, filter.Status)
	if err != nil {
		return nil, &StoreError{Op: "list resources", Err: err}
	}
	defer rows.Close()

	var result []Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "iterate resources", Err: err}
	}
	return result, nil
}

func (r *PgRepository) GetResource(ctx context.Context, id string) (*Resource, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, kind, display_name, status, specialty, capacity, condition, created_at, updated_at
		FROM resources
		WHERE id = $1
	`, id)
	return scanResource(row)
}

func (r *PgRepository) SetResourceStatus(ctx context.Context, id string, status ResourceStatus) (*Resource, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE resources
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING id, kind, display_name, status, specialty, capacity, condition, created_at, updated_at
	`, id, status)
	return scanResource(row)
}

func (r *PgRepository) UpsertResource(ctx context.Context, res *Resource) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO resources (id, kind, display_name, status, specialty, capacity, condition, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		ON CONFLICT (id) DO UPDATE
		SET kind = EXCLUDED.kind,
		    display_name = EXCLUDED.display_name,
		    status = EXCLUDED.status,
		    specialty = EXCLUDED.specialty,
		    capacity = EXCLUDED.capacity,
		    condition = EXCLUDED.condition,
		    updated_at = now()
	`, res.ID, res.Kind, res.DisplayName, res.Status, res.Specialty, res.Capacity, res.Condition)
	if err != nil {
		return &StoreError{Op: "upsert resource", Err: err}
	}
	return nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev ScheduleEvent) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO schedule_events (appointment_id, previous_status, new_status, payload, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
	`, ev.AppointmentID, ev.PreviousStatus, ev.NewStatus, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return &StoreError{Op: "insert schedule event", Err: err}
	}
	return nil
}

func (r *PgRepository) FindUndispatched(ctx context.Context, limit int) ([]ScheduleEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, appointment_id, previous_status, new_status, payload, created_at, dispatched_at
		FROM schedule_events
		WHERE dispatched_at IS NULL
		ORDER BY id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, &StoreError{Op: "query undispatched events", Err: err}
	}
	defer rows.Close()

	var result []ScheduleEvent
	for rows.Next() {
		var ev ScheduleEvent
		if err := rows.Scan(&ev.ID, &ev.AppointmentID, &ev.PreviousStatus, &ev.NewStatus, &ev.Payload, &ev.CreatedAt, &ev.DispatchedAt); err != nil {
			return nil, &StoreError{Op: "scan schedule event", Err: err}
		}
		result = append(result, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "iterate schedule events", Err: err}
	}
	return result, nil
}

func (r *PgRepository) MarkDispatched(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE schedule_events
		SET dispatched_at = $2
		WHERE id = $1
		  AND dispatched_at IS NULL
	`, id, at)
	if err != nil {
		return &StoreError{Op: "mark event dispatched", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
