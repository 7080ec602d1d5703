package scheduling

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the DDL for the scheduling tables. EnsureSchema is called by
// cmd/seed so a fresh database can be brought up without a migration tool.
const Schema = `
CREATE TABLE IF NOT EXISTS resources (
	id           text PRIMARY KEY,
	kind         text NOT NULL,
	display_name text NOT NULL,
	status       text NOT NULL DEFAULT 'available',
	specialty    text,
	capacity     int,
	condition    text,
	created_at   timestamptz NOT NULL DEFAULT now(),
	updated_at   timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS appointments (
	id               uuid PRIMARY KEY,
	patient_ref      text NOT NULL,
	therapy_type     text NOT NULL,
	scheduled_date   date NOT NULL,
	start_minute     int NOT NULL,
	duration_minutes int NOT NULL,
	resource_ids     text[] NOT NULL,
	room             text NOT NULL DEFAULT '',
	status           text NOT NULL DEFAULT 'pending',
	notes            text NOT NULL DEFAULT '',
	urgent           boolean NOT NULL DEFAULT false,
	recurring        boolean NOT NULL DEFAULT false,
	cancel_reason    text NOT NULL DEFAULT '',
	cancelled_by     text NOT NULL DEFAULT '',
	created_at       timestamptz NOT NULL DEFAULT now(),
	updated_at       timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_appointments_date
	ON appointments (scheduled_date, start_minute);
CREATE INDEX IF NOT EXISTS idx_appointments_resources
	ON appointments USING gin (resource_ids);
CREATE INDEX IF NOT EXISTS idx_appointments_status
	ON appointments (status);

CREATE TABLE IF NOT EXISTS schedule_events (
	id              bigserial PRIMARY KEY,
	appointment_id  uuid NOT NULL,
	previous_status text NOT NULL DEFAULT '',
	new_status      text NOT NULL,
	payload         jsonb,
	created_at      timestamptz NOT NULL DEFAULT now(),
	dispatched_at   timestamptz
);

CREATE INDEX IF NOT EXISTS idx_schedule_events_undispatched
	ON schedule_events (id) WHERE dispatched_at IS NULL;
`

// EnsureSchema creates the scheduling tables when they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
