package postgres

import (
	"context"
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS drivers (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	phone         TEXT NOT NULL DEFAULT '',
	photo_url     TEXT NOT NULL DEFAULT '',
	rating        DOUBLE PRECISION NOT NULL DEFAULT 0,
	vehicle_type  TEXT NOT NULL,
	vehicle_plate TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS rides (
	id               TEXT PRIMARY KEY,
	customer_id      TEXT NOT NULL,
	customer_phone   TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL,
	pickup_lat       DOUBLE PRECISION NOT NULL,
	pickup_lng       DOUBLE PRECISION NOT NULL,
	pickup_address   TEXT NOT NULL DEFAULT '',
	dropoff_lat      DOUBLE PRECISION NOT NULL,
	dropoff_lng      DOUBLE PRECISION NOT NULL,
	dropoff_address  TEXT NOT NULL DEFAULT '',
	distance_km      DOUBLE PRECISION NOT NULL,
	vehicle_type     TEXT NOT NULL,
	is_business      BOOLEAN NOT NULL DEFAULT FALSE,
	fare_estimate    DOUBLE PRECISION NOT NULL,
	final_fare       DOUBLE PRECISION,
	currency         TEXT NOT NULL DEFAULT 'TZS',
	driver_id        TEXT,
	driver_name      TEXT,
	driver_phone     TEXT,
	driver_photo     TEXT,
	driver_rating    DOUBLE PRECISION,
	vehicle_plate    TEXT,
	verification_pin TEXT,
	driver_lat       DOUBLE PRECISION,
	driver_lng       DOUBLE PRECISION,
	rating           INTEGER,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL,
	cancelled_at     TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS rides_customer_active_idx ON rides (customer_id, created_at DESC)
	WHERE status NOT IN ('completed', 'cancelled');
CREATE INDEX IF NOT EXISTS rides_driver_active_idx ON rides (driver_id, created_at DESC)
	WHERE status NOT IN ('completed', 'cancelled');

CREATE TABLE IF NOT EXISTS ride_messages (
	id         TEXT PRIMARY KEY,
	ride_id    TEXT NOT NULL REFERENCES rides (id),
	sender_id  TEXT NOT NULL,
	body       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	read_at    TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS ride_messages_ride_idx ON ride_messages (ride_id, created_at);

CREATE TABLE IF NOT EXISTS sos_alerts (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	ride_id    TEXT,
	lat        DOUBLE PRECISION,
	lng        DOUBLE PRECISION,
	created_at TIMESTAMPTZ NOT NULL
);
`

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
