package store

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS resources (
    id            BIGSERIAL PRIMARY KEY,
    uid           TEXT NOT NULL UNIQUE,
    kind          TEXT NOT NULL DEFAULT 'trucker',
    label         TEXT NOT NULL DEFAULT '',
    license_plate TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_resources_kind ON resources(kind);

CREATE TABLE IF NOT EXISTS trips (
    id             BIGSERIAL PRIMARY KEY,
    uid            TEXT NOT NULL UNIQUE,
    name           TEXT NOT NULL DEFAULT '',
    status         TEXT NOT NULL DEFAULT 'unstarted',
    trucker_status TEXT NOT NULL DEFAULT 'unassigned',
    resource_uid   TEXT NOT NULL DEFAULT 'unplanned',
    day            TEXT NOT NULL DEFAULT '',
    position       INTEGER NOT NULL DEFAULT 0,
    vehicle_plate  TEXT NOT NULL DEFAULT '',
    trailer_plate  TEXT NOT NULL DEFAULT '',
    trucker_name   TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_trips_cell ON trips(resource_uid, day, position);
CREATE INDEX IF NOT EXISTS idx_trips_status ON trips(status);

CREATE TABLE IF NOT EXISTS transports (
    id               BIGSERIAL PRIMARY KEY,
    uid              TEXT NOT NULL UNIQUE,
    reference        TEXT NOT NULL DEFAULT '',
    invoicing_status TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS activities (
    id         BIGSERIAL PRIMARY KEY,
    trip_id    BIGINT NOT NULL REFERENCES trips(id) ON DELETE CASCADE,
    kind       TEXT NOT NULL DEFAULT 'single',
    position   INTEGER NOT NULL DEFAULT 0,
    label      TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_activities_trip ON activities(trip_id);

CREATE TABLE IF NOT EXISTS activity_transports (
    activity_id  BIGINT NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
    transport_id BIGINT NOT NULL REFERENCES transports(id) ON DELETE CASCADE,
    PRIMARY KEY (activity_id, transport_id)
);
CREATE INDEX IF NOT EXISTS idx_activity_transports_transport ON activity_transports(transport_id);

CREATE TABLE IF NOT EXISTS chartering_segments (
    id             BIGSERIAL PRIMARY KEY,
    uid            TEXT NOT NULL UNIQUE,
    trip_id        BIGINT REFERENCES trips(id) ON DELETE SET NULL,
    carrier_name   TEXT NOT NULL DEFAULT '',
    status         TEXT NOT NULL DEFAULT 'unstarted',
    trucker_status TEXT NOT NULL DEFAULT 'unassigned',
    resource_uid   TEXT NOT NULL DEFAULT 'unplanned',
    day            TEXT NOT NULL DEFAULT '',
    position       INTEGER NOT NULL DEFAULT 0,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_segments_cell ON chartering_segments(resource_uid, day, position);

CREATE TABLE IF NOT EXISTS move_history (
    id            BIGSERIAL PRIMARY KEY,
    entity_type   TEXT NOT NULL,
    entity_id     BIGINT NOT NULL,
    from_resource TEXT NOT NULL DEFAULT '',
    from_day      TEXT NOT NULL DEFAULT '',
    from_index    INTEGER NOT NULL DEFAULT 0,
    to_resource   TEXT NOT NULL DEFAULT '',
    to_day        TEXT NOT NULL DEFAULT '',
    to_index      INTEGER NOT NULL DEFAULT 0,
    actor         TEXT NOT NULL DEFAULT 'system',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_move_history_entity ON move_history(entity_type, entity_id);

CREATE TABLE IF NOT EXISTS outbox (
    id          BIGSERIAL PRIMARY KEY,
    topic       TEXT NOT NULL,
    payload     BYTEA NOT NULL,
    msg_type    TEXT NOT NULL DEFAULT '',
    station_id  TEXT NOT NULL DEFAULT '',
    retries     INTEGER NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    sent_at     TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(sent_at) WHERE sent_at IS NULL;

CREATE TABLE IF NOT EXISTS audit_log (
    id          BIGSERIAL PRIMARY KEY,
    entity_type TEXT NOT NULL,
    entity_id   BIGINT NOT NULL DEFAULT 0,
    action      TEXT NOT NULL,
    old_value   TEXT NOT NULL DEFAULT '',
    new_value   TEXT NOT NULL DEFAULT '',
    actor       TEXT NOT NULL DEFAULT 'system',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_log(entity_type, entity_id);

CREATE TABLE IF NOT EXISTS admin_users (
    id            BIGSERIAL PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
