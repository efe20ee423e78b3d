package sqlite

// schema is idempotent: every statement is CREATE ... IF NOT EXISTS so
// startup can run it unconditionally.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL CHECK (role IN ('admin', 'requester', 'picker')),
    active INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS pick_requests (
    name TEXT PRIMARY KEY,
    status TEXT NOT NULL DEFAULT 'pending'
        CHECK (status IN ('pending', 'in_progress', 'paused',
                          'partially_completed', 'completed', 'cancelled')),
    priority TEXT NOT NULL DEFAULT 'normal'
        CHECK (priority IN ('urgent', 'normal', 'low')),
    notes TEXT NOT NULL DEFAULT '',
    creator_id TEXT REFERENCES users(id) ON DELETE SET NULL,
    claimant_id TEXT REFERENCES users(id) ON DELETE SET NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    started_at TIMESTAMP,
    completed_at TIMESTAMP,
    last_activity_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS pick_items (
    id TEXT PRIMARY KEY,
    request_name TEXT NOT NULL REFERENCES pick_requests(name) ON DELETE CASCADE,
    upc TEXT NOT NULL,
    product_name TEXT NOT NULL,
    requested_qty INTEGER NOT NULL CHECK (requested_qty >= 1 AND requested_qty <= 9999),
    picked_qty INTEGER NOT NULL DEFAULT 0 CHECK (picked_qty >= 0),
    shortage_reason TEXT,
    shortage_notes TEXT,
    UNIQUE (request_name, upc)
);

CREATE INDEX IF NOT EXISTS idx_requests_status ON pick_requests(status);
CREATE INDEX IF NOT EXISTS idx_requests_creator ON pick_requests(creator_id);
CREATE INDEX IF NOT EXISTS idx_requests_activity ON pick_requests(status, last_activity_at);
CREATE INDEX IF NOT EXISTS idx_items_request ON pick_items(request_name);
CREATE INDEX IF NOT EXISTS idx_items_upc ON pick_items(request_name, upc);
`
