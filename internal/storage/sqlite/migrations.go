package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// activity_log.tontine_id has no foreign key so history outlives deleted tontines.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    phone TEXT NOT NULL UNIQUE,
    country_code TEXT NOT NULL DEFAULT '+228',
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tontines (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    amount TEXT NOT NULL,
    frequency_days INTEGER NOT NULL CHECK (frequency_days > 0),
    late_fee TEXT NOT NULL DEFAULT '0',
    start_date INTEGER,
    creator_id TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending'
        CHECK (status IN ('pending', 'active', 'completed', 'cancelled')),
    order_type TEXT NOT NULL DEFAULT 'not_defined'
        CHECK (order_type IN ('manual', 'random', 'not_defined')),
    order_locked INTEGER NOT NULL DEFAULT 0,
    current_turn INTEGER NOT NULL DEFAULT 1 CHECK (current_turn > 0),
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    FOREIGN KEY (creator_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS tontine_members (
    tontine_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'member' CHECK (role IN ('admin', 'member')),
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'active')),
    turn_order INTEGER CHECK (turn_order IS NULL OR turn_order > 0),
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (tontine_id, user_id),
    FOREIGN KEY (tontine_id) REFERENCES tontines(id) ON DELETE CASCADE,
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS payments (
    id TEXT PRIMARY KEY,
    tontine_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    round_number INTEGER NOT NULL CHECK (round_number > 0),
    amount TEXT NOT NULL,
    paid_at INTEGER NOT NULL,
    recorded_by TEXT NOT NULL,
    UNIQUE (tontine_id, user_id, round_number),
    FOREIGN KEY (tontine_id) REFERENCES tontines(id) ON DELETE CASCADE,
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS penalties (
    id TEXT PRIMARY KEY,
    tontine_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    round_number INTEGER NOT NULL CHECK (round_number > 0),
    amount TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'unpaid' CHECK (status IN ('unpaid', 'paid')),
    created_at INTEGER NOT NULL,
    paid_at INTEGER,
    FOREIGN KEY (tontine_id) REFERENCES tontines(id) ON DELETE CASCADE,
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS activity_log (
    id TEXT PRIMARY KEY,
    tontine_id TEXT NOT NULL,
    user_id TEXT,
    type TEXT NOT NULL CHECK (type IN ('start', 'payment', 'payout', 'penalty', 'info')),
    amount TEXT NOT NULL DEFAULT '0',
    round_number INTEGER,
    description TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tontine_members_turn
    ON tontine_members(tontine_id, turn_order) WHERE turn_order IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_tontine_members_user_id ON tontine_members(user_id);
CREATE INDEX IF NOT EXISTS idx_payments_tontine_round ON payments(tontine_id, round_number);
CREATE INDEX IF NOT EXISTS idx_penalties_tontine_id ON penalties(tontine_id);
CREATE INDEX IF NOT EXISTS idx_activity_log_tontine_id ON activity_log(tontine_id, created_at);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
