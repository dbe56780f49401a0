package sqlite

import "database/sql"

// migrations contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
//
// Monetary columns are TEXT holding exact decimal strings; they are never
// computed on in SQL beyond summation of already-rounded values.
const schema = `
CREATE TABLE IF NOT EXISTS operators (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    role TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS settlements (
    id TEXT PRIMARY KEY,
    number TEXT NOT NULL UNIQUE,
    vendor_id TEXT NOT NULL,
    period_start TEXT NOT NULL,
    period_end TEXT NOT NULL,
    gross_total TEXT NOT NULL,
    platform_fee TEXT NOT NULL,
    platform_fee_pct TEXT NOT NULL,
    platform_fee_method TEXT NOT NULL,
    commission TEXT NOT NULL,
    commission_pct TEXT NOT NULL,
    adjustment TEXT NOT NULL,
    net_payout TEXT NOT NULL,
    status TEXT NOT NULL,
    payout_method TEXT,
    external_ref TEXT,
    bank_ref TEXT,
    paid_at TEXT,
    notes TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    closed_at TEXT
);

CREATE TABLE IF NOT EXISTS orders (
    id TEXT PRIMARY KEY,
    vendor_id TEXT NOT NULL,
    fulfillment_status TEXT NOT NULL,
    payment_status TEXT NOT NULL,
    gross_total TEXT NOT NULL,
    platform_fee TEXT,
    settlement_id TEXT,
    created_at TEXT NOT NULL,
    FOREIGN KEY (settlement_id) REFERENCES settlements(id)
);

CREATE TABLE IF NOT EXISTS settlement_orders (
    settlement_id TEXT NOT NULL,
    order_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    PRIMARY KEY (settlement_id, order_id),
    FOREIGN KEY (settlement_id) REFERENCES settlements(id),
    FOREIGN KEY (order_id) REFERENCES orders(id)
);

CREATE TABLE IF NOT EXISTS settlement_status_history (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    settlement_id TEXT NOT NULL,
    from_status TEXT NOT NULL,
    to_status TEXT NOT NULL,
    actor_id TEXT NOT NULL,
    actor_role TEXT NOT NULL,
    reason TEXT,
    recorded_at TEXT NOT NULL,
    FOREIGN KEY (settlement_id) REFERENCES settlements(id)
);

CREATE TABLE IF NOT EXISTS settlement_sequences (
    year INTEGER PRIMARY KEY,
    last_seq INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_vendor_id ON orders(vendor_id);
CREATE INDEX IF NOT EXISTS idx_orders_settlement_id ON orders(settlement_id);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);
CREATE INDEX IF NOT EXISTS idx_settlements_vendor_id ON settlements(vendor_id);
CREATE INDEX IF NOT EXISTS idx_settlements_status ON settlements(status);
CREATE INDEX IF NOT EXISTS idx_settlements_created_at ON settlements(created_at);
CREATE INDEX IF NOT EXISTS idx_history_settlement_id ON settlement_status_history(settlement_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
