package journal

const Schema = `
CREATE TABLE IF NOT EXISTS sizings (
	id TEXT PRIMARY KEY,
	time DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	session TEXT NOT NULL,
	entry_strategy TEXT NOT NULL,
	method TEXT NOT NULL,
	recommended_lot REAL NOT NULL,
	max_lot REAL NOT NULL,
	min_lot REAL NOT NULL,
	risk_amount REAL NOT NULL,
	margin_required REAL NOT NULL,
	confidence REAL NOT NULL,
	impact TEXT NOT NULL,
	fallback INTEGER NOT NULL,
	warnings TEXT NOT NULL,
	reasoning TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sizings_time ON sizings(time);

CREATE TABLE IF NOT EXISTS fills (
	id TEXT PRIMARY KEY,
	time DATETIME NOT NULL,
	lots REAL NOT NULL,
	risk_fraction REAL NOT NULL,
	source TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fills_time ON fills(time);
`
