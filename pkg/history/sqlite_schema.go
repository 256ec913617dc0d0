package history

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the history database schema.
const Schema = `
-- Evaluation records, one row per (target, tick)
CREATE TABLE IF NOT EXISTS evaluation_records (
    id TEXT PRIMARY KEY,
    tick_id TEXT NOT NULL,
    tick_index INTEGER NOT NULL,
    asset_key TEXT NOT NULL,
    evaluation_time TIMESTAMP NOT NULL,

    -- Condition identity
    condition_fingerprint TEXT NOT NULL,
    code_version TEXT,

    -- Results (partition key lists and maps, JSON encoded)
    request_subset TEXT NOT NULL,
    sub_results TEXT,
    update_seqs TEXT,
    warnings TEXT
);

-- Latest-record lookup per target
CREATE INDEX IF NOT EXISTS idx_records_asset_tick
    ON evaluation_records(asset_key, tick_index DESC);

-- Time-range queries for history display
CREATE INDEX IF NOT EXISTS idx_records_evaluation_time
    ON evaluation_records(evaluation_time);

-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// InsertSchemaVersion records the schema version if not already present.
const InsertSchemaVersion = `
INSERT OR IGNORE INTO schema_version (version) VALUES (?);
`

// GetSchemaVersion returns the highest applied schema version.
const GetSchemaVersion = `
SELECT MAX(version) FROM schema_version;
`
