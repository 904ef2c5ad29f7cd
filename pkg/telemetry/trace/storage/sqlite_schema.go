package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the trace database
// schema.
const Schema = `
-- Trace records table
CREATE TABLE IF NOT EXISTS traces (
    id TEXT PRIMARY KEY,
    request_id TEXT NOT NULL,
    time TIMESTAMP NOT NULL,

    -- Routing
    requested_model TEXT NOT NULL,
    resolved_model TEXT NOT NULL,
    rule TEXT,
    stream BOOLEAN NOT NULL,

    -- Provider attempts, JSON array in dispatch order
    attempts TEXT,

    -- Result
    outcome TEXT NOT NULL,
    provider TEXT,
    model TEXT,
    error TEXT,

    -- Timing and usage
    latency_ms INTEGER,
    input_tokens INTEGER,
    output_tokens INTEGER
);

-- Indexes for the query filters
CREATE INDEX IF NOT EXISTS idx_traces_time ON traces(time);
CREATE INDEX IF NOT EXISTS idx_traces_provider ON traces(provider);
CREATE INDEX IF NOT EXISTS idx_traces_resolved_model ON traces(resolved_model);
CREATE INDEX IF NOT EXISTS idx_traces_outcome ON traces(outcome);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);
`

// InsertSchemaVersion records the schema version after creation.
const InsertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version) VALUES (?);`

// GetSchemaVersion reads the recorded schema version.
const GetSchemaVersion = `SELECT version FROM schema_version LIMIT 1;`
