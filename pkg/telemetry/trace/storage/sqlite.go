package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/meta-introspector/claude-code-mux/pkg/telemetry/trace"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig(path string) *SQLiteConfig {
	return &SQLiteConfig{
		Path:         path,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements trace.Storage using SQLite. Records survive
// restarts; the retention pruner keeps the file from growing forever.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens the database and initializes the schema.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		return nil, trace.NewStorageError("sqlite", "open", fmt.Errorf("nil config"))
	}
	if config.MaxOpenConns <= 0 {
		config.MaxOpenConns = 10
	}
	if config.MaxIdleConns <= 0 {
		config.MaxIdleConns = 5
	}
	if config.BusyTimeout <= 0 {
		config.BusyTimeout = 5 * time.Second
	}

	db, err := sql.Open(sqliteDriver, config.Path)
	if err != nil {
		return nil, trace.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: slog.Default().With("component", "trace.storage.sqlite"),
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("sqlite trace storage initialized",
		"path", config.Path,
		"driver", sqliteDriver,
		"wal_mode", config.WALMode,
	)

	return s, nil
}

// initialize sets up the schema and pragmas.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return trace.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return trace.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return trace.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return trace.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return trace.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return trace.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// Store persists a trace record.
func (s *SQLiteStorage) Store(ctx context.Context, record *trace.Record) error {
	attempts, err := json.Marshal(record.Attempts)
	if err != nil {
		return trace.NewStorageError("sqlite", "store", err)
	}

	query := `
		INSERT INTO traces (
			id, request_id, time,
			requested_model, resolved_model, rule, stream,
			attempts,
			outcome, provider, model, error,
			latency_ms, input_tokens, output_tokens
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		record.ID, record.RequestID, record.Time,
		record.RequestedModel, record.ResolvedModel, record.Rule, record.Stream,
		string(attempts),
		record.Outcome, nullable(record.Provider), nullable(record.Model), nullable(record.Error),
		record.LatencyMS, record.InputTokens, record.OutputTokens,
	)
	if err != nil {
		return trace.NewStorageError("sqlite", "store", err)
	}

	return nil
}

// Query retrieves records matching the filters, newest first.
func (s *SQLiteStorage) Query(ctx context.Context, query *trace.Query) ([]*trace.Record, error) {
	if err := query.Validate(); err != nil {
		return nil, trace.NewStorageError("sqlite", "query", err)
	}

	whereClause, args := buildWhereClause(query)

	sqlQuery := "SELECT * FROM traces"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}
	sqlQuery += " ORDER BY time DESC"

	limit := 100
	if query.Limit > 0 {
		limit = query.Limit
	}
	sqlQuery += fmt.Sprintf(" LIMIT %d", limit)
	if query.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, trace.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*trace.Record{}
	for rows.Next() {
		record, err := scanRow(rows)
		if err != nil {
			return nil, trace.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, trace.NewStorageError("sqlite", "query", err)
	}

	return records, nil
}

// Count returns the number of records matching the filters.
func (s *SQLiteStorage) Count(ctx context.Context, query *trace.Query) (int64, error) {
	if err := query.Validate(); err != nil {
		return 0, trace.NewStorageError("sqlite", "count", err)
	}

	whereClause, args := buildWhereClause(query)

	sqlQuery := "SELECT COUNT(*) FROM traces"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, trace.NewStorageError("sqlite", "count", err)
	}

	return count, nil
}

// DeleteBefore removes records older than cutoff.
func (s *SQLiteStorage) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM traces WHERE time < ?", cutoff)
	if err != nil {
		return 0, trace.NewStorageError("sqlite", "delete", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, trace.NewStorageError("sqlite", "delete", err)
	}

	return count, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return trace.NewStorageError("sqlite", "close", err)
	}

	s.logger.Info("sqlite trace storage closed")
	return nil
}

// nullable converts an empty string to NULL.
func nullable(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

// buildWhereClause builds a WHERE clause from query filters. Returns
// the clause (without the WHERE keyword) and its arguments.
func buildWhereClause(query *trace.Query) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if query.Since != nil {
		conditions = append(conditions, "time >= ?")
		args = append(args, *query.Since)
	}
	if query.Until != nil {
		conditions = append(conditions, "time <= ?")
		args = append(args, *query.Until)
	}
	if query.Provider != "" {
		conditions = append(conditions, "provider = ?")
		args = append(args, query.Provider)
	}
	if query.Model != "" {
		conditions = append(conditions, "resolved_model = ?")
		args = append(args, query.Model)
	}
	if query.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, query.Outcome)
	}

	whereClause := ""
	for i, condition := range conditions {
		if i > 0 {
			whereClause += " AND "
		}
		whereClause += condition
	}

	return whereClause, args
}

// scanRow scans a database row into a Record.
func scanRow(rows *sql.Rows) (*trace.Record, error) {
	var record trace.Record
	var attempts string
	var rule, provider, model, errorVal sql.NullString

	err := rows.Scan(
		&record.ID, &record.RequestID, &record.Time,
		&record.RequestedModel, &record.ResolvedModel, &rule, &record.Stream,
		&attempts,
		&record.Outcome, &provider, &model, &errorVal,
		&record.LatencyMS, &record.InputTokens, &record.OutputTokens,
	)
	if err != nil {
		return nil, err
	}

	record.Rule = rule.String
	record.Provider = provider.String
	record.Model = model.String
	record.Error = errorVal.String

	if attempts != "" {
		if err := json.Unmarshal([]byte(attempts), &record.Attempts); err != nil {
			return nil, err
		}
	}

	return &record, nil
}
