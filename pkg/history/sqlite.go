package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mercator-hq/callisto/pkg/asset"
	"mercator-hq/callisto/pkg/partition"
)

// SQLiteConfig contains configuration for the SQLite history backend.
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

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/history.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore implements Store using SQLite. Tick commits are transactional:
// either every record of a tick is visible to the next tick or none is.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStore opens the database, applies the schema and verifies the
// schema version.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "history.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "open", Cause: err}
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStore{db: db, config: config, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite history store initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return &StorageError{Backend: "sqlite", Op: "enable_wal", Cause: err}
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return &StorageError{Backend: "sqlite", Op: "set_busy_timeout", Cause: err}
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return &StorageError{Backend: "sqlite", Op: "create_schema", Cause: err}
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return &StorageError{Backend: "sqlite", Op: "insert_schema_version", Cause: err}
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return &StorageError{Backend: "sqlite", Op: "get_schema_version", Cause: err}
	}
	if version != SchemaVersion {
		return &StorageError{Backend: "sqlite", Op: "schema_version_mismatch",
			Cause: fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version)}
	}
	return nil
}

// Latest returns the most recent record for key, or nil if none exists.
func (s *SQLiteStore) Latest(ctx context.Context, key asset.Key) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tick_id, tick_index, asset_key, evaluation_time,
		       condition_fingerprint, code_version,
		       request_subset, sub_results, update_seqs, warnings
		FROM evaluation_records
		WHERE asset_key = ?
		ORDER BY tick_index DESC
		LIMIT 1`, string(key))

	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "latest", Cause: err}
	}
	return record, nil
}

// Commit atomically appends all records of one completed tick.
func (s *SQLiteStore) Commit(ctx context.Context, records []*Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Backend: "sqlite", Op: "begin", Cause: err}
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO evaluation_records (
			id, tick_id, tick_index, asset_key, evaluation_time,
			condition_fingerprint, code_version,
			request_subset, sub_results, update_seqs, warnings
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return &StorageError{Backend: "sqlite", Op: "prepare", Cause: err}
	}
	defer stmt.Close()

	for _, record := range records {
		requestSubset, err := marshalSubset(record.RequestSubset)
		if err != nil {
			return &StorageError{Backend: "sqlite", Op: "marshal_request_subset", Cause: err}
		}
		subResults, err := marshalSubResults(record.SubResults)
		if err != nil {
			return &StorageError{Backend: "sqlite", Op: "marshal_sub_results", Cause: err}
		}
		updateSeqs, err := json.Marshal(record.UpdateSeqs)
		if err != nil {
			return &StorageError{Backend: "sqlite", Op: "marshal_update_seqs", Cause: err}
		}
		warnings, err := json.Marshal(record.Warnings)
		if err != nil {
			return &StorageError{Backend: "sqlite", Op: "marshal_warnings", Cause: err}
		}

		_, err = stmt.ExecContext(ctx,
			record.ID,
			record.TickID,
			int64(record.TickIndex),
			string(record.AssetKey),
			record.EvaluationTime.UTC(),
			strconv.FormatUint(record.ConditionFingerprint, 16),
			record.CodeVersion,
			string(requestSubset),
			string(subResults),
			string(updateSeqs),
			string(warnings),
		)
		if err != nil {
			return &StorageError{Backend: "sqlite", Op: "insert", Cause: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StorageError{Backend: "sqlite", Op: "commit", Cause: err}
	}
	return nil
}

// Query returns records matching q, newest first.
func (s *SQLiteStore) Query(ctx context.Context, q *Query) ([]*Record, error) {
	query := `
		SELECT id, tick_id, tick_index, asset_key, evaluation_time,
		       condition_fingerprint, code_version,
		       request_subset, sub_results, update_seqs, warnings
		FROM evaluation_records
		WHERE 1=1`
	var args []any
	if q != nil {
		if q.AssetKey != "" {
			query += " AND asset_key = ?"
			args = append(args, string(q.AssetKey))
		}
		if q.StartTime != nil {
			query += " AND evaluation_time >= ?"
			args = append(args, q.StartTime.UTC())
		}
		if q.EndTime != nil {
			query += " AND evaluation_time <= ?"
			args = append(args, q.EndTime.UTC())
		}
	}
	query += " ORDER BY tick_index DESC, asset_key"
	if q != nil && q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "query", Cause: err}
	}
	defer rows.Close()

	var results []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, &StorageError{Backend: "sqlite", Op: "scan", Cause: err}
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "rows", Cause: err}
	}
	return results, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		record         Record
		assetKey       string
		fingerprint    string
		requestSubset  string
		subResults     sql.NullString
		updateSeqs     sql.NullString
		warnings       sql.NullString
		evaluationTime time.Time
		tickIndex      int64
	)
	err := row.Scan(
		&record.ID,
		&record.TickID,
		&tickIndex,
		&assetKey,
		&evaluationTime,
		&fingerprint,
		&record.CodeVersion,
		&requestSubset,
		&subResults,
		&updateSeqs,
		&warnings,
	)
	if err != nil {
		return nil, err
	}

	record.TickIndex = uint64(tickIndex)
	record.AssetKey = asset.Key(assetKey)
	record.EvaluationTime = evaluationTime.UTC()

	record.ConditionFingerprint, err = strconv.ParseUint(fingerprint, 16, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid condition fingerprint %q: %w", fingerprint, err)
	}

	record.RequestSubset, err = unmarshalSubset([]byte(requestSubset))
	if err != nil {
		return nil, fmt.Errorf("invalid request subset: %w", err)
	}
	if subResults.Valid && subResults.String != "" {
		record.SubResults, err = unmarshalSubResults([]byte(subResults.String))
		if err != nil {
			return nil, fmt.Errorf("invalid sub results: %w", err)
		}
	}
	if updateSeqs.Valid && updateSeqs.String != "" && updateSeqs.String != "null" {
		if err := json.Unmarshal([]byte(updateSeqs.String), &record.UpdateSeqs); err != nil {
			return nil, fmt.Errorf("invalid update seqs: %w", err)
		}
	}
	if warnings.Valid && warnings.String != "" && warnings.String != "null" {
		if err := json.Unmarshal([]byte(warnings.String), &record.Warnings); err != nil {
			return nil, fmt.Errorf("invalid warnings: %w", err)
		}
	}
	return &record, nil
}

func marshalSubset(s partition.Subset) ([]byte, error) {
	keys := s.Keys()
	if keys == nil {
		keys = []partition.Key{}
	}
	return json.Marshal(keys)
}

func unmarshalSubset(data []byte) (partition.Subset, error) {
	var keys []partition.Key
	if err := json.Unmarshal(data, &keys); err != nil {
		return partition.Empty(), err
	}
	return partition.NewSubset(keys...), nil
}

func marshalSubResults(subResults map[string]partition.Subset) ([]byte, error) {
	if len(subResults) == 0 {
		return []byte("{}"), nil
	}
	out := make(map[string][]partition.Key, len(subResults))
	for k, s := range subResults {
		keys := s.Keys()
		if keys == nil {
			keys = []partition.Key{}
		}
		out[k] = keys
	}
	return json.Marshal(out)
}

func unmarshalSubResults(data []byte) (map[string]partition.Subset, error) {
	var raw map[string][]partition.Key
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make(map[string]partition.Subset, len(raw))
	for k, keys := range raw {
		out[k] = partition.NewSubset(keys...)
	}
	return out, nil
}
