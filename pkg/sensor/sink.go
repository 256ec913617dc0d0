package sensor

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"mercator-hq/callisto/pkg/asset"
	"mercator-hq/callisto/pkg/automation/engine"
	"mercator-hq/callisto/pkg/telemetry/logging"
)

// RequestSink receives the requested partitions of a completed tick.
// Implementations must tolerate being called with an empty request set.
type RequestSink interface {
	// Dispatch hands over the requests of one tick.
	Dispatch(ctx context.Context, result *engine.Result) error

	// Close releases sink resources.
	Close() error
}

// LogSink writes requested partitions to the structured log. It is the
// default sink when no outbox is configured.
type LogSink struct {
	logger *logging.Logger
}

// NewLogSink creates a sink logging each requested target.
func NewLogSink(logger *logging.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Dispatch logs one line per requested target.
func (s *LogSink) Dispatch(ctx context.Context, result *engine.Result) error {
	for key, subset := range result.Requests {
		s.logger.InfoContext(ctx, "partitions requested",
			"tick_id", result.TickID,
			"asset_key", string(key),
			"partitions", subset.Len(),
			"subset", subset.String(),
		)
	}
	return nil
}

// Close is a no-op for the log sink.
func (s *LogSink) Close() error { return nil }

// OutboxRequest is one durable requested partition awaiting pickup by an
// external executor.
type OutboxRequest struct {
	ID           int64
	TickID       string
	TickIndex    uint64
	AssetKey     asset.Key
	PartitionKey string
	RequestedAt  time.Time
}

// SQLiteOutbox persists requested partitions to a SQLite database so an
// external executor can drain them. Each (target, partition) pair of a tick
// becomes one row; rows are removed once marked dispatched and pruned.
type SQLiteOutbox struct {
	db        *sql.DB
	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once

	insertStmt *sql.Stmt
}

const outboxSchema = `
CREATE TABLE IF NOT EXISTS outbox_requests (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	tick_id       TEXT    NOT NULL,
	tick_index    INTEGER NOT NULL,
	asset_key     TEXT    NOT NULL,
	partition_key TEXT    NOT NULL,
	requested_at  INTEGER NOT NULL,
	dispatched    INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_outbox_dispatched ON outbox_requests(dispatched, id);
CREATE INDEX IF NOT EXISTS idx_outbox_tick ON outbox_requests(tick_id);
`

// NewSQLiteOutbox opens (or creates) the outbox database at path.
func NewSQLiteOutbox(path string, busyTimeout time.Duration) (*SQLiteOutbox, error) {
	if path == "" {
		return nil, fmt.Errorf("outbox path cannot be empty")
	}
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		path, int(busyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open outbox database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(outboxSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize outbox schema: %w", err)
	}

	insertStmt, err := db.Prepare(`
		INSERT INTO outbox_requests (tick_id, tick_index, asset_key, partition_key, requested_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare outbox insert: %w", err)
	}

	return &SQLiteOutbox{
		db:         db,
		insertStmt: insertStmt,
	}, nil
}

// Dispatch writes all requested partitions of the tick in one transaction.
func (o *SQLiteOutbox) Dispatch(ctx context.Context, result *engine.Result) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return fmt.Errorf("outbox is closed")
	}
	if len(result.Requests) == 0 {
		return nil
	}

	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin outbox transaction: %w", err)
	}
	defer tx.Rollback()

	stmt := tx.StmtContext(ctx, o.insertStmt)
	requestedAt := result.EvaluationTime.UnixMilli()

	keys := make([]asset.Key, 0, len(result.Requests))
	for key := range result.Requests {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, key := range keys {
		for _, pk := range result.Requests[key].Keys() {
			if _, err := stmt.ExecContext(ctx,
				result.TickID,
				result.TickIndex,
				string(key),
				string(pk),
				requestedAt,
			); err != nil {
				return fmt.Errorf("failed to insert outbox request: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit outbox transaction: %w", err)
	}
	return nil
}

// Pending returns up to limit undispatched requests, oldest first.
func (o *SQLiteOutbox) Pending(ctx context.Context, limit int) ([]OutboxRequest, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := o.db.QueryContext(ctx, `
		SELECT id, tick_id, tick_index, asset_key, partition_key, requested_at
		FROM outbox_requests
		WHERE dispatched = 0
		ORDER BY id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending requests: %w", err)
	}
	defer rows.Close()

	var pending []OutboxRequest
	for rows.Next() {
		var req OutboxRequest
		var assetKey string
		var requestedAt int64
		if err := rows.Scan(&req.ID, &req.TickID, &req.TickIndex, &assetKey, &req.PartitionKey, &requestedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox request: %w", err)
		}
		req.AssetKey = asset.Key(assetKey)
		req.RequestedAt = time.UnixMilli(requestedAt).UTC()
		pending = append(pending, req)
	}
	return pending, rows.Err()
}

// MarkDispatched marks the given request rows as handed to an executor.
func (o *SQLiteOutbox) MarkDispatched(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin outbox transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`UPDATE outbox_requests SET dispatched = 1 WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to mark request %d dispatched: %w", id, err)
		}
	}
	return tx.Commit()
}

// Prune removes dispatched rows older than the given cutoff.
func (o *SQLiteOutbox) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := o.db.ExecContext(ctx,
		`DELETE FROM outbox_requests WHERE dispatched = 1 AND requested_at < ?`,
		before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune outbox: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the outbox database.
func (o *SQLiteOutbox) Close() error {
	var err error
	o.closeOnce.Do(func() {
		o.mu.Lock()
		o.closed = true
		o.mu.Unlock()
		o.insertStmt.Close()
		err = o.db.Close()
	})
	return err
}
