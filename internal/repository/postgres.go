package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skyward-systems/proctorwatch/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository.
func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Connection pool configuration
	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// AppendFlags inserts the flags in a single transaction so a failure
// mid-batch leaves no partial record. The pool scopes connection
// acquisition to this call; an error path cannot leak a connection.
func (r *PostgresRepository) AppendFlags(ctx context.Context, flags []*models.Flag) error {
	if len(flags) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return &StorageError{Op: "begin", Err: err}
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	query := `
		INSERT INTO flags (id, session_id, signal_id, signal_name, severity, confidence, description, metadata, raised_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, f := range flags {
		metadata, err := json.Marshal(f.Metadata)
		if err != nil {
			return &StorageError{Op: "encode metadata", Err: err}
		}
		batch.Queue(query,
			f.ID, f.SessionID, f.SignalID, f.SignalName, string(f.Severity),
			f.Confidence, f.Description, metadata, f.RaisedAt,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range flags {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return &StorageError{Op: "insert flag", Err: err}
		}
	}
	if err := results.Close(); err != nil {
		return &StorageError{Op: "close batch", Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return &StorageError{Op: "commit", Err: err}
	}
	return nil
}

// ListFlagsBySession returns a page of the session's flag history, most
// recent first.
func (r *PostgresRepository) ListFlagsBySession(ctx context.Context, sessionID string, page, limit int) ([]*models.Flag, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM flags WHERE session_id = $1`
	if err := r.pool.QueryRow(ctx, countQuery, sessionID).Scan(&total); err != nil {
		return nil, 0, &StorageError{Op: "count flags", Err: err}
	}

	offset := (page - 1) * limit
	query := `
		SELECT id, session_id, signal_id, signal_name, severity, confidence, description, metadata, raised_at
		FROM flags
		WHERE session_id = $1
		ORDER BY raised_at DESC, signal_id ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, sessionID, limit, offset)
	if err != nil {
		return nil, 0, &StorageError{Op: "list flags", Err: err}
	}
	defer rows.Close()

	flags := []*models.Flag{}
	for rows.Next() {
		f := &models.Flag{}
		var severity string
		var metadata []byte
		if err := rows.Scan(
			&f.ID, &f.SessionID, &f.SignalID, &f.SignalName, &severity,
			&f.Confidence, &f.Description, &metadata, &f.RaisedAt,
		); err != nil {
			return nil, 0, &StorageError{Op: "scan flag", Err: err}
		}
		f.Severity = models.Severity(severity)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &f.Metadata); err != nil {
				return nil, 0, &StorageError{Op: "decode metadata", Err: err}
			}
		}
		flags = append(flags, f)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, &StorageError{Op: "iterate flags", Err: err}
	}

	return flags, total, nil
}

// Close releases the connection pool.
func (r *PostgresRepository) Close() {
	r.pool.Close()
}
