// Copyright (c) 2026 John Dewey

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to
// deal in the Software without restriction, including without limitation the
// rights to use, copy, modify, merge, publish, distribute, sublicense, and/or
// sell copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:

// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER
// DEALINGS IN THE SOFTWARE.

package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/retr0h/pantry/internal/audit/migrations"
)

// uniqueViolation is the Postgres SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

const entryColumns = `id, recorded_at, actor, action, resource_type, fingerprint,
	status_code, duration_ms, ip, user_agent, method, path`

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(
	ctx context.Context,
	db *sql.DB,
	dir string,
	opts ...goose.OptionsFunc,
) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// ensure PostgresStore implements Store at compile time.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store on a Postgres table that only ever sees
// INSERT. A trigger installed by the migration rejects UPDATE and DELETE.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenPostgres opens and pings a Postgres connection through pgx.
func OpenPostgres(
	ctx context.Context,
	dsn string,
) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	return db, nil
}

// Migrate applies the embedded audit schema migrations.
func Migrate(
	ctx context.Context,
	db *sql.DB,
) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("setting migration dialect: %w", err)
	}

	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrating audit schema: %w", err)
	}

	return nil
}

// NewPostgresStore creates a PostgresStore.
func NewPostgresStore(
	logger *slog.Logger,
	db *sql.DB,
) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger,
	}
}

// Write inserts entry.
func (s *PostgresStore) Write(
	ctx context.Context,
	entry Entry,
) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO audit_entries (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		entry.ID,
		entry.Timestamp,
		entry.Actor,
		entry.Action,
		entry.ResourceType,
		entry.Fingerprint,
		entry.StatusCode,
		entry.DurationMs,
		entry.IP,
		entry.UserAgent,
		entry.Method,
		entry.Path,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicate, entry.ID)
		}
		return fmt.Errorf("insert audit entry: %w", err)
	}

	return nil
}

// Get retrieves a single audit entry by ID.
func (s *PostgresStore) Get(
	ctx context.Context,
	id string,
) (*Entry, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+entryColumns+` FROM audit_entries WHERE id = $1`,
		id,
	)

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get audit entry: %w", err)
	}

	return &entry, nil
}

// List retrieves audit entries with pagination, newest first.
func (s *PostgresStore) List(
	ctx context.Context,
	limit int,
	offset int,
) ([]Entry, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM audit_entries`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+entryColumns+` FROM audit_entries
		ORDER BY recorded_at DESC, id DESC
		LIMIT $1 OFFSET $2`,
		limit,
		offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate audit entries: %w", err)
	}

	return entries, total, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(
	row scanner,
) (Entry, error) {
	var e Entry
	err := row.Scan(
		&e.ID,
		&e.Timestamp,
		&e.Actor,
		&e.Action,
		&e.ResourceType,
		&e.Fingerprint,
		&e.StatusCode,
		&e.DurationMs,
		&e.IP,
		&e.UserAgent,
		&e.Method,
		&e.Path,
	)
	if err != nil {
		return Entry{}, err
	}

	e.Timestamp = e.Timestamp.UTC()
	return e, nil
}
