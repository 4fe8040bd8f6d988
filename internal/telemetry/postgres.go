// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

package telemetry

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS formplay_failures (
	id            uuid PRIMARY KEY,
	action        text NOT NULL,
	kind          text NOT NULL,
	message       text NOT NULL,
	http_status   integer NOT NULL DEFAULT 0,
	domain        text NOT NULL DEFAULT '',
	username      text NOT NULL DEFAULT '',
	restore_as    text NOT NULL DEFAULT '',
	session_id    text NOT NULL DEFAULT '',
	session_state text NOT NULL DEFAULT '',
	occurred_at   timestamptz NOT NULL
)`

const insertSQL = `
INSERT INTO formplay_failures
	(id, action, kind, message, http_status, domain, username, restore_as, session_id, session_state, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO NOTHING`

// PostgresReporter inserts reports into the formplay_failures table.
type PostgresReporter struct {
	Pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and creates the reports table if needed.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresReporter, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open telemetry database: %w", err)
	}
	p := &PostgresReporter{Pool: pool}
	if err := p.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// EnsureSchema creates the reports table.
func (p *PostgresReporter) EnsureSchema(ctx context.Context) error {
	if _, err := p.Pool.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create formplay_failures: %w", err)
	}
	return nil
}

func (p *PostgresReporter) Report(ctx context.Context, r Report) error {
	_, err := p.Pool.Exec(ctx, insertSQL,
		r.ID, r.Action, r.Kind, r.Message, r.HTTPStatus,
		r.Domain, r.Username, r.RestoreAs, r.SessionID, r.SessionState, r.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert failure report: %w", err)
	}
	return nil
}

func (p *PostgresReporter) Close() error {
	p.Pool.Close()
	return nil
}
