package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "snowflake/pkg/domain"
	audit "snowflake/pkg/platform/audit"
)

// Schema creates the audit_events table.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id          UUID PRIMARY KEY,
	category    TEXT        NOT NULL,
	timestamp   TIMESTAMPTZ NOT NULL,
	token_id    BIGINT      NOT NULL,
	subject     TEXT        NOT NULL,
	actor_id    TEXT        NOT NULL,
	action      TEXT        NOT NULL,
	request_id  TEXT        NOT NULL,
	field_index INT         NOT NULL,
	keys        TEXT[]      NOT NULL,
	decision    TEXT        NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_events_token_idx ON audit_events (token_id, timestamp);
`

// Store implements audit.Store and audit.Reader on PostgreSQL.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the audit schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate audit schema: %w", err)
	}
	return nil
}

// Append inserts an event. Duplicate ids are ignored.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := event.ID
	if eventID == uuid.Nil {
		eventID = uuid.New()
	}
	keys := event.Keys
	if keys == nil {
		keys = []string{}
	}
	query := `
		INSERT INTO audit_events (
			id, category, timestamp, token_id, subject, actor_id,
			action, request_id, field_index, keys, decision
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		eventID,
		string(audit.AuditEvent(event.Action).Category()),
		event.Timestamp,
		int64(event.TokenID),
		event.Subject.String(),
		event.ActorID.String(),
		event.Action,
		event.RequestID,
		event.FieldIndex,
		pq.Array(keys),
		event.Decision,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByToken returns events for a token, oldest first.
func (s *Store) ListByToken(ctx context.Context, tokenID id.TokenID) ([]audit.Event, error) {
	query := `
		SELECT id, category, timestamp, token_id, subject, actor_id,
			   action, request_id, field_index, keys, decision
		FROM audit_events
		WHERE token_id = $1
		ORDER BY timestamp ASC
	`
	rows, err := s.db.QueryContext(ctx, query, int64(tokenID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			event    audit.Event
			category string
			rawToken int64
			subject  string
			actor    string
			keys     pq.StringArray
		)
		if err := rows.Scan(&event.ID, &category, &event.Timestamp, &rawToken, &subject, &actor,
			&event.Action, &event.RequestID, &event.FieldIndex, &keys, &event.Decision); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = audit.EventCategory(category)
		event.TokenID = id.TokenID(rawToken)
		event.Subject = id.Address(subject)
		event.ActorID = id.Address(actor)
		event.Keys = []string(keys)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
