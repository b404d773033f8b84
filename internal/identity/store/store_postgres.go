package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"snowflake/internal/identity/models"
	id "snowflake/pkg/domain"
	dErrors "snowflake/pkg/domain-errors"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// Schema creates the registry tables. Migrate applies it idempotently.
const Schema = `
CREATE TABLE IF NOT EXISTS identity_token_sequence (
	singleton BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
	last_id   BIGINT  NOT NULL
);
INSERT INTO identity_token_sequence (singleton, last_id) VALUES (TRUE, 0) ON CONFLICT DO NOTHING;

CREATE TABLE IF NOT EXISTS identity_tokens (
	id        BIGINT PRIMARY KEY,
	owner     TEXT NOT NULL UNIQUE,
	handle    TEXT NOT NULL UNIQUE,
	minted_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS identity_token_resolvers (
	token_id BIGINT NOT NULL REFERENCES identity_tokens(id),
	position INT    NOT NULL,
	resolver TEXT   NOT NULL,
	PRIMARY KEY (token_id, position),
	UNIQUE (token_id, resolver)
);

CREATE TABLE IF NOT EXISTS identity_fields (
	token_id    BIGINT NOT NULL REFERENCES identity_tokens(id),
	field_index INT    NOT NULL,
	vocabulary  TEXT[],
	PRIMARY KEY (token_id, field_index)
);

CREATE TABLE IF NOT EXISTS identity_entries (
	token_id          BIGINT NOT NULL,
	field_index       INT    NOT NULL,
	entry_key         TEXT   NOT NULL,
	value             BYTEA  NOT NULL,
	stored_position   INT    NOT NULL,
	declared_position INT,
	PRIMARY KEY (token_id, field_index, entry_key),
	FOREIGN KEY (token_id, field_index) REFERENCES identity_fields(token_id, field_index)
);

CREATE UNIQUE INDEX IF NOT EXISTS identity_entries_stored_position
	ON identity_entries (token_id, field_index, stored_position);
CREATE UNIQUE INDEX IF NOT EXISTS identity_entries_declared_position
	ON identity_entries (token_id, field_index, declared_position);

CREATE TABLE IF NOT EXISTS identity_attestations (
	token_id    BIGINT      NOT NULL,
	field_index INT         NOT NULL,
	entry_key   TEXT        NOT NULL,
	position    INT         NOT NULL,
	verifier    TEXT        NOT NULL,
	status      TEXT        NOT NULL,
	attested_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (token_id, field_index, entry_key, position),
	FOREIGN KEY (token_id, field_index, entry_key)
		REFERENCES identity_entries(token_id, field_index, entry_key) ON DELETE CASCADE
);
`

// Migrate creates the registry schema if it does not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate identity schema: %w", err)
	}
	return nil
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore persists the registry in PostgreSQL. Outside RunInTx each
// call runs in its own implicit transaction; inside, token rows are locked
// FOR UPDATE so writers on the same token are linearized. WriteEntries always
// runs in a transaction and locks its field row.
type PostgresStore struct {
	db      *sql.DB
	q       queryer
	inTx    bool
	timeout time.Duration
}

type PostgresOption func(*PostgresStore)

// WithPostgresTxTimeout overrides the default transaction timeout.
func WithPostgresTxTimeout(d time.Duration) PostgresOption {
	return func(s *PostgresStore) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewPostgres constructs a PostgreSQL-backed registry store.
func NewPostgres(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db, q: db, timeout: defaultTxTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// RunInTx runs fn inside a read-committed transaction.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(store Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin registry tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(&PostgresStore{db: s.db, q: tx, inTx: true, timeout: s.timeout}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit registry tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) NextTokenID(ctx context.Context) (id.TokenID, error) {
	var next int64
	err := s.q.QueryRowContext(ctx,
		`UPDATE identity_token_sequence SET last_id = last_id + 1 WHERE singleton RETURNING last_id`,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next token id: %w", err)
	}
	return id.TokenID(next), nil
}

func (s *PostgresStore) CreateToken(ctx context.Context, token *models.IdentityToken, kinds []models.FieldKind) error {
	if token == nil {
		return fmt.Errorf("token is required")
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO identity_tokens (id, owner, handle, minted_at) VALUES ($1, $2, $3, $4)`,
		int64(token.ID), token.Owner.String(), token.Handle.String(), token.MintedAt)
	if err != nil {
		return translate(err, "create token")
	}
	for index, kind := range kinds {
		_, err := s.q.ExecContext(ctx,
			`INSERT INTO identity_fields (token_id, field_index, vocabulary) VALUES ($1, $2, $3)`,
			int64(token.ID), index, pq.Array(kind.Vocabulary()))
		if err != nil {
			return translate(err, "create token field")
		}
	}
	return nil
}

func (s *PostgresStore) FindToken(ctx context.Context, tokenID id.TokenID) (*models.IdentityToken, error) {
	query := `SELECT id, owner, handle, minted_at FROM identity_tokens WHERE id = $1`
	if s.inTx {
		query += ` FOR UPDATE`
	}
	var (
		rawID  int64
		owner  string
		handle string
		minted time.Time
	)
	err := s.q.QueryRowContext(ctx, query, int64(tokenID)).Scan(&rawID, &owner, &handle, &minted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find token: %w", err)
	}
	tok := &models.IdentityToken{
		ID:        id.TokenID(rawID),
		Owner:     id.Address(owner),
		Handle:    id.Handle(handle),
		FieldIDs:  []int{},
		Resolvers: []id.Address{},
		MintedAt:  minted,
	}

	fieldRows, err := s.q.QueryContext(ctx,
		`SELECT field_index FROM identity_fields WHERE token_id = $1 ORDER BY field_index`, rawID)
	if err != nil {
		return nil, fmt.Errorf("list token fields: %w", err)
	}
	defer fieldRows.Close()
	for fieldRows.Next() {
		var index int
		if err := fieldRows.Scan(&index); err != nil {
			return nil, fmt.Errorf("scan token field: %w", err)
		}
		tok.FieldIDs = append(tok.FieldIDs, index)
	}
	if err := fieldRows.Err(); err != nil {
		return nil, fmt.Errorf("list token fields: %w", err)
	}

	resolverRows, err := s.q.QueryContext(ctx,
		`SELECT resolver FROM identity_token_resolvers WHERE token_id = $1 ORDER BY position`, rawID)
	if err != nil {
		return nil, fmt.Errorf("list token resolvers: %w", err)
	}
	defer resolverRows.Close()
	for resolverRows.Next() {
		var resolver string
		if err := resolverRows.Scan(&resolver); err != nil {
			return nil, fmt.Errorf("scan token resolver: %w", err)
		}
		tok.Resolvers = append(tok.Resolvers, id.Address(resolver))
	}
	if err := resolverRows.Err(); err != nil {
		return nil, fmt.Errorf("list token resolvers: %w", err)
	}
	return tok, nil
}

func (s *PostgresStore) FindTokenByOwner(ctx context.Context, owner id.Address) (*models.IdentityToken, error) {
	return s.findTokenBy(ctx, `SELECT id FROM identity_tokens WHERE owner = $1`, owner.String())
}

func (s *PostgresStore) FindTokenByHandle(ctx context.Context, handle id.Handle) (*models.IdentityToken, error) {
	return s.findTokenBy(ctx, `SELECT id FROM identity_tokens WHERE handle = $1`, handle.String())
}

func (s *PostgresStore) findTokenBy(ctx context.Context, query string, arg string) (*models.IdentityToken, error) {
	var rawID int64
	if err := s.q.QueryRowContext(ctx, query, arg).Scan(&rawID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find token: %w", err)
	}
	return s.FindToken(ctx, id.TokenID(rawID))
}

func (s *PostgresStore) AppendResolver(ctx context.Context, tokenID id.TokenID, resolver id.Address) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO identity_token_resolvers (token_id, position, resolver)
		SELECT $1, COALESCE(MAX(position) + 1, 0), $2
		FROM identity_token_resolvers WHERE token_id = $1`,
		int64(tokenID), resolver.String())
	return translate(err, "append resolver")
}

func (s *PostgresStore) AddField(ctx context.Context, tokenID id.TokenID, kind models.FieldKind) (int, error) {
	var index int
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO identity_fields (token_id, field_index, vocabulary)
		SELECT $1, COALESCE(MAX(field_index) + 1, 0), $2
		FROM identity_fields WHERE token_id = $1
		RETURNING field_index`,
		int64(tokenID), pq.Array(kind.Vocabulary())).Scan(&index)
	if err != nil {
		return 0, translate(err, "add field")
	}
	return index, nil
}

func (s *PostgresStore) FindField(ctx context.Context, tokenID id.TokenID, index int) (*models.Field, error) {
	var vocabulary pq.StringArray
	err := s.q.QueryRowContext(ctx,
		`SELECT vocabulary FROM identity_fields WHERE token_id = $1 AND field_index = $2`,
		int64(tokenID), index).Scan(&vocabulary)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find field: %w", err)
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT entry_key FROM identity_entries
		WHERE token_id = $1 AND field_index = $2 AND declared_position IS NOT NULL
		ORDER BY declared_position`,
		int64(tokenID), index)
	if err != nil {
		return nil, fmt.Errorf("list entry keys: %w", err)
	}
	defer rows.Close()
	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan entry key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entry keys: %w", err)
	}

	kind := models.Extensible()
	if len(vocabulary) > 0 {
		kind = models.Fixed(vocabulary...)
	}
	return &models.Field{TokenID: tokenID, Index: index, Kind: kind, EntryKeys: keys}, nil
}

func (s *PostgresStore) WriteEntries(ctx context.Context, tokenID id.TokenID, index int, keys []string, values []models.Digest, mode WriteMode) error {
	if len(keys) != len(values) {
		return dErrors.New(dErrors.CodeLengthMismatch, fmt.Sprintf("got %d keys and %d values", len(keys), len(values)))
	}
	if !s.inTx {
		return s.RunInTx(ctx, func(st Store) error {
			return st.WriteEntries(ctx, tokenID, index, keys, values, mode)
		})
	}
	if err := s.lockField(ctx, tokenID, index); err != nil {
		return err
	}
	for i, key := range keys {
		_, err := s.q.ExecContext(ctx, `
			INSERT INTO identity_entries (token_id, field_index, entry_key, value, stored_position, declared_position)
			VALUES ($1, $2, $3, $4,
				(SELECT COALESCE(MAX(stored_position) + 1, 0) FROM identity_entries WHERE token_id = $1 AND field_index = $2),
				CASE WHEN $5::boolean THEN
					(SELECT COALESCE(MAX(declared_position) + 1, 0) FROM identity_entries WHERE token_id = $1 AND field_index = $2)
				END)
			ON CONFLICT (token_id, field_index, entry_key) DO UPDATE SET
				value = EXCLUDED.value,
				declared_position = COALESCE(identity_entries.declared_position, EXCLUDED.declared_position)`,
			int64(tokenID), index, key, []byte(values[i]), mode.Declare)
		if err != nil {
			return translate(err, "write entry")
		}
		if mode.ClearAttestations {
			_, err := s.q.ExecContext(ctx,
				`DELETE FROM identity_attestations WHERE token_id = $1 AND field_index = $2 AND entry_key = $3`,
				int64(tokenID), index, key)
			if err != nil {
				return fmt.Errorf("clear attestations: %w", err)
			}
		}
	}
	return nil
}

// lockField takes the field row FOR UPDATE so position assignment in
// WriteEntries is serialized per field.
func (s *PostgresStore) lockField(ctx context.Context, tokenID id.TokenID, index int) error {
	var one int
	err := s.q.QueryRowContext(ctx,
		`SELECT 1 FROM identity_fields WHERE token_id = $1 AND field_index = $2 FOR UPDATE`,
		int64(tokenID), index).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock field: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindEntry(ctx context.Context, tokenID id.TokenID, index int, key string) (*models.Entry, error) {
	var value []byte
	err := s.q.QueryRowContext(ctx,
		`SELECT value FROM identity_entries WHERE token_id = $1 AND field_index = $2 AND entry_key = $3`,
		int64(tokenID), index, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find entry: %w", err)
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT verifier, status, attested_at FROM identity_attestations
		WHERE token_id = $1 AND field_index = $2 AND entry_key = $3
		ORDER BY position`,
		int64(tokenID), index, key)
	if err != nil {
		return nil, fmt.Errorf("list attestations: %w", err)
	}
	defer rows.Close()
	atts := []models.Attestation{}
	for rows.Next() {
		att, err := scanAttestation(rows)
		if err != nil {
			return nil, err
		}
		atts = append(atts, att)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attestations: %w", err)
	}
	return &models.Entry{Key: key, Value: models.Digest(value), Attestations: atts}, nil
}

func (s *PostgresStore) ListFieldAttestations(ctx context.Context, tokenID id.TokenID, index int) ([]models.FieldAttestation, error) {
	if _, err := s.FindField(ctx, tokenID, index); err != nil {
		return nil, err
	}
	rows, err := s.q.QueryContext(ctx, `
		SELECT a.entry_key, a.verifier, a.status, a.attested_at
		FROM identity_attestations a
		JOIN identity_entries e USING (token_id, field_index, entry_key)
		WHERE a.token_id = $1 AND a.field_index = $2
		ORDER BY e.stored_position, a.position`,
		int64(tokenID), index)
	if err != nil {
		return nil, fmt.Errorf("list field attestations: %w", err)
	}
	defer rows.Close()
	out := []models.FieldAttestation{}
	for rows.Next() {
		var (
			key      string
			verifier string
			status   string
			at       time.Time
		)
		if err := rows.Scan(&key, &verifier, &status, &at); err != nil {
			return nil, fmt.Errorf("scan field attestation: %w", err)
		}
		out = append(out, models.FieldAttestation{
			Key: key,
			Attestation: models.Attestation{
				Verifier:   id.Address(verifier),
				Status:     models.AttestationStatus(status),
				AttestedAt: at,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list field attestations: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) AppendAttestation(ctx context.Context, tokenID id.TokenID, index int, key string, att models.Attestation) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO identity_attestations (token_id, field_index, entry_key, position, verifier, status, attested_at)
		SELECT $1, $2, $3, COALESCE(MAX(position) + 1, 0), $4, $5, $6
		FROM identity_attestations WHERE token_id = $1 AND field_index = $2 AND entry_key = $3`,
		int64(tokenID), index, key, att.Verifier.String(), string(att.Status), att.AttestedAt)
	return translate(err, "append attestation")
}

func scanAttestation(rows *sql.Rows) (models.Attestation, error) {
	var (
		verifier string
		status   string
		at       time.Time
	)
	if err := rows.Scan(&verifier, &status, &at); err != nil {
		return models.Attestation{}, fmt.Errorf("scan attestation: %w", err)
	}
	return models.Attestation{
		Verifier:   id.Address(verifier),
		Status:     models.AttestationStatus(status),
		AttestedAt: at,
	}, nil
}

// translate maps constraint violations onto store sentinels.
func translate(err error, op string) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return ErrAlreadyUsed
		case pqForeignKeyViolation:
			return ErrNotFound
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
