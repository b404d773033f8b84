package store

import (
	"context"

	"snowflake/internal/identity/models"
	id "snowflake/pkg/domain"
	"snowflake/pkg/platform/sentinel"
)

// ErrNotFound and ErrAlreadyUsed are the facts stores report; the service
// translates them into domain errors.
var (
	ErrNotFound    = sentinel.ErrNotFound
	ErrAlreadyUsed = sentinel.ErrAlreadyUsed
)

// WriteMode controls how WriteEntries applies a batch.
type WriteMode struct {
	// Declare appends unseen keys to the field's EntryKeys. Mint writes the
	// fixed vocabularies without declaring them.
	Declare bool
	// ClearAttestations resets the attestation list of every written key.
	ClearAttestations bool
}

// Store is the registry state a single operation runs against. Inside
// RunInTx every call belongs to the same transaction.
type Store interface {
	NextTokenID(ctx context.Context) (id.TokenID, error)
	CreateToken(ctx context.Context, token *models.IdentityToken, kinds []models.FieldKind) error
	FindToken(ctx context.Context, tokenID id.TokenID) (*models.IdentityToken, error)
	FindTokenByOwner(ctx context.Context, owner id.Address) (*models.IdentityToken, error)
	FindTokenByHandle(ctx context.Context, handle id.Handle) (*models.IdentityToken, error)
	AppendResolver(ctx context.Context, tokenID id.TokenID, resolver id.Address) error
	AddField(ctx context.Context, tokenID id.TokenID, kind models.FieldKind) (int, error)
	FindField(ctx context.Context, tokenID id.TokenID, index int) (*models.Field, error)
	WriteEntries(ctx context.Context, tokenID id.TokenID, index int, keys []string, values []models.Digest, mode WriteMode) error
	FindEntry(ctx context.Context, tokenID id.TokenID, index int, key string) (*models.Entry, error)
	ListFieldAttestations(ctx context.Context, tokenID id.TokenID, index int) ([]models.FieldAttestation, error)
	AppendAttestation(ctx context.Context, tokenID id.TokenID, index int, key string, att models.Attestation) error
}

// Tx provides the transactional boundary for registry mutations. Either every
// write made through fn's Store is applied, or none is.
type Tx interface {
	RunInTx(ctx context.Context, fn func(store Store) error) error
}
