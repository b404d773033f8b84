package models

import (
	"slices"
	"time"

	id "snowflake/pkg/domain"
	dErrors "snowflake/pkg/domain-errors"
)

// IdentityToken is the aggregate root for one verified participant.
//
// Invariants:
//   - ID is positive and immutable once minted
//   - Owner and Handle are set at mint and never reassigned (non-transferable)
//   - FieldIDs is insertion-ordered and append-only; 0 and 1 exist from mint
//   - Resolvers is append-only and never contains the owner or duplicates
type IdentityToken struct {
	ID        id.TokenID   `json:"id"`
	Owner     id.Address   `json:"owner"`
	Handle    id.Handle    `json:"handle"`
	FieldIDs  []int        `json:"field_ids"`
	Resolvers []id.Address `json:"resolvers"`
	MintedAt  time.Time    `json:"minted_at"`
}

// NewIdentityToken builds a token in the minted state with its two built-in fields.
func NewIdentityToken(tokenID id.TokenID, owner id.Address, handle id.Handle, now time.Time) (*IdentityToken, error) {
	if tokenID.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "token id must be positive")
	}
	if owner.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "owner is required")
	}
	if handle == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "handle is required")
	}
	return &IdentityToken{
		ID:        tokenID,
		Owner:     owner,
		Handle:    handle,
		FieldIDs:  []int{FieldNames, FieldDateOfBirth},
		Resolvers: []id.Address{},
		MintedAt:  now,
	}, nil
}

// IsOwner reports whether addr owns the token.
func (t *IdentityToken) IsOwner(addr id.Address) bool {
	return addr != "" && t.Owner == addr
}

// HasResolver reports whether addr is listed as a resolver.
func (t *IdentityToken) HasResolver(addr id.Address) bool {
	return slices.Contains(t.Resolvers, addr)
}

// HasField reports whether index is one of the token's declared fields.
func (t *IdentityToken) HasField(index int) bool {
	return slices.Contains(t.FieldIDs, index)
}

// NextFieldIndex is the index the next added field will receive.
func (t *IdentityToken) NextFieldIndex() int {
	return len(t.FieldIDs)
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (t *IdentityToken) Clone() *IdentityToken {
	c := *t
	c.FieldIDs = slices.Clone(t.FieldIDs)
	c.Resolvers = slices.Clone(t.Resolvers)
	if c.Resolvers == nil {
		c.Resolvers = []id.Address{}
	}
	return &c
}
