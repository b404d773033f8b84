package models

import (
	"fmt"
	"strings"
	"unicode/utf8"

	id "snowflake/pkg/domain"
	dErrors "snowflake/pkg/domain-errors"
)

const maxEntryKeyLen = 64

// MintRequest carries the two built-in field payloads, positional against
// NameVocabulary and DateOfBirthVocabulary.
type MintRequest struct {
	Owner        id.Address
	Handle       id.Handle
	NameEntries  []Digest
	BirthEntries []Digest
}

// Validate checks payload arity before any state is touched.
func (r *MintRequest) Validate() error {
	if r.Owner.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "owner is required")
	}
	if r.Handle == "" {
		return dErrors.New(dErrors.CodeValidation, "handle is required")
	}
	if len(r.NameEntries) != len(NameVocabulary) {
		return dErrors.New(dErrors.CodeLengthMismatch,
			fmt.Sprintf("names field expects %d entries, got %d", len(NameVocabulary), len(r.NameEntries)))
	}
	if len(r.BirthEntries) != len(DateOfBirthVocabulary) {
		return dErrors.New(dErrors.CodeLengthMismatch,
			fmt.Sprintf("date of birth field expects %d entries, got %d", len(DateOfBirthVocabulary), len(r.BirthEntries)))
	}
	return nil
}

// WriteEntriesRequest adds or updates entries of an existing field, or of a
// new field when FieldIndex is NewField or the token's next field index.
type WriteEntriesRequest struct {
	TokenID           id.TokenID
	FieldIndex        int
	Keys              []string
	Values            []Digest
	ClearAttestations bool
	Caller            id.Address
}

// Normalize trims entry keys.
func (r *WriteEntriesRequest) Normalize() {
	for i, k := range r.Keys {
		r.Keys[i] = strings.TrimSpace(k)
	}
}

// Validate checks arity and key shape.
func (r *WriteEntriesRequest) Validate() error {
	if r.TokenID.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "token id is required")
	}
	if r.FieldIndex < NewField {
		return dErrors.New(dErrors.CodeValidation, "field index must be non-negative")
	}
	if len(r.Keys) != len(r.Values) {
		return dErrors.New(dErrors.CodeLengthMismatch,
			fmt.Sprintf("got %d keys and %d values", len(r.Keys), len(r.Values)))
	}
	for _, k := range r.Keys {
		if err := ValidateEntryKey(k); err != nil {
			return err
		}
	}
	return nil
}

// ValidateEntryKey rejects empty or oversized keys.
func ValidateEntryKey(key string) error {
	if key == "" {
		return dErrors.New(dErrors.CodeValidation, "entry key is required")
	}
	if utf8.RuneCountInString(key) > maxEntryKeyLen {
		return dErrors.New(dErrors.CodeValidation, "entry key must be 64 characters or less")
	}
	return nil
}

// TokenDetails is the read model of tokenDetails.
type TokenDetails struct {
	Owner     id.Address   `json:"owner"`
	Handle    id.Handle    `json:"handle"`
	FieldIDs  []int        `json:"field_ids"`
	Resolvers []id.Address `json:"resolvers"`
}

// FieldDetails is the read model of fieldDetails.
type FieldDetails struct {
	EntryKeys    []string           `json:"entry_keys"`
	Attestations []FieldAttestation `json:"attestations"`
}

// EntryDetails is the read model of entryDetails.
type EntryDetails struct {
	Value        Digest        `json:"value"`
	Attestations []Attestation `json:"attestations"`
}

// AttestRequest records a verifier's statement about one entry.
type AttestRequest struct {
	TokenID    id.TokenID
	FieldIndex int
	Key        string
	Status     AttestationStatus
	Verifier   id.Address
}

func (r *AttestRequest) Normalize() {
	r.Key = strings.TrimSpace(r.Key)
	r.Status = AttestationStatus(strings.ToLower(strings.TrimSpace(string(r.Status))))
}

func (r *AttestRequest) Validate() error {
	if r.TokenID.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "token id is required")
	}
	if r.FieldIndex < 0 {
		return dErrors.New(dErrors.CodeValidation, "field index must be non-negative")
	}
	if err := ValidateEntryKey(r.Key); err != nil {
		return err
	}
	if r.Verifier.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "verifier is required")
	}
	if !r.Status.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "status must be one of verified, rejected, revoked")
	}
	return nil
}
