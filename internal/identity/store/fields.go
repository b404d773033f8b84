package store

import (
	"fmt"

	"snowflake/internal/identity/models"
	id "snowflake/pkg/domain"
	dErrors "snowflake/pkg/domain-errors"
)

// FieldStore keeps the ordered fields of every token and their entries.
type FieldStore struct {
	tokens map[id.TokenID]*tokenFields
}

type tokenFields struct {
	kinds   []models.FieldKind
	entries *EntryStore
}

func NewFieldStore() *FieldStore {
	return &FieldStore{tokens: make(map[id.TokenID]*tokenFields)}
}

// Create registers a token's initial fields at indices 0..len(kinds)-1.
// Only mint calls it.
func (s *FieldStore) Create(tokenID id.TokenID, kinds []models.FieldKind) {
	s.tokens[tokenID] = &tokenFields{
		kinds:   append([]models.FieldKind{}, kinds...),
		entries: NewEntryStore(),
	}
}

// AddField appends an extensible field and returns its index.
func (s *FieldStore) AddField(tokenID id.TokenID, kind models.FieldKind) (int, error) {
	tf, ok := s.tokens[tokenID]
	if !ok {
		return 0, ErrNotFound
	}
	tf.kinds = append(tf.kinds, kind)
	return len(tf.kinds) - 1, nil
}

// WriteEntries applies one Put (or Seed) per pair, in order. Arity is checked
// before anything is written, so the call applies fully or not at all.
func (s *FieldStore) WriteEntries(tokenID id.TokenID, index int, keys []string, values []models.Digest, mode WriteMode) error {
	if len(keys) != len(values) {
		return dErrors.New(dErrors.CodeLengthMismatch, fmt.Sprintf("got %d keys and %d values", len(keys), len(values)))
	}
	tf, err := s.lookup(tokenID, index)
	if err != nil {
		return err
	}
	for i, key := range keys {
		if mode.Declare {
			tf.entries.Put(index, key, values[i])
		} else {
			tf.entries.Seed(index, key, values[i])
		}
		if mode.ClearAttestations {
			tf.entries.ClearAttestations(index, key)
		}
	}
	return nil
}

// Field returns the field at index with its declared keys.
func (s *FieldStore) Field(tokenID id.TokenID, index int) (*models.Field, error) {
	tf, err := s.lookup(tokenID, index)
	if err != nil {
		return nil, err
	}
	return &models.Field{
		TokenID:   tokenID,
		Index:     index,
		Kind:      tf.kinds[index],
		EntryKeys: tf.entries.KeysOf(index),
	}, nil
}

// Attestations returns the attestation summary of a field.
func (s *FieldStore) Attestations(tokenID id.TokenID, index int) ([]models.FieldAttestation, error) {
	tf, err := s.lookup(tokenID, index)
	if err != nil {
		return nil, err
	}
	return tf.entries.Attestations(index), nil
}

// Entry returns one entry of a field.
func (s *FieldStore) Entry(tokenID id.TokenID, index int, key string) (*models.Entry, error) {
	tf, err := s.lookup(tokenID, index)
	if err != nil {
		return nil, err
	}
	return tf.entries.Get(index, key)
}

// Attest appends an attestation to an existing entry.
func (s *FieldStore) Attest(tokenID id.TokenID, index int, key string, att models.Attestation) error {
	tf, err := s.lookup(tokenID, index)
	if err != nil {
		return err
	}
	return tf.entries.Attest(index, key, att)
}

func (s *FieldStore) lookup(tokenID id.TokenID, index int) (*tokenFields, error) {
	tf, ok := s.tokens[tokenID]
	if !ok || index < 0 || index >= len(tf.kinds) {
		return nil, ErrNotFound
	}
	return tf, nil
}

func (s *FieldStore) drop(tokenID id.TokenID) {
	delete(s.tokens, tokenID)
}

func (s *FieldStore) popField(tokenID id.TokenID) {
	if tf, ok := s.tokens[tokenID]; ok && len(tf.kinds) > 0 {
		last := len(tf.kinds) - 1
		tf.kinds = tf.kinds[:last]
		tf.entries.restore(last, nil)
	}
}

func (s *FieldStore) snapshot(tokenID id.TokenID, index int) *fieldEntries {
	if tf, ok := s.tokens[tokenID]; ok {
		return tf.entries.snapshot(index)
	}
	return nil
}

func (s *FieldStore) restore(tokenID id.TokenID, index int, snap *fieldEntries) {
	if tf, ok := s.tokens[tokenID]; ok {
		tf.entries.restore(index, snap)
	}
}
