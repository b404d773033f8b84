package store

import (
	"slices"

	"snowflake/internal/identity/models"
)

// EntryStore holds the entries of one token, keyed by field index and key.
//
// Per field it tracks two orders: declared keys (EntryKeys, first Put wins
// the position) and stored keys (every key holding a value, including the
// ones Seed writes without declaring).
type EntryStore struct {
	fields map[int]*fieldEntries
}

type fieldEntries struct {
	declared []string
	stored   []string
	values   map[string]*entryRecord
}

type entryRecord struct {
	value        models.Digest
	attestations []models.Attestation
}

func NewEntryStore() *EntryStore {
	return &EntryStore{fields: make(map[int]*fieldEntries)}
}

func (s *EntryStore) field(fieldIndex int) *fieldEntries {
	f, ok := s.fields[fieldIndex]
	if !ok {
		f = &fieldEntries{values: make(map[string]*entryRecord)}
		s.fields[fieldIndex] = f
	}
	return f
}

// Put stores value under key and declares key on first sight. Overwriting
// keeps the key's position and its attestations.
func (s *EntryStore) Put(fieldIndex int, key string, value models.Digest) {
	f := s.field(fieldIndex)
	if !slices.Contains(f.declared, key) {
		f.declared = append(f.declared, key)
	}
	f.store(key, value)
}

// Seed stores value under key without declaring it.
func (s *EntryStore) Seed(fieldIndex int, key string, value models.Digest) {
	s.field(fieldIndex).store(key, value)
}

func (f *fieldEntries) store(key string, value models.Digest) {
	if rec, ok := f.values[key]; ok {
		rec.value = value.Clone()
		return
	}
	f.stored = append(f.stored, key)
	f.values[key] = &entryRecord{value: value.Clone()}
}

// Get returns the entry under key, or ErrNotFound when it was never written.
func (s *EntryStore) Get(fieldIndex int, key string) (*models.Entry, error) {
	f, ok := s.fields[fieldIndex]
	if !ok {
		return nil, ErrNotFound
	}
	rec, ok := f.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &models.Entry{
		Key:          key,
		Value:        rec.value.Clone(),
		Attestations: cloneAttestations(rec.attestations),
	}, nil
}

// KeysOf returns the declared keys of a field in declaration order.
func (s *EntryStore) KeysOf(fieldIndex int) []string {
	f, ok := s.fields[fieldIndex]
	if !ok {
		return []string{}
	}
	return append([]string{}, f.declared...)
}

// Attest appends an attestation to an existing entry.
func (s *EntryStore) Attest(fieldIndex int, key string, att models.Attestation) error {
	f, ok := s.fields[fieldIndex]
	if !ok {
		return ErrNotFound
	}
	rec, ok := f.values[key]
	if !ok {
		return ErrNotFound
	}
	rec.attestations = append(rec.attestations, att)
	return nil
}

// ClearAttestations drops every attestation of key. Unknown keys are ignored.
func (s *EntryStore) ClearAttestations(fieldIndex int, key string) {
	if f, ok := s.fields[fieldIndex]; ok {
		if rec, ok := f.values[key]; ok {
			rec.attestations = nil
		}
	}
}

// Attestations summarizes a field's attestations in stored-key order.
func (s *EntryStore) Attestations(fieldIndex int) []models.FieldAttestation {
	out := []models.FieldAttestation{}
	f, ok := s.fields[fieldIndex]
	if !ok {
		return out
	}
	for _, key := range f.stored {
		for _, att := range f.values[key].attestations {
			out = append(out, models.FieldAttestation{Key: key, Attestation: att})
		}
	}
	return out
}

func (s *EntryStore) snapshot(fieldIndex int) *fieldEntries {
	f, ok := s.fields[fieldIndex]
	if !ok {
		return nil
	}
	c := &fieldEntries{
		declared: slices.Clone(f.declared),
		stored:   slices.Clone(f.stored),
		values:   make(map[string]*entryRecord, len(f.values)),
	}
	for k, rec := range f.values {
		c.values[k] = &entryRecord{value: rec.value.Clone(), attestations: cloneAttestations(rec.attestations)}
	}
	return c
}

func (s *EntryStore) restore(fieldIndex int, snap *fieldEntries) {
	if snap == nil {
		delete(s.fields, fieldIndex)
		return
	}
	s.fields[fieldIndex] = snap
}

func cloneAttestations(in []models.Attestation) []models.Attestation {
	if len(in) == 0 {
		return []models.Attestation{}
	}
	return slices.Clone(in)
}
