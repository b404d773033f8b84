package models

import (
	"bytes"
	"encoding/hex"
	"strings"
	"time"

	id "snowflake/pkg/domain"
	dErrors "snowflake/pkg/domain-errors"
)

// Digest is an opaque salted hash. The registry stores and returns it byte for byte.
type Digest []byte

// ParseDigest decodes a hex digest, with or without a 0x prefix.
func ParseDigest(s string) (Digest, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if s == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "digest is required")
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "digest must be hex encoded")
	}
	return Digest(b), nil
}

// ParseDigests decodes every element, preserving order.
func ParseDigests(values []string) ([]Digest, error) {
	out := make([]Digest, len(values))
	for i, v := range values {
		d, err := ParseDigest(v)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

// String renders the digest as 0x-prefixed hex.
func (d Digest) String() string {
	return "0x" + hex.EncodeToString(d)
}

// Equal compares digests byte for byte.
func (d Digest) Equal(other Digest) bool {
	return bytes.Equal(d, other)
}

// Clone copies the digest bytes.
func (d Digest) Clone() Digest {
	return bytes.Clone(d)
}

// AttestationStatus is a verifier's verdict on an entry.
type AttestationStatus string

const (
	AttestationVerified AttestationStatus = "verified"
	AttestationRejected AttestationStatus = "rejected"
	AttestationRevoked  AttestationStatus = "revoked"
)

// IsValid reports whether s is a known status.
func (s AttestationStatus) IsValid() bool {
	switch s {
	case AttestationVerified, AttestationRejected, AttestationRevoked:
		return true
	}
	return false
}

// Attestation is an external verifier's statement about one entry.
type Attestation struct {
	Verifier   id.Address        `json:"verifier"`
	Status     AttestationStatus `json:"status"`
	AttestedAt time.Time         `json:"attested_at"`
}

// FieldAttestation tags an attestation with the entry key it belongs to.
type FieldAttestation struct {
	Key string `json:"key"`
	Attestation
}

// Entry is one key/value pair of a field.
type Entry struct {
	Key          string        `json:"key"`
	Value        Digest        `json:"value"`
	Attestations []Attestation `json:"attestations"`
}
