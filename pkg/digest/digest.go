// Package digest produces the salted Keccak-256 digests clients submit to the
// registry. The registry itself never calls into this package; it stores
// whatever opaque bytes it receives.
package digest

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"

	id "snowflake/pkg/domain"
	dErrors "snowflake/pkg/domain-errors"
)

// Size is the byte length of every digest produced here.
const Size = 32

// Salt derives a per-participant salt as keccak256(privateKey || address),
// matching soliditySha3(bytes32, address).
func Salt(privateKey []byte, address id.Address) ([]byte, error) {
	if len(privateKey) != Size {
		return nil, dErrors.New(dErrors.CodeValidation, "private key must be 32 bytes")
	}
	addr, err := hex.DecodeString(strings.TrimPrefix(address.String(), "0x"))
	if err != nil || len(addr) != 20 {
		return nil, dErrors.New(dErrors.CodeValidation, "address must be 20 bytes")
	}
	h := sha3.NewLegacyKeccak256()
	h.Write(privateKey)
	h.Write(addr)
	return h.Sum(nil), nil
}

// Hash returns keccak256(value || salt).
func Hash(value string, salt []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(value))
	h.Write(salt)
	return h.Sum(nil)
}

// HashAll hashes each value with the same salt, preserving order.
func HashAll(values []string, salt []byte) [][]byte {
	out := make([][]byte, len(values))
	for i, v := range values {
		out[i] = Hash(v, salt)
	}
	return out
}
