package domain

import (
	"encoding/hex"
	"strconv"
	"strings"
	"unicode/utf8"

	dErrors "snowflake/pkg/domain-errors"
)

// TokenID identifies a minted identity token. Ids start at 1 and are never reused.
type TokenID uint64

func (t TokenID) String() string { return strconv.FormatUint(uint64(t), 10) }

// IsZero reports whether t is the unassigned id.
func (t TokenID) IsZero() bool { return t == 0 }

// ParseTokenID parses a decimal token id. Zero is rejected.
func ParseTokenID(s string) (TokenID, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || n == 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "token id must be a positive integer")
	}
	return TokenID(n), nil
}

// Address is a participant address in canonical form: "0x" followed by 40
// lowercase hex digits.
type Address string

const addressHexLen = 40

func (a Address) String() string { return string(a) }

// IsZero reports whether a is empty.
func (a Address) IsZero() bool { return a == "" }

// ParseAddress validates and canonicalizes a hex address.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	body, ok := strings.CutPrefix(strings.ToLower(s), "0x")
	if !ok || len(body) != addressHexLen {
		return "", dErrors.New(dErrors.CodeValidation, "address must be 0x followed by 40 hex digits")
	}
	if _, err := hex.DecodeString(body); err != nil {
		return "", dErrors.New(dErrors.CodeValidation, "address must be 0x followed by 40 hex digits")
	}
	return Address("0x" + body), nil
}

// Handle is the external identity string (hydroID) issued by the registration authority.
type Handle string

const maxHandleLen = 64

func (h Handle) String() string { return string(h) }

// ParseHandle trims and validates a handle. Handles are case-sensitive.
func ParseHandle(s string) (Handle, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "handle is required")
	}
	if utf8.RuneCountInString(s) > maxHandleLen {
		return "", dErrors.New(dErrors.CodeValidation, "handle must be 64 characters or less")
	}
	if strings.ContainsAny(s, " \t\r\n/") {
		return "", dErrors.New(dErrors.CodeValidation, "handle must not contain whitespace or slashes")
	}
	return Handle(s), nil
}
