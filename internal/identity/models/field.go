package models

import (
	"slices"

	id "snowflake/pkg/domain"
)

// Built-in field indices created at mint.
const (
	FieldNames       = 0
	FieldDateOfBirth = 1
)

// NewField asks the registry to append a field instead of addressing an existing one.
const NewField = -1

// NameVocabulary is the fixed key set of the names field, in positional order.
var NameVocabulary = []string{"prefix", "givenName", "middleName", "surname", "suffix", "preferredName"}

// DateOfBirthVocabulary is the fixed key set of the date-of-birth field.
var DateOfBirthVocabulary = []string{"day", "month", "year"}

// FieldKind is either Fixed(vocabulary) or Extensible. Only the mint path
// creates Fixed fields.
type FieldKind struct {
	vocabulary []string
}

// Fixed returns a kind restricted to the given keys.
func Fixed(vocabulary ...string) FieldKind {
	return FieldKind{vocabulary: slices.Clone(vocabulary)}
}

// Extensible returns a kind accepting caller-supplied keys.
func Extensible() FieldKind {
	return FieldKind{}
}

// IsFixed reports whether the kind carries a predeclared vocabulary.
func (k FieldKind) IsFixed() bool {
	return len(k.vocabulary) > 0
}

// Vocabulary returns a copy of the fixed keys, or nil for extensible fields.
func (k FieldKind) Vocabulary() []string {
	return slices.Clone(k.vocabulary)
}

// Allows reports whether key may be written to a field of this kind.
func (k FieldKind) Allows(key string) bool {
	if !k.IsFixed() {
		return true
	}
	return slices.Contains(k.vocabulary, key)
}

func (k FieldKind) String() string {
	if k.IsFixed() {
		return "fixed"
	}
	return "extensible"
}

// Field groups related entries of a token.
//
// EntryKeys lists keys in first-write order. Keys are added but never removed;
// values stored by mint against a Fixed vocabulary do not appear here until a
// later write declares them.
type Field struct {
	TokenID   id.TokenID `json:"token_id"`
	Index     int        `json:"index"`
	Kind      FieldKind  `json:"-"`
	EntryKeys []string   `json:"entry_keys"`
}
