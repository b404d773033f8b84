package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "snowflake/pkg/domain"
	dErrors "snowflake/pkg/domain-errors"
)

const owner = id.Address("0x1111111111111111111111111111111111111111")

func digests(n int) []Digest {
	out := make([]Digest, n)
	for i := range out {
		out[i] = Digest{byte(i + 1)}
	}
	return out
}

func TestNewIdentityToken(t *testing.T) {
	t.Run("creates built-in fields", func(t *testing.T) {
		tok, err := NewIdentityToken(1, owner, "p4hwf8t", time.Now())
		require.NoError(t, err)
		assert.Equal(t, []int{FieldNames, FieldDateOfBirth}, tok.FieldIDs)
		assert.Empty(t, tok.Resolvers)
		assert.Equal(t, 2, tok.NextFieldIndex())
	})

	t.Run("rejects zero id", func(t *testing.T) {
		_, err := NewIdentityToken(0, owner, "p4hwf8t", time.Now())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("clone is independent", func(t *testing.T) {
		tok, err := NewIdentityToken(1, owner, "p4hwf8t", time.Now())
		require.NoError(t, err)
		c := tok.Clone()
		c.FieldIDs = append(c.FieldIDs, 2)
		c.Resolvers = append(c.Resolvers, "0x2")
		assert.Len(t, tok.FieldIDs, 2)
		assert.Empty(t, tok.Resolvers)
	})
}

func TestFieldKind(t *testing.T) {
	fixed := Fixed(DateOfBirthVocabulary...)
	assert.True(t, fixed.IsFixed())
	assert.True(t, fixed.Allows("month"))
	assert.False(t, fixed.Allows("email"))
	assert.Equal(t, "fixed", fixed.String())

	ext := Extensible()
	assert.False(t, ext.IsFixed())
	assert.True(t, ext.Allows("Main Email"))
	assert.Nil(t, ext.Vocabulary())
}

func TestMintRequestValidate(t *testing.T) {
	valid := MintRequest{Owner: owner, Handle: "p4hwf8t", NameEntries: digests(6), BirthEntries: digests(3)}
	require.NoError(t, valid.Validate())

	short := valid
	short.NameEntries = digests(5)
	assert.True(t, dErrors.HasCode(short.Validate(), dErrors.CodeLengthMismatch))

	long := valid
	long.BirthEntries = digests(4)
	assert.True(t, dErrors.HasCode(long.Validate(), dErrors.CodeLengthMismatch))
}

func TestWriteEntriesRequestValidate(t *testing.T) {
	req := WriteEntriesRequest{TokenID: 1, FieldIndex: NewField, Keys: []string{" Main Email "}, Values: digests(1)}
	req.Normalize()
	require.NoError(t, req.Validate())
	assert.Equal(t, "Main Email", req.Keys[0])

	req.Values = digests(2)
	assert.True(t, dErrors.HasCode(req.Validate(), dErrors.CodeLengthMismatch))

	empty := WriteEntriesRequest{TokenID: 1, Keys: []string{""}, Values: digests(1)}
	assert.True(t, dErrors.HasCode(empty.Validate(), dErrors.CodeValidation))
}

func TestParseDigest(t *testing.T) {
	d, err := ParseDigest("0x0a0b")
	require.NoError(t, err)
	assert.Equal(t, Digest{0x0a, 0x0b}, d)
	assert.Equal(t, "0x0a0b", d.String())

	_, err = ParseDigest("zz")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
