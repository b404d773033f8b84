package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "snowflake/pkg/domain-errors"
)

func TestParseAddress(t *testing.T) {
	t.Run("canonicalizes case", func(t *testing.T) {
		addr, err := ParseAddress(" 0xAbCdEf0123456789aBcDeF0123456789ABCDEF01 ")
		require.NoError(t, err)
		assert.Equal(t, Address("0xabcdef0123456789abcdef0123456789abcdef01"), addr)
	})

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing prefix", "abcdef0123456789abcdef0123456789abcdef01"},
		{"too short", "0xabcdef"},
		{"non hex", "0xzzcdef0123456789abcdef0123456789abcdef01"},
	}
	for _, tt := range tests {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			_, err := ParseAddress(tt.input)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func TestParseHandle(t *testing.T) {
	h, err := ParseHandle("  p4hwf8t ")
	require.NoError(t, err)
	assert.Equal(t, Handle("p4hwf8t"), h)

	for _, bad := range []string{"", "   ", "two words", "a/b"} {
		_, err := ParseHandle(bad)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "handle %q", bad)
	}
}

func TestParseTokenID(t *testing.T) {
	id, err := ParseTokenID("42")
	require.NoError(t, err)
	assert.Equal(t, TokenID(42), id)
	assert.Equal(t, "42", id.String())

	for _, bad := range []string{"0", "-1", "abc", ""} {
		_, err := ParseTokenID(bad)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "token id %q", bad)
	}
}
