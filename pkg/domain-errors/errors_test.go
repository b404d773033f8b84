package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodes(t *testing.T) {
	t.Run("wrapped codes survive fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("mint: %w", New(CodeAlreadyRegistered, "owner already holds a token"))
		assert.True(t, HasCode(err, CodeAlreadyRegistered))
		assert.Equal(t, CodeAlreadyRegistered, CodeOf(err))
	})

	t.Run("outermost code wins", func(t *testing.T) {
		inner := New(CodeNotFound, "token not found")
		err := Wrap(inner, CodeInternal, "load failed")
		assert.True(t, HasCode(err, CodeInternal))
		assert.False(t, HasCode(err, CodeNotFound))
		assert.ErrorIs(t, err, inner)
	})

	t.Run("plain errors have no code", func(t *testing.T) {
		err := errors.New("boom")
		assert.False(t, HasCode(err, CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(err))
	})
}
