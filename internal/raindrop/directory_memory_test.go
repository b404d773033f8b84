package raindrop

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "snowflake/pkg/domain"
)

const (
	alice = id.Address("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	bob   = id.Address("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

func TestInMemoryDirectory(t *testing.T) {
	ctx := context.Background()
	d := NewInMemoryDirectory()

	ok, err := d.IsRegistered(ctx, "p4hwf8t")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, d.SignUp(ctx, "p4hwf8t", alice))

	ok, err = d.IsRegistered(ctx, "p4hwf8t")
	require.NoError(t, err)
	assert.True(t, ok)

	addr, err := d.AddressOf(ctx, "p4hwf8t")
	require.NoError(t, err)
	assert.Equal(t, alice, addr)

	t.Run("handle taken", func(t *testing.T) {
		assert.ErrorIs(t, d.SignUp(ctx, "p4hwf8t", bob), ErrAlreadyUsed)
	})
	t.Run("address already signed up", func(t *testing.T) {
		assert.ErrorIs(t, d.SignUp(ctx, "other", alice), ErrAlreadyUsed)
	})
	t.Run("handles are case-sensitive", func(t *testing.T) {
		ok, err := d.IsRegistered(ctx, "P4HWF8T")
		require.NoError(t, err)
		assert.False(t, ok)
	})
	t.Run("unknown handle", func(t *testing.T) {
		_, err := d.AddressOf(ctx, "nobody")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestInMemoryDirectoryConcurrentSignUp(t *testing.T) {
	ctx := context.Background()
	d := NewInMemoryDirectory()

	const goroutines = 20
	var wg sync.WaitGroup
	var successes atomic.Int32
	for i := range goroutines {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			addr := id.Address(fmt.Sprintf("0x%040x", n))
			if d.SignUp(ctx, "contested", addr) == nil {
				successes.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), successes.Load())
}
