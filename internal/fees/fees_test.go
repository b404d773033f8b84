package fees

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "snowflake/pkg/domain"
	dErrors "snowflake/pkg/domain-errors"
)

const owner = id.Address("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

func TestNoFee(t *testing.T) {
	assert.NoError(t, NoFee{}.ChargeMintFee(context.Background(), owner))
}

func TestLedger(t *testing.T) {
	ctx := context.Background()

	t.Run("charges the fee from a credited balance", func(t *testing.T) {
		l := NewLedger(10)
		balance, err := l.Credit(ctx, owner, 25)
		require.NoError(t, err)
		assert.Equal(t, uint64(25), balance)

		require.NoError(t, l.ChargeMintFee(ctx, owner))
		balance, err = l.Balance(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, uint64(15), balance)
	})

	t.Run("short balance is untouched", func(t *testing.T) {
		l := NewLedger(10)
		_, err := l.Credit(ctx, owner, 9)
		require.NoError(t, err)

		err = l.ChargeMintFee(ctx, owner)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientFunds))

		balance, err := l.Balance(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, uint64(9), balance)
	})

	t.Run("refund restores the fee", func(t *testing.T) {
		l := NewLedger(10)
		_, err := l.Credit(ctx, owner, 10)
		require.NoError(t, err)
		require.NoError(t, l.ChargeMintFee(ctx, owner))
		require.NoError(t, l.RefundMintFee(ctx, owner))

		balance, err := l.Balance(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, uint64(10), balance)
	})

	t.Run("zero fee never fails", func(t *testing.T) {
		l := NewLedger(0)
		assert.NoError(t, l.ChargeMintFee(ctx, owner))
	})

	t.Run("credit validation", func(t *testing.T) {
		l := NewLedger(10)
		_, err := l.Credit(ctx, owner, 0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		_, err = l.Credit(ctx, "", 5)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = l.Credit(ctx, owner, math.MaxUint64)
		require.NoError(t, err)
		_, err = l.Credit(ctx, owner, 1)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
