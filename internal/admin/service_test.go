package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "snowflake/pkg/domain"
	dErrors "snowflake/pkg/domain-errors"
	audit "snowflake/pkg/platform/audit"
	"snowflake/pkg/platform/audit/publisher"
)

type brokenDirectory struct{}

func (brokenDirectory) IsRegistered(context.Context, id.Handle) (bool, error) {
	return false, errors.New("redis down")
}

func (brokenDirectory) SignUp(context.Context, id.Handle, id.Address) error {
	return errors.New("redis down")
}

func (brokenDirectory) AddressOf(context.Context, id.Handle) (id.Address, error) {
	return "", errors.New("redis down")
}

func TestServiceDirectoryFailures(t *testing.T) {
	svc := NewService(brokenDirectory{})
	ctx := context.Background()

	err := svc.SignUp(ctx, "p4hwf8t", addrA)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))

	_, err = svc.AddressOf(ctx, "p4hwf8t")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

type writeOnlyStore struct{}

func (writeOnlyStore) Append(context.Context, audit.Event) error { return nil }

func TestServiceAuditTrail(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		svc := NewService(brokenDirectory{})
		assert.False(t, svc.AuditEnabled())
		_, err := svc.AuditTrail(context.Background(), 1)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("write-only store", func(t *testing.T) {
		svc := NewService(brokenDirectory{}, WithAuditTrail(publisher.NewPublisher(writeOnlyStore{})))
		assert.True(t, svc.AuditEnabled())
		_, err := svc.AuditTrail(context.Background(), 1)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
		assert.ErrorIs(t, err, publisher.ErrNotReadable)
	})
}

func TestServiceWithoutLedger(t *testing.T) {
	svc := NewService(brokenDirectory{})

	assert.False(t, svc.FeesEnabled())
	assert.Zero(t, svc.MintFee())
	_, err := svc.Credit(context.Background(), addrA, 1)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	_, err = svc.Balance(context.Background(), addrA)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
