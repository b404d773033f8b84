package service

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks RegistrationAuthority,FeeCharger,Refunder,AuditPublisher

import (
	"context"

	id "snowflake/pkg/domain"
	audit "snowflake/pkg/platform/audit"
)

// RegistrationAuthority vouches for handles before a token can be minted.
// AddressOf fails with store.ErrNotFound when the handle was never signed up.
type RegistrationAuthority interface {
	AddressOf(ctx context.Context, handle id.Handle) (id.Address, error)
}

// FeeCharger charges the mint fee. It fails with CodeInsufficientFunds when
// the owner cannot pay.
type FeeCharger interface {
	ChargeMintFee(ctx context.Context, owner id.Address) error
}

// Refunder is implemented by fee chargers that can return a fee when the
// mint transaction fails to commit after the charge.
type Refunder interface {
	RefundMintFee(ctx context.Context, owner id.Address) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
