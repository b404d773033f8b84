// Package raindrop holds the registration authority adapters. A handle is
// registered once it has been signed up for an address; the identity
// registry only mints tokens for registered handles.
package raindrop

import (
	"context"

	id "snowflake/pkg/domain"
	"snowflake/pkg/platform/sentinel"
)

// Store facts reported by directories.
var (
	ErrNotFound    = sentinel.ErrNotFound
	ErrAlreadyUsed = sentinel.ErrAlreadyUsed
)

// Directory binds handles to addresses one to one.
type Directory interface {
	IsRegistered(ctx context.Context, handle id.Handle) (bool, error)
	SignUp(ctx context.Context, handle id.Handle, address id.Address) error
	AddressOf(ctx context.Context, handle id.Handle) (id.Address, error)
}
