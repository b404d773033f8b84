// Package identity is the Snowflake registry: identity tokens bound one to one
// to an owner address and a registered handle, carrying hashed fields that
// owners, their resolvers and outside verifiers operate on.
package identity

import (
	"log/slog"

	"snowflake/internal/identity/handler"
	"snowflake/internal/identity/service"
	"snowflake/internal/identity/store"
	authmw "snowflake/pkg/platform/middleware/auth"
)

// Service exposes token minting, field writes and attestations.
type Service = service.Service

// Handler wires HTTP endpoints to the registry service.
type Handler = handler.Handler

// NewService constructs the registry service with required dependencies.
func NewService(st store.Store, tx store.Tx, authority service.RegistrationAuthority, opts ...service.Option) (*Service, error) {
	return service.New(st, tx, authority, opts...)
}

// NewHandler constructs the HTTP handler for public reads and authenticated writes.
func NewHandler(s *Service, logger *slog.Logger, jwtValidator authmw.JWTValidator, opts ...handler.Option) *Handler {
	return handler.New(s, logger, jwtValidator, opts...)
}
