package service

import (
	"snowflake/internal/identity/models"
	id "snowflake/pkg/domain"
	dErrors "snowflake/pkg/domain-errors"
)

// Authorize allows the token owner and any listed resolver.
func Authorize(token *models.IdentityToken, caller id.Address) error {
	if token == nil || caller.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not authorized for this token")
	}
	if token.IsOwner(caller) || token.HasResolver(caller) {
		return nil
	}
	return dErrors.New(dErrors.CodeUnauthorized, "caller is not authorized for this token")
}

// AuthorizeOwner allows only the token owner.
func AuthorizeOwner(token *models.IdentityToken, caller id.Address) error {
	if token == nil || caller.IsZero() || !token.IsOwner(caller) {
		return dErrors.New(dErrors.CodeUnauthorized, "only the token owner may do this")
	}
	return nil
}
