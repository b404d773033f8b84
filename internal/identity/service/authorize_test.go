package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snowflake/internal/identity/models"
	id "snowflake/pkg/domain"
	dErrors "snowflake/pkg/domain-errors"
)

func TestAuthorize(t *testing.T) {
	owner := id.Address("0x7e5f4552091a69125d5dfcb7b8c2659029395bdf")
	resolver := id.Address("0x6813eb9362372eef6200f3b1dbc3f819671cba69")
	stranger := id.Address("0x1eff47bc3a10a45d4b230b5d10e37751fe6aa718")

	token, err := models.NewIdentityToken(1, owner, "p4hwf8t", time.Now())
	require.NoError(t, err)
	token.Resolvers = append(token.Resolvers, resolver)

	tests := []struct {
		name      string
		token     *models.IdentityToken
		caller    id.Address
		anyone    bool
		ownerOnly bool
	}{
		{name: "owner", token: token, caller: owner, anyone: true, ownerOnly: true},
		{name: "resolver", token: token, caller: resolver, anyone: true},
		{name: "stranger", token: token, caller: stranger},
		{name: "anonymous", token: token, caller: ""},
		{name: "no token", token: nil, caller: owner},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.token, tt.caller)
			if tt.anyone {
				assert.NoError(t, err)
			} else {
				assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
			}

			err = AuthorizeOwner(tt.token, tt.caller)
			if tt.ownerOnly {
				assert.NoError(t, err)
			} else {
				assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
			}
		})
	}
}
