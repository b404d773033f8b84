package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"snowflake/internal/identity/models"
	"snowflake/internal/identity/store"
	id "snowflake/pkg/domain"
	dErrors "snowflake/pkg/domain-errors"
	audit "snowflake/pkg/platform/audit"
)

// AddResolver lets the owner entitle resolver to mutate the token's fields.
// Adding an already listed resolver is a no-op. Resolvers are never removed.
func (s *Service) AddResolver(ctx context.Context, tokenID id.TokenID, resolver, caller id.Address) error {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "AddResolver", attribute.Int64("token_id", int64(tokenID)))
	err := s.addResolver(ctx, tokenID, resolver, caller)
	s.finish(span, "add_resolver", start, err)
	return err
}

func (s *Service) addResolver(ctx context.Context, tokenID id.TokenID, resolver, caller id.Address) error {
	if resolver.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "resolver address is required")
	}

	var (
		token *models.IdentityToken
		added bool
	)
	err := s.tx.RunInTx(ctx, func(st store.Store) error {
		t, err := st.FindToken(ctx, tokenID)
		if err != nil {
			return translate(err, "token not found", "failed to load token")
		}
		if err := AuthorizeOwner(t, caller); err != nil {
			return err
		}
		if t.IsOwner(resolver) {
			return dErrors.New(dErrors.CodeValidation, "the owner cannot be added as a resolver")
		}
		if t.HasResolver(resolver) {
			return nil
		}
		if err := st.AppendResolver(ctx, t.ID, resolver); err != nil {
			if errors.Is(err, store.ErrAlreadyUsed) {
				return nil
			}
			return translate(err, "token not found", "failed to add resolver")
		}
		token = t
		added = true
		return nil
	})
	if err != nil || !added {
		return err
	}

	if s.metrics != nil {
		s.metrics.ResolversAdded.Inc()
	}
	s.auditEmitter.emit(ctx, tokenEvent(audit.EventResolverAdded, token.ID, token.Owner, caller))
	return nil
}
