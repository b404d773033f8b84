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
	"snowflake/pkg/requestcontext"
)

// Mint issues the next token to req.Owner. The handle must have been signed up
// for req.Owner with the registration authority, and neither owner nor handle
// may already hold a token. Mint seeds the name and date-of-birth values against their fixed
// vocabularies without declaring entry keys.
func (s *Service) Mint(ctx context.Context, req *models.MintRequest) (id.TokenID, error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "Mint", attribute.String("owner", req.Owner.String()))
	tokenID, err := s.mint(ctx, req)
	s.finish(span, "mint", start, err)
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int64("token_id", int64(tokenID)))
	return tokenID, nil
}

func (s *Service) mint(ctx context.Context, req *models.MintRequest) (id.TokenID, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}
	if err := s.checkDigests(req.NameEntries); err != nil {
		return 0, err
	}
	if err := s.checkDigests(req.BirthEntries); err != nil {
		return 0, err
	}

	if err := s.checkHandleOwner(ctx, req.Handle, req.Owner); err != nil {
		return 0, err
	}

	charged := false
	var minted *models.IdentityToken
	err := s.tx.RunInTx(ctx, func(st store.Store) error {
		if err := ensureUnbound(ctx, st, req.Owner, req.Handle); err != nil {
			return err
		}
		tokenID, err := st.NextTokenID(ctx)
		if err != nil {
			return translate(err, "token sequence not found", "failed to assign token id")
		}
		token, err := models.NewIdentityToken(tokenID, req.Owner, req.Handle, requestcontext.Now(ctx))
		if err != nil {
			return err
		}
		kinds := []models.FieldKind{
			models.Fixed(models.NameVocabulary...),
			models.Fixed(models.DateOfBirthVocabulary...),
		}
		if err := st.CreateToken(ctx, token, kinds); err != nil {
			if errors.Is(err, store.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeAlreadyRegistered, "owner or handle already holds a token")
			}
			return translate(err, "token not found", "failed to create token")
		}
		if err := st.WriteEntries(ctx, tokenID, models.FieldNames, models.NameVocabulary, req.NameEntries, store.WriteMode{}); err != nil {
			return translate(err, "names field not found", "failed to write names")
		}
		if err := st.WriteEntries(ctx, tokenID, models.FieldDateOfBirth, models.DateOfBirthVocabulary, req.BirthEntries, store.WriteMode{}); err != nil {
			return translate(err, "date of birth field not found", "failed to write date of birth")
		}
		if err := s.fees.ChargeMintFee(ctx, req.Owner); err != nil {
			return translate(err, "fee balance not found", "failed to charge mint fee")
		}
		charged = true
		minted = token
		return nil
	})
	if err != nil {
		if charged {
			s.refund(ctx, req.Owner)
		}
		return 0, err
	}

	if s.metrics != nil {
		s.metrics.TokensMinted.Inc()
	}
	s.auditEmitter.emit(ctx, tokenEvent(audit.EventTokenMinted, minted.ID, minted.Owner, minted.Owner))
	return minted.ID, nil
}

// checkHandleOwner fails with CodeUnregisteredHandle unless the registration
// authority has handle signed up for owner.
func (s *Service) checkHandleOwner(ctx context.Context, handle id.Handle, owner id.Address) error {
	addr, err := s.authority.AddressOf(ctx, handle)
	if errors.Is(err, store.ErrNotFound) {
		return dErrors.New(dErrors.CodeUnregisteredHandle, "handle is not registered with the registration authority")
	}
	if err != nil {
		return translate(err, "handle not found", "failed to consult registration authority")
	}
	if addr != owner {
		return dErrors.New(dErrors.CodeUnregisteredHandle, "handle is registered to a different address")
	}
	return nil
}

// ensureUnbound fails with CodeAlreadyRegistered when owner or handle already
// maps to a token.
func ensureUnbound(ctx context.Context, st store.Store, owner id.Address, handle id.Handle) error {
	if _, err := st.FindTokenByOwner(ctx, owner); err == nil {
		return dErrors.New(dErrors.CodeAlreadyRegistered, "owner already holds a token")
	} else if !errors.Is(err, store.ErrNotFound) {
		return translate(err, "token not found", "failed to check owner")
	}
	if _, err := st.FindTokenByHandle(ctx, handle); err == nil {
		return dErrors.New(dErrors.CodeAlreadyRegistered, "handle already holds a token")
	} else if !errors.Is(err, store.ErrNotFound) {
		return translate(err, "token not found", "failed to check handle")
	}
	return nil
}

func (s *Service) refund(ctx context.Context, owner id.Address) {
	refunder, ok := s.fees.(Refunder)
	if !ok {
		return
	}
	if err := refunder.RefundMintFee(context.WithoutCancel(ctx), owner); err != nil {
		s.logger.ErrorContext(ctx, "failed to refund mint fee",
			"error", err,
			"owner", owner,
		)
	}
}
