package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"snowflake/internal/identity/models"
	"snowflake/internal/identity/store"
	id "snowflake/pkg/domain"
	dErrors "snowflake/pkg/domain-errors"
)

// OwnerOf returns the address that owns tokenID.
func (s *Service) OwnerOf(ctx context.Context, tokenID id.TokenID) (id.Address, error) {
	token, err := s.loadToken(ctx, tokenID)
	if err != nil {
		return "", err
	}
	return token.Owner, nil
}

// TokenOfAddress returns the token owned by owner.
func (s *Service) TokenOfAddress(ctx context.Context, owner id.Address) (id.TokenID, error) {
	token, err := s.store.FindTokenByOwner(ctx, owner)
	if err != nil {
		return 0, translate(err, "no token for address", "failed to look up address")
	}
	return token.ID, nil
}

// TokenOfHandle returns the token bound to handle.
func (s *Service) TokenOfHandle(ctx context.Context, handle id.Handle) (id.TokenID, error) {
	token, err := s.store.FindTokenByHandle(ctx, handle)
	if err != nil {
		return 0, translate(err, "no token for handle", "failed to look up handle")
	}
	return token.ID, nil
}

func (s *Service) TokenDetails(ctx context.Context, tokenID id.TokenID) (*models.TokenDetails, error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "TokenDetails", attribute.Int64("token_id", int64(tokenID)))
	token, err := s.loadToken(ctx, tokenID)
	s.finish(span, "token_details", start, err)
	if err != nil {
		return nil, err
	}
	return &models.TokenDetails{
		Owner:     token.Owner,
		Handle:    token.Handle,
		FieldIDs:  token.FieldIDs,
		Resolvers: token.Resolvers,
	}, nil
}

// FieldDetails returns the declared entry keys of a field and its attestation
// summary. Fields of a fresh token have no declared keys.
func (s *Service) FieldDetails(ctx context.Context, tokenID id.TokenID, fieldIndex int) (*models.FieldDetails, error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "FieldDetails",
		attribute.Int64("token_id", int64(tokenID)),
		attribute.Int("field_index", fieldIndex),
	)
	details, err := s.fieldDetails(ctx, tokenID, fieldIndex)
	s.finish(span, "field_details", start, err)
	return details, err
}

// fieldDetails reads the field and its attestations in one transaction so
// the keys and the summary come from the same commit.
func (s *Service) fieldDetails(ctx context.Context, tokenID id.TokenID, fieldIndex int) (*models.FieldDetails, error) {
	var details *models.FieldDetails
	err := s.tx.RunInTx(ctx, func(st store.Store) error {
		if _, err := findToken(ctx, st, tokenID); err != nil {
			return err
		}
		field, err := st.FindField(ctx, tokenID, fieldIndex)
		if err != nil {
			return translate(err, "field not found", "failed to load field")
		}
		atts, err := st.ListFieldAttestations(ctx, tokenID, fieldIndex)
		if err != nil {
			return translate(err, "field not found", "failed to load attestations")
		}
		keys := field.EntryKeys
		if keys == nil {
			keys = []string{}
		}
		if atts == nil {
			atts = []models.FieldAttestation{}
		}
		details = &models.FieldDetails{EntryKeys: keys, Attestations: atts}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return details, nil
}

// EntryDetails returns the stored value of an entry byte-for-byte with its
// attestations.
func (s *Service) EntryDetails(ctx context.Context, tokenID id.TokenID, fieldIndex int, key string) (*models.EntryDetails, error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "EntryDetails",
		attribute.Int64("token_id", int64(tokenID)),
		attribute.Int("field_index", fieldIndex),
	)
	details, err := s.entryDetails(ctx, tokenID, fieldIndex, key)
	s.finish(span, "entry_details", start, err)
	return details, err
}

func (s *Service) entryDetails(ctx context.Context, tokenID id.TokenID, fieldIndex int, key string) (*models.EntryDetails, error) {
	var details *models.EntryDetails
	err := s.tx.RunInTx(ctx, func(st store.Store) error {
		if _, err := findToken(ctx, st, tokenID); err != nil {
			return err
		}
		if _, err := st.FindField(ctx, tokenID, fieldIndex); err != nil {
			return translate(err, "field not found", "failed to load field")
		}
		entry, err := st.FindEntry(ctx, tokenID, fieldIndex, key)
		if err != nil {
			return translate(err, "entry not found", "failed to load entry")
		}
		atts := entry.Attestations
		if atts == nil {
			atts = []models.Attestation{}
		}
		details = &models.EntryDetails{Value: entry.Value, Attestations: atts}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return details, nil
}

func (s *Service) loadToken(ctx context.Context, tokenID id.TokenID) (*models.IdentityToken, error) {
	return findToken(ctx, s.store, tokenID)
}

func findToken(ctx context.Context, st store.Store, tokenID id.TokenID) (*models.IdentityToken, error) {
	if tokenID.IsZero() {
		return nil, dErrors.New(dErrors.CodeNotFound, "token not found")
	}
	token, err := st.FindToken(ctx, tokenID)
	if err != nil {
		return nil, translate(err, "token not found", "failed to load token")
	}
	return token, nil
}
