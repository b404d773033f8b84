package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"snowflake/internal/identity/models"
	"snowflake/internal/identity/store"
	id "snowflake/pkg/domain"
	dErrors "snowflake/pkg/domain-errors"
	audit "snowflake/pkg/platform/audit"
)

// AddOrUpdateFieldEntries writes keys/values into a field of an existing
// token on behalf of req.Caller, who must be the owner or a resolver.
//
// A FieldIndex of models.NewField, or equal to the token's next field index,
// first creates an Extensible field. Larger indices fail with NotFound. Fixed
// fields only accept keys from their vocabulary. Returns the written index.
func (s *Service) AddOrUpdateFieldEntries(ctx context.Context, req *models.WriteEntriesRequest) (int, error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "AddOrUpdateFieldEntries",
		attribute.Int64("token_id", int64(req.TokenID)),
		attribute.Int("field_index", req.FieldIndex),
		attribute.Int("entries", len(req.Keys)),
	)
	index, err := s.addOrUpdateFieldEntries(ctx, req)
	s.finish(span, "write_entries", start, err)
	return index, err
}

func (s *Service) addOrUpdateFieldEntries(ctx context.Context, req *models.WriteEntriesRequest) (int, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return 0, err
	}
	if err := s.checkDigests(req.Values); err != nil {
		return 0, err
	}

	var (
		token   *models.IdentityToken
		index   int
		created bool
	)
	err := s.tx.RunInTx(ctx, func(st store.Store) error {
		t, err := st.FindToken(ctx, req.TokenID)
		if err != nil {
			return translate(err, "token not found", "failed to load token")
		}
		if err := Authorize(t, req.Caller); err != nil {
			return err
		}

		index = req.FieldIndex
		switch {
		case index == models.NewField || index == t.NextFieldIndex():
			index, err = st.AddField(ctx, t.ID, models.Extensible())
			if err != nil {
				return translate(err, "token not found", "failed to add field")
			}
			created = true
		case !t.HasField(index):
			return dErrors.New(dErrors.CodeNotFound,
				fmt.Sprintf("field %d not found; the next new field is %d", index, t.NextFieldIndex()))
		}

		field, err := st.FindField(ctx, t.ID, index)
		if err != nil {
			return translate(err, "field not found", "failed to load field")
		}
		for _, key := range req.Keys {
			if !field.Kind.Allows(key) {
				return dErrors.New(dErrors.CodeValidation,
					fmt.Sprintf("key %q is not part of field %d vocabulary", key, index))
			}
		}

		mode := store.WriteMode{Declare: true, ClearAttestations: req.ClearAttestations}
		if err := st.WriteEntries(ctx, t.ID, index, req.Keys, req.Values, mode); err != nil {
			return translate(err, "field not found", "failed to write entries")
		}
		token = t
		return nil
	})
	if err != nil {
		return 0, err
	}

	if s.metrics != nil {
		if created {
			s.metrics.FieldsAdded.Inc()
		}
		s.metrics.EntriesWritten.Add(float64(len(req.Keys)))
	}
	if created {
		event := tokenEvent(audit.EventFieldAdded, token.ID, token.Owner, req.Caller)
		event.FieldIndex = index
		s.auditEmitter.emit(ctx, event)
	}
	event := tokenEvent(audit.EventFieldEntriesWritten, token.ID, token.Owner, req.Caller)
	event.FieldIndex = index
	event.Keys = append([]string(nil), req.Keys...)
	s.auditEmitter.emit(ctx, event)
	return index, nil
}

// AddField appends an empty Extensible field to a token and returns its index.
func (s *Service) AddField(ctx context.Context, tokenID id.TokenID, caller id.Address) (int, error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "AddField", attribute.Int64("token_id", int64(tokenID)))
	index, err := s.addField(ctx, tokenID, caller)
	s.finish(span, "add_field", start, err)
	return index, err
}

func (s *Service) addField(ctx context.Context, tokenID id.TokenID, caller id.Address) (int, error) {
	var (
		token *models.IdentityToken
		index int
	)
	err := s.tx.RunInTx(ctx, func(st store.Store) error {
		t, err := st.FindToken(ctx, tokenID)
		if err != nil {
			return translate(err, "token not found", "failed to load token")
		}
		if err := Authorize(t, caller); err != nil {
			return err
		}
		index, err = st.AddField(ctx, t.ID, models.Extensible())
		if err != nil {
			return translate(err, "token not found", "failed to add field")
		}
		token = t
		return nil
	})
	if err != nil {
		return 0, err
	}

	if s.metrics != nil {
		s.metrics.FieldsAdded.Inc()
	}
	event := tokenEvent(audit.EventFieldAdded, token.ID, token.Owner, caller)
	event.FieldIndex = index
	s.auditEmitter.emit(ctx, event)
	return index, nil
}
