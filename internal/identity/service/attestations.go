package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"snowflake/internal/identity/models"
	"snowflake/internal/identity/store"
	dErrors "snowflake/pkg/domain-errors"
	audit "snowflake/pkg/platform/audit"
	"snowflake/pkg/requestcontext"
)

// AttestEntry appends a verifier's statement to an existing entry. Owners
// cannot attest their own entries.
func (s *Service) AttestEntry(ctx context.Context, req *models.AttestRequest) error {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "AttestEntry",
		attribute.Int64("token_id", int64(req.TokenID)),
		attribute.Int("field_index", req.FieldIndex),
		attribute.String("status", string(req.Status)),
	)
	err := s.attestEntry(ctx, req)
	s.finish(span, "attest_entry", start, err)
	return err
}

func (s *Service) attestEntry(ctx context.Context, req *models.AttestRequest) error {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}

	var token *models.IdentityToken
	err := s.tx.RunInTx(ctx, func(st store.Store) error {
		t, err := st.FindToken(ctx, req.TokenID)
		if err != nil {
			return translate(err, "token not found", "failed to load token")
		}
		if t.IsOwner(req.Verifier) {
			return dErrors.New(dErrors.CodeUnauthorized, "owners cannot attest their own entries")
		}
		if _, err := st.FindEntry(ctx, t.ID, req.FieldIndex, req.Key); err != nil {
			return translate(err, "entry not found", "failed to load entry")
		}
		att := models.Attestation{
			Verifier:   req.Verifier,
			Status:     req.Status,
			AttestedAt: requestcontext.Now(ctx),
		}
		if err := st.AppendAttestation(ctx, t.ID, req.FieldIndex, req.Key, att); err != nil {
			return translate(err, "entry not found", "failed to record attestation")
		}
		token = t
		return nil
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.AttestationsRecorded.Inc()
	}
	event := tokenEvent(audit.EventEntryAttested, token.ID, token.Owner, req.Verifier)
	event.FieldIndex = req.FieldIndex
	event.Keys = []string{req.Key}
	event.Decision = string(req.Status)
	s.auditEmitter.emit(ctx, event)
	return nil
}
