package service

import (
	"context"
	"log/slog"

	id "snowflake/pkg/domain"
	audit "snowflake/pkg/platform/audit"
	"snowflake/pkg/requestcontext"
)

// auditEmitter logs audit events and forwards them to the publisher.
// Events are emitted after commit, so publisher failures are logged and
// never undo a mutation.
type auditEmitter struct {
	logger    *slog.Logger
	publisher AuditPublisher
}

func (e *auditEmitter) emit(ctx context.Context, event audit.Event) {
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if e.logger != nil {
		args := []any{
			"log_type", "audit",
			"event", event.Action,
			"token_id", event.TokenID,
			"subject", event.Subject,
		}
		if !event.ActorID.IsZero() && event.ActorID != event.Subject {
			args = append(args, "actor_id", event.ActorID)
		}
		if event.FieldIndex >= 0 {
			args = append(args, "field_index", event.FieldIndex)
		}
		if event.RequestID != "" {
			args = append(args, "request_id", event.RequestID)
		}
		e.logger.InfoContext(ctx, event.Action, args...)
	}
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Emit(ctx, event); err != nil && e.logger != nil {
		e.logger.ErrorContext(ctx, "failed to publish audit event",
			"error", err,
			"event", event.Action,
			"token_id", event.TokenID,
		)
	}
}

func tokenEvent(action audit.AuditEvent, tokenID id.TokenID, owner, actor id.Address) audit.Event {
	return audit.Event{
		Action:     string(action),
		TokenID:    tokenID,
		Subject:    owner,
		ActorID:    actor,
		FieldIndex: -1,
	}
}
