package kafka

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	id "snowflake/pkg/domain"
	audit "snowflake/pkg/platform/audit"
)

func toPayload(event audit.Event) payload {
	return payload{
		ID:         event.ID.String(),
		Category:   string(event.Category),
		Timestamp:  event.Timestamp.UTC().Format(time.RFC3339Nano),
		TokenID:    uint64(event.TokenID),
		Subject:    event.Subject.String(),
		ActorID:    event.ActorID.String(),
		Action:     event.Action,
		RequestID:  event.RequestID,
		FieldIndex: event.FieldIndex,
		Keys:       event.Keys,
		Decision:   event.Decision,
	}
}

func fromPayload(p payload) (audit.Event, error) {
	eventID, err := uuid.Parse(p.ID)
	if err != nil {
		return audit.Event{}, fmt.Errorf("decode audit record id: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, p.Timestamp)
	if err != nil {
		return audit.Event{}, fmt.Errorf("decode audit record timestamp: %w", err)
	}
	return audit.Event{
		ID:         eventID,
		Category:   audit.EventCategory(p.Category),
		Timestamp:  ts,
		TokenID:    id.TokenID(p.TokenID),
		Subject:    id.Address(p.Subject),
		ActorID:    id.Address(p.ActorID),
		Action:     p.Action,
		RequestID:  p.RequestID,
		FieldIndex: p.FieldIndex,
		Keys:       p.Keys,
		Decision:   p.Decision,
	}, nil
}
