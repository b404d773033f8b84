package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "snowflake/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryCompliance covers changes to a participant's identity record.
	// These are retained for the lifetime of the token.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine registry activity useful for
	// debugging and operational visibility.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        uuid.UUID
	Category  EventCategory
	Timestamp time.Time
	TokenID   id.TokenID
	// Subject is the token owner the event concerns.
	Subject id.Address
	// ActorID is the caller that performed the action when different from Subject,
	// e.g. a resolver writing entries or a verifier attesting.
	ActorID   id.Address
	Action    string
	RequestID string
	// FieldIndex is set for field-scoped events; -1 otherwise.
	FieldIndex int
	Keys       []string
	Decision   string
}

type AuditEvent string

const (
	EventTokenMinted         AuditEvent = "token_minted"
	EventFieldAdded          AuditEvent = "field_added"
	EventFieldEntriesWritten AuditEvent = "field_entries_written"
	EventResolverAdded       AuditEvent = "resolver_added"
	EventEntryAttested       AuditEvent = "entry_attested"
	EventHandleSignedUp      AuditEvent = "handle_signed_up"
	EventBalanceCredited     AuditEvent = "balance_credited"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventTokenMinted:         CategoryCompliance,
	EventFieldAdded:          CategoryCompliance,
	EventFieldEntriesWritten: CategoryCompliance,
	EventResolverAdded:       CategoryCompliance,
	EventEntryAttested:       CategoryCompliance,

	EventHandleSignedUp:  CategoryOperations,
	EventBalanceCredited: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Reader lists persisted audit events for a token, oldest first.
type Reader interface {
	ListByToken(ctx context.Context, tokenID id.TokenID) ([]Event, error)
}
