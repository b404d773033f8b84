package admin

import (
	"time"

	id "snowflake/pkg/domain"
	audit "snowflake/pkg/platform/audit"
)

type SignUpRequest struct {
	Handle  string `json:"handle"`
	Address string `json:"address"`
}

type CreditRequest struct {
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
}

// HandleResponse echoes a handle binding.
type HandleResponse struct {
	Handle  id.Handle  `json:"handle"`
	Address id.Address `json:"address"`
}

// BalanceResponse reports an address's fee balance alongside the current fee.
type BalanceResponse struct {
	Address id.Address `json:"address"`
	Balance uint64     `json:"balance"`
	MintFee uint64     `json:"mint_fee"`
}

// AuditEventResponse is one entry of a token's audit trail.
type AuditEventResponse struct {
	ID         string     `json:"id"`
	Action     string     `json:"action"`
	Category   string     `json:"category"`
	Timestamp  time.Time  `json:"timestamp"`
	Subject    id.Address `json:"subject"`
	Actor      id.Address `json:"actor,omitempty"`
	FieldIndex *int       `json:"field_index,omitempty"`
	Keys       []string   `json:"keys,omitempty"`
	RequestID  string     `json:"request_id,omitempty"`
}

type AuditTrailResponse struct {
	TokenID id.TokenID           `json:"token_id"`
	Events  []AuditEventResponse `json:"events"`
}

func toAuditTrailResponse(tokenID id.TokenID, events []audit.Event) AuditTrailResponse {
	out := AuditTrailResponse{TokenID: tokenID, Events: make([]AuditEventResponse, 0, len(events))}
	for _, e := range events {
		resp := AuditEventResponse{
			ID:        e.ID.String(),
			Action:    e.Action,
			Category:  string(e.Category),
			Timestamp: e.Timestamp,
			Subject:   e.Subject,
			Actor:     e.ActorID,
			Keys:      e.Keys,
			RequestID: e.RequestID,
		}
		if e.FieldIndex >= 0 {
			idx := e.FieldIndex
			resp.FieldIndex = &idx
		}
		out.Events = append(out.Events, resp)
	}
	return out
}
