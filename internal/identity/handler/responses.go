package handler

import (
	"time"

	"snowflake/internal/identity/models"
	id "snowflake/pkg/domain"
)

type TokenIDResponse struct {
	TokenID id.TokenID `json:"token_id"`
}

type FieldIndexResponse struct {
	FieldIndex int `json:"field_index"`
}

type OwnerResponse struct {
	TokenID id.TokenID `json:"token_id"`
	Owner   id.Address `json:"owner"`
}

type TokenDetailsResponse struct {
	TokenID   id.TokenID   `json:"token_id"`
	Owner     id.Address   `json:"owner"`
	Handle    id.Handle    `json:"handle"`
	FieldIDs  []int        `json:"field_ids"`
	Resolvers []id.Address `json:"resolvers"`
}

type AttestationResponse struct {
	Key        string     `json:"key,omitempty"`
	Verifier   id.Address `json:"verifier"`
	Status     string     `json:"status"`
	AttestedAt time.Time  `json:"attested_at"`
}

type FieldDetailsResponse struct {
	TokenID      id.TokenID            `json:"token_id"`
	FieldIndex   int                   `json:"field_index"`
	EntryKeys    []string              `json:"entry_keys"`
	Attestations []AttestationResponse `json:"attestations"`
}

type EntryDetailsResponse struct {
	Key          string                `json:"key"`
	Value        string                `json:"value"`
	Attestations []AttestationResponse `json:"attestations"`
}

func toTokenDetailsResponse(tokenID id.TokenID, d *models.TokenDetails) TokenDetailsResponse {
	return TokenDetailsResponse{
		TokenID:   tokenID,
		Owner:     d.Owner,
		Handle:    d.Handle,
		FieldIDs:  d.FieldIDs,
		Resolvers: d.Resolvers,
	}
}

func toFieldDetailsResponse(tokenID id.TokenID, index int, d *models.FieldDetails) FieldDetailsResponse {
	atts := make([]AttestationResponse, 0, len(d.Attestations))
	for _, a := range d.Attestations {
		atts = append(atts, AttestationResponse{
			Key:        a.Key,
			Verifier:   a.Verifier,
			Status:     string(a.Status),
			AttestedAt: a.AttestedAt,
		})
	}
	return FieldDetailsResponse{
		TokenID:      tokenID,
		FieldIndex:   index,
		EntryKeys:    d.EntryKeys,
		Attestations: atts,
	}
}

func toEntryDetailsResponse(key string, d *models.EntryDetails) EntryDetailsResponse {
	atts := make([]AttestationResponse, 0, len(d.Attestations))
	for _, a := range d.Attestations {
		atts = append(atts, AttestationResponse{
			Verifier:   a.Verifier,
			Status:     string(a.Status),
			AttestedAt: a.AttestedAt,
		})
	}
	return EntryDetailsResponse{
		Key:          key,
		Value:        d.Value.String(),
		Attestations: atts,
	}
}
