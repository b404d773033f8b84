package handler

import (
	"snowflake/internal/identity/models"
	id "snowflake/pkg/domain"
)

// MintRequest carries hex digests ordered like the fixed vocabularies.
type MintRequest struct {
	Handle      string   `json:"handle"`
	Names       []string `json:"names"`
	DateOfBirth []string `json:"date_of_birth"`
}

func (r MintRequest) toModel(owner id.Address) (*models.MintRequest, error) {
	handle, err := id.ParseHandle(r.Handle)
	if err != nil {
		return nil, err
	}
	names, err := models.ParseDigests(r.Names)
	if err != nil {
		return nil, err
	}
	dob, err := models.ParseDigests(r.DateOfBirth)
	if err != nil {
		return nil, err
	}
	return &models.MintRequest{
		Owner:        owner,
		Handle:       handle,
		NameEntries:  names,
		BirthEntries: dob,
	}, nil
}

// EntriesRequest writes keys[i] = values[i] into one field.
type EntriesRequest struct {
	Keys              []string `json:"keys"`
	Values            []string `json:"values"`
	ClearAttestations bool     `json:"clear_attestations"`
}

func (r EntriesRequest) toModel(tokenID id.TokenID, fieldIndex int, caller id.Address) (*models.WriteEntriesRequest, error) {
	values, err := models.ParseDigests(r.Values)
	if err != nil {
		return nil, err
	}
	return &models.WriteEntriesRequest{
		TokenID:           tokenID,
		FieldIndex:        fieldIndex,
		Keys:              append([]string(nil), r.Keys...),
		Values:            values,
		ClearAttestations: r.ClearAttestations,
		Caller:            caller,
	}, nil
}

type ResolverRequest struct {
	Resolver string `json:"resolver"`
}

type AttestRequest struct {
	Status string `json:"status"`
}
