package store

import (
	id "snowflake/pkg/domain"
)

// OwnershipIndex maps owners and handles to tokens. The two maps are
// independent and key-unique; tokens never point back into them.
type OwnershipIndex struct {
	byOwner  map[id.Address]id.TokenID
	byHandle map[id.Handle]id.TokenID
}

func NewOwnershipIndex() *OwnershipIndex {
	return &OwnershipIndex{
		byOwner:  make(map[id.Address]id.TokenID),
		byHandle: make(map[id.Handle]id.TokenID),
	}
}

// Reserve binds owner and handle to tokenID. It fails with ErrAlreadyUsed
// when either is bound already, leaving both maps untouched.
func (x *OwnershipIndex) Reserve(owner id.Address, handle id.Handle, tokenID id.TokenID) error {
	if _, taken := x.byOwner[owner]; taken {
		return ErrAlreadyUsed
	}
	if _, taken := x.byHandle[handle]; taken {
		return ErrAlreadyUsed
	}
	x.byOwner[owner] = tokenID
	x.byHandle[handle] = tokenID
	return nil
}

// Release undoes a Reserve. Only the in-memory journal calls it.
func (x *OwnershipIndex) Release(owner id.Address, handle id.Handle) {
	delete(x.byOwner, owner)
	delete(x.byHandle, handle)
}

func (x *OwnershipIndex) TokenOfOwner(owner id.Address) (id.TokenID, error) {
	if tokenID, ok := x.byOwner[owner]; ok {
		return tokenID, nil
	}
	return 0, ErrNotFound
}

func (x *OwnershipIndex) TokenOfHandle(handle id.Handle) (id.TokenID, error) {
	if tokenID, ok := x.byHandle[handle]; ok {
		return tokenID, nil
	}
	return 0, ErrNotFound
}
