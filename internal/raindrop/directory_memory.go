package raindrop

import (
	"context"
	"sync"

	id "snowflake/pkg/domain"
)

// InMemoryDirectory is a process-local Directory.
type InMemoryDirectory struct {
	mu        sync.RWMutex
	handles   map[id.Handle]id.Address
	addresses map[id.Address]id.Handle
}

func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{
		handles:   make(map[id.Handle]id.Address),
		addresses: make(map[id.Address]id.Handle),
	}
}

func (d *InMemoryDirectory) IsRegistered(_ context.Context, handle id.Handle) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handles[handle]
	return ok, nil
}

// SignUp binds handle to address. Either side already bound yields ErrAlreadyUsed.
func (d *InMemoryDirectory) SignUp(_ context.Context, handle id.Handle, address id.Address) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.handles[handle]; ok {
		return ErrAlreadyUsed
	}
	if _, ok := d.addresses[address]; ok {
		return ErrAlreadyUsed
	}
	d.handles[handle] = address
	d.addresses[address] = handle
	return nil
}

func (d *InMemoryDirectory) AddressOf(_ context.Context, handle id.Handle) (id.Address, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	addr, ok := d.handles[handle]
	if !ok {
		return "", ErrNotFound
	}
	return addr, nil
}
