package store

import (
	"context"
	"sync"
	"time"

	"snowflake/internal/identity/models"
	id "snowflake/pkg/domain"
	dErrors "snowflake/pkg/domain-errors"
)

// defaultTxTimeout bounds how long a transaction may run when the caller set no deadline.
const defaultTxTimeout = 5 * time.Second

// InMemory is the registry ledger: token table, ownership index and field
// store behind one lock. Mutations run with the write lock held for the whole
// transaction and are rolled back from a journal on failure, so readers only
// ever see committed state.
type InMemory struct {
	mu        sync.RWMutex
	lastID    id.TokenID
	tokens    map[id.TokenID]*models.IdentityToken
	ownership *OwnershipIndex
	fields    *FieldStore
	timeout   time.Duration
}

type InMemoryOption func(*InMemory)

// WithTxTimeout overrides the default transaction timeout.
func WithTxTimeout(d time.Duration) InMemoryOption {
	return func(s *InMemory) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewInMemory(opts ...InMemoryOption) *InMemory {
	s := &InMemory{
		tokens:    make(map[id.TokenID]*models.IdentityToken),
		ownership: NewOwnershipIndex(),
		fields:    NewFieldStore(),
		timeout:   defaultTxTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunInTx runs fn with exclusive access to the ledger. Any error from fn
// rewinds every write fn made.
func (s *InMemory) RunInTx(ctx context.Context, fn func(store Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	tx := &memoryTx{s: s, journal: []func(){}}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (s *InMemory) read() *memoryTx { return &memoryTx{s: s} }

func (s *InMemory) NextTokenID(ctx context.Context) (id.TokenID, error) {
	var next id.TokenID
	err := s.RunInTx(ctx, func(st Store) error {
		var err error
		next, err = st.NextTokenID(ctx)
		return err
	})
	return next, err
}

func (s *InMemory) CreateToken(ctx context.Context, token *models.IdentityToken, kinds []models.FieldKind) error {
	return s.RunInTx(ctx, func(st Store) error { return st.CreateToken(ctx, token, kinds) })
}

func (s *InMemory) FindToken(ctx context.Context, tokenID id.TokenID) (*models.IdentityToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().FindToken(ctx, tokenID)
}

func (s *InMemory) FindTokenByOwner(ctx context.Context, owner id.Address) (*models.IdentityToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().FindTokenByOwner(ctx, owner)
}

func (s *InMemory) FindTokenByHandle(ctx context.Context, handle id.Handle) (*models.IdentityToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().FindTokenByHandle(ctx, handle)
}

func (s *InMemory) AppendResolver(ctx context.Context, tokenID id.TokenID, resolver id.Address) error {
	return s.RunInTx(ctx, func(st Store) error { return st.AppendResolver(ctx, tokenID, resolver) })
}

func (s *InMemory) AddField(ctx context.Context, tokenID id.TokenID, kind models.FieldKind) (int, error) {
	var index int
	err := s.RunInTx(ctx, func(st Store) error {
		var err error
		index, err = st.AddField(ctx, tokenID, kind)
		return err
	})
	return index, err
}

func (s *InMemory) FindField(ctx context.Context, tokenID id.TokenID, index int) (*models.Field, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().FindField(ctx, tokenID, index)
}

func (s *InMemory) WriteEntries(ctx context.Context, tokenID id.TokenID, index int, keys []string, values []models.Digest, mode WriteMode) error {
	return s.RunInTx(ctx, func(st Store) error { return st.WriteEntries(ctx, tokenID, index, keys, values, mode) })
}

func (s *InMemory) FindEntry(ctx context.Context, tokenID id.TokenID, index int, key string) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().FindEntry(ctx, tokenID, index, key)
}

func (s *InMemory) ListFieldAttestations(ctx context.Context, tokenID id.TokenID, index int) ([]models.FieldAttestation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ListFieldAttestations(ctx, tokenID, index)
}

func (s *InMemory) AppendAttestation(ctx context.Context, tokenID id.TokenID, index int, key string, att models.Attestation) error {
	return s.RunInTx(ctx, func(st Store) error { return st.AppendAttestation(ctx, tokenID, index, key, att) })
}

// Count returns the number of minted tokens.
func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens), nil
}

// memoryTx operates on ledger state with the lock already held. A nil
// journal marks a read-only view.
type memoryTx struct {
	s       *InMemory
	journal []func()
}

func (t *memoryTx) record(undo func()) {
	if t.journal != nil {
		t.journal = append(t.journal, undo)
	}
}

func (t *memoryTx) rollback() {
	for i := len(t.journal) - 1; i >= 0; i-- {
		t.journal[i]()
	}
	t.journal = nil
}

func (t *memoryTx) NextTokenID(_ context.Context) (id.TokenID, error) {
	prev := t.s.lastID
	t.s.lastID++
	t.record(func() { t.s.lastID = prev })
	return t.s.lastID, nil
}

func (t *memoryTx) CreateToken(_ context.Context, token *models.IdentityToken, kinds []models.FieldKind) error {
	if token == nil {
		return dErrors.New(dErrors.CodeInternal, "token is required")
	}
	if _, exists := t.s.tokens[token.ID]; exists {
		return ErrAlreadyUsed
	}
	if err := t.s.ownership.Reserve(token.Owner, token.Handle, token.ID); err != nil {
		return err
	}
	t.s.tokens[token.ID] = token.Clone()
	t.s.fields.Create(token.ID, kinds)
	t.record(func() {
		delete(t.s.tokens, token.ID)
		t.s.ownership.Release(token.Owner, token.Handle)
		t.s.fields.drop(token.ID)
	})
	return nil
}

func (t *memoryTx) FindToken(_ context.Context, tokenID id.TokenID) (*models.IdentityToken, error) {
	tok, ok := t.s.tokens[tokenID]
	if !ok {
		return nil, ErrNotFound
	}
	return tok.Clone(), nil
}

func (t *memoryTx) FindTokenByOwner(ctx context.Context, owner id.Address) (*models.IdentityToken, error) {
	tokenID, err := t.s.ownership.TokenOfOwner(owner)
	if err != nil {
		return nil, err
	}
	return t.FindToken(ctx, tokenID)
}

func (t *memoryTx) FindTokenByHandle(ctx context.Context, handle id.Handle) (*models.IdentityToken, error) {
	tokenID, err := t.s.ownership.TokenOfHandle(handle)
	if err != nil {
		return nil, err
	}
	return t.FindToken(ctx, tokenID)
}

func (t *memoryTx) AppendResolver(_ context.Context, tokenID id.TokenID, resolver id.Address) error {
	tok, ok := t.s.tokens[tokenID]
	if !ok {
		return ErrNotFound
	}
	if tok.HasResolver(resolver) {
		return ErrAlreadyUsed
	}
	tok.Resolvers = append(tok.Resolvers, resolver)
	t.record(func() { tok.Resolvers = tok.Resolvers[:len(tok.Resolvers)-1] })
	return nil
}

func (t *memoryTx) AddField(_ context.Context, tokenID id.TokenID, kind models.FieldKind) (int, error) {
	tok, ok := t.s.tokens[tokenID]
	if !ok {
		return 0, ErrNotFound
	}
	index, err := t.s.fields.AddField(tokenID, kind)
	if err != nil {
		return 0, err
	}
	tok.FieldIDs = append(tok.FieldIDs, index)
	t.record(func() {
		tok.FieldIDs = tok.FieldIDs[:len(tok.FieldIDs)-1]
		t.s.fields.popField(tokenID)
	})
	return index, nil
}

func (t *memoryTx) FindField(_ context.Context, tokenID id.TokenID, index int) (*models.Field, error) {
	return t.s.fields.Field(tokenID, index)
}

func (t *memoryTx) WriteEntries(_ context.Context, tokenID id.TokenID, index int, keys []string, values []models.Digest, mode WriteMode) error {
	snap := t.s.fields.snapshot(tokenID, index)
	if err := t.s.fields.WriteEntries(tokenID, index, keys, values, mode); err != nil {
		return err
	}
	t.record(func() { t.s.fields.restore(tokenID, index, snap) })
	return nil
}

func (t *memoryTx) FindEntry(_ context.Context, tokenID id.TokenID, index int, key string) (*models.Entry, error) {
	return t.s.fields.Entry(tokenID, index, key)
}

func (t *memoryTx) ListFieldAttestations(_ context.Context, tokenID id.TokenID, index int) ([]models.FieldAttestation, error) {
	return t.s.fields.Attestations(tokenID, index)
}

func (t *memoryTx) AppendAttestation(_ context.Context, tokenID id.TokenID, index int, key string, att models.Attestation) error {
	snap := t.s.fields.snapshot(tokenID, index)
	if err := t.s.fields.Attest(tokenID, index, key, att); err != nil {
		return err
	}
	t.record(func() { t.s.fields.restore(tokenID, index, snap) })
	return nil
}
