//go:build integration

package store_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"snowflake/internal/identity/models"
	"snowflake/internal/identity/store"
	id "snowflake/pkg/domain"
	dErrors "snowflake/pkg/domain-errors"
	"snowflake/pkg/testutil/containers"
)

const (
	pgOwnerA = id.Address("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	pgOwnerB = id.Address("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

var pgBuiltinKinds = []models.FieldKind{
	models.Fixed(models.NameVocabulary...),
	models.Fixed(models.DateOfBirthVocabulary...),
}

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	ctx      context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.ctx = context.Background()
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(s.ctx,
		"identity_attestations", "identity_entries", "identity_fields",
		"identity_token_resolvers", "identity_tokens", "identity_token_sequence")
	s.Require().NoError(err)
	// Reseeds the token sequence row.
	s.Require().NoError(store.Migrate(s.ctx, s.postgres.DB))
}

func (s *PostgresStoreSuite) mint(owner id.Address, handle id.Handle) *models.IdentityToken {
	var tok *models.IdentityToken
	err := s.store.RunInTx(s.ctx, func(st store.Store) error {
		next, err := st.NextTokenID(s.ctx)
		if err != nil {
			return err
		}
		tok, err = models.NewIdentityToken(next, owner, handle, time.Now().UTC())
		if err != nil {
			return err
		}
		return st.CreateToken(s.ctx, tok, pgBuiltinKinds)
	})
	s.Require().NoError(err)
	return tok
}

func (s *PostgresStoreSuite) TestOwnershipIndex() {
	first := s.mint(pgOwnerA, "alice")
	second := s.mint(pgOwnerB, "bob")
	s.Equal(id.TokenID(1), first.ID)
	s.Equal(id.TokenID(2), second.ID)

	byHandle, err := s.store.FindTokenByHandle(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(pgOwnerA, byHandle.Owner)
	s.Equal([]int{0, 1}, byHandle.FieldIDs)

	tok, err := models.NewIdentityToken(99, pgOwnerA, "carol", time.Now())
	s.Require().NoError(err)
	s.ErrorIs(s.store.CreateToken(s.ctx, tok, pgBuiltinKinds), store.ErrAlreadyUsed)

	_, err = s.store.FindTokenByOwner(s.ctx, "0xdddddddddddddddddddddddddddddddddddddddd")
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *PostgresStoreSuite) TestEntrySemantics() {
	tok := s.mint(pgOwnerA, "alice")

	s.Require().NoError(s.store.WriteEntries(s.ctx, tok.ID, models.FieldNames,
		models.NameVocabulary, []models.Digest{{0x01}, {0x02}, {0x03}, {0x04}, {0x05}, {0x06}}, store.WriteMode{}))

	field, err := s.store.FindField(s.ctx, tok.ID, models.FieldNames)
	s.Require().NoError(err)
	s.True(field.Kind.IsFixed())
	s.Empty(field.EntryKeys)

	entry, err := s.store.FindEntry(s.ctx, tok.ID, models.FieldNames, "givenName")
	s.Require().NoError(err)
	s.Equal(models.Digest{0x02}, entry.Value)

	index, err := s.store.AddField(s.ctx, tok.ID, models.Extensible())
	s.Require().NoError(err)
	s.Equal(2, index)

	declare := store.WriteMode{Declare: true}
	s.Require().NoError(s.store.WriteEntries(s.ctx, tok.ID, index,
		[]string{"Main Email", "Work Email"}, []models.Digest{{0x0a}, {0x0b}}, declare))
	s.Require().NoError(s.store.WriteEntries(s.ctx, tok.ID, index,
		[]string{"Work Email", "Main Email"}, []models.Digest{{0x0c}, {0x0d}}, declare))

	field, err = s.store.FindField(s.ctx, tok.ID, index)
	s.Require().NoError(err)
	s.False(field.Kind.IsFixed())
	s.Equal([]string{"Main Email", "Work Email"}, field.EntryKeys)

	entry, err = s.store.FindEntry(s.ctx, tok.ID, index, "Main Email")
	s.Require().NoError(err)
	s.Equal(models.Digest{0x0d}, entry.Value)

	s.Run("declaring a seeded key appends it", func() {
		s.Require().NoError(s.store.WriteEntries(s.ctx, tok.ID, models.FieldNames,
			[]string{"surname"}, []models.Digest{{0x44}}, declare))
		field, err := s.store.FindField(s.ctx, tok.ID, models.FieldNames)
		s.Require().NoError(err)
		s.Equal([]string{"surname"}, field.EntryKeys)
	})

	s.Run("missing field", func() {
		err := s.store.WriteEntries(s.ctx, tok.ID, 7, []string{"k"}, []models.Digest{{0x01}}, declare)
		s.ErrorIs(err, store.ErrNotFound)
	})
}

func (s *PostgresStoreSuite) TestAttestations() {
	tok := s.mint(pgOwnerA, "alice")
	declare := store.WriteMode{Declare: true}
	s.Require().NoError(s.store.WriteEntries(s.ctx, tok.ID, models.FieldDateOfBirth,
		[]string{"day", "month"}, []models.Digest{{0x1e}, {0x07}}, declare))

	att := models.Attestation{Verifier: pgOwnerB, Status: models.AttestationVerified, AttestedAt: time.Now().UTC().Truncate(time.Microsecond)}
	s.Require().NoError(s.store.AppendAttestation(s.ctx, tok.ID, models.FieldDateOfBirth, "month", att))
	s.ErrorIs(s.store.AppendAttestation(s.ctx, tok.ID, models.FieldDateOfBirth, "year", att), store.ErrNotFound)

	s.Require().NoError(s.store.WriteEntries(s.ctx, tok.ID, models.FieldDateOfBirth,
		[]string{"month"}, []models.Digest{{0x08}}, declare))
	entry, err := s.store.FindEntry(s.ctx, tok.ID, models.FieldDateOfBirth, "month")
	s.Require().NoError(err)
	s.Require().Len(entry.Attestations, 1)
	s.Equal(pgOwnerB, entry.Attestations[0].Verifier)
	s.True(att.AttestedAt.Equal(entry.Attestations[0].AttestedAt))

	summary, err := s.store.ListFieldAttestations(s.ctx, tok.ID, models.FieldDateOfBirth)
	s.Require().NoError(err)
	s.Require().Len(summary, 1)
	s.Equal("month", summary[0].Key)

	s.Require().NoError(s.store.WriteEntries(s.ctx, tok.ID, models.FieldDateOfBirth,
		[]string{"month"}, []models.Digest{{0x09}}, store.WriteMode{Declare: true, ClearAttestations: true}))
	entry, err = s.store.FindEntry(s.ctx, tok.ID, models.FieldDateOfBirth, "month")
	s.Require().NoError(err)
	s.Empty(entry.Attestations)
}

func (s *PostgresStoreSuite) TestResolvers() {
	tok := s.mint(pgOwnerA, "alice")
	s.Require().NoError(s.store.AppendResolver(s.ctx, tok.ID, pgOwnerB))
	s.ErrorIs(s.store.AppendResolver(s.ctx, tok.ID, pgOwnerB), store.ErrAlreadyUsed)
	s.ErrorIs(s.store.AppendResolver(s.ctx, 42, pgOwnerB), store.ErrNotFound)

	found, err := s.store.FindToken(s.ctx, tok.ID)
	s.Require().NoError(err)
	s.Equal([]id.Address{pgOwnerB}, found.Resolvers)
}

func (s *PostgresStoreSuite) TestRollback() {
	tok := s.mint(pgOwnerA, "alice")
	boom := errors.New("boom")

	err := s.store.RunInTx(s.ctx, func(st store.Store) error {
		next, err := st.NextTokenID(s.ctx)
		s.Require().NoError(err)
		other, err := models.NewIdentityToken(next, pgOwnerB, "bob", time.Now())
		s.Require().NoError(err)
		s.Require().NoError(st.CreateToken(s.ctx, other, pgBuiltinKinds))
		_, err = st.AddField(s.ctx, tok.ID, models.Extensible())
		s.Require().NoError(err)
		return boom
	})
	s.ErrorIs(err, boom)

	_, err = s.store.FindTokenByOwner(s.ctx, pgOwnerB)
	s.ErrorIs(err, store.ErrNotFound)

	found, err := s.store.FindToken(s.ctx, tok.ID)
	s.Require().NoError(err)
	s.Equal([]int{0, 1}, found.FieldIDs)

	s.Equal(id.TokenID(2), s.mint(pgOwnerB, "bob").ID, "rolled back mints do not consume ids")

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	err = s.store.RunInTx(ctx, func(store.Store) error { return nil })
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
}

// TestConcurrentMintSameOwner verifies the unique owner constraint lets
// exactly one of many concurrent mints through.
func (s *PostgresStoreSuite) TestConcurrentMintSameOwner() {
	const goroutines = 20
	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			err := s.store.RunInTx(s.ctx, func(st store.Store) error {
				next, err := st.NextTokenID(s.ctx)
				if err != nil {
					return err
				}
				tok, err := models.NewIdentityToken(next, pgOwnerA, id.Handle(fmt.Sprintf("h%d", idx)), time.Now())
				if err != nil {
					return err
				}
				return st.CreateToken(s.ctx, tok, pgBuiltinKinds)
			})
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, store.ErrAlreadyUsed) {
				conflictCount.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load())
	s.Equal(int32(goroutines-1), conflictCount.Load())
}

// TestConcurrentWritesSameField verifies WriteEntries locks the field row so
// stored and declared positions stay dense and unique without a token lock.
func (s *PostgresStoreSuite) TestConcurrentWritesSameField() {
	tok := s.mint(pgOwnerA, "alice")
	index, err := s.store.AddField(s.ctx, tok.ID, models.Extensible())
	s.Require().NoError(err)

	const writers = 10
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			keys := []string{fmt.Sprintf("key-%d", n)}
			values := []models.Digest{{byte(n)}}
			mode := store.WriteMode{Declare: true}
			if n%2 == 0 {
				s.NoError(s.store.WriteEntries(s.ctx, tok.ID, index, keys, values, mode))
				return
			}
			s.NoError(s.store.RunInTx(s.ctx, func(st store.Store) error {
				return st.WriteEntries(s.ctx, tok.ID, index, keys, values, mode)
			}))
		}(i)
	}
	wg.Wait()

	field, err := s.store.FindField(s.ctx, tok.ID, index)
	s.Require().NoError(err)
	s.Len(field.EntryKeys, writers)

	rows, err := s.postgres.DB.QueryContext(s.ctx, `
		SELECT stored_position, declared_position FROM identity_entries
		WHERE token_id = $1 AND field_index = $2
		ORDER BY declared_position`,
		int64(tok.ID), index)
	s.Require().NoError(err)
	defer rows.Close()

	stored := map[int]bool{}
	next := 0
	for rows.Next() {
		var storedPos, declaredPos int
		s.Require().NoError(rows.Scan(&storedPos, &declaredPos))
		s.Equal(next, declaredPos, "declared positions must be dense")
		s.False(stored[storedPos], "stored position %d assigned twice", storedPos)
		stored[storedPos] = true
		next++
	}
	s.Require().NoError(rows.Err())
	s.Equal(writers, next)
	for pos := 0; pos < writers; pos++ {
		s.True(stored[pos], "stored position %d missing", pos)
	}
}

func (s *PostgresStoreSuite) TestEntryPositionsAreUnique() {
	tok := s.mint(pgOwnerA, "alice")
	index, err := s.store.AddField(s.ctx, tok.ID, models.Extensible())
	s.Require().NoError(err)
	s.Require().NoError(s.store.WriteEntries(s.ctx, tok.ID, index,
		[]string{"first"}, []models.Digest{{0x01}}, store.WriteMode{Declare: true}))

	_, err = s.postgres.DB.ExecContext(s.ctx, `
		INSERT INTO identity_entries (token_id, field_index, entry_key, value, stored_position, declared_position)
		VALUES ($1, $2, 'second', $3, 1, 0)`,
		int64(tok.ID), index, []byte{0x02})
	s.Require().Error(err, "a duplicate declared position must be rejected")
}
