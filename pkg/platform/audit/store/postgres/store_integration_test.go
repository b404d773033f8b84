//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "snowflake/pkg/domain"
	audit "snowflake/pkg/platform/audit"
	auditpostgres "snowflake/pkg/platform/audit/store/postgres"
	"snowflake/pkg/testutil/containers"
)

type AuditStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *auditpostgres.Store
}

func TestAuditStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(AuditStoreSuite))
}

func (s *AuditStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = auditpostgres.New(s.postgres.DB)
}

func (s *AuditStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_events"))
}

func (s *AuditStoreSuite) event(tokenID id.TokenID, action audit.AuditEvent, at time.Time) audit.Event {
	return audit.Event{
		ID:         uuid.New(),
		Category:   action.Category(),
		Timestamp:  at,
		TokenID:    tokenID,
		Subject:    "0x7e5f4552091a69125d5dfcb7b8c2659029395bdf",
		Action:     string(action),
		FieldIndex: -1,
	}
}

func (s *AuditStoreSuite) TestListByTokenOldestFirst() {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	written := s.event(1, audit.EventFieldEntriesWritten, base.Add(time.Minute))
	written.FieldIndex = 2
	written.Keys = []string{"employer", "Main Email"}
	written.ActorID = "0x2b5ad5c4795c026514f8317c7a215e218dccd6cf"

	s.Require().NoError(s.store.Append(ctx, written))
	s.Require().NoError(s.store.Append(ctx, s.event(1, audit.EventTokenMinted, base)))
	s.Require().NoError(s.store.Append(ctx, s.event(2, audit.EventTokenMinted, base)))

	events, err := s.store.ListByToken(ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(string(audit.EventTokenMinted), events[0].Action)
	s.Equal(written.Keys, events[1].Keys)
	s.Equal(written.ActorID, events[1].ActorID)
	s.Equal(2, events[1].FieldIndex)
	s.True(written.Timestamp.Equal(events[1].Timestamp))

	none, err := s.store.ListByToken(ctx, 99)
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *AuditStoreSuite) TestMigrateIsIdempotent() {
	s.Require().NoError(s.store.Migrate(context.Background()))
}
