//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"istr/internal/batch"
	"istr/internal/batch/store/postgres"
	"istr/pkg/platform/sentinel"
	"istr/pkg/platform/tx"
	"istr/pkg/testutil/containers"
)

type PostgresLedgerSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresLedgerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresLedgerSuite))
}

func (s *PostgresLedgerSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB)
	s.Require().NoError(s.store.Migrate(context.Background()))
	s.Require().NoError(s.store.Migrate(context.Background()), "migrate is idempotent")
}

func (s *PostgresLedgerSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "batch_runs"))
}

func (s *PostgresLedgerSuite) TestSaveGetList() {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	first := batch.RunSummary{
		ID:        uuid.NewString(),
		Function:  "iban.check",
		Format:    "iban",
		Subject:   "svc-ingest",
		RequestID: "req-1",
		Stats:     batch.Stats{Rows: 4, NullInputs: 1, Valid: 2, Invalid: map[string]int{"Invalid checksum": 1}},
		StartedAt: base,
		Duration:  1500 * time.Microsecond,
	}
	second := batch.RunSummary{
		ID:        uuid.NewString(),
		Function:  "url.host",
		Format:    "url",
		Stats:     batch.Stats{Rows: 1, Valid: 1},
		StartedAt: base.Add(time.Minute),
	}
	s.Require().NoError(s.store.Save(ctx, first))
	s.Require().NoError(s.store.Save(ctx, second))
	s.ErrorIs(s.store.Save(ctx, first), sentinel.ErrConflict)

	got, err := s.store.Get(ctx, first.ID)
	s.Require().NoError(err)
	s.Equal(first, *got)

	_, err = s.store.Get(ctx, uuid.NewString())
	s.ErrorIs(err, sentinel.ErrNotFound)

	recent, err := s.store.ListRecent(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(recent, 2)
	s.Equal(second.ID, recent[0].ID)
	s.Nil(recent[0].Stats.Invalid)
}

func (s *PostgresLedgerSuite) TestSaveJoinsCallerTransaction() {
	ctx := context.Background()
	run := batch.RunSummary{
		ID:        uuid.NewString(),
		Function:  "cusip.check",
		Format:    "cusip",
		StartedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	rollback := errors.New("rollback")

	err := tx.Run(ctx, s.postgres.DB, func(ctx context.Context) error {
		s.Require().NoError(s.store.Save(ctx, run))
		_, err := s.store.Get(ctx, run.ID)
		s.Require().NoError(err, "visible inside the transaction")
		return rollback
	})
	s.ErrorIs(err, rollback)

	_, err = s.store.Get(ctx, run.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
