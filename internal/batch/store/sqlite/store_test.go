package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"istr/internal/batch"
	"istr/pkg/platform/sentinel"
)

type SQLiteLedgerSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
}

func TestSQLiteLedgerSuite(t *testing.T) {
	suite.Run(t, new(SQLiteLedgerSuite))
}

func (s *SQLiteLedgerSuite) SetupTest() {
	s.ctx = context.Background()
	store, err := Open(s.ctx, ":memory:")
	s.Require().NoError(err)
	s.store = store
}

func (s *SQLiteLedgerSuite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

func (s *SQLiteLedgerSuite) summary(id string, at time.Time) batch.RunSummary {
	return batch.RunSummary{
		ID:        id,
		Function:  "cusip.check",
		Format:    "cusip",
		Subject:   "svc-ingest",
		RequestID: "req-" + id,
		Stats:     batch.Stats{Rows: 3, NullInputs: 1, Valid: 1, Invalid: map[string]int{"Invalid check digit": 1}},
		StartedAt: at,
		Duration:  2 * time.Millisecond,
	}
}

func (s *SQLiteLedgerSuite) TestSaveAndGet() {
	at := time.Date(2024, 5, 1, 10, 30, 0, 123456789, time.UTC)
	want := s.summary("run-1", at)
	s.Require().NoError(s.store.Save(s.ctx, want))

	got, err := s.store.Get(s.ctx, "run-1")
	s.Require().NoError(err)
	s.Equal(want, *got)
}

func (s *SQLiteLedgerSuite) TestDuplicateIsConflict() {
	run := s.summary("run-1", time.Now())
	s.Require().NoError(s.store.Save(s.ctx, run))
	s.ErrorIs(s.store.Save(s.ctx, run), sentinel.ErrConflict)
}

func (s *SQLiteLedgerSuite) TestGetMissing() {
	_, err := s.store.Get(s.ctx, "nope")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *SQLiteLedgerSuite) TestListRecentNewestFirst() {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		run := s.summary(id, base.Add(time.Duration(i)*time.Hour))
		if id == "b" {
			run.Stats.Invalid = nil
		}
		s.Require().NoError(s.store.Save(s.ctx, run))
	}

	runs, err := s.store.ListRecent(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(runs, 2)
	s.Equal("c", runs[0].ID)
	s.Equal("b", runs[1].ID)
	s.Nil(runs[1].Stats.Invalid)
}

func (s *SQLiteLedgerSuite) TestFileBackedPersists() {
	path := filepath.Join(s.T().TempDir(), "runs.db")
	store, err := Open(s.ctx, path)
	s.Require().NoError(err)
	s.Require().NoError(store.Save(s.ctx, s.summary("run-1", time.Now())))
	s.Require().NoError(store.Close())

	reopened, err := Open(s.ctx, path)
	s.Require().NoError(err)
	defer reopened.Close()
	_, err = reopened.Get(s.ctx, "run-1")
	s.NoError(err)
}
