package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/keyquest/internal/storage"
)

type TableSuite struct {
	suite.Suite
	mini  *miniredis.Miniredis
	table *Table
	ctx   context.Context
}

func TestTableSuite(t *testing.T) {
	suite.Run(t, new(TableSuite))
}

func (s *TableSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.Table = "test"
	s.table = NewWithClient(client, cfg)
	s.ctx = context.Background()
}

func (s *TableSuite) TearDownTest() {
	if s.table != nil {
		_ = s.table.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *TableSuite) TestAppendAndGet() {
	loc, err := s.table.Append(s.ctx, map[storage.Column]string{
		storage.ColEmail:    "a@x.com",
		storage.ColLastName: "Lee",
	})
	s.Require().NoError(err)
	s.Equal(storage.Locator("1"), loc)

	row, err := s.table.Get(s.ctx, loc)
	s.Require().NoError(err)
	s.Equal("a@x.com", row.Get(storage.ColEmail))
	s.Equal("Lee", row.Get(storage.ColLastName))
}

func (s *TableSuite) TestAppendWritesHashAndIndex() {
	loc, _ := s.table.Append(s.ctx, map[storage.Column]string{storage.ColEmail: "a@x.com"})

	s.Equal("a@x.com", s.mini.HGet(rowKey("test", loc), string(storage.ColEmail)))
	members, err := s.mini.List(rowsIndexKey("test"))
	s.Require().NoError(err)
	s.Equal([]string{string(loc)}, members)
}

func (s *TableSuite) TestGetNotFound() {
	_, err := s.table.Get(s.ctx, "42")
	s.ErrorIs(err, storage.ErrRowNotFound)
}

func (s *TableSuite) TestScanReturnsRowsInOrder() {
	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		_, err := s.table.Append(s.ctx, map[storage.Column]string{storage.ColEmail: email})
		s.Require().NoError(err)
	}

	rows, err := s.table.Scan(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(rows, 3)
	s.Equal("a@x.com", rows[0].Get(storage.ColEmail))
	s.Equal("b@x.com", rows[1].Get(storage.ColEmail))
	s.Equal("c@x.com", rows[2].Get(storage.ColEmail))
}

func (s *TableSuite) TestScanEmptyTable() {
	rows, err := s.table.Scan(s.ctx)
	s.Require().NoError(err)
	s.Empty(rows)
}

func (s *TableSuite) TestUpdateCells() {
	loc, _ := s.table.Append(s.ctx, map[storage.Column]string{
		storage.ColEmail: "a@x.com",
		storage.ColKey2:  "not_scanned",
	})

	err := s.table.UpdateCells(s.ctx, loc, map[storage.Column]string{storage.ColKey2: "scanned"})
	s.Require().NoError(err)

	row, _ := s.table.Get(s.ctx, loc)
	s.Equal("scanned", row.Get(storage.ColKey2))
	s.Equal("a@x.com", row.Get(storage.ColEmail))
}

func (s *TableSuite) TestUpdateCellsNotFound() {
	err := s.table.UpdateCells(s.ctx, "99", map[storage.Column]string{storage.ColKey1: "scanned"})
	s.ErrorIs(err, storage.ErrRowNotFound)
}

func (s *TableSuite) TestConnectionFailureIsTransient() {
	s.mini.Close()

	_, err := s.table.Scan(s.ctx)
	s.ErrorIs(err, storage.ErrTransient)
}
