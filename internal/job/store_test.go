package job

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/argoquant/dexterio/internal/config"
	"github.com/argoquant/dexterio/pkg/errors"
)

type StoreTestSuite struct {
	suite.Suite
	dir   string
	store *FSStore
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (s *StoreTestSuite) SetupTest() {
	dir, err := os.MkdirTemp("", "job-store-*")
	s.Require().NoError(err)
	s.dir = dir

	store, err := NewFSStore(dir)
	s.Require().NoError(err)
	s.store = store
}

func (s *StoreTestSuite) TearDownTest() {
	os.RemoveAll(s.dir)
}

func (s *StoreTestSuite) TestSaveLoadRoundTrip() {
	rec := Record{JobID: "job-1", Status: StatusQueued, CreatedAt: time.Now().UTC(), Config: config.Default()}

	s.Require().NoError(s.store.Save(rec))

	loaded, err := s.store.Load("job-1")
	s.Require().NoError(err)
	s.Equal(StatusQueued, loaded.Status)
	s.Equal("job-1", loaded.JobID)
}

func (s *StoreTestSuite) TestLoadMissingJobReturnsJobNotFound() {
	_, err := s.store.Load("does-not-exist")
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeJobNotFound))
}

func (s *StoreTestSuite) TestListSortsByCreatedAtDescending() {
	older := Record{JobID: "older", Status: StatusDone, CreatedAt: time.Now().UTC().Add(-time.Hour)}
	newer := Record{JobID: "newer", Status: StatusDone, CreatedAt: time.Now().UTC()}

	s.Require().NoError(s.store.Save(older))
	s.Require().NoError(s.store.Save(newer))

	records, err := s.store.List()
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal("newer", records[0].Record.JobID)
	s.Equal("older", records[1].Record.JobID)
}

func (s *StoreTestSuite) TestListOnEmptyRootReturnsNoError() {
	empty, err := NewFSStore(s.dir + "-fresh")
	s.Require().NoError(err)
	defer os.RemoveAll(s.dir + "-fresh")

	records, err := empty.List()
	s.Require().NoError(err)
	s.Empty(records)
}
