package bar

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
)

type DiscoveryTestSuite struct {
	suite.Suite
	dir string
}

func TestDiscoverySuite(t *testing.T) {
	suite.Run(t, new(DiscoveryTestSuite))
}

func (s *DiscoveryTestSuite) SetupTest() {
	dir, err := os.MkdirTemp("", "bar-discovery-*")
	s.Require().NoError(err)
	s.dir = dir
}

func (s *DiscoveryTestSuite) TearDownTest() {
	os.RemoveAll(s.dir)
}

func (s *DiscoveryTestSuite) touch(name string) {
	f, err := os.Create(filepath.Join(s.dir, name))
	s.Require().NoError(err)
	f.Close()
}

func (s *DiscoveryTestSuite) TestPrefersUppercaseExact() {
	s.touch("SPY.parquet")
	s.touch("spy.parquet")

	path, err := DiscoverSymbolFile(s.dir, "SPY")
	s.NoError(err)
	s.Equal(filepath.Join(s.dir, "SPY.parquet"), path)
}

func (s *DiscoveryTestSuite) TestFallsBackToLowercase() {
	s.touch("spy.parquet")

	path, err := DiscoverSymbolFile(s.dir, "SPY")
	s.NoError(err)
	s.Equal(filepath.Join(s.dir, "spy.parquet"), path)
}

func (s *DiscoveryTestSuite) TestFallsBackToLegacyGlob() {
	s.touch("spy_1m_2024.parquet")

	path, err := DiscoverSymbolFile(s.dir, "SPY")
	s.NoError(err)
	s.Equal(filepath.Join(s.dir, "spy_1m_2024.parquet"), path)
}

func (s *DiscoveryTestSuite) TestMissingFileErrors() {
	_, err := DiscoverSymbolFile(s.dir, "QQQ")
	s.Error(err)
}

func (s *DiscoveryTestSuite) TestDiscoverAllFailsFastOnFirstMissing() {
	s.touch("SPY.parquet")

	_, err := DiscoverAll(s.dir, []string{"SPY", "QQQ"})
	s.Error(err)
}
