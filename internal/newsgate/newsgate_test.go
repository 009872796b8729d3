package newsgate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/argoquant/dexterio/pkg/errors"
)

// The teacher's own wasm-hosted strategy loader has no test fixture
// module checked into its tree either, so Load's happy path against a
// real compiled module is exercised at integration time, not here.

type NewsGateTestSuite struct {
	suite.Suite
}

func TestNewsGateSuite(t *testing.T) {
	suite.Run(t, new(NewsGateTestSuite))
}

func (s *NewsGateTestSuite) TestLoadMissingFileReturnsInvalidConfiguration() {
	_, err := Load(context.Background(), "/nonexistent/path/gate.wasm")

	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}
