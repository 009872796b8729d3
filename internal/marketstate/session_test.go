package marketstate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/argoquant/dexterio/internal/types"
)

type SessionTestSuite struct {
	suite.Suite
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}

func etTime(hour, minute int) time.Time {
	return time.Date(2025, 3, 3, hour, minute, 0, 0, newYorkLocation)
}

func (s *SessionTestSuite) TestNYAMNYLunchBoundaryBelongsToEarlierSession() {
	s.Equal(types.SessionNYAM, SessionAt(etTime(11, 0)))
	s.Equal(types.SessionNYLunch, SessionAt(etTime(11, 1)))
}

func (s *SessionTestSuite) TestNYLunchNYPMBoundaryBelongsToEarlierSession() {
	s.Equal(types.SessionNYLunch, SessionAt(etTime(14, 0)))
	s.Equal(types.SessionNYPM, SessionAt(etTime(14, 1)))
}

func (s *SessionTestSuite) TestLondonOpenBoundary() {
	s.Equal(types.SessionOff, SessionAt(etTime(2, 59)))
	s.Equal(types.SessionLondon, SessionAt(etTime(3, 0)))
}

func (s *SessionTestSuite) TestNYPMEndBoundaryStillNYPM() {
	s.Equal(types.SessionNYPM, SessionAt(etTime(16, 0)))
	s.Equal(types.SessionOff, SessionAt(etTime(16, 1)))
}

func (s *SessionTestSuite) TestAsiaWrapsMidnightAndIncludesItsEndBoundary() {
	s.Equal(types.SessionAsia, SessionAt(etTime(23, 0)))
	s.Equal(types.SessionAsia, SessionAt(etTime(0, 0)))
	s.Equal(types.SessionAsia, SessionAt(etTime(2, 0)))
	s.Equal(types.SessionOff, SessionAt(etTime(2, 1)))
}

func (s *SessionTestSuite) TestAsiaOpenBoundary() {
	s.Equal(types.SessionOff, SessionAt(etTime(17, 59)))
	s.Equal(types.SessionAsia, SessionAt(etTime(18, 0)))
}
